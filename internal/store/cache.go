package store

import (
	"context"
	"fmt"

	"github.com/prospectus/catalog-source/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Collection names.
const (
	AllPrograms          = "allPrograms"
	AllCourses           = "allCourses"
	LimitedPrograms      = "limitedPrograms"
	LimitedCourses       = "limitedCourses"
	AllSubjects          = "allSubjects"
	AllOrganizations     = "allorganizations"
	AllSearchResults     = "allSearchResults"
	AllSearchRefinements = "allSearchRefinements"
)

// Cache is the key-value seam behind the collection cache.
type Cache interface {
	Get(ctx context.Context, name string, dest any) (bool, error)
	Set(ctx context.Context, name string, value any) error
}

// Collections memoizes named collection fetches over a Cache.
// Concurrent calls for the same name share a single fetch.
type Collections struct {
	cache  Cache
	group  singleflight.Group
	logger *logger.Logger
}

// NewCollections creates a collection cache over c.
func NewCollections(c Cache, log *logger.Logger) *Collections {
	if log == nil {
		log = logger.Discard()
	}
	return &Collections{cache: c, logger: log}
}

// GetOrFetch returns the non-empty collection stored under name, or calls
// fetch, stores its result and returns it. An empty stored collection counts
// as a miss.
func GetOrFetch[T any](ctx context.Context, c *Collections, name string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	v, err, _ := c.group.Do(flightKey[[]T](name), func() (any, error) {
		var cached []T
		ok, err := c.cache.Get(ctx, name, &cached)
		if err != nil {
			c.logger.Warn("collection cache read failed", "collection", name, "error", err)
		}
		if ok && len(cached) > 0 {
			c.logger.Info("retrieved collection from cache", "collection", name, "items", len(cached))
			return cached, nil
		}

		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, name, items); err != nil {
			return nil, fmt.Errorf("cache %s: %w", name, err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

// GetOrFetchBlob is GetOrFetch for a single opaque value; any stored value is a hit.
func GetOrFetchBlob[T any](ctx context.Context, c *Collections, name string, fetch func(context.Context) (T, error)) (T, error) {
	v, err, _ := c.group.Do(flightKey[T](name), func() (any, error) {
		var cached T
		ok, err := c.cache.Get(ctx, name, &cached)
		if err != nil {
			c.logger.Warn("collection cache read failed", "collection", name, "error", err)
		}
		if ok {
			c.logger.Info("retrieved blob from cache", "collection", name)
			return cached, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, name, value); err != nil {
			return nil, fmt.Errorf("cache %s: %w", name, err)
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// flightKey scopes a shared fetch to name and the value type, so two callers
// reading one name as different types never share a result.
func flightKey[T any](name string) string {
	var zero T
	return fmt.Sprintf("%s\x00%T", name, zero)
}
