package search

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/store"
	"golang.org/x/sync/errgroup"
)

// Merger gathers hits and facets from every locale's index.
type Merger struct {
	indices map[string]Index
	cache   *store.Collections
	logger  *logger.Logger
}

// NewMerger creates a merger over indices keyed by locale.
func NewMerger(indices map[string]Index, cache *store.Collections, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Discard()
	}
	return &Merger{indices: indices, cache: cache, logger: log.Component("search")}
}

// Locales returns the configured locales in order.
func (m *Merger) Locales() []string {
	return slices.Sorted(maps.Keys(m.indices))
}

// Results returns, per locale, every hit grouped under each of its partner keys
// in browse order. The result is cached under allSearchResults.
func (m *Merger) Results(ctx context.Context) (domain.SearchResults, error) {
	return store.GetOrFetchBlob(ctx, m.cache, store.AllSearchResults, m.fetchResults)
}

// Refinements returns the facet counts of every locale. The result is cached
// under allSearchRefinements.
func (m *Merger) Refinements(ctx context.Context) (domain.SearchFacets, error) {
	return store.GetOrFetchBlob(ctx, m.cache, store.AllSearchRefinements, m.fetchRefinements)
}

func (m *Merger) fetchResults(ctx context.Context) (domain.SearchResults, error) {
	activity := m.logger.StartActivity("fetch search results")
	locales := m.Locales()
	perLocale := make([]domain.PartnerHits, len(locales))

	g, ctx := errgroup.WithContext(ctx)
	for i, locale := range locales {
		g.Go(func() error {
			byPartner := domain.PartnerHits{}
			err := m.indices[locale].Browse(ctx, func(hits []domain.SearchHit) error {
				for _, hit := range hits {
					AddHit(byPartner, hit)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("search results (%s): %w", locale, err)
			}
			perLocale[i] = byPartner
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(domain.SearchResults, len(locales))
	for i, locale := range locales {
		results[locale] = perLocale[i]
	}
	activity.End("locales", len(locales))
	return results, nil
}

func (m *Merger) fetchRefinements(ctx context.Context) (domain.SearchFacets, error) {
	activity := m.logger.StartActivity("fetch search refinements")
	locales := m.Locales()
	perLocale := make([]domain.Facets, len(locales))

	g, ctx := errgroup.WithContext(ctx)
	for i, locale := range locales {
		g.Go(func() error {
			facets, err := m.indices[locale].Facets(ctx)
			if err != nil {
				return fmt.Errorf("search refinements (%s): %w", locale, err)
			}
			perLocale[i] = facets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(domain.SearchFacets, len(locales))
	for i, locale := range locales {
		out[locale] = perLocale[i]
	}
	activity.End("locales", len(locales))
	return out, nil
}

// AddHit appends hit under every one of its partner keys.
func AddHit(byPartner domain.PartnerHits, hit domain.SearchHit) {
	for _, key := range hit.PartnerKeys {
		byPartner[key] = append(byPartner[key], hit)
	}
}
