package providers

import (
	"errors"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/search"
	"github.com/prospectus/catalog-source/internal/store"
)

// SearchHandle wraps the search merger and owns any local indices behind it.
type SearchHandle struct {
	*search.Merger
	local []*search.LocalIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchHandle) Shutdown() error {
	var errs []error
	for _, idx := range h.local {
		errs = append(errs, idx.Close())
	}
	return errors.Join(errs...)
}

// ProvideSearch provides the per-locale search merger for the configured backend.
func ProvideSearch(i do.Injector) (*SearchHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	collections := do.MustInvoke[*store.Collections](i)

	names := map[string]string{
		domain.LocaleEN: cfg.Search.IndexEN,
		domain.LocaleES: cfg.Search.IndexES,
	}
	handle := &SearchHandle{}
	indices := make(map[string]search.Index, len(names))

	switch cfg.Search.Backend {
	case "local":
		for locale, name := range names {
			idx, err := search.OpenLocal(search.LocalOptions{
				DataPath: cfg.Search.LocalPath,
				Name:     name,
				Logger:   log,
			})
			if err != nil {
				_ = handle.Shutdown()
				return nil, fmt.Errorf("open local index %s: %w", name, err)
			}
			count, _ := idx.Count()
			log.Info("Local search index opened", "locale", locale, "index", name, "documents", count)
			handle.local = append(handle.local, idx)
			indices[locale] = idx
		}
	default:
		fetcher := do.MustInvoke[*fetch.Client](i)
		for locale, name := range names {
			indices[locale] = search.NewAlgoliaIndex(search.AlgoliaOptions{
				AppID:     cfg.Search.AppID,
				Host:      cfg.Search.Host,
				BrowseKey: cfg.Search.AdminKey,
				SearchKey: cfg.Search.SearchKey,
				Index:     name,
				Fetcher:   fetcher,
			})
		}
		log.Info("Hosted search indices configured", "app_id", cfg.Search.AppID, "en", names[domain.LocaleEN], "es", names[domain.LocaleES])
	}

	handle.Merger = search.NewMerger(indices, collections, log)
	return handle, nil
}
