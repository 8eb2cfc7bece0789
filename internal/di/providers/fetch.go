package providers

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/ratelimit"
	"github.com/prospectus/catalog-source/internal/snapshot"
)

// ProvideSnapshots provides the response snapshot store.
func ProvideSnapshots(i do.Injector) (*snapshot.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Source.UseSnapshots {
		log.Info("Snapshot replay enabled", "dir", cfg.Source.SnapshotDir)
	}
	return snapshot.New(cfg.Source.SnapshotDir, cfg.Source.UseSnapshots), nil
}

// ProvideFetcher provides the retrying HTTP client shared by every upstream.
func ProvideFetcher(i do.Injector) (*fetch.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	snapshots := do.MustInvoke[*snapshot.Store](i)

	return fetch.New(fetch.Options{
		HTTPClient: &http.Client{Timeout: cfg.Source.Timeout},
		Snapshots:  snapshots,
		Retry: fetch.RetryPolicy{
			MaxAttempts: cfg.Source.MaxAttempts,
			MinWait:     cfg.Source.MinWait,
			MaxWait:     cfg.Source.MaxWait,
		},
		Logger: log.Component("fetch"),
	}), nil
}

// ProvideLimiters provides the per-upstream limiter registry.
func ProvideLimiters(_ do.Injector) (*ratelimit.Registry, error) {
	return ratelimit.NewRegistry(ratelimit.DefaultSettings, ratelimit.Settings{}), nil
}
