package providers

import (
	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/ratelimit"
	"github.com/prospectus/catalog-source/internal/service"
	"github.com/prospectus/catalog-source/internal/store"
)

// ProvideSourcingService provides the sourcing pipeline.
func ProvideSourcingService(i do.Injector) (*service.SourcingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	searchHandle := do.MustInvoke[*SearchHandle](i)

	return service.NewSourcingService(service.Options{
		Settings:    service.SettingsFromConfig(cfg),
		Fetcher:     do.MustInvoke[*fetch.Client](i),
		Limiters:    do.MustInvoke[*ratelimit.Registry](i),
		Collections: do.MustInvoke[*store.Collections](i),
		Search:      searchHandle.Merger,
		Params:      cfg.Options,
		Logger:      log,
	}), nil
}
