// Package providers contains dependency injection providers for the catalog sourcing binaries.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/logger"
)

// ConfigProvider returns a provider that loads configuration from args.
func ConfigProvider(args []string) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		return config.LoadConfig(args)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.IsDevelopment(),
		Environment: cfg.App.Environment,
	})

	log.Info("Starting catalog source",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"discovery", cfg.Discovery.BaseURL(),
		"search_backend", cfg.Search.Backend,
		"limited", cfg.Source.Limited,
		"snapshots", cfg.Source.UseSnapshots,
	)

	return log, nil
}
