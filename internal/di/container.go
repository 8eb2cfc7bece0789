// Package di provides dependency injection configuration for the catalog sourcing binaries.
package di

import (
	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/di/providers"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/ratelimit"
	"github.com/prospectus/catalog-source/internal/service"
	"github.com/prospectus/catalog-source/internal/snapshot"
	"github.com/prospectus/catalog-source/internal/store"
)

// NewContainer creates the DI container. args are the command-line flags.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ConfigProvider(args))
	do.Provide(injector, providers.ProvideLogger)

	// Cache
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCollections)

	// Upstream access
	do.Provide(injector, providers.ProvideSnapshots)
	do.Provide(injector, providers.ProvideFetcher)
	do.Provide(injector, providers.ProvideLimiters)
	do.Provide(injector, providers.ProvideSearch)

	// Pipeline
	do.Provide(injector, providers.ProvideSourcingService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the sourcing pipeline and everything it depends on.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*store.Collections](injector)
	_ = do.MustInvoke[*snapshot.Store](injector)
	_ = do.MustInvoke[*fetch.Client](injector)
	_ = do.MustInvoke[*ratelimit.Registry](injector)
	if _, err := do.Invoke[*providers.SearchHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.SourcingService](injector)
	return nil
}

// Serve bootstraps the pipeline and starts the read API.
func Serve(injector *do.RootScope) error {
	if err := Bootstrap(injector); err != nil {
		return err
	}
	_, err := do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}
