package providers

import (
	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the Badger-backed collection store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Source.CachePath, log.Component("store"))
	if err != nil {
		return nil, err
	}
	return &StoreHandle{Store: db}, nil
}

// ProvideCollections provides the memoizing collection cache.
func ProvideCollections(i do.Injector) (*store.Collections, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return store.NewCollections(storeHandle.Store, log.Component("collections")), nil
}
