package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/api"
	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the read API server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sourcing := do.MustInvoke[*service.SourcingService](i)

	handler := api.NewServer(api.Options{
		Source:         sourcing,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}

// RunSourcingInBackground starts one sourcing run and logs its outcome.
// The API answers 404 until the run completes.
func RunSourcingInBackground(ctx context.Context, i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	sourcing := do.MustInvoke[*service.SourcingService](i)

	go func() {
		res, err := sourcing.Run(ctx)
		if err != nil {
			log.Error("Background sourcing run failed", "error", err)
			return
		}
		log.Info("Background sourcing run completed",
			"run_id", res.RunID,
			"nodes", res.Graph.Len(),
			"diagnostics", len(res.Diagnostics),
			"duration", res.Duration,
		)
	}()
}
