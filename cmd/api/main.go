// Package main serves the resolved catalog graph over HTTP, sourcing it once at startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/di"
	"github.com/prospectus/catalog-source/internal/di/providers"
	"github.com/prospectus/catalog-source/internal/logger"
)

func main() {
	injector := di.NewContainer(os.Args[1:])

	if err := di.Serve(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	ctx, cancel := context.WithCancel(context.Background())
	providers.RunSourcingInBackground(ctx, injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")
	cancel()

	// Handles implementing do.Shutdownable are closed in reverse dependency order.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}
