// Package main runs one sourcing pass and writes the resolved graph to a JSON file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/di"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	injector := di.NewContainer(os.Args[1:])
	defer func() { _ = injector.Shutdown() }()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		return 1
	}

	cfg := do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	sourcing := do.MustInvoke[*service.SourcingService](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := sourcing.Run(ctx)
	if err != nil {
		log.Error("Sourcing failed", "error", err)
		return 1
	}

	if err := service.WriteExportFile(cfg.Source.OutputPath, res, time.Now()); err != nil {
		log.Error("Failed to write export", "path", cfg.Source.OutputPath, "error", err)
		return 1
	}

	log.Info("Export written",
		"path", cfg.Source.OutputPath,
		"run_id", res.RunID,
		"nodes", res.Graph.Len(),
		"diagnostics", len(res.Diagnostics),
		"duration", res.Duration,
	)
	return 0
}
