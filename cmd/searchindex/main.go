// Package main fills a local search index, either from an index export file or by
// mirroring the hosted index, so sourcing can run with SEARCH_BACKEND=local.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/search"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	path := flag.String("path", os.Getenv("SEARCH_PATH"), "Local index directory")
	name := flag.String("index", cmp.Or(os.Getenv("SEARCH_INDEX_EN"), "product"), "Index name")
	file := flag.String("file", "", "JSON export of index objects; empty mirrors the hosted index")
	appID := flag.String("app-id", os.Getenv("ALGOLIA_APP_ID"), "Hosted search application id")
	host := flag.String("host", os.Getenv("ALGOLIA_HOST"), "Hosted search host override")
	key := flag.String("key", os.Getenv("ALGOLIA_ADMIN_KEY"), "Hosted search key with browse permission")
	flag.Parse()

	log := logger.New(logger.Config{Level: logger.ParseLevel(cmp.Or(os.Getenv("LOG_LEVEL"), "info"))})
	if *path == "" {
		log.Error("No index directory: set -path or SEARCH_PATH")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, err := search.OpenLocal(search.LocalOptions{DataPath: *path, Name: *name, Logger: log})
	if err != nil {
		log.Error("Failed to open local index", "error", err)
		return 1
	}
	defer idx.Close()

	var added int
	if *file != "" {
		added, err = importFile(idx, *file)
	} else {
		src := search.NewAlgoliaIndex(search.AlgoliaOptions{
			AppID:     *appID,
			Host:      *host,
			BrowseKey: *key,
			Index:     *name,
			Fetcher:   fetch.New(fetch.Options{Logger: log.Component("fetch")}),
		})
		added, err = search.Mirror(ctx, src, idx)
	}
	if err != nil {
		log.Error("Indexing failed", "index", *name, "added", added, "error", err)
		return 1
	}

	count, _ := idx.Count()
	log.Info("Local index ready", "index", *name, "added", added, "documents", count)
	return 0
}

func importFile(idx *search.LocalIndex, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	hits, err := search.ReadHits(f)
	if err != nil {
		return 0, err
	}
	if err := idx.IndexHits(hits); err != nil {
		return 0, err
	}
	return len(hits), nil
}
