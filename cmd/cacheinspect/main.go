// Package main prints the collections held in a collection cache directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/prospectus/catalog-source/internal/store"
)

func main() {
	dbPath := flag.String("path", os.Getenv("CACHE_PATH"), "Collection cache directory")
	show := flag.String("show", "", "Print the first items of this collection")
	limit := flag.Int("limit", 3, "Number of items printed with -show")
	remove := flag.String("delete", "", "Remove this collection so the next run refetches it")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("no cache directory: set -path or CACHE_PATH")
	}

	if *remove != "" {
		if err := deleteCollection(*dbPath, *remove); err != nil {
			log.Fatalf("Failed to delete %s: %v", *remove, err)
		}
		fmt.Printf("Deleted %s\n", *remove)
		return
	}

	db, err := store.OpenReadOnly(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer db.Close()

	entries, err := db.Entries()
	if err != nil {
		log.Fatalf("Error listing collections: %v", err)
	}

	fmt.Println("=== Collection Cache ===")
	fmt.Println()
	var total int64
	for _, e := range entries {
		raw, err := db.Raw(e.Name)
		if err != nil {
			log.Printf("Error reading %s: %v", e.Name, err)
			continue
		}
		fmt.Printf("%-24s %10d bytes  %s\n", e.Name, e.Size, describe(raw))
		total += e.Size
	}
	fmt.Println()
	fmt.Printf("Collections: %d\n", len(entries))
	fmt.Printf("Total size: %d bytes\n", total)

	if *show == "" {
		return
	}
	raw, err := db.Raw(*show)
	if err != nil {
		log.Fatalf("Collection %s: %v", *show, err)
	}
	fmt.Println()
	fmt.Printf("=== %s ===\n", *show)
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		fmt.Println(string(raw))
		return
	}
	for i, item := range items {
		if i == *limit {
			fmt.Printf("... and %d more\n", len(items)-*limit)
			break
		}
		var pretty map[string]any
		if err := json.Unmarshal(item, &pretty); err != nil {
			fmt.Println(string(item))
			continue
		}
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
	}
}

// describe summarizes a stored value: item count for arrays, key count for objects.
func describe(raw []byte) string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return fmt.Sprintf("%d items", len(items))
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return fmt.Sprintf("%d keys", len(obj))
	}
	return "opaque"
}

// deleteCollection opens the cache for writing and removes name.
func deleteCollection(path, name string) error {
	db, err := store.New(path, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Delete(context.Background(), name)
}
