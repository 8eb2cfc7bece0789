// Package store persists named collections in Badger so later pipeline
// stages and later runs can reuse them without refetching.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/prospectus/catalog-source/internal/logger"
)

const collectionPrefix = "collection:"

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *logger.Logger
}

// New opens the Badger database at path. An empty path keeps everything in
// memory for the life of the process.
func New(path string, log *logger.Logger) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	s := &Store{db: db, logger: log}
	s.logger.Info("collection cache opened", "path", path, "in_memory", path == "")
	return s, nil
}

// OpenReadOnly opens an existing database for inspection.
func OpenReadOnly(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithReadOnly(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Store{db: db, logger: logger.Discard()}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing collection cache")
	return s.db.Close()
}

// Get decodes the value stored under name into dest.
// It reports false when nothing is stored.
func (s *Store) Get(_ context.Context, name string, dest any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(collectionPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", name, err)
	}
	return true, nil
}

// Set stores value under name, replacing any previous value.
func (s *Store) Set(_ context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(collectionPrefix+name), data)
	})
}

// Delete removes name. Missing names are not an error.
func (s *Store) Delete(_ context.Context, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(collectionPrefix + name))
	})
}

// Entry describes one stored collection.
type Entry struct {
	Name string
	Size int64
}

// Entries lists stored collections in key order.
func (s *Store) Entries() ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(collectionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			out = append(out, Entry{
				Name: string(item.Key()[len(collectionPrefix):]),
				Size: item.ValueSize(),
			})
		}
		return nil
	})
	return out, err
}

// Raw returns the stored bytes for name.
func (s *Store) Raw(name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(collectionPrefix + name))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}
