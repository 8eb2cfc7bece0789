// Package snapshot records upstream responses on disk keyed by a hash of the
// request URL and replays them on later runs. Entries are never expired or rewritten.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Sentinel errors for snapshot operations.
var (
	ErrNotFound  = errors.New("snapshot: not found")
	ErrCollision = errors.New("snapshot: hash collision")
)

const fileExt = ".json"

// Entry is one captured response.
type Entry struct {
	URL    string          `json:"url"`
	Header http.Header     `json:"headers"`
	Data   json.RawMessage `json:"data"`
}

// Store is a directory of snapshot entries.
// A disabled store reports every URL as missing and drops saves.
type Store struct {
	dir     string
	enabled bool

	loadOnce sync.Once
	loadErr  error

	mu    sync.RWMutex
	index map[string]struct{} // file names present on disk
}

// New creates a store rooted at dir. Nothing is read until first use.
func New(dir string, enabled bool) *Store {
	return &Store{dir: dir, enabled: enabled}
}

// Disabled returns a store that never hits.
func Disabled() *Store {
	return &Store{}
}

// Enabled reports whether snapshot replay is on.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

// FileName returns the content address of url.
func FileName(url string) string {
	return fmt.Sprintf("%016x%s", xxhash.Sum64String(url), fileExt)
}

// Exists reports whether a response for url has been recorded.
func (s *Store) Exists(url string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	if err := s.loadIndex(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[FileName(url)]
	return ok, nil
}

// Load returns the recorded response for url.
func (s *Store) Load(url string) (*Entry, error) {
	ok, err := s.Exists(url)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, FileName(url))) //#nosec G304 -- name is a hash
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", FileName(url), err)
	}
	if e.URL != url {
		return nil, fmt.Errorf("%w: %s recorded for %q", ErrCollision, FileName(url), e.URL)
	}
	return &e, nil
}

// Save records the response for url. An existing entry is left untouched.
func (s *Store) Save(url string, e *Entry) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.loadIndex(); err != nil {
		return err
	}

	name := FileName(url)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; ok {
		return nil
	}

	rec := *e
	rec.URL = url
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.index[name] = struct{}{}
	return nil
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	if !s.Enabled() || s.loadIndex() != nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// loadIndex lists the directory once per process.
func (s *Store) loadIndex() error {
	s.loadOnce.Do(func() {
		index := make(map[string]struct{})
		entries, err := os.ReadDir(s.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.loadErr = fmt.Errorf("list snapshots: %w", err)
			return
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), fileExt) {
				index[e.Name()] = struct{}{}
			}
		}
		s.mu.Lock()
		s.index = index
		s.mu.Unlock()
	})
	return s.loadErr
}
