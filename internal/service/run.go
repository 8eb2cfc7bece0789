// Package service orchestrates one sourcing run from credential exchange to the resolved graph.
package service

import (
	"cmp"
	"net/http"
	"slices"
	"sync"
	"time"

	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/graph"
	"github.com/prospectus/catalog-source/internal/logger"
)

// Diagnostic records a per-entity enrichment failure that did not abort the run.
type Diagnostic struct {
	Code    domainerrors.Code `json:"code"`
	Entity  string            `json:"entity"`
	Key     string            `json:"key"`
	Message string            `json:"message"`
}

// Diagnostics collects diagnostics from concurrent stages.
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
	log   *logger.Logger
}

// Add records err against an entity and logs it.
func (d *Diagnostics) Add(entity, key string, err error) {
	diag := Diagnostic{Code: domainerrors.CodeOf(err), Entity: entity, Key: key, Message: err.Error()}
	d.log.Warn("diagnostic recorded", "code", diag.Code, "entity", entity, "key", key, "error", err)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, diag)
}

// List returns the diagnostics ordered by entity, key and code.
func (d *Diagnostics) List() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := slices.Clone(d.items)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(cmp.Compare(a.Entity, b.Entity), cmp.Compare(a.Key, b.Key), cmp.Compare(a.Code, b.Code))
	})
	if out == nil {
		out = []Diagnostic{}
	}
	return out
}

// RunContext is the state of one run. Nothing outlives it.
type RunContext struct {
	ID          string
	StartedAt   time.Time
	Header      http.Header
	Diagnostics *Diagnostics
	Logger      *logger.Logger
}

// Result is a finished run.
type Result struct {
	RunID       string        `json:"runId"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Graph       *graph.Graph  `json:"-"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}
