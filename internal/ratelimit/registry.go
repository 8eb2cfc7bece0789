package ratelimit

import (
	"sync"
	"time"
)

// Upstream names.
const (
	Discovery = "discovery"
	Ecommerce = "ecommerce"
)

// DefaultSettings are the per-upstream policies used by the sourcing pipeline.
var DefaultSettings = map[string]Settings{
	Discovery: {MaxConcurrent: 3, MinTime: 200 * time.Millisecond},
	Ecommerce: {MaxConcurrent: 3, MinTime: 300 * time.Millisecond},
}

// Registry hands out one independent Limiter per upstream key.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	settings map[string]Settings
	fallback Settings
}

// NewRegistry creates a registry. Keys missing from settings get fallback.
func NewRegistry(settings map[string]Settings, fallback Settings) *Registry {
	copied := make(map[string]Settings, len(settings))
	for k, v := range settings {
		copied[k] = v
	}
	return &Registry{
		limiters: make(map[string]*Limiter),
		settings: copied,
		fallback: fallback,
	}
}

// Get returns the limiter for key, creating it on first use.
func (r *Registry) Get(key string) *Limiter {
	r.mu.RLock()
	l, ok := r.limiters[key]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok = r.limiters[key]; ok {
		return l
	}

	s, ok := r.settings[key]
	if !ok {
		s = r.fallback
	}
	l = NewLimiter(s)
	r.limiters[key] = l
	return l
}
