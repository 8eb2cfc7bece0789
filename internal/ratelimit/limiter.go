// Package ratelimit bounds outbound work per upstream: a cap on concurrently
// running units plus a minimum spacing between successive starts.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Settings describe one upstream's policy.
type Settings struct {
	// MaxConcurrent caps units running at once. Zero or less means unlimited.
	MaxConcurrent int
	// MinTime is the minimum gap between two unit starts. Zero disables spacing.
	MinTime time.Duration
}

// Limiter schedules units of work under a Settings policy.
// The zero value is not usable; create with NewLimiter.
type Limiter struct {
	mu       sync.Mutex
	settings Settings
	running  int
	// wake is closed and replaced whenever a slot frees up or settings change.
	wake chan struct{}

	spacing *rate.Limiter
}

// NewLimiter creates a limiter with the given settings.
func NewLimiter(s Settings) *Limiter {
	return &Limiter{
		settings: s,
		wake:     make(chan struct{}),
		spacing:  rate.NewLimiter(spacingLimit(s.MinTime), 1),
	}
}

func spacingLimit(minTime time.Duration) rate.Limit {
	if minTime <= 0 {
		return rate.Inf
	}
	return rate.Every(minTime)
}

// Do runs fn once a slot is free and the start spacing allows it.
// It returns ctx.Err() if the context ends while waiting.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return fn(ctx)
}

// Schedule is Do for work that produces a value.
func Schedule[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := l.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// UpdateSettings changes this limiter's policy. Units already running are
// unaffected; waiting and future units see the new policy.
func (l *Limiter) UpdateSettings(s Settings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings = s
	l.spacing.SetLimit(spacingLimit(s.MinTime))
	l.broadcast()
}

// Settings returns the current policy.
func (l *Limiter) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// inFlight returns the number of units currently executing.
func (l *Limiter) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Limiter) acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.settings.MaxConcurrent <= 0 || l.running < l.settings.MaxConcurrent {
			l.running++
			l.mu.Unlock()
			break
		}
		wake := l.wake
		l.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := l.spacing.Wait(ctx); err != nil {
		l.release()
		return err
	}
	return nil
}

func (l *Limiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running--
	l.broadcast()
}

// broadcast wakes every waiter. Caller holds mu.
func (l *Limiter) broadcast() {
	close(l.wake)
	l.wake = make(chan struct{})
}
