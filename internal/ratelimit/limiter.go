// Package ratelimit spaces calls to external providers. Each provider
// gets its own limiter; a burst of one turns the token bucket into pure
// spacing at the configured calls per second.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval of 1/cps between calls.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing cps calls per second with no burst
// allowance. A non-positive cps disables limiting.
func New(cps float64) *Limiter {
	if cps <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(cps), 1)}
}

// Wait blocks until the next permitted instant or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Registry hands out one shared limiter per provider name.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	rates    map[string]float64
}

// NewRegistry creates a registry with per-provider rates in calls per
// second. Unknown providers default to 1 cps.
func NewRegistry(rates map[string]float64) *Registry {
	if rates == nil {
		rates = map[string]float64{}
	}
	return &Registry{
		limiters: map[string]*Limiter{},
		rates:    rates,
	}
}

// Get returns the limiter for a provider, creating it on first use.
func (r *Registry) Get(provider string) *Limiter {
	r.mu.RLock()
	l, ok := r.limiters[provider]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[provider]; ok {
		return l
	}
	cps, ok := r.rates[provider]
	if !ok {
		cps = 1
	}
	l = New(cps)
	r.limiters[provider] = l
	return l
}
