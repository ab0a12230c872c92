// Package ratelimit provides request admission primitives: a fixed-window
// counter for caller quotas and token buckets (golang.org/x/time/rate) for
// pacing message streams.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with convenience methods.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a token bucket refilled at requestsPerSecond with the given burst.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}

type keyedEntry struct {
	limiter *Limiter
	lastHit time.Time
}

// KeyedLimiter hands out one token bucket per key and forgets keys that
// have been idle for longer than idleAfter.
type KeyedLimiter struct {
	rps       float64
	burst     int
	idleAfter time.Duration

	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyed creates a per-key token bucket set.
func NewKeyed(requestsPerSecond float64, burst int, idleAfter time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		rps:       requestsPerSecond,
		burst:     burst,
		idleAfter: idleAfter,
		entries:   make(map[string]*keyedEntry),
	}
}

// Allow consumes a token from key's bucket.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{limiter: New(k.rps, k.burst)}
		k.entries[key] = e
	}
	e.lastHit = time.Now()
	k.mu.Unlock()

	return e.limiter.Allow()
}

// Forget drops key's bucket.
func (k *KeyedLimiter) Forget(key string) {
	k.mu.Lock()
	delete(k.entries, key)
	k.mu.Unlock()
}

// Sweep drops buckets idle for longer than idleAfter and returns how many
// were removed.
func (k *KeyedLimiter) Sweep() int {
	cutoff := time.Now().Add(-k.idleAfter)

	k.mu.Lock()
	defer k.mu.Unlock()

	removed := 0
	for key, e := range k.entries {
		if e.lastHit.Before(cutoff) {
			delete(k.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
