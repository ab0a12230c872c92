package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Keyed caches several independent upstream calls of different result types
// behind one object. Each name has its own fetcher and ttl.
type Keyed struct {
	mu      sync.RWMutex
	entries map[string]*Lazy[struct{}, any]
	opts    []Option
}

// NewKeyed creates an empty keyed cache. Options apply to every registration.
func NewKeyed(opts ...Option) *Keyed {
	return &Keyed{
		entries: make(map[string]*Lazy[struct{}, any]),
		opts:    opts,
	}
}

// Register adds or replaces the fetcher for name.
func Register[T any](k *Keyed, name string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) {
	l := NewLazy(ttl, func(ctx context.Context, _ struct{}) (any, error) {
		return fetch(ctx)
	}, k.opts...)

	k.mu.Lock()
	k.entries[name] = l
	k.mu.Unlock()
}

// Fetch reads name through its cache.
func Fetch[T any](ctx context.Context, k *Keyed, name string) (T, error) {
	var zero T

	k.mu.RLock()
	l, ok := k.entries[name]
	k.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("cache: no fetcher registered for %q", name)
	}

	v, err := l.Get(ctx, struct{}{})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %q holds %T, not %T", name, v, zero)
	}
	return t, nil
}

// Invalidate forces the next Fetch of name to call its fetcher.
func (k *Keyed) Invalidate(name string) {
	k.mu.RLock()
	l, ok := k.entries[name]
	k.mu.RUnlock()
	if ok {
		l.Invalidate(struct{}{})
	}
}

// Names lists the registered fetchers.
func (k *Keyed) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	names := make([]string, 0, len(k.entries))
	for name := range k.entries {
		names = append(names, name)
	}
	return names
}
