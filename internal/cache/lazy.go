package cache

import (
	"context"
	"sync"
	"time"
)

type lazyEntry[V any] struct {
	call     *Call[V]
	ready    bool
	storedAt time.Time
}

// Lazy runs no background work: an entry is stale once a read observes
// now > storedAt+ttl. Suited to request-scoped caches.
type Lazy[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*lazyEntry[V]
	fetch   Fetcher[K, V]
	ttl     time.Duration
	now     func() time.Time
}

// NewLazy creates a lazily expiring cache. WithResetOnLookup is ignored.
func NewLazy[K comparable, V any](ttl time.Duration, fetch Fetcher[K, V], opts ...Option) *Lazy[K, V] {
	o := buildOptions(opts)
	return &Lazy[K, V]{
		entries: make(map[K]*lazyEntry[V]),
		fetch:   fetch,
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the cached value for key or joins/starts its fetch.
func (l *Lazy[K, V]) Get(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	if e, ok := l.entries[key]; ok {
		if !e.ready {
			l.mu.Unlock()
			return e.call.Wait(ctx)
		}
		if l.ttl > 0 && !l.now().After(e.storedAt.Add(l.ttl)) {
			l.mu.Unlock()
			return e.call.Result()
		}
		delete(l.entries, key)
	}

	e := &lazyEntry[V]{call: newCall[V]()}
	l.entries[key] = e
	l.mu.Unlock()

	go l.load(context.WithoutCancel(ctx), key, e)

	return e.call.Wait(ctx)
}

func (l *Lazy[K, V]) load(ctx context.Context, key K, e *lazyEntry[V]) {
	v, err := l.fetch(ctx, key)

	l.mu.Lock()
	if l.entries[key] == e {
		if err != nil {
			delete(l.entries, key)
		} else {
			e.ready = true
			e.storedAt = l.now()
		}
	}
	l.mu.Unlock()

	e.call.settle(v, err)
}

// Invalidate drops key so the next read fetches.
func (l *Lazy[K, V]) Invalidate(key K) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Len returns the number of entries, stale ones included.
func (l *Lazy[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
