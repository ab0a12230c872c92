package cache

import (
	"context"
	"sync"
	"time"
)

// Fetcher loads the value for a key on a miss.
type Fetcher[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Option configures a cache.
type Option func(*options)

type options struct {
	resetOnLookup bool
	now           func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithResetOnLookup makes every hit push the expiry out by a full ttl.
func WithResetOnLookup() Option {
	return func(o *options) { o.resetOnLookup = true }
}

// WithClock overrides the wall clock used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type timedEntry[V any] struct {
	call      *Call[V]
	ready     bool
	expiresAt time.Time
	timer     *time.Timer
}

// Cache evicts entries eagerly: each entry owns a timer that deletes it when
// its ttl elapses.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*timedEntry[V]
	fetch   Fetcher[K, V]
	ttl     time.Duration
	opts    options
}

// NewCache creates a timer-evicted cache. A ttl of zero caches nothing
// beyond the in-flight call.
func NewCache[K comparable, V any](ttl time.Duration, fetch Fetcher[K, V], opts ...Option) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*timedEntry[V]),
		fetch:   fetch,
		ttl:     ttl,
		opts:    buildOptions(opts),
	}
}

// Get returns the cached value for key or joins/starts its fetch.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if e.ready {
			if c.opts.resetOnLookup {
				e.expiresAt = c.opts.now().Add(c.ttl)
				e.timer.Reset(c.ttl)
			}
			c.mu.Unlock()
			return e.call.Result()
		}
		c.mu.Unlock()
		return e.call.Wait(ctx)
	}

	e := &timedEntry[V]{call: newCall[V]()}
	c.entries[key] = e
	c.mu.Unlock()

	go c.load(context.WithoutCancel(ctx), key, e)

	return e.call.Wait(ctx)
}

func (c *Cache[K, V]) load(ctx context.Context, key K, e *timedEntry[V]) {
	v, err := c.fetch(ctx, key)

	c.mu.Lock()
	switch {
	case c.entries[key] != e:
		// replaced or cleared while fetching
	case err != nil || c.ttl <= 0:
		delete(c.entries, key)
	default:
		e.ready = true
		e.expiresAt = c.opts.now().Add(c.ttl)
		e.timer = time.AfterFunc(c.ttl, func() { c.expire(key, e) })
	}
	c.mu.Unlock()

	e.call.settle(v, err)
}

func (c *Cache[K, V]) expire(key K, e *timedEntry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[key] != e {
		return
	}
	// A lookup may have extended the entry after the timer fired.
	if remaining := e.expiresAt.Sub(c.opts.now()); remaining > 0 {
		e.timer.Reset(remaining)
		return
	}
	delete(c.entries, key)
}

// Set stores a resolved value, replacing any entry for key.
func (c *Cache[K, V]) Set(key K, v V) {
	e := &timedEntry[V]{call: newCall[V](), ready: true}
	e.call.settle(v, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked(key)
	if c.ttl <= 0 {
		return
	}
	e.expiresAt = c.opts.now().Add(c.ttl)
	e.timer = time.AfterFunc(c.ttl, func() { c.expire(key, e) })
	c.entries[key] = e
}

// Delete removes key and cancels its timer.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	c.dropLocked(key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) dropLocked(key K) {
	if old, ok := c.entries[key]; ok {
		if old.timer != nil {
			old.timer.Stop()
		}
		delete(c.entries, key)
	}
}

// Len returns the number of entries, including in-flight ones.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops every timer and drops all entries. In-flight fetches finish
// for their waiters but are not stored.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.dropLocked(key)
	}
}
