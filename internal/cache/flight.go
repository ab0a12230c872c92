// Package cache provides single-flight, time-bounded memoization.
//
// Every cache in this package keeps an explicit table of in-flight calls:
// concurrent readers of the same key share one Call, a failed call is evicted
// instead of cached, and completion fans out to every waiter.
package cache

import (
	"context"
	"sync"
)

// Call is the handle of one in-flight or completed unit of work.
type Call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func newCall[V any]() *Call[V] {
	return &Call[V]{done: make(chan struct{})}
}

// Done is closed once the call has a result.
func (c *Call[V]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes or ctx ends. Abandoning a wait never
// cancels the shared work.
func (c *Call[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Result returns the outcome of a completed call. It must only be used
// after Done is closed.
func (c *Call[V]) Result() (V, error) {
	return c.val, c.err
}

func (c *Call[V]) settle(v V, err error) {
	c.val, c.err = v, err
	close(c.done)
}

// Group deduplicates concurrent work per key without retaining results:
// the key is released as soon as its call completes.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*Call[V]
}

// Do returns the in-flight call for key, starting fn when there is none.
// started reports whether this invocation launched fn.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (call *Call[V], started bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*Call[V])
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		return c, false
	}
	c := newCall[V]()
	g.calls[key] = c
	g.mu.Unlock()

	go func() {
		v, err := fn()
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		c.settle(v, err)
	}()
	return c, true
}
