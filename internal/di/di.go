// Package di provides a small lazy service container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves registered services by name.
type ServiceRegistry interface {
	Get(name string) any
}

// Container is a ServiceRegistry that accepts registrations.
type Container interface {
	ServiceRegistry
	// Register stores a ready value under name.
	Register(name string, value any)
	// RegisterFactory stores a factory invoked once on first Get.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	once    sync.Once
	factory func(ServiceRegistry) any
	value   any
}

type container struct {
	mu       sync.RWMutex
	services map[string]*entry
}

// NewContainer returns an empty container.
func NewContainer() Container {
	return &container{services: make(map[string]*entry)}
}

func (c *container) Register(name string, value any) {
	e := &entry{value: value}
	e.once.Do(func() {})

	c.mu.Lock()
	c.services[name] = e
	c.mu.Unlock()
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	c.services[name] = &entry{factory: factory}
	c.mu.Unlock()
}

// Get resolves a service, building it on first use. Unknown names panic:
// a missing registration is a wiring bug.
func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.services[name]
	c.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	e.once.Do(func() {
		e.value = e.factory(c)
	})
	return e.value
}

// Token names a service of type T.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key of the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory for token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves token from the registry.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	v := sr.Get(token.name)
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T", token.name, v))
	}
	return t
}
