package version

import (
	"fmt"
	"sort"
	"sync"
)

// Variant is one version-gated implementation, valid from Since onwards
// until a later variant takes over.
type Variant[T any] struct {
	Since Semver
	Value T
}

type resolveKey struct {
	name    string
	version Semver
}

// Table maps a name and a version to the variant in force for that
// version. Resolutions are cached per (name, version).
type Table[T any] struct {
	mu       sync.RWMutex
	variants map[string][]Variant[T] // sorted by Since, descending
	resolved map[resolveKey]T
}

// NewTable creates an empty dispatch table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		variants: make(map[string][]Variant[T]),
		resolved: make(map[resolveKey]T),
	}
}

// Register sets the variants for name, replacing previous ones.
func (t *Table[T]) Register(name string, variants ...Variant[T]) {
	sorted := append([]Variant[T](nil), variants...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Since.Compare(sorted[j].Since) > 0
	})

	t.mu.Lock()
	defer t.mu.Unlock()

	t.variants[name] = sorted
	for k := range t.resolved {
		if k.name == name {
			delete(t.resolved, k)
		}
	}
}

// Resolve returns the newest variant of name whose Since is not above v.
func (t *Table[T]) Resolve(name string, v Semver) (T, error) {
	key := resolveKey{name: name, version: v}

	t.mu.RLock()
	val, ok := t.resolved[key]
	t.mu.RUnlock()
	if ok {
		return val, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if val, ok := t.resolved[key]; ok {
		return val, nil
	}

	var zero T
	variants, ok := t.variants[name]
	if !ok {
		return zero, fmt.Errorf("version: no variants registered for %q", name)
	}
	for _, variant := range variants {
		if v.AtLeast(variant.Since) {
			t.resolved[key] = variant.Value
			return variant.Value, nil
		}
	}
	return zero, fmt.Errorf("version: %q has no variant for %s", name, v)
}

// Cached returns the number of cached resolutions.
func (t *Table[T]) Cached() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.resolved)
}
