package asset

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe registry of known assets and chains.
type Registry struct {
	byID    map[InternalAsset]*Asset
	byWire  map[ChainAsset]*Asset
	byIndex map[uint]*Asset
	chains  map[Chain]ChainInfo
	mu      sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[InternalAsset]*Asset),
		byWire:  make(map[ChainAsset]*Asset),
		byIndex: make(map[uint]*Asset),
		chains:  make(map[Chain]ChainInfo),
	}
}

// Register adds an asset. It panics on a duplicate id or bitmap index.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.id]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.id))
	}
	if other, exists := r.byIndex[a.index]; exists {
		panic(fmt.Sprintf("asset: bitmap index %d used by %s and %s", a.index, other.id, a.id))
	}

	r.byID[a.id] = a
	r.byWire[a.ChainAsset()] = a
	r.byIndex[a.index] = a
}

// RegisterChain adds or replaces chain timing information.
func (r *Registry) RegisterChain(c ChainInfo) {
	r.mu.Lock()
	r.chains[c.Chain] = c
	r.mu.Unlock()
}

// Get looks an asset up by internal id.
func (r *Registry) Get(id InternalAsset) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// MustGet is Get that panics on unknown ids.
func (r *Registry) MustGet(id InternalAsset) *Asset {
	a, ok := r.Get(id)
	if !ok {
		panic(fmt.Sprintf("asset: unknown asset %s", id))
	}
	return a
}

// Resolve looks an asset up by its wire identity.
func (r *Registry) Resolve(ca ChainAsset) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byWire[ca]
	return a, ok
}

// Chain returns timing information for c.
func (r *Registry) Chain(c Chain) (ChainInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.chains[c]
	return info, ok
}

// All returns every asset ordered by bitmap index.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].index < result[j].index })
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Bitmap is a set of assets keyed by their registry bitmap index.
type Bitmap uint64

// With returns the bitmap including a.
func (b Bitmap) With(a *Asset) Bitmap {
	return b | 1<<a.index
}

// Has reports whether a is in the set.
func (b Bitmap) Has(a *Asset) bool {
	return b&(1<<a.index) != 0
}

// Assets returns the members of b known to r, ordered by index.
func (r *Registry) Assets(b Bitmap) []*Asset {
	var out []*Asset
	for _, a := range r.All() {
		if b.Has(a) {
			out = append(out, a)
		}
	}
	return out
}
