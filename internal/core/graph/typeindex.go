package graph

import (
	"sync"

	"github.com/arborlabs/arbor/internal/core/ident"
)

const maskWordBits = 64

// componentTypeRegistry assigns dense, append-only indices to component
// types. Indices back the per-node component bitmasks; the version bumps on
// every new type so stale masks can be detected and resized.
type componentTypeRegistry struct {
	mu      sync.Mutex
	indices map[ident.TypeID]int
	version uint32
}

var componentTypes = componentTypeRegistry{indices: make(map[ident.TypeID]int)}

// TypeIndex returns the dense index for a component type, assigning the next
// index on first sight. Indices are never reused or compacted.
func TypeIndex(t ident.TypeID) int {
	componentTypes.mu.Lock()
	defer componentTypes.mu.Unlock()
	if idx, ok := componentTypes.indices[t]; ok {
		return idx
	}
	idx := len(componentTypes.indices)
	componentTypes.indices[t] = idx
	componentTypes.version++
	return idx
}

// LookupTypeIndex returns the dense index for a component type without
// assigning one.
func LookupTypeIndex(t ident.TypeID) (int, bool) {
	componentTypes.mu.Lock()
	defer componentTypes.mu.Unlock()
	idx, ok := componentTypes.indices[t]
	return idx, ok
}

// TypeRegistryVersion returns the current registry version. It increases
// monotonically each time a new component type is assigned an index.
func TypeRegistryVersion() uint32 {
	componentTypes.mu.Lock()
	defer componentTypes.mu.Unlock()
	return componentTypes.version
}

// MaskWordCount returns the number of 64-bit words a component mask needs to
// cover every index assigned so far.
func MaskWordCount() int {
	componentTypes.mu.Lock()
	defer componentTypes.mu.Unlock()
	return (len(componentTypes.indices) + maskWordBits - 1) / maskWordBits
}
