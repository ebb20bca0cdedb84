// Package registry implements the process-wide object registry mapping
// object IDs to live runtime objects. Handles resolve through it, so an
// entry exists exactly as long as the object is reachable by ID.
package registry

import (
	"sync"

	"github.com/arborlabs/arbor/internal/core/ident"
)

// Kind classifies a registered object.
type Kind uint8

const (
	KindNone Kind = iota
	KindNode
	KindComponent
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindComponent:
		return "component"
	case KindOther:
		return "other"
	default:
		return "none"
	}
}

// Entry is one registered object.
type Entry struct {
	Kind Kind
	Type ident.TypeID
	Ptr  any
}

// Registry maps object IDs to entries. All methods are safe for concurrent
// use. Registering an ID that is already present overwrites the old entry;
// the graph layer guarantees unique IDs so an overwrite indicates a caller
// bug upstream, not here.
type Registry struct {
	mu      sync.RWMutex
	entries map[ident.ID]Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[ident.ID]Entry)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the shared process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
	})
	return defaultReg
}

// Register inserts or replaces the entry for id. A nil id is always a caller
// bug and panics rather than poisoning the map.
func (r *Registry) Register(id ident.ID, kind Kind, typeID ident.TypeID, ptr any) {
	if id.IsNil() {
		panic("registry: register with nil id")
	}
	r.mu.Lock()
	r.entries[id] = Entry{Kind: kind, Type: typeID, Ptr: ptr}
	r.mu.Unlock()
}

// RegisterNode registers ptr as a node.
func (r *Registry) RegisterNode(id ident.ID, typeID ident.TypeID, ptr any) {
	r.Register(id, KindNode, typeID, ptr)
}

// RegisterComponent registers ptr as a component.
func (r *Registry) RegisterComponent(id ident.ID, typeID ident.TypeID, ptr any) {
	r.Register(id, KindComponent, typeID, ptr)
}

// RegisterOther registers ptr under the catch-all kind.
func (r *Registry) RegisterOther(id ident.ID, typeID ident.TypeID, ptr any) {
	r.Register(id, KindOther, typeID, ptr)
}

// Unregister removes the entry for id. Unknown and nil IDs are no-ops.
func (r *Registry) Unregister(id ident.ID) {
	if id.IsNil() {
		return
	}
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Lookup returns the entry for id, if present.
func (r *Registry) Lookup(id ident.ID) (Entry, bool) {
	if id.IsNil() {
		return Entry{}, false
	}
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	return e, ok
}

// Resolve returns the registered object when it exists and matches kind.
func (r *Registry) Resolve(id ident.ID, kind Kind) (any, bool) {
	e, ok := r.Lookup(id)
	if !ok || e.Kind != kind {
		return nil, false
	}
	return e.Ptr, true
}

// ResolveTyped additionally requires the registered type to match.
func (r *Registry) ResolveTyped(id ident.ID, kind Kind, typeID ident.TypeID) (any, bool) {
	e, ok := r.Lookup(id)
	if !ok || e.Kind != kind || e.Type != typeID {
		return nil, false
	}
	return e.Ptr, true
}

// IsValid reports whether id is registered with the given kind.
func (r *Registry) IsValid(id ident.ID, kind Kind) bool {
	_, ok := r.Resolve(id, kind)
	return ok
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.entries)
	r.mu.RUnlock()
	return n
}
