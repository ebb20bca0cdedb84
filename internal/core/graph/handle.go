package graph

import (
	"github.com/arborlabs/arbor/internal/core/ident"
	"github.com/arborlabs/arbor/internal/core/registry"
)

// NodeHandle is a weak reference to a node. It carries only the node's ID;
// every resolution re-validates against the object registry, so a handle to
// a destroyed node simply stops resolving instead of dangling.
type NodeHandle struct {
	ID ident.ID
}

// NullNodeHandle is the zero handle. It never resolves.
var NullNodeHandle NodeHandle

// IsNull reports whether the handle carries no ID.
func (h NodeHandle) IsNull() bool {
	return h.ID.IsNil()
}

func (h NodeHandle) String() string {
	if h.IsNull() {
		return "node(null)"
	}
	return "node(" + h.ID.String() + ")"
}

// Handle is a weak typed reference to a component of type T.
type Handle[T any] struct {
	ID ident.ID
}

// IsNull reports whether the handle carries no ID.
func (h Handle[T]) IsNull() bool {
	return h.ID.IsNil()
}

// ResolveNode resolves a node handle against the registry. Returns nil when
// the handle is null, the ID is unknown, or the entry is not a node.
func ResolveNode(r *registry.Registry, h NodeHandle) Node {
	ptr, ok := r.Resolve(h.ID, registry.KindNode)
	if !ok {
		return nil
	}
	n, ok := ptr.(Node)
	if !ok {
		return nil
	}
	return n
}

// ResolveComponent resolves a typed component handle against the registry.
// Both the kind and the registered type must match.
func ResolveComponent[T any](r *registry.Registry, h Handle[T]) *T {
	ptr, ok := r.ResolveTyped(h.ID, registry.KindComponent, ident.TypeIDOf[T]())
	if !ok {
		return nil
	}
	c, ok := ptr.(*T)
	if !ok {
		return nil
	}
	return c
}
