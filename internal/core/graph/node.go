package graph

import (
	"github.com/arborlabs/arbor/internal/core/ident"
)

// BaseNodeTypeName is the stable type name registered for plain base nodes.
const BaseNodeTypeName = "arbor.Node"

// Node is implemented by anything that lives in a graph hierarchy. Custom
// node types embed BaseNode and may override TypeName for a stable identity.
type Node interface {
	Base() *BaseNode
	TypeName() string
}

// NodeTicker is the optional variable-rate tick hook for node types.
type NodeTicker interface {
	Tick(dt float64)
}

// NodeFixedTicker is the optional fixed-timestep tick hook for node types.
type NodeFixedTicker interface {
	FixedTick(dt float64)
}

// NodeLateTicker is the optional late tick hook for node types.
type NodeLateTicker interface {
	LateTick(dt float64)
}

// BaseNode carries the hierarchy and component bookkeeping every node needs.
// Component type list, storage cache and mask bits are kept in lock-step;
// the mask is lazily resized when the component type registry grows.
type BaseNode struct {
	self       NodeHandle
	parent     NodeHandle
	children   []NodeHandle
	childCache []Node
	name       string
	active     bool
	replicated bool
	graph      *Graph

	componentTypes []ident.TypeID
	storageCache   []componentStore
	mask           []uint64
	maskVersion    uint32
}

// Base returns the node's embedded bookkeeping.
func (b *BaseNode) Base() *BaseNode { return b }

// TypeName returns the stable type name. Override in embedding types.
func (b *BaseNode) TypeName() string { return BaseNodeTypeName }

// Handle returns the node's self handle. Null until inserted into a graph.
func (b *BaseNode) Handle() NodeHandle { return b.self }

// Parent returns the parent handle, null for roots.
func (b *BaseNode) Parent() NodeHandle { return b.parent }

// Children returns the child handles in attach order. The returned slice is
// the node's own; callers must not mutate it.
func (b *BaseNode) Children() []NodeHandle { return b.children }

// Name returns the node's display name.
func (b *BaseNode) Name() string { return b.name }

// SetName changes the node's display name.
func (b *BaseNode) SetName(name string) { b.name = name }

// Active reports the node's own active flag. Effective activity also
// depends on ancestors and relevance; see Graph.IsNodeActive.
func (b *BaseNode) Active() bool { return b.active }

// SetActive toggles the node. An inactive node's whole subtree is skipped
// during traversal.
func (b *BaseNode) SetActive(active bool) { b.active = active }

// Replicated reports whether the node is flagged for replication.
func (b *BaseNode) Replicated() bool { return b.replicated }

// SetReplicated flags the node for replication.
func (b *BaseNode) SetReplicated(replicated bool) { b.replicated = replicated }

// Graph returns the owning graph, nil while detached.
func (b *BaseNode) Graph() *Graph { return b.graph }

// ensureMask resizes the component mask when the type registry has grown
// since the last sync. Existing bits are preserved.
func (b *BaseNode) ensureMask() {
	current := TypeRegistryVersion()
	if b.maskVersion == current && len(b.mask) >= MaskWordCount() {
		return
	}
	words := MaskWordCount()
	for len(b.mask) < words {
		b.mask = append(b.mask, 0)
	}
	b.maskVersion = current
}

// hasType tests the mask bit for a component type. Never assigns indices.
func (b *BaseNode) hasType(t ident.TypeID) bool {
	idx, ok := LookupTypeIndex(t)
	if !ok {
		return false
	}
	b.ensureMask()
	word, bit := idx/maskWordBits, uint(idx%maskWordBits)
	if word >= len(b.mask) {
		return false
	}
	return b.mask[word]&(1<<bit) != 0
}

// noteComponent records a component type on the node: mask bit, type list
// and storage cache move together.
func (b *BaseNode) noteComponent(t ident.TypeID, store componentStore) {
	b.ensureMask()
	idx := TypeIndex(t)
	word, bit := idx/maskWordBits, uint(idx%maskWordBits)
	for word >= len(b.mask) {
		b.mask = append(b.mask, 0)
	}
	b.mask[word] |= 1 << bit

	for _, existing := range b.componentTypes {
		if existing == t {
			return
		}
	}
	b.componentTypes = append(b.componentTypes, t)
	b.storageCache = append(b.storageCache, store)
}

// forgetComponent removes a component type from the node's bookkeeping.
func (b *BaseNode) forgetComponent(t ident.TypeID) {
	if idx, ok := LookupTypeIndex(t); ok {
		b.ensureMask()
		word, bit := idx/maskWordBits, uint(idx%maskWordBits)
		if word < len(b.mask) {
			b.mask[word] &^= 1 << bit
		}
	}
	for i, existing := range b.componentTypes {
		if existing == t {
			b.componentTypes = append(b.componentTypes[:i], b.componentTypes[i+1:]...)
			b.storageCache = append(b.storageCache[:i], b.storageCache[i+1:]...)
			return
		}
	}
}

// ComponentTypes returns the component types attached to the node, in
// attach order. The returned slice is the node's own; do not mutate.
func (b *BaseNode) ComponentTypes() []ident.TypeID { return b.componentTypes }

// NodeAddComponent attaches comp to n through its owning graph.
func NodeAddComponent[T any](n Node, comp *T) (Handle[T], error) {
	b := n.Base()
	if b.graph == nil {
		return Handle[T]{}, NewError(CodeNotReady, "node: not attached to a graph")
	}
	return AddComponent(b.graph, b.self, comp)
}

// NodeComponent returns n's component of type T through its owning graph.
func NodeComponent[T any](n Node) (*T, error) {
	b := n.Base()
	if b.graph == nil {
		return nil, NewError(CodeNotReady, "node: not attached to a graph")
	}
	return ComponentOf[T](b.graph, b.self)
}

// NodeHasComponent reports whether n has a component of type T.
func NodeHasComponent[T any](n Node) bool {
	b := n.Base()
	if b.graph == nil {
		return false
	}
	return HasComponent[T](b.graph, b.self)
}

// NodeRemoveComponent removes n's component of type T through its owning
// graph.
func NodeRemoveComponent[T any](n Node) error {
	b := n.Base()
	if b.graph == nil {
		return NewError(CodeNotReady, "node: not attached to a graph")
	}
	return RemoveComponent[T](b.graph, b.self)
}
