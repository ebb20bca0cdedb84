package graph

import (
	"go.uber.org/zap"

	"github.com/arborlabs/arbor/internal/core/ident"
	"github.com/arborlabs/arbor/internal/core/observability/log"
	"github.com/arborlabs/arbor/internal/core/registry"
)

// GraphEventKind identifies a structural change in a graph.
type GraphEventKind uint8

const (
	EventNodeCreated GraphEventKind = iota + 1
	EventNodeDestroyed
	EventChildAttached
	EventChildDetached
	EventComponentAdded
	EventComponentRemoved
)

func (k GraphEventKind) String() string {
	switch k {
	case EventNodeCreated:
		return "node.created"
	case EventNodeDestroyed:
		return "node.destroyed"
	case EventChildAttached:
		return "child.attached"
	case EventChildDetached:
		return "child.detached"
	case EventComponentAdded:
		return "component.added"
	case EventComponentRemoved:
		return "component.removed"
	default:
		return "unknown"
	}
}

// GraphEvent describes one structural change. Parent is set for attach and
// detach events, Component for component events.
type GraphEvent struct {
	Kind      GraphEventKind
	Node      NodeHandle
	Parent    NodeHandle
	Component ident.TypeID
}

type tickPhase uint8

const (
	phaseTick tickPhase = iota
	phaseFixedTick
	phaseLateTick
)

// Graph owns a node hierarchy and the per-type component storages behind
// it. Tick, EndFrame and structural mutation are expected to run from one
// owning goroutine per frame; the underlying pools, storages and registry
// remain individually lock-safe for foreign-thread reads.
type Graph struct {
	name string
	reg  *registry.Registry
	log  *log.Logger

	nodes    *Pool[Node]
	storages map[ident.TypeID]componentStore

	roots          []NodeHandle
	pendingDestroy []NodeHandle

	relevanceBudget int
	relevanceCursor int

	observer func(GraphEvent)
}

// Option configures a graph at construction.
type Option func(*Graph)

// WithRegistry uses a private registry instead of the process default.
func WithRegistry(r *registry.Registry) Option {
	return func(g *Graph) { g.reg = r }
}

// WithLogger overrides the graph's logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) { g.log = l }
}

// WithRelevanceBudget caps how many relevance policies are evaluated per
// Tick. Zero means evaluate all of them every frame.
func WithRelevanceBudget(n int) Option {
	return func(g *Graph) { g.relevanceBudget = n }
}

// WithObserver registers a callback for structural changes. The callback
// runs synchronously on the mutating goroutine and must be fast.
func WithObserver(fn func(GraphEvent)) Option {
	return func(g *Graph) { g.observer = fn }
}

// New returns an empty graph.
func New(name string, opts ...Option) *Graph {
	g := &Graph{
		name:     name,
		nodes:    NewPool[Node](),
		storages: make(map[ident.TypeID]componentStore),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.reg == nil {
		g.reg = registry.Default()
	}
	if g.log == nil {
		g.log = log.Provide()
	}
	return g
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Registry returns the registry this graph registers objects with.
func (g *Graph) Registry() *registry.Registry { return g.reg }

func (g *Graph) emit(ev GraphEvent) {
	if g.observer != nil {
		g.observer(ev)
	}
}

// CreateNode creates a plain node as a root.
func (g *Graph) CreateNode(name string) (NodeHandle, error) {
	return g.InsertNode(&BaseNode{}, name)
}

// InsertNode adds a caller-constructed node as a root under a fresh ID.
func (g *Graph) InsertNode(n Node, name string) (NodeHandle, error) {
	return g.InsertNodeWithID(n, name, ident.NewID())
}

// InsertNodeWithID adds a caller-constructed node as a root under an
// explicit ID. Used when identity is dictated from outside, e.g. replicated
// spawns.
func (g *Graph) InsertNodeWithID(n Node, name string, id ident.ID) (NodeHandle, error) {
	if n == nil || n.Base() == nil {
		return NullNodeHandle, NewError(CodeInvalidArgument, "graph: nil node")
	}
	b := n.Base()
	if b.graph != nil {
		return NullNodeHandle, NewError(CodeAlreadyExists, "graph: node already inserted")
	}
	if err := g.nodes.CreateWithID(id, n); err != nil {
		return NullNodeHandle, err
	}

	h := NodeHandle{ID: id}
	b.self = h
	b.name = name
	b.active = true
	b.graph = g
	b.ensureMask()

	g.reg.RegisterNode(id, ident.TypeIDFromName(n.TypeName()), n)
	g.roots = append(g.roots, h)
	g.emit(GraphEvent{Kind: EventNodeCreated, Node: h})
	return h, nil
}

// Node resolves a handle against this graph's node pool. Nodes pending
// destruction still resolve until the flush.
func (g *Graph) Node(h NodeHandle) (Node, bool) {
	return g.nodes.Borrowed(h.ID)
}

// NodeByName returns the first live node with the given name.
func (g *Graph) NodeByName(name string) (NodeHandle, bool) {
	found := NullNodeHandle
	g.nodes.ForEach(func(id ident.ID, n Node) {
		if found.IsNull() && n.Base().name == name {
			found = NodeHandle{ID: id}
		}
	})
	return found, !found.IsNull()
}

// NodeCount returns the number of live nodes, including ones pending
// destruction.
func (g *Graph) NodeCount() int { return g.nodes.Len() }

// Roots returns the current root handles.
func (g *Graph) Roots() []NodeHandle {
	out := make([]NodeHandle, len(g.roots))
	copy(out, g.roots)
	return out
}

// IsPendingDestroy reports whether a node is queued for destruction.
func (g *Graph) IsPendingDestroy(h NodeHandle) bool {
	return g.nodes.IsPendingDestroy(h.ID)
}

// DestroyNode queues a node and its whole subtree for destruction at the
// next EndFrame. Destroying an already-queued node is a no-op.
func (g *Graph) DestroyNode(h NodeHandle) error {
	n, ok := g.nodes.Borrowed(h.ID)
	if !ok {
		return NewError(CodeNotFound, "graph: node not found")
	}
	if g.nodes.IsPendingDestroy(h.ID) {
		return nil
	}
	g.queueDestroy(h, n)
	return nil
}

func (g *Graph) queueDestroy(h NodeHandle, n Node) {
	if err := g.nodes.DestroyLater(h.ID); err != nil {
		return
	}
	g.pendingDestroy = append(g.pendingDestroy, h)
	for _, child := range n.Base().children {
		cn, ok := g.nodes.Borrowed(child.ID)
		if !ok || g.nodes.IsPendingDestroy(child.ID) {
			continue
		}
		g.queueDestroy(child, cn)
	}
}

// AttachChild makes child a child of parent, removing it from the root
// list. A child that already has a parent is rejected; detach it first.
// Fails with InvalidArgument on self-attachment or when the attachment
// would create a cycle.
func (g *Graph) AttachChild(parent, child NodeHandle) error {
	if parent == child {
		return NewError(CodeInvalidArgument, "graph: cannot attach node to itself")
	}
	pn, ok := g.nodes.Borrowed(parent.ID)
	if !ok {
		return NewError(CodeNotFound, "graph: parent not found")
	}
	cn, ok := g.nodes.Borrowed(child.ID)
	if !ok {
		return NewError(CodeNotFound, "graph: child not found")
	}
	cb := cn.Base()
	if !cb.parent.IsNull() {
		return NewError(CodeInvalidArgument, "graph: child already has a parent, detach it first")
	}
	if g.wouldCycle(parent, child) {
		g.log.Warn("rejected cyclic attach",
			zap.String("graph", g.name),
			zap.Stringer("parent", parent),
			zap.Stringer("child", child))
		return NewError(CodeInvalidArgument, "graph: attach would create a cycle")
	}

	g.removeRoot(child)
	pb := pn.Base()
	pb.children = append(pb.children, child)
	pb.childCache = append(pb.childCache, cn)
	cb.parent = parent
	g.emit(GraphEvent{Kind: EventChildAttached, Node: child, Parent: parent})
	return nil
}

// wouldCycle reports whether child is an ancestor of parent.
func (g *Graph) wouldCycle(parent, child NodeHandle) bool {
	cur := parent
	for !cur.IsNull() {
		if cur == child {
			return true
		}
		n, ok := g.nodes.Borrowed(cur.ID)
		if !ok {
			return false
		}
		cur = n.Base().parent
	}
	return false
}

// DetachChild unlinks child from its parent and promotes it to a root.
// Detaching a node that is already a root is a no-op.
func (g *Graph) DetachChild(child NodeHandle) error {
	cn, ok := g.nodes.Borrowed(child.ID)
	if !ok {
		return NewError(CodeNotFound, "graph: child not found")
	}
	cb := cn.Base()
	if cb.parent.IsNull() {
		return nil
	}
	parent := cb.parent
	if pn, ok := g.nodes.Borrowed(parent.ID); ok {
		pn.Base().removeChild(child)
	}
	cb.parent = NullNodeHandle
	g.roots = append(g.roots, child)
	g.emit(GraphEvent{Kind: EventChildDetached, Node: child, Parent: parent})
	return nil
}

func (b *BaseNode) removeChild(child NodeHandle) {
	for i, h := range b.children {
		if h == child {
			b.children = append(b.children[:i], b.children[i+1:]...)
			b.childCache = append(b.childCache[:i], b.childCache[i+1:]...)
			return
		}
	}
}

func (g *Graph) removeRoot(h NodeHandle) {
	for i, r := range g.roots {
		if r == h {
			g.roots = append(g.roots[:i], g.roots[i+1:]...)
			return
		}
	}
}

// IsNodeActive reports whether a node participates in ticking: it must be
// live, not queued for destruction, have its active flag set, and not be
// suppressed by a relevance component. Ancestor activity is not considered;
// traversal prunes inactive subtrees on its own.
func (g *Graph) IsNodeActive(h NodeHandle) bool {
	if g.nodes.IsPendingDestroy(h.ID) {
		return false
	}
	n, ok := g.nodes.Borrowed(h.ID)
	if !ok || !n.Base().active {
		return false
	}
	if rs, ok := g.relevanceStorage(); ok {
		if comp := rs.Borrowed(h); comp != nil {
			return comp.ComponentActive()
		}
	}
	return true
}

// Tick runs one variable-rate frame phase: amortized relevance evaluation,
// then depth-first traversal from the roots, then the flat pass over
// storage-driven storages.
func (g *Graph) Tick(dt float64) {
	g.evaluateRelevance()
	g.tickPhase(phaseTick, dt)
}

// FixedTick runs one fixed-timestep phase.
func (g *Graph) FixedTick(dt float64) {
	g.tickPhase(phaseFixedTick, dt)
}

// LateTick runs one late phase after the variable tick.
func (g *Graph) LateTick(dt float64) {
	g.tickPhase(phaseLateTick, dt)
}

func (g *Graph) tickPhase(phase tickPhase, dt float64) {
	// Roots are copied up front; hooks may attach or destroy nodes.
	roots := g.Roots()
	for _, root := range roots {
		g.tickTree(root, phase, dt)
	}
	for _, st := range g.storages {
		if !st.StorageDriven() {
			continue
		}
		switch phase {
		case phaseTick:
			st.TickAll(dt, g.IsNodeActive)
		case phaseFixedTick:
			st.FixedTickAll(dt, g.IsNodeActive)
		case phaseLateTick:
			st.LateTickAll(dt, g.IsNodeActive)
		}
	}
}

func (g *Graph) tickTree(h NodeHandle, phase tickPhase, dt float64) {
	if !g.IsNodeActive(h) {
		return
	}
	n, ok := g.nodes.Borrowed(h.ID)
	if !ok {
		return
	}

	switch phase {
	case phaseTick:
		if t, ok := n.(NodeTicker); ok {
			t.Tick(dt)
		}
	case phaseFixedTick:
		if t, ok := n.(NodeFixedTicker); ok {
			t.FixedTick(dt)
		}
	case phaseLateTick:
		if t, ok := n.(NodeLateTicker); ok {
			t.LateTick(dt)
		}
	}

	b := n.Base()
	for i := range b.componentTypes {
		st := b.storageCache[i]
		if st.StorageDriven() {
			continue
		}
		switch phase {
		case phaseTick:
			st.TickComponent(h, dt)
		case phaseFixedTick:
			st.FixedTickComponent(h, dt)
		case phaseLateTick:
			st.LateTickComponent(h, dt)
		}
	}

	children := make([]NodeHandle, len(b.children))
	copy(children, b.children)
	for _, child := range children {
		g.tickTree(child, phase, dt)
	}
}

// EndFrame flushes all destruction queued during the frame. Queued nodes
// first shed their components and unlink from the hierarchy, then every
// storage flushes its own deferred destruction, then node identities are
// unregistered and the node pool releases its slots.
func (g *Graph) EndFrame() {
	for _, h := range g.pendingDestroy {
		n, ok := g.nodes.Borrowed(h.ID)
		if !ok {
			continue
		}
		b := n.Base()

		types := make([]ident.TypeID, len(b.componentTypes))
		copy(types, b.componentTypes)
		for _, t := range types {
			if st, ok := g.storages[t]; ok {
				_ = st.Remove(h)
			}
			b.forgetComponent(t)
		}

		if b.parent.IsNull() {
			g.removeRoot(h)
		} else if pn, ok := g.nodes.Borrowed(b.parent.ID); ok {
			pn.Base().removeChild(h)
		}
		b.parent = NullNodeHandle
		b.graph = nil
	}

	for _, st := range g.storages {
		st.EndFrame()
	}

	for _, h := range g.pendingDestroy {
		g.reg.Unregister(h.ID)
		g.emit(GraphEvent{Kind: EventNodeDestroyed, Node: h})
	}
	g.nodes.EndFrame()
	g.pendingDestroy = g.pendingDestroy[:0]
}

// Clear destroys every node and component immediately, bypassing the
// deferred queue. The relevance budget is preserved; the cursor resets.
func (g *Graph) Clear() {
	for _, st := range g.storages {
		st.Clear()
	}
	g.nodes.ForEachAll(func(id ident.ID, n Node) {
		b := n.Base()
		b.graph = nil
		b.parent = NullNodeHandle
		b.children = nil
		b.childCache = nil
		b.componentTypes = nil
		b.storageCache = nil
	})
	g.clearNodeRegistrations()
	g.nodes.Clear()
	g.roots = nil
	g.pendingDestroy = nil
	g.relevanceCursor = 0
	g.log.Debug("graph cleared", zap.String("graph", g.name))
}

func (g *Graph) clearNodeRegistrations() {
	g.nodes.ForEachAll(func(id ident.ID, _ Node) {
		g.reg.Unregister(id)
	})
}

// RelevanceBudget returns the per-tick relevance evaluation cap.
func (g *Graph) RelevanceBudget() int { return g.relevanceBudget }

// SetRelevanceBudget changes the per-tick relevance evaluation cap. Zero
// evaluates every policy each tick.
func (g *Graph) SetRelevanceBudget(n int) {
	if n < 0 {
		n = 0
	}
	g.relevanceBudget = n
}

// StorageFor returns the graph's storage for component type T, creating it
// on first use.
func StorageFor[T any](g *Graph) *Storage[T] {
	key := ident.TypeIDOf[T]()
	if st, ok := g.storages[key]; ok {
		return st.(*Storage[T])
	}
	st := NewStorage[T](g.reg)
	g.storages[key] = st
	return st
}

// AddComponent attaches comp to the owner node and records the component
// type in the node's mask and storage cache.
func AddComponent[T any](g *Graph, owner NodeHandle, comp *T) (Handle[T], error) {
	n, ok := g.nodes.Borrowed(owner.ID)
	if !ok {
		return Handle[T]{}, NewError(CodeNotFound, "graph: owner node not found")
	}
	st := StorageFor[T](g)
	h, err := st.Add(owner, comp)
	if err != nil {
		return Handle[T]{}, err
	}
	n.Base().noteComponent(st.TypeKey(), st)
	g.emit(GraphEvent{Kind: EventComponentAdded, Node: owner, Component: st.TypeKey()})
	return h, nil
}

// ComponentOf returns owner's component of type T.
func ComponentOf[T any](g *Graph, owner NodeHandle) (*T, error) {
	key := ident.TypeIDOf[T]()
	st, ok := g.storages[key]
	if !ok {
		return nil, NewError(CodeNotFound, "graph: component not found")
	}
	return st.(*Storage[T]).Component(owner)
}

// BorrowedComponent returns owner's component of type T, or nil when
// absent.
func BorrowedComponent[T any](g *Graph, owner NodeHandle) *T {
	key := ident.TypeIDOf[T]()
	st, ok := g.storages[key]
	if !ok {
		return nil
	}
	return st.(*Storage[T]).Borrowed(owner)
}

// HasComponent reports whether owner has a component of type T, using the
// node's component mask as the fast path.
func HasComponent[T any](g *Graph, owner NodeHandle) bool {
	n, ok := g.nodes.Borrowed(owner.ID)
	if !ok {
		return false
	}
	return n.Base().hasType(ident.TypeIDOf[T]())
}

// RemoveComponent removes owner's component of type T. The component object
// survives until the next EndFrame; lookups stop resolving immediately.
func RemoveComponent[T any](g *Graph, owner NodeHandle) error {
	key := ident.TypeIDOf[T]()
	st, ok := g.storages[key]
	if !ok {
		return NewError(CodeNotFound, "graph: component not found")
	}
	n, nodeOK := g.nodes.Borrowed(owner.ID)
	if err := st.Remove(owner); err != nil {
		return err
	}
	if nodeOK {
		n.Base().forgetComponent(key)
	}
	g.emit(GraphEvent{Kind: EventComponentRemoved, Node: owner, Component: key})
	return nil
}

// MarkStorageDriven switches T's storage to the flat per-storage tick pass.
func MarkStorageDriven[T any](g *Graph) {
	StorageFor[T](g).SetStorageDriven(true)
}
