package graph

import (
	"sync"

	"github.com/arborlabs/arbor/internal/core/ident"
	"github.com/arborlabs/arbor/internal/core/registry"
)

// componentStore is the type-erased view of a Storage[T], used by the graph
// to dispatch ticks and flushes without knowing component types.
type componentStore interface {
	TypeKey() ident.TypeID
	Has(owner NodeHandle) bool
	Remove(owner NodeHandle) error
	TickComponent(owner NodeHandle, dt float64)
	FixedTickComponent(owner NodeHandle, dt float64)
	LateTickComponent(owner NodeHandle, dt float64)
	TickAll(dt float64, ownerActive func(NodeHandle) bool)
	FixedTickAll(dt float64, ownerActive func(NodeHandle) bool)
	LateTickAll(dt float64, ownerActive func(NodeHandle) bool)
	StorageDriven() bool
	Population() int
	EndFrame()
	Clear()
}

// hookFlags caches which optional interfaces *T implements. Detected once
// per storage so tick dispatch never pays for assertions that cannot succeed.
type hookFlags struct {
	create  bool
	destroy bool
	tick    bool
	fixed   bool
	late    bool
	binder  bool
	active  bool
}

func detectHooks[T any]() hookFlags {
	var zero T
	p := any(&zero)
	var f hookFlags
	_, f.create = p.(CreateHook)
	_, f.destroy = p.(DestroyHook)
	_, f.tick = p.(Ticker)
	_, f.fixed = p.(FixedTicker)
	_, f.late = p.(LateTicker)
	_, f.binder = p.(componentBinder)
	_, f.active = p.(activeAware)
	return f
}

type denseEntry[T any] struct {
	owner  NodeHandle
	compID ident.ID
	comp   *T
}

type doomedEntry[T any] struct {
	compID ident.ID
	comp   *T
}

// Storage holds every component of type T across a graph: a pool for
// identity and deferred destruction, an owner index for O(1) lookup, and a
// dense slice for cache-friendly bulk iteration. At most one T per owner.
//
// Removal is split in two: the owner index and dense slice drop the entry
// eagerly, while the component object itself stays resident in the pool
// until EndFrame so borrowed pointers survive the rest of the frame.
type Storage[T any] struct {
	mu      sync.Mutex
	typeID  ident.TypeID
	reg     *registry.Registry
	pool    *Pool[*T]
	dense   []denseEntry[T]
	byOwner map[ident.ID]int
	doomed  []doomedEntry[T]
	hooks   hookFlags
	driven  bool
}

// NewStorage returns an empty storage for T registered against reg.
func NewStorage[T any](reg *registry.Registry) *Storage[T] {
	return &Storage[T]{
		typeID:  ident.TypeIDOf[T](),
		reg:     reg,
		pool:    NewPool[*T](),
		byOwner: make(map[ident.ID]int),
		hooks:   detectHooks[T](),
	}
}

// TypeKey returns the storage's component type identifier.
func (s *Storage[T]) TypeKey() ident.TypeID { return s.typeID }

// SetStorageDriven switches the storage between hierarchy-driven ticking
// (per-node dispatch during traversal, the default) and storage-driven
// ticking (one flat pass over the dense slice per phase). Exactly one of the
// two modes fires per phase, never both.
func (s *Storage[T]) SetStorageDriven(driven bool) {
	s.mu.Lock()
	s.driven = driven
	s.mu.Unlock()
}

// StorageDriven reports the current tick drive mode.
func (s *Storage[T]) StorageDriven() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driven
}

// Add inserts comp for owner under a fresh component ID.
func (s *Storage[T]) Add(owner NodeHandle, comp *T) (Handle[T], error) {
	return s.AddWithID(owner, ident.NewID(), comp)
}

// AddWithID inserts comp for owner under an explicit component ID. Fails
// with AlreadyExists when owner already has a T or the ID is in use.
func (s *Storage[T]) AddWithID(owner NodeHandle, id ident.ID, comp *T) (Handle[T], error) {
	if comp == nil {
		return Handle[T]{}, NewError(CodeInvalidArgument, "storage: nil component")
	}
	if owner.IsNull() {
		return Handle[T]{}, NewError(CodeInvalidArgument, "storage: null owner")
	}

	s.mu.Lock()
	if _, exists := s.byOwner[owner.ID]; exists {
		s.mu.Unlock()
		return Handle[T]{}, NewError(CodeAlreadyExists, "storage: owner already has component")
	}
	if err := s.pool.CreateWithID(id, comp); err != nil {
		s.mu.Unlock()
		return Handle[T]{}, err
	}
	if s.hooks.binder {
		any(comp).(componentBinder).bindComponent(owner, id)
	}
	s.reg.RegisterComponent(id, s.typeID, comp)
	s.byOwner[owner.ID] = len(s.dense)
	s.dense = append(s.dense, denseEntry[T]{owner: owner, compID: id, comp: comp})
	s.mu.Unlock()

	// Hook runs outside the lock so it can touch the storage again.
	if s.hooks.create {
		any(comp).(CreateHook).OnCreate()
	}
	return Handle[T]{ID: id}, nil
}

// Component returns owner's component.
func (s *Storage[T]) Component(owner NodeHandle) (*T, error) {
	if c := s.Borrowed(owner); c != nil {
		return c, nil
	}
	return nil, NewError(CodeNotFound, "storage: component not found")
}

// Borrowed returns owner's component, or nil when absent. The pointer stays
// valid at least until the end-of-frame flush that follows its removal.
func (s *Storage[T]) Borrowed(owner NodeHandle) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byOwner[owner.ID]
	if !ok {
		return nil
	}
	return s.dense[idx].comp
}

// Has reports whether owner currently has a component in this storage.
// Components removed earlier this frame no longer count.
func (s *Storage[T]) Has(owner NodeHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byOwner[owner.ID]
	return ok
}

// Remove drops owner's component from the index and dense slice immediately
// and queues the object for destruction at EndFrame.
func (s *Storage[T]) Remove(owner NodeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byOwner[owner.ID]
	if !ok {
		return NewError(CodeNotFound, "storage: component not found")
	}
	entry := s.dense[idx]

	last := len(s.dense) - 1
	if idx != last {
		s.dense[idx] = s.dense[last]
		s.byOwner[s.dense[idx].owner.ID] = idx
	}
	s.dense = s.dense[:last]
	delete(s.byOwner, owner.ID)

	_ = s.pool.DestroyLater(entry.compID)
	s.doomed = append(s.doomed, doomedEntry[T]{compID: entry.compID, comp: entry.comp})
	return nil
}

// Population returns the number of stored components, excluding ones already
// removed this frame.
func (s *Storage[T]) Population() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dense)
}

// DenseAt returns the owner and component at dense position i, or a null
// handle when i is out of range. Positions shift on removal; callers must
// tolerate that.
func (s *Storage[T]) DenseAt(i int) (NodeHandle, *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.dense) {
		return NullNodeHandle, nil
	}
	e := s.dense[i]
	return e.owner, e.comp
}

// ForEach visits every stored component. The callback runs outside the
// storage lock against a snapshot taken at call time.
func (s *Storage[T]) ForEach(fn func(owner NodeHandle, comp *T)) {
	s.mu.Lock()
	snapshot := make([]denseEntry[T], len(s.dense))
	copy(snapshot, s.dense)
	s.mu.Unlock()
	for i := range snapshot {
		fn(snapshot[i].owner, snapshot[i].comp)
	}
}

// TickComponent invokes owner's Tick hook. Silently a no-op when owner has
// no component here; mid-frame removal races are expected, not errors.
func (s *Storage[T]) TickComponent(owner NodeHandle, dt float64) {
	if !s.hooks.tick {
		return
	}
	if c := s.tickTarget(owner); c != nil {
		any(c).(Ticker).Tick(dt)
	}
}

// FixedTickComponent invokes owner's FixedTick hook, if any.
func (s *Storage[T]) FixedTickComponent(owner NodeHandle, dt float64) {
	if !s.hooks.fixed {
		return
	}
	if c := s.tickTarget(owner); c != nil {
		any(c).(FixedTicker).FixedTick(dt)
	}
}

// LateTickComponent invokes owner's LateTick hook, if any.
func (s *Storage[T]) LateTickComponent(owner NodeHandle, dt float64) {
	if !s.hooks.late {
		return
	}
	if c := s.tickTarget(owner); c != nil {
		any(c).(LateTicker).LateTick(dt)
	}
}

func (s *Storage[T]) tickTarget(owner NodeHandle) *T {
	c := s.Borrowed(owner)
	if c == nil {
		return nil
	}
	if s.hooks.active && !any(c).(activeAware).ComponentActive() {
		return nil
	}
	return c
}

// TickAll runs the variable tick over the whole dense population.
func (s *Storage[T]) TickAll(dt float64, ownerActive func(NodeHandle) bool) {
	if !s.hooks.tick {
		return
	}
	s.bulkTick(ownerActive, func(c *T) { any(c).(Ticker).Tick(dt) })
}

// FixedTickAll runs the fixed tick over the whole dense population.
func (s *Storage[T]) FixedTickAll(dt float64, ownerActive func(NodeHandle) bool) {
	if !s.hooks.fixed {
		return
	}
	s.bulkTick(ownerActive, func(c *T) { any(c).(FixedTicker).FixedTick(dt) })
}

// LateTickAll runs the late tick over the whole dense population.
func (s *Storage[T]) LateTickAll(dt float64, ownerActive func(NodeHandle) bool) {
	if !s.hooks.late {
		return
	}
	s.bulkTick(ownerActive, func(c *T) { any(c).(LateTicker).LateTick(dt) })
}

func (s *Storage[T]) bulkTick(ownerActive func(NodeHandle) bool, invoke func(*T)) {
	s.mu.Lock()
	snapshot := make([]denseEntry[T], len(s.dense))
	copy(snapshot, s.dense)
	s.mu.Unlock()

	for i := range snapshot {
		e := &snapshot[i]
		if ownerActive != nil && !ownerActive(e.owner) {
			continue
		}
		if s.hooks.active && !any(e.comp).(activeAware).ComponentActive() {
			continue
		}
		invoke(e.comp)
	}
}

// EndFrame destroys every component removed since the previous flush:
// OnDestroy hooks first, then registry unregistration, then pool release.
func (s *Storage[T]) EndFrame() {
	s.mu.Lock()
	doomed := s.doomed
	s.doomed = nil
	s.mu.Unlock()

	if s.hooks.destroy {
		for _, d := range doomed {
			any(d.comp).(DestroyHook).OnDestroy()
		}
	}
	for _, d := range doomed {
		s.reg.Unregister(d.compID)
	}
	s.pool.EndFrame()
}

// Clear destroys everything immediately, including components already
// queued for the deferred flush.
func (s *Storage[T]) Clear() {
	s.mu.Lock()
	var all []doomedEntry[T]
	s.pool.ForEachAll(func(id ident.ID, comp *T) {
		all = append(all, doomedEntry[T]{compID: id, comp: comp})
	})
	s.dense = nil
	s.byOwner = make(map[ident.ID]int)
	s.doomed = nil
	s.pool.Clear()
	s.mu.Unlock()

	if s.hooks.destroy {
		for _, d := range all {
			any(d.comp).(DestroyHook).OnDestroy()
		}
	}
	for _, d := range all {
		s.reg.Unregister(d.compID)
	}
}
