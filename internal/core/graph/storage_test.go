package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/internal/core/ident"
	"github.com/arborlabs/arbor/internal/core/registry"
)

type counterComponent struct {
	ComponentCore
	ticks     int
	fixed     int
	late      int
	created   int
	destroyed int
}

func (*counterComponent) TypeName() string { return "arbor.test.CounterComponent" }

func (c *counterComponent) Tick(float64)      { c.ticks++ }
func (c *counterComponent) FixedTick(float64) { c.fixed++ }
func (c *counterComponent) LateTick(float64)  { c.late++ }
func (c *counterComponent) OnCreate()         { c.created++ }
func (c *counterComponent) OnDestroy()        { c.destroyed++ }

type bareComponent struct {
	value int
}

func (*bareComponent) TypeName() string { return "arbor.test.BareComponent" }

func newOwner() NodeHandle {
	return NodeHandle{ID: ident.NewID()}
}

func TestStorageAddAndLookup(t *testing.T) {
	reg := registry.New()
	s := NewStorage[counterComponent](reg)
	owner := newOwner()

	comp := &counterComponent{}
	h, err := s.Add(owner, comp)
	require.NoError(t, err)
	require.False(t, h.IsNull())

	assert.Equal(t, 1, comp.created)
	assert.Equal(t, owner, comp.Owner())
	assert.Equal(t, h.ID, comp.ComponentID())
	assert.True(t, comp.ComponentActive())

	got, err := s.Component(owner)
	require.NoError(t, err)
	assert.Same(t, comp, got)
	assert.True(t, s.Has(owner))
	assert.Equal(t, 1, s.Population())

	// Registered globally under the component kind and type.
	resolved := ResolveComponent(reg, h)
	assert.Same(t, comp, resolved)
}

func TestStorageAddValidation(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	owner := newOwner()

	_, err := s.Add(owner, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = s.Add(NullNodeHandle, &counterComponent{})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = s.Add(owner, &counterComponent{})
	require.NoError(t, err)
	_, err = s.Add(owner, &counterComponent{})
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestStorageRemoveIsEagerInIndexDeferredInPool(t *testing.T) {
	reg := registry.New()
	s := NewStorage[counterComponent](reg)
	owner := newOwner()

	comp := &counterComponent{}
	h, err := s.Add(owner, comp)
	require.NoError(t, err)

	require.NoError(t, s.Remove(owner))

	// Gone from lookups immediately.
	assert.False(t, s.Has(owner))
	assert.Equal(t, 0, s.Population())
	_, err = s.Component(owner)
	assert.True(t, errors.Is(err, ErrNotFound))

	// But not destroyed until the flush.
	assert.Equal(t, 0, comp.destroyed)
	assert.NotNil(t, ResolveComponent(reg, h))

	s.EndFrame()
	assert.Equal(t, 1, comp.destroyed)
	assert.Nil(t, ResolveComponent(reg, h))
}

func TestStorageRemoveUnknownOwner(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	err := s.Remove(newOwner())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorageSwapRemoveKeepsIndexConsistent(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	owners := []NodeHandle{newOwner(), newOwner(), newOwner()}
	comps := make([]*counterComponent, len(owners))
	for i, o := range owners {
		comps[i] = &counterComponent{}
		_, err := s.Add(o, comps[i])
		require.NoError(t, err)
	}

	// Removing the first entry swaps the last into its place.
	require.NoError(t, s.Remove(owners[0]))
	assert.Equal(t, 2, s.Population())
	for i := 1; i < 3; i++ {
		got, err := s.Component(owners[i])
		require.NoError(t, err)
		assert.Same(t, comps[i], got)
	}
}

func TestStorageTickDispatch(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	owner := newOwner()
	comp := &counterComponent{}
	_, err := s.Add(owner, comp)
	require.NoError(t, err)

	s.TickComponent(owner, 0.016)
	s.FixedTickComponent(owner, 0.02)
	s.LateTickComponent(owner, 0.016)
	assert.Equal(t, 1, comp.ticks)
	assert.Equal(t, 1, comp.fixed)
	assert.Equal(t, 1, comp.late)

	// Unknown owners are silently skipped.
	s.TickComponent(newOwner(), 0.016)
}

func TestStorageTickSkipsInactiveComponent(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	owner := newOwner()
	comp := &counterComponent{}
	_, err := s.Add(owner, comp)
	require.NoError(t, err)

	comp.SetComponentActive(false)
	s.TickComponent(owner, 0.016)
	s.TickAll(0.016, nil)
	assert.Equal(t, 0, comp.ticks)

	comp.SetComponentActive(true)
	s.TickComponent(owner, 0.016)
	assert.Equal(t, 1, comp.ticks)
}

func TestStorageBulkTickRespectsOwnerPredicate(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	active := newOwner()
	dormant := newOwner()
	a := &counterComponent{}
	b := &counterComponent{}
	_, err := s.Add(active, a)
	require.NoError(t, err)
	_, err = s.Add(dormant, b)
	require.NoError(t, err)

	s.TickAll(0.016, func(h NodeHandle) bool { return h == active })
	assert.Equal(t, 1, a.ticks)
	assert.Equal(t, 0, b.ticks)
}

func TestStorageHooklessComponent(t *testing.T) {
	s := NewStorage[bareComponent](registry.New())
	owner := newOwner()
	_, err := s.Add(owner, &bareComponent{value: 3})
	require.NoError(t, err)

	// No hook interfaces: all dispatch paths are no-ops.
	s.TickComponent(owner, 0.016)
	s.TickAll(0.016, nil)
	s.FixedTickAll(0.02, nil)
	s.LateTickAll(0.016, nil)

	got := s.Borrowed(owner)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.value)
}

func TestStorageReAddAfterRemoveSameFrame(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	owner := newOwner()
	_, err := s.Add(owner, &counterComponent{})
	require.NoError(t, err)

	require.NoError(t, s.Remove(owner))
	replacement := &counterComponent{}
	_, err = s.Add(owner, replacement)
	require.NoError(t, err)

	s.EndFrame()
	got, err := s.Component(owner)
	require.NoError(t, err)
	assert.Same(t, replacement, got)
	assert.Equal(t, 0, replacement.destroyed)
}

func TestStorageClearDestroysEverything(t *testing.T) {
	reg := registry.New()
	s := NewStorage[counterComponent](reg)
	kept := &counterComponent{}
	doomed := &counterComponent{}
	ownerA := newOwner()
	ownerB := newOwner()
	_, err := s.Add(ownerA, kept)
	require.NoError(t, err)
	_, err = s.Add(ownerB, doomed)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ownerB))

	s.Clear()
	assert.Equal(t, 1, kept.destroyed)
	assert.Equal(t, 1, doomed.destroyed)
	assert.Equal(t, 0, s.Population())
	assert.Equal(t, 0, reg.Len())
}

func TestStorageDriveModeFlag(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	assert.False(t, s.StorageDriven())
	s.SetStorageDriven(true)
	assert.True(t, s.StorageDriven())
}

func TestStorageForEachSnapshot(t *testing.T) {
	s := NewStorage[counterComponent](registry.New())
	for i := 0; i < 4; i++ {
		_, err := s.Add(newOwner(), &counterComponent{})
		require.NoError(t, err)
	}

	var visited int
	s.ForEach(func(owner NodeHandle, comp *counterComponent) {
		visited++
		// Mutating during iteration is allowed; the snapshot is stable.
		_ = s.Remove(owner)
	})
	assert.Equal(t, 4, visited)
	assert.Equal(t, 0, s.Population())
}
