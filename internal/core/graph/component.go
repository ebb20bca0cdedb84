package graph

import (
	"github.com/arborlabs/arbor/internal/core/ident"
)

// Optional per-phase hooks. A component type opts into a phase by
// implementing the matching interface on its pointer type; detection happens
// once per storage, not per call.

// Ticker receives the variable-rate tick.
type Ticker interface {
	Tick(dt float64)
}

// FixedTicker receives the fixed-timestep tick.
type FixedTicker interface {
	FixedTick(dt float64)
}

// LateTicker receives the late tick that runs after the variable tick.
type LateTicker interface {
	LateTick(dt float64)
}

// CreateHook runs right after a component is inserted into its storage.
type CreateHook interface {
	OnCreate()
}

// DestroyHook runs during the end-of-frame flush, before the component's ID
// is unregistered.
type DestroyHook interface {
	OnDestroy()
}

// componentBinder is implemented by ComponentCore so storages can stamp
// ownership on insert.
type componentBinder interface {
	bindComponent(owner NodeHandle, id ident.ID)
}

// activeAware lets storages skip ticking components that switched themselves
// off.
type activeAware interface {
	ComponentActive() bool
}

// ComponentCore carries the per-component runtime state. Embed it in a
// component struct to get ownership, identity and the active/replicated
// flags; components without it still work but cannot be toggled or queried
// for their owner.
type ComponentCore struct {
	owner      NodeHandle
	id         ident.ID
	active     bool
	replicated bool
}

func (c *ComponentCore) bindComponent(owner NodeHandle, id ident.ID) {
	c.owner = owner
	c.id = id
	c.active = true
}

// Owner returns the handle of the owning node.
func (c *ComponentCore) Owner() NodeHandle { return c.owner }

// ComponentID returns the component's registered identity.
func (c *ComponentCore) ComponentID() ident.ID { return c.id }

// ComponentActive reports whether the component participates in ticking.
func (c *ComponentCore) ComponentActive() bool { return c.active }

// SetComponentActive toggles tick participation. Inactive components stay
// stored and resolvable.
func (c *ComponentCore) SetComponentActive(active bool) { c.active = active }

// Replicated reports whether the component is flagged for replication.
func (c *ComponentCore) Replicated() bool { return c.replicated }

// SetReplicated flags the component for replication.
func (c *ComponentCore) SetReplicated(replicated bool) { c.replicated = replicated }
