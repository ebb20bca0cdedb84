// Package events provides the in-process bus that fans graph lifecycle
// changes out to engine subsystems.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arborlabs/arbor/pkg/generic"
)

// Well-known event types published by the runtime.
const (
	TypeNodeCreated      = "node.created"
	TypeNodeDestroyed    = "node.destroyed"
	TypeChildAttached    = "child.attached"
	TypeChildDetached    = "child.detached"
	TypeComponentAdded   = "component.added"
	TypeComponentRemoved = "component.removed"
)

// Event is one delivered notification.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
}

// Handler consumes events. Handlers run synchronously on the publishing
// goroutine and must not block.
type Handler func(Event)

// Subscription identifies one registered handler.
type Subscription struct {
	id        string
	eventType string
	bus       *Bus
	active    bool
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// EventType returns the subscribed event type.
func (s *Subscription) EventType() string { return s.eventType }

// IsActive reports whether the subscription still receives events.
func (s *Subscription) IsActive() bool {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	return s.active
}

// Cancel stops delivery. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	if m, ok := s.bus.handlers[s.eventType]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(s.bus.handlers, s.eventType)
		}
	}
}

// Bus is a thread-safe synchronous event bus. Delivery order within one
// event type is unspecified.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler

	// Scratch slices for delivery, reused across publishes.
	scratch *generic.Pool[[]Handler]

	published atomic.Uint64
	delivered atomic.Uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[string]Handler),
		scratch: generic.NewResetPool(
			func() []Handler { return make([]Handler, 0, 8) },
			func(s []Handler) []Handler { return s[:0] },
		),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	sub := &Subscription{id: uuid.NewString(), eventType: eventType, bus: b, active: true}
	b.handlers[eventType][sub.id] = handler
	return sub
}

// Publish delivers an event to every handler subscribed to its type.
func (b *Bus) Publish(eventType, source string, data any) {
	ev := Event{Type: eventType, Source: source, Timestamp: time.Now(), Data: data}

	targets := b.scratch.Get()
	b.mu.RLock()
	for _, h := range b.handlers[eventType] {
		targets = append(targets, h)
	}
	b.mu.RUnlock()
	b.published.Add(1)
	b.delivered.Add(uint64(len(targets)))

	// Handlers run outside the lock so they may subscribe or cancel.
	for _, h := range targets {
		h(ev)
	}
	b.scratch.Put(targets)
}

// Stats returns how many events were published and handler deliveries made.
func (b *Bus) Stats() (published, delivered uint64) {
	return b.published.Load(), b.delivered.Load()
}
