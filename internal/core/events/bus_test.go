package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBus()
	var got []Event
	b.Subscribe(TypeNodeCreated, func(ev Event) { got = append(got, ev) })

	b.Publish(TypeNodeCreated, "graph:test", "payload")
	require.Len(t, got, 1)
	assert.Equal(t, TypeNodeCreated, got[0].Type)
	assert.Equal(t, "graph:test", got[0].Source)
	assert.Equal(t, "payload", got[0].Data)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestPublishSkipsOtherTypes(t *testing.T) {
	b := NewBus()
	var calls int
	b.Subscribe(TypeNodeCreated, func(Event) { calls++ })

	b.Publish(TypeNodeDestroyed, "graph:test", nil)
	assert.Equal(t, 0, calls)

	published, delivered := b.Stats()
	assert.Equal(t, uint64(1), published)
	assert.Equal(t, uint64(0), delivered)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBus()
	var calls int
	sub := b.Subscribe(TypeChildAttached, func(Event) { calls++ })
	require.True(t, sub.IsActive())

	b.Publish(TypeChildAttached, "", nil)
	sub.Cancel()
	sub.Cancel()
	b.Publish(TypeChildAttached, "", nil)

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())
	assert.Equal(t, TypeChildAttached, sub.EventType())
	assert.NotEmpty(t, sub.ID())
}

func TestHandlerMaySubscribeDuringDelivery(t *testing.T) {
	b := NewBus()
	var nested int
	b.Subscribe(TypeComponentAdded, func(Event) {
		b.Subscribe(TypeComponentRemoved, func(Event) { nested++ })
	})

	b.Publish(TypeComponentAdded, "", nil)
	b.Publish(TypeComponentRemoved, "", nil)
	assert.Equal(t, 1, nested)
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	var calls int
	b.Subscribe(TypeNodeCreated, func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(TypeNodeCreated, "", nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, calls)
	published, delivered := b.Stats()
	assert.Equal(t, uint64(800), published)
	assert.Equal(t, uint64(800), delivered)
}
