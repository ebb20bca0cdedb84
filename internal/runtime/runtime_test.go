package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/internal/core/events"
	"github.com/arborlabs/arbor/internal/core/graph"
	"github.com/arborlabs/arbor/internal/core/observability/log"
)

type phaseRecorder struct {
	graph.ComponentCore
	ticks []string
}

func (*phaseRecorder) TypeName() string { return "arbor.test.PhaseRecorder" }

func (p *phaseRecorder) Tick(float64)      { p.ticks = append(p.ticks, "tick") }
func (p *phaseRecorder) FixedTick(float64) { p.ticks = append(p.ticks, "fixed") }
func (p *phaseRecorder) LateTick(float64)  { p.ticks = append(p.ticks, "late") }

func newTestRuntime(t *testing.T, mutate func(*Config)) *Runtime {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	rt, err := New(cfg, log.Nop())
	require.NoError(t, err)
	return rt
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRate = 0
	_, err := New(cfg, log.Nop())
	assert.Error(t, err)
}

func TestStepRunsPhasesInOrder(t *testing.T) {
	rt := newTestRuntime(t, func(c *Config) { c.FixedDelta = 0.02 })
	h, err := rt.Level().Spawn("holder")
	require.NoError(t, err)
	rec := &phaseRecorder{}
	_, err = graph.AddComponent(rt.Level().Graph, h, rec)
	require.NoError(t, err)

	rt.Step(0.02)
	assert.Equal(t, []string{"fixed", "tick", "late"}, rec.ticks)
	assert.Equal(t, uint64(1), rt.Frame())
}

func TestStepAccumulatesFixedTicks(t *testing.T) {
	rt := newTestRuntime(t, func(c *Config) { c.FixedDelta = 0.25 })
	h, _ := rt.Level().Spawn("holder")
	rec := &phaseRecorder{}
	_, err := graph.AddComponent(rt.Level().Graph, h, rec)
	require.NoError(t, err)

	// Not enough time for a fixed step yet.
	rt.Step(0.125)
	fixedCount := func() int {
		n := 0
		for _, p := range rec.ticks {
			if p == "fixed" {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 0, fixedCount())

	// The carried 0.125 plus 0.375 drains two fixed steps.
	rt.Step(0.375)
	assert.Equal(t, 2, fixedCount())
}

func TestStepClampsFixedBacklog(t *testing.T) {
	rt := newTestRuntime(t, func(c *Config) {
		c.FixedDelta = 0.02
		c.MaxFixedStepsPerFrame = 2
	})
	h, _ := rt.Level().Spawn("holder")
	rec := &phaseRecorder{}
	_, err := graph.AddComponent(rt.Level().Graph, h, rec)
	require.NoError(t, err)

	// A one-second spike caps at MaxFixedStepsPerFrame steps.
	rt.Step(1.0)
	fixed := 0
	for _, p := range rec.ticks {
		if p == "fixed" {
			fixed++
		}
	}
	assert.Equal(t, 2, fixed)
}

func TestStepFlushesDeferredDestroy(t *testing.T) {
	rt := newTestRuntime(t, nil)
	h, err := rt.Level().Spawn("doomed")
	require.NoError(t, err)
	require.NoError(t, rt.Level().DestroyNode(h))

	rt.Step(0.016)
	_, ok := rt.Level().Node(h)
	assert.False(t, ok)
}

func TestGraphEventsReachTheBus(t *testing.T) {
	rt := newTestRuntime(t, func(c *Config) { c.WorldName = "arena" })
	var got []events.Event
	rt.Bus().Subscribe(events.TypeNodeCreated, func(ev events.Event) { got = append(got, ev) })

	_, err := rt.Level().Spawn("announced")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "arena", got[0].Source)
	payload, ok := got[0].Data.(graph.GraphEvent)
	require.True(t, ok)
	assert.Equal(t, graph.EventNodeCreated, payload.Kind)
}

func TestRunStopsOnCancel(t *testing.T) {
	rt := newTestRuntime(t, func(c *Config) { c.TickRate = 200 })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop after cancel")
	}
	assert.Greater(t, rt.Frame(), uint64(0))
}
