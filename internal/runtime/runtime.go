// Package runtime drives a level through the frame cycle: fixed-timestep
// catch-up, variable tick, late tick and the end-of-frame destruction flush.
package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arborlabs/arbor/internal/core/events"
	"github.com/arborlabs/arbor/internal/core/graph"
	"github.com/arborlabs/arbor/internal/core/observability/log"
)

const statsInterval = 10 * time.Second

// Runtime owns one level and steps it at a configured rate. Step and Run
// must not be used concurrently; the runtime is the level's owning thread.
type Runtime struct {
	cfg   Config
	log   *log.Logger
	level *graph.Level
	bus   *events.Bus

	accumulator float64
	frame       atomic.Uint64
}

// New builds a runtime, its level and the lifecycle bus. Graph structural
// changes are republished on the bus under the graph's name as source.
func New(cfg Config, logger *log.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Provide()
	}

	rt := &Runtime{
		cfg: cfg,
		log: logger,
		bus: events.NewBus(),
	}
	rt.level = graph.NewLevel(cfg.WorldName,
		graph.WithRelevanceBudget(cfg.RelevanceBudget),
		graph.WithLogger(logger),
		graph.WithObserver(rt.publishGraphEvent),
	)
	return rt, nil
}

func (r *Runtime) publishGraphEvent(ev graph.GraphEvent) {
	r.bus.Publish(ev.Kind.String(), r.cfg.WorldName, ev)
}

// Level returns the runtime's root level.
func (r *Runtime) Level() *graph.Level { return r.level }

// Bus returns the lifecycle event bus.
func (r *Runtime) Bus() *events.Bus { return r.bus }

// Frame returns the number of completed frames.
func (r *Runtime) Frame() uint64 { return r.frame.Load() }

// Step advances the simulation by dt seconds: fixed ticks are drained from
// the accumulator up to the catch-up cap, then the variable tick, late tick
// and end-of-frame flush run once each.
func (r *Runtime) Step(dt float64) {
	if dt < 0 {
		dt = 0
	}

	if r.cfg.FixedDelta > 0 {
		r.accumulator += dt
		maxSteps := r.cfg.MaxFixedStepsPerFrame
		steps := 0
		for r.accumulator >= r.cfg.FixedDelta && steps < maxSteps {
			r.level.FixedTick(r.cfg.FixedDelta)
			r.accumulator -= r.cfg.FixedDelta
			steps++
		}
		// Bounded backlog: catch up after spikes without hoarding time.
		maxCarry := r.cfg.FixedDelta * float64(maxSteps)
		if r.accumulator > maxCarry {
			r.accumulator = maxCarry
		}
	} else {
		r.accumulator = 0
	}

	r.level.Tick(dt)
	r.level.LateTick(dt)
	r.level.EndFrame()
	r.frame.Add(1)
}

// Run steps the simulation at the configured tick rate until ctx is
// cancelled, logging periodic stats from a sidecar goroutine.
func (r *Runtime) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / float64(r.cfg.TickRate))
	r.log.Info("runtime starting",
		zap.String("world", r.cfg.WorldName),
		zap.Int("tick_rate", r.cfg.TickRate),
		zap.Float64("fixed_delta", r.cfg.FixedDelta))

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				r.Step(now.Sub(last).Seconds())
				last = now
			}
		}
	})

	group.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				published, delivered := r.bus.Stats()
				r.log.Info("runtime stats",
					zap.Uint64("frames", r.frame.Load()),
					zap.Int("nodes", r.level.NodeCount()),
					zap.Uint64("events_published", published),
					zap.Uint64("events_delivered", delivered))
			}
		}
	})

	err := group.Wait()
	r.log.Info("runtime stopped", zap.Uint64("frames", r.frame.Load()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
