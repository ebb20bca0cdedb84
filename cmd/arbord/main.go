package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arborlabs/arbor/internal/core/events"
	"github.com/arborlabs/arbor/internal/core/graph"
	"github.com/arborlabs/arbor/internal/core/observability/log"
	"github.com/arborlabs/arbor/internal/runtime"
)

// spinner is a demo component that accumulates rotation each tick.
type spinner struct {
	graph.ComponentCore
	speed float64
	angle float64
}

func (*spinner) TypeName() string { return "arbord.Spinner" }

func (s *spinner) Tick(dt float64) {
	s.angle += s.speed * dt
}

func main() {
	configPath := flag.String("config", "arbord.yaml", "path to runtime config")
	flag.Parse()

	cfg, err := runtime.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	logger := log.New(log.ParseLevel(cfg.LogLevel))
	defer func() { _ = logger.Sync() }()

	rt, err := runtime.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "runtime error:", err)
		os.Exit(1)
	}
	if err := buildDemoScene(rt); err != nil {
		fmt.Fprintln(os.Stderr, "scene error:", err)
		os.Exit(1)
	}

	rt.Bus().Subscribe(events.TypeNodeDestroyed, func(ev events.Event) {
		logger.Debug("node destroyed", zap.String("source", ev.Source))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-stopCh
		cancel()
	}()

	if err := rt.Run(ctx); err != nil {
		logger.Error("runtime failed", zap.Error(err))
		os.Exit(1)
	}
}

// buildDemoScene spawns a small hierarchy: a hub with a few spinners, half
// of them gated by a relevance policy so the amortized evaluator has work.
func buildDemoScene(rt *runtime.Runtime) error {
	level := rt.Level()
	hub, err := level.Spawn("hub")
	if err != nil {
		return err
	}

	for i := 0; i < 4; i++ {
		child, err := level.SpawnChild(hub, fmt.Sprintf("spinner-%d", i))
		if err != nil {
			return err
		}
		if _, err := graph.AddComponent(level.Graph, child, &spinner{speed: float64(i + 1)}); err != nil {
			return err
		}
		if i%2 == 0 {
			continue
		}
		// Odd spinners flip relevance with their owner's spin angle.
		policy := graph.RelevancePolicyFunc(func(ctx graph.RelevanceContext) bool {
			s := graph.BorrowedComponent[spinner](ctx.Graph, ctx.Node)
			return s == nil || int(s.angle)%2 == 0
		})
		if _, err := graph.AddComponent(level.Graph, child, graph.NewRelevanceComponent(policy)); err != nil {
			return err
		}
	}
	return nil
}
