//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/arborlabs/arbor/internal/core/observability/log"
	"github.com/arborlabs/arbor/internal/runtime"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

func ProvideRuntime(cfg runtime.Config, logger *log.Logger) (*runtime.Runtime, error) {
	wire.Build(runtime.New)
	return nil, nil
}
