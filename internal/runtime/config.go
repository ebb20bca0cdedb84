package runtime

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arborlabs/arbor/internal/core/graph"
)

// Config describes one runtime instance. All fields have working defaults;
// a missing config file is not an error.
type Config struct {
	// WorldName names the root level.
	WorldName string `json:"world_name" yaml:"world_name"`
	// TickRate is the target variable-rate ticks per second.
	TickRate int `json:"tick_rate" yaml:"tick_rate"`
	// FixedDelta is the fixed-timestep interval in seconds. Zero disables
	// the fixed tick.
	FixedDelta float64 `json:"fixed_delta" yaml:"fixed_delta"`
	// MaxFixedStepsPerFrame bounds fixed-tick catch-up after a frame spike.
	MaxFixedStepsPerFrame int `json:"max_fixed_steps_per_frame" yaml:"max_fixed_steps_per_frame"`
	// RelevanceBudget caps relevance evaluations per tick; zero means all.
	RelevanceBudget int `json:"relevance_budget" yaml:"relevance_budget"`
	// LogLevel is one of debug, info, warn, error, silent.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		WorldName:             "world",
		TickRate:              60,
		FixedDelta:            1.0 / 50.0,
		MaxFixedStepsPerFrame: 4,
		RelevanceBudget:       0,
		LogLevel:              "info",
	}
}

// LoadConfig reads a YAML config from r over the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, graph.WrapError(graph.CodeInvalidArgument, "runtime: malformed config", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config file over the defaults. A missing file
// yields the defaults.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, graph.WrapError(graph.CodeInvalidArgument, "runtime: cannot open config", err)
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

// Validate rejects settings the frame loop cannot run with.
func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return graph.NewError(graph.CodeInvalidArgument, "runtime: tick_rate must be positive")
	}
	if c.FixedDelta < 0 {
		return graph.NewError(graph.CodeInvalidArgument, "runtime: fixed_delta cannot be negative")
	}
	if c.MaxFixedStepsPerFrame <= 0 {
		return graph.NewError(graph.CodeInvalidArgument, "runtime: max_fixed_steps_per_frame must be positive")
	}
	if c.RelevanceBudget < 0 {
		return graph.NewError(graph.CodeInvalidArgument, "runtime: relevance_budget cannot be negative")
	}
	return nil
}
