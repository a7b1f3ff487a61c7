// Package engine turns transfer-function requests into sampled step, impulse
// and ramp responses plus step-response metrics.
//
// An Engine holds configuration only. Every request is validated, realized
// and simulated from scratch, so a single Engine may serve any number of
// goroutines. Limits are enforced, never clamped: callers that want clamping
// apply it before calling.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/logging"
	"github.com/san-kum/ltiresp/internal/lti"
	"github.com/san-kum/ltiresp/internal/metrics"
	"github.com/san-kum/ltiresp/internal/sim"
)

const (
	DefaultMaxTimePoints = 100
	DefaultMaxTimeEnd    = 5.0
	DefaultBatchWorkers  = 4
)

// Limits bound the size of a request.
type Limits struct {
	MaxDegree     int
	MaxTimePoints int
	MaxTimeEnd    float64
}

type Config struct {
	Limits             Limits
	Simulation         sim.Options
	SettlingThresholds []float64
	BatchWorkers       int
}

func DefaultConfig() Config {
	return Config{
		Limits: Limits{
			MaxDegree:     lti.DefaultMaxDegree,
			MaxTimePoints: DefaultMaxTimePoints,
			MaxTimeEnd:    DefaultMaxTimeEnd,
		},
		Simulation:         sim.DefaultOptions(),
		SettlingThresholds: metrics.DefaultThresholds(),
		BatchWorkers:       DefaultBatchWorkers,
	}
}

func (c Config) Validate() error {
	if c.Limits.MaxDegree < 0 {
		return fmt.Errorf("max degree %d: %w", c.Limits.MaxDegree, dynamo.ErrParameterBounds)
	}
	if c.Limits.MaxTimePoints < 1 {
		return fmt.Errorf("max time points %d: %w", c.Limits.MaxTimePoints, dynamo.ErrParameterBounds)
	}
	if !(c.Limits.MaxTimeEnd > 0) {
		return fmt.Errorf("max time end %g: %w", c.Limits.MaxTimeEnd, dynamo.ErrParameterBounds)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch workers %d: %w", c.BatchWorkers, dynamo.ErrParameterBounds)
	}
	return c.Simulation.Validate()
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type Engine struct {
	cfg      Config
	sim      *sim.Simulator
	analyzer *metrics.StepAnalyzer
	logger   *slog.Logger
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	s, err := sim.New(cfg.Simulation, e.logger)
	if err != nil {
		return nil, err
	}
	analyzer, err := metrics.NewStepAnalyzer(cfg.SettlingThresholds...)
	if err != nil {
		return nil, err
	}
	e.sim, e.analyzer = s, analyzer
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.SettlingThresholds = append([]float64(nil), e.cfg.SettlingThresholds...)
	return cfg
}
