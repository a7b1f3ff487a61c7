package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/logging"
	"github.com/san-kum/ltiresp/internal/metrics"
	"github.com/san-kum/ltiresp/internal/sim"
)

// Engine limits and numerical defaults come from engine.DefaultConfig.
const (
	DefaultMinTimeEnd      = 0.01
	DefaultAddr            = ":8000"
	DefaultAllowedOrigin   = "https://controle.malcong.com.br"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
	DefaultDataDir         = "runs"

	// Grid applied by the HTTP boundary when a request omits one.
	DefaultTimePoints = 100
	DefaultTimeEnd    = 10.0
)

type Config struct {
	Limits     LimitsConfig     `yaml:"limits"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Storage    StorageConfig    `yaml:"storage"`
}

type LimitsConfig struct {
	MaxTimePoints int     `yaml:"max_time_points" env:"LTIRESP_MAX_TIME_POINTS"`
	MaxTimeEnd    float64 `yaml:"max_time_end" env:"LTIRESP_MAX_TIME_END"`
	MinTimeEnd    float64 `yaml:"min_time_end" env:"LTIRESP_MIN_TIME_END"`
	MaxDegree     int     `yaml:"max_degree" env:"LTIRESP_MAX_DEGREE"`
}

type SimulationConfig struct {
	DivergenceGuard    float64   `yaml:"divergence_guard" env:"LTIRESP_DIVERGENCE_GUARD"`
	ConditionLimit     float64   `yaml:"condition_limit" env:"LTIRESP_CONDITION_LIMIT"`
	RK4MaxStep         float64   `yaml:"rk4_max_step" env:"LTIRESP_RK4_MAX_STEP"`
	MaxSubsteps        int       `yaml:"max_substeps" env:"LTIRESP_MAX_SUBSTEPS"`
	SettlingThresholds []float64 `yaml:"settling_thresholds" env:"LTIRESP_SETTLING_THRESHOLDS" envSeparator:","`
	BatchWorkers       int       `yaml:"batch_workers" env:"LTIRESP_BATCH_WORKERS"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"LTIRESP_ADDR"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"LTIRESP_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LTIRESP_SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LTIRESP_LOG_LEVEL"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir" env:"LTIRESP_DATA_DIR"`
}

func DefaultConfig() *Config {
	eng := engine.DefaultConfig()
	return &Config{
		Limits: LimitsConfig{
			MaxTimePoints: eng.Limits.MaxTimePoints,
			MaxTimeEnd:    eng.Limits.MaxTimeEnd,
			MinTimeEnd:    DefaultMinTimeEnd,
			MaxDegree:     eng.Limits.MaxDegree,
		},
		Simulation: SimulationConfig{
			DivergenceGuard:    eng.Simulation.DivergenceGuard,
			ConditionLimit:     eng.Simulation.ConditionLimit,
			RK4MaxStep:         eng.Simulation.MaxRK4Step,
			MaxSubsteps:        eng.Simulation.MaxSubsteps,
			SettlingThresholds: eng.SettlingThresholds,
			BatchWorkers:       eng.BatchWorkers,
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			AllowedOrigins:  []string{DefaultAllowedOrigin},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log:     LogConfig{Level: DefaultLogLevel},
		Storage: StorageConfig{DataDir: DefaultDataDir},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !(c.Limits.MinTimeEnd > 0) || c.Limits.MinTimeEnd > c.Limits.MaxTimeEnd {
		return fmt.Errorf("min time end %g must lie in (0, %g]: %w",
			c.Limits.MinTimeEnd, c.Limits.MaxTimeEnd, dynamo.ErrParameterBounds)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is empty: %w", dynamo.ErrParameterBounds)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout %v: %w", c.Server.ShutdownTimeout, dynamo.ErrParameterBounds)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if err := c.Engine().Validate(); err != nil {
		return err
	}
	if _, err := metrics.NewStepAnalyzer(c.Simulation.SettlingThresholds...); err != nil {
		return err
	}
	return nil
}

// Engine converts the limits and simulation sections to an engine.Config.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Limits: engine.Limits{
			MaxDegree:     c.Limits.MaxDegree,
			MaxTimePoints: c.Limits.MaxTimePoints,
			MaxTimeEnd:    c.Limits.MaxTimeEnd,
		},
		Simulation: sim.Options{
			DivergenceGuard: c.Simulation.DivergenceGuard,
			ConditionLimit:  c.Simulation.ConditionLimit,
			MaxRK4Step:      c.Simulation.RK4MaxStep,
			MaxSubsteps:     c.Simulation.MaxSubsteps,
		},
		SettlingThresholds: append([]float64(nil), c.Simulation.SettlingThresholds...),
		BatchWorkers:       c.Simulation.BatchWorkers,
	}
}
