package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/synth"
)

const (
	DefaultSweep      = 100.0
	DefaultPoints     = 1024
	DefaultIterations = 10000
	DefaultStoreKind  = "file"
	DefaultStorePath  = "runs"
)

type Config struct {
	Sweep        float64       `yaml:"sweep"`
	Points       int           `yaml:"points"`
	Seed         int64         `yaml:"seed"`
	Iterations   int           `yaml:"iterations"`
	Experimental string        `yaml:"experimental,omitempty"`
	Strict       bool          `yaml:"strict"`
	Store        StoreConfig   `yaml:"store"`
	Radicals     []epr.Radical `yaml:"radicals"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

func DefaultConfig() *Config {
	return &Config{
		Sweep:      DefaultSweep,
		Points:     DefaultPoints,
		Iterations: DefaultIterations,
		Store: StoreConfig{
			Kind: DefaultStoreKind,
			Path: DefaultStorePath,
		},
		Radicals: []epr.Radical{epr.Probe()},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
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

// Validate checks the values a session cannot start with. Zero sweep and
// zero points are allowed; they are taken from the experimental data.
func (c *Config) Validate() error {
	if c.Points < 0 || c.Points == 1 {
		return fmt.Errorf("points must be 0 or at least 2, got %d", c.Points)
	}
	if c.Sweep < 0 {
		return fmt.Errorf("sweep must not be negative, got %f", c.Sweep)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d", c.Iterations)
	}
	switch c.Store.Kind {
	case "", "file", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	return nil
}

// Settings fills unset sweep and points from the experimental data.
// dataPoints and dataSweep are 0 when no data is loaded.
func (c *Config) Settings(dataPoints int, dataSweep float64) (synth.Settings, error) {
	s := synth.Settings{Sweep: c.Sweep, Points: c.Points}
	if s.Points == 0 {
		s.Points = dataPoints
	}
	if s.Sweep == 0 {
		s.Sweep = dataSweep
	}
	if s.Points < 2 {
		return s, fmt.Errorf("points unset and no experimental data to take them from: %w", epr.ErrDimensionMismatch)
	}
	if s.Sweep <= 0 {
		return s, fmt.Errorf("sweep unset and experimental data has no field axis: %w", epr.ErrDimensionMismatch)
	}
	return s, nil
}
