package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/spring"
)

const (
	DefaultDt       = 1.0 / 60.0
	DefaultDuration = 10.0
	DefaultFPS      = 60
	DefaultTo       = 100.0
)

type Config struct {
	Integrator string                  `yaml:"integrator"`
	Dt         float64                 `yaml:"dt"`
	Duration   float64                 `yaml:"duration"`
	MaxStep    float64                 `yaml:"max_step"`
	MaxDelta   float64                 `yaml:"max_delta"`
	FPS        int                     `yaml:"fps"`
	Spring     SpringConfig            `yaml:"spring"`
	Motion     MotionConfig            `yaml:"motion"`
	Presets    map[string]SpringConfig `yaml:"presets,omitempty"`
}

type SpringConfig struct {
	Tension           float64 `yaml:"tension"`
	Friction          float64 `yaml:"friction"`
	RestDisplacement  float64 `yaml:"rest_displacement"`
	RestVelocity      float64 `yaml:"rest_velocity"`
	OvershootClamping bool    `yaml:"overshoot_clamping"`
}

// MotionConfig describes one headless run: every axis starts at From with
// Velocity and is sent to To. An empty Velocity means at rest.
type MotionConfig struct {
	From     []float64 `yaml:"from"`
	To       []float64 `yaml:"to"`
	Velocity []float64 `yaml:"velocity,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: integrators.Default,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		MaxStep:    spring.DefaultMaxStep,
		FPS:        DefaultFPS,
		Spring:     FromSpring(spring.DefaultConfig()),
		Motion: MotionConfig{
			From: []float64{0},
			To:   []float64{DefaultTo},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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

func (c *Config) Validate() error {
	if _, err := integrators.New(c.Integrator); err != nil {
		return err
	}
	if err := dynamo.CheckPositive("dt", c.Dt); err != nil {
		return err
	}
	if err := dynamo.CheckPositive("duration", c.Duration); err != nil {
		return err
	}
	if err := dynamo.CheckPositive("max_step", c.MaxStep); err != nil {
		return err
	}
	if err := dynamo.CheckNonNegative("max_delta", c.MaxDelta); err != nil {
		return err
	}
	if c.FPS <= 0 {
		return &dynamo.ParameterError{Name: "fps", Value: float64(c.FPS), Reason: "must be positive"}
	}
	if err := c.Spring.Spring().Validate(); err != nil {
		return fmt.Errorf("spring: %w", err)
	}
	for name, p := range c.Presets {
		if err := p.Spring().Validate(); err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
	}
	return c.Motion.Validate()
}

func (m MotionConfig) Axes() int { return len(m.To) }

func (m MotionConfig) Validate() error {
	n := len(m.To)
	if n == 0 {
		return &dynamo.ParameterError{Name: "motion.to", Value: 0, Reason: "needs at least one axis"}
	}
	if len(m.From) != n {
		return fmt.Errorf("%w: motion.from has %d axes, motion.to has %d", dynamo.ErrDimensionMismatch, len(m.From), n)
	}
	if len(m.Velocity) != 0 && len(m.Velocity) != n {
		return fmt.Errorf("%w: motion.velocity has %d axes, motion.to has %d", dynamo.ErrDimensionMismatch, len(m.Velocity), n)
	}
	return nil
}

// SystemConfig builds the engine configuration for this run.
func (c *Config) SystemConfig() (spring.SystemConfig, error) {
	integ, err := integrators.New(c.Integrator)
	if err != nil {
		return spring.SystemConfig{}, err
	}
	return spring.SystemConfig{
		Integrator: integ,
		MaxStep:    c.MaxStep,
		MaxDelta:   c.MaxDelta,
	}, nil
}

// Spring converts to the engine's Config, filling unset rest thresholds
// with the engine defaults.
func (s SpringConfig) Spring() spring.Config {
	cfg := spring.NewConfig(s.Tension, s.Friction)
	if s.RestDisplacement != 0 {
		cfg.RestDisplacement = s.RestDisplacement
	}
	if s.RestVelocity != 0 {
		cfg.RestVelocity = s.RestVelocity
	}
	cfg.OvershootClamping = s.OvershootClamping
	return cfg
}

func FromSpring(cfg spring.Config) SpringConfig {
	return SpringConfig{
		Tension:           cfg.Tension,
		Friction:          cfg.Friction,
		RestDisplacement:  cfg.RestDisplacement,
		RestVelocity:      cfg.RestVelocity,
		OvershootClamping: cfg.OvershootClamping,
	}
}
