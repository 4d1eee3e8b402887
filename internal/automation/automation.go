package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/experiment"
)

// Scenario is a scripted sequence of motions.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the base config for one run. Zero fields keep the
// base value.
type ScenarioStep struct {
	Preset     string    `yaml:"preset"`
	Integrator string    `yaml:"integrator"`
	Tension    float64   `yaml:"tension"`
	Friction   float64   `yaml:"friction"`
	Clamp      bool      `yaml:"clamp"`
	Duration   float64   `yaml:"duration"`
	Dt         float64   `yaml:"dt"`
	From       []float64 `yaml:"from"`
	To         []float64 `yaml:"to"`
	Velocity   []float64 `yaml:"velocity"`
	SaveAs     string    `yaml:"save_as"`
}

// StepResult pairs a finished step with the config it ran under.
type StepResult struct {
	Step   ScenarioStep
	Config *config.Config
	Result *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	return &scenario, nil
}

// Apply layers the step over base and validates the result.
func (s ScenarioStep) Apply(base *config.Config) (*config.Config, error) {
	cfg := *base
	if s.Preset != "" {
		p := base.Preset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
		cfg.Spring = *p
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Tension != 0 {
		cfg.Spring.Tension = s.Tension
	}
	if s.Friction != 0 {
		cfg.Spring.Friction = s.Friction
	}
	if s.Clamp {
		cfg.Spring.OvershootClamping = true
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	if s.From != nil {
		cfg.Motion.From = s.From
	}
	if s.To != nil {
		cfg.Motion.To = s.To
	}
	if s.Velocity != nil {
		cfg.Motion.Velocity = s.Velocity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunScenario runs every step in order with the default metrics. onStep,
// when set, sees each result as soon as it finishes; an error from it
// stops the scenario.
func RunScenario(ctx context.Context, base *config.Config, scenario *Scenario, onStep func(i int, r StepResult) error) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Apply(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		for _, m := range experiment.DefaultMetrics(cfg) {
			exp.AddMetric(m)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		r := StepResult{Step: step, Config: cfg, Result: result}
		results = append(results, r)
		if onStep != nil {
			if err := onStep(i, r); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return results, nil
}

type MonteCarloConfig struct {
	// Perturbation is the half-width of the uniform noise added to every
	// start value and velocity.
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID    int
	From       []float64
	Velocity   []float64
	Settled    bool
	SettleTime float64
	Overshoot  float64
}

// RunMonteCarlo reruns base with randomly perturbed initial conditions.
func RunMonteCarlo(ctx context.Context, base *config.Config, mc MonteCarloConfig) ([]MonteCarloResult, error) {
	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	axes := base.Motion.Axes()
	results := make([]MonteCarloResult, 0, mc.NumTrials)
	for trial := 0; trial < mc.NumTrials; trial++ {
		from := make([]float64, axes)
		vel := make([]float64, axes)
		for i := range from {
			from[i] = base.Motion.From[i] + (rng.Float64()-0.5)*2*mc.Perturbation
			if len(base.Motion.Velocity) > 0 {
				vel[i] = base.Motion.Velocity[i]
			}
			vel[i] += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		}

		cfg := *base
		cfg.Motion = config.MotionConfig{From: from, To: base.Motion.To, Velocity: vel}

		exp, err := experiment.New(&cfg)
		if err != nil {
			return nil, err
		}
		for _, name := range []string{"settle_time", "overshoot"} {
			m, err := experiment.GetMetric(name, &cfg)
			if err != nil {
				return nil, err
			}
			exp.AddMetric(m)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		results = append(results, MonteCarloResult{
			TrialID:    trial,
			From:       from,
			Velocity:   vel,
			Settled:    result.Settled,
			SettleTime: result.Metrics["settle_time"],
			Overshoot:  result.Metrics["overshoot"],
		})
	}
	return results, nil
}

// MonteCarloStats counts settled trials and averages their settle time.
func MonteCarloStats(results []MonteCarloResult) (settled, unsettled int, meanSettle float64) {
	total := 0.0
	for _, r := range results {
		if r.Settled {
			settled++
			total += r.SettleTime
		} else {
			unsettled++
		}
	}
	if settled > 0 {
		meanSettle = total / float64(settled)
	}
	return
}
