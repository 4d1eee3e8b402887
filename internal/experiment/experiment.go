package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/spring"
)

// Experiment drives one MultiSpring from Motion.From to Motion.To at a
// fixed dt, headless, recording every frame.
type Experiment struct {
	cfg     *config.Config
	system  *spring.System
	motion  *spring.MultiSpring
	metrics []dynamo.Metric
	errs    []error
}

func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sysCfg, err := cfg.SystemConfig()
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg}
	sysCfg.OnListenerError = func(err error) { e.errs = append(e.errs, err) }

	e.system, err = spring.NewSystem(sysCfg)
	if err != nil {
		return nil, err
	}
	e.motion, err = e.system.CreateMultiSpring(cfg.Motion.Axes(), cfg.Spring.Spring())
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) AddMetric(m dynamo.Metric) { e.metrics = append(e.metrics, m) }

// System returns the underlying system for adding observers.
func (e *Experiment) System() *spring.System { return e.system }

func (e *Experiment) Motion() *spring.MultiSpring { return e.motion }

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	m := e.cfg.Motion
	if err := e.motion.SetCurrentValue(m.From); err != nil {
		return nil, err
	}
	if len(m.Velocity) > 0 {
		if err := e.motion.SetVelocity(m.Velocity); err != nil {
			return nil, err
		}
	}
	if err := e.motion.SetEndValue(m.To); err != nil {
		return nil, err
	}

	dt := e.cfg.Dt
	steps := int(math.Ceil(e.cfg.Duration/dt - 1e-9))
	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}
	e.errs = e.errs[:0]
	for _, metric := range e.metrics {
		metric.Reset()
	}

	t := 0.0
	e.record(result, t)

	var runErr error
	active := e.system.Active()
	for i := 0; i < steps && active; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		var err error
		active, err = e.system.Tick(dt)
		if err != nil {
			runErr = fmt.Errorf("tick %d: %w", i, err)
			break
		}
		t += dt
		result.StepsTaken++
		e.record(result, t)
	}

	result.Settled = !e.system.Active()
	result.Errors = append(result.Errors, e.errs...)
	for _, metric := range e.metrics {
		result.Metrics[metric.Name()] = metric.Value()
	}
	return result, runErr
}

func (e *Experiment) record(result *dynamo.Result, t float64) {
	x := make(dynamo.State, 0, 2*e.motion.Len())
	x = append(x, e.motion.CurrentValue()...)
	x = append(x, e.motion.Velocity()...)
	for _, metric := range e.metrics {
		metric.Observe(x, t)
	}
	result.States = append(result.States, x)
	result.Times = append(result.Times, t)
}
