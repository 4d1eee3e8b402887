package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
)

// SweepPoint is one metric reading for one parameter value.
type SweepPoint struct {
	Param   float64
	Value   float64
	Settled bool
}

// Sweep reruns base with param ("tension" or "friction") stepped evenly from
// lo to hi and records the named metric of each run.
func Sweep(ctx context.Context, base *config.Config, param string, lo, hi float64, steps int, metric string) ([]SweepPoint, error) {
	if steps < 2 {
		steps = 2
	}
	stride := (hi - lo) / float64(steps-1)

	points := make([]SweepPoint, 0, steps)
	for i := 0; i < steps; i++ {
		v := lo + float64(i)*stride

		cfg := *base
		switch param {
		case "tension":
			cfg.Spring.Tension = v
		case "friction":
			cfg.Spring.Friction = v
		default:
			return nil, fmt.Errorf("unknown sweep parameter: %s", param)
		}

		exp, err := experiment.New(&cfg)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", param, v, err)
		}
		m, err := experiment.GetMetric(metric, &cfg)
		if err != nil {
			return nil, err
		}
		exp.AddMetric(m)

		result, err := exp.Run(ctx)
		if err != nil {
			return points, err
		}
		points = append(points, SweepPoint{Param: v, Value: result.Metrics[m.Name()], Settled: result.Settled})
	}
	return points, nil
}
