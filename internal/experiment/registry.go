package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/metrics"
)

type metricFactory func(cfg *config.Config) dynamo.Metric

var metricFactories = map[string]metricFactory{
	"overshoot": func(cfg *config.Config) dynamo.Metric {
		return metrics.NewOvershoot(cfg.Motion.From, cfg.Motion.To)
	},
	"settle_time": func(cfg *config.Config) dynamo.Metric {
		return metrics.NewSettleTime(cfg.Motion.To, cfg.Spring.Spring().RestDisplacement)
	},
	"peak_velocity": func(cfg *config.Config) dynamo.Metric {
		return metrics.NewPeakVelocity()
	},
	"energy_ratio": func(cfg *config.Config) dynamo.Metric {
		tension := make([]float64, cfg.Motion.Axes())
		for i := range tension {
			tension[i] = cfg.Spring.Tension
		}
		return metrics.NewEnergy(tension, cfg.Motion.To)
	},
}

func GetMetric(name string, cfg *config.Config) (dynamo.Metric, error) {
	fn, ok := metricFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(cfg), nil
}

func ListMetrics() []string {
	names := make([]string, 0, len(metricFactories))
	for name := range metricFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics builds every registered metric for cfg.
func DefaultMetrics(cfg *config.Config) []dynamo.Metric {
	names := ListMetrics()
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		out = append(out, metricFactories[name](cfg))
	}
	return out
}
