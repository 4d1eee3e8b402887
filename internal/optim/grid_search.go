package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
)

var ErrNoCandidate = errors.New("no candidate satisfies the constraints")

// Candidate is one tension/friction pair and how its run scored.
type Candidate struct {
	Tension   float64
	Friction  float64
	Score     float64
	Overshoot float64
	Settled   bool
	Feasible  bool
}

// GridSearch runs base once per tension/friction pair and keeps the one
// with the lowest Objective among runs that settled within MaxOvershoot.
type GridSearch struct {
	Tensions  []float64
	Frictions []float64

	// Objective is the metric minimised. Defaults to settle_time.
	Objective string
	// MaxOvershoot rejects candidates overshooting more than this fraction
	// of travel. Negative disables the check.
	MaxOvershoot float64
	// Workers bounds concurrent runs. Zero means GOMAXPROCS.
	Workers int
}

func NewGridSearch(tensions, frictions []float64) *GridSearch {
	return &GridSearch{
		Tensions:     tensions,
		Frictions:    frictions,
		Objective:    "settle_time",
		MaxOvershoot: -1,
	}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	stride := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*stride
	}
	return out
}

// Search evaluates the whole grid. Candidates come back tension-major in
// grid order whatever order the runs finished in.
func (g *GridSearch) Search(ctx context.Context, base *config.Config) (Candidate, []Candidate, error) {
	objective := g.Objective
	if objective == "" {
		objective = "settle_time"
	}
	if _, err := experiment.GetMetric(objective, base); err != nil {
		return Candidate{}, nil, err
	}
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	all := make([]Candidate, len(g.Tensions)*len(g.Frictions))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, tension := range g.Tensions {
		for j, friction := range g.Frictions {
			idx := i*len(g.Frictions) + j
			eg.Go(func() error {
				c, err := g.evaluate(ctx, base, objective, tension, friction)
				if err != nil {
					return fmt.Errorf("tension=%g friction=%g: %w", tension, friction, err)
				}
				all[idx] = c
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return Candidate{}, nil, err
	}

	best := Candidate{Score: math.Inf(1)}
	found := false
	for _, c := range all {
		if c.Feasible && c.Score < best.Score {
			best = c
			found = true
		}
	}
	if !found {
		return Candidate{}, all, ErrNoCandidate
	}
	return best, all, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, objective string, tension, friction float64) (Candidate, error) {
	cfg := *base
	cfg.Spring.Tension = tension
	cfg.Spring.Friction = friction

	exp, err := experiment.New(&cfg)
	if err != nil {
		return Candidate{}, err
	}
	for _, name := range []string{objective, "overshoot"} {
		m, err := experiment.GetMetric(name, &cfg)
		if err != nil {
			return Candidate{}, err
		}
		exp.AddMetric(m)
	}

	result, err := exp.Run(ctx)
	if err != nil {
		return Candidate{}, err
	}

	c := Candidate{
		Tension:   tension,
		Friction:  friction,
		Score:     result.Metrics[objective],
		Overshoot: result.Metrics["overshoot"],
		Settled:   result.Settled,
	}
	c.Feasible = c.Settled && c.Score >= 0 &&
		(g.MaxOvershoot < 0 || c.Overshoot <= g.MaxOvershoot)
	return c, nil
}
