package analysis

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/san-kum/springsim/internal/spring"
)

// Reference samples the closed-form solution of the spring equation every
// dt seconds, n samples after the start. A unit-mass spring with tension k
// and friction c has angular frequency sqrt(k) and damping ratio
// c/(2*sqrt(k)).
func Reference(cfg spring.Config, from, to, velocity, dt float64, n int) []float64 {
	s := harmonica.NewSpring(dt, NaturalFrequency(cfg), cfg.DampingRatio())
	out := make([]float64, n)
	pos, vel := from, velocity
	for i := range out {
		pos, vel = s.Update(pos, vel, to)
		out[i] = pos
	}
	return out
}

// MaxDeviation is the largest absolute difference between a and b over
// their common length.
func MaxDeviation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	worst := 0.0
	for i := 0; i < n; i++ {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}
