package metrics

import (
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
)

// Overshoot is the largest excursion past the target on any axis, as a
// fraction of that axis's travel distance.
type Overshoot struct {
	name string
	from []float64
	to   []float64
	max  float64
}

func NewOvershoot(from, to []float64) *Overshoot {
	return &Overshoot{name: "overshoot", from: from, to: to}
}

func (o *Overshoot) Name() string { return o.name }

func (o *Overshoot) Observe(x dynamo.State, t float64) {
	pos := x.Positions()
	for i := range pos {
		if i >= len(o.from) || i >= len(o.to) {
			break
		}
		travel := o.to[i] - o.from[i]
		if travel == 0 {
			continue
		}
		past := (pos[i] - o.to[i]) / travel
		o.max = math.Max(o.max, past)
	}
}

func (o *Overshoot) Value() float64 { return o.max }

func (o *Overshoot) Reset() { o.max = 0 }
