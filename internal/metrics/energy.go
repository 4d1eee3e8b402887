package metrics

import "github.com/san-kum/springsim/internal/dynamo"

// Energy tracks the mechanical energy of a set of unit-mass springs,
// 0.5*k*(end-x)^2 + 0.5*v^2 summed over axes. Its value is the fraction of
// the first observed energy still present at the last observation.
type Energy struct {
	name    string
	tension []float64
	target  []float64
	initial float64
	current float64
	samples int
}

func NewEnergy(tension, target []float64) *Energy {
	return &Energy{
		name:    "energy_ratio",
		tension: tension,
		target:  target,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	pos, vel := x.Positions(), x.Velocities()
	total := 0.0
	for i := range pos {
		if i >= len(e.tension) || i >= len(e.target) {
			break
		}
		d := e.target[i] - pos[i]
		total += 0.5*e.tension[i]*d*d + 0.5*vel[i]*vel[i]
	}
	if e.samples == 0 {
		e.initial = total
	}
	e.current = total
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.initial == 0 {
		return 0
	}
	return e.current / e.initial
}

// Initial is the energy at the first observation.
func (e *Energy) Initial() float64 { return e.initial }

func (e *Energy) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}
