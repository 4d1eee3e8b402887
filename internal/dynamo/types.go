package dynamo

import "math"

type State []float64

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Positions returns the first half of a [x..., v...] state.
func (s State) Positions() State {
	return s[:len(s)/2]
}

// Velocities returns the second half of a [x..., v...] state.
func (s State) Velocities() State {
	return s[len(s)/2:]
}

// System is a first-order ODE dX/dt = f(X, t). Second-order systems lay
// their state out as positions followed by velocities.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Settled    bool
	Errors     []error
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
