package spring

import (
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
)

// Spring is one scalar driven toward its end value by a damped oscillator.
// It is owned by the System that created it and shares its goroutine.
type Spring struct {
	id     uint64
	system *System
	group  *MultiSpring
	cfg    Config

	current  float64
	velocity float64
	end      float64
	start    float64

	resting bool
	queued  bool
	// deferred marks a spring woken while its system was ticking.
	deferred bool
	// restPending is set while the final update of an animation is being
	// delivered and OnRest has not fired yet.
	restPending bool

	listeners      registry[Listener]
	stateListeners registry[StateListener]
}

func (s *Spring) ID() uint64            { return s.id }
func (s *Spring) System() *System       { return s.system }
func (s *Spring) Config() Config        { return s.cfg }
func (s *Spring) CurrentValue() float64 { return s.current }
func (s *Spring) EndValue() float64     { return s.end }
func (s *Spring) StartValue() float64   { return s.start }
func (s *Spring) Velocity() float64     { return s.velocity }

// SetConfig swaps the physical constants. Motion continues from the
// current state under the new constants.
func (s *Spring) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// SetCurrentValue jumps to v with zero velocity and notifies listeners
// before returning.
func (s *Spring) SetCurrentValue(v float64) error {
	if err := dynamo.CheckFinite("current value", v); err != nil {
		return err
	}
	s.setCurrentValue(v)
	return nil
}

func (s *Spring) setCurrentValue(v float64) {
	s.start = v
	s.current = v
	s.velocity = 0
	s.notify()
	s.wake()
}

// SetEndValue retargets the spring. Listeners hear about it on the next
// tick, not here.
func (s *Spring) SetEndValue(v float64) error {
	if err := dynamo.CheckFinite("end value", v); err != nil {
		return err
	}
	s.setEndValue(v)
	return nil
}

func (s *Spring) setEndValue(v float64) {
	if v != s.end {
		s.start = s.current
		s.end = v
	}
	s.wake()
}

func (s *Spring) SetVelocity(v float64) error {
	if err := dynamo.CheckFinite("velocity", v); err != nil {
		return err
	}
	s.setVelocity(v)
	return nil
}

func (s *Spring) setVelocity(v float64) {
	s.velocity = v
	s.wake()
}

// Halt stops the spring where it is. Listeners are not notified since the
// value does not change.
func (s *Spring) Halt() {
	s.end = s.current
	s.start = s.current
	s.velocity = 0
	if !s.resting {
		s.resting = true
		s.fireRest()
	}
}

func (s *Spring) IsAtRest() bool {
	return s.restingAt(s.current, s.velocity)
}

func (s *Spring) restingAt(x, v float64) bool {
	return math.Abs(s.end-x) <= s.cfg.RestDisplacement && math.Abs(v) <= s.cfg.RestVelocity
}

func (s *Spring) Displacement() float64 {
	return math.Abs(s.end - s.current)
}

// IsOvershooting reports whether the value has crossed the end value on its
// way from the start value.
func (s *Spring) IsOvershooting() bool {
	return s.overshootingAt(s.current)
}

func (s *Spring) overshootingAt(x float64) bool {
	return (s.start < s.end && x > s.end) || (s.start > s.end && x < s.end)
}

func (s *Spring) AddListener(l Listener) Handle {
	return s.listeners.add(l)
}

func (s *Spring) RemoveListener(h Handle) bool {
	return s.listeners.remove(h)
}

func (s *Spring) ListenerCount() int {
	return s.listeners.len()
}

func (s *Spring) AddStateListener(l StateListener) Handle {
	return s.stateListeners.add(l)
}

func (s *Spring) RemoveStateListener(h Handle) bool {
	return s.stateListeners.remove(h)
}

// Derive implements dynamo.System for the state [x, v].
func (s *Spring) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], s.cfg.Tension*(s.end-x[0]) - s.cfg.Friction*x[1]}
}

func (s *Spring) StateDim() int { return 2 }

// wake puts a displaced spring into the active set, or settles one that
// was mutated into its exact resting state.
func (s *Spring) wake() {
	if s.current != s.end || s.velocity != 0 {
		if s.resting {
			s.flushRest()
			if !s.resting {
				return
			}
			s.resting = false
			s.deferred = s.system.ticking
			s.system.activate(s)
			s.fireActivate()
		}
		return
	}
	if !s.resting {
		s.resting = true
		s.fireRest()
	}
}

func (s *Spring) advance(dt float64) {
	if s.resting {
		return
	}

	steps, h := s.system.substeps(dt, s.cfg)
	x := dynamo.State{s.current, s.velocity}
	t := 0.0
	for i := 0; i < steps; i++ {
		x = s.system.integrator.Step(s, x, t, h)
		t += h
		if !x.IsValid() {
			break
		}
		if s.restingAt(x[0], x[1]) || (s.cfg.OvershootClamping && s.overshootingAt(x[0])) {
			break
		}
	}

	settled := false
	if !x.IsValid() {
		s.system.report(&dynamo.SimulationError{Step: int(s.system.ticks), Time: t, State: x, Wrapped: dynamo.ErrInvalidState})
		settled = true
	} else {
		s.current, s.velocity = x[0], x[1]
		settled = s.IsAtRest() || (s.cfg.OvershootClamping && s.IsOvershooting())
	}

	if settled {
		s.current = s.end
		s.velocity = 0
		s.resting = true
		s.restPending = true
	}
	s.notify()
	s.flushRest()
}

// flushRest delivers an OnRest that is still owed, so that a listener
// retargeting the spring from its final update sees rest before the next
// activation.
func (s *Spring) flushRest() {
	if s.restPending {
		s.restPending = false
		s.fireRest()
	}
}

func (s *Spring) notify() {
	value := s.current
	s.listeners.each(func(h Handle, l Listener) {
		s.system.call(s.id, h, func() { l.OnUpdate(value) })
	})
}

func (s *Spring) fireActivate() {
	s.stateListeners.each(func(h Handle, l StateListener) {
		s.system.call(s.id, h, func() { l.OnActivate(s) })
	})
}

func (s *Spring) fireRest() {
	s.stateListeners.each(func(h Handle, l StateListener) {
		s.system.call(s.id, h, func() { l.OnRest(s) })
	})
}
