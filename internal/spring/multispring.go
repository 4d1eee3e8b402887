package spring

import (
	"fmt"

	"github.com/san-kum/springsim/internal/dynamo"
)

// MultiSpring animates a fixed-size vector, one Spring per component.
type MultiSpring struct {
	system    *System
	springs   []*Spring
	listeners registry[VectorListener]
	touched   bool
}

// CreateMultiSpring builds n components sharing one Config.
func (s *System) CreateMultiSpring(n int, cfg Config) (*MultiSpring, error) {
	if n <= 0 {
		return nil, &dynamo.ParameterError{Name: "components", Value: float64(n), Reason: "must be positive"}
	}
	cfgs := make([]Config, n)
	for i := range cfgs {
		cfgs[i] = cfg
	}
	return s.CreateMultiSpringPerAxis(cfgs...)
}

// CreateMultiSpringPerAxis builds one component per Config.
func (s *System) CreateMultiSpringPerAxis(cfgs ...Config) (*MultiSpring, error) {
	if len(cfgs) == 0 {
		return nil, &dynamo.ParameterError{Name: "components", Value: 0, Reason: "must be positive"}
	}
	m := &MultiSpring{system: s, springs: make([]*Spring, 0, len(cfgs))}
	for i, cfg := range cfgs {
		sp, err := s.CreateSpringWithConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		sp.group = m
		m.springs = append(m.springs, sp)
	}
	return m, nil
}

func (m *MultiSpring) Len() int { return len(m.springs) }

func (m *MultiSpring) Component(i int) *Spring { return m.springs[i] }

// CurrentValue gathers a fresh vector on every call.
func (m *MultiSpring) CurrentValue() []float64 {
	v := make([]float64, len(m.springs))
	for i, sp := range m.springs {
		v[i] = sp.current
	}
	return v
}

func (m *MultiSpring) EndValue() []float64 {
	v := make([]float64, len(m.springs))
	for i, sp := range m.springs {
		v[i] = sp.end
	}
	return v
}

func (m *MultiSpring) Velocity() []float64 {
	v := make([]float64, len(m.springs))
	for i, sp := range m.springs {
		v[i] = sp.velocity
	}
	return v
}

func (m *MultiSpring) IsAtRest() bool {
	for _, sp := range m.springs {
		if !sp.IsAtRest() {
			return false
		}
	}
	return true
}

func (m *MultiSpring) SetEndValue(v []float64) error {
	if err := m.check("end value", v); err != nil {
		return err
	}
	for i, sp := range m.springs {
		sp.setEndValue(v[i])
	}
	return nil
}

// SetCurrentValue jumps every component and then notifies composite
// listeners once with the whole vector.
func (m *MultiSpring) SetCurrentValue(v []float64) error {
	if err := m.check("current value", v); err != nil {
		return err
	}
	for i, sp := range m.springs {
		sp.setCurrentValue(v[i])
	}
	m.notify()
	return nil
}

func (m *MultiSpring) SetVelocity(v []float64) error {
	if err := m.check("velocity", v); err != nil {
		return err
	}
	for i, sp := range m.springs {
		sp.setVelocity(v[i])
	}
	return nil
}

func (m *MultiSpring) Halt() {
	for _, sp := range m.springs {
		sp.Halt()
	}
}

func (m *MultiSpring) AddListener(l VectorListener) Handle {
	return m.listeners.add(l)
}

func (m *MultiSpring) RemoveListener(h Handle) bool {
	return m.listeners.remove(h)
}

// check validates the whole vector before any component is touched.
func (m *MultiSpring) check(name string, v []float64) error {
	if len(v) != len(m.springs) {
		return fmt.Errorf("%w: %s has %d components, want %d", dynamo.ErrDimensionMismatch, name, len(v), len(m.springs))
	}
	for i, x := range v {
		if err := dynamo.CheckFinite(fmt.Sprintf("%s[%d]", name, i), x); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSpring) notify() {
	if m.listeners.len() == 0 {
		return
	}
	value := m.CurrentValue()
	m.listeners.each(func(h Handle, l VectorListener) {
		v := make([]float64, len(value))
		copy(v, value)
		m.system.call(m.springs[0].id, h, func() { l.OnUpdate(v) })
	})
}
