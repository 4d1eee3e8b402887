package metrics

import (
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
)

// SettleTime is the time after which every axis stays within band of its
// target. It is -1 while the last observation is still outside the band.
type SettleTime struct {
	name      string
	target    []float64
	band      float64
	settledAt float64
	inside    bool
}

func NewSettleTime(target []float64, band float64) *SettleTime {
	return &SettleTime{
		name:      "settle_time",
		target:    target,
		band:      band,
		settledAt: -1,
	}
}

func (s *SettleTime) Name() string { return s.name }

func (s *SettleTime) Observe(x dynamo.State, t float64) {
	in := true
	for i, p := range x.Positions() {
		if i < len(s.target) && math.Abs(p-s.target[i]) > s.band {
			in = false
			break
		}
	}
	switch {
	case in && !s.inside:
		s.settledAt = t
	case !in:
		s.settledAt = -1
	}
	s.inside = in
}

func (s *SettleTime) Value() float64 { return s.settledAt }

func (s *SettleTime) Reset() {
	s.settledAt = -1
	s.inside = false
}

// PeakVelocity is the largest speed seen on any axis.
type PeakVelocity struct {
	name string
	peak float64
}

func NewPeakVelocity() *PeakVelocity {
	return &PeakVelocity{name: "peak_velocity"}
}

func (p *PeakVelocity) Name() string { return p.name }

func (p *PeakVelocity) Observe(x dynamo.State, t float64) {
	for _, v := range x.Velocities() {
		p.peak = math.Max(p.peak, math.Abs(v))
	}
}

func (p *PeakVelocity) Value() float64 { return p.peak }

func (p *PeakVelocity) Reset() { p.peak = 0 }
