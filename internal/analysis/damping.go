package analysis

import (
	"math"

	"github.com/san-kum/springsim/internal/spring"
)

type Regime int

const (
	Underdamped Regime = iota
	CriticallyDamped
	Overdamped
)

func (r Regime) String() string {
	switch r {
	case Underdamped:
		return "underdamped"
	case CriticallyDamped:
		return "critical"
	case Overdamped:
		return "overdamped"
	default:
		return "unknown"
	}
}

// criticalTolerance is how close to 1 a damping ratio must be to count as
// critical.
const criticalTolerance = 1e-6

// NaturalFrequency is the undamped angular frequency sqrt(tension), in rad/s.
func NaturalFrequency(cfg spring.Config) float64 {
	return math.Sqrt(cfg.Tension)
}

func DampingRatio(cfg spring.Config) float64 {
	return cfg.DampingRatio()
}

// DampedFrequency is the oscillation frequency in Hz, or 0 when the spring
// does not oscillate.
func DampedFrequency(cfg spring.Config) float64 {
	zeta := cfg.DampingRatio()
	if zeta >= 1 {
		return 0
	}
	return NaturalFrequency(cfg) * math.Sqrt(1-zeta*zeta) / (2 * math.Pi)
}

func Classify(cfg spring.Config) Regime {
	zeta := cfg.DampingRatio()
	switch {
	case math.Abs(zeta-1) <= criticalTolerance:
		return CriticallyDamped
	case zeta < 1:
		return Underdamped
	default:
		return Overdamped
	}
}

// DecayTime estimates how long the envelope of a displacement of size
// distance takes to shrink below the spring's rest displacement.
func DecayTime(cfg spring.Config, distance float64) float64 {
	if distance <= cfg.RestDisplacement {
		return 0
	}
	omega := NaturalFrequency(cfg)
	zeta := cfg.DampingRatio()
	rate := zeta * omega
	if zeta > 1 {
		rate = omega * (zeta - math.Sqrt(zeta*zeta-1))
	}
	if rate == 0 {
		return math.Inf(1)
	}
	return math.Log(distance/cfg.RestDisplacement) / rate
}
