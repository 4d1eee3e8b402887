package spring

import (
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
)

const (
	DefaultTension          = 50.0
	DefaultFriction         = 3.0
	DefaultRestDisplacement = 0.001
	DefaultRestVelocity     = 0.001
	DefaultMaxStep          = 1.0 / 60.0
	DefaultMaxSubsteps      = 1000
)

// Config holds the physical constants of one spring. Mass is always 1.
type Config struct {
	Tension           float64
	Friction          float64
	RestDisplacement  float64
	RestVelocity      float64
	OvershootClamping bool
}

type Option func(*Config)

// WithRestThresholds overrides the displacement and velocity epsilons below
// which a spring counts as resting.
func WithRestThresholds(displacement, velocity float64) Option {
	return func(c *Config) {
		c.RestDisplacement = displacement
		c.RestVelocity = velocity
	}
}

// WithOvershootClamping makes the spring settle as soon as it crosses its
// end value instead of oscillating around it.
func WithOvershootClamping() Option {
	return func(c *Config) {
		c.OvershootClamping = true
	}
}

func DefaultConfig() Config {
	return NewConfig(DefaultTension, DefaultFriction)
}

func NewConfig(tension, friction float64, opts ...Option) Config {
	c := Config{
		Tension:          tension,
		Friction:         friction,
		RestDisplacement: DefaultRestDisplacement,
		RestVelocity:     DefaultRestVelocity,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Config) Validate() error {
	if err := dynamo.CheckPositive("tension", c.Tension); err != nil {
		return err
	}
	if err := dynamo.CheckNonNegative("friction", c.Friction); err != nil {
		return err
	}
	if err := dynamo.CheckPositive("rest displacement", c.RestDisplacement); err != nil {
		return err
	}
	return dynamo.CheckPositive("rest velocity", c.RestVelocity)
}

// DampingRatio is 1 for critical damping, below 1 when the spring
// oscillates and above 1 when it creeps toward the target.
func (c Config) DampingRatio() float64 {
	return c.Friction / (2 * math.Sqrt(c.Tension))
}

// stableStep bounds a single integration step so that |h*lambda| <= 1 for
// both eigenvalues of the oscillator.
func (c Config) stableStep() float64 {
	rate := math.Max(c.Friction, math.Sqrt(c.Tension))
	if rate <= 0 {
		return math.Inf(1)
	}
	return 1 / rate
}

// Origami (Quartz Composer) spring values map onto tension and friction
// through these linear fits.
func tensionFromOrigami(v float64) float64 {
	if v == 0 {
		return 0
	}
	return (v-30.0)*3.62 + 194.0
}

func frictionFromOrigami(v float64) float64 {
	if v == 0 {
		return 0
	}
	return (v-8.0)*3.0 + 25.0
}

// FromOrigami converts Origami tension/friction values into a Config.
func FromOrigami(tension, friction float64) Config {
	return NewConfig(tensionFromOrigami(tension), frictionFromOrigami(friction))
}

// FromBouncinessAndSpeed converts the bounciness/speed pair used by Origami's
// pop animation (both roughly 0..20) into a Config.
func FromBouncinessAndSpeed(bounciness, speed float64) Config {
	b := projectNormal(normalize(bounciness/1.7, 0, 20), 0, 0.8)
	s := normalize(speed/1.7, 0, 20)
	tension := projectNormal(s, 0.5, 200)
	friction := quadraticOutInterpolation(b, noBounceFriction(tension), 0.01)
	return FromOrigami(tension, friction)
}

func normalize(value, start, end float64) float64 {
	return (value - start) / (end - start)
}

func projectNormal(n, start, end float64) float64 {
	return start + n*(end-start)
}

func linearInterpolation(t, start, end float64) float64 {
	return t*end + (1-t)*start
}

func quadraticOutInterpolation(t, start, end float64) float64 {
	return linearInterpolation(2*t-t*t, start, end)
}

func noBounceFriction(tension float64) float64 {
	x := tension
	switch {
	case tension <= 18:
		return 0.0007*x*x*x - 0.031*x*x + 0.64*x + 1.28
	case tension <= 44:
		return 0.000044*x*x*x - 0.006*x*x + 0.36*x + 2.0
	default:
		return 0.00000045*x*x*x - 0.000332*x*x + 0.1078*x + 5.84
	}
}
