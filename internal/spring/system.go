package spring

import (
	"errors"
	"log/slog"
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
)

type SystemConfig struct {
	// Integrator advances every spring of the system. Nil selects RK4.
	Integrator dynamo.Integrator
	// MaxStep caps a single integration sub-step, in seconds.
	MaxStep float64
	// MaxDelta clamps the dt handed to Tick. Zero disables clamping.
	MaxDelta float64
	// MaxSubsteps bounds the integration work of one spring per tick. A
	// longer dt is cut to MaxSubsteps stable steps. Zero selects
	// DefaultMaxSubsteps.
	MaxSubsteps int
	Logger      *slog.Logger
	// OnListenerError receives isolated listener failures. Nil logs them.
	OnListenerError func(error)
}

func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		Integrator:  integrators.NewRK4(),
		MaxStep:     DefaultMaxStep,
		MaxSubsteps: DefaultMaxSubsteps,
	}
}

// System is the shared stepping loop. It advances every active spring once
// per Tick and drops springs that come to rest.
type System struct {
	integrator dynamo.Integrator
	maxStep    float64
	maxDelta   float64
	maxSubs    int
	logger     *slog.Logger
	onError    func(error)

	active    []*Spring
	groups    []*MultiSpring
	observers registry[Observer]

	nextID  uint64
	ticks   uint64
	ticking bool
}

func NewSystem(cfg SystemConfig) (*System, error) {
	if err := dynamo.CheckPositive("max step", cfg.MaxStep); err != nil {
		return nil, err
	}
	if err := dynamo.CheckNonNegative("max delta", cfg.MaxDelta); err != nil {
		return nil, err
	}
	if err := dynamo.CheckNonNegative("max substeps", float64(cfg.MaxSubsteps)); err != nil {
		return nil, err
	}
	s := &System{
		integrator: cfg.Integrator,
		maxStep:    cfg.MaxStep,
		maxDelta:   cfg.MaxDelta,
		maxSubs:    cfg.MaxSubsteps,
		logger:     cfg.Logger,
		onError:    cfg.OnListenerError,
	}
	if s.integrator == nil {
		s.integrator = integrators.NewRK4()
	}
	if s.maxSubs == 0 {
		s.maxSubs = DefaultMaxSubsteps
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// CreateSpring returns a resting spring at 0 bound to this system.
func (s *System) CreateSpring(tension, friction float64, opts ...Option) (*Spring, error) {
	return s.CreateSpringWithConfig(NewConfig(tension, friction, opts...))
}

func (s *System) CreateSpringWithConfig(cfg Config) (*Spring, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s.nextID++
	return &Spring{id: s.nextID, system: s, cfg: cfg, resting: true}, nil
}

// Tick advances every spring that was active when the tick began by dt
// seconds. Springs woken during the tick wait for the next one. The result
// is false once nothing is left to animate, so the caller can stop
// requesting frames until a spring is disturbed again.
func (s *System) Tick(dt float64) (bool, error) {
	if err := dynamo.CheckNonNegative("dt", dt); err != nil {
		return s.Active(), err
	}
	if s.ticking {
		return true, ErrReentrantTick
	}
	if s.maxDelta > 0 && dt > s.maxDelta {
		dt = s.maxDelta
	}

	s.prune()
	if len(s.active) == 0 {
		return false, nil
	}

	s.ticking = true
	defer func() { s.ticking = false }()

	snapshot := make([]*Spring, len(s.active))
	copy(snapshot, s.active)
	for _, sp := range snapshot {
		sp.deferred = false
	}

	info := TickInfo{Dt: dt}
	for _, sp := range snapshot {
		if sp.resting || sp.deferred {
			continue
		}
		sp.advance(dt)
		info.Advanced++
		if sp.resting {
			info.Settled++
		}
		if sp.group != nil && !sp.group.touched {
			sp.group.touched = true
			s.groups = append(s.groups, sp.group)
		}
	}

	for i, g := range s.groups {
		g.touched = false
		g.notify()
		s.groups[i] = nil
	}
	s.groups = s.groups[:0]

	s.prune()
	s.ticks++
	info.Tick = s.ticks
	info.Active = len(s.active)

	s.observers.each(func(h Handle, o Observer) {
		s.call(0, h, func() { o.OnTick(info) })
	})

	return len(s.active) > 0, nil
}

// Active reports whether any spring still needs integration.
func (s *System) Active() bool {
	for _, sp := range s.active {
		if !sp.resting {
			return true
		}
	}
	return false
}

func (s *System) ActiveCount() int {
	n := 0
	for _, sp := range s.active {
		if !sp.resting {
			n++
		}
	}
	return n
}

func (s *System) TickCount() uint64 {
	return s.ticks
}

func (s *System) AddObserver(o Observer) Handle {
	return s.observers.add(o)
}

func (s *System) RemoveObserver(h Handle) bool {
	return s.observers.remove(h)
}

func (s *System) activate(sp *Spring) {
	if sp.queued {
		return
	}
	sp.queued = true
	s.active = append(s.active, sp)
}

func (s *System) prune() {
	kept := s.active[:0]
	for _, sp := range s.active {
		if sp.resting {
			sp.queued = false
			continue
		}
		kept = append(kept, sp)
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
}

// substeps splits dt into equal steps no larger than MaxStep or the
// spring's stability bound. Past MaxSubsteps the spring falls behind dt
// instead of taking longer steps.
func (s *System) substeps(dt float64, cfg Config) (int, float64) {
	if dt == 0 {
		return 0, 0
	}
	h := math.Min(s.maxStep, cfg.stableStep())
	ratio := math.Ceil(dt / h)
	if !(ratio <= float64(s.maxSubs)) {
		return s.maxSubs, h
	}
	n := int(ratio)
	if n < 1 {
		n = 1
	}
	return n, dt / float64(n)
}

// call runs fn, turning a panic into a reported ListenerError.
func (s *System) call(springID uint64, h Handle, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.report(&ListenerError{Spring: springID, Handle: h, Recovered: r})
		}
	}()
	fn()
}

func (s *System) report(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	var lerr *ListenerError
	if errors.As(err, &lerr) {
		s.logger.Warn("listener failed", "spring", lerr.Spring, "handle", uint64(lerr.Handle), "err", err)
		return
	}
	s.logger.Warn("spring integration failed", "err", err)
}
