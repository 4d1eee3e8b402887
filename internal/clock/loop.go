package clock

import (
	"context"
	"log/slog"
	"time"
)

// Stepper is the part of spring.System the loop drives.
type Stepper interface {
	Tick(dt float64) (bool, error)
	Active() bool
}

// Loop owns a stepper's goroutine. It pulls frames from its Source only
// while the stepper has work and runs posted functions between frames.
type Loop struct {
	stepper Stepper
	src     Source
	logger  *slog.Logger

	tasks chan func()
	done  chan struct{}

	running bool
	last    time.Time
	frames  uint64
}

func NewLoop(stepper Stepper, src Source, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		stepper: stepper,
		src:     src,
		logger:  logger,
		tasks:   make(chan func(), 64),
		done:    make(chan struct{}),
	}
}

// Do posts fn to run on the loop goroutine. It returns false once Run has
// exited, in which case fn never runs.
func (l *Loop) Do(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run drives the stepper until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.suspend()

	l.sync()
	for {
		var frames <-chan time.Time
		if l.running {
			frames = l.src.Frames()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case fn := <-l.tasks:
			fn()
			l.sync()

		case now := <-frames:
			l.step(now)
		}
	}
}

// Frames is the number of frames the loop has stepped. Only meaningful on
// the loop goroutine or after Run returns.
func (l *Loop) Frames() uint64 { return l.frames }

func (l *Loop) step(now time.Time) {
	dt := now.Sub(l.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	l.last = now
	l.frames++

	active, err := l.stepper.Tick(dt)
	if err != nil {
		l.logger.Error("tick failed", "frame", l.frames, "dt", dt, "err", err)
	}
	if !active {
		l.suspend()
	}
}

// sync resumes frames when a posted function disturbed a resting stepper.
func (l *Loop) sync() {
	if l.running || !l.stepper.Active() {
		return
	}
	l.running = true
	l.last = l.src.Now()
	l.src.Start()
	l.logger.Debug("clock resumed", "frame", l.frames)
}

func (l *Loop) suspend() {
	if !l.running {
		return
	}
	l.running = false
	l.src.Stop()
	l.logger.Debug("clock suspended", "frame", l.frames)
}
