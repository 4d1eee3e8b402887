package clock

import (
	"sync"
	"time"
)

// Source delivers frame times. Frames are only delivered between Start and
// Stop; Frames returns the same channel for the life of the source.
type Source interface {
	Now() time.Time
	Start()
	Stop()
	Frames() <-chan time.Time
}

// Wall paces frames with a time.Ticker at a fixed rate.
type Wall struct {
	mu       sync.Mutex
	interval time.Duration
	ticker   *time.Ticker
	running  bool
}

// NewWall returns a stopped source firing fps times per second.
func NewWall(fps int) *Wall {
	if fps <= 0 {
		fps = 60
	}
	interval := time.Second / time.Duration(fps)
	t := time.NewTicker(interval)
	t.Stop()
	return &Wall{interval: interval, ticker: t}
}

func (w *Wall) Now() time.Time { return time.Now() }

func (w *Wall) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.ticker.Reset(w.interval)
}

func (w *Wall) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	w.ticker.Stop()
}

func (w *Wall) Frames() <-chan time.Time { return w.ticker.C }

func (w *Wall) Interval() time.Duration { return w.interval }

// Manual is a source driven by hand, for tests and headless stepping.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	running bool
	frames  chan time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, frames: make(chan time.Time, 1)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
}

// Stop also discards a frame that was delivered but not yet received.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	select {
	case <-m.frames:
	default:
	}
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manual) Frames() <-chan time.Time { return m.frames }

// Advance moves the clock forward by d and, if the source is started,
// delivers a frame. Like time.Ticker it drops the frame when the previous
// one has not been received yet. The result reports whether a frame was
// delivered.
func (m *Manual) Advance(d time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	if !m.running {
		return false
	}
	select {
	case m.frames <- m.now:
		return true
	default:
		return false
	}
}
