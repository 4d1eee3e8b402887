package spring

import (
	"errors"
	"fmt"
)

var (
	// ErrListenerFailure marks a listener or observer that panicked. The
	// failure is isolated; the tick carries on.
	ErrListenerFailure = errors.New("spring: listener failed")

	// ErrReentrantTick is returned when Tick is called from inside a tick.
	ErrReentrantTick = errors.New("spring: tick called while a tick is in progress")
)

// ListenerError reports a recovered listener panic. Spring is zero for
// system observers.
type ListenerError struct {
	Spring    uint64
	Handle    Handle
	Recovered any
}

func (e *ListenerError) Error() string {
	if e.Spring == 0 {
		return fmt.Sprintf("spring: observer %d failed: %v", e.Handle, e.Recovered)
	}
	return fmt.Sprintf("spring: listener %d on spring %d failed: %v", e.Handle, e.Spring, e.Recovered)
}

func (e *ListenerError) Unwrap() []error {
	if err, ok := e.Recovered.(error); ok {
		return []error{ErrListenerFailure, err}
	}
	return []error{ErrListenerFailure}
}
