// Package spring implements the spring dynamics engine: damped oscillators
// that pull animated values toward a target, and the scheduler that steps
// them together.
//
//   - [Spring]: one scalar with acceleration tension*(end-x) - friction*v
//   - [MultiSpring]: a fixed-size vector of springs with one identity
//   - [System]: the shared stepping loop and its active set
//   - [Listener], [VectorListener]: per-frame value callbacks, registered
//     and revoked through [Handle]s
//
// # Lifecycle
//
// A spring starts RESTING at 0. Moving its end value, current value or
// velocity puts it in the system's active set; each Tick integrates it and
// notifies its listeners; once both displacement and velocity fall below the
// rest thresholds the spring snaps exactly onto its end value, notifies one
// last time and leaves the active set.
//
//	sys, _ := spring.NewSystem(spring.DefaultSystemConfig())
//	s, _ := sys.CreateSpring(50, 3)
//	s.AddListener(spring.ListenerFunc(func(v float64) { fmt.Println(v) }))
//	s.SetEndValue(100)
//	for active := true; active; {
//	    active, _ = sys.Tick(1.0 / 60)
//	}
//
// # Thread Safety
//
// A System and its springs belong to one goroutine. Listeners may add or
// remove listeners and retarget springs from inside a callback; Tick itself
// is not re-entrant. Use clock.Loop to drive a system from other goroutines.
package spring
