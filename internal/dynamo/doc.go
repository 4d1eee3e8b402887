// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types shared by the
// spring engine and the headless tooling around it:
//
//   - [State]: vector representing system state, positions then velocities
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//   - [Metric]: observer reducing a trajectory to one number
//   - [Result]: recorded trajectory of a headless run
//
// # Errors
//
// Parameter validation helpers return [*ParameterError], which unwraps to
// [ErrInvalidParameter]:
//
//	if err := dynamo.CheckPositive("tension", k); err != nil {
//	    return err
//	}
package dynamo
