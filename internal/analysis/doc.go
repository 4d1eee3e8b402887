// Package analysis characterizes spring motion.
//
//   - [Classify], [DampingRatio], [DampedFrequency]: closed-form properties
//     of a spring configuration
//   - [DominantFrequency]: oscillation frequency measured from samples
//   - [Reference]: closed-form trajectory to check an integrator against
//   - [NewPhasePortrait]: position/velocity trajectory of one axis
//   - [Sweep]: one metric across a range of tension or friction values
//
// # Checking an Integrator
//
// A recorded run should track the closed-form solution closely:
//
//	ref := analysis.Reference(cfg, 0, 100, 0, dt, len(xs))
//	if analysis.MaxDeviation(xs, ref) > 1e-3 {
//	    // step size too large for this spring
//	}
package analysis
