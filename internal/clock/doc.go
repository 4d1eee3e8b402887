// Package clock supplies frame timing for a spring.System.
//
// A [Source] produces frame times: [Wall] from a time.Ticker, [Manual] by
// hand. A [Loop] pulls frames from its source only while the system has
// moving springs, turns consecutive frame times into Tick deltas, and runs
// functions posted with [Loop.Do] on the same goroutine as Tick.
//
//	loop := clock.NewLoop(sys, clock.NewWall(60), slog.Default())
//	go loop.Run(ctx)
//	loop.Do(func() { s.SetEndValue(1) })
package clock
