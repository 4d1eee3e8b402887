package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/automation"
	"github.com/san-kum/springsim/internal/clock"
	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/optim"
	"github.com/san-kum/springsim/internal/spring"
	"github.com/san-kum/springsim/internal/storage"
	"github.com/san-kum/springsim/internal/viz"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	result, err := st.LoadResult(runID)
	if err != nil {
		return err
	}
	if len(result.States) < 2 {
		return fmt.Errorf("no data")
	}

	cfg := spring.NewConfig(meta.Tension, meta.Friction)
	cfg.OvershootClamping = meta.OvershootClamping

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("spring: tension=%g friction=%g\n\n", meta.Tension, meta.Friction)

	fmt.Printf("regime: %s\n", analysis.Classify(cfg))
	fmt.Printf("damping ratio: %.4f\n", analysis.DampingRatio(cfg))
	fmt.Printf("natural frequency: %.4f rad/s\n", analysis.NaturalFrequency(cfg))
	if f := analysis.DampedFrequency(cfg); f > 0 {
		fmt.Printf("damped frequency: %.4f hz (period %.4f s)\n", f, 1/f)
	}
	distance := math.Abs(meta.To[0] - meta.From[0])
	if d := analysis.DecayTime(cfg, distance); d > 0 {
		fmt.Printf("predicted decay time: %.4f s\n", d)
	}

	x0 := analysis.Axis(result.States, 0)
	spectrum := analysis.PowerSpectrum(x0)
	if len(spectrum) > 4 {
		graph := asciigraph.Plot(spectrum[:len(spectrum)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (x0)"),
		)
		fmt.Println()
		fmt.Println(graph)
		fmt.Println()
	}
	if f := analysis.DominantFrequency(x0, meta.Dt); f > 0 {
		fmt.Printf("measured dominant frequency: %.4f hz\n", f)
	}

	if !meta.OvershootClamping {
		v0 := 0.0
		if len(meta.Velocity) > 0 {
			v0 = meta.Velocity[0]
		}
		ref := analysis.Reference(cfg, meta.From[0], meta.To[0], v0, meta.Dt, len(x0)-1)
		fmt.Printf("max deviation from closed form: %.3e\n", analysis.MaxDeviation(x0[1:], ref))
	}

	fmt.Println()
	fmt.Println(analysis.NewPhasePortrait(result.States, 0).ToASCII(60, 20))
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}

	var v0 float64
	if len(base.Motion.Velocity) > 0 {
		v0 = base.Motion.Velocity[0]
	}

	fmt.Printf("comparing integrators (tension=%g friction=%g dt=%.4f max-step=%.4f)\n\n",
		base.Spring.Tension, base.Spring.Friction, base.Dt, base.MaxStep)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tSETTLED\tSETTLE\tOVERSHOOT\tDEVIATION\tTIME")
	for _, name := range names {
		cfg := *base
		cfg.Integrator = name

		exp, err := experiment.New(&cfg)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		for _, m := range experiment.DefaultMetrics(&cfg) {
			exp.AddMetric(m)
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		deviation := "-"
		if !cfg.Spring.OvershootClamping {
			x0 := analysis.Axis(result.States, 0)
			ref := analysis.Reference(cfg.Spring.Spring(), cfg.Motion.From[0], cfg.Motion.To[0], v0, cfg.Dt, len(x0)-1)
			deviation = fmt.Sprintf("%.2e", analysis.MaxDeviation(x0[1:], ref))
		}

		fmt.Fprintf(w, "%s\t%d\t%v\t%.3f\t%.4f\t%s\t%v\n",
			name,
			result.StepsTaken,
			result.Settled,
			result.Metrics["settle_time"],
			result.Metrics["overshoot"],
			deviation,
			elapsed,
		)
	}
	return w.Flush()
}

func sweepParameter(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, err := analysis.Sweep(ctx, base, sweepParam, sweepLo, sweepHi, sweepSteps, sweepMetric)
	if err != nil {
		return err
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	graph := asciigraph.Plot(values,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s vs %s (%g..%g)", sweepMetric, sweepParam, sweepLo, sweepHi)),
	)
	fmt.Println(graph)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tSETTLED\n", strings.ToUpper(sweepParam), strings.ToUpper(sweepMetric))
	for _, p := range points {
		fmt.Fprintf(w, "%.4f\t%.6f\t%v\n", p.Param, p.Value, p.Settled)
	}
	return w.Flush()
}

func tuneSpring(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(optim.Linspace(20, 400, tuneSteps), optim.Linspace(2, 60, tuneSteps))
	g.MaxOvershoot = tuneOvershoot

	start := time.Now()
	best, all, err := g.Search(ctx, base)
	if err != nil && !errors.Is(err, optim.ErrNoCandidate) {
		return err
	}
	slog.Debug("grid search finished", "runs", len(all), "elapsed", time.Since(start))
	if err != nil {
		return err
	}

	feasible := 0
	for _, c := range all {
		if c.Feasible {
			feasible++
		}
	}

	fmt.Printf("%d of %d candidates settled within %.1f%% overshoot\n\n", feasible, len(all), tuneOvershoot*100)
	sc := base.Spring
	sc.Tension, sc.Friction = best.Tension, best.Friction
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TENSION\tFRICTION\tSETTLE\tOVERSHOOT\tREGIME")
	fmt.Fprintf(w, "%.2f\t%.2f\t%.3fs\t%.4f\t%s\n",
		best.Tension, best.Friction, best.Score, best.Overshoot, analysis.Classify(sc.Spring()))
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, cat, err := openStore()
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tSETTLED\tSETTLE\tOVERSHOOT")
	_, err = automation.RunScenario(ctx, base, sc, func(i int, r automation.StepResult) error {
		name := r.Step.SaveAs
		if name == "" {
			name = r.Step.Preset
		}
		runID, err := saveRun(st, cat, metadataFor(name, r.Config), r.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%v\t%.3f\t%.4f\n",
			i+1, runID, r.Result.Settled, r.Result.Metrics["settle_time"], r.Result.Metrics["overshoot"])
		return nil
	})
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, base, automation.MonteCarloConfig{
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         seed,
	})
	if err != nil {
		return err
	}

	settled, unsettled, mean := automation.MonteCarloStats(results)
	worst := 0.0
	for _, r := range results {
		worst = max(worst, r.Overshoot)
	}
	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("settled: %d\n", settled)
	fmt.Printf("unsettled: %d\n", unsettled)
	fmt.Printf("mean settle time: %.4f s\n", mean)
	fmt.Printf("worst overshoot: %.4f\n", worst)
	return nil
}

func benchEngine(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking tension=%g friction=%g\n\n", base.Spring.Tension, base.Spring.Friction)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tAXES\tDT\tTICKS\tTIME\tTICKS/SEC")

	for _, name := range integrators.Names() {
		for _, axes := range []int{1, 16, 256} {
			for _, step := range []float64{1.0 / 60, 1.0 / 240} {
				cfg := *base
				cfg.Integrator = name
				cfg.Dt = step
				cfg.Duration = 5
				cfg.Motion = config.MotionConfig{
					From: make([]float64, axes),
					To:   make([]float64, axes),
				}
				for i := range cfg.Motion.To {
					cfg.Motion.To[i] = config.DefaultTo * float64(i+1)
				}

				exp, err := experiment.New(&cfg)
				if err != nil {
					return err
				}

				start := time.Now()
				result, err := exp.Run(context.Background())
				if err != nil {
					return err
				}
				elapsed := time.Since(start)

				fmt.Fprintf(w, "%s\t%d\t%.4fs\t%d\t%v\t%.0f\n",
					name, axes, step, result.StepsTaken, elapsed,
					float64(result.StepsTaken)/elapsed.Seconds())
			}
		}
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tTENSION\tFRICTION\tZETA\tREGIME")
	for _, name := range cfg.PresetNames() {
		sc := cfg.Preset(name).Spring()
		fmt.Fprintf(w, "%s\t%g\t%g\t%.3f\t%s\n",
			name, sc.Tension, sc.Friction, analysis.DampingRatio(sc), analysis.Classify(sc))
	}
	return w.Flush()
}

// watchMotion animates the configured motion against the wall clock and
// prints one line per frame until every axis rests.
func watchMotion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sysCfg, err := cfg.SystemConfig()
	if err != nil {
		return err
	}
	sysCfg.OnListenerError = func(err error) { slog.Warn("listener failed", "err", err) }

	sys, err := spring.NewSystem(sysCfg)
	if err != nil {
		return err
	}
	motion, err := sys.CreateMultiSpring(cfg.Motion.Axes(), cfg.Spring.Spring())
	if err != nil {
		return err
	}

	start := time.Now()
	motion.AddListener(spring.VectorListenerFunc(func(values []float64) {
		fmt.Printf("%8.3fs  %v\n", time.Since(start).Seconds(), formatValues(values))
	}))

	rested := make(chan struct{}, 1)
	sys.AddObserver(spring.ObserverFunc(func(info spring.TickInfo) {
		if info.Active == 0 {
			select {
			case rested <- struct{}{}:
			default:
			}
		}
	}))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, time.Duration(cfg.Duration*float64(time.Second)))
	defer cancel()

	src := clock.NewWall(cfg.FPS)
	loop := clock.NewLoop(sys, src, slog.Default())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	setup := make(chan error, 1)
	loop.Do(func() {
		m := cfg.Motion
		if err := motion.SetCurrentValue(m.From); err != nil {
			setup <- err
			return
		}
		if len(m.Velocity) > 0 {
			if err := motion.SetVelocity(m.Velocity); err != nil {
				setup <- err
				return
			}
		}
		if err := motion.SetEndValue(m.To); err != nil {
			setup <- err
			return
		}
		if !sys.Active() {
			rested <- struct{}{}
		}
		setup <- nil
	})

	if err := <-setup; err != nil {
		cancel()
		<-done
		return err
	}

	settled := false
	select {
	case <-rested:
		settled = true
		cancel()
	case <-ctx.Done():
	}

	err = <-done
	slog.Debug("watch finished", "frames", loop.Frames(), "settled", settled, "interval", src.Interval())
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if !settled {
		fmt.Println("stopped before rest")
	}
	return nil
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%10.4f", v)
	}
	return strings.Join(parts, " ")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	model, err := viz.NewModel(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
