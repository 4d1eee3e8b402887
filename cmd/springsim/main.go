package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/experiment"
	"github.com/san-kum/springsim/internal/export"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/storage"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	preset     string
	integrator string
	dt         float64
	duration   float64
	maxStep    float64
	tension    float64
	friction   float64
	clamping   bool
	from       []float64
	to         []float64
	velocity   []float64
	frameRate  int

	sortBy string
	limit  int
	format string

	sweepParam  string
	sweepLo     float64
	sweepHi     float64
	sweepSteps  int
	sweepMetric string

	tuneSteps     int
	tuneOvershoot float64

	trials       int
	perturbation float64
	seed         int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "springsim",
		Short:         "damped spring simulation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./runs", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless spring motion and store it",
		RunE:  runMotion,
	}
	addMotionFlags(runCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "animate a motion in real time and print every frame",
		RunE:  watchMotion,
	}
	addMotionFlags(watchCmd)
	watchCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frames per second")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&sortBy, "sort", storage.ByTime, "order: time, settle, overshoot")
	listCmd.Flags().IntVar(&limit, "limit", 0, "max rows (0 = all)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's positions",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json, csv or svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "json, csv or svg")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "damping regime, frequency analysis and reference check",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators on the same motion",
		RunE:  compareIntegrators,
	}
	addMotionFlags(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep tension or friction and plot a metric",
		RunE:  sweepParameter,
	}
	addMotionFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "friction", "tension or friction")
	sweepCmd.Flags().Float64Var(&sweepLo, "lo", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepHi, "hi", 40, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 20, "number of runs")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "settle_time", "metric to record")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search tension and friction for the fastest settle",
		RunE:  tuneSpring,
	}
	addMotionFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&tuneSteps, "steps", 8, "grid points per parameter")
	tuneCmd.Flags().Float64Var(&tuneOvershoot, "max-overshoot", 0.05, "allowed overshoot fraction (negative = any)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of motions and store each one",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "rerun a motion from randomly perturbed starts",
		RunE:  runMonteCarlo,
	}
	addMotionFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVarP(&trials, "trials", "n", 100, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturb", 1, "max perturbation of start value and velocity")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the engine",
		RunE:  benchEngine,
	}
	benchCmd.Flags().StringVar(&preset, "preset", "", "spring preset")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list spring presets",
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive 2d spring view",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&preset, "preset", "", "spring preset")
	liveCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frames per second")

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, exportCmd, deleteCmd, analyzeCmd, compareCmd, sweepCmd, tuneCmd, scenarioCmd, monteCarloCmd, benchCmd, presetsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func addMotionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "spring preset")
	f.StringVarP(&integrator, "integrator", "i", integrators.Default, "integrator (euler, rk4, rk45, semi, verlet)")
	f.Float64Var(&dt, "dt", config.DefaultDt, "time step")
	f.Float64VarP(&duration, "time", "t", config.DefaultDuration, "max duration")
	f.Float64Var(&maxStep, "max-step", config.DefaultDt, "largest integration sub-step")
	f.Float64Var(&tension, "tension", 0, "spring tension")
	f.Float64Var(&friction, "friction", 0, "spring friction")
	f.BoolVar(&clamping, "clamp", false, "settle on the first overshoot")
	f.Float64SliceVar(&from, "from", []float64{0}, "start value per axis")
	f.Float64SliceVar(&to, "to", []float64{config.DefaultTo}, "end value per axis")
	f.Float64SliceVar(&velocity, "velocity", nil, "initial velocity per axis")
}

// loadConfig layers defaults, the config file, the preset and then any flag
// the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if preset != "" {
		p := cfg.Preset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, cfg.PresetNames())
		}
		cfg.Spring = *p
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if flags.Changed("tension") {
		cfg.Spring.Tension = tension
	}
	if flags.Changed("friction") {
		cfg.Spring.Friction = friction
	}
	if flags.Changed("clamp") {
		cfg.Spring.OvershootClamping = clamping
	}
	if flags.Changed("from") {
		cfg.Motion.From = from
	}
	if flags.Changed("to") {
		cfg.Motion.To = to
	}
	if flags.Changed("velocity") {
		cfg.Motion.Velocity = velocity
	}
	if flags.Changed("fps") {
		cfg.FPS = frameRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore() (*storage.Store, *storage.Catalog, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, nil, err
	}
	cat, err := storage.OpenCatalog(filepath.Join(dataDir, "catalog.db"))
	if err != nil {
		return nil, nil, err
	}
	return st, cat, nil
}

func runMotion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, cat, err := openStore()
	if err != nil {
		return err
	}
	defer cat.Close()

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	for _, m := range experiment.DefaultMetrics(cfg) {
		exp.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d-axis spring (tension=%g friction=%g, %s)...\n",
		cfg.Motion.Axes(), cfg.Spring.Tension, cfg.Spring.Friction, cfg.Integrator)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	for _, lerr := range result.Errors {
		slog.Warn("listener failed", "err", lerr)
	}

	runID, err := saveRun(st, cat, metadataFor(preset, cfg), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("settled: %v\n", result.Settled)
	fmt.Printf("final: %v\n", result.Final().Positions())
	fmt.Println("\nmetrics:")
	for _, name := range experiment.ListMetrics() {
		if val, ok := result.Metrics[name]; ok {
			fmt.Printf("  %s: %.6f\n", name, val)
		}
	}
	return nil
}

// metadataFor describes a finished run of cfg for the store.
func metadataFor(presetName string, cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Preset:            presetName,
		Integrator:        cfg.Integrator,
		Dt:                cfg.Dt,
		Duration:          cfg.Duration,
		Tension:           cfg.Spring.Tension,
		Friction:          cfg.Spring.Friction,
		OvershootClamping: cfg.Spring.OvershootClamping,
		From:              cfg.Motion.From,
		To:                cfg.Motion.To,
		Velocity:          cfg.Motion.Velocity,
	}
}

// saveRun stores result and indexes it. A catalog failure only warns since
// list rebuilds the index from the store.
func saveRun(st *storage.Store, cat *storage.Catalog, meta storage.RunMetadata, result *dynamo.Result) (string, error) {
	runID, err := st.Save(meta, result)
	if err != nil {
		return "", err
	}
	saved, err := st.Load(runID)
	if err != nil {
		return "", err
	}
	if err := cat.Record(*saved); err != nil {
		slog.Warn("catalog update failed", "run", runID, "err", err)
	}
	return runID, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, cat, err := openStore()
	if err != nil {
		return err
	}
	defer cat.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if err := cat.Reindex(runs); err != nil {
		return err
	}
	entries, err := cat.List(sortBy, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tINTEG\tTENSION\tFRICTION\tAXES\tSTEPS\tSETTLE\tOVERSHOOT")
	for _, e := range entries {
		settle := "-"
		if e.Settled && e.SettleTime >= 0 {
			settle = fmt.Sprintf("%.3fs", e.SettleTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\t%d\t%d\t%s\t%.4f\n",
			e.ID,
			e.Preset,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Integrator,
			e.Tension,
			e.Friction,
			e.Axes,
			e.Steps,
			settle,
			e.Overshoot,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
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
	if len(result.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("spring: tension=%g friction=%g\n", meta.Tension, meta.Friction)
	fmt.Printf("samples: %d\n\n", len(result.States))

	const maxPlots = 4
	axes := min(meta.Axes(), maxPlots)
	for axis := 0; axis < axes; axis++ {
		graph := asciigraph.Plot(analysis.Axis(result.States, axis),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d: %g -> %g", axis, meta.From[axis], meta.To[axis])),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
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

	switch format {
	case "json":
		return storage.ExportJSON(os.Stdout, *meta, result)
	case "csv":
		return exportCSV(meta.Axes(), result.Times, result.States)
	case "svg":
		return export.WriteSVG(os.Stdout, export.Trajectory(result.Times, result.States), 800, 400, "#00ff00")
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func exportCSV(axes int, times []float64, states []dynamo.State) error {
	w := csv.NewWriter(os.Stdout)

	header := []string{"time"}
	for i := 0; i < axes; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < axes; i++ {
		header = append(header, fmt.Sprintf("v%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64)}
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func deleteRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, cat, err := openStore()
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := st.Delete(runID); err != nil {
		return err
	}
	if err := cat.Remove(runID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", runID)
	return nil
}
