package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/automation"
	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/experiment"
	svgexport "github.com/san-kum/longsim/internal/export"
	"github.com/san-kum/longsim/internal/monitor"
	"github.com/san-kum/longsim/internal/optim"
	"github.com/san-kum/longsim/internal/sim"
	"github.com/san-kum/longsim/internal/storage"
	"github.com/san-kum/longsim/internal/telemetry"
	"github.com/san-kum/longsim/internal/tracker"
	"github.com/san-kum/longsim/internal/viz"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	dataDir    string
	configFile string
	turns      int
	particles  int
	seed       int64
	solver     string
	loop       string
	gain       float64
	voltage    float64
	intensity  float64
	runs       int
	dbPath     string
	outFile    string
	wellPoints int
	quiet      bool
	svgFile    string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	trials     int
	jitter     float64
	maxLoss    float64
	grid       []string
	metricName string
)

var logger = log.New(os.Stderr, "longsim: ", log.LstdFlags)

func main() {
	rootCmd := &cobra.Command{
		Use:   "longsim",
		Short: "longitudinal beam dynamics simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".longsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "track a preset or config file and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	machineFlags(runCmd)
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of seeds tracked concurrently")
	runCmd.Flags().StringVar(&dbPath, "monitor", "", "also write every turn to this sqlite database (without extension)")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "silence component warnings")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "track with a live phase space view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	machineFlags(liveCmd)

	phaseCmd := &cobra.Command{
		Use:   "phase [preset]",
		Short: "track and print the final phase space",
		Args:  cobra.MaximumNArgs(1),
		RunE:  phasePlot,
	}
	machineFlags(phaseCmd)
	phaseCmd.Flags().StringVar(&svgFile, "svg", "", "also write the phase space to this svg file")

	wellCmd := &cobra.Command{
		Use:   "well [preset]",
		Short: "plot the RF voltage and potential well at turn zero",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotWell,
	}
	machineFlags(wellCmd)
	wellCmd.Flags().IntVar(&wellPoints, "points", 2000, "time grid points")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the bunch evolution of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the sigma dE evolution to this svg file")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "synchrotron tune from the bunch centre oscillation",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrum,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the turn by turn data of a run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return export(func(st *storage.Store, w io.Writer) error { return st.ExportRunCSV(w, args[0]) })
		},
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with its metadata and profiles to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return export(func(st *storage.Store, w io.Writer) error { return st.ExportRunJSON(w, args[0]) })
		},
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list the built in presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-20s %6d turns  %s\n", name, cfg.Turns, describe(cfg))
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [preset] [file]",
		Short: "write a preset as an editable config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return unknownPreset(args[0])
			}
			return config.Save(args[1], cfg)
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a scenario file and store each run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "silence component warnings")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "track over evenly spaced values of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	machineFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "rf.voltage", "parameter to vary: "+strings.Join(config.ParamNames(), ", "))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 4e6, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 8e6, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "track concurrent trials with jittered bunch length",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	machineFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 8, "number of trials")
	monteCarloCmd.Flags().Float64Var(&jitter, "jitter", 0.1, "relative bunch length jitter")
	monteCarloCmd.Flags().Float64Var(&maxLoss, "max-loss", 0.01, "largest loss fraction of a stable trial")

	optimizeCmd := &cobra.Command{
		Use:   "optimize [preset]",
		Short: "grid search the parameters minimising a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOptimize,
	}
	machineFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&grid, "grid", nil, "parameter grid as name=v1,v2,... (repeatable)")
	optimizeCmd.Flags().StringVar(&metricName, "metric", "sigma_de_growth", "metric to minimise")

	rootCmd.AddCommand(runCmd, liveCmd, phaseCmd, wellCmd, listCmd, plotCmd, spectrumCmd, exportCSVCmd, exportJSONCmd, presetsCmd, initCmd,
		scenarioCmd, sweepCmd, monteCarloCmd, optimizeCmd)

	execute(rootCmd)
}

// exit runs the atexit handlers, which flush open monitors, before leaving.
var exit = atexit.Exit

func execute(root *cobra.Command) {
	if err := root.Execute(); err != nil {
		exit(1)
	}
}

func machineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().IntVar(&turns, "turns", config.DefaultTurns, "turns to track")
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "macro-particles")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&solver, "solver", "simple", "drift solver: simple or full")
	cmd.Flags().StringVar(&loop, "loop", "none", "phase loop: none, lhc, lhc_f, sps_radial or psb")
	cmd.Flags().Float64Var(&gain, "gain", 0, "phase loop gain")
	cmd.Flags().Float64Var(&voltage, "voltage", 0, "main RF voltage in V")
	cmd.Flags().Float64Var(&intensity, "intensity", 0, "bunch intensity")
}

func unknownPreset(name string) error {
	return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
}

// loadConfig starts from a config file, a preset or the defaults, in that
// order, and applies the flags the user set.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case len(args) > 0:
		if cfg = config.GetPreset(args[0]); cfg == nil {
			return nil, unknownPreset(args[0])
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("turns") {
		cfg.Turns = turns
	}
	if flags.Changed("particles") {
		cfg.Beam.Particles = particles
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("solver") {
		cfg.Tracker.Solver = solver
	}
	if flags.Changed("loop") {
		cfg.Loop.Type = loop
	}
	if flags.Changed("gain") {
		cfg.Loop.Gain = []float64{gain}
	}
	if flags.Changed("voltage") {
		cfg.RF[0].Systems[0].Voltage = voltage
	}
	if flags.Changed("intensity") {
		cfg.Beam.Intensity = intensity
	}
	return cfg, cfg.Validate()
}

func describe(cfg *config.Config) string {
	s := fmt.Sprintf("%s h=%g", cfg.Ring.Particle, cfg.RF[0].Systems[0].Harmonic)
	if cfg.Loop.Type != "" && cfg.Loop.Type != "none" {
		s += " loop=" + cfg.Loop.Type
	}
	if cfg.Impedance.Enabled() {
		var domains []string
		for _, e := range cfg.Impedance.EngineConfigs() {
			d := e.Domain
			if d == "" {
				d = "time"
			}
			domains = append(domains, d)
		}
		s += " impedance=" + strings.Join(domains, "+")
	}
	if cfg.Noise.Amplitude > 0 {
		s += " noise"
	}
	return s
}

func componentLogger() *log.Logger {
	if quiet {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tp, err := telemetry.Setup(ctx)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())

	if runs > 1 {
		return runEnsemble(ctx, cfg)
	}

	exp, err := experiment.New(cfg, componentLogger())
	if err != nil {
		return err
	}
	rec := &storage.Recorder{}
	exp.AddObserver(rec)

	if cmd.Flags().Changed("monitor") {
		mon, err := monitor.New(dbPath)
		if err != nil {
			return err
		}
		defer mon.Close()
		exp.AddObserver(mon)
		fmt.Printf("monitor: %s (run %s)\n", mon.File(), mon.Run())
	}

	fmt.Printf("tracking %s: %d turns, %d particles\n", cfg.Name, cfg.Turns, cfg.Beam.Particles)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(exp.Metadata(), result, rec.Profiles)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("turns: %d\n", result.TurnsTaken)
	printMetrics(result.Metrics)
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	if runErr != nil {
		return runErr
	}
	if len(result.Errors) > 0 {
		return result.Errors[0]
	}
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

func runEnsemble(ctx context.Context, cfg *config.Config) error {
	build := func(s int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		c.Seed = s
		exp, err := experiment.New(c, componentLogger())
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}

	fmt.Printf("tracking %s over %d seeds from %d\n", cfg.Name, runs, cfg.Seed)
	start := time.Now()
	results, err := sim.NewEnsemble(build, runs, cfg.Seed).Run(ctx, cfg.SimConfig())
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	var names []string
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SEED\tTURNS")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d", cfg.Seed+int64(i), r.TurnsTaken)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.4g", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	return viz.RunLive(cfg.Name, viz.PresetBuilder(cfg))
}

func phasePlot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}

	b := exp.Context().Beam
	last := result.Snapshots[len(result.Snapshots)-1]
	fmt.Printf("%s after %d turns, %d alive\n", cfg.Name, last.Turn, last.Alive)
	fmt.Printf("dt: %.4g ns ± %.4g ns, dE: %.4g MeV ± %.4g MeV\n\n", last.MeanDt*1e9, last.SigmaDt*1e9, last.MeanDE/1e6, last.SigmaDE/1e6)
	fmt.Print(analysis.PhaseSpaceToASCII(analysis.PhaseSpace{Dt: b.Dt, DE: b.DE, ID: b.ID}, 80, 24))

	if svgFile != "" {
		canvas, _ := viz.PhaseSpace(exp.Context(), 120, 40, true)
		if err := os.WriteFile(svgFile, []byte(svgexport.CanvasToSVG(canvas, 4, viz.CurrentTheme)), 0644); err != nil {
			return err
		}
		fmt.Printf("\nphase space written to %s\n", svgFile)
	}
	return nil
}

func plotWell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	w, err := exp.Context().Tracker.PotentialWell(0, tracker.WellParams{Points: wellPoints})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %.4g ns to %.4g ns\n\n", cfg.Name, w.Time[0]*1e9, w.Time[len(w.Time)-1]*1e9)
	fmt.Println(asciigraph.Plot(w.Voltage, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("RF voltage [V]")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(w.Potential, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("potential well")))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	list, err := st.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tTURNS\tPARTICLES\tLOOP\tERRORS")
	for _, run := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%d\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TurnsTaken,
			run.Turns,
			run.Particles,
			run.Loop,
			len(run.Errors),
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
	snaps, err := st.LoadSnapshots(runID)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return errors.New("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(snaps))

	series := []struct {
		caption string
		value   func(dynamo.Snapshot) float64
	}{
		{"sigma dE [MeV]", func(s dynamo.Snapshot) float64 { return s.SigmaDE / 1e6 }},
		{"mean dt [ns]", func(s dynamo.Snapshot) float64 { return s.MeanDt * 1e9 }},
		{"bunch length [ns]", func(s dynamo.Snapshot) float64 { return s.BunchLength * 1e9 }},
		{"emittance [eVs]", func(s dynamo.Snapshot) float64 { return s.Emittance }},
	}
	if meta.Loop != "none" {
		series = append(series, struct {
			caption string
			value   func(dynamo.Snapshot) float64
		}{"phase error [rad]", func(s dynamo.Snapshot) float64 { return s.Dphi }})
	}

	for _, sr := range series {
		data := make([]float64, 0, len(snaps))
		for _, s := range snaps {
			if v := sr.value(s); !math.IsNaN(v) {
				data = append(data, v)
			}
		}
		if len(data) < 2 {
			continue
		}
		fmt.Println(asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption(sr.caption)))
		fmt.Println()
	}

	if svgFile != "" {
		xs := make([]float64, len(snaps))
		sigma := make([]float64, len(snaps))
		for i, s := range snaps {
			xs[i], sigma[i] = float64(s.Turn), s.SigmaDE/1e6
		}
		svg := svgexport.SeriesToSVG(xs, sigma, 800, 300, string(viz.CurrentTheme.Primary), meta.Preset+" sigma dE [MeV]")
		if svg == "" {
			return errors.New("not enough samples for svg")
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("sigma dE written to %s\n\n", svgFile)
	}

	profiles, err := st.LoadProfiles(runID)
	if err != nil {
		return err
	}
	if n := len(profiles); n > 0 {
		p := profiles[n-1]
		fmt.Println(asciigraph.Plot(p.Counts, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption(fmt.Sprintf("profile at turn %d", p.Turn))))
	}
	return nil
}

func spectrum(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	snaps, err := st.LoadSnapshots(runID)
	if err != nil {
		return err
	}
	// The initial snapshot may break the sampling period.
	if len(snaps) > 2 {
		snaps = snaps[1:]
	}
	if len(snaps) < 8 {
		return fmt.Errorf("need at least 8 samples, have %d", len(snaps))
	}

	step := float64(snaps[1].Turn - snaps[0].Turn)
	n := len(snaps)
	if last := snaps[n-1].Turn - snaps[n-2].Turn; float64(last) != step {
		snaps = snaps[:n-1]
	}
	centre := make([]float64, len(snaps))
	for i, s := range snaps {
		centre[i] = s.MeanDt
	}

	ps := analysis.PowerSpectrum(centre)
	tune := analysis.DominantFrequency(centre, step)
	fmt.Printf("run: %s\n", runID)
	fmt.Printf("samples: %d every %g turns\n", len(snaps), step)
	fmt.Printf("synchrotron tune: %.6g\n", tune)
	if tune > 0 {
		fmt.Printf("synchrotron period: %.1f turns\n\n", 1/tune)
	}
	fmt.Println(asciigraph.Plot(ps[1:], asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("|FFT| of mean dt")))
	return nil
}

func export(fn func(*storage.Store, io.Writer) error) error {
	st := storage.New(dataDir)
	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := fn(st, w); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported to %s\n", outFile)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario %s: %d steps\n", scenario.Name, len(scenario.Steps))
	results, err := automation.RunScenario(ctx, scenario, componentLogger())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPRESET\tTURNS\tLOSS\tSIGMA_DE_GROWTH\tRUN ID")
	for i, r := range results {
		runID, saveErr := st.Save(r.Experiment.Metadata(), r.Result, nil)
		if saveErr != nil {
			return saveErr
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.4g\t%.4g\t%s\n",
			i+1,
			r.Experiment.Config().Name,
			r.Result.TurnsTaken,
			r.Result.Metrics["loss_fraction"],
			r.Result.Metrics["sigma_de_growth"],
			runID,
		)
	}
	if flushErr := w.Flush(); flushErr != nil {
		return flushErr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("sweeping %s of %s from %g to %g in %d steps\n\n", sweepParam, cfg.Name, sweepMin, sweepMax, sweepSteps)
	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:     cfg,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	}, componentLogger())
	if err != nil && len(results) == 0 {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTURNS\tLOSS\tSIGMA_DE_GROWTH\tEMITTANCE_DRIFT\tSTABLE\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%.4g\t%.4g\t%.4g\t%v\n",
			r.Value,
			r.TurnsTaken,
			r.Metrics["loss_fraction"],
			r.Metrics["sigma_de_growth"],
			r.Metrics["emittance_drift"],
			r.Stable(),
		)
	}
	if flushErr := w.Flush(); flushErr != nil {
		return flushErr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tracking %d trials of %s, bunch length jitter %.0f%%\n\n", trials, cfg.Name, 100*jitter)
	start := time.Now()
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:          cfg,
		NumTrials:     trials,
		Seed:          cfg.Seed,
		SigmaDtJitter: jitter,
		MaxLoss:       maxLoss,
	}, componentLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tSIGMA_DT [ns]\tLOSS\tSIGMA_DE_GROWTH\tSTABLE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.4g\t%.4g\t%.4g\t%v\n",
			r.TrialID,
			r.Seed,
			r.SigmaDt*1e9,
			r.Metrics["loss_fraction"],
			r.Metrics["sigma_de_growth"],
			r.Stable,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\n%d stable, %d unstable in %v\n", stable, unstable, time.Since(start))
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("searching %d points of %s for the smallest %s\n", gs.Points(), cfg.Name, metricName)
	build := optim.ConfigBuilder(cfg, func(c *config.Config) (*experiment.Experiment, error) {
		return experiment.New(c, componentLogger())
	})
	best, value, err := gs.Search(ctx, build, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s: %.6g\n", metricName, value)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	return nil
}

// parseGrid reads name=v1,v2,... entries.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	if len(entries) == 0 {
		return nil, nil, errors.New("no --grid given")
	}
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("bad grid entry %q, want name=v1,v2", e)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}
