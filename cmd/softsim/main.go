package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/automation"
	"github.com/san-kum/softsim/internal/compute"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/storage"
	"github.com/san-kum/softsim/internal/stream"
)

var (
	dataDir     string
	verbose     bool
	dt          float64
	duration    float64
	seed        int64
	integrator  string
	backend     string
	contact     string
	particles   int
	iterations  int
	configFile  string
	preset      string
	jsonOut     bool
	benchSteps  int
	addr        string
	every       int
	realtime    bool
	sweepRanges []string
	metricName  string
	workers     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "softsim",
		Short: "soft-body and particle fluid simulation",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".softsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene and save its metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  runScene,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "also write the run as JSON to stdout")

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "time solver steps",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchSteps, "steps", 200, "steps per measurement")

	serveCmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "run a scene and stream frames over websocket",
		Args:  cobra.ExactArgs(1),
		RunE:  serveScene,
	}
	sceneFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().IntVar(&every, "every", 0, "send one frame every n steps (default from config)")
	serveCmd.Flags().BoolVar(&realtime, "realtime", true, "pace the run to wall-clock time")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [metric]",
		Short: "plot metric series of a run",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and settling analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and series as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list available presets for a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [scene]",
		Short: "run a scene over a parameter grid and rank the points by a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepScene,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepRanges, "param", nil, "parameter range, name=v1,v2 or name=lo:hi:n (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "penetration", "metric to minimise")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default GOMAXPROCS)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a scenario file and save each run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(runCmd, benchCmd, serveCmd, listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, sweepCmd, scenarioCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().Float64Var(&dt, "dt", def.Dt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", def.Duration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", def.Integrator, "integrator (softbody)")
	cmd.Flags().StringVar(&backend, "backend", def.Backend, "compute backend (fluid): cpu or opencl")
	cmd.Flags().StringVar(&contact, "contact", def.SoftBody.ContactMode, "contact mode (softbody): reset or slide")
	cmd.Flags().IntVar(&particles, "particles", def.Fluid.Particles, "particle count (fluid)")
	cmd.Flags().IntVar(&iterations, "iterations", def.Fluid.Iterations, "solver iterations (fluid)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// loadConfig layers defaults, then the preset, then the config file, then
// any flag the user set explicitly.
func loadConfig(cmd *cobra.Command, scene string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(scene, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scene))
		}
		cfg = p
	}
	if configFile != "" {
		if err := config.Merge(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.Scene = scene

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("contact") {
		cfg.SoftBody.ContactMode = contact
	}
	if flags.Changed("particles") {
		cfg.Fluid.Particles = particles
	}
	if flags.Changed("iterations") {
		cfg.Fluid.Iterations = iterations
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Stream.Addr = addr
	}
	if flags.Lookup("every") != nil && flags.Changed("every") {
		cfg.Stream.Every = every
	}
	return cfg, nil
}

func sceneLabel(cfg *config.Config) string {
	if preset != "" {
		return cfg.Scene + "/" + preset
	}
	return cfg.Scene
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)
	automation.SetLogger(l)
	compute.SetLogger(l)
	sim.SetLogger(l)
	storage.SetLogger(l)
	stream.SetLogger(l)
}
