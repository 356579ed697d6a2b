package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/eprsim/internal/config"
	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/storage"
)

var (
	dataDir   string
	storeKind string
	logLevel  string

	configFile   string
	preset       string
	sweep        float64
	points       int
	iterations   int
	seed         int64
	seeds        int
	dataFile     string
	strict       bool
	runName      string
	edits        []string
	scans        []string
	outFile      string
	exportFormat string
	theme        string
	noSave       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "eprsim",
		Short:         "EPR spectrum simulation and Monte Carlo fitting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".eprsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "file", "run store backend (file, memory, sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "synthesize the spectrum of a radical set",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	addSessionFlags(simulateCmd)
	simulateCmd.Flags().StringVar(&outFile, "out", "", "write the spectrum as three-column text")

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "fit radicals to an experimental spectrum",
		Args:  cobra.NoArgs,
		RunE:  runFit,
	}
	addSessionFlags(fitCmd)
	addFitFlags(fitCmd)
	fitCmd.Flags().IntVar(&seeds, "seeds", 1, "independent seeds to run in parallel; the best is kept")
	fitCmd.Flags().StringArrayVar(&scans, "scan", nil, "grid pre-scan, target=values (e.g. 0.lwa.val=0.5:1.5:0.1)")
	fitCmd.Flags().StringVar(&outFile, "export", "", "export the finished run (json, csv, tsv, xlsx by extension)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fit interactively with a live monitor",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSessionFlags(liveCmd)
	addFitFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "grid-scan parameters against an experimental spectrum",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
	addSessionFlags(scanCmd)
	scanCmd.Flags().StringArrayVar(&edits, "set", nil, "set a value before scanning, target=value")
	scanCmd.Flags().StringArrayVar(&scans, "scan", nil, "target=values, repeatable")
	scanCmd.Flags().StringVar(&outFile, "save-config", "", "write a config with the best radicals")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted fit scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored fit runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file; stdout when empty")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json, csv, tsv or xlsx (default from extension, json on stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list radical presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(simulateCmd, fitCmd, liveCmd, scanCmd, batchCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a radical preset")
	cmd.Flags().Float64Var(&sweep, "sweep", config.DefaultSweep, "field sweep width; 0 takes it from the data")
	cmd.Flags().IntVar(&points, "points", config.DefaultPoints, "spectrum resolution; 0 takes it from the data")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "experimental spectrum (three-column text)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on malformed data lines instead of skipping them")
	cmd.Flags().StringVar(&runName, "name", "", "run name")
}

func addFitFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "fit cycles; 0 runs until interrupted")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringArrayVar(&edits, "set", nil, "set a value before fitting, target=value (e.g. 0.lwa.var=0.2)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig resolves defaults, then the preset, then the config file, then
// explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			loaded.Radicals = cfg.Radicals
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("sweep") {
		cfg.Sweep = sweep
	}
	if flags.Changed("points") {
		cfg.Points = points
	}
	if flags.Changed("data-file") {
		cfg.Experimental = dataFile
	}
	if flags.Changed("strict") {
		cfg.Strict = strict
	}
	if flags.Lookup("iterations") != nil && flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Lookup("seed") != nil && (flags.Changed("seed") || cfg.Seed == 0) {
		cfg.Seed = seed
	}
	if flags.Changed("set") {
		rads, err := applyEdits(cfg.Radicals, edits)
		if err != nil {
			return nil, err
		}
		cfg.Radicals = rads
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitAssign splits "target=value".
func splitAssign(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" || v == "" {
		return "", "", fmt.Errorf("%q: want target=value", s)
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), nil
}

func applyEdits(rads []epr.Radical, assigns []string) ([]epr.Radical, error) {
	for _, a := range assigns {
		k, v, err := splitAssign(a)
		if err != nil {
			return nil, err
		}
		t, err := epr.ParseTarget(k)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", a, err)
		}
		if rads, err = t.Apply(rads, f); err != nil {
			return nil, err
		}
	}
	return rads, nil
}

// openStore opens the run store. The store section of a loaded config file
// applies unless --store or --data was given.
func openStore(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (storage.Store, error) {
	kind, dir := storeKind, dataDir
	flags := cmd.Flags()
	if cfg != nil && configFile != "" && !flags.Changed("store") && !flags.Changed("data") {
		if cfg.Store.Kind != "" {
			kind = cfg.Store.Kind
		}
		if cfg.Store.Path != "" {
			dir = cfg.Store.Path
		}
	}

	path := dir
	if kind == "sqlite" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "runs.db")
	}
	st, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", kind, err)
	}
	return st, nil
}

func nameOr(fallback string) string {
	if runName != "" {
		return runName
	}
	return fallback
}
