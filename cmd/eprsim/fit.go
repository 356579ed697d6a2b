package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/eprsim/internal/automation"
	"github.com/san-kum/eprsim/internal/config"
	"github.com/san-kum/eprsim/internal/experiment"
	"github.com/san-kum/eprsim/internal/export"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/ingest"
	"github.com/san-kum/eprsim/internal/metrics"
	"github.com/san-kum/eprsim/internal/numeric"
	"github.com/san-kum/eprsim/internal/optim"
	"github.com/san-kum/eprsim/internal/storage"
	"github.com/san-kum/eprsim/internal/synth"
	"github.com/san-kum/eprsim/internal/viz"
)

const progressEvery = 1000

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := experiment.FromConfig(nameOr("simulate"), cfg)
	if err != nil {
		return err
	}

	sy, err := synth.New(expCfg.Settings)
	if err != nil {
		return err
	}
	spectrum, err := sy.Synthesize(expCfg.Radicals)
	if err != nil {
		return fmt.Errorf("failed to synthesize: %w", err)
	}

	fmt.Printf("radicals: %d\n", len(expCfg.Radicals))
	fmt.Printf("points: %d, sweep: %g\n", expCfg.Settings.Points, expCfg.Settings.Sweep)
	fmt.Printf("extremes: %.6g .. %.6g (abs max %.6g)\n\n",
		numeric.Min(spectrum), numeric.Max(spectrum), numeric.AbsMax(spectrum))
	fmt.Println(asciigraph.Plot(spectrum,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("simulated spectrum"),
	))

	if outFile == "" {
		return nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ingest.Write(f, spectrum, expCfg.Settings.Sweep); err != nil {
		return err
	}
	fmt.Printf("\nwritten to %s\n", outFile)
	return f.Close()
}

func runFit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := experiment.FromConfig(nameOr("fit"), cfg)
	if err != nil {
		return err
	}
	if expCfg.Experimental == nil {
		return errors.New("fit needs experimental data (--data-file or experimental in the config)")
	}

	if len(scans) > 0 {
		best, err := prescan(ctx, expCfg)
		if err != nil {
			return fmt.Errorf("pre-scan failed: %w", err)
		}
		slog.Info("pre-scan done", "evaluated", best.Evaluated, "sigma", best.Sigma, "params", best.Params)
		expCfg.Radicals = best.Radicals
	}

	var (
		exp *experiment.Experiment
		res *fit.Result
	)
	if seeds > 1 {
		slog.Info("running ensemble", "seeds", seeds, "iterations", expCfg.Iterations)
		outcomes, err := experiment.NewEnsemble(expCfg, seeds, expCfg.Seed, metrics.Default).Run(ctx)
		if err != nil {
			return err
		}
		best, ok := experiment.Best(outcomes)
		if !ok {
			return errors.New("ensemble produced no runs")
		}
		exp, res = best.Experiment, best.Result
	} else {
		exp = experiment.New(expCfg)
		if err := exp.Setup(metrics.Default()); err != nil {
			return err
		}
		exp.Runner().AddObserver(fit.ObserverFunc(func(c fit.CycleResult) {
			if c.Iteration%progressEvery == 0 {
				slog.Info("fitting", "iteration", c.Iteration, "sigma", c.Best)
			}
		}))
		res, err = exp.Run(ctx)
		if errors.Is(err, context.Canceled) && res != nil {
			slog.Warn("fit interrupted", "cycles", res.Cycles)
			err = nil
		}
		if err != nil {
			return err
		}
	}

	run := exp.Record(res)
	printRun(run, res)
	return finishRun(ctx, cmd, cfg, run)
}

// finishRun stores and exports a run as the flags ask.
func finishRun(ctx context.Context, cmd *cobra.Command, cfg *config.Config, run storage.Run) error {
	if !noSave {
		st, err := openStore(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer storage.CloseIfSupported(st)
		if err := st.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		fmt.Printf("\nrun id: %s\n", run.ID)
	}
	if outFile != "" {
		if err := export.ToFile(outFile, "", run); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		fmt.Printf("exported to %s\n", outFile)
	}
	return nil
}

func prescan(ctx context.Context, expCfg experiment.Config) (*optim.Best, error) {
	targets, ranges, err := parseScans(scans)
	if err != nil {
		return nil, err
	}
	g, err := optim.NewGridSearch(targets, ranges)
	if err != nil {
		return nil, err
	}
	s, err := fit.NewSession(expCfg.Settings, fit.WithRadicals(expCfg.Radicals...))
	if err != nil {
		return nil, err
	}
	if err := s.SetExperimental(expCfg.Experimental); err != nil {
		return nil, err
	}
	slog.Info("pre-scanning", "points", humanize.Comma(int64(g.Size())))
	return g.Search(ctx, s)
}

func parseScans(specs []string) ([]string, [][]float64, error) {
	targets := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		k, v, err := splitAssign(spec)
		if err != nil {
			return nil, nil, err
		}
		vals, err := optim.ParseRange(v)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, k)
		ranges = append(ranges, vals)
	}
	return targets, ranges, nil
}

func printRun(run storage.Run, res *fit.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "name\t%s\n", run.Name)
	fmt.Fprintf(w, "seed\t%d\n", run.Seed)
	fmt.Fprintf(w, "sigma\t%.6g\n", run.Sigma)
	fmt.Fprintf(w, "norm\t%.6g\n", run.Norm)
	fmt.Fprintf(w, "iterations\t%s\n", humanize.Comma(int64(run.Iterations)))
	fmt.Fprintf(w, "accepted\t%s\n", humanize.Comma(int64(run.Accepted)))
	if res != nil {
		fmt.Fprintf(w, "elapsed\t%v\n", res.Duration.Round(1e6))
	}
	w.Flush()

	if len(run.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		names := make([]string, 0, len(run.Metrics))
		for k := range run.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Printf("  %s: %.6f\n", k, run.Metrics[k])
		}
	}

	fmt.Println("\nradicals:")
	printParams(run)
}

func printParams(run storage.Run) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RADICAL\tNUCLEUS\tFIELD\tVALUE")
	for _, p := range export.ParamRows(run.Radicals) {
		nuc := "-"
		if p.Nucleus >= 0 {
			nuc = fmt.Sprint(p.Nucleus)
		}
		fmt.Fprintf(w, "  %d\t%s\t%s.%s\t%.6g\n", p.Radical, nuc, p.Field, p.Sub, p.Value)
	}
	w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := experiment.FromConfig(nameOr("live"), cfg)
	if err != nil {
		return err
	}
	if expCfg.Experimental == nil {
		return errors.New("live fitting needs experimental data (--data-file or experimental in the config)")
	}

	exp := experiment.New(expCfg)
	if err := exp.Setup(metrics.Default()); err != nil {
		return err
	}
	if _, err := exp.Session().Evaluate(); err != nil {
		return err
	}

	m := viz.NewMonitor(ctx, expCfg.Name, exp.Session(), exp.Runner(), expCfg.Iterations).WithTheme(theme)
	if err := viz.Run(ctx, m); err != nil {
		return err
	}

	run := exp.Record(nil)
	printRun(run, nil)
	return finishRun(ctx, cmd, cfg, run)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if len(scans) == 0 {
		return errors.New("nothing to scan; pass --scan target=values")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := experiment.FromConfig(nameOr("scan"), cfg)
	if err != nil {
		return err
	}
	if expCfg.Experimental == nil {
		return errors.New("scan needs experimental data (--data-file or experimental in the config)")
	}

	best, err := prescan(ctx, expCfg)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %s points, skipped %d\n", humanize.Comma(int64(best.Evaluated)), best.Skipped)
	fmt.Printf("best sigma: %.6g (norm %.6g)\n\n", best.Sigma, best.Norm)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tVALUE")
	keys := make([]string, 0, len(best.Params))
	for k := range best.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%.6g\n", k, best.Params[k])
	}
	w.Flush()

	if outFile != "" {
		cfg.Radicals = best.Radicals
		if err := config.Save(outFile, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("\nconfig written to %s\n", outFile)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	st, err := openStore(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	results, err := automation.NewRunner(experiment.NewRegistry(), st, slog.Default()).RunScenario(ctx, sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tSIGMA\tITERATIONS\tACCEPTED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.6g\t%s\t%s\n", r.Step, r.Run.ID, r.Run.Sigma,
			humanize.Comma(int64(r.Run.Iterations)), humanize.Comma(int64(r.Run.Accepted)))
	}
	w.Flush()
	return err
}
