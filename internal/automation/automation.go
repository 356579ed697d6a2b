// Package automation runs scripted sequences of fits from YAML scenarios.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/eprsim/internal/config"
	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/experiment"
	"github.com/san-kum/eprsim/internal/export"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/storage"
)

// Scenario defines a scripted fit sequence. Scenario-level sweep, points and
// iterations apply to every step that leaves them at zero.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Sweep       float64        `yaml:"sweep"`
	Points      int            `yaml:"points"`
	Iterations  int            `yaml:"iterations"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single fit. The starting radicals come from Radicals,
// else from Preset, else from the previous step when Chain is set.
type ScenarioStep struct {
	Name         string             `yaml:"name"`
	Experimental string             `yaml:"experimental"`
	Strict       bool               `yaml:"strict"`
	Preset       string             `yaml:"preset"`
	Radicals     []epr.Radical      `yaml:"radicals"`
	Chain        bool               `yaml:"chain"`
	Edits        map[string]float64 `yaml:"edits"`
	Sweep        float64            `yaml:"sweep"`
	Points       int                `yaml:"points"`
	Iterations   int                `yaml:"iterations"`
	Seed         int64              `yaml:"seed"`
	Seeds        int                `yaml:"seeds"`
	SaveAs       string             `yaml:"save_as"`
}

// StepResult is the stored record of one finished step.
type StepResult struct {
	Step   string
	Run    storage.Run
	Result *fit.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	return &scenario, nil
}

type Runner struct {
	registry *experiment.Registry
	store    storage.Store
	logger   *slog.Logger
}

// NewRunner returns a scenario runner. store may be nil.
func NewRunner(registry *experiment.Registry, store storage.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, store: store, logger: logger}
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the steps that finished.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	var previous []epr.Radical

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", scenario.Name, i+1)
		}
		r.logger.Info("running step", "step", i+1, "of", len(scenario.Steps), "name", name)

		res, err := r.runStep(ctx, scenario, step, name, previous)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		previous = res.Run.Radicals
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, sc *Scenario, step ScenarioStep, name string, previous []epr.Radical) (StepResult, error) {
	rads, err := r.startRadicals(step, previous)
	if err != nil {
		return StepResult{}, err
	}
	for target, v := range step.Edits {
		t, err := epr.ParseTarget(target)
		if err != nil {
			return StepResult{}, err
		}
		if rads, err = t.Apply(rads, v); err != nil {
			return StepResult{}, err
		}
	}

	cfg := config.DefaultConfig()
	cfg.Sweep = firstNonZero(step.Sweep, sc.Sweep, cfg.Sweep)
	cfg.Points = firstNonZeroInt(step.Points, sc.Points, cfg.Points)
	cfg.Iterations = firstNonZeroInt(step.Iterations, sc.Iterations, cfg.Iterations)
	cfg.Seed = step.Seed
	cfg.Experimental = step.Experimental
	cfg.Strict = step.Strict
	cfg.Radicals = rads
	if err := cfg.Validate(); err != nil {
		return StepResult{}, err
	}

	expCfg, err := experiment.FromConfig(name, cfg)
	if err != nil {
		return StepResult{}, err
	}

	var (
		exp *experiment.Experiment
		res *fit.Result
	)
	if step.Seeds > 1 {
		outcomes, err := experiment.NewEnsemble(expCfg, step.Seeds, step.Seed, r.registry.DefaultMetrics).Run(ctx)
		if err != nil {
			return StepResult{}, err
		}
		best, _ := experiment.Best(outcomes)
		exp, res = best.Experiment, best.Result
	} else {
		exp = experiment.New(expCfg).WithLogger(r.logger)
		if err := exp.Setup(r.registry.DefaultMetrics()); err != nil {
			return StepResult{}, err
		}
		if res, err = exp.Run(ctx); err != nil {
			return StepResult{}, err
		}
	}

	run := exp.Record(res)
	r.logger.Info("step finished", "name", name, "sigma", run.Sigma, "accepted", run.Accepted)

	if r.store != nil {
		if err := r.store.SaveRun(ctx, run); err != nil {
			r.logger.Warn("could not store run", "id", run.ID, "error", err)
		}
	}
	if step.SaveAs != "" {
		if err := export.ToFile(step.SaveAs, "", run); err != nil {
			return StepResult{}, fmt.Errorf("export: %w", err)
		}
	}
	return StepResult{Step: name, Run: run, Result: res}, nil
}

func (r *Runner) startRadicals(step ScenarioStep, previous []epr.Radical) ([]epr.Radical, error) {
	switch {
	case len(step.Radicals) > 0:
		return epr.CloneAll(step.Radicals), nil
	case step.Preset != "":
		return r.registry.GetRadicals(step.Preset)
	case step.Chain:
		if previous == nil {
			return nil, fmt.Errorf("chain requested on the first step")
		}
		return epr.CloneAll(previous), nil
	}
	return nil, fmt.Errorf("step names no radicals, preset or chain")
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonZeroInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
