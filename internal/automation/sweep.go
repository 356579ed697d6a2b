package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/experiment"
)

// ParameterSweep restarts a fit from evenly spaced starting values of one
// parameter to expose local minima.
type ParameterSweep struct {
	Base     experiment.Config
	Target   string
	ParamMin float64
	ParamMax float64
	NumSteps int
}

type SweepResult struct {
	Start    float64
	Final    float64
	Sigma    float64
	Accepted int
}

func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	t, err := epr.ParseTarget(sweep.Target)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	step := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		val := sweep.ParamMin + float64(i)*step
		cfg := sweep.Base
		if cfg.Radicals, err = t.Apply(sweep.Base.Radicals, val); err != nil {
			return nil, err
		}

		exp := experiment.New(cfg).WithLogger(r.logger)
		if err := exp.Setup(nil); err != nil {
			return nil, err
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		final, err := t.Get(res.Radicals)
		if err != nil {
			return nil, err
		}
		results = append(results, SweepResult{
			Start:    val,
			Final:    final,
			Sigma:    res.Sigma,
			Accepted: res.Accepted,
		})
		r.logger.Info("sweep point", "n", i+1, "of", sweep.NumSteps, "target", sweep.Target, "start", val, "sigma", res.Sigma)
	}
	return results, nil
}
