package experiment

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/eprsim/internal/fit"
)

// Outcome is one member of an ensemble.
type Outcome struct {
	Seed       int64
	Experiment *Experiment
	Result     *fit.Result
}

// Ensemble repeats one fit from independent seeds in parallel. Each member
// gets its own session, so members never share state.
type Ensemble struct {
	base      Config
	numRuns   int
	seedStart int64
	metrics   func() []fit.Metric
}

// NewEnsemble runs numRuns copies of base seeded seedStart, seedStart+1, ...
// newMetrics is called once per member; nil attaches no metrics.
func NewEnsemble(base Config, numRuns int, seedStart int64, newMetrics func() []fit.Metric) *Ensemble {
	return &Ensemble{base: base, numRuns: numRuns, seedStart: seedStart, metrics: newMetrics}
}

func (e *Ensemble) Run(ctx context.Context) ([]Outcome, error) {
	if e.numRuns < 1 {
		return nil, fmt.Errorf("ensemble needs at least one run, got %d", e.numRuns)
	}
	outcomes := make([]Outcome, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfg := e.base
			cfg.Seed = e.seedStart + int64(idx)
			cfg.Name = fmt.Sprintf("%s-s%d", e.base.Name, cfg.Seed)

			exp := New(cfg)
			var ms []fit.Metric
			if e.metrics != nil {
				ms = e.metrics()
			}
			if err := exp.Setup(ms); err != nil {
				errs[idx] = err
				return
			}
			res, err := exp.Run(ctx)
			outcomes[idx] = Outcome{Seed: cfg.Seed, Experiment: exp, Result: res}
			errs[idx] = err
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", e.seedStart+int64(i), err)
		}
	}
	return outcomes, nil
}

// Best returns the outcome with the lowest final sigma.
func Best(outcomes []Outcome) (Outcome, bool) {
	if len(outcomes) == 0 {
		return Outcome{}, false
	}
	best := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.Result.Sigma < best.Result.Sigma {
			best = o
		}
	}
	return best, true
}
