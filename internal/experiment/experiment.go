// Package experiment wires a configured fit together: settings, data,
// radicals, a seeded random source, metrics and a runner.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/san-kum/eprsim/internal/config"
	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/ingest"
	"github.com/san-kum/eprsim/internal/storage"
	"github.com/san-kum/eprsim/internal/synth"
)

type Config struct {
	Name         string
	Settings     synth.Settings
	Experimental []float64
	Radicals     []epr.Radical
	Iterations   int
	Seed         int64
}

// FromConfig loads the experimental file named by cfg, if any, and resolves
// the settings it leaves unset from the data.
func FromConfig(name string, cfg *config.Config) (Config, error) {
	var (
		data  []float64
		sweep float64
	)
	if cfg.Experimental != "" {
		var opts []ingest.Option
		if cfg.Strict {
			opts = append(opts, ingest.Strict())
		}
		sp, err := ingest.LoadFile(cfg.Experimental, opts...)
		if err != nil {
			return Config{}, fmt.Errorf("load experimental data: %w", err)
		}
		data, sweep = sp.Intensity, sp.Sweep()
	}

	settings, err := cfg.Settings(len(data), sweep)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Name:         name,
		Settings:     settings,
		Experimental: data,
		Radicals:     epr.CloneAll(cfg.Radicals),
		Iterations:   cfg.Iterations,
		Seed:         cfg.Seed,
	}, nil
}

type Experiment struct {
	cfg        Config
	logger     *slog.Logger
	session    *fit.Session
	runner     *fit.Runner
	randSource *rand.Rand
}

func New(cfg Config) *Experiment {
	return &Experiment{
		cfg:        cfg,
		logger:     slog.Default(),
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (e *Experiment) WithLogger(l *slog.Logger) *Experiment {
	e.logger = l
	return e
}

// Setup builds the session and runner. Without experimental data the session
// can synthesize but every fit cycle fails with a dimension mismatch.
func (e *Experiment) Setup(metrics []fit.Metric) error {
	session, err := fit.NewSession(e.cfg.Settings,
		fit.WithLogger(e.logger),
		fit.WithRadicals(e.cfg.Radicals...),
	)
	if err != nil {
		return err
	}
	if e.cfg.Experimental != nil {
		if err := session.SetExperimental(e.cfg.Experimental); err != nil {
			return fmt.Errorf("experimental data: %w", err)
		}
	}

	e.session = session
	e.runner = fit.NewRunner(fit.NewEngine(session, e.randSource))
	for _, m := range metrics {
		e.runner.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*fit.Result, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if _, err := e.session.Evaluate(); err != nil {
		return nil, err
	}
	return e.runner.Run(ctx, e.cfg.Iterations)
}

func (e *Experiment) Session() *fit.Session { return e.session }

// Runner returns the underlying runner for adding observers.
func (e *Experiment) Runner() *fit.Runner { return e.runner }

func (e *Experiment) Config() Config { return e.cfg }

// Record turns a finished run into a storable history entry.
func (e *Experiment) Record(res *fit.Result) storage.Run {
	st := e.session.Status()
	run := storage.Run{
		ID:           storage.NewRunID(e.cfg.Name),
		Name:         e.cfg.Name,
		Timestamp:    time.Now().UTC(),
		Seed:         e.cfg.Seed,
		Settings:     e.cfg.Settings,
		Iterations:   st.Iterations,
		Accepted:     st.Accepted,
		Sigma:        st.Sigma,
		Norm:         st.Norm,
		Radicals:     e.session.Radicals(),
		Metrics:      map[string]float64{},
		Experimental: e.session.Experimental(),
		Theoretical:  e.session.Fitted(),
	}
	if res != nil {
		for k, v := range res.Metrics {
			run.Metrics[k] = v
		}
	}
	return run
}
