package fit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/eprsim/internal/epr"
)

var (
	// ErrAlreadyRunning is returned when a runner is started twice.
	ErrAlreadyRunning = errors.New("fit: runner already running")

	// ErrNotStarted is returned by Wait when no run was started.
	ErrNotStarted = errors.New("fit: runner not started")
)

// Metric accumulates a scalar over the cycles of a run.
type Metric interface {
	Name() string
	Observe(res CycleResult)
	Value() float64
	Reset()
}

// Observer is notified after every cycle from the worker goroutine.
type Observer interface {
	OnCycle(res CycleResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(CycleResult)

func (f ObserverFunc) OnCycle(res CycleResult) { f(res) }

// Result summarizes one run of the fit loop.
type Result struct {
	Cycles   int
	Accepted int
	Stale    int
	Sigma    float64
	Radicals []epr.Radical
	Metrics  map[string]float64
	Duration time.Duration
}

// Runner drives an engine until it is stopped, its context ends or the cycle
// budget is spent. The run flag is polled between cycles only.
type Runner struct {
	engine    *Engine
	logger    *slog.Logger
	metrics   []Metric
	observers []Observer

	running atomic.Bool

	mu     sync.Mutex
	done   chan struct{}
	result *Result
	err    error
}

func NewRunner(engine *Engine) *Runner {
	return &Runner{
		engine:    engine,
		logger:    engine.session.logger,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

// AddMetric and AddObserver must be called before the run starts.
func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Running() bool { return r.running.Load() }

// Stop asks the worker to finish after the cycle in flight.
func (r *Runner) Stop() { r.running.Store(false) }

// Run executes cycles on the calling goroutine. maxCycles <= 0 means no
// limit. A synthesis or dimension error aborts the run and is returned
// together with the partial result.
func (r *Runner) Run(ctx context.Context, maxCycles int) (*Result, error) {
	if err := r.acquire(); err != nil {
		return nil, err
	}
	defer r.running.Store(false)
	return r.loop(ctx, maxCycles)
}

// acquire sets the run flag. A worker that was asked to stop may still be
// finishing its last cycle; it is waited for so that two loops never share
// the engine.
func (r *Runner) acquire() error {
	if r.running.Load() {
		return ErrAlreadyRunning
	}
	r.mu.Lock()
	prev := r.done
	r.mu.Unlock()
	if prev != nil {
		<-prev
	}
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (r *Runner) loop(ctx context.Context, maxCycles int) (*Result, error) {
	start := time.Now()
	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range r.metrics {
		m.Reset()
	}

	finish := func() {
		st := r.engine.session.Status()
		result.Sigma = st.Sigma
		result.Radicals = r.engine.session.Radicals()
		result.Duration = time.Since(start)
		for _, m := range r.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}

	for maxCycles <= 0 || result.Cycles < maxCycles {
		if !r.running.Load() {
			break
		}
		select {
		case <-ctx.Done():
			finish()
			return result, ctx.Err()
		default:
		}

		res, err := r.engine.Cycle()
		if err != nil {
			finish()
			r.logger.Error("fit loop aborted", "cycle", result.Cycles, "error", err)
			return result, err
		}

		result.Cycles++
		if res.Accepted {
			result.Accepted++
		}
		if res.Stale {
			result.Stale++
		}
		for _, m := range r.metrics {
			m.Observe(res)
		}
		for _, obs := range r.observers {
			obs.OnCycle(res)
		}
	}

	finish()
	r.logger.Debug("fit loop finished", "cycles", result.Cycles, "accepted", result.Accepted, "sigma", result.Sigma)
	return result, nil
}

// Start runs the loop on a new goroutine.
func (r *Runner) Start(ctx context.Context, maxCycles int) error {
	if err := r.acquire(); err != nil {
		return err
	}
	done := make(chan struct{})

	r.mu.Lock()
	r.done = done
	r.result, r.err = nil, nil
	r.mu.Unlock()

	go func() {
		defer close(done)
		res, err := r.loop(ctx, maxCycles)
		r.running.Store(false)

		r.mu.Lock()
		r.result, r.err = res, err
		r.mu.Unlock()
	}()
	return nil
}

// Wait blocks until the run begun by Start ends.
func (r *Runner) Wait() (*Result, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil, ErrNotStarted
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}
