package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/eprsim/internal/config"
	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/metrics"
)

// Registry resolves radical sets and metrics by name. Every lookup returns
// fresh values, so results can be handed to concurrent runs.
type Registry struct {
	radicals map[string]func() []epr.Radical
	metrics  map[string]func() fit.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		radicals: make(map[string]func() []epr.Radical),
		metrics:  make(map[string]func() fit.Metric),
	}

	for name, fn := range config.Presets {
		r.radicals[name] = fn
	}

	r.metrics["acceptance_rate"] = func() fit.Metric { return metrics.NewAcceptance() }
	r.metrics["stale_rate"] = func() fit.Metric { return metrics.NewStaleRate() }
	r.metrics["best_sigma"] = func() fit.Metric { return metrics.NewBestSigma() }
	r.metrics["improvement"] = func() fit.Metric { return metrics.NewImprovement() }

	return r
}

// RegisterRadicals adds or replaces a named radical set.
func (r *Registry) RegisterRadicals(name string, fn func() []epr.Radical) {
	r.radicals[name] = fn
}

func (r *Registry) GetRadicals(name string) ([]epr.Radical, error) {
	fn, ok := r.radicals[name]
	if !ok {
		return nil, fmt.Errorf("unknown radical set: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetMetric(name string) (fit.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListRadicals() []string {
	return sortedKeys(r.radicals)
}

func (r *Registry) ListMetrics() []string {
	return sortedKeys(r.metrics)
}

func (r *Registry) DefaultMetrics() []fit.Metric {
	return metrics.Default()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
