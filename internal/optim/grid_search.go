// Package optim scans chosen radical parameters over fixed value lists
// before a Monte Carlo fit.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/numeric"
	"github.com/san-kum/eprsim/internal/synth"
)

// Best is the lowest-scoring grid point.
type Best struct {
	Params    map[string]float64
	Radicals  []epr.Radical
	Sigma     float64
	Norm      float64
	Evaluated int
	// Skipped counts grid points whose spectrum did not fit the window.
	Skipped int
}

type GridSearch struct {
	targets []epr.Target
	ranges  [][]float64
}

// NewGridSearch takes target names in "r.field.sub" or "r.n.field.sub" form
// and one value list per target.
func NewGridSearch(targets []string, ranges [][]float64) (*GridSearch, error) {
	if len(targets) != len(ranges) {
		return nil, fmt.Errorf("%d targets but %d value lists", len(targets), len(ranges))
	}
	g := &GridSearch{ranges: ranges}
	for i, name := range targets {
		t, err := epr.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("target %s has no values", name)
		}
		g.targets = append(g.targets, t)
	}
	return g, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search scores every grid point against the session's experimental data,
// starting from its current radicals. The session itself is not modified.
func (g *GridSearch) Search(ctx context.Context, s *fit.Session) (*Best, error) {
	exp := s.Experimental()
	if exp == nil {
		return nil, fmt.Errorf("no experimental data: %w", epr.ErrDimensionMismatch)
	}
	base := s.Radicals()
	// index and field errors are the same for every point
	for i, t := range g.targets {
		if _, err := t.Apply(base, g.ranges[i][0]); err != nil {
			return nil, err
		}
	}

	best := &Best{Sigma: math.Inf(1)}
	err := g.searchRecursive(ctx, 0, base, make(map[string]float64), s.Synthesizer(), exp, best)
	if err != nil {
		return nil, err
	}
	if best.Radicals == nil {
		return best, fmt.Errorf("no grid point fits the window: %w", epr.ErrDimensionMismatch)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	rads []epr.Radical,
	current map[string]float64,
	sy *synth.Synthesizer,
	exp []float64,
	best *Best,
) error {
	if depth == len(g.targets) {
		if err := ctx.Err(); err != nil {
			return err
		}

		teor, err := sy.Synthesize(rads)
		if err != nil {
			if errors.Is(err, epr.ErrDimensionMismatch) {
				best.Skipped++
				return nil
			}
			return err
		}
		score, err := numeric.Evaluate(exp, teor)
		if err != nil {
			return err
		}

		best.Evaluated++
		if score.Sigma < best.Sigma {
			best.Sigma = score.Sigma
			best.Norm = score.Norm
			best.Radicals = rads
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	t := g.targets[depth]
	for _, val := range g.ranges[depth] {
		next, err := t.Apply(rads, val)
		if err != nil {
			return err
		}
		current[t.String()] = val
		if err := g.searchRecursive(ctx, depth+1, next, current, sy, exp, best); err != nil {
			return err
		}
	}
	delete(current, t.String())
	return nil
}

// ParseRange reads "a,b,c" as a value list and "start:stop:step" as an
// inclusive arithmetic range.
func ParseRange(s string) ([]float64, error) {
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("range %q: want start:stop:step", s)
		}
		var v [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("range %q: %w", s, err)
			}
			v[i] = f
		}
		start, stop, step := v[0], v[1], v[2]
		if step <= 0 || stop < start {
			return nil, fmt.Errorf("range %q: need step > 0 and stop >= start", s)
		}
		n := int(math.Floor((stop-start)/step+1e-9)) + 1
		out := make([]float64, n)
		for i := range out {
			out[i] = start + float64(i)*step
		}
		return out, nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		out = append(out, f)
	}
	return out, nil
}
