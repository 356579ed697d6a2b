package synth

import (
	"fmt"
	"math"

	"github.com/san-kum/eprsim/internal/epr"
)

// maxLadder caps the stick array so absurd couplings fail instead of
// allocating without bound.
const maxLadder = 1 << 24

// maxSplits caps the split passes of one radical, copies times new lines
// summed over its nuclei, so a cycle costs at most maxSplits scans.
const maxSplits = 1 << 12

// Ladder is an unnormalized stick spectrum. Ticks[0] is the unsplit line;
// the sum of all ticks equals Total.
type Ladder struct {
	Ticks []float64
	Total float64
	Peak  int
}

// Ladder splits a unit line by every nucleus of r, copy by copy, in list order.
// Each pass scans existing ticks from the highest populated index down so that
// ticks created in the pass are not split again by it.
func (s *Synthesizer) Ladder(r epr.Radical) (Ladder, error) {
	bound, splits := 1.0, 0.0
	for _, n := range r.Nucs {
		m := math.Max(0, math.Floor(2*n.Spin.Val))
		c := math.Max(0, math.Floor(n.Eqs.Val))
		bound += spacing(n, s.incr) * m * c
		splits += m * c
	}
	if !(splits <= maxSplits) {
		return Ladder{}, fmt.Errorf("synth: %g line splits, limit is %d: %w", splits, maxSplits, epr.ErrDimensionMismatch)
	}
	if !(bound < maxLadder) {
		return Ladder{}, fmt.Errorf("synth: hyperfine spread of %g samples: %w", bound, epr.ErrDimensionMismatch)
	}

	size := max(s.settings.Points, int(bound)+1)
	ticks := make([]float64, size)
	ticks[0] = 1
	total := 1.0
	peak := 0

	for _, n := range r.Nucs {
		sp := spacing(n, s.incr)
		m := lines(n)
		if m == 0 {
			continue
		}
		for eq := 0; eq < n.Copies(); eq++ {
			for idx := peak; idx >= 0; idx-- {
				parent := ticks[idx]
				if parent == 0 {
					continue
				}
				for i := 1; i <= m; i++ {
					pos := idx + int(float64(i)*sp)
					ticks[pos] += parent
					total += parent
					if pos > peak {
						peak = pos
					}
				}
			}
		}
	}

	if math.IsInf(total, 0) {
		return Ladder{}, fmt.Errorf("synth: line intensities overflow: %w", epr.ErrDimensionMismatch)
	}
	return Ladder{Ticks: ticks, Total: total, Peak: peak}, nil
}

// spacing is the index distance between adjacent lines of a split.
// The pattern is symmetric, so the sign of the coupling is dropped.
func spacing(n epr.Nucleus, incr float64) float64 {
	sp := n.Hpf.Val / incr
	if sp < 0 {
		return -sp
	}
	return sp
}

// lines is the number of new ticks each split adds (2I).
func lines(n epr.Nucleus) int {
	m := n.Multiplicity() - 1
	if m < 0 {
		return 0
	}
	return m
}

// Recenter moves the populated ticks by (Points-Peak)/2 into a Points-long
// window. Ticks that would leave the window are an error.
func (s *Synthesizer) Recenter(l Ladder) ([]float64, error) {
	points := s.settings.Points
	shift := (points - l.Peak) / 2
	if shift < 0 || l.Peak+shift >= points {
		return nil, fmt.Errorf("synth: stick spectrum spans %d samples, window has %d: %w",
			l.Peak+1, points, epr.ErrDimensionMismatch)
	}
	out := make([]float64, points)
	copy(out[shift:], l.Ticks[:l.Peak+1])
	return out, nil
}
