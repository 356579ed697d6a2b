package synth

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/san-kum/eprsim/internal/epr"
)

// Settings are fixed for a fitting session.
type Settings struct {
	Sweep  float64 `yaml:"sweep" json:"sweep"`
	Points int     `yaml:"points" json:"points"`
}

// Increment is the field step between adjacent samples.
func (s Settings) Increment() float64 {
	return s.Sweep / float64(s.Points-1)
}

// Field is the field position of sample i, centered on zero.
func (s Settings) Field(i int) float64 {
	return -s.Sweep/2 + float64(i)*s.Increment()
}

func (s Settings) validate() error {
	if s.Points < 2 {
		return fmt.Errorf("synth: %d points, need at least 2: %w", s.Points, epr.ErrDimensionMismatch)
	}
	if !(s.Sweep > 0) || math.IsInf(s.Sweep, 0) {
		return fmt.Errorf("synth: sweep %g is not a positive width: %w", s.Sweep, epr.ErrDimensionMismatch)
	}
	return nil
}

type Synthesizer struct {
	settings Settings
	incr     float64
	scratch  *scratchPool
}

func New(s Settings) (*Synthesizer, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{settings: s, incr: s.Increment(), scratch: newScratchPool(s.Points)}, nil
}

func (s *Synthesizer) Settings() Settings { return s.settings }

// Synthesize returns the summed spectrum of rads, len == Points.
// Radicals contribute additively in list order.
func (s *Synthesizer) Synthesize(rads []epr.Radical) ([]float64, error) {
	out := make([]float64, s.settings.Points)
	scratch := s.scratch.get()
	defer s.scratch.put(scratch)
	for i, r := range rads {
		if err := s.accumulate(out, *scratch, r); err != nil {
			return nil, fmt.Errorf("radical %d: %w", i, err)
		}
	}
	return out, nil
}

func (s *Synthesizer) accumulate(out, scratch []float64, r epr.Radical) error {
	l, err := s.Ladder(r)
	if err != nil {
		return err
	}
	sticks, err := s.Recenter(l)
	if err != nil {
		return err
	}
	kernel := s.Kernel(r, l.Total)

	points := s.settings.Points
	half := points / 2
	for t, v := range sticks {
		if v == 0 {
			continue
		}
		// out[t-half+k] += kernel[k]*v for every k landing inside the window
		lo := max(0, half-t)
		hi := min(points, points+half-t)
		if lo >= hi {
			continue
		}
		buf := scratch[:hi-lo]
		vecmath.ScaleBlock(buf, kernel[lo:hi], v)
		vecmath.AddBlockInPlace(out[t-half+lo:t-half+hi], buf)
	}
	return nil
}
