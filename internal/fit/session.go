// Package fit runs the Monte Carlo fit of simulated EPR spectra against an
// experimental one.
//
// A [Session] owns the shared state: radicals, experimental data, the current
// score and the iteration counter. Every access takes the session lock for a
// single operation only. An [Engine] performs one randomize, synthesize, score
// and accept cycle; a [Runner] drives the engine on a worker goroutine while
// editors keep changing the session.
package fit

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/numeric"
	"github.com/san-kum/eprsim/internal/synth"
)

// SigmaSentinel is the score of a radical set that has not been evaluated.
const SigmaSentinel = 1e20

// Status is a consistent snapshot of the session counters for display.
type Status struct {
	Sigma      float64
	Norm       float64
	Iterations int
	Accepted   int
	Radicals   int
	Points     int
	Generation uint64
}

type Session struct {
	synth  *synth.Synthesizer
	logger *slog.Logger

	mu       sync.RWMutex
	exp      []float64
	teor     []float64
	rads     []epr.Radical
	sigma    float64
	norm     float64
	iters    int
	accepted int
	gen      uint64
}

type SessionOption func(*Session)

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithRadicals seeds the session with a copy of rads.
func WithRadicals(rads ...epr.Radical) SessionOption {
	return func(s *Session) { s.rads = epr.CloneAll(rads) }
}

func NewSession(settings synth.Settings, opts ...SessionOption) (*Session, error) {
	sy, err := synth.New(settings)
	if err != nil {
		return nil, err
	}
	s := &Session{
		synth:  sy,
		logger: slog.Default(),
		teor:   make([]float64, settings.Points),
		sigma:  SigmaSentinel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rads == nil {
		s.rads = []epr.Radical{}
	}
	return s, nil
}

func (s *Session) Settings() synth.Settings { return s.synth.Settings() }

// Synthesizer exposes the session's fixed synthesis settings to collaborators
// that render spectra outside the fit loop.
func (s *Session) Synthesizer() *synth.Synthesizer { return s.synth }

// SetExperimental replaces the experimental spectrum. Its length must equal
// the session resolution.
func (s *Session) SetExperimental(exp []float64) error {
	points := s.synth.Settings().Points
	if len(exp) != points {
		return fmt.Errorf("fit: experimental spectrum has %d samples, session has %d points: %w",
			len(exp), points, epr.ErrDimensionMismatch)
	}
	data := make([]float64, len(exp))
	copy(data, exp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exp = data
	s.invalidate()
	return nil
}

// Experimental returns a copy of the experimental spectrum, nil if none is loaded.
func (s *Session) Experimental() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.exp == nil {
		return nil
	}
	out := make([]float64, len(s.exp))
	copy(out, s.exp)
	return out
}

// Theoretical returns a copy of the unscaled spectrum of the last scored
// radical set.
func (s *Session) Theoretical() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.teor))
	copy(out, s.teor)
	return out
}

// Fitted returns the theoretical spectrum multiplied by its scale factor.
func (s *Session) Fitted() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.teor))
	for i, v := range s.teor {
		out[i] = v * s.norm
	}
	return out
}

// Radicals returns a deep copy of the current radical set.
func (s *Session) Radicals() []epr.Radical {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return epr.CloneAll(s.rads)
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Sigma:      s.sigma,
		Norm:       s.norm,
		Iterations: s.iters,
		Accepted:   s.accepted,
		Radicals:   len(s.rads),
		Points:     s.synth.Settings().Points,
		Generation: s.gen,
	}
}

// invalidate marks the stored score as belonging to an older state.
// Callers hold the write lock.
func (s *Session) invalidate() {
	s.gen++
	s.sigma = SigmaSentinel
}

// snapshot is the part of the session a cycle works on outside the lock.
type snapshot struct {
	rads []epr.Radical
	exp  []float64
	gen  uint64
}

func (s *Session) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// exp is replaced, never written in place, so sharing it is safe
	return snapshot{rads: epr.CloneAll(s.rads), exp: s.exp, gen: s.gen}
}

// commit counts one cycle and installs the candidate when it was built from
// the current generation and beats the stored score. Every change of the
// radical set, accepted or edited, starts a new generation.
func (s *Session) commit(gen uint64, cand []epr.Radical, teor []float64, score numeric.Score) (accepted, stale bool, best float64, iter int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iters++
	switch {
	case gen != s.gen:
		stale = true
	case score.Sigma < s.sigma:
		s.rads = cand
		s.teor = teor
		s.sigma = score.Sigma
		s.norm = score.Norm
		s.accepted++
		s.gen++
		accepted = true
	}
	return accepted, stale, s.sigma, s.iters
}

// Evaluate scores the current radical set as is and stores the result when
// no edit raced with it. It does not count as a fit iteration.
func (s *Session) Evaluate() (numeric.Score, error) {
	snap := s.snapshot()
	teor, err := s.synth.Synthesize(snap.rads)
	if err != nil {
		return numeric.Score{}, err
	}
	score, err := numeric.Evaluate(snap.exp, teor)
	if err != nil {
		return numeric.Score{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.gen == s.gen {
		s.teor = teor
		s.sigma = score.Sigma
		s.norm = score.Norm
	}
	return score, nil
}
