package fit

import (
	"errors"
	"math"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/numeric"
)

// CycleResult describes one randomize, synthesize, score and accept cycle.
type CycleResult struct {
	Iteration int
	Sigma     float64 // candidate score
	Norm      float64
	Best      float64 // session score after the cycle
	Accepted  bool
	Stale     bool // an edit landed while the candidate was being scored
	// OutOfWindow marks a candidate whose spectrum did not fit the sweep.
	// It is rejected like any worse candidate.
	OutOfWindow bool
}

// Engine performs fit cycles on a session. It is not safe for concurrent use;
// run one engine per worker.
type Engine struct {
	session *Session
	rng     epr.Source
}

func NewEngine(s *Session, rng epr.Source) *Engine {
	return &Engine{session: s, rng: rng}
}

func (e *Engine) Session() *Session { return e.session }

// Cycle randomizes every tunable param of the current radicals, sanitizes
// them, synthesizes and scores the candidate once, and keeps it only if its
// sigma is strictly lower than the stored one. The lock is held for the
// snapshot and the commit, never across synthesis.
//
// A candidate that spreads beyond the window counts as a rejected cycle. The
// cycle fails only when the session itself is unusable: no experimental
// spectrum of the right length, or a current radical set that does not fit.
func (e *Engine) Cycle() (CycleResult, error) {
	snap := e.session.snapshot()

	cand := make([]epr.Radical, len(snap.rads))
	for i, r := range snap.rads {
		cand[i] = r.Randomize(e.rng).Sanitize()
	}

	teor, err := e.session.synth.Synthesize(cand)
	if err != nil {
		if !errors.Is(err, epr.ErrDimensionMismatch) || !e.usable(snap) {
			return CycleResult{}, err
		}
		_, stale, best, iter := e.session.commit(snap.gen, nil, nil, numeric.Score{Sigma: math.Inf(1)})
		return CycleResult{
			Iteration:   iter,
			Sigma:       math.Inf(1),
			Best:        best,
			Stale:       stale,
			OutOfWindow: true,
		}, nil
	}
	score, err := numeric.Evaluate(snap.exp, teor)
	if err != nil {
		return CycleResult{}, err
	}

	accepted, stale, best, iter := e.session.commit(snap.gen, cand, teor, score)
	return CycleResult{
		Iteration: iter,
		Sigma:     score.Sigma,
		Norm:      score.Norm,
		Best:      best,
		Accepted:  accepted,
		Stale:     stale,
	}, nil
}

// usable reports whether the snapshot could be scored without randomization.
func (e *Engine) usable(snap snapshot) bool {
	if len(snap.exp) != e.session.synth.Settings().Points {
		return false
	}
	_, err := e.session.synth.Synthesize(snap.rads)
	return err == nil
}
