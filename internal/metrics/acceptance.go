package metrics

import "github.com/san-kum/eprsim/internal/fit"

// Acceptance is the fraction of cycles whose candidate replaced the radicals.
type Acceptance struct {
	name     string
	accepted int
	samples  int
}

func NewAcceptance() *Acceptance {
	return &Acceptance{name: "acceptance_rate"}
}

func (a *Acceptance) Name() string {
	return a.name
}

func (a *Acceptance) Observe(res fit.CycleResult) {
	a.samples++
	if res.Accepted {
		a.accepted++
	}
}

func (a *Acceptance) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return float64(a.accepted) / float64(a.samples)
}

func (a *Acceptance) Reset() {
	a.accepted = 0
	a.samples = 0
}

// StaleRate is the fraction of cycles discarded because an edit raced them.
type StaleRate struct {
	name    string
	stale   int
	samples int
}

func NewStaleRate() *StaleRate {
	return &StaleRate{name: "stale_rate"}
}

func (s *StaleRate) Name() string { return s.name }

func (s *StaleRate) Observe(res fit.CycleResult) {
	s.samples++
	if res.Stale {
		s.stale++
	}
}

func (s *StaleRate) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.stale) / float64(s.samples)
}

func (s *StaleRate) Reset() {
	s.stale = 0
	s.samples = 0
}
