package metrics

import (
	"math"

	"github.com/san-kum/eprsim/internal/fit"
)

// BestSigma tracks the lowest session score seen during a run.
type BestSigma struct {
	name string
	best float64
}

func NewBestSigma() *BestSigma {
	return &BestSigma{name: "best_sigma", best: math.Inf(1)}
}

func (b *BestSigma) Name() string { return b.name }

func (b *BestSigma) Observe(res fit.CycleResult) {
	if res.Best < b.best {
		b.best = res.Best
	}
}

// Value is 0 until a scored cycle has been observed.
func (b *BestSigma) Value() float64 {
	if math.IsInf(b.best, 1) || b.best >= fit.SigmaSentinel {
		return 0
	}
	return b.best
}

func (b *BestSigma) Reset() {
	b.best = math.Inf(1)
}

// Improvement is the relative drop of sigma from the first scored cycle to
// the latest one, in [0, 1].
type Improvement struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewImprovement() *Improvement {
	return &Improvement{name: "improvement"}
}

func (i *Improvement) Name() string { return i.name }

func (i *Improvement) Observe(res fit.CycleResult) {
	if res.Best >= fit.SigmaSentinel {
		return
	}
	if i.samples == 0 {
		i.initial = res.Best
	}
	i.current = res.Best
	i.samples++
}

func (i *Improvement) Value() float64 {
	if i.samples == 0 || i.initial == 0 {
		return 0
	}
	return math.Max(0, (i.initial-i.current)/i.initial)
}

func (i *Improvement) Reset() {
	i.initial = 0
	i.current = 0
	i.samples = 0
}

// Default returns the metrics attached to every fit run.
func Default() []fit.Metric {
	return []fit.Metric{
		NewAcceptance(),
		NewStaleRate(),
		NewBestSigma(),
		NewImprovement(),
	}
}
