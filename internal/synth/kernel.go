package synth

import (
	"math"

	"github.com/san-kum/eprsim/internal/epr"
)

// gaussFloor drops Gaussian samples that would only add denormal noise.
const gaussFloor = 1e-35

// Kernel samples the first-derivative lineshape of r on the field axis
// -Sweep/2 + k*Increment, offset by dh1. Both terms are divided by total, the
// ladder normalizer. A radical with lwa <= 0 has a flat kernel.
func (s *Synthesizer) Kernel(r epr.Radical, total float64) []float64 {
	points := s.settings.Points
	k := make([]float64, points)

	lwa := r.Lwa.Val
	if !(lwa > 0) || total == 0 {
		return k
	}
	amount, lrtz, dh1 := r.Amount.Val, r.Lrtz.Val, r.Dh1.Val
	start := -s.settings.Sweep / 2

	// Lorentzian, weight lrtz percent
	t2 := 2 / math.Sqrt(3) * lwa
	t1 := -0.02 * t2 * t2 * t2 * amount * lrtz / (total * math.Pi)
	for i := range k {
		a := start + float64(i)*s.incr - dh1
		d := 1 + t2*t2*a*a
		k[i] = t1 * a / (d * d)
	}

	// Gaussian, weight 100-lrtz percent
	t2 = 2 / lwa
	t1 = -amount * t2 * t2 * t2 * 0.01 * (100 - lrtz) / (total * math.Sqrt(2*math.Pi))
	for i := range k {
		a := start + float64(i)*s.incr - dh1
		dd := math.Exp(-0.5 * t2 * t2 * a * a)
		if dd > gaussFloor {
			k[i] += t1 * a * dd
		}
	}
	return k
}
