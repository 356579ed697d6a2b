package epr

import "math"

// Source supplies uniform variates in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Param is a working value with the half-width of its perturbation band.
// Var == 0 marks the value as fixed.
type Param struct {
	Val float64 `yaml:"val" json:"val"`
	Var float64 `yaml:"var" json:"var"`
}

func NewParam(val, variation float64) Param {
	return Param{Val: val, Var: variation}
}

// Fixed returns a param with no perturbation band.
func Fixed(val float64) Param {
	return Param{Val: val}
}

// Randomize returns val + (2u-1)*var for u drawn from rng.
// The receiver is not modified and rng is not consumed when Var is zero.
func (p Param) Randomize(rng Source) Param {
	if p.Var == 0 {
		return p
	}
	u := rng.Float64()
	return Param{Val: p.Val + (2*u-1)*p.Var, Var: p.Var}
}

// Nucleus holds the magnetic-resonance constants of a set of equivalent nuclei.
type Nucleus struct {
	Spin Param `yaml:"spin" json:"spin"`
	Hpf  Param `yaml:"hpf" json:"hpf"`
	Eqs  Param `yaml:"eqs" json:"eqs"`
}

func NewNucleus(spin, hpf, eqs float64) Nucleus {
	return Nucleus{Spin: Fixed(spin), Hpf: Fixed(hpf), Eqs: Fixed(eqs)}
}

// Multiplicity is the number of lines one nucleus splits a tick into (2I+1).
func (n Nucleus) Multiplicity() int {
	return int(2*n.Spin.Val) + 1
}

// Copies is the equivalent-nucleus count truncated to a non-negative integer.
func (n Nucleus) Copies() int {
	if n.Eqs.Val <= 0 || math.IsNaN(n.Eqs.Val) {
		return 0
	}
	return int(n.Eqs.Val)
}

// Radical is one simulated species contributing an additive spectrum component.
type Radical struct {
	Lwa    Param     `yaml:"lwa" json:"lwa"`
	Lrtz   Param     `yaml:"lrtz" json:"lrtz"`
	Amount Param     `yaml:"amount" json:"amount"`
	Dh1    Param     `yaml:"dh1" json:"dh1"`
	Nucs   []Nucleus `yaml:"nuclei,omitempty" json:"nuclei,omitempty"`
}

func NewRadical(lwa, lrtz, amount, dh1 float64, nucs ...Nucleus) Radical {
	r := Radical{
		Lwa:    Fixed(lwa),
		Lrtz:   Fixed(lrtz),
		Amount: Fixed(amount),
		Dh1:    Fixed(dh1),
	}
	if len(nucs) > 0 {
		r.Nucs = append([]Nucleus(nil), nucs...)
	}
	return r
}

// Electron returns a radical without nuclei and standard line parameters.
func Electron() Radical {
	return NewRadical(0.5, 100, 100, 0)
}

// Probe returns an electron coupled to a single spin-1 nucleus (14 G).
func Probe() Radical {
	return NewRadical(0.5, 100, 100, 0, NewNucleus(1, 14, 1))
}

// Clone deep-copies the radical.
func (r Radical) Clone() Radical {
	c := r
	if r.Nucs != nil {
		c.Nucs = make([]Nucleus, len(r.Nucs))
		copy(c.Nucs, r.Nucs)
	}
	return c
}

// Sanitize clamps Lwa and Amount to >= 0 and Lrtz to [0, 100].
// It is idempotent.
func (r Radical) Sanitize() Radical {
	c := r.Clone()
	if c.Lwa.Val < 0 {
		c.Lwa.Val = 0
	}
	if c.Amount.Val < 0 {
		c.Amount.Val = 0
	}
	if c.Lrtz.Val < 0 {
		c.Lrtz.Val = 0
	}
	if c.Lrtz.Val > 100 {
		c.Lrtz.Val = 100
	}
	return c
}

// Randomize perturbs every tunable param: lwa, amount, lrtz and dh1 of the
// radical and hpf of each nucleus. The result is not sanitized.
func (r Radical) Randomize(rng Source) Radical {
	c := r.Clone()
	c.Lwa = c.Lwa.Randomize(rng)
	c.Amount = c.Amount.Randomize(rng)
	c.Lrtz = c.Lrtz.Randomize(rng)
	c.Dh1 = c.Dh1.Randomize(rng)
	for i := range c.Nucs {
		c.Nucs[i].Hpf = c.Nucs[i].Hpf.Randomize(rng)
	}
	return c
}

// CloneAll deep-copies a radical list.
func CloneAll(rads []Radical) []Radical {
	out := make([]Radical, len(rads))
	for i, r := range rads {
		out[i] = r.Clone()
	}
	return out
}
