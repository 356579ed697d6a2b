package epr

import (
	"fmt"
	"strconv"
	"strings"
)

// RadicalField identifies one editable scalar of a radical.
type RadicalField int

const (
	AmountVal RadicalField = iota
	AmountVar
	Dh1Val
	Dh1Var
	LwaVal
	LwaVar
	LrtzVal
	LrtzVar
)

var radicalFieldNames = [...][2]string{
	AmountVal: {"amount", "val"},
	AmountVar: {"amount", "var"},
	Dh1Val:    {"dh1", "val"},
	Dh1Var:    {"dh1", "var"},
	LwaVal:    {"lwa", "val"},
	LwaVar:    {"lwa", "var"},
	LrtzVal:   {"lrtz", "val"},
	LrtzVar:   {"lrtz", "var"},
}

// RadicalFields lists radical fields in editor order.
func RadicalFields() []RadicalField {
	return []RadicalField{AmountVal, Dh1Val, LwaVal, LrtzVal, AmountVar, Dh1Var, LwaVar, LrtzVar}
}

func (f RadicalField) valid() bool {
	return f >= AmountVal && f <= LrtzVar
}

// Names returns the field and sub-field names.
func (f RadicalField) Names() (string, string) {
	if !f.valid() {
		return "?", "?"
	}
	n := radicalFieldNames[f]
	return n[0], n[1]
}

func (f RadicalField) String() string {
	name, sub := f.Names()
	return name + "." + sub
}

// ParseRadicalField maps an editor name pair such as ("amount", "val").
func ParseRadicalField(name, sub string) (RadicalField, error) {
	for i, n := range radicalFieldNames {
		if n[0] == name && n[1] == sub {
			return RadicalField(i), nil
		}
	}
	return 0, ErrUnknownField
}

// NucleusField identifies one editable scalar of a nucleus.
type NucleusField int

const (
	EqsVal NucleusField = iota
	SpinVal
	HpfVal
	HpfVar
)

var nucleusFieldNames = [...][2]string{
	EqsVal:  {"eqs", "val"},
	SpinVal: {"spin", "val"},
	HpfVal:  {"hpf", "val"},
	HpfVar:  {"hpf", "var"},
}

// NucleusFields lists nucleus fields in editor order.
func NucleusFields() []NucleusField {
	return []NucleusField{EqsVal, SpinVal, HpfVal, HpfVar}
}

func (f NucleusField) valid() bool {
	return f >= EqsVal && f <= HpfVar
}

func (f NucleusField) Names() (string, string) {
	if !f.valid() {
		return "?", "?"
	}
	n := nucleusFieldNames[f]
	return n[0], n[1]
}

func (f NucleusField) String() string {
	name, sub := f.Names()
	return name + "." + sub
}

// ParseNucleusField maps an editor name pair such as ("hpf", "var").
func ParseNucleusField(name, sub string) (NucleusField, error) {
	for i, n := range nucleusFieldNames {
		if n[0] == name && n[1] == sub {
			return NucleusField(i), nil
		}
	}
	return 0, ErrUnknownField
}

// Get reads a radical-level scalar.
func (r Radical) Get(f RadicalField) (float64, error) {
	p, err := r.param(f)
	if err != nil {
		return 0, err
	}
	// val and var sub-fields alternate in the enumeration
	if f%2 == 0 {
		return p.Val, nil
	}
	return p.Var, nil
}

func (r *Radical) param(f RadicalField) (*Param, error) {
	switch f {
	case AmountVal, AmountVar:
		return &r.Amount, nil
	case Dh1Val, Dh1Var:
		return &r.Dh1, nil
	case LwaVal, LwaVar:
		return &r.Lwa, nil
	case LrtzVal, LrtzVar:
		return &r.Lrtz, nil
	}
	return nil, ErrUnknownField
}

// SetField returns a copy with the selected scalar replaced.
func (r Radical) SetField(f RadicalField, v float64) (Radical, error) {
	c := r.Clone()
	p, err := c.param(f)
	if err != nil {
		return r, err
	}
	if f%2 == 0 {
		p.Val = v
	} else {
		p.Var = v
	}
	return c, nil
}

// GetNucleus reads a nucleus-level scalar.
func (r Radical) GetNucleus(idx int, f NucleusField) (float64, error) {
	if idx < 0 || idx >= len(r.Nucs) {
		return 0, ErrIndexOutOfRange
	}
	n := r.Nucs[idx]
	switch f {
	case EqsVal:
		return n.Eqs.Val, nil
	case SpinVal:
		return n.Spin.Val, nil
	case HpfVal:
		return n.Hpf.Val, nil
	case HpfVar:
		return n.Hpf.Var, nil
	}
	return 0, ErrUnknownField
}

// SetNucleusField returns a copy with the selected nucleus scalar replaced.
func (r Radical) SetNucleusField(idx int, f NucleusField, v float64) (Radical, error) {
	if idx < 0 || idx >= len(r.Nucs) {
		return r, ErrIndexOutOfRange
	}
	c := r.Clone()
	n := &c.Nucs[idx]
	switch f {
	case EqsVal:
		n.Eqs.Val = v
	case SpinVal:
		n.Spin.Val = v
	case HpfVal:
		n.Hpf.Val = v
	case HpfVar:
		n.Hpf.Var = v
	default:
		return r, ErrUnknownField
	}
	return c, nil
}

// Target addresses one scalar inside a radical list. Nucleus is -1 for
// radical-level fields.
type Target struct {
	Radical  int
	Nucleus  int
	Field    RadicalField
	NucField NucleusField
}

// ParseTarget parses "r.field.sub" or "r.n.field.sub", e.g. "0.lwa.val" or "1.0.hpf.val".
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 3:
		ri, err := strconv.Atoi(parts[0])
		if err != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, ErrUnknownField)
		}
		f, err := ParseRadicalField(parts[1], parts[2])
		if err != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, err)
		}
		return Target{Radical: ri, Nucleus: -1, Field: f}, nil
	case 4:
		ri, err1 := strconv.Atoi(parts[0])
		ni, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, ErrUnknownField)
		}
		if ni < 0 {
			return Target{}, fmt.Errorf("target %q: %w", s, ErrIndexOutOfRange)
		}
		f, err := ParseNucleusField(parts[2], parts[3])
		if err != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, err)
		}
		return Target{Radical: ri, Nucleus: ni, NucField: f}, nil
	}
	return Target{}, fmt.Errorf("target %q: %w", s, ErrUnknownField)
}

func (t Target) String() string {
	if t.Nucleus >= 0 {
		return fmt.Sprintf("%d.%d.%s", t.Radical, t.Nucleus, t.NucField)
	}
	return fmt.Sprintf("%d.%s", t.Radical, t.Field)
}

// Get reads the targeted scalar.
func (t Target) Get(rads []Radical) (float64, error) {
	if t.Radical < 0 || t.Radical >= len(rads) {
		return 0, t.wrap(ErrIndexOutOfRange)
	}
	var (
		v   float64
		err error
	)
	if t.Nucleus >= 0 {
		v, err = rads[t.Radical].GetNucleus(t.Nucleus, t.NucField)
	} else {
		v, err = rads[t.Radical].Get(t.Field)
	}
	if err != nil {
		return 0, t.wrap(err)
	}
	return v, nil
}

// Apply returns a copy of rads with the targeted scalar set to v.
func (t Target) Apply(rads []Radical, v float64) ([]Radical, error) {
	if t.Radical < 0 || t.Radical >= len(rads) {
		return rads, t.wrap(ErrIndexOutOfRange)
	}
	var (
		next Radical
		err  error
	)
	if t.Nucleus >= 0 {
		next, err = rads[t.Radical].SetNucleusField(t.Nucleus, t.NucField, v)
	} else {
		next, err = rads[t.Radical].SetField(t.Field, v)
	}
	if err != nil {
		return rads, t.wrap(err)
	}
	out := CloneAll(rads)
	out[t.Radical] = next
	return out, nil
}

func (t Target) wrap(err error) error {
	e := &EditError{Radical: t.Radical, Nucleus: t.Nucleus, Wrapped: err}
	if t.Nucleus >= 0 {
		e.Field, e.Sub = t.NucField.Names()
	} else {
		e.Field, e.Sub = t.Field.Names()
	}
	return e
}
