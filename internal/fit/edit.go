package fit

import (
	"fmt"

	"github.com/san-kum/eprsim/internal/epr"
)

// Edit is one field change sent by an editor. Nucleus is -1 for
// radical-level fields.
type Edit struct {
	Radical int     `json:"radical" yaml:"radical"`
	Nucleus int     `json:"nucleus" yaml:"nucleus"`
	Field   string  `json:"field" yaml:"field"`
	Sub     string  `json:"sub" yaml:"sub"`
	Value   float64 `json:"value" yaml:"value"`
}

func RadicalEdit(radical int, field, sub string, v float64) Edit {
	return Edit{Radical: radical, Nucleus: -1, Field: field, Sub: sub, Value: v}
}

func NucleusEdit(radical, nucleus int, field, sub string, v float64) Edit {
	return Edit{Radical: radical, Nucleus: nucleus, Field: field, Sub: sub, Value: v}
}

// Target resolves the field names to a closed field identifier.
func (e Edit) Target() (epr.Target, error) {
	t := epr.Target{Radical: e.Radical, Nucleus: e.Nucleus}
	var err error
	if e.Nucleus >= 0 {
		t.NucField, err = epr.ParseNucleusField(e.Field, e.Sub)
	} else {
		t.Nucleus = -1
		t.Field, err = epr.ParseRadicalField(e.Field, e.Sub)
	}
	if err != nil {
		return t, &epr.EditError{Radical: e.Radical, Nucleus: t.Nucleus, Field: e.Field, Sub: e.Sub, Wrapped: err}
	}
	return t, nil
}

// ApplyEdit applies a named field change atomically.
func (s *Session) ApplyEdit(e Edit) error {
	t, err := e.Target()
	if err != nil {
		return err
	}
	return s.Set(t, e.Value)
}

// Set writes one scalar addressed by t. A failed edit leaves the session untouched.
func (s *Session) Set(t epr.Target, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := t.Apply(s.rads, v)
	if err != nil {
		return err
	}
	s.rads = next
	s.invalidate()
	s.logger.Debug("field edited", "target", t.String(), "value", v, "generation", s.gen)
	return nil
}

func (s *Session) SetRadicalField(radical int, f epr.RadicalField, v float64) error {
	return s.Set(epr.Target{Radical: radical, Nucleus: -1, Field: f}, v)
}

func (s *Session) SetNucleusField(radical, nucleus int, f epr.NucleusField, v float64) error {
	if nucleus < 0 {
		return &epr.EditError{Radical: radical, Nucleus: nucleus, Field: "nucleus", Sub: f.String(), Wrapped: epr.ErrIndexOutOfRange}
	}
	return s.Set(epr.Target{Radical: radical, Nucleus: nucleus, NucField: f}, v)
}

// EditMembership appends an electron when add is true, otherwise removes the
// radical at index.
func (s *Session) EditMembership(index int, add bool) error {
	if add {
		s.AddRadical(epr.Electron())
		return nil
	}
	return s.RemoveRadical(index)
}

// AddRadical appends a copy of r and returns its index.
func (s *Session) AddRadical(r epr.Radical) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rads = append(epr.CloneAll(s.rads), r.Clone())
	s.invalidate()
	return len(s.rads) - 1
}

func (s *Session) RemoveRadical(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rads) {
		return fmt.Errorf("remove radical %d of %d: %w", index, len(s.rads), epr.ErrIndexOutOfRange)
	}
	next := make([]epr.Radical, 0, len(s.rads)-1)
	next = append(next, s.rads[:index]...)
	next = append(next, s.rads[index+1:]...)
	s.rads = next
	s.invalidate()
	return nil
}

// SetRadicals replaces the whole radical set.
func (s *Session) SetRadicals(rads []epr.Radical) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rads = epr.CloneAll(rads)
	s.invalidate()
}
