package epr

import (
	"errors"
	"fmt"
)

// Domain errors shared by the model, synthesizer, fitting loop and ingestion.
var (
	// ErrUnknownField indicates an unrecognized field/sub-field pair.
	ErrUnknownField = errors.New("epr: unknown field")

	// ErrIndexOutOfRange indicates an invalid radical or nucleus index.
	ErrIndexOutOfRange = errors.New("epr: index out of range")

	// ErrDimensionMismatch indicates mismatched array lengths or an unusable resolution.
	ErrDimensionMismatch = errors.New("epr: dimension mismatch")

	// ErrMalformedRecord indicates an ingestion line whose value column does not parse.
	ErrMalformedRecord = errors.New("epr: malformed record")
)

// EditError wraps a failed edit with the address it targeted.
// Nucleus is -1 for radical-level edits.
type EditError struct {
	Radical int
	Nucleus int
	Field   string
	Sub     string
	Wrapped error
}

func (e *EditError) Error() string {
	if e.Nucleus >= 0 {
		return fmt.Sprintf("radical %d nucleus %d %s.%s: %v", e.Radical, e.Nucleus, e.Field, e.Sub, e.Wrapped)
	}
	return fmt.Sprintf("radical %d %s.%s: %v", e.Radical, e.Field, e.Sub, e.Wrapped)
}

func (e *EditError) Unwrap() error {
	return e.Wrapped
}
