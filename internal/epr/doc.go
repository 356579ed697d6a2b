// Package epr provides the parameter data model for EPR spectrum simulation.
//
// The package defines the values the synthesizer and the fitting loop operate on:
//
//   - [Param]: a scalar with a uniform perturbation band
//   - [Nucleus]: spin, hyperfine coupling and equivalent-nucleus count
//   - [Radical]: line-shape and intensity params plus an ordered list of nuclei
//   - [RadicalField], [NucleusField]: closed sets of editable scalars
//   - [Target]: an addressable scalar inside a radical list
//
// # Value semantics
//
// Radicals are values. Every setter returns a modified copy and leaves the
// receiver untouched; [Radical.Clone] deep-copies the nucleus slice so no two
// radicals share backing storage.
//
// # Randomness
//
// [Param.Randomize] draws from an explicit [Source] so that fits are
// reproducible for a given seed:
//
//	rng := rand.New(rand.NewSource(42))
//	next := rad.Randomize(rng).Sanitize()
package epr
