// Package synth builds theoretical EPR spectra from radicals.
//
// Each radical is rendered in four passes:
//
//   - [Synthesizer.Ladder]: hyperfine splitting into a stick spectrum
//   - [Synthesizer.Recenter]: translation of the sticks into the output window
//   - [Synthesizer.Kernel]: mixed Lorentzian/Gaussian first-derivative lineshape
//   - convolution of the sticks with the kernel, accumulated into the output
//
// Synthesis is deterministic: the same radicals and settings always produce a
// bit-identical spectrum.
//
//	s, err := synth.New(synth.Settings{Sweep: 100, Points: 1024})
//	if err != nil {
//	    return err
//	}
//	spectrum, err := s.Synthesize([]epr.Radical{epr.Probe()})
package synth
