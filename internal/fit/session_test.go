package fit_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/synth"
)

var _ = Describe("Session", func() {
	var session *fit.Session

	BeforeEach(func() {
		session = newSession(spectrumOf(target(1.0)), epr.Electron(), epr.Probe())
	})

	It("starts unscored", func() {
		st := session.Status()
		Expect(st.Sigma).To(Equal(fit.SigmaSentinel))
		Expect(st.Iterations).To(BeZero())
		Expect(st.Radicals).To(Equal(2))
		Expect(st.Points).To(Equal(256))
		Expect(session.Theoretical()).To(HaveLen(256))
	})

	It("rejects unusable settings", func() {
		_, err := fit.NewSession(synth.Settings{Sweep: 100, Points: 1})
		Expect(err).To(MatchError(epr.ErrDimensionMismatch))
	})

	Describe("experimental data", func() {
		It("rejects a length different from the resolution", func() {
			err := session.SetExperimental(make([]float64, 100))
			Expect(err).To(MatchError(epr.ErrDimensionMismatch))
		})

		It("stores a private copy and resets the score", func() {
			_, err := session.Evaluate()
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Status().Sigma).To(BeNumerically("<", fit.SigmaSentinel))

			data := make([]float64, 256)
			data[10] = 3
			Expect(session.SetExperimental(data)).To(Succeed())
			data[10] = 7

			Expect(session.Experimental()[10]).To(Equal(3.0))
			Expect(session.Status().Sigma).To(Equal(fit.SigmaSentinel))
		})
	})

	Describe("field edits", func() {
		It("applies radical and nucleus edits by name", func() {
			Expect(session.ApplyEdit(fit.RadicalEdit(0, "amount", "var", 12))).To(Succeed())
			Expect(session.ApplyEdit(fit.NucleusEdit(1, 0, "hpf", "val", 13.5))).To(Succeed())

			rads := session.Radicals()
			Expect(rads[0].Amount).To(Equal(epr.NewParam(100, 12)))
			Expect(rads[1].Nucs[0].Hpf.Val).To(Equal(13.5))
		})

		It("returns typed errors and leaves the state untouched", func() {
			before := session.Status()

			err := session.ApplyEdit(fit.RadicalEdit(0, "colour", "val", 1))
			Expect(err).To(MatchError(epr.ErrUnknownField))
			var editErr *epr.EditError
			Expect(errors.As(err, &editErr)).To(BeTrue())
			Expect(editErr.Field).To(Equal("colour"))

			Expect(session.ApplyEdit(fit.NucleusEdit(1, 0, "spin", "var", 1))).To(MatchError(epr.ErrUnknownField))
			Expect(session.ApplyEdit(fit.NucleusEdit(0, 0, "hpf", "val", 1))).To(MatchError(epr.ErrIndexOutOfRange))
			Expect(session.ApplyEdit(fit.RadicalEdit(9, "lwa", "val", 1))).To(MatchError(epr.ErrIndexOutOfRange))
			Expect(session.SetNucleusField(1, -2, epr.HpfVal, 1)).To(MatchError(epr.ErrIndexOutOfRange))

			Expect(session.Status().Generation).To(Equal(before.Generation))
			Expect(session.Radicals()).To(Equal([]epr.Radical{epr.Electron(), epr.Probe()}))
		})

		It("bumps the generation and resets sigma on success", func() {
			_, err := session.Evaluate()
			Expect(err).NotTo(HaveOccurred())
			before := session.Status()

			Expect(session.SetRadicalField(1, epr.Dh1Val, 0.3)).To(Succeed())
			after := session.Status()
			Expect(after.Generation).To(BeNumerically(">", before.Generation))
			Expect(after.Sigma).To(Equal(fit.SigmaSentinel))
		})
	})

	Describe("membership", func() {
		It("appends an electron", func() {
			Expect(session.EditMembership(0, true)).To(Succeed())
			rads := session.Radicals()
			Expect(rads).To(HaveLen(3))
			Expect(rads[2]).To(Equal(epr.Electron()))
		})

		It("removes by index", func() {
			Expect(session.EditMembership(0, false)).To(Succeed())
			Expect(session.Radicals()).To(Equal([]epr.Radical{epr.Probe()}))
		})

		It("fails cleanly on a bad index", func() {
			Expect(session.EditMembership(2, false)).To(MatchError(epr.ErrIndexOutOfRange))
			Expect(session.EditMembership(-1, false)).To(MatchError(epr.ErrIndexOutOfRange))
			Expect(session.Radicals()).To(HaveLen(2))
		})
	})

	It("hands out copies that cannot alias the session", func() {
		rads := session.Radicals()
		rads[1].Nucs[0].Hpf.Val = 99
		Expect(session.Radicals()[1].Nucs[0].Hpf.Val).To(Equal(14.0))
	})

	Describe("Evaluate", func() {
		It("scores the current set without counting an iteration", func() {
			s := newSession(spectrumOf(target(1.0)), target(1.0))
			score, err := s.Evaluate()
			Expect(err).NotTo(HaveOccurred())
			Expect(score.Sigma).To(BeNumerically("<", 1e-9))
			Expect(score.Norm).To(BeNumerically("~", 1, 1e-12))

			st := s.Status()
			Expect(st.Sigma).To(Equal(score.Sigma))
			Expect(st.Iterations).To(BeZero())
			Expect(s.Fitted()).To(HaveLen(256))
		})
	})

	It("serializes edits against running cycles", func() {
		engine := fit.NewEngine(session, constSource(0.5))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := engine.Cycle()
				Expect(err).NotTo(HaveOccurred())
			}
		}()
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for i := 0; i < 50; i++ {
				Expect(session.SetRadicalField(0, epr.LwaVal, 0.5+float64(i)/100)).To(Succeed())
				_ = session.Status()
				_ = session.Theoretical()
			}
		}()
		wg.Wait()

		Expect(session.Status().Iterations).To(Equal(50))
		Expect(session.Radicals()[0].Lwa.Val).To(BeNumerically("~", 0.99, 1e-12))
	})
})
