package fit_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
)

var _ = Describe("Engine", func() {
	var (
		exp     []float64
		session *fit.Session
		start   epr.Radical
	)

	BeforeEach(func() {
		exp = spectrumOf(target(1.0))
		start = target(0.5)
		start.Lwa.Var = 0.5
		session = newSession(exp, start)
	})

	Describe("a single cycle", func() {
		It("accepts a candidate that scores lower and stores its score", func() {
			res, err := fit.NewEngine(session, constSource(1)).Cycle()
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Accepted).To(BeTrue())
			Expect(res.Stale).To(BeFalse())
			Expect(res.Iteration).To(Equal(1))
			Expect(res.Sigma).To(BeNumerically("<", 1e-9))
			Expect(res.Best).To(Equal(res.Sigma))

			rads := session.Radicals()
			Expect(rads).To(HaveLen(1))
			Expect(rads[0].Lwa).To(Equal(epr.NewParam(1.0, 0.5)))

			st := session.Status()
			Expect(st.Sigma).To(Equal(res.Sigma))
			Expect(st.Iterations).To(Equal(1))
			Expect(st.Accepted).To(Equal(1))
			Expect(session.Theoretical()).To(Equal(spectrumOf(rads...)))
		})

		It("rejects a candidate that scores higher and only counts the iteration", func() {
			engine := fit.NewEngine(session, &seqSource{vals: []float64{1, 0}})
			_, err := engine.Cycle()
			Expect(err).NotTo(HaveOccurred())

			before := session.Status()
			radsBefore := session.Radicals()
			teorBefore := session.Theoretical()

			res, err := engine.Cycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Accepted).To(BeFalse())
			Expect(res.Sigma).To(BeNumerically(">", before.Sigma))

			after := session.Status()
			Expect(after.Iterations).To(Equal(before.Iterations + 1))
			Expect(after.Sigma).To(Equal(before.Sigma))
			Expect(after.Accepted).To(Equal(before.Accepted))
			Expect(session.Radicals()).To(Equal(radsBefore))
			Expect(session.Theoretical()).To(Equal(teorBefore))
		})

		It("sanitizes candidates before scoring them", func() {
			r := target(0.5)
			r.Lrtz = epr.NewParam(95, 20)
			r.Amount = epr.NewParam(1, 5)
			session.SetRadicals([]epr.Radical{r})

			_, err := fit.NewEngine(session, constSource(0.99)).Cycle()
			Expect(err).NotTo(HaveOccurred())
			got := session.Radicals()[0]
			Expect(got.Lrtz.Val).To(Equal(100.0))

			_, err = fit.NewEngine(session, constSource(0)).Cycle()
			Expect(err).NotTo(HaveOccurred())
			for _, rr := range session.Radicals() {
				Expect(rr.Amount.Val).To(BeNumerically(">=", 0))
				Expect(rr.Lrtz.Val).To(BeNumerically(">=", 0))
				Expect(rr.Lrtz.Val).To(BeNumerically("<=", 100))
			}
		})

		It("discards a candidate when an edit lands mid-cycle", func() {
			src := &hookSource{hook: func() {
				Expect(session.SetRadicalField(0, epr.LrtzVal, 40)).To(Succeed())
			}}
			res, err := fit.NewEngine(session, src).Cycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stale).To(BeTrue())
			Expect(res.Accepted).To(BeFalse())

			st := session.Status()
			Expect(st.Iterations).To(Equal(1))
			Expect(st.Sigma).To(Equal(fit.SigmaSentinel))
			Expect(session.Radicals()[0].Lrtz.Val).To(Equal(40.0))
			Expect(session.Radicals()[0].Lwa.Val).To(Equal(0.5))
		})

		It("sees an edit made between cycles", func() {
			fixed := target(0.7)
			session.SetRadicals([]epr.Radical{fixed})
			engine := fit.NewEngine(session, constSource(0.5))

			_, err := engine.Cycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(session.ApplyEdit(fit.RadicalEdit(0, "lrtz", "val", 25))).To(Succeed())

			res, err := engine.Cycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Accepted).To(BeTrue())

			rads := session.Radicals()
			Expect(rads[0].Lrtz.Val).To(Equal(25.0))
			Expect(session.Theoretical()).To(Equal(spectrumOf(rads...)))
		})
	})

	Describe("dimension errors", func() {
		It("fails without experimental data and does not count the cycle", func() {
			s := newSession(nil, start)
			_, err := fit.NewEngine(s, constSource(0.5)).Cycle()
			Expect(errors.Is(err, epr.ErrDimensionMismatch)).To(BeTrue())
			Expect(s.Status().Iterations).To(BeZero())
		})

		It("fails when the current set already spreads beyond the window", func() {
			wide := epr.NewRadical(0.5, 100, 100, 0, epr.NewNucleus(0.5, 60, 1))
			s := newSession(exp, wide)
			_, err := fit.NewEngine(s, constSource(0.5)).Cycle()
			Expect(err).To(MatchError(epr.ErrDimensionMismatch))
			Expect(s.Status().Iterations).To(BeZero())
		})

		It("rejects a candidate that spreads beyond the window", func() {
			s := newSession(exp, edgeOfWindow())
			_, err := s.Evaluate()
			Expect(err).NotTo(HaveOccurred())
			before := s.Status()

			// a variate of 1 pushes hpf from 45 to 55 G, past the 50 G sweep
			res, err := fit.NewEngine(s, constSource(1)).Cycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OutOfWindow).To(BeTrue())
			Expect(res.Accepted).To(BeFalse())
			Expect(res.Iteration).To(Equal(1))
			Expect(res.Best).To(Equal(before.Sigma))

			after := s.Status()
			Expect(after.Iterations).To(Equal(1))
			Expect(after.Accepted).To(BeZero())
			Expect(after.Sigma).To(Equal(before.Sigma))
			Expect(s.Radicals()).To(Equal([]epr.Radical{edgeOfWindow()}))
		})
	})
})
