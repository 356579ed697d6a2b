package fit_test

import (
	"context"
	"math/rand"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
)

type countMetric struct {
	n, accepted int
}

func (c *countMetric) Name() string { return "count" }
func (c *countMetric) Observe(res fit.CycleResult) {
	c.n++
	if res.Accepted {
		c.accepted++
	}
}
func (c *countMetric) Value() float64 { return float64(c.n) }
func (c *countMetric) Reset()         { c.n, c.accepted = 0, 0 }

var _ = Describe("Runner", func() {
	var (
		session *fit.Session
		engine  *fit.Engine
		runner  *fit.Runner
	)

	BeforeEach(func() {
		start := target(0.6)
		start.Lwa.Var = 0.3
		start.Nucs[0].Hpf.Var = 1
		session = newSession(spectrumOf(target(0.8)), start)
		engine = fit.NewEngine(session, rand.New(rand.NewSource(42)))
		runner = fit.NewRunner(engine)
	})

	It("runs the requested number of cycles", func() {
		m := &countMetric{}
		runner.AddMetric(m)
		var seen []fit.CycleResult
		runner.AddObserver(fit.ObserverFunc(func(r fit.CycleResult) { seen = append(seen, r) }))

		res, err := runner.Run(context.Background(), 40)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Cycles).To(Equal(40))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 40.0))
		Expect(res.Accepted).To(Equal(m.accepted))
		Expect(res.Accepted).To(BeNumerically(">=", 1))
		Expect(seen).To(HaveLen(40))
		Expect(session.Status().Iterations).To(Equal(40))
		Expect(runner.Running()).To(BeFalse())
	})

	// One accept decision per cycle, however many nuclei a radical has.
	It("makes exactly one decision per cycle", func() {
		r := target(0.6)
		r.Lwa.Var = 0.3
		r.Nucs = append(r.Nucs, epr.NewNucleus(0.5, 2, 3), epr.NewNucleus(1, 4, 1))
		for i := range r.Nucs {
			r.Nucs[i].Hpf.Var = 0.5
		}
		session.SetRadicals([]epr.Radical{r})

		var seen []fit.CycleResult
		runner.AddObserver(fit.ObserverFunc(func(c fit.CycleResult) { seen = append(seen, c) }))
		_, err := runner.Run(context.Background(), 20)
		Expect(err).NotTo(HaveOccurred())

		for i, c := range seen {
			Expect(c.Iteration).To(Equal(i + 1))
		}
		Expect(session.Status().Accepted).To(BeNumerically("<=", 20))
	})

	It("never increases sigma", func() {
		prev := fit.SigmaSentinel
		runner.AddObserver(fit.ObserverFunc(func(c fit.CycleResult) {
			Expect(c.Best).To(BeNumerically("<=", prev))
			prev = c.Best
		}))
		_, err := runner.Run(context.Background(), 60)
		Expect(err).NotTo(HaveOccurred())
	})

	It("stops on context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := runner.Run(ctx, 0)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Cycles).To(BeZero())
	})

	It("keeps running when candidates spread beyond the window", func() {
		s := newSession(spectrumOf(edgeOfWindow()), edgeOfWindow())
		r := fit.NewRunner(fit.NewEngine(s, rand.New(rand.NewSource(1))))
		outside := 0
		r.AddObserver(fit.ObserverFunc(func(c fit.CycleResult) {
			if c.OutOfWindow {
				outside++
			}
		}))

		res, err := r.Run(context.Background(), 200)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Cycles).To(Equal(200))
		Expect(outside).To(BeNumerically(">", 0))
		Expect(s.Status().Iterations).To(Equal(200))
	})

	It("aborts on a dimension error", func() {
		s := newSession(nil, epr.Electron())
		r := fit.NewRunner(fit.NewEngine(s, constSource(0.5)))
		res, err := r.Run(context.Background(), 10)
		Expect(err).To(MatchError(epr.ErrDimensionMismatch))
		Expect(res.Cycles).To(BeZero())
		Expect(r.Running()).To(BeFalse())
	})

	Describe("background runs", func() {
		It("reports Wait before Start", func() {
			_, err := runner.Wait()
			Expect(err).To(MatchError(fit.ErrNotStarted))
		})

		It("stops when asked and accepts edits meanwhile", func() {
			var mu sync.Mutex
			cycles := 0
			runner.AddObserver(fit.ObserverFunc(func(fit.CycleResult) {
				mu.Lock()
				cycles++
				mu.Unlock()
			}))

			Expect(runner.Start(context.Background(), 0)).To(Succeed())
			Expect(runner.Running()).To(BeTrue())
			Expect(runner.Start(context.Background(), 0)).To(MatchError(fit.ErrAlreadyRunning))

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return cycles
			}).WithTimeout(5 * time.Second).Should(BeNumerically(">=", 5))

			Expect(session.ApplyEdit(fit.RadicalEdit(0, "dh1", "val", 0.25))).To(Succeed())
			Expect(session.EditMembership(0, true)).To(Succeed())

			runner.Stop()
			res, err := runner.Wait()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cycles).To(BeNumerically(">=", 5))
			Expect(runner.Running()).To(BeFalse())

			rads := session.Radicals()
			Expect(rads).To(HaveLen(2))
			Expect(rads[0].Dh1.Val).To(Equal(0.25))
		})

		It("restarts right after a stop without overlapping workers", func() {
			Expect(runner.Start(context.Background(), 0)).To(Succeed())
			runner.Stop()
			Expect(runner.Start(context.Background(), 10)).To(Succeed())

			res, err := runner.Wait()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cycles).To(Equal(10))
			Expect(runner.Running()).To(BeFalse())
		})

		It("finishes on its own with a cycle budget", func() {
			Expect(runner.Start(context.Background(), 15)).To(Succeed())
			res, err := runner.Wait()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cycles).To(Equal(15))
			Expect(res.Radicals).To(HaveLen(1))
		})
	})
})
