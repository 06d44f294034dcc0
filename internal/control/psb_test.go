package control

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FiringTurns", func() {
	It("should accumulate revolution time until the period", func() {
		tRev := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
		Expect(FiringTurns(tRev, 0, 3)).To(Equal([]int{3, 6, 9}))
		Expect(FiringTurns(tRev, 2, 3)).To(Equal([]int{5, 8}))
	})

	It("should stop at the end of the turns without a partial period", func() {
		tRev := []float64{1, 1, 1, 1, 1}
		Expect(FiringTurns(tRev, 0, 3)).To(Equal([]int{3}))
		Expect(FiringTurns(tRev, 10, 3)).To(BeEmpty())
	})
})

var _ = Describe("PSB", func() {
	It("should default its filter and periods", func() {
		f := newFixture(50, 0)
		l, err := NewPSB(f.rf, f.slicer, PSBParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(l.a).To(Equal([3]float64{1, -1, 0}))
		Expect(l.b).To(Equal([3]float64{1, -0.998, 0}))
		Expect(l.radialPeriod).To(Equal(7))
		Expect(l.Schedule).NotTo(BeEmpty())
	})

	It("should fire on schedule with the averaged error", func() {
		f := newFixture(50, 0.2)
		l, err := NewPSB(f.rf, f.slicer, PSBParams{Params: Params{Gain: []float64{10}}, Period: 2.5e-4})
		Expect(err).NotTo(HaveOccurred())
		first := l.Schedule[0]
		Expect(first).To(BeNumerically(">", 1))

		for f.rf.Counter < first {
			Expect(l.Track()).To(Succeed())
			Expect(l.ScheduleState()).To(Equal(Accumulating))
			Expect(l.DomegaRF).To(BeZero())
			f.rf.Advance()
		}
		Expect(l.Track()).To(Succeed())
		Expect(l.Firings()).To(Equal(1))
		Expect(l.DomegaPL).To(BeNumerically("~", -10*l.Dphi, 1e-9))
	})

	It("should apply the reference once and the gain of the firing turn", func() {
		const turns, period, ref = 50, 2.5e-4, 0.05
		f := newFixture(turns, 0.2)
		schedule := FiringTurns(f.rf.Ring.TRev, 0, period)
		Expect(len(schedule)).To(BeNumerically(">=", 2))
		gains := make([]float64, turns+1)
		for i := range gains {
			gains[i] = 10
			if i > schedule[0] {
				gains[i] = 20
			}
		}
		l, err := NewPSB(f.rf, f.slicer, PSBParams{Params: Params{Gain: gains, Reference: ref}, Period: period})
		Expect(err).NotTo(HaveOccurred())

		var avg []float64
		sum, n := 0.0, 0
		for f.rf.Counter <= schedule[1] {
			Expect(l.Track()).To(Succeed())
			sum += l.Dphi
			n++
			if f.rf.Counter == schedule[len(avg)] {
				avg = append(avg, sum/float64(n))
				sum, n = 0, 0
			}
			f.rf.Advance()
		}
		Expect(l.Firings()).To(Equal(2))

		y1 := -10 * (avg[0] + ref)
		y2 := 0.998*y1 - 20*(avg[1]-avg[0]+ref)
		Expect(l.DomegaPL).To(BeNumerically("~", y2, 1e-9*math.Abs(y2)))
	})

	It("should become exhausted after the last firing", func() {
		f := newFixture(30, 0)
		l, err := NewPSB(f.rf, f.slicer, PSBParams{Params: Params{Gain: []float64{1}}, Period: 1e-3})
		Expect(err).NotTo(HaveOccurred())
		last := l.Schedule[len(l.Schedule)-1]
		for f.rf.Counter <= last {
			Expect(l.Track()).To(Succeed())
			f.rf.Advance()
		}
		Expect(l.ScheduleState()).To(Equal(Exhausted))
		held := l.DomegaRF
		Expect(l.Track()).To(Succeed())
		Expect(l.DomegaRF).To(Equal(held))
		Expect(l.Firings()).To(Equal(len(l.Schedule)))
	})

	It("should run the radial loop every radial period", func() {
		f := newFixture(60, 0)
		l, err := NewPSB(f.rf, f.slicer, PSBParams{
			Params:       Params{Gain: []float64{1}},
			RadialGain:   [2]float64{1, 0},
			Period:       1e-4,
			RadialPeriod: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(len(l.Schedule)).To(BeNumerically(">=", 2))
		f.rf.OmegaRF[0][l.Schedule[1]] += 100
		for f.rf.Counter <= l.Schedule[1] {
			Expect(l.Track()).To(Succeed())
			f.rf.Advance()
		}
		Expect(l.Firings()).To(Equal(2))
		Expect(l.Drho).NotTo(BeZero())
		Expect(l.DomegaRL).To(BeNumerically("~", -l.Drho, 1e-12))
	})
})

var _ = Describe("ScheduleState", func() {
	It("should print its name", func() {
		Expect(FirePending.String()).To(Equal("fire-pending"))
	})
})
