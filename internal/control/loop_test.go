package control

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/ring"
	"github.com/san-kum/longsim/internal/slices"
	"github.com/san-kum/longsim/internal/tracker"
)

type fixture struct {
	rf     *rf.Program
	beam   *beam.Ensemble
	slicer *slices.Slicer
}

// newFixture builds an LHC like machine at 450 GeV with a 10000 particle
// Gaussian bunch displaced by offset radians from the stable phase.
func newFixture(turns int, offset float64) fixture {
	r, err := ring.New(ring.Params{
		Turns:          turns,
		Particle:       ring.Proton(),
		SectionLengths: []float64{26658.883},
		Alpha:          [][]float64{{1 / (55.759505 * 55.759505)}},
		Momentum:       [][]float64{{450e9}},
	})
	Expect(err).NotTo(HaveOccurred())
	p, err := rf.New(r, rf.Params{Harmonic: [][]float64{{35640}}, Voltage: [][]float64{{6e6}}})
	Expect(err).NotTo(HaveOccurred())

	b, err := beam.New(10000, 1e11)
	Expect(err).NotTo(HaveOccurred())
	omega := p.OmegaRF[0][0]
	centre := (p.PhiS[0] + offset) / omega
	rng := rand.New(rand.NewSource(42))
	for i := range b.Dt {
		b.Dt[i] = centre + 1e-10*rng.NormFloat64()
		b.DE[i] = 1e8 * rng.NormFloat64()
	}
	bucket := 2 * math.Pi / omega
	s, err := slices.New(b, p, slices.Params{Slices: 100, CutLeft: 0, CutRight: bucket})
	Expect(err).NotTo(HaveOccurred())
	Expect(s.Track()).To(Succeed())
	return fixture{rf: p, beam: b, slicer: s}
}

var _ = Describe("PhaseLoop", func() {
	It("should measure no phase error for a centred bunch", func() {
		f := newFixture(10, 0)
		pl, err := newPhaseLoop(f.rf, f.slicer, Params{})
		Expect(err).NotTo(HaveOccurred())
		pl.BeamPhase()
		Expect(pl.PhaseDifference()).To(BeNumerically("~", 0, 0.02))
		Expect(pl.PhiBeam).To(BeNumerically(">=", math.Pi/2))
		Expect(pl.PhiBeam).To(BeNumerically("<", 1.5*math.Pi))
	})

	It("should follow a displaced bunch", func() {
		f := newFixture(10, 0.2)
		pl, _ := newPhaseLoop(f.rf, f.slicer, Params{})
		pl.BeamPhase()
		Expect(pl.PhaseDifference()).To(BeNumerically("~", 0.2, 0.02))
	})

	It("should apply the correction to the next turn of every system", func() {
		f := newFixture(10, 0)
		pl, _ := newPhaseLoop(f.rf, f.slicer, Params{})
		pl.DomegaRF = 10
		before := f.rf.OmegaRF[0][1]
		pl.apply()
		Expect(f.rf.OmegaRF[0][1]).To(Equal(before + 10))
		want := 2 * math.Pi * 35640 * 10 / f.rf.OmegaRFd[0][1]
		Expect(f.rf.DphiRF[0]).To(BeNumerically("~", want, 1e-6*math.Abs(want)))
		Expect(f.rf.PhiRF[0][1]).To(BeNumerically("~", want, 1e-6*math.Abs(want)))
		Expect(f.rf.OmegaRF[0][2]).To(Equal(f.rf.OmegaRFd[0][2]))
	})

	It("should expose tunable parameters", func() {
		f := newFixture(10, 0)
		l, _ := NewLHC(f.rf, f.slicer, Params{Gain: []float64{1}}, 2)
		Expect(l.GetParams()).To(HaveKeyWithValue("synchro_gain", 2.0))
		l.SetParam("gain", 5)
		Expect(l.GetParams()).To(HaveKeyWithValue("gain", 5.0))
	})
})

var _ = Describe("LHC", func() {
	It("should not correct with zero gain", func() {
		f := newFixture(20, 0.2)
		l, err := NewLHC(f.rf, f.slicer, Params{}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Track()).To(Succeed())
		Expect(l.State().DomegaRF).To(BeZero())
		Expect(f.rf.OmegaRF[0][1]).To(Equal(f.rf.OmegaRFd[0][1]))
	})

	It("should correct proportionally to the phase error", func() {
		f := newFixture(20, 0.2)
		l, _ := NewLHC(f.rf, f.slicer, Params{Gain: []float64{100}}, 0)
		Expect(l.Track()).To(Succeed())
		Expect(l.DomegaRF).To(BeNumerically("~", -100*l.Dphi, 1e-9))
		Expect(l.DomegaRF).To(BeNumerically("<", 0))
	})

	It("should wait for the delay", func() {
		f := newFixture(20, 0.2)
		l, _ := NewLHC(f.rf, f.slicer, Params{Gain: []float64{100}, Delay: 5}, 0)
		Expect(l.Track()).To(Succeed())
		Expect(l.DomegaRF).To(BeZero())
	})

	It("should build synchro loop coefficients", func() {
		f := newFixture(20, 0)
		l, _ := NewLHC(f.rf, f.slicer, Params{Gain: []float64{100}}, 10)
		a := 5.25 - f.rf.OmegaS0[0]/(math.Pi*40)
		Expect(l.a[0]).To(BeNumerically("~", a, 1e-12))
		Expect(l.tau[0]).To(BeNumerically(">", 0))
	})

	It("should be deterministic over a closed loop run", func() {
		run := func() []float64 {
			f := newFixture(100, 0.1)
			l, _ := NewLHC(f.rf, f.slicer, Params{Gain: []float64{1 / 25e-6}}, 1e-3)
			s, err := tracker.New(f.rf, f.beam, tracker.Params{})
			Expect(err).NotTo(HaveOccurred())
			var out []float64
			for turn := 0; turn < 100; turn++ {
				Expect(f.slicer.Track()).To(Succeed())
				Expect(l.Track()).To(Succeed())
				Expect(s.Track()).To(Succeed())
				f.rf.Advance()
				out = append(out, l.DomegaRF)
			}
			return out
		}
		first, second := run(), run()
		Expect(first).To(HaveLen(100))
		for i := range first {
			Expect(second[i]).To(BeNumerically("~", first[i], 1e-7))
		}
	})
})

var _ = Describe("LHCF", func() {
	It("should pull the frequency back to design", func() {
		f := newFixture(20, 0)
		f.rf.OmegaRF[0][0] += 50
		l, _ := NewLHCF(f.rf, f.slicer, Params{}, 0.5)
		Expect(l.Track()).To(Succeed())
		Expect(l.DomegaRF).To(BeNumerically("~", -25, 1e-5))
	})
})

var _ = Describe("SPSRadial", func() {
	It("should measure the orbit offset from the mean energy", func() {
		f := newFixture(20, 0)
		for i := range f.beam.DE {
			f.beam.DE[i] = 1e8
		}
		l, _ := NewSPSRadial(f.rf, f.slicer, Params{}, 1)
		drho := l.RadialDifference()
		r := f.rf.Ring
		want := r.Alpha[0][0] * r.Radius * 1e8 / (f.rf.Beta[0] * f.rf.Beta[0] * f.rf.Energy[0])
		Expect(drho).To(BeNumerically("~", want, 1e-9*want))
		Expect(l.Track()).To(Succeed())
		Expect(l.DomegaRF).To(BeNumerically("~", drho/r.Radius, 1e-6*math.Abs(drho/r.Radius)))
	})
})
