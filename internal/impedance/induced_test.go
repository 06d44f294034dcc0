package impedance

import (
	"bytes"
	"log"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/ring"
	"github.com/san-kum/longsim/internal/slices"
)

func smallRing() *rf.Program {
	r, err := ring.New(ring.Params{
		Turns:          10,
		Particle:       ring.Proton(),
		SectionLengths: []float64{100},
		Alpha:          [][]float64{{1e-3}},
		Momentum:       [][]float64{{26e9}},
	})
	Expect(err).NotTo(HaveOccurred())
	p, err := rf.New(r, rf.Params{Harmonic: [][]float64{{1}}, Voltage: [][]float64{{1e6}}})
	Expect(err).NotTo(HaveOccurred())
	return p
}

// pointBeam puts every particle at the centre of the first bin of a 16 bin
// window of 1 ns bins.
func pointBeam(p *rf.Program) (*beam.Ensemble, *slices.Slicer) {
	b, err := beam.New(100, 1e11)
	Expect(err).NotTo(HaveOccurred())
	for i := range b.Dt {
		b.Dt[i] = 0.5e-9
	}
	s, err := slices.New(b, p, slices.Params{Slices: 16, CutLeft: 0, CutRight: 16e-9})
	Expect(err).NotTo(HaveOccurred())
	Expect(s.Track()).To(Succeed())
	return b, s
}

type constEngine struct {
	lengths []int
}

func (c *constEngine) Name() string { return "const" }

func (c *constEngine) Voltage(length int) ([]float64, error) {
	c.lengths = append(c.lengths, length)
	v := make([]float64, length)
	for i := range v {
		v[i] = 1
	}
	return v, nil
}

var _ = Describe("TimeDomain", func() {
	It("should reproduce the wake of a point charge", func() {
		p := smallRing()
		b, s := pointBeam(p)
		res, err := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		Expect(err).NotTo(HaveOccurred())
		td, err := NewTimeDomain(s, 1, res)
		Expect(err).NotTo(HaveOccurred())

		v, err := td.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		grid := make([]float64, 16)
		for k := range grid {
			grid[k] = float64(k) * 1e-9
		}
		wake := res.Wake(grid)
		factor := -ring.ElementaryCharge * b.Ratio * 100
		for k := range v {
			Expect(v[k]).To(BeNumerically("~", factor*wake[k], 1e-9*math.Abs(factor*wake[0])))
		}
	})

	It("should resample the wake when the window moves", func() {
		p := smallRing()
		_, s := pointBeam(p)
		res, _ := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		td, _ := NewTimeDomain(s, 1, res)
		_, err := td.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		first := append([]float64(nil), td.Wake()...)

		Expect(s.SetCuts(0, 32e-9)).To(Succeed())
		_, err = td.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		Expect(td.Wake()[1]).NotTo(Equal(first[1]))
	})
})

var _ = Describe("FreqDomain", func() {
	var (
		p *rf.Program
		s *slices.Slicer
	)

	BeforeEach(func() {
		p = smallRing()
		_, s = pointBeam(p)
	})

	It("should default to one FFT point per slice", func() {
		res, _ := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		fd, err := NewFreqDomain(s, 1, FreqDomainParams{}, res)
		Expect(err).NotTo(HaveOccurred())
		Expect(fd.NFFT()).To(Equal(16))
		v, err := fd.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveLen(16))
	})

	It("should pad to the requested resolution", func() {
		res, _ := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		fd, err := NewFreqDomain(s, 1, FreqDomainParams{FreqResolution: 1e7}, res)
		Expect(err).NotTo(HaveOccurred())
		Expect(fd.NFFT()).To(Equal(100))
		Expect(fd.Frequencies()[1]).To(BeNumerically("~", 1e7, 1))
	})

	It("should warn when the resolution is coarser than the window", func() {
		var buf bytes.Buffer
		res, _ := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		fd, err := NewFreqDomain(s, 1, FreqDomainParams{FreqResolution: 1e9, Logger: log.New(&buf, "", 0)}, res)
		Expect(err).NotTo(HaveOccurred())
		Expect(fd.NFFT()).To(Equal(16))
		Expect(buf.String()).To(ContainSubstring("resolution"))
	})

	It("should keep per source voltages that sum to the total", func() {
		r1, _ := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		r2, _ := NewResonators([]float64{5e3}, []float64{100e6}, []float64{10})
		fd, err := NewFreqDomain(s, 1, FreqDomainParams{SaveIndividual: true}, r1, r2)
		Expect(err).NotTo(HaveOccurred())
		v, err := fd.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		Expect(fd.Individual).To(HaveLen(2))
		for k := range v {
			Expect(fd.Individual[0][k] + fd.Individual[1][k]).To(BeNumerically("~", v[k], 1e-9*math.Abs(v[0])+1e-12))
		}
	})
})

var _ = Describe("Total", func() {
	It("should sum engines without memory", func() {
		p := smallRing()
		_, s := pointBeam(p)
		tot, err := NewTotal(s, p, 0, &constEngine{}, &constEngine{})
		Expect(err).NotTo(HaveOccurred())
		Expect(tot.Track()).To(Succeed())
		Expect(tot.Voltage).To(HaveLen(16))
		Expect(tot.Voltage[5]).To(Equal(2.0))
	})

	It("should add a time domain and a frequency domain engine", func() {
		p := smallRing()
		_, s := pointBeam(p)
		res, _ := NewResonators([]float64{1e4}, []float64{300e6}, []float64{3})
		cav, _ := NewTravelingWaveCavity([]float64{2e4}, []float64{200e6}, []float64{5e-7})
		td, err := NewTimeDomain(s, 1, res)
		Expect(err).NotTo(HaveOccurred())
		fd, err := NewFreqDomain(s, 1, FreqDomainParams{}, cav)
		Expect(err).NotTo(HaveOccurred())
		tot, err := NewTotal(s, p, 0, td, fd)
		Expect(err).NotTo(HaveOccurred())
		Expect(tot.Track()).To(Succeed())

		vt, err := td.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		vf, err := fd.Voltage(16)
		Expect(err).NotTo(HaveOccurred())
		scale := 0.0
		for k := range vt {
			scale = math.Max(scale, math.Abs(vt[k])+math.Abs(vf[k]))
		}
		Expect(scale).To(BeNumerically(">", 0))
		for k := range tot.Voltage {
			Expect(tot.Voltage[k]).To(BeNumerically("~", vt[k]+vf[k], 1e-12*scale))
		}
	})

	It("should carry one revolution of wake between turns", func() {
		p := smallRing()
		_, s := pointBeam(p)
		eng := &constEngine{}
		tot, err := NewTotal(s, p, 1, eng)
		Expect(err).NotTo(HaveOccurred())

		Expect(tot.Track()).To(Succeed())
		want := 16 + int(math.Ceil(p.Ring.TRev[0]/s.BinWidth))
		Expect(tot.MemoryLength()).To(Equal(want))
		Expect(eng.lengths).To(Equal([]int{want}))
		Expect(tot.Voltage[0]).To(Equal(1.0))

		p.Advance()
		Expect(tot.Track()).To(Succeed())
		for k := 0; k < 15; k++ {
			Expect(tot.Voltage[k]).To(BeNumerically("~", 2, 1e-12))
		}

		Expect(s.SetCuts(0, 32e-9)).To(Succeed())
		Expect(tot.Track()).To(Succeed())
		Expect(tot.Voltage[0]).To(Equal(1.0))
	})

	It("should keep the wake memory when the window follows the bunch", func() {
		p := smallRing()
		_, s := pointBeam(p)
		tot, err := NewTotal(s, p, 1, &constEngine{})
		Expect(err).NotTo(HaveOccurred())
		Expect(tot.Track()).To(Succeed())
		length := tot.MemoryLength()

		// recentres [0, 16 ns] on the particles at 0.5 ns
		s.TrackCuts()
		Expect(s.CutLeft).To(BeNumerically("~", -7.5e-9, 1e-18))
		p.Advance()
		Expect(tot.Track()).To(Succeed())
		Expect(tot.MemoryLength()).To(Equal(length))
		for k := range tot.Voltage {
			Expect(tot.Voltage[k]).To(BeNumerically("~", 2, 1e-12))
		}
	})

	It("should drop the wake memory that leaves the grid", func() {
		p := smallRing()
		_, s := pointBeam(p)
		tot, err := NewTotal(s, p, 1, &constEngine{})
		Expect(err).NotTo(HaveOccurred())
		Expect(tot.Track()).To(Succeed())

		Expect(s.SetCuts(3e-9, 19e-9)).To(Succeed())
		p.Advance()
		Expect(tot.Track()).To(Succeed())
		Expect(tot.Voltage[0]).To(BeNumerically("~", 2, 1e-12))
		Expect(tot.Voltage[15]).To(Equal(1.0))
	})

	It("should interpolate the kick between bin centres", func() {
		b, err := beam.New(5, 5)
		Expect(err).NotTo(HaveOccurred())
		copy(b.Dt, []float64{0.5, 2.5, 3, -0.1, 1})
		b.ID[4] = 0
		KickLinear(b, []float64{0, 1, 2, 3}, []float64{0, 10, 20, 10}, 2)
		Expect(b.DE[0]).To(BeNumerically("~", 10, 1e-12))
		Expect(b.DE[1]).To(BeNumerically("~", 30, 1e-12))
		Expect(b.DE[2]).To(BeZero())
		Expect(b.DE[3]).To(BeZero())
		Expect(b.DE[4]).To(BeZero())
	})
})

var _ = Describe("Music", func() {
	It("should match the direct wake sum", func() {
		b, err := beam.New(50, 1e10)
		Expect(err).NotTo(HaveOccurred())
		rng := rand.New(rand.NewSource(7))
		for i := range b.Dt {
			b.Dt[i] = rng.Float64() * 10e-9
		}
		const r, fr, q = 1e4, 1e9, 5.0
		m, err := NewMusic(b, 1, r, 2*math.Pi*fr, q)
		Expect(err).NotTo(HaveOccurred())
		res, _ := NewResonators([]float64{r}, []float64{fr}, []float64{q})

		m.Induced()
		k := -ring.ElementaryCharge * b.Ratio
		scale := math.Abs(k) * r * 2 * math.Pi * fr / q * float64(b.Len())
		for n, i := range m.order {
			sum := 0.0
			for j := range b.Dt {
				if j == i {
					continue
				}
				if d := b.Dt[i] - b.Dt[j]; d > 0 {
					sum += res.Wake([]float64{d})[0]
				}
			}
			sum += res.Wake([]float64{0})[0]
			want := k * sum
			Expect(m.Voltage[n]).To(BeNumerically("~", want, 1e-12*scale))
		}
	})

	It("should skip lost particles", func() {
		b, _ := beam.New(3, 3)
		copy(b.Dt, []float64{1e-9, 2e-9, 3e-9})
		b.ID[1] = 0
		m, _ := NewMusic(b, 1, 1e4, 2*math.Pi*1e9, 5)
		Expect(m.Track()).To(Succeed())
		Expect(m.Voltage).To(HaveLen(2))
		Expect(b.DE[1]).To(BeZero())
	})
})
