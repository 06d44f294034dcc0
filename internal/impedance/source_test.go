package impedance

import (
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resonators", func() {
	var res *Resonators

	BeforeEach(func() {
		var err error
		res, err = NewResonators([]float64{1}, []float64{1e9}, []float64{1})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject Q below critical damping", func() {
		_, err := NewResonators([]float64{1}, []float64{1e9}, []float64{0.5})
		Expect(err).To(HaveOccurred())
	})

	It("should be causal with half the limit at zero", func() {
		alpha := 2 * math.Pi * 1e9 / 2
		w := res.Wake([]float64{-1e-9, -1e-15, 0, 1e-18})
		Expect(w[0]).To(BeZero())
		Expect(w[1]).To(BeZero())
		Expect(w[2]).To(BeNumerically("~", alpha, 1e-6*alpha))
		Expect(w[3]).To(BeNumerically("~", 2*alpha, 1e-6*alpha))
	})

	It("should peak at the shunt impedance", func() {
		z := res.Impedance([]float64{0, 1e9})
		Expect(z[0]).To(Equal(complex128(0)))
		Expect(real(z[1])).To(BeNumerically("~", 1, 1e-12))
		Expect(imag(z[1])).To(BeNumerically("~", 0, 1e-12))
	})

	It("should have the impedance as Fourier transform of its wake", func() {
		const dt = 1e-13
		n := 64000
		t := make([]float64, n)
		for i := range t {
			t[i] = float64(i) * dt
		}
		w := res.Wake(t)
		omega := 2 * math.Pi * 1e9
		var z complex128
		for i := 1; i < n; i++ {
			a := complex(w[i-1], 0) * cmplx.Exp(complex(0, -omega*t[i-1]))
			b := complex(w[i], 0) * cmplx.Exp(complex(0, -omega*t[i]))
			z += (a + b) * complex(dt/2, 0)
		}
		Expect(real(z)).To(BeNumerically("~", 1, 1e-3))
		Expect(imag(z)).To(BeNumerically("~", 0, 1e-3))
	})
})

var _ = Describe("InputTable", func() {
	It("should interpolate a wake and vanish outside it", func() {
		tab, err := NewWakeTable([]float64{0, 1, 2}, []float64{0, 10, 20})
		Expect(err).NotTo(HaveOccurred())
		w := tab.Wake([]float64{-1, 0.5, 1.5, 3})
		Expect(w).To(Equal([]float64{0, 5, 15, 0}))
		Expect(tab.Impedance([]float64{1})).To(Equal([]complex128{0}))
	})

	It("should prepend the zero frequency", func() {
		tab, err := NewImpedanceTable([]float64{1, 2}, []float64{2, 4}, []float64{-2, -4})
		Expect(err).NotTo(HaveOccurred())
		Expect(tab.Freq).To(Equal([]float64{0, 1, 2}))
		z := tab.Impedance([]float64{0.5, 1.5, 5})
		Expect(z).To(Equal([]complex128{complex(1, -1), complex(3, -3), 0}))
	})

	It("should reject unordered tables", func() {
		_, err := NewWakeTable([]float64{0, 2, 1}, []float64{0, 1, 2})
		Expect(err).To(HaveOccurred())
		_, err = NewWakeTable([]float64{0}, []float64{0})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("TravelingWaveCavity", func() {
	var cav *TravelingWaveCavity

	BeforeEach(func() {
		var err error
		cav, err = NewTravelingWaveCavity([]float64{1e5}, []float64{200e6}, []float64{1e-6})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should only wake during the filling time", func() {
		w := cav.Wake([]float64{-1e-9, 0, 1e-6, 2e-6})
		Expect(w[0]).To(BeZero())
		Expect(w[1]).To(BeNumerically("~", 1e5/2e-6, 1e-3))
		Expect(w[2]).To(BeZero())
		Expect(w[3]).To(BeZero())
	})

	It("should reach the shunt impedance at resonance", func() {
		z := cav.Impedance([]float64{200e6})
		Expect(real(z[0])).To(BeNumerically("~", 1e5, 1e2))
		Expect(math.Abs(imag(z[0]))).To(BeNumerically("<", 1e2))
	})
})
