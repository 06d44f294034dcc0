package control

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NoiseFeedback", func() {
	It("should raise the noise for a short bunch and clamp to one", func() {
		f := newFixture(20, 0)
		bl, _, ok := f.slicer.FWHM(0)
		Expect(ok).To(BeTrue())

		nf, err := NewNoiseFeedback(f.rf, f.slicer, NoiseFeedbackParams{
			BunchLength: 2 * bl,
			Gain:        1 / bl,
			Factor:      0.9,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(nf.Track()).To(Succeed())
		Expect(nf.BunchLength).To(BeNumerically("~", bl, 1e-15))
		Expect(nf.Scale()).To(BeNumerically("~", 1, 1e-12))
	})

	It("should clamp to zero for a long bunch", func() {
		f := newFixture(20, 0)
		bl, _, _ := f.slicer.FWHM(0)
		nf, _ := NewNoiseFeedback(f.rf, f.slicer, NoiseFeedbackParams{BunchLength: bl / 2, Gain: 1 / bl, Factor: 0.9})
		Expect(nf.Track()).To(Succeed())
		Expect(nf.Scale()).To(BeZero())
	})

	It("should only update every n turns", func() {
		f := newFixture(20, 0)
		bl, _, _ := f.slicer.FWHM(0)
		nf, _ := NewNoiseFeedback(f.rf, f.slicer, NoiseFeedbackParams{BunchLength: bl * 1.1, Gain: 1 / bl, UpdateEvery: 5})
		f.rf.Advance()
		Expect(nf.Track()).To(Succeed())
		Expect(nf.Scale()).To(BeZero())
		for f.rf.Counter < 5 {
			f.rf.Advance()
		}
		Expect(nf.Track()).To(Succeed())
		Expect(nf.Scale()).To(BeNumerically("~", 0.1, 1e-9))
	})

	It("should measure a train bucket by bucket", func() {
		f := newFixture(20, 0)
		single, _, _ := f.slicer.FWHM(0)
		nf, err := NewNoiseFeedback(f.rf, f.slicer, NoiseFeedbackParams{BunchLength: 1e-9, BunchPattern: []int{0}})
		Expect(err).NotTo(HaveOccurred())
		Expect(nf.Track()).To(Succeed())
		Expect(nf.BunchLengths).To(HaveLen(1))
		Expect(nf.BunchLength).To(BeNumerically("~", single, 0.05*single))
	})

	It("should reject a non-positive target", func() {
		f := newFixture(20, 0)
		_, err := NewNoiseFeedback(f.rf, f.slicer, NoiseFeedbackParams{})
		Expect(err).To(HaveOccurred())
	})
})
