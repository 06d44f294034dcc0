package beam

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// Ensemble holds the macro-particle coordinates. Dt is the time offset in
// seconds, DE the energy offset in eV and ID a weight tag where 0 marks a
// lost particle. Lost particles stay in the arrays.
type Ensemble struct {
	Dt        []float64
	DE        []float64
	ID        []int
	Intensity float64
	// Ratio is the number of real particles per macro-particle.
	Ratio float64
}

// Stats are the weighted first and second moments of the alive particles.
type Stats struct {
	MeanDt    float64
	SigmaDt   float64
	MeanDE    float64
	SigmaDE   float64
	Emittance float64
	Alive     int
	Lost      int
}

// New allocates n macro-particles, all alive, at the origin.
func New(n int, intensity float64) (*Ensemble, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%d macro-particles: %w", n, dynamo.ErrInvalidParameter)
	}
	if intensity < 0 {
		return nil, fmt.Errorf("intensity %g: %w", intensity, dynamo.ErrInvalidParameter)
	}
	b := &Ensemble{
		Dt:        make([]float64, n),
		DE:        make([]float64, n),
		ID:        make([]int, n),
		Intensity: intensity,
		Ratio:     intensity / float64(n),
	}
	for i := range b.ID {
		b.ID[i] = 1
	}
	return b, nil
}

// Len returns the number of macro-particles, alive or lost.
func (b *Ensemble) Len() int { return len(b.Dt) }

// Alive counts particles with a nonzero ID.
func (b *Ensemble) Alive() int {
	n := 0
	for _, id := range b.ID {
		if id != 0 {
			n++
		}
	}
	return n
}

// Weights returns the ID tags as float weights.
func (b *Ensemble) Weights() []float64 {
	w := make([]float64, len(b.ID))
	for i, id := range b.ID {
		w[i] = float64(id)
	}
	return w
}

// Statistics computes the ID-weighted population moments. With no alive
// particle every moment is NaN.
func (b *Ensemble) Statistics() Stats {
	alive := b.Alive()
	s := Stats{Alive: alive, Lost: b.Len() - alive}
	if alive == 0 {
		nan := math.NaN()
		s.MeanDt, s.SigmaDt, s.MeanDE, s.SigmaDE, s.Emittance = nan, nan, nan, nan, nan
		return s
	}
	w := b.Weights()
	s.MeanDt, s.SigmaDt = stat.PopMeanStdDev(b.Dt, w)
	s.MeanDE, s.SigmaDE = stat.PopMeanStdDev(b.DE, w)
	s.Emittance = math.Pi * s.SigmaDE * s.SigmaDt
	return s
}

// Clone returns a deep copy.
func (b *Ensemble) Clone() *Ensemble {
	c := &Ensemble{
		Dt:        append([]float64(nil), b.Dt...),
		DE:        append([]float64(nil), b.DE...),
		ID:        append([]int(nil), b.ID...),
		Intensity: b.Intensity,
		Ratio:     b.Ratio,
	}
	return c
}
