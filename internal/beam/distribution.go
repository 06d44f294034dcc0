package beam

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
)

// Distribution kinds understood by Distribute.
const (
	KindBigaussian = "bigaussian"
	KindGaussian   = "gaussian"
	KindQuiet      = "quiet"
)

// Distribute fills the ensemble with the named distribution.
func Distribute(kind string, p *rf.Program, b *Ensemble, sigmaDt, sigmaDE float64, seed int64) error {
	switch kind {
	case KindBigaussian, KindGaussian:
		return Bigaussian(p, b, sigmaDt, sigmaDE, seed)
	case KindQuiet:
		return Quiet(p, b, sigmaDt, sigmaDE)
	default:
		return fmt.Errorf("%q: %w", kind, dynamo.ErrDistribution)
	}
}

// Bigaussian samples independent Gaussians in dt and dE centred on the
// synchronous particle of the current turn. A zero sigmaDE is replaced by the
// value matched to the single-harmonic bucket at sigmaDt.
func Bigaussian(p *rf.Program, b *Ensemble, sigmaDt, sigmaDE float64, seed int64) error {
	sigmaDE, centre, err := bunchShape(p, sigmaDt, sigmaDE)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range b.Dt {
		b.Dt[i] = sigmaDt*rng.NormFloat64() + centre
		b.DE[i] = sigmaDE * rng.NormFloat64()
		b.ID[i] = 1
	}
	return nil
}

// Quiet loads the same bigaussian as Bigaussian without random numbers.
// Particle i gets the Box-Muller pair of u1 = (i+0.5)/N and the golden ratio
// sequence u2 = frac((i+0.5)·φ⁻¹), so the bunch depends only on N.
func Quiet(p *rf.Program, b *Ensemble, sigmaDt, sigmaDE float64) error {
	sigmaDE, centre, err := bunchShape(p, sigmaDt, sigmaDE)
	if err != nil {
		return err
	}
	n := float64(b.Len())
	g := (math.Sqrt(5) - 1) / 2
	for i := range b.Dt {
		x := float64(i) + 0.5
		u2 := x * g
		u2 -= math.Floor(u2)
		r := math.Sqrt(-2 * math.Log(x/n))
		b.Dt[i] = sigmaDt*r*math.Cos(2*math.Pi*u2) + centre
		b.DE[i] = sigmaDE * r * math.Sin(2*math.Pi*u2)
		b.ID[i] = 1
	}
	return nil
}

// bunchShape returns the energy spread, matched when sigmaDE is zero, and
// the time of the bucket centre at the current turn.
func bunchShape(p *rf.Program, sigmaDt, sigmaDE float64) (float64, float64, error) {
	if sigmaDt <= 0 || sigmaDE < 0 {
		return 0, 0, fmt.Errorf("sigma_dt %g, sigma_dE %g: %w", sigmaDt, sigmaDE, dynamo.ErrDistribution)
	}
	turn := p.Counter
	h := p.Harmonic[0][turn]
	energy := p.Energy[turn]
	beta := p.Beta[turn]
	omega := p.OmegaRF[0][turn]
	phiS := p.PhiS[turn]
	phiRF := p.PhiRF[0][turn]
	eta0 := p.Eta0[turn]

	if sigmaDE == 0 {
		v := p.Charge * p.Voltage[0][turn]
		phiB := omega*sigmaDt + phiS
		sigmaDE = math.Sqrt(math.Abs(v * energy * beta * beta *
			(math.Cos(phiB) - math.Cos(phiS) + (phiB-phiS)*math.Sin(phiS)) /
			(math.Pi * h * eta0)))
		if math.IsNaN(sigmaDE) || math.IsInf(sigmaDE, 0) {
			return 0, 0, fmt.Errorf("matched sigma_dE is not finite: %w", dynamo.ErrDistribution)
		}
	}

	centre := (phiS - phiRF) / omega
	if eta0 <= 0 {
		centre = (phiS - phiRF - math.Pi) / omega
	}
	return sigmaDE, centre, nil
}
