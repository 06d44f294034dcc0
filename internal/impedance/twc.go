package impedance

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
)

// TravelingWaveCavity models travelling wave structures by shunt impedance R
// (Ω), resonant frequency fr (Hz) and filling-time factor a (s).
type TravelingWaveCavity struct {
	R  []float64
	FR []float64
	A  []float64
}

func NewTravelingWaveCavity(r, fr, a []float64) (*TravelingWaveCavity, error) {
	if len(r) == 0 || len(r) != len(fr) || len(r) != len(a) {
		return nil, fmt.Errorf("cavity tables of length %d, %d, %d: %w", len(r), len(fr), len(a), dynamo.ErrSectionMismatch)
	}
	for i := range a {
		if a[i] <= 0 || fr[i] <= 0 {
			return nil, fmt.Errorf("cavity %d: fr %g, a %g: %w", i, fr[i], a[i], dynamo.ErrInvalidParameter)
		}
	}
	return &TravelingWaveCavity{
		R:  append([]float64(nil), r...),
		FR: append([]float64(nil), fr...),
		A:  append([]float64(nil), a...),
	}, nil
}

func (c *TravelingWaveCavity) Name() string { return "travelling_wave_cavity" }

// Wake is the triangular (sign(t)+sign(a−t))·R/2a·(1−t/a)·cos(ωr t) on
// [0, a] and zero elsewhere.
func (c *TravelingWaveCavity) Wake(t []float64) []float64 {
	return evalReal(t, func(t float64) float64 {
		w := 0.0
		for i := range c.R {
			a := c.A[i]
			if t < 0 || t > a {
				continue
			}
			w += (sign(t) + sign(a-t)) * c.R[i] / (2 * a) * (1 - t/a) * math.Cos(2*math.Pi*c.FR[i]*t)
		}
		return w
	})
}

// Impedance is the sum of the two sidebands x∓ = a(2πf ∓ ωr) of each cavity.
func (c *TravelingWaveCavity) Impedance(f []float64) []complex128 {
	return evalComplex(f, func(f float64) complex128 {
		var z complex128
		for i := range c.R {
			wr := 2 * math.Pi * c.FR[i]
			xm := c.A[i] * (2*math.Pi*f - wr)
			xp := c.A[i] * (2*math.Pi*f + wr)
			z += complex(c.R[i], 0) * (sideband(xm) + sideband(xp))
		}
		return z
	})
}

func sideband(x float64) complex128 {
	if x == 0 {
		return 1
	}
	s := math.Sin(x/2) / (x / 2)
	return complex(s*s, -2*(x-math.Sin(x))/(x*x))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
