package impedance

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
)

// Resonators is a set of broad or narrow band resonators, each given by its
// shunt impedance R (Ω), resonant frequency fr (Hz) and quality factor Q.
type Resonators struct {
	R  []float64
	FR []float64
	Q  []float64

	omega []float64
	alpha []float64
	omBar []float64
}

// NewResonators validates the tables. Q must exceed 0.5 so that the damped
// frequency is real.
func NewResonators(r, fr, q []float64) (*Resonators, error) {
	if len(r) == 0 || len(r) != len(fr) || len(r) != len(q) {
		return nil, fmt.Errorf("resonator tables of length %d, %d, %d: %w", len(r), len(fr), len(q), dynamo.ErrSectionMismatch)
	}
	res := &Resonators{
		R:     append([]float64(nil), r...),
		FR:    append([]float64(nil), fr...),
		Q:     append([]float64(nil), q...),
		omega: make([]float64, len(r)),
		alpha: make([]float64, len(r)),
		omBar: make([]float64, len(r)),
	}
	for i := range r {
		if fr[i] <= 0 || q[i] <= 0.5 {
			return nil, fmt.Errorf("resonator %d: fr %g, Q %g: %w", i, fr[i], q[i], dynamo.ErrInvalidParameter)
		}
		res.omega[i] = 2 * math.Pi * fr[i]
		res.alpha[i] = res.omega[i] / (2 * q[i])
		res.omBar[i] = math.Sqrt(res.omega[i]*res.omega[i] - res.alpha[i]*res.alpha[i])
	}
	return res, nil
}

func (r *Resonators) Name() string { return "resonators" }

// Wake returns (sign(t)+1)·R·α·e^{-αt}(cos ω̄t − α/ω̄·sin ω̄t), which is Rα at
// t = 0 and zero before the source particle.
func (r *Resonators) Wake(t []float64) []float64 {
	return evalReal(t, r.wakeAt)
}

func (r *Resonators) wakeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	step := 2.0
	if t == 0 {
		step = 1
	}
	w := 0.0
	for i := range r.R {
		a, ob := r.alpha[i], r.omBar[i]
		w += step * r.R[i] * a * math.Exp(-a*t) * (math.Cos(ob*t) - a/ob*math.Sin(ob*t))
	}
	return w
}

// Impedance returns R/(1 + jQ(f/fr − fr/f)); the f = 0 point is set to 0.
func (r *Resonators) Impedance(f []float64) []complex128 {
	return evalComplex(f, r.impedanceAt)
}

func (r *Resonators) impedanceAt(f float64) complex128 {
	if f == 0 {
		return 0
	}
	var z complex128
	for i := range r.R {
		z += complex(r.R[i], 0) / complex(1, r.Q[i]*(f/r.FR[i]-r.FR[i]/f))
	}
	return z
}
