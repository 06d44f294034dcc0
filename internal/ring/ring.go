package ring

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Params describes a ring before its per-turn program is derived.
//
// Every per-section table may hold a single value (constant over the run) or
// Turns+1 values (one per turn boundary).
type Params struct {
	Turns          int
	Particle       Particle
	SectionLengths []float64
	// Alpha holds the momentum compaction expansion per section:
	// alpha_0, optionally alpha_1 and alpha_2.
	Alpha [][]float64
	// Momentum in eV/c per section.
	Momentum [][]float64
}

// Program holds the per-turn ring kinematics. It is immutable after New.
type Program struct {
	Turns         int
	Sections      int
	AlphaOrder    int
	Particle      Particle
	Circumference float64
	Radius        float64
	SectionLength []float64
	Alpha         [][]float64

	// [section][turn]
	Momentum  [][]float64
	Beta      [][]float64
	Gamma     [][]float64
	Energy    [][]float64
	KinEnergy [][]float64
	Eta0      [][]float64
	Eta1      [][]float64
	Eta2      [][]float64

	// [turn]
	TRev      []float64
	FRev      []float64
	OmegaRev  []float64
	CycleTime []float64
}

// New derives the ring program. It fails on an unsupported compaction order,
// non-positive momenta or inconsistent section tables.
func New(p Params) (*Program, error) {
	if p.Turns < 1 {
		return nil, fmt.Errorf("turns = %d: %w", p.Turns, dynamo.ErrInvalidParameter)
	}
	nSections := len(p.SectionLengths)
	if nSections == 0 {
		return nil, fmt.Errorf("no ring sections: %w", dynamo.ErrSectionMismatch)
	}
	if len(p.Alpha) != nSections || len(p.Momentum) != nSections {
		return nil, fmt.Errorf("%d sections, %d alpha rows, %d momentum rows: %w",
			nSections, len(p.Alpha), len(p.Momentum), dynamo.ErrSectionMismatch)
	}
	if p.Particle.Mass <= 0 {
		return nil, fmt.Errorf("particle mass %g: %w", p.Particle.Mass, dynamo.ErrParticleType)
	}

	order := len(p.Alpha[0])
	if order == 0 {
		return nil, fmt.Errorf("empty alpha row: %w", dynamo.ErrSectionMismatch)
	}
	if order > 3 {
		return nil, fmt.Errorf("%d alpha coefficients: %w", order, dynamo.ErrSlipOrder)
	}
	for i, a := range p.Alpha {
		if len(a) != order {
			return nil, fmt.Errorf("section %d has %d alpha coefficients, want %d: %w", i, len(a), order, dynamo.ErrSectionMismatch)
		}
	}
	for i, l := range p.SectionLengths {
		if l <= 0 {
			return nil, fmt.Errorf("section %d length %g: %w", i, l, dynamo.ErrInvalidParameter)
		}
	}

	n := p.Turns + 1
	r := &Program{
		Turns:         p.Turns,
		Sections:      nSections,
		AlphaOrder:    order,
		Particle:      p.Particle,
		Circumference: floats.Sum(p.SectionLengths),
		SectionLength: append([]float64(nil), p.SectionLengths...),
		Alpha:         make([][]float64, nSections),
		Momentum:      make([][]float64, nSections),
		Beta:          make([][]float64, nSections),
		Gamma:         make([][]float64, nSections),
		Energy:        make([][]float64, nSections),
		KinEnergy:     make([][]float64, nSections),
		Eta0:          make([][]float64, nSections),
		Eta1:          make([][]float64, nSections),
		Eta2:          make([][]float64, nSections),
		TRev:          make([]float64, n),
		FRev:          make([]float64, n),
		OmegaRev:      make([]float64, n),
		CycleTime:     make([]float64, n),
	}
	r.Radius = r.Circumference / (2 * math.Pi)

	m := p.Particle.Mass
	for s := 0; s < nSections; s++ {
		mom, err := Expand(p.Momentum[s], n)
		if err != nil {
			return nil, fmt.Errorf("momentum of section %d: %w", s, err)
		}
		for _, v := range mom {
			if !(v > 0) {
				return nil, fmt.Errorf("section %d momentum %g: %w", s, v, dynamo.ErrMomentum)
			}
		}
		r.Alpha[s] = append([]float64(nil), p.Alpha[s]...)
		r.Momentum[s] = mom
		r.Beta[s] = make([]float64, n)
		r.Gamma[s] = make([]float64, n)
		r.Energy[s] = make([]float64, n)
		r.KinEnergy[s] = make([]float64, n)
		for i, pc := range mom {
			r.Beta[s][i] = math.Sqrt(1 / (1 + (m/pc)*(m/pc)))
			r.Gamma[s][i] = math.Sqrt(1 + (pc/m)*(pc/m))
			r.Energy[s][i] = math.Sqrt(m*m + pc*pc)
			r.KinEnergy[s][i] = r.Energy[s][i] - m
		}
		r.slipFactors(s)
	}

	for i := 0; i < n; i++ {
		t := 0.0
		for s := 0; s < nSections; s++ {
			t += r.SectionLength[s] / (SpeedOfLight * r.Beta[s][i])
		}
		r.TRev[i] = t
		r.FRev[i] = 1 / t
		r.OmegaRev[i] = 2 * math.Pi / t
	}
	floats.CumSum(r.CycleTime, r.TRev)

	return r, nil
}

// slipFactors fills eta_0..eta_2 of a section up to the ring's order.
func (r *Program) slipFactors(s int) {
	n := len(r.Beta[s])
	r.Eta0[s] = make([]float64, n)
	r.Eta1[s] = make([]float64, n)
	r.Eta2[s] = make([]float64, n)
	a := r.Alpha[s]
	for i := 0; i < n; i++ {
		b2 := r.Beta[s][i] * r.Beta[s][i]
		g2 := r.Gamma[s][i] * r.Gamma[s][i]
		eta0 := a[0] - 1/g2
		r.Eta0[s][i] = eta0
		if r.AlphaOrder > 1 {
			r.Eta1[s][i] = 3*b2/(2*g2) + a[1] - a[0]*eta0
		}
		if r.AlphaOrder > 2 {
			r.Eta2[s][i] = -b2*(5*b2-1)/(2*g2) + a[2] - 2*a[0]*a[1] + a[1]/g2 +
				a[0]*a[0]*eta0 - 3*b2*a[0]/(2*g2)
		}
	}
}

// Charge returns the particle charge in units of e.
func (r *Program) Charge() float64 { return r.Particle.Charge }

// TransitionGamma returns 1/sqrt(alpha_0) of a section, or +Inf for alpha_0 <= 0.
func (r *Program) TransitionGamma(section int) float64 {
	if r.Alpha[section][0] <= 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(r.Alpha[section][0])
}

// Expand broadcasts a single-value table to n entries or validates an
// n-entry table.
func Expand(v []float64, n int) ([]float64, error) {
	switch len(v) {
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case n:
		return append([]float64(nil), v...), nil
	default:
		return nil, fmt.Errorf("got %d values, want 1 or %d: %w", len(v), n, dynamo.ErrSectionMismatch)
	}
}
