package tracker

import (
	"math"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/rf"
)

// bucket describes the single harmonic motion of the first RF system at one
// turn in RF phase φ = ω·dt + φ_RF: H = A/2·dE² + U(φ) with
// U(φ) = qV·(cos φ − cos φs + (φ − φs)·sin φs).
type bucket struct {
	a     float64
	qv    float64
	omega float64
	phiRF float64
	phiS  float64
	left  float64
	right float64
	level float64
}

func newBucket(p *rf.Program, turn int) bucket {
	eta := p.Eta0[turn]
	b := bucket{
		a:     2 * math.Pi * p.Harmonic[0][turn] * eta / (p.Beta[turn] * p.Beta[turn] * p.Energy[turn]),
		qv:    p.Charge * p.Voltage[0][turn],
		omega: p.OmegaRF[0][turn],
		phiRF: p.PhiRF[0][turn],
		phiS:  p.PhiS[turn],
	}
	if eta <= 0 {
		b.phiS -= math.Pi
	}
	// The unstable fixed points are the other roots of sin φ = sin φs,
	// one on each side of the stable phase.
	u := math.Pi - b.phiS
	for u > b.phiS {
		u -= 2 * math.Pi
	}
	for u+2*math.Pi < b.phiS {
		u += 2 * math.Pi
	}
	b.left, b.right = u, u+2*math.Pi
	ul, ur := b.potential(b.left), b.potential(b.right)
	if b.a > 0 {
		b.level = math.Min(ul, ur)
	} else {
		b.level = math.Max(ul, ur)
	}
	return b
}

func (b bucket) phase(dt float64) float64 { return b.omega*dt + b.phiRF }

func (b bucket) potential(phi float64) float64 {
	s := math.Sin(b.phiS)
	return b.qv * (math.Cos(phi) - math.Cos(b.phiS) + (phi-b.phiS)*s)
}

func (b bucket) hamiltonian(dt, dE float64) float64 {
	return b.a/2*dE*dE + b.potential(b.phase(dt))
}

// separatrix returns the energy half height at dt, or NaN outside the
// bucket.
func (b bucket) separatrix(dt float64) float64 {
	phi := b.phase(dt)
	if phi < b.left || phi > b.right {
		return math.NaN()
	}
	sq := 2 / b.a * (b.level - b.potential(phi))
	if sq < 0 {
		return math.NaN()
	}
	return math.Sqrt(sq)
}

// Hamiltonian evaluates the single RF Hamiltonian of the first system at
// the given turn. It is conserved by the kick-drift map to first order.
func Hamiltonian(p *rf.Program, turn int, dt, dE float64) float64 {
	return newBucket(p, turn).hamiltonian(dt, dE)
}

// Separatrix returns the upper branch of the separatrix, in eV, at each
// time. Times outside the bucket give NaN.
func Separatrix(p *rf.Program, turn int, dt []float64) []float64 {
	b := newBucket(p, turn)
	out := make([]float64, len(dt))
	for i, t := range dt {
		out[i] = b.separatrix(t)
	}
	return out
}

// InSeparatrix reports whether the coordinates lie strictly inside the
// bucket.
func InSeparatrix(p *rf.Program, turn int, dt, dE float64) bool {
	return newBucket(p, turn).inside(dt, dE)
}

func (b bucket) inside(dt, dE float64) bool {
	sep := b.separatrix(dt)
	return !math.IsNaN(sep) && math.Abs(dE) < sep
}

// LossSeparatrix marks every alive particle outside the bucket of the
// current turn as lost and returns how many were marked.
func LossSeparatrix(p *rf.Program, e *beam.Ensemble) int {
	b := newBucket(p, p.Counter)
	lost := 0
	for i := range e.Dt {
		if e.ID[i] != 0 && !b.inside(e.Dt[i], e.DE[i]) {
			e.ID[i] = 0
			lost++
		}
	}
	return lost
}
