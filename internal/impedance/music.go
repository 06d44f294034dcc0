package impedance

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/ring"
)

// Music computes the induced voltage of a single resonator particle by
// particle, without slicing. Particles are visited in time order and the
// resonator state is carried from one particle to the next, which is exact
// for the resonator wake.
type Music struct {
	R     float64
	Omega float64
	Q     float64
	// Voltage holds the voltage seen by each particle, in time order.
	Voltage []float64

	beam   *beam.Ensemble
	charge float64
	alpha  float64
	omBar  float64
	order  []int
}

// NewMusic builds the tracker for a resonator of shunt impedance r (Ω),
// angular resonant frequency omega (rad/s) and quality factor q.
func NewMusic(b *beam.Ensemble, charge, r, omega, q float64) (*Music, error) {
	if q <= 0.5 || omega <= 0 {
		return nil, fmt.Errorf("resonator omega %g, Q %g: %w", omega, q, dynamo.ErrInvalidParameter)
	}
	alpha := omega / (2 * q)
	return &Music{
		R:      r,
		Omega:  omega,
		Q:      q,
		beam:   b,
		charge: charge,
		alpha:  alpha,
		omBar:  math.Sqrt(omega*omega - alpha*alpha),
	}, nil
}

func (m *Music) Name() string { return "music" }

// Induced fills Voltage for the alive particles.
func (m *Music) Induced() {
	b := m.beam
	m.order = m.order[:0]
	for i, id := range b.ID {
		if id != 0 {
			m.order = append(m.order, i)
		}
	}
	sort.SliceStable(m.order, func(i, j int) bool { return b.Dt[m.order[i]] < b.Dt[m.order[j]] })

	k := -m.charge * ring.ElementaryCharge * b.Ratio
	self := k * m.alpha * m.R
	coef := complex(2*m.alpha*m.R, 2*m.alpha*m.R*m.alpha/m.omBar)
	growth := complex(-m.alpha, m.omBar)

	if cap(m.Voltage) < len(m.order) {
		m.Voltage = make([]float64, len(m.order))
	}
	m.Voltage = m.Voltage[:len(m.order)]

	var state complex128
	prev := 0.0
	for n, i := range m.order {
		t := b.Dt[i]
		if n > 0 {
			state = cmplx.Exp(growth*complex(t-prev, 0)) * (state + 1)
			m.Voltage[n] = k*real(coef*state) + self
		} else {
			m.Voltage[n] = self
		}
		prev = t
	}
}

// Track computes the voltage and kicks every alive particle with it.
func (m *Music) Track() error {
	m.Induced()
	q := m.charge
	for n, i := range m.order {
		m.beam.DE[i] += q * m.Voltage[n]
	}
	return nil
}
