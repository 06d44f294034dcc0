package tracker

import (
	"fmt"
	"log"
	"math"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
)

// Solver selects the drift equation.
type Solver int

const (
	// Simple is the first order drift dt += T·η0·dE/(β²E).
	Simple Solver = iota
	// Full is the exact drift dt += T·(1/(1 − η(δ)·δ) − 1) with the slip
	// factor expanded to the ring's momentum compaction order.
	Full
)

func (s Solver) String() string {
	if s == Full {
		return "full"
	}
	return "simple"
}

// ParseSolver accepts "simple" and "full" (or "exact").
func ParseSolver(name string) (Solver, error) {
	switch name {
	case "", "simple":
		return Simple, nil
	case "full", "exact":
		return Full, nil
	}
	return Simple, fmt.Errorf("solver %q: %w", name, dynamo.ErrInvalidParameter)
}

// Kicker applies a collective energy kick, typically the induced voltage.
type Kicker interface {
	Kick(b *beam.Ensemble)
}

// Params configures one ring section.
type Params struct {
	Solver Solver
	// Periodicity keeps particles inside one revolution period: particles
	// beyond it skip a turn and are moved back by one period, particles
	// drifting below zero are moved forward and tracked again.
	Periodicity bool
	// DEMax marks particles with dE < −DEMax as lost. Zero disables it.
	DEMax float64
	// FastSin uses a lookup table for the RF kick.
	FastSin bool
	Induced Kicker
	Logger  *log.Logger
}

// Section tracks the ensemble through one RF station and the arc that
// follows it. The driver advances the RF counter after every turn.
type Section struct {
	RF   *rf.Program
	Beam *beam.Ensemble

	solver      Solver
	periodicity bool
	dEMax       float64
	induced     Kicker
	sin         func(float64) float64
	logger      *log.Logger
	class       []int8
}

// New builds a section tracker. A momentum compaction of order above one
// forces the full solver.
func New(r *rf.Program, b *beam.Ensemble, p Params) (*Section, error) {
	if r == nil || b == nil {
		return nil, fmt.Errorf("tracker needs an RF program and a beam: %w", dynamo.ErrInvalidParameter)
	}
	if p.DEMax < 0 {
		return nil, fmt.Errorf("dE_max %g: %w", p.DEMax, dynamo.ErrInvalidParameter)
	}
	s := &Section{
		RF:          r,
		Beam:        b,
		solver:      p.Solver,
		periodicity: p.Periodicity,
		dEMax:       p.DEMax,
		induced:     p.Induced,
		sin:         math.Sin,
		logger:      p.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if p.FastSin {
		s.sin = dynamo.FastSin
	}
	if r.AlphaOrder > 1 && s.solver != Full {
		s.logger.Printf("tracker: momentum compaction order %d, using the full solver", r.AlphaOrder)
		s.solver = Full
	}
	return s, nil
}

func (s *Section) Name() string { return "tracker" }

// Solver returns the drift solver in use.
func (s *Section) Solver() Solver { return s.solver }

// Track advances the ensemble by one section: induced kick, RF kick at the
// current turn, drift with the parameters of the next turn, then the
// periodicity and energy cuts.
func (s *Section) Track() error {
	turn := s.RF.Counter
	if turn >= s.RF.Turns {
		return fmt.Errorf("turn %d of %d: %w", turn, s.RF.Turns, dynamo.ErrInvalidParameter)
	}
	if s.induced != nil {
		s.induced.Kick(s.Beam)
	}

	if s.periodicity {
		s.trackPeriodic(turn)
	} else {
		s.kick(turn, nil, 0)
		s.drift(turn+1, nil, 0)
	}

	if s.dEMax > 0 {
		s.cutEnergy()
	}
	return nil
}

// Particle classes used by the periodic tracking pass.
const (
	classInside int8 = iota
	classRight
)

func (s *Section) trackPeriodic(turn int) {
	b := s.Beam
	tRev := s.RF.Ring.TRev[turn+1]
	if cap(s.class) < b.Len() {
		s.class = make([]int8, b.Len())
	}
	s.class = s.class[:b.Len()]

	dynamo.ParallelFor(b.Len(), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			if b.Dt[i] > tRev {
				s.class[i] = classRight
				b.Dt[i] -= tRev
			} else {
				s.class[i] = classInside
			}
		}
	})
	s.kick(turn, s.class, classInside)
	s.drift(turn+1, s.class, classInside)

	left := false
	for i := range s.class {
		if s.class[i] == classInside && b.Dt[i] < 0 {
			s.class[i] = classRight + 1
			b.Dt[i] += tRev
			left = true
		}
	}
	if left {
		s.kick(turn, s.class, classRight+1)
		s.drift(turn+1, s.class, classRight+1)
	}
}

// kick applies the RF voltage of every system and the acceleration kick.
// With a class mask only particles of the given class are kicked.
func (s *Section) kick(turn int, mask []int8, class int8) {
	p := s.RF
	b := s.Beam
	n := p.Systems
	volt := make([]float64, n)
	omega := make([]float64, n)
	phi := make([]float64, n)
	for j := 0; j < n; j++ {
		volt[j] = p.Charge * p.Voltage[j][turn]
		omega[j] = p.OmegaRF[j][turn]
		phi[j] = p.PhiRF[j][turn]
	}
	acc := 0.0
	if turn < len(p.EIncrement) {
		acc = -p.EIncrement[turn]
	}
	sin := s.sin

	dynamo.ParallelFor(b.Len(), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			if b.ID[i] == 0 || (mask != nil && mask[i] != class) {
				continue
			}
			de := acc
			for j := 0; j < n; j++ {
				de += volt[j] * sin(omega[j]*b.Dt[i]+phi[j])
			}
			b.DE[i] += de
		}
	})
}

// drift moves the particle times using the ring parameters of the given
// turn.
func (s *Section) drift(turn int, mask []int8, class int8) {
	p := s.RF
	b := s.Beam
	t := p.Ring.TRev[turn] * p.LengthRatio
	beta, energy := p.Beta[turn], p.Energy[turn]
	coeff := 1 / (beta * beta * energy)
	order := p.AlphaOrder

	var step func(dE float64) float64
	if s.solver == Simple {
		k := t * p.Eta0[turn] * coeff
		step = func(dE float64) float64 { return k * dE }
	} else {
		e0 := p.Eta0[turn] * coeff
		e1 := p.Eta1[turn] * coeff * coeff
		e2 := p.Eta2[turn] * coeff * coeff * coeff
		step = func(dE float64) float64 {
			den := 1 - e0*dE
			if order > 1 {
				den -= e1 * dE * dE
			}
			if order > 2 {
				den -= e2 * dE * dE * dE
			}
			return t * (1/den - 1)
		}
	}

	dynamo.ParallelFor(b.Len(), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			if b.ID[i] == 0 || (mask != nil && mask[i] != class) {
				continue
			}
			b.Dt[i] += step(b.DE[i])
		}
	})
}

func (s *Section) cutEnergy() {
	b := s.Beam
	lost := 0
	for i := range b.DE {
		if b.ID[i] != 0 && b.DE[i] < -s.dEMax {
			b.ID[i] = 0
			lost++
		}
	}
	if lost > 0 {
		s.logger.Printf("tracker: %d particles below -dE_max at turn %d", lost, s.RF.Counter)
	}
}
