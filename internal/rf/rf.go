package rf

import (
	"fmt"
	"log"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/ring"
)

// Params describes the RF systems of one ring section. Each table is indexed
// [system][turn] and holds either one value or Turns+1 values.
type Params struct {
	Section   int
	Harmonic  [][]float64
	Voltage   [][]float64
	PhiOffset [][]float64
	// OmegaRF overrides the design RF angular frequency 2π·β·c·h/C.
	OmegaRF [][]float64
	// PhiNoise is added to PhiRF every turn, before the phase loop runs.
	PhiNoise [][]float64
	Logger   *log.Logger
}

// Program holds the per-turn RF waveform of one section. Counter, OmegaRF,
// PhiRF and DphiRF are the only fields that change after New.
type Program struct {
	Ring          *ring.Program
	Section       int
	Systems       int
	Turns         int
	SectionLength float64
	LengthRatio   float64
	Charge        float64
	AlphaOrder    int

	// [system][turn]
	Harmonic  [][]float64
	Voltage   [][]float64
	PhiOffset [][]float64
	OmegaRFd  [][]float64
	OmegaRF   [][]float64
	PhiRF     [][]float64
	TRF       [][]float64
	PhiNoise  [][]float64

	// [system]
	DphiRF []float64

	// [turn]
	PhiS       []float64
	Qs         []float64
	OmegaS0    []float64
	EIncrement []float64

	// section views into the ring program, [turn]
	Beta     []float64
	Energy   []float64
	Momentum []float64
	Eta0     []float64
	Eta1     []float64
	Eta2     []float64

	Counter int

	logger *log.Logger
}

// New builds the RF program of a ring section.
func New(r *ring.Program, p Params) (*Program, error) {
	if p.Section < 0 || p.Section >= r.Sections {
		return nil, fmt.Errorf("section %d of %d: %w", p.Section, r.Sections, dynamo.ErrSectionMismatch)
	}
	systems := len(p.Harmonic)
	if systems == 0 {
		return nil, fmt.Errorf("no RF systems: %w", dynamo.ErrInvalidParameter)
	}
	if len(p.Voltage) != systems {
		return nil, fmt.Errorf("%d harmonic rows, %d voltage rows: %w", systems, len(p.Voltage), dynamo.ErrSectionMismatch)
	}
	if p.PhiOffset != nil && len(p.PhiOffset) != systems {
		return nil, fmt.Errorf("%d harmonic rows, %d phase rows: %w", systems, len(p.PhiOffset), dynamo.ErrSectionMismatch)
	}

	n := r.Turns + 1
	s := p.Section
	rp := &Program{
		Ring:          r,
		Section:       s,
		Systems:       systems,
		Turns:         r.Turns,
		SectionLength: r.SectionLength[s],
		LengthRatio:   r.SectionLength[s] / r.Circumference,
		Charge:        r.Particle.Charge,
		AlphaOrder:    r.AlphaOrder,
		Harmonic:      make([][]float64, systems),
		Voltage:       make([][]float64, systems),
		PhiOffset:     make([][]float64, systems),
		OmegaRFd:      make([][]float64, systems),
		OmegaRF:       make([][]float64, systems),
		PhiRF:         make([][]float64, systems),
		TRF:           make([][]float64, systems),
		DphiRF:        make([]float64, systems),
		Beta:          r.Beta[s],
		Energy:        r.Energy[s],
		Momentum:      r.Momentum[s],
		Eta0:          r.Eta0[s],
		Eta1:          r.Eta1[s],
		Eta2:          r.Eta2[s],
		logger:        p.Logger,
	}
	if rp.logger == nil {
		rp.logger = log.Default()
	}

	var err error
	for i := 0; i < systems; i++ {
		if rp.Harmonic[i], err = ring.Expand(p.Harmonic[i], n); err != nil {
			return nil, fmt.Errorf("harmonic of system %d: %w", i, err)
		}
		if rp.Voltage[i], err = ring.Expand(p.Voltage[i], n); err != nil {
			return nil, fmt.Errorf("voltage of system %d: %w", i, err)
		}
		phi := []float64{0}
		if p.PhiOffset != nil {
			phi = p.PhiOffset[i]
		}
		if rp.PhiOffset[i], err = ring.Expand(phi, n); err != nil {
			return nil, fmt.Errorf("phase offset of system %d: %w", i, err)
		}
		for t, h := range rp.Harmonic[i] {
			if h <= 0 {
				return nil, fmt.Errorf("harmonic %g of system %d at turn %d: %w", h, i, t, dynamo.ErrInvalidParameter)
			}
		}

		rp.OmegaRFd[i] = make([]float64, n)
		for t := 0; t < n; t++ {
			rp.OmegaRFd[i][t] = 2 * math.Pi * rp.Beta[t] * ring.SpeedOfLight * rp.Harmonic[i][t] / r.Circumference
		}
		if p.OmegaRF != nil && i < len(p.OmegaRF) && p.OmegaRF[i] != nil {
			if rp.OmegaRF[i], err = ring.Expand(p.OmegaRF[i], n); err != nil {
				return nil, fmt.Errorf("omega_RF of system %d: %w", i, err)
			}
		} else {
			rp.OmegaRF[i] = append([]float64(nil), rp.OmegaRFd[i]...)
		}
		rp.PhiRF[i] = append([]float64(nil), rp.PhiOffset[i]...)
		rp.TRF[i] = make([]float64, n)
		for t := 0; t < n; t++ {
			rp.TRF[i][t] = 2 * math.Pi / rp.OmegaRF[i][t]
		}
	}

	if p.PhiNoise != nil {
		rp.PhiNoise = make([][]float64, systems)
		for i := 0; i < systems && i < len(p.PhiNoise); i++ {
			if rp.PhiNoise[i], err = ring.Expand(p.PhiNoise[i], n); err != nil {
				return nil, fmt.Errorf("phase noise of system %d: %w", i, err)
			}
		}
	}

	rp.EIncrement = make([]float64, r.Turns)
	for t := 0; t < r.Turns; t++ {
		rp.EIncrement[t] = rp.Energy[t+1] - rp.Energy[t]
	}

	rp.PhiS = rp.synchronousPhase()
	rp.Qs = make([]float64, n)
	rp.OmegaS0 = make([]float64, n)
	for t := 0; t < n; t++ {
		rp.Qs[t] = math.Sqrt(rp.Harmonic[0][t] * math.Abs(rp.Charge) * rp.Voltage[0][t] *
			math.Abs(rp.Eta0[t]*math.Cos(rp.PhiS[t])) /
			(2 * math.Pi * rp.Beta[t] * rp.Beta[t] * rp.Energy[t]))
		rp.OmegaS0[t] = rp.Qs[t] * r.OmegaRev[t]
	}

	return rp, nil
}

// synchronousPhase derives phi_s from the energy gain per turn, treating all
// systems as one with the voltage of the first. Ratios outside [-1, 1] are
// reported and clamped.
func (p *Program) synchronousPhase() []float64 {
	n := p.Turns + 1
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		var de float64
		if len(p.EIncrement) > 0 {
			de = p.EIncrement[min(t, len(p.EIncrement)-1)]
		}
		ratio := 0.0
		if v := p.Charge * p.Voltage[0][t]; v != 0 {
			ratio = de / v
		}
		if ratio > 1 || ratio < -1 {
			p.logger.Printf("rf: acceleration not possible at turn %d (ratio %.3g), clamping", t, ratio)
			ratio = math.Max(-1, math.Min(1, ratio))
		}
		phi := math.Asin(ratio)

		eta := p.Eta0[t]
		if t < p.Turns {
			eta = (p.Eta0[t] + p.Eta0[t+1]) / 2
		}
		if eta > 0 {
			out[t] = math.Pi - phi
		} else {
			out[t] = math.Pi + phi
		}
	}
	return out
}

// Turn returns the current turn index.
func (p *Program) Turn() int { return p.Counter }

// Advance moves the program to the next turn. It is called once per turn by
// the driver after every stage has run.
func (p *Program) Advance() { p.Counter++ }

// ApplyNoise adds scale times the phase noise of the current turn to the RF
// phase of every system that has noise.
func (p *Program) ApplyNoise(scale float64) {
	turn := p.Counter
	for i, noise := range p.PhiNoise {
		if turn < len(noise) {
			p.PhiRF[i][turn] += scale * noise[turn]
		}
	}
}

// AccelerationKick returns the energy change applied to every particle at
// the current turn.
func (p *Program) AccelerationKick() float64 {
	if p.Counter >= len(p.EIncrement) {
		return 0
	}
	return -p.EIncrement[p.Counter]
}

// AboveTransition reports whether eta_0 is positive at the given turn.
func (p *Program) AboveTransition(turn int) bool {
	return p.Eta0[turn] > 0
}

// EtaTracking evaluates the slip factor expansion for an energy offset.
func (p *Program) EtaTracking(turn int, dE float64) float64 {
	if p.AlphaOrder == 1 {
		return p.Eta0[turn]
	}
	delta := dE / (p.Beta[turn] * p.Beta[turn] * p.Energy[turn])
	eta := p.Eta0[turn] + p.Eta1[turn]*delta
	if p.AlphaOrder > 2 {
		eta += p.Eta2[turn] * delta * delta
	}
	return eta
}
