package control

import (
	"fmt"
	"log"
	"math"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/ring"
	"github.com/san-kum/longsim/internal/slices"
)

// Loop is a beam based RF feedback run once per turn, after slicing and
// before tracking. It corrects the RF program of the next turn.
type Loop interface {
	Name() string
	Track() error
	State() State
}

// State is the last measurement and correction of a loop.
type State struct {
	PhiBeam  float64
	Dphi     float64
	DomegaRF float64
}

// Params holds the settings shared by every phase loop.
type Params struct {
	// Gain is the phase loop gain per turn; one value is held constant.
	Gain []float64
	// WindowCoefficient is the exponent of the band-pass window e^{α·t}
	// applied to the profile, in 1/s.
	WindowCoefficient float64
	// Delay is the first turn on which the loop acts.
	Delay int
	// Reference is added to the controlled quantity.
	Reference float64
	Logger    *log.Logger
}

// PhaseLoop measures the beam phase with respect to the main RF system and
// applies a frequency correction to all systems. Machine variants embed it
// and compute DomegaRF.
type PhaseLoop struct {
	RF     *rf.Program
	Slicer *slices.Slicer

	PhiBeam  float64
	Dphi     float64
	DomegaRF float64

	gain      []float64
	alpha     float64
	delay     int
	reference float64
	logger    *log.Logger
}

func newPhaseLoop(r *rf.Program, s *slices.Slicer, p Params) (*PhaseLoop, error) {
	if r == nil || s == nil {
		return nil, fmt.Errorf("phase loop needs an RF program and a slicer: %w", dynamo.ErrInvalidParameter)
	}
	if p.Delay < 0 {
		return nil, fmt.Errorf("delay %d: %w", p.Delay, dynamo.ErrInvalidParameter)
	}
	g := p.Gain
	if len(g) == 0 {
		g = []float64{0}
	}
	gain, err := ring.Expand(g, r.Turns+1)
	if err != nil {
		return nil, fmt.Errorf("gain: %w", err)
	}
	pl := &PhaseLoop{
		RF:        r,
		Slicer:    s,
		gain:      gain,
		alpha:     p.WindowCoefficient,
		delay:     p.Delay,
		reference: p.Reference,
		logger:    p.Logger,
	}
	if pl.logger == nil {
		pl.logger = log.Default()
	}
	return pl, nil
}

// Active reports whether the loop acts on the current turn.
func (pl *PhaseLoop) Active() bool { return pl.RF.Counter >= pl.delay }

// BeamPhase projects the windowed profile on the main RF waveform:
// φ_beam = atan2(S, C) + π, with S and C the sine and cosine integrals,
// folded by ±π into [π/2, 3π/2) where the synchronous phase lies on both
// sides of transition.
func (pl *PhaseLoop) BeamPhase() float64 {
	c := pl.RF.Counter
	omega := pl.RF.OmegaRF[0][c]
	phi := pl.RF.PhiRF[0][c]
	centers := pl.Slicer.Centers
	counts := pl.Slicer.Counts

	sinPart := make([]float64, len(centers))
	cosPart := make([]float64, len(centers))
	for i, t := range centers {
		base := math.Exp(pl.alpha*t) * counts[i]
		a := omega*t + phi
		sinPart[i] = base * math.Sin(a)
		cosPart[i] = base * math.Cos(a)
	}
	sc := analysis.Trapz(centers, sinPart)
	cc := analysis.Trapz(centers, cosPart)
	phi = math.Atan2(sc, cc) + math.Pi
	switch {
	case phi >= 1.5*math.Pi:
		phi -= math.Pi
	case phi < 0.5*math.Pi:
		phi += math.Pi
	}
	pl.PhiBeam = phi
	return phi
}

// PhaseDifference is the beam phase relative to the design synchronous
// phase of the current turn.
func (pl *PhaseLoop) PhaseDifference() float64 {
	pl.Dphi = pl.PhiBeam - pl.RF.PhiS[pl.RF.Counter]
	return pl.Dphi
}

// apply writes DomegaRF into the next turn of every RF system and carries
// the resulting phase slip into phi_RF.
func (pl *PhaseLoop) apply() {
	p := pl.RF
	next := p.Counter + 1
	if next > p.Turns {
		return
	}
	h0 := p.Harmonic[0][next]
	for i := 0; i < p.Systems; i++ {
		p.OmegaRF[i][next] += pl.DomegaRF * p.Harmonic[i][next] / h0
	}
	for i := 0; i < p.Systems; i++ {
		d := p.OmegaRFd[i][next]
		p.DphiRF[i] += 2 * math.Pi * p.Harmonic[i][next] * (p.OmegaRF[i][next] - d) / d
	}
	for i := 0; i < p.Systems; i++ {
		p.PhiRF[i][next] += p.DphiRF[i]
	}
}

func (pl *PhaseLoop) State() State {
	return State{PhiBeam: pl.PhiBeam, Dphi: pl.Dphi, DomegaRF: pl.DomegaRF}
}

// GetParams returns the tunable parameters for live adjustment.
func (pl *PhaseLoop) GetParams() map[string]float64 {
	return map[string]float64{
		"gain":      pl.gain[min(pl.RF.Counter, len(pl.gain)-1)],
		"reference": pl.reference,
		"window":    pl.alpha,
	}
}

// SetParam adjusts a parameter from the current turn on.
func (pl *PhaseLoop) SetParam(name string, value float64) {
	switch name {
	case "gain":
		for i := pl.RF.Counter; i < len(pl.gain); i++ {
			pl.gain[i] = value
		}
	case "reference":
		pl.reference = value
	case "window":
		pl.alpha = value
	}
}
