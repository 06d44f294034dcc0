package control

import (
	"math"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/slices"
)

// LHC is the LHC phase loop with an optional synchro loop of gain
// SynchroGain removing long term frequency drifts:
//
//	Δω = −g·Δφ − g₂·(y + a·(Δφ_rf + ref))
//	y ← (1 − τ)·y + (1 − a)·τ·(Δφ_rf + ref)
//
// with a = 5.25 − ω_s0/(40π) and τ = 2πQs·√a / √(1 + g/g₂·√((1 + 1/a)/(1 + a))).
type LHC struct {
	*PhaseLoop
	SynchroGain float64

	y   float64
	a   []float64
	tau []float64
}

func NewLHC(r *rf.Program, s *slices.Slicer, p Params, synchroGain float64) (*LHC, error) {
	pl, err := newPhaseLoop(r, s, p)
	if err != nil {
		return nil, err
	}
	l := &LHC{PhaseLoop: pl, SynchroGain: synchroGain}
	l.coefficients()
	return l, nil
}

func (l *LHC) coefficients() {
	n := l.RF.Turns + 1
	l.a = make([]float64, n)
	l.tau = make([]float64, n)
	if l.SynchroGain == 0 {
		return
	}
	for i := 0; i < n; i++ {
		a := 5.25 - l.RF.OmegaS0[i]/(math.Pi*40)
		l.a[i] = a
		l.tau[i] = 2 * math.Pi * l.RF.Qs[i] * math.Sqrt(a) /
			math.Sqrt(1+l.gain[i]/l.SynchroGain*math.Sqrt((1+1/a)/(1+a)))
	}
}

func (l *LHC) Name() string { return "lhc" }

// Y returns the synchro loop recursion variable.
func (l *LHC) Y() float64 { return l.y }

func (l *LHC) Track() error {
	if !l.Active() {
		return nil
	}
	c := l.RF.Counter
	dphiRF := l.RF.DphiRF[0]
	l.BeamPhase()
	l.PhaseDifference()

	l.DomegaRF = -l.gain[c]*l.Dphi - l.SynchroGain*(l.y+l.a[c]*(dphiRF+l.reference))
	l.y = (1-l.tau[c])*l.y + (1-l.a[c])*l.tau[c]*(dphiRF+l.reference)
	l.apply()
	return nil
}

func (l *LHC) GetParams() map[string]float64 {
	m := l.PhaseLoop.GetParams()
	m["synchro_gain"] = l.SynchroGain
	return m
}

func (l *LHC) SetParam(name string, value float64) {
	if name == "synchro_gain" {
		l.SynchroGain = value
		l.coefficients()
		return
	}
	l.PhaseLoop.SetParam(name, value)
	if name == "gain" {
		l.coefficients()
	}
}

// LHCF combines the phase loop with a frequency loop of gain
// FrequencyGain pulling the RF frequency back to its design value:
//
//	Δω = −g·Δφ − g_f·(ω_rf − ω_rf,d + ref)
type LHCF struct {
	*PhaseLoop
	FrequencyGain float64
}

func NewLHCF(r *rf.Program, s *slices.Slicer, p Params, frequencyGain float64) (*LHCF, error) {
	pl, err := newPhaseLoop(r, s, p)
	if err != nil {
		return nil, err
	}
	return &LHCF{PhaseLoop: pl, FrequencyGain: frequencyGain}, nil
}

func (l *LHCF) Name() string { return "lhc_f" }

func (l *LHCF) Track() error {
	if !l.Active() {
		return nil
	}
	c := l.RF.Counter
	l.BeamPhase()
	l.PhaseDifference()
	df := l.RF.OmegaRF[0][c] - l.RF.OmegaRFd[0][c]
	l.DomegaRF = -l.gain[c]*l.Dphi - l.FrequencyGain*(df+l.reference)
	l.apply()
	return nil
}

// SPSRadial is the SPS phase loop with a radial loop of gain RadialGain
// steering the mean orbit offset towards Reference (in m):
//
//	Δω = −g·Δφ − sign(η0)·g_r·(ref − Δρ)/R
//
// The orbit offset Δρ = α0·R·⟨dE⟩/(β²E) is averaged over the particles
// inside the slicing window.
type SPSRadial struct {
	*PhaseLoop
	RadialGain float64
	Drho       float64

	beam *beam.Ensemble
}

func NewSPSRadial(r *rf.Program, s *slices.Slicer, p Params, radialGain float64) (*SPSRadial, error) {
	pl, err := newPhaseLoop(r, s, p)
	if err != nil {
		return nil, err
	}
	return &SPSRadial{PhaseLoop: pl, RadialGain: radialGain, beam: s.Beam()}, nil
}

func (l *SPSRadial) Name() string { return "sps_radial" }

// RadialDifference updates Drho from the current particles.
func (l *SPSRadial) RadialDifference() float64 {
	c := l.RF.Counter
	centers := l.Slicer.Centers
	lo, hi := centers[0], centers[len(centers)-1]
	sum, n := 0.0, 0
	for i, t := range l.beam.Dt {
		if l.beam.ID[i] != 0 && t > lo && t < hi {
			sum += l.beam.DE[i]
			n++
		}
	}
	if n == 0 {
		l.Drho = 0
		return 0
	}
	r := l.RF.Ring
	alpha0 := r.Alpha[l.RF.Section][0]
	l.Drho = alpha0 * r.Radius * (sum / float64(n)) / (l.RF.Beta[c] * l.RF.Beta[c] * l.RF.Energy[c])
	return l.Drho
}

func (l *SPSRadial) Track() error {
	if !l.Active() {
		return nil
	}
	c := l.RF.Counter
	l.BeamPhase()
	l.PhaseDifference()
	l.RadialDifference()
	sgn := 1.0
	if l.RF.Eta0[c] < 0 {
		sgn = -1
	}
	l.DomegaRF = -l.gain[c]*l.Dphi - sgn*l.RadialGain*(l.reference-l.Drho)/l.RF.Ring.Radius
	l.apply()
	return nil
}
