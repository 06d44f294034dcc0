package control

import (
	"fmt"

	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/slices"
)

// ScheduleState is the phase of the PSB loop between two firings.
type ScheduleState int

const (
	// Accumulating sums the phase error until the next firing turn.
	Accumulating ScheduleState = iota
	// FirePending marks a turn on the schedule: the averaged error is fed to
	// the filter on this turn.
	FirePending
	// Exhausted means every scheduled firing is done; the last correction
	// is held.
	Exhausted
)

func (s ScheduleState) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case FirePending:
		return "fire-pending"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("ScheduleState(%d)", int(s))
}

// PSBParams configures the PSB loop on top of Params.
type PSBParams struct {
	Params
	// RadialGain holds the proportional and integral radial loop gains.
	RadialGain [2]float64
	// Period is the phase loop sampling period in seconds, 10 µs if zero.
	Period float64
	// RadialPeriod is the number of phase loop firings per radial loop
	// update, 7 if zero.
	RadialPeriod int
	// A and B are the numerator and denominator of the phase loop filter
	// acting on the averaged phase error x:
	//
	//	b0·y[n] = −g·(a0·x[n] + a1·x[n−1] + a2·x[n−2] + ref) − b1·y[n−1] − b2·y[n−2]
	//
	// with g the gain of the firing turn. Defaults are (1, −1, 0) and
	// (1, −0.998, 0), i.e. y[n] = 0.998·y[n−1] − g·(x[n] − x[n−1] + ref).
	A, B [3]float64
}

// PSB is the PS Booster phase loop. It samples the phase error on turns
// spaced by Period, filters the average through a second order section and
// adds a radial loop correction every RadialPeriod firings.
type PSB struct {
	*PhaseLoop

	Schedule []int
	DomegaPL float64
	DomegaRL float64
	Drho     float64

	state        ScheduleState
	next         int
	firings      int
	radialGain   [2]float64
	radialPeriod int
	a, b         [3]float64

	dphiSum   float64
	dphiTurns int
	tAccum    float64
	x         [3]float64
	y         [3]float64
	drhoPrev  float64
}

func NewPSB(r *rf.Program, s *slices.Slicer, p PSBParams) (*PSB, error) {
	pl, err := newPhaseLoop(r, s, p.Params)
	if err != nil {
		return nil, err
	}
	if p.Period == 0 {
		p.Period = 10e-6
	}
	if p.RadialPeriod == 0 {
		p.RadialPeriod = 7
	}
	if p.Period < 0 || p.RadialPeriod < 0 {
		return nil, fmt.Errorf("period %g, radial period %d: %w", p.Period, p.RadialPeriod, dynamo.ErrInvalidParameter)
	}
	if p.A == ([3]float64{}) && p.B == ([3]float64{}) {
		p.A = [3]float64{1, -1, 0}
		p.B = [3]float64{1, -0.998, 0}
	}
	if p.B[0] == 0 {
		return nil, fmt.Errorf("filter denominator b0 = 0: %w", dynamo.ErrInvalidParameter)
	}
	l := &PSB{
		PhaseLoop:    pl,
		radialGain:   p.RadialGain,
		radialPeriod: p.RadialPeriod,
		a:            p.A,
		b:            p.B,
	}
	l.Schedule = FiringTurns(r.Ring.TRev, p.Delay, p.Period)
	if len(l.Schedule) == 0 {
		l.state = Exhausted
	}
	return l, nil
}

// FiringTurns lists the turns on which a loop sampled every period seconds
// acts, starting after delay. A final partial period is not scheduled.
func FiringTurns(tRev []float64, delay int, period float64) []int {
	var out []int
	n := delay + 1
	for n < len(tRev) {
		sum := 0.0
		for sum < period {
			if n >= len(tRev) {
				return out
			}
			sum += tRev[n]
			n++
		}
		out = append(out, n-1)
	}
	return out
}

func (l *PSB) Name() string { return "psb" }

// ScheduleState returns the state after the last Track.
func (l *PSB) ScheduleState() ScheduleState { return l.state }

// Firings counts the phase loop updates so far.
func (l *PSB) Firings() int { return l.firings }

func (l *PSB) Track() error {
	if !l.Active() {
		return nil
	}
	c := l.RF.Counter
	l.BeamPhase()
	l.PhaseDifference()

	if l.state != Exhausted {
		l.dphiSum += l.Dphi
		l.dphiTurns++
		l.tAccum += l.RF.Ring.TRev[c]
		l.state = Accumulating
		if l.Schedule[l.next] == c {
			l.state = FirePending
		}
	}

	if l.state == FirePending {
		l.fire(c)
		l.next++
		if l.next >= len(l.Schedule) {
			l.state = Exhausted
		} else {
			l.state = Accumulating
		}
	}

	l.DomegaRF = l.DomegaPL + l.DomegaRL
	l.apply()
	return nil
}

func (l *PSB) fire(c int) {
	avg := l.dphiSum / float64(l.dphiTurns)
	l.dphiSum, l.dphiTurns = 0, 0

	l.x[2], l.x[1] = l.x[1], l.x[0]
	l.x[0] = avg
	l.y[2], l.y[1] = l.y[1], l.y[0]
	in := l.a[0]*l.x[0] + l.a[1]*l.x[1] + l.a[2]*l.x[2] + l.reference
	l.y[0] = (-l.gain[c]*in - l.b[1]*l.y[1] - l.b[2]*l.y[2]) / l.b[0]
	l.DomegaPL = l.y[0]
	l.firings++

	if l.radialPeriod > 0 && l.firings%l.radialPeriod == 0 {
		l.radial(c)
	}
}

// radial updates the radial loop from the relative orbit offset implied
// by the RF frequency error.
func (l *PSB) radial(c int) {
	p := l.RF
	r := p.Ring
	gamma := r.Gamma[p.Section][c]
	alpha0 := r.Alpha[p.Section][0]
	d := p.OmegaRFd[0][c]
	l.Drho = (p.OmegaRF[0][c]-d)/(d*(1/(alpha0*gamma*gamma)-1)) + l.reference
	l.DomegaRL += -l.radialGain[0]*(l.Drho-l.drhoPrev) - l.radialGain[1]*l.Drho*l.tAccum
	l.drhoPrev = l.Drho
	l.tAccum = 0
}
