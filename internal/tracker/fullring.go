package tracker

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/dynamo"
)

// FullRing tracks a sequence of sections making up the whole ring.
type FullRing struct {
	Sections      []*Section
	Circumference float64
	Radius        float64
}

func NewFullRing(sections ...*Section) (*FullRing, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("full ring without sections: %w", dynamo.ErrInvalidParameter)
	}
	fr := &FullRing{Sections: sections}
	for _, s := range sections {
		fr.Circumference += s.RF.SectionLength
	}
	fr.Radius = fr.Circumference / (2 * math.Pi)
	return fr, nil
}

func (fr *FullRing) Name() string { return "full_ring" }

// Track runs every section in order.
func (fr *FullRing) Track() error {
	for i, s := range fr.Sections {
		if err := s.Track(); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
	}
	return nil
}

// WellReference selects the RF frequency spanning the potential well.
type WellReference int

const (
	// LowestFrequency uses the lowest RF frequency of all systems.
	LowestFrequency WellReference = iota
	// HighestVoltage uses the lowest frequency among the systems with the
	// highest voltage.
	HighestVoltage
	// ExplicitFrequency uses WellParams.Omega, which must match a system.
	ExplicitFrequency
)

// WellParams configures PotentialWell. Points defaults to 100000.
type WellParams struct {
	Points    int
	Reference WellReference
	Omega     float64
	// MarginPercent widens the time span on both sides, as a fraction of
	// one RF period.
	MarginPercent float64
}

// Well is the total RF voltage and the potential well on a time grid.
type Well struct {
	Time      []float64
	Voltage   []float64
	Potential []float64
}

// PotentialWell sums the voltage of every system of every section over one
// period of the reference RF frequency and integrates it into a potential
// whose minimum is zero.
func (fr *FullRing) PotentialWell(turn int, p WellParams) (Well, error) {
	if p.Points == 0 {
		p.Points = 100000
	}
	if p.Points < 2 {
		return Well{}, fmt.Errorf("potential well of %d points: %w", p.Points, dynamo.ErrInvalidParameter)
	}
	first := fr.Sections[0].RF
	if turn < 0 || turn > first.Turns {
		return Well{}, fmt.Errorf("turn %d of %d: %w", turn, first.Turns, dynamo.ErrInvalidParameter)
	}

	var volt, omega, phi []float64
	for _, s := range fr.Sections {
		for j := 0; j < s.RF.Systems; j++ {
			volt = append(volt, s.RF.Voltage[j][turn])
			omega = append(omega, s.RF.OmegaRF[j][turn])
			phi = append(phi, s.RF.PhiRF[j][turn])
		}
	}

	var main float64
	switch p.Reference {
	case LowestFrequency:
		main = math.Inf(1)
		for _, o := range omega {
			main = math.Min(main, o)
		}
	case HighestVoltage:
		maxV := math.Inf(-1)
		for _, v := range volt {
			maxV = math.Max(maxV, v)
		}
		main = math.Inf(1)
		for j, v := range volt {
			if v == maxV {
				main = math.Min(main, omega[j])
			}
		}
	case ExplicitFrequency:
		found := false
		for _, o := range omega {
			if o == p.Omega {
				found = true
			}
		}
		if !found {
			return Well{}, fmt.Errorf("frequency %g matches no RF system: %w", p.Omega, dynamo.ErrInvalidParameter)
		}
		main = p.Omega
	default:
		return Well{}, fmt.Errorf("well reference %d: %w", p.Reference, dynamo.ErrInvalidParameter)
	}

	margin := p.MarginPercent * 2 * math.Pi / main
	t := analysis.Linspace(-margin/2, 2*math.Pi/main+margin/2, p.Points)
	total := make([]float64, len(t))
	dynamo.ParallelFor(len(t), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			sum := 0.0
			for j := range volt {
				sum += volt[j] * math.Sin(omega[j]*t[i]+phi[j])
			}
			total[i] = sum
		}
	})

	charge := first.Charge
	factor := sign(first.Eta0[turn]) * charge / first.Ring.TRev[turn]
	acc := 0.0
	if turn < len(first.EIncrement) {
		acc = first.EIncrement[turn]
	}
	integrand := make([]float64, len(total))
	for i, v := range total {
		integrand[i] = factor * (v - acc/math.Abs(charge))
	}
	cum := analysis.CumTrapz(integrand, t[1]-t[0])
	low := 0.0
	for i := range cum {
		cum[i] = -cum[i]
		low = math.Min(low, cum[i])
	}
	well := make([]float64, len(cum)+1)
	well[0] = -low
	for i, v := range cum {
		well[i+1] = v - low
	}
	return Well{Time: t, Voltage: total, Potential: well}, nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
