package ring

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Synchronous data kinds accepted by MomentumFrom.
const (
	KindMomentum      = "momentum"
	KindTotalEnergy   = "total_energy"
	KindKineticEnergy = "kinetic_energy"
	KindBendingField  = "bending_field"
)

// LinearRamp returns turns+1 values going linearly from start to end.
func LinearRamp(start, end float64, turns int) []float64 {
	out := make([]float64, turns+1)
	if turns == 0 {
		out[0] = start
		return out
	}
	return floats.Span(out, start, end)
}

// MomentumFrom converts synchronous data to momentum in eV/c. Bending field
// values are in tesla and need the bending radius in metres.
func MomentumFrom(kind string, values []float64, p Particle, bendingRadius float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		switch kind {
		case KindMomentum, "":
			out[i] = v
		case KindTotalEnergy:
			out[i] = math.Sqrt(v*v - p.Mass*p.Mass)
		case KindKineticEnergy:
			e := v + p.Mass
			out[i] = math.Sqrt(e*e - p.Mass*p.Mass)
		case KindBendingField:
			if bendingRadius <= 0 {
				return nil, fmt.Errorf("bending radius %g: %w", bendingRadius, dynamo.ErrInvalidParameter)
			}
			out[i] = v * bendingRadius * SpeedOfLight * math.Abs(p.Charge)
		default:
			return nil, fmt.Errorf("synchronous data kind %q: %w", kind, dynamo.ErrInvalidParameter)
		}
		if math.IsNaN(out[i]) || out[i] <= 0 {
			return nil, fmt.Errorf("%s value %g gives momentum %g: %w", kind, v, out[i], dynamo.ErrMomentum)
		}
	}
	return out, nil
}
