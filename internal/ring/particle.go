package ring

import (
	"fmt"
	"strings"

	"github.com/san-kum/longsim/internal/dynamo"
)

// Physical constants in SI units.
const (
	SpeedOfLight     = 299792458.0
	ElementaryCharge = 1.6021766208e-19
	ProtonMassKg     = 1.672621898e-27
	ElectronMassKg   = 9.10938356e-31
)

// Particle describes the tracked species. Mass is in eV/c², charge in units of e.
type Particle struct {
	Name   string
	Mass   float64
	Charge float64
}

// MassEV converts a rest mass in kg to eV/c².
func MassEV(kg float64) float64 {
	return kg * SpeedOfLight * SpeedOfLight / ElementaryCharge
}

func Proton() Particle {
	return Particle{Name: "proton", Mass: MassEV(ProtonMassKg), Charge: 1}
}

func Electron() Particle {
	return Particle{Name: "electron", Mass: MassEV(ElectronMassKg), Charge: -1}
}

// NewParticle resolves a particle by name. "user_input" takes the given mass
// (eV/c²) and charge.
func NewParticle(name string, mass, charge float64) (Particle, error) {
	switch strings.ToLower(name) {
	case "proton":
		return Proton(), nil
	case "electron":
		return Electron(), nil
	case "user_input", "user":
		if mass <= 0 || charge == 0 {
			return Particle{}, fmt.Errorf("user particle needs positive mass and nonzero charge: %w", dynamo.ErrInvalidParameter)
		}
		return Particle{Name: "user_input", Mass: mass, Charge: charge}, nil
	default:
		return Particle{}, fmt.Errorf("%q: %w", name, dynamo.ErrParticleType)
	}
}
