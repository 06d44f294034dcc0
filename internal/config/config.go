package config

import (
	"fmt"
	"os"

	"github.com/san-kum/longsim/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTurns         = 2000
	DefaultParticles     = 10000
	DefaultIntensity     = 1e9
	DefaultSlices        = 100
	DefaultSigmaDt       = 1e-10
	DefaultSnapshotEvery = 1
	DefaultProfileEvery  = 100
)

type Config struct {
	Name      string          `yaml:"name"`
	Turns     int             `yaml:"turns"`
	Seed      int64           `yaml:"seed"`
	Ring      RingConfig      `yaml:"ring"`
	RF        []RFConfig      `yaml:"rf"`
	Beam      BeamConfig      `yaml:"beam"`
	Slices    SliceConfig     `yaml:"slices"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Impedance ImpedanceConfig `yaml:"impedance"`
	Loop      LoopConfig      `yaml:"loop"`
	Noise     NoiseConfig     `yaml:"noise"`
	Output    OutputConfig    `yaml:"output"`
}

// RingConfig describes the machine. SectionLengths sum to the circumference;
// Alpha holds alpha_0..alpha_2 shared by all sections, or is derived from
// GammaT when empty.
type RingConfig struct {
	Particle       string    `yaml:"particle"`
	Mass           float64   `yaml:"mass,omitempty"`
	Charge         float64   `yaml:"charge,omitempty"`
	SectionLengths []float64 `yaml:"section_lengths"`
	GammaT         float64   `yaml:"gamma_t,omitempty"`
	Alpha          []float64 `yaml:"alpha,omitempty"`
	// Synchronous selects the ramp quantity: momentum, total_energy,
	// kinetic_energy or bending_field.
	Synchronous   string  `yaml:"synchronous"`
	Start         float64 `yaml:"start"`
	End           float64 `yaml:"end"`
	BendingRadius float64 `yaml:"bending_radius,omitempty"`
}

// RFConfig holds the RF systems of one section.
type RFConfig struct {
	Systems []RFSystem `yaml:"systems"`
}

type RFSystem struct {
	Harmonic float64 `yaml:"harmonic"`
	Voltage  float64 `yaml:"voltage"`
	// VoltageEnd ramps the voltage linearly when nonzero.
	VoltageEnd float64 `yaml:"voltage_end,omitempty"`
	Phi        float64 `yaml:"phi"`
}

type BeamConfig struct {
	Particles    int     `yaml:"particles"`
	Intensity    float64 `yaml:"intensity"`
	Distribution string  `yaml:"distribution"`
	SigmaDt      float64 `yaml:"sigma_dt"`
	SigmaDE      float64 `yaml:"sigma_de"`
}

type SliceConfig struct {
	Count     int     `yaml:"count"`
	CutLeft   float64 `yaml:"cut_left"`
	CutRight  float64 `yaml:"cut_right"`
	NSigma    float64 `yaml:"n_sigma,omitempty"`
	Units     string  `yaml:"units"`
	Mode      string  `yaml:"mode"`
	Fit       string  `yaml:"fit"`
	TrackCuts bool    `yaml:"track_cuts"`
}

type TrackerConfig struct {
	Solver      string  `yaml:"solver"`
	Periodicity bool    `yaml:"periodicity"`
	DEMax       float64 `yaml:"de_max,omitempty"`
	FastSin     bool    `yaml:"fast_sin"`
	// SeparatrixLoss marks particles outside the separatrix as lost every
	// turn.
	SeparatrixLoss bool `yaml:"separatrix_loss"`
}

type ResonatorConfig struct {
	R  float64 `yaml:"r"`
	Fr float64 `yaml:"fr"`
	Q  float64 `yaml:"q"`
}

type TWCConfig struct {
	R  float64 `yaml:"r"`
	Fr float64 `yaml:"fr"`
	A  float64 `yaml:"a"`
}

// ImpedanceConfig lists the wake sources. Domain is time or frequency.
// The top level sources form one engine; Engines adds more, each with its
// own domain, and the induced voltage is the sum over all of them.
type ImpedanceConfig struct {
	Resonators     []ResonatorConfig `yaml:"resonators,omitempty"`
	TravelingWave  []TWCConfig       `yaml:"traveling_wave,omitempty"`
	WakeTable      string            `yaml:"wake_table,omitempty"`
	ImpedanceTable string            `yaml:"impedance_table,omitempty"`
	Domain         string            `yaml:"domain"`
	FreqResolution float64           `yaml:"freq_resolution,omitempty"`
	Engines        []EngineConfig    `yaml:"engines,omitempty"`
	TurnsMemory    int               `yaml:"turns_memory,omitempty"`
	// Music replaces the sliced engines by the exact single resonator
	// voltage of the first resonator.
	Music bool `yaml:"music"`
}

// EngineConfig is one induced voltage engine and its sources.
type EngineConfig struct {
	Resonators     []ResonatorConfig `yaml:"resonators,omitempty"`
	TravelingWave  []TWCConfig       `yaml:"traveling_wave,omitempty"`
	WakeTable      string            `yaml:"wake_table,omitempty"`
	ImpedanceTable string            `yaml:"impedance_table,omitempty"`
	Domain         string            `yaml:"domain"`
	FreqResolution float64           `yaml:"freq_resolution,omitempty"`
}

func (e EngineConfig) hasSources() bool {
	return len(e.Resonators) > 0 || len(e.TravelingWave) > 0 || e.WakeTable != "" || e.ImpedanceTable != ""
}

// EngineConfigs returns the top level engine, when it has sources, followed
// by Engines.
func (c ImpedanceConfig) EngineConfigs() []EngineConfig {
	var out []EngineConfig
	top := EngineConfig{
		Resonators:     c.Resonators,
		TravelingWave:  c.TravelingWave,
		WakeTable:      c.WakeTable,
		ImpedanceTable: c.ImpedanceTable,
		Domain:         c.Domain,
		FreqResolution: c.FreqResolution,
	}
	if top.hasSources() {
		out = append(out, top)
	}
	return append(out, c.Engines...)
}

// FirstResonator returns the first resonator of the top level sources or,
// failing that, of the first engine that has one.
func (c *ImpedanceConfig) FirstResonator() *ResonatorConfig {
	if len(c.Resonators) > 0 {
		return &c.Resonators[0]
	}
	for i := range c.Engines {
		if len(c.Engines[i].Resonators) > 0 {
			return &c.Engines[i].Resonators[0]
		}
	}
	return nil
}

// Enabled reports whether any source is configured.
func (c ImpedanceConfig) Enabled() bool {
	for _, e := range c.EngineConfigs() {
		if e.hasSources() {
			return true
		}
	}
	return false
}

// LoopConfig selects a phase loop: none, lhc, lhc_f, sps_radial or psb.
type LoopConfig struct {
	Type              string    `yaml:"type"`
	Gain              []float64 `yaml:"gain,omitempty"`
	SecondGain        float64   `yaml:"second_gain,omitempty"`
	WindowCoefficient float64   `yaml:"window_coefficient,omitempty"`
	Delay             int       `yaml:"delay,omitempty"`
	Reference         float64   `yaml:"reference,omitempty"`
	RadialGain        []float64 `yaml:"radial_gain,omitempty"`
	Period            float64   `yaml:"period,omitempty"`
	RadialPeriod      int       `yaml:"radial_period,omitempty"`
}

// NoiseConfig adds Gaussian RF phase noise of rms Amplitude (rad) to the
// first system, optionally scaled by the bunch length feedback.
type NoiseConfig struct {
	Amplitude   float64 `yaml:"amplitude"`
	Feedback    bool    `yaml:"feedback"`
	BunchLength float64 `yaml:"bunch_length,omitempty"`
	Gain        float64 `yaml:"gain,omitempty"`
	Factor      float64 `yaml:"factor,omitempty"`
	UpdateEvery int     `yaml:"update_every,omitempty"`
}

type OutputConfig struct {
	SnapshotEvery int  `yaml:"snapshot_every"`
	ProfileEvery  int  `yaml:"profile_every"`
	Validate      bool `yaml:"validate"`
}

// DefaultConfig is the LHC at 450 GeV with a single 6 MV RF system.
func DefaultConfig() *Config {
	return &Config{
		Name:  "lhc_flat_bottom",
		Turns: DefaultTurns,
		Ring: RingConfig{
			Particle:       "proton",
			SectionLengths: []float64{26658.883},
			GammaT:         55.759505,
			Synchronous:    "momentum",
			Start:          450e9,
			End:            450e9,
		},
		RF: []RFConfig{{Systems: []RFSystem{{Harmonic: 35640, Voltage: 6e6}}}},
		Beam: BeamConfig{
			Particles:    DefaultParticles,
			Intensity:    DefaultIntensity,
			Distribution: "bigaussian",
			SigmaDt:      DefaultSigmaDt,
		},
		Slices: SliceConfig{
			Count: DefaultSlices,
			Units: "s",
			Mode:  "hard",
			Fit:   "fwhm",
		},
		Tracker: TrackerConfig{Solver: "simple"},
		Impedance: ImpedanceConfig{
			Domain: "time",
		},
		Loop: LoopConfig{Type: "none"},
		Output: OutputConfig{
			SnapshotEvery: DefaultSnapshotEvery,
			ProfileEvery:  DefaultProfileEvery,
			Validate:      true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what can be checked before building the machine.
func (c *Config) Validate() error {
	switch {
	case c.Turns < 1:
		return fmt.Errorf("turns = %d: %w", c.Turns, dynamo.ErrInvalidParameter)
	case len(c.Ring.SectionLengths) == 0:
		return fmt.Errorf("no ring sections: %w", dynamo.ErrInvalidParameter)
	case len(c.RF) != len(c.Ring.SectionLengths):
		return fmt.Errorf("%d rf sections for %d ring sections: %w", len(c.RF), len(c.Ring.SectionLengths), dynamo.ErrSectionMismatch)
	case c.Ring.GammaT <= 0 && len(c.Ring.Alpha) == 0:
		return fmt.Errorf("ring needs gamma_t or alpha: %w", dynamo.ErrInvalidParameter)
	case c.Beam.Particles < 1:
		return fmt.Errorf("%d particles: %w", c.Beam.Particles, dynamo.ErrInvalidParameter)
	}
	for i, r := range c.RF {
		if len(r.Systems) == 0 {
			return fmt.Errorf("rf section %d has no systems: %w", i, dynamo.ErrInvalidParameter)
		}
	}
	return nil
}

// SimConfig returns the driver settings.
func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		Turns:         c.Turns,
		Seed:          c.Seed,
		ValidateState: c.Output.Validate,
		SnapshotEvery: c.Output.SnapshotEvery,
		ProfileEvery:  c.Output.ProfileEvery,
	}
}
