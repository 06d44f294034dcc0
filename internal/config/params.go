package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/longsim/internal/dynamo"
)

// setters address the scalar settings that sweeps and scans vary.
var setters = map[string]func(c *Config, v float64){
	"rf.voltage":          func(c *Config, v float64) { c.RF[0].Systems[0].Voltage = v },
	"rf.phi":              func(c *Config, v float64) { c.RF[0].Systems[0].Phi = v },
	"beam.intensity":      func(c *Config, v float64) { c.Beam.Intensity = v },
	"beam.sigma_dt":       func(c *Config, v float64) { c.Beam.SigmaDt = v },
	"beam.sigma_de":       func(c *Config, v float64) { c.Beam.SigmaDE = v },
	"loop.gain":           func(c *Config, v float64) { c.Loop.Gain = []float64{v} },
	"loop.second_gain":    func(c *Config, v float64) { c.Loop.SecondGain = v },
	"loop.window":         func(c *Config, v float64) { c.Loop.WindowCoefficient = v },
	"loop.reference":      func(c *Config, v float64) { c.Loop.Reference = v },
	"noise.amplitude":     func(c *Config, v float64) { c.Noise.Amplitude = v },
	"noise.gain":          func(c *Config, v float64) { c.Noise.Gain = v },
	"noise.bunch_length":  func(c *Config, v float64) { c.Noise.BunchLength = v },
	"ring.gamma_t":        func(c *Config, v float64) { c.Ring.GammaT, c.Ring.Alpha = v, nil },
	"ring.start":          func(c *Config, v float64) { c.Ring.Start = v },
	"ring.end":            func(c *Config, v float64) { c.Ring.End = v },
	"impedance.r_shunt":   func(c *Config, v float64) { scaleResonators(c, func(r *ResonatorConfig) { r.R = v }) },
	"impedance.q":         func(c *Config, v float64) { scaleResonators(c, func(r *ResonatorConfig) { r.Q = v }) },
	"impedance.resonance": func(c *Config, v float64) { scaleResonators(c, func(r *ResonatorConfig) { r.Fr = v }) },
}

func scaleResonators(c *Config, fn func(*ResonatorConfig)) {
	if r := c.Impedance.FirstResonator(); r != nil {
		fn(r)
	}
}

// Set changes the named setting of c. Settings of the first RF system and
// the first resonator are addressed without an index.
func (c *Config) Set(name string, v float64) error {
	fn, ok := setters[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q: %w", name, dynamo.ErrInvalidParameter)
	}
	if len(c.RF) == 0 || len(c.RF[0].Systems) == 0 {
		return fmt.Errorf("no rf system: %w", dynamo.ErrInvalidParameter)
	}
	fn(c, v)
	return nil
}

// ParamNames lists the names accepted by Set.
func ParamNames() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Ring.SectionLengths = append([]float64(nil), c.Ring.SectionLengths...)
	out.Ring.Alpha = append([]float64(nil), c.Ring.Alpha...)
	out.RF = make([]RFConfig, len(c.RF))
	for i, r := range c.RF {
		out.RF[i].Systems = append([]RFSystem(nil), r.Systems...)
	}
	out.Impedance.Resonators = append([]ResonatorConfig(nil), c.Impedance.Resonators...)
	out.Impedance.TravelingWave = append([]TWCConfig(nil), c.Impedance.TravelingWave...)
	out.Impedance.Engines = make([]EngineConfig, len(c.Impedance.Engines))
	for i, e := range c.Impedance.Engines {
		e.Resonators = append([]ResonatorConfig(nil), e.Resonators...)
		e.TravelingWave = append([]TWCConfig(nil), e.TravelingWave...)
		out.Impedance.Engines[i] = e
	}
	out.Loop.Gain = append([]float64(nil), c.Loop.Gain...)
	out.Loop.RadialGain = append([]float64(nil), c.Loop.RadialGain...)
	return &out
}
