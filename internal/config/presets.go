package config

import (
	"math"
	"sort"
)

// Presets build a fresh configuration per call, so callers may modify the
// result.
var Presets = map[string]func() *Config{
	"lhc_acceleration":   lhcAcceleration,
	"lhc_phase_loop":     lhcPhaseLoop,
	"lhc_noise_feedback": lhcNoiseFeedback,
	"psb_phase_loop":     psbPhaseLoop,
	"psb_memory":         psbMemory,
	"sps_impedance":      spsImpedance,
}

// lhcAcceleration ramps the LHC from 450 to 460.005 GeV/c in 2000 turns.
func lhcAcceleration() *Config {
	cfg := DefaultConfig()
	cfg.Name = "lhc_acceleration"
	cfg.Ring.End = 460.005e9
	return cfg
}

func lhcPhaseLoop() *Config {
	cfg := DefaultConfig()
	cfg.Name = "lhc_phase_loop"
	cfg.Turns = 10000
	cfg.Slices.CutLeft, cfg.Slices.CutRight, cfg.Slices.Units = 0, 2*math.Pi, "rad"
	cfg.Loop = LoopConfig{Type: "lhc", Gain: []float64{2250}, SecondGain: 225}
	cfg.Output.SnapshotEvery = 10
	return cfg
}

func lhcNoiseFeedback() *Config {
	cfg := lhcPhaseLoop()
	cfg.Name = "lhc_noise_feedback"
	cfg.Noise = NoiseConfig{
		Amplitude:   1e-3,
		Feedback:    true,
		BunchLength: 0.5e-9,
		Gain:        1e9,
		Factor:      0.93,
		UpdateEvery: 100,
	}
	return cfg
}

func psbRing() *Config {
	cfg := DefaultConfig()
	cfg.Turns = 20000
	cfg.Ring = RingConfig{
		Particle:       "proton",
		SectionLengths: []float64{2 * math.Pi * 25},
		GammaT:         4.4,
		Synchronous:    "kinetic_energy",
		Start:          160e6,
		End:            160e6,
	}
	cfg.RF = []RFConfig{{Systems: []RFSystem{{Harmonic: 1, Voltage: 8e3}}}}
	cfg.Beam.SigmaDt = 45e-9
	cfg.Slices.CutLeft, cfg.Slices.CutRight, cfg.Slices.Units = 0, 2*math.Pi, "rad"
	cfg.Output.SnapshotEvery = 100
	return cfg
}

func psbPhaseLoop() *Config {
	cfg := psbRing()
	cfg.Name = "psb_phase_loop"
	cfg.Loop = LoopConfig{
		Type:       "psb",
		Gain:       []float64{1.5e5},
		RadialGain: []float64{1e-2, 1e-3},
		Period:     10e-6,
	}
	return cfg
}

// psbMemory keeps three turns of a narrow band resonator wake.
func psbMemory() *Config {
	cfg := psbRing()
	cfg.Name = "psb_memory"
	cfg.Turns = 5000
	cfg.Beam.Intensity = 5e12
	cfg.Impedance = ImpedanceConfig{
		Resonators:     []ResonatorConfig{{R: 5e3, Fr: 2.5e6, Q: 300}},
		Domain:         "frequency",
		FreqResolution: 1e4,
		TurnsMemory:    3,
	}
	return cfg
}

// spsImpedance is the SPS at 25.92 GeV/c with the 200 MHz travelling wave
// cavities in the frequency domain and a broadband resonator in the time
// domain.
func spsImpedance() *Config {
	cfg := DefaultConfig()
	cfg.Name = "sps_impedance"
	cfg.Turns = 5000
	cfg.Ring = RingConfig{
		Particle:       "proton",
		SectionLengths: []float64{6911.5623},
		GammaT:         22.77422909,
		Synchronous:    "momentum",
		Start:          25.92e9,
		End:            25.92e9,
	}
	cfg.RF = []RFConfig{{Systems: []RFSystem{{Harmonic: 4620, Voltage: 4.5e6}}}}
	cfg.Beam.Intensity = 1e11
	cfg.Beam.SigmaDt = 0.5e-9
	cfg.Slices.CutLeft, cfg.Slices.CutRight, cfg.Slices.Units = 0, 2*math.Pi, "rad"
	cfg.Impedance = ImpedanceConfig{
		TravelingWave: []TWCConfig{
			{R: 27.1e3, Fr: 200.222e6, A: 5.86e-7},
			{R: 34.6e3, Fr: 200.222e6, A: 6.91e-7},
		},
		Domain:         "frequency",
		FreqResolution: 1e6,
		Engines: []EngineConfig{{
			Resonators: []ResonatorConfig{{R: 10e3, Fr: 1e9, Q: 1}},
			Domain:     "time",
		}},
	}
	cfg.Output.SnapshotEvery = 10
	return cfg
}

// GetPreset returns a fresh preset configuration or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
