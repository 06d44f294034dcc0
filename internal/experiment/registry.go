package experiment

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/control"
	"github.com/san-kum/longsim/internal/impedance"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/slices"
)

// LoopBuilder creates a phase loop from its configuration. A nil loop with
// a nil error means no loop.
type LoopBuilder func(r *rf.Program, s *slices.Slicer, p control.Params, cfg config.LoopConfig) (control.Loop, error)

type Registry struct {
	loops map[string]LoopBuilder
	fits  map[string]slices.Fit
	modes map[string]slices.Mode
	units map[string]slices.Units
}

func NewRegistry() *Registry {
	r := &Registry{
		loops: make(map[string]LoopBuilder),
		fits: map[string]slices.Fit{
			"":         slices.FitNone,
			"none":     slices.FitNone,
			"gaussian": slices.FitGaussian,
			"fwhm":     slices.FitFWHM,
			"rms":      slices.FitRMS,
		},
		modes: map[string]slices.Mode{
			"":       slices.Hard,
			"hard":   slices.Hard,
			"smooth": slices.Smooth,
		},
		units: map[string]slices.Units{
			"":    slices.Seconds,
			"s":   slices.Seconds,
			"rad": slices.Radians,
		},
	}

	r.loops["none"] = func(*rf.Program, *slices.Slicer, control.Params, config.LoopConfig) (control.Loop, error) {
		return nil, nil
	}
	r.loops["lhc"] = func(p *rf.Program, s *slices.Slicer, params control.Params, cfg config.LoopConfig) (control.Loop, error) {
		return control.NewLHC(p, s, params, cfg.SecondGain)
	}
	r.loops["lhc_f"] = func(p *rf.Program, s *slices.Slicer, params control.Params, cfg config.LoopConfig) (control.Loop, error) {
		return control.NewLHCF(p, s, params, cfg.SecondGain)
	}
	r.loops["sps_radial"] = func(p *rf.Program, s *slices.Slicer, params control.Params, cfg config.LoopConfig) (control.Loop, error) {
		return control.NewSPSRadial(p, s, params, cfg.SecondGain)
	}
	r.loops["psb"] = func(p *rf.Program, s *slices.Slicer, params control.Params, cfg config.LoopConfig) (control.Loop, error) {
		psb := control.PSBParams{Params: params, Period: cfg.Period, RadialPeriod: cfg.RadialPeriod}
		copy(psb.RadialGain[:], cfg.RadialGain)
		return control.NewPSB(p, s, psb)
	}

	return r
}

func (r *Registry) GetLoop(p *rf.Program, s *slices.Slicer, params control.Params, cfg config.LoopConfig) (control.Loop, error) {
	name := cfg.Type
	if name == "" {
		name = "none"
	}
	fn, ok := r.loops[name]
	if !ok {
		return nil, fmt.Errorf("unknown loop: %s", name)
	}
	return fn(p, s, params, cfg)
}

func (r *Registry) ListLoops() []string {
	names := make([]string, 0, len(r.loops))
	for name := range r.loops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SliceParams translates the slicing section of a config.
func (r *Registry) SliceParams(cfg config.SliceConfig) (slices.Params, error) {
	fit, ok := r.fits[cfg.Fit]
	if !ok {
		return slices.Params{}, fmt.Errorf("unknown fit: %s", cfg.Fit)
	}
	mode, ok := r.modes[cfg.Mode]
	if !ok {
		return slices.Params{}, fmt.Errorf("unknown slicing mode: %s", cfg.Mode)
	}
	units, ok := r.units[cfg.Units]
	if !ok {
		return slices.Params{}, fmt.Errorf("unknown cut units: %s", cfg.Units)
	}
	return slices.Params{
		Slices:   cfg.Count,
		CutLeft:  cfg.CutLeft,
		CutRight: cfg.CutRight,
		NSigma:   cfg.NSigma,
		Units:    units,
		Mode:     mode,
		Fit:      fit,
	}, nil
}

// Sources builds the wake and impedance sources of one engine.
func (r *Registry) Sources(cfg config.EngineConfig) ([]impedance.Source, error) {
	var sources []impedance.Source
	if n := len(cfg.Resonators); n > 0 {
		rs, fr, q := make([]float64, n), make([]float64, n), make([]float64, n)
		for i, res := range cfg.Resonators {
			rs[i], fr[i], q[i] = res.R, res.Fr, res.Q
		}
		src, err := impedance.NewResonators(rs, fr, q)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if n := len(cfg.TravelingWave); n > 0 {
		rs, fr, a := make([]float64, n), make([]float64, n), make([]float64, n)
		for i, c := range cfg.TravelingWave {
			rs[i], fr[i], a[i] = c.R, c.Fr, c.A
		}
		src, err := impedance.NewTravelingWaveCavity(rs, fr, a)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if cfg.WakeTable != "" {
		cols, err := readColumns(cfg.WakeTable, 2)
		if err != nil {
			return nil, err
		}
		src, err := impedance.NewWakeTable(cols[0], cols[1])
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if cfg.ImpedanceTable != "" {
		cols, err := readColumns(cfg.ImpedanceTable, 3)
		if err != nil {
			return nil, err
		}
		src, err := impedance.NewImpedanceTable(cols[0], cols[1], cols[2])
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// readColumns reads a headerless numeric CSV file column by column. Lines
// starting with # are skipped.
func readColumns(path string, n int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.Comment = '#'
	rd.FieldsPerRecord = n
	rd.TrimLeadingSpace = true
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cols := make([][]float64, n)
	for i, rec := range records {
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil || math.IsNaN(v) {
				return nil, fmt.Errorf("%s line %d: bad value %q", path, i+1, field)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return cols, nil
}
