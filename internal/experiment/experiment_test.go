package experiment

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/dynamo"
)

var quiet = log.New(io.Discard, "", 0)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Turns = 20
	cfg.Beam.Particles = 2000
	return cfg
}

func TestRunDefault(t *testing.T) {
	exp, err := New(smallConfig(), quiet)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.TurnsTaken != 20 {
		t.Errorf("expected 20 turns, got %d", res.TurnsTaken)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
	if _, ok := res.Metrics["loss_fraction"]; !ok {
		t.Errorf("metrics not attached: %v", res.Metrics)
	}
	if exp.LoopName() != "none" || len(exp.InducedNames()) != 0 {
		t.Errorf("expected a bare machine, got loop %s and %v", exp.LoopName(), exp.InducedNames())
	}

	meta := exp.Metadata()
	if meta.Preset != "lhc_flat_bottom" || meta.Solver != "simple" || meta.Particles != 2000 {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestPresetsBuild(t *testing.T) {
	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := config.GetPreset(name)
			cfg.Turns = 10
			cfg.Beam.Particles = 1000
			exp, err := New(cfg, quiet)
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if err := exp.Context().Validate(); err != nil {
				t.Errorf("invalid context: %v", err)
			}
			if want := cfg.Loop.Type; want != "" && want != "none" && exp.LoopName() != want {
				t.Errorf("expected loop %s, got %s", want, exp.LoopName())
			}
		})
	}
}

func TestRunPresets(t *testing.T) {
	for _, name := range []string{"lhc_phase_loop", "lhc_noise_feedback", "psb_phase_loop", "sps_impedance"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.GetPreset(name)
			cfg.Turns = 10
			cfg.Beam.Particles = 1000
			exp, err := New(cfg, quiet)
			if err != nil {
				t.Fatal(err)
			}
			res, err := exp.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if res.TurnsTaken != 10 || len(res.Errors) != 0 {
				t.Errorf("took %d turns with errors %v", res.TurnsTaken, res.Errors)
			}
		})
	}
}

func TestInducedNames(t *testing.T) {
	cfg := config.GetPreset("sps_impedance")
	cfg.Turns = 5
	cfg.Beam.Particles = 500
	exp, err := New(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if names := exp.InducedNames(); len(names) != 2 || names[0] != "frequency_domain" || names[1] != "time_domain" {
		t.Errorf("expected the frequency and time domain engines, got %v", names)
	}

	cfg.Impedance.Music = true
	exp, err = New(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if names := exp.InducedNames(); len(names) != 1 || names[0] != "music" {
		t.Errorf("expected music, got %v", names)
	}
	if exp.Context().Induced != nil {
		t.Error("music replaces the sliced engines")
	}
}

func TestMixedEngines(t *testing.T) {
	cfg := config.GetPreset("sps_impedance")
	cfg.Turns = 5
	cfg.Beam.Particles = 2000
	exp, err := New(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	c := exp.Context()
	if err := c.Slicer.Track(); err != nil {
		t.Fatal(err)
	}
	if err := c.Induced.Track(); err != nil {
		t.Fatal(err)
	}

	n := c.Slicer.Slices()
	sum := make([]float64, n)
	for _, eng := range c.Induced.Engines {
		v, err := eng.Voltage(n)
		if err != nil {
			t.Fatalf("%s: %v", eng.Name(), err)
		}
		for i := range sum {
			sum[i] += v[i]
		}
	}
	scale := 0.0
	for _, v := range sum {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		t.Fatal("no induced voltage")
	}
	for i := range sum {
		if math.Abs(c.Induced.Voltage[i]-sum[i]) > 1e-12*scale {
			t.Fatalf("bin %d: total %g, engines %g", i, c.Induced.Voltage[i], sum[i])
		}
	}
}

func TestMusicNeedsResonator(t *testing.T) {
	cfg := smallConfig()
	cfg.Impedance.TravelingWave = []config.TWCConfig{{R: 1e3, Fr: 200e6, A: 5e-7}}
	cfg.Impedance.Music = true
	if _, err := New(cfg, quiet); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"unknown loop", func(c *config.Config) { c.Loop.Type = "bogus" }},
		{"unknown fit", func(c *config.Config) { c.Slices.Fit = "lorentzian" }},
		{"unknown solver", func(c *config.Config) { c.Tracker.Solver = "rk4" }},
		{"unknown domain", func(c *config.Config) {
			c.Impedance.Resonators = []config.ResonatorConfig{{R: 1e3, Fr: 1e9, Q: 1}}
			c.Impedance.Domain = "laplace"
		}},
		{"unknown distribution", func(c *config.Config) { c.Beam.Distribution = "waterbag" }},
		{"missing table", func(c *config.Config) { c.Impedance.WakeTable = "/nonexistent/wake.csv" }},
		{"unknown engine domain", func(c *config.Config) {
			c.Impedance.Engines = []config.EngineConfig{{Resonators: []config.ResonatorConfig{{R: 1e3, Fr: 1e9, Q: 1}}, Domain: "z"}}
		}},
		{"zero turns", func(c *config.Config) { c.Turns = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.modify(cfg)
			if _, err := New(cfg, quiet); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSeparatrixStage(t *testing.T) {
	cfg := smallConfig()
	cfg.Tracker.SeparatrixLoss = true
	exp, err := New(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range exp.Context().Stages() {
		if s.Name() == "separatrix_loss" {
			found = true
		}
	}
	if !found {
		t.Error("separatrix stage not scheduled")
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if last := res.Snapshots[len(res.Snapshots)-1]; last.Alive+last.Lost != cfg.Beam.Particles {
		t.Errorf("particle count not conserved: %+v", last)
	}
}

func TestSources(t *testing.T) {
	dir := t.TempDir()
	wake := filepath.Join(dir, "wake.csv")
	imp := filepath.Join(dir, "impedance.csv")
	if err := os.WriteFile(wake, []byte("# t, W\n0, 1e12\n1e-9, 5e11\n2e-9, 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(imp, []byte("1e6, 10, 1\n2e6, 20, 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sources, err := NewRegistry().Sources(config.EngineConfig{
		Resonators:     []config.ResonatorConfig{{R: 1e3, Fr: 1e9, Q: 1}},
		WakeTable:      wake,
		ImpedanceTable: imp,
	})
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	want := []string{"resonators", "wake_table", "impedance_table"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("source %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestReadColumnsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	short := filepath.Join(dir, "short.csv")
	os.WriteFile(bad, []byte("0, 1\n1, abc\n"), 0644)
	os.WriteFile(short, []byte("0, 1\n1\n"), 0644)

	if _, err := readColumns(bad, 2); err == nil {
		t.Error("expected error for non numeric value")
	}
	if _, err := readColumns(short, 2); err == nil {
		t.Error("expected error for short record")
	}
}

func TestSliceParams(t *testing.T) {
	reg := NewRegistry()
	p, err := reg.SliceParams(config.SliceConfig{Count: 64, CutRight: 6.28, Units: "rad", Mode: "smooth", Fit: "gaussian"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Slices != 64 || p.CutRight != 6.28 {
		t.Errorf("unexpected params %+v", p)
	}
	if _, err := reg.SliceParams(config.SliceConfig{Units: "deg"}); err == nil {
		t.Error("expected error for unknown units")
	}
	if _, err := reg.SliceParams(config.SliceConfig{Mode: "cic"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestListLoops(t *testing.T) {
	names := NewRegistry().ListLoops()
	want := []string{"lhc", "lhc_f", "none", "psb", "sps_radial"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, names[i])
		}
	}
}

func TestPhaseNoise(t *testing.T) {
	a := PhaseNoise(100, 1e-3, 5)
	b := PhaseNoise(100, 1e-3, 5)
	c := PhaseNoise(100, 1e-3, 6)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for equal seeds", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds gave identical noise")
	}
}
