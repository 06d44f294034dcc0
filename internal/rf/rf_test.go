package rf

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/ring"
)

func newRing(t *testing.T, turns int, p0, p1, alpha float64) *ring.Program {
	t.Helper()
	r, err := ring.New(ring.Params{
		Turns:          turns,
		Particle:       ring.Proton(),
		SectionLengths: []float64{26658.883},
		Alpha:          [][]float64{{alpha}},
		Momentum:       [][]float64{ring.LinearRamp(p0, p1, turns)},
	})
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	return r
}

func TestSynchronousPhaseAboveTransition(t *testing.T) {
	r := newRing(t, 2000, 450e9, 460.005e9, 1/(55.759505*55.759505))
	p, err := New(r, Params{Harmonic: [][]float64{{35640}}, Voltage: [][]float64{{6e6}}})
	if err != nil {
		t.Fatalf("rf: %v", err)
	}

	if len(p.EIncrement) != 2000 {
		t.Fatalf("expected 2000 energy increments, got %d", len(p.EIncrement))
	}
	ratio := p.EIncrement[0] / 6e6
	want := math.Pi - math.Asin(ratio)
	if math.Abs(p.PhiS[0]-want) > 1e-12 {
		t.Errorf("phi_s = %.12f, want %.12f", p.PhiS[0], want)
	}
	if p.PhiS[0] >= math.Pi || p.PhiS[0] <= math.Pi/2 {
		t.Errorf("accelerating above transition should give pi/2 < phi_s < pi, got %g", p.PhiS[0])
	}
	if !p.AboveTransition(0) {
		t.Errorf("LHC at 450 GeV is above transition")
	}
	if p.AccelerationKick() != -p.EIncrement[0] {
		t.Errorf("acceleration kick %g, want %g", p.AccelerationKick(), -p.EIncrement[0])
	}
}

func TestSynchronousPhaseBelowTransition(t *testing.T) {
	r := newRing(t, 100, 1.0e9, 1.1e9, 1/(6.1*6.1))
	p, err := New(r, Params{Harmonic: [][]float64{{1}}, Voltage: [][]float64{{8e6}}})
	if err != nil {
		t.Fatalf("rf: %v", err)
	}
	if r.Eta0[0][0] >= 0 {
		t.Fatalf("expected below transition, eta0 = %g", r.Eta0[0][0])
	}
	ratio := p.EIncrement[10] / 8e6
	want := math.Pi + math.Asin(ratio)
	if math.Abs(p.PhiS[10]-want) > 1e-12 {
		t.Errorf("phi_s = %g, want %g", p.PhiS[10], want)
	}
}

func TestCoastingBeam(t *testing.T) {
	r := newRing(t, 10, 450e9, 450e9, 3.2e-4)
	p, err := New(r, Params{Harmonic: [][]float64{{35640}}, Voltage: [][]float64{{6e6}}})
	if err != nil {
		t.Fatal(err)
	}
	for turn, phi := range p.PhiS {
		if math.Abs(phi-math.Pi) > 1e-15 {
			t.Errorf("turn %d: phi_s %g, want pi", turn, phi)
		}
	}

	// Qs = sqrt(h q V |eta cos phi_s| / (2 pi beta^2 E))
	b, e, eta := p.Beta[0], p.Energy[0], p.Eta0[0]
	qs := math.Sqrt(35640 * 6e6 * math.Abs(eta) / (2 * math.Pi * b * b * e))
	if math.Abs(p.Qs[0]-qs)/qs > 1e-12 {
		t.Errorf("Qs = %g, want %g", p.Qs[0], qs)
	}
	if math.Abs(p.OmegaS0[0]-qs*r.OmegaRev[0])/p.OmegaS0[0] > 1e-12 {
		t.Errorf("omega_s0 inconsistent with Qs")
	}
	wantOmega := 2 * math.Pi * b * ring.SpeedOfLight * 35640 / r.Circumference
	if math.Abs(p.OmegaRF[0][0]-wantOmega)/wantOmega > 1e-15 {
		t.Errorf("omega_RF = %g, want %g", p.OmegaRF[0][0], wantOmega)
	}
}

func TestAccelerationRatioClamped(t *testing.T) {
	var buf bytes.Buffer
	r := newRing(t, 10, 450e9, 460e9, 3.2e-4)
	p, err := New(r, Params{
		Harmonic: [][]float64{{35640}},
		Voltage:  [][]float64{{1e3}},
		Logger:   log.New(&buf, "", 0),
	})
	if err != nil {
		t.Fatalf("clamped ratio must not be fatal: %v", err)
	}
	for turn, phi := range p.PhiS {
		if math.IsNaN(phi) {
			t.Fatalf("turn %d: phi_s is NaN", turn)
		}
	}
	if !strings.Contains(buf.String(), "acceleration not possible") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestNewErrors(t *testing.T) {
	r := newRing(t, 10, 450e9, 450e9, 3.2e-4)
	tests := []struct {
		name string
		p    Params
		want error
	}{
		{"no systems", Params{}, dynamo.ErrInvalidParameter},
		{"voltage rows", Params{Harmonic: [][]float64{{1}, {2}}, Voltage: [][]float64{{1}}}, dynamo.ErrSectionMismatch},
		{"table length", Params{Harmonic: [][]float64{{1}}, Voltage: [][]float64{{1, 2}}}, dynamo.ErrSectionMismatch},
		{"section", Params{Section: 3, Harmonic: [][]float64{{1}}, Voltage: [][]float64{{1}}}, dynamo.ErrSectionMismatch},
		{"harmonic", Params{Harmonic: [][]float64{{0}}, Voltage: [][]float64{{1}}}, dynamo.ErrInvalidParameter},
	}
	for _, tt := range tests {
		if _, err := New(r, tt.p); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestCounter(t *testing.T) {
	r := newRing(t, 3, 450e9, 451e9, 3.2e-4)
	p, err := New(r, Params{Harmonic: [][]float64{{35640}}, Voltage: [][]float64{{6e6}}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		p.Advance()
	}
	if p.Turn() != 3 {
		t.Errorf("turn %d, want 3", p.Turn())
	}
	if p.AccelerationKick() != 0 {
		t.Errorf("no kick expected past the last increment")
	}
}

func TestApplyNoise(t *testing.T) {
	r := newRing(t, 3, 450e9, 450e9, 3.2e-4)
	p, err := New(r, Params{
		Harmonic: [][]float64{{35640}, {71280}},
		Voltage:  [][]float64{{6e6}, {3e6}},
		PhiNoise: [][]float64{{0.1, 0.2, 0.3, 0.4}},
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Advance()
	base := p.PhiRF[0][1]
	p.ApplyNoise(0.5)
	if math.Abs(p.PhiRF[0][1]-base-0.1) > 1e-15 {
		t.Errorf("phi_RF moved by %g, want 0.1", p.PhiRF[0][1]-base)
	}
	if p.PhiRF[0][0] != 0 || p.PhiRF[0][2] != 0 {
		t.Error("noise leaked into other turns")
	}
	if p.PhiRF[1][1] != 0 {
		t.Error("system without noise changed")
	}
}
