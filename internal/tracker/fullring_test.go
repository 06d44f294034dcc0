package tracker

import (
	"math"
	"testing"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/rf"
)

func TestFullRingCompositionMatchesSingleSection(t *testing.T) {
	for _, solver := range []Solver{Simple, Full} {
		t.Run(solver.String(), func(t *testing.T) {
			dt := []float64{1e-9, 2e-9, -1e-9}
			dE := []float64{3e8, -2e8, 1e8}

			one := lhcRing(t, 10, []float64{lhcCircumference}, alpha1)
			pOne := lhcRF(t, one, 0, 0)
			bOne := testBeam(t, dt, dE)
			sOne, _ := New(pOne, bOne, Params{Solver: solver})

			two := lhcRing(t, 10, []float64{lhcCircumference / 2, lhcCircumference / 2}, alpha1)
			bTwo := testBeam(t, dt, dE)
			var sections []*Section
			for i := 0; i < 2; i++ {
				s, err := New(lhcRF(t, two, i, 0), bTwo, Params{Solver: solver})
				if err != nil {
					t.Fatal(err)
				}
				sections = append(sections, s)
			}
			full, err := NewFullRing(sections...)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(full.Circumference-lhcCircumference) > 1e-9 {
				t.Errorf("circumference %g", full.Circumference)
			}

			for turn := 0; turn < 3; turn++ {
				if err := sOne.Track(); err != nil {
					t.Fatal(err)
				}
				pOne.Advance()
				if err := full.Track(); err != nil {
					t.Fatal(err)
				}
				for _, s := range full.Sections {
					s.RF.Advance()
				}
			}
			for i := range dt {
				if math.Abs(bOne.Dt[i]-bTwo.Dt[i]) > 1e-20 {
					t.Errorf("particle %d: one section %g, two sections %g", i, bOne.Dt[i], bTwo.Dt[i])
				}
			}
		})
	}
}

func TestPotentialWell(t *testing.T) {
	r := lhcRing(t, 10, []float64{lhcCircumference}, alpha1)
	p := lhcRF(t, r, 0, 6e6)
	s, _ := New(p, testBeam(t, []float64{0}, []float64{0}), Params{})
	full, _ := NewFullRing(s)

	well, err := full.PotentialWell(0, WellParams{Points: 1001})
	if err != nil {
		t.Fatal(err)
	}
	if len(well.Potential) != 1001 || len(well.Time) != 1001 {
		t.Fatalf("lengths %d %d", len(well.Potential), len(well.Time))
	}
	lowest := 0
	for i, v := range well.Potential {
		if v < well.Potential[lowest] {
			lowest = i
		}
	}
	if well.Potential[lowest] < -1e-9 || well.Potential[lowest] > 1e-9 {
		t.Errorf("well minimum %g, want 0", well.Potential[lowest])
	}
	omega := p.OmegaRF[0][0]
	step := well.Time[1] - well.Time[0]
	if math.Abs(well.Time[lowest]-math.Pi/omega) > 1.5*step {
		t.Errorf("well minimum at %g, want stable phase time %g", well.Time[lowest], math.Pi/omega)
	}
}

func TestPotentialWellReferences(t *testing.T) {
	r := lhcRing(t, 10, []float64{lhcCircumference}, alpha1)
	p, err := rf.New(r, rf.Params{
		Harmonic: [][]float64{{lhcHarmonic}, {2 * lhcHarmonic}},
		Voltage:  [][]float64{{6e6}, {8e6}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := New(p, testBeam(t, []float64{0}, []float64{0}), Params{})
	full, _ := NewFullRing(s)

	low, err := full.PotentialWell(0, WellParams{Points: 100})
	if err != nil {
		t.Fatal(err)
	}
	high, err := full.PotentialWell(0, WellParams{Points: 100, Reference: HighestVoltage})
	if err != nil {
		t.Fatal(err)
	}
	if span := low.Time[99] - low.Time[0]; math.Abs(span-2*math.Pi/p.OmegaRF[0][0]) > 1e-18 {
		t.Errorf("lowest frequency span %g", span)
	}
	if span := high.Time[99] - high.Time[0]; math.Abs(span-2*math.Pi/p.OmegaRF[1][0]) > 1e-18 {
		t.Errorf("highest voltage span %g", span)
	}
	if _, err := full.PotentialWell(0, WellParams{Reference: ExplicitFrequency, Omega: 1}); err == nil {
		t.Error("expected an error for a frequency matching no system")
	}
	if _, err := full.PotentialWell(0, WellParams{Reference: ExplicitFrequency, Omega: p.OmegaRF[1][0], Points: 10}); err != nil {
		t.Errorf("explicit frequency: %v", err)
	}
}

func TestSeparatrixHeight(t *testing.T) {
	r := lhcRing(t, 10, []float64{lhcCircumference}, alpha1)
	p := lhcRF(t, r, 0, 6e6)
	omega := p.OmegaRF[0][0]

	sep := Separatrix(p, 0, []float64{math.Pi / omega, -1e-9, 3 * math.Pi / omega})
	height := math.Sqrt(2 * 6e6 * p.Beta[0] * p.Beta[0] * p.Energy[0] / (math.Pi * lhcHarmonic * p.Eta0[0]))
	if math.Abs(sep[0]-height) > 1e-6*height {
		t.Errorf("bucket height %g, want %g", sep[0], height)
	}
	if !math.IsNaN(sep[1]) || !math.IsNaN(sep[2]) {
		t.Errorf("expected NaN outside the bucket, got %v", sep[1:])
	}

	if !InSeparatrix(p, 0, math.Pi/omega, 0.5*height) {
		t.Error("particle at half height should be inside")
	}
	if InSeparatrix(p, 0, math.Pi/omega, 1.5*height) {
		t.Error("particle above the bucket should be outside")
	}
}

func TestLossSeparatrix(t *testing.T) {
	r := lhcRing(t, 10, []float64{lhcCircumference}, alpha1)
	p := lhcRF(t, r, 0, 6e6)
	omega := p.OmegaRF[0][0]
	b, _ := beam.New(3, 3)
	copy(b.Dt, []float64{math.Pi / omega, math.Pi / omega, 0.5e-9})
	copy(b.DE, []float64{0, 5e9, 0})
	if lost := LossSeparatrix(p, b); lost != 1 {
		t.Errorf("lost %d particles, want 1", lost)
	}
	if b.ID[0] == 0 || b.ID[1] != 0 || b.ID[2] == 0 {
		t.Errorf("ids %v", b.ID)
	}
}

func TestHamiltonianConserved(t *testing.T) {
	r := lhcRing(t, 400, []float64{lhcCircumference}, alpha1)
	p := lhcRF(t, r, 0, 6e6)
	omega := p.OmegaRF[0][0]
	b := testBeam(t, []float64{(math.Pi + 0.3) / omega}, []float64{0})
	s, _ := New(p, b, Params{})

	h0 := Hamiltonian(p, 0, b.Dt[0], b.DE[0])
	for i := 0; i < 400; i++ {
		if err := s.Track(); err != nil {
			t.Fatal(err)
		}
		p.Advance()
		h := Hamiltonian(p, p.Counter, b.Dt[0], b.DE[0])
		if math.Abs(h-h0) > 0.05*math.Abs(h0) {
			t.Fatalf("turn %d: H = %g, started at %g", i, h, h0)
		}
	}
}
