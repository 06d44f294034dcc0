package metrics

import (
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
)

// SpreadGrowth is the largest energy spread seen relative to the first one.
type SpreadGrowth struct {
	name    string
	initial float64
	max     float64
	samples int
}

func NewSpreadGrowth() *SpreadGrowth {
	return &SpreadGrowth{
		name: "sigma_de_growth",
	}
}

func (e *SpreadGrowth) Name() string { return e.name }

func (e *SpreadGrowth) Observe(s dynamo.Snapshot) {
	if s.Alive == 0 {
		return
	}
	if e.samples == 0 {
		e.initial = s.SigmaDE
	}
	e.max = math.Max(e.max, s.SigmaDE)
	e.samples++
}

func (e *SpreadGrowth) Value() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return e.max / e.initial
}

func (e *SpreadGrowth) Reset() {
	e.initial = 0
	e.max = 0
	e.samples = 0
}

// EmittanceDrift is the largest relative change of the rms emittance.
type EmittanceDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEmittanceDrift() *EmittanceDrift {
	return &EmittanceDrift{
		name: "emittance_drift",
	}
}

func (e *EmittanceDrift) Name() string { return e.name }

func (e *EmittanceDrift) Observe(s dynamo.Snapshot) {
	if s.Alive == 0 {
		return
	}
	if e.samples == 0 {
		e.initial = s.Emittance
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(s.Emittance-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EmittanceDrift) Value() float64 {
	return e.maxDrift
}

func (e *EmittanceDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
