package dynamo

import "math"

// Stage is one step of the per-turn pipeline.
type Stage interface {
	Name() string
	Track() error
}

// Snapshot is the scalar state of the bunch and the RF after a turn.
type Snapshot struct {
	Turn          int     `json:"turn"`
	Time          float64 `json:"time"`
	MeanDt        float64 `json:"mean_dt"`
	SigmaDt       float64 `json:"sigma_dt"`
	MeanDE        float64 `json:"mean_de"`
	SigmaDE       float64 `json:"sigma_de"`
	Emittance     float64 `json:"emittance"`
	BunchLength   float64 `json:"bunch_length"`
	BunchPosition float64 `json:"bunch_position"`
	Alive         int     `json:"alive"`
	Lost          int     `json:"lost"`
	PhiBeam       float64 `json:"phi_beam"`
	Dphi          float64 `json:"dphi"`
	DomegaRF      float64 `json:"domega_rf"`
	OmegaRF       float64 `json:"omega_rf"`
	PhiRF         float64 `json:"phi_rf"`
}

// IsValid reports whether every coordinate statistic is finite. Bunch length
// is allowed to be NaN when no measurement was possible, and so are all
// statistics once every particle is lost.
func (s Snapshot) IsValid() bool {
	if s.Alive == 0 {
		return true
	}
	for _, v := range []float64{s.MeanDt, s.SigmaDt, s.MeanDE, s.SigmaDE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Profile is a copy of the slice histogram of a turn.
type Profile struct {
	Turn    int       `json:"turn"`
	Centers []float64 `json:"centers"`
	Counts  []float64 `json:"counts"`
}

type Observer interface {
	OnTurn(s Snapshot)
}

// ProfileObserver additionally receives the slice histogram.
type ProfileObserver interface {
	Observer
	OnProfile(p Profile)
}

type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

type Config struct {
	Turns         int
	Seed          int64
	ValidateState bool
	// SnapshotEvery stores every n-th snapshot in the result; 0 stores all.
	SnapshotEvery int
	// ProfileEvery sends the slice histogram to profile observers every
	// n-th turn; 0 never sends it.
	ProfileEvery int
}

func DefaultConfig() Config {
	return Config{
		Turns:         1000,
		ValidateState: true,
	}
}

type Result struct {
	Snapshots  []Snapshot
	Metrics    map[string]float64
	TurnsTaken int
	StageTime  map[string]float64
	Errors     []error
}
