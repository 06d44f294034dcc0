package storage

import (
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
)

// Recorder keeps the profiles sent during a run so they can be saved with
// it.
type Recorder struct {
	Profiles []dynamo.Profile
}

func (r *Recorder) OnTurn(dynamo.Snapshot) {}

func (r *Recorder) OnProfile(p dynamo.Profile) {
	r.Profiles = append(r.Profiles, p)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
