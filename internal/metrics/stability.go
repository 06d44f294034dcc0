package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/longsim/internal/dynamo"
)

// LossFraction is the fraction of macro-particles lost at the last turn.
type LossFraction struct {
	name  string
	alive int
	lost  int
}

func NewLossFraction() *LossFraction {
	return &LossFraction{
		name: "loss_fraction",
	}
}

func (l *LossFraction) Name() string {
	return l.name
}

func (l *LossFraction) Observe(s dynamo.Snapshot) {
	l.alive, l.lost = s.Alive, s.Lost
}

func (l *LossFraction) Value() float64 {
	if l.alive+l.lost == 0 {
		return 0
	}
	return float64(l.lost) / float64(l.alive+l.lost)
}

func (l *LossFraction) Reset() {
	l.alive = 0
	l.lost = 0
}

var registry = map[string]func() dynamo.Metric{
	"rms_domega_rf":   func() dynamo.Metric { return NewFrequencyCorrection() },
	"sigma_de_growth": func() dynamo.Metric { return NewSpreadGrowth() },
	"emittance_drift": func() dynamo.Metric { return NewEmittanceDrift() },
	"loss_fraction":   func() dynamo.Metric { return NewLossFraction() },
}

// New returns a fresh metric by name.
func New(name string) (dynamo.Metric, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

// Names lists the known metrics in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns one fresh instance of every metric.
func All() []dynamo.Metric {
	out := make([]dynamo.Metric, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name]())
	}
	return out
}
