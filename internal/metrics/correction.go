package metrics

import (
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
)

// FrequencyCorrection accumulates the RF frequency corrections of the phase
// loop. Value is their rms; Peak the largest magnitude seen.
type FrequencyCorrection struct {
	sumSq   float64
	peak    float64
	samples int
}

func NewFrequencyCorrection() *FrequencyCorrection { return &FrequencyCorrection{} }

func (f *FrequencyCorrection) Name() string { return "rms_domega_rf" }

func (f *FrequencyCorrection) Observe(s dynamo.Snapshot) {
	if math.IsNaN(s.DomegaRF) {
		return
	}
	f.sumSq += s.DomegaRF * s.DomegaRF
	f.peak = math.Max(f.peak, math.Abs(s.DomegaRF))
	f.samples++
}

func (f *FrequencyCorrection) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return math.Sqrt(f.sumSq / float64(f.samples))
}

func (f *FrequencyCorrection) Peak() float64 { return f.peak }

func (f *FrequencyCorrection) Reset() {
	*f = FrequencyCorrection{}
}
