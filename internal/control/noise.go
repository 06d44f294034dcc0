package control

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/slices"
)

// NoiseFeedbackParams configures the bunch length feedback on the RF phase
// noise amplitude.
type NoiseFeedbackParams struct {
	// BunchLength is the target 4σ bunch length in seconds.
	BunchLength float64
	Gain        float64
	// Factor is the memory of the recursion, a in x ← a·x + G·(bl_target − bl).
	Factor float64
	// UpdateEvery is the number of turns between updates, 1 if zero.
	UpdateEvery int
	// VariableGain scales the gain with (ω_s0[0]/ω_s0[turn])².
	VariableGain bool
	// BunchPattern lists the RF buckets holding bunches. Empty means a
	// single bunch measured over the whole window.
	BunchPattern []int
}

// NoiseFeedback scales the RF phase noise to drive the measured FWHM bunch
// length towards a target. The noise is multiplied by Scale before the
// phase loop runs.
type NoiseFeedback struct {
	X            float64
	BunchLength  float64
	BunchLengths []float64

	target  float64
	factor  float64
	every   int
	gain    []float64
	pattern []int
	rf      *rf.Program
	slicer  *slices.Slicer
}

func NewNoiseFeedback(r *rf.Program, s *slices.Slicer, p NoiseFeedbackParams) (*NoiseFeedback, error) {
	if p.BunchLength <= 0 {
		return nil, fmt.Errorf("target bunch length %g: %w", p.BunchLength, dynamo.ErrInvalidParameter)
	}
	if p.UpdateEvery == 0 {
		p.UpdateEvery = 1
	}
	if p.UpdateEvery < 0 {
		return nil, fmt.Errorf("update every %d turns: %w", p.UpdateEvery, dynamo.ErrInvalidParameter)
	}
	nf := &NoiseFeedback{
		BunchLength: p.BunchLength,
		target:      p.BunchLength,
		factor:      p.Factor,
		every:       p.UpdateEvery,
		gain:        make([]float64, r.Turns+1),
		pattern:     append([]int(nil), p.BunchPattern...),
		rf:          r,
		slicer:      s,
	}
	for i := range nf.gain {
		nf.gain[i] = p.Gain
		if p.VariableGain {
			ratio := r.OmegaS0[0] / r.OmegaS0[i]
			nf.gain[i] = p.Gain * ratio * ratio
		}
	}
	if len(nf.pattern) > 0 {
		nf.BunchLengths = make([]float64, len(nf.pattern))
	}
	return nf, nil
}

func (nf *NoiseFeedback) Name() string { return "noise_feedback" }

// Scale is the current noise amplitude factor in [0, 1].
func (nf *NoiseFeedback) Scale() float64 { return nf.X }

// Track measures the bunch length on update turns and advances the
// recursion. A failed measurement keeps the previous bunch length.
func (nf *NoiseFeedback) Track() error {
	c := nf.rf.Counter
	if c%nf.every != 0 {
		return nil
	}
	if len(nf.pattern) == 0 {
		if bl, _, ok := nf.slicer.FWHM(0); ok {
			nf.BunchLength = bl
		}
	} else {
		nf.measureTrain()
	}
	x := nf.factor*nf.X + nf.gain[c]*(nf.target-nf.BunchLength)
	nf.X = math.Max(0, math.Min(1, x))
	return nil
}

// measureTrain measures each bunch inside its own RF bucket and averages.
func (nf *NoiseFeedback) measureTrain() {
	c := nf.rf.Counter
	omega := nf.rf.OmegaRF[0][c]
	phi := nf.rf.PhiRF[0][c]
	centers := nf.slicer.Centers
	sum, n := 0.0, 0
	for k, bucket := range nf.pattern {
		lo := (phi + 2*math.Pi*float64(bucket)) / omega
		hi := lo + 2*math.Pi/omega
		first, last := -1, -1
		for j, t := range centers {
			if t > lo && t < hi {
				if first < 0 {
					first = j
				}
				last = j + 1
			}
		}
		if first < 0 {
			continue
		}
		if bl, _, ok := nf.slicer.FWHMRange(first, last, 0); ok {
			nf.BunchLengths[k] = bl
		}
		sum += nf.BunchLengths[k]
		n++
	}
	if n > 0 {
		nf.BunchLength = sum / float64(n)
	}
}
