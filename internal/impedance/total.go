package impedance

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/slices"
)

// Total sums the voltages of its engines and applies the result to the
// particles. With TurnsMemory > 0 it keeps the wake left behind by previous
// turns in a buffer that extends past the window. When the window moves with
// an unchanged bin width the buffer is resampled onto the new grid; any
// other change of the slicing discards it.
type Total struct {
	Engines     []Engine
	TurnsMemory int
	// Voltage is the induced voltage on the bin centres after Track.
	Voltage []float64

	slicer  *slices.Slicer
	rf      *rf.Program
	buffer  []float64
	scratch []float64
	bufVer  int
	// window of the buffer grid when it was last aligned
	bufLeft  float64
	bufWidth float64
}

// NewTotal combines engines. Memory needs the revolution period of every
// turn and is sized for the longest one.
func NewTotal(s *slices.Slicer, r *rf.Program, turnsMemory int, engines ...Engine) (*Total, error) {
	if turnsMemory < 0 {
		return nil, fmt.Errorf("turns memory %d: %w", turnsMemory, dynamo.ErrInvalidParameter)
	}
	return &Total{
		Engines:     engines,
		TurnsMemory: turnsMemory,
		Voltage:     make([]float64, s.Slices()),
		slicer:      s,
		rf:          r,
		bufVer:      -1,
	}, nil
}

func (t *Total) Name() string { return "induced_voltage" }

// Sum returns the summed engine voltages of the given length.
func (t *Total) Sum(length int) ([]float64, error) {
	out := make([]float64, length)
	for _, e := range t.Engines {
		v, err := e.Voltage(length)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for i := range out {
			out[i] += v[i]
		}
	}
	return out, nil
}

// Track updates Voltage from the current profile.
func (t *Total) Track() error {
	n := t.slicer.Slices()
	if t.TurnsMemory == 0 {
		v, err := t.Sum(n)
		if err != nil {
			return err
		}
		t.Voltage = v
		return nil
	}
	if t.bufVer != t.slicer.Version() {
		t.alignMemory()
	}
	t.shiftMemory(t.rf.Ring.TRev[t.rf.Counter])
	fresh, err := t.Sum(len(t.buffer))
	if err != nil {
		return err
	}
	for i := range t.buffer {
		t.buffer[i] += fresh[i]
	}
	t.Voltage = append(t.Voltage[:0], t.buffer[:n]...)
	return nil
}

// MemoryLength returns the number of samples kept between turns.
func (t *Total) MemoryLength() int { return len(t.buffer) }

func (t *Total) resetMemory() {
	n := t.slicer.Slices()
	w := t.slicer.BinWidth
	maxRev := 0.0
	for _, v := range t.rf.Ring.TRev {
		maxRev = math.Max(maxRev, v)
	}
	length := n + int(math.Ceil(float64(t.TurnsMemory)*maxRev/w))
	t.buffer = make([]float64, length)
	t.scratch = make([]float64, length)
	t.bufVer = t.slicer.Version()
	t.bufLeft, t.bufWidth = t.slicer.CutLeft, w
}

// alignMemory follows a window shift, as done by Slicer.TrackCuts, by
// moving the buffer the same way a revolution does.
func (t *Total) alignMemory() {
	if t.buffer == nil || math.Abs(t.slicer.BinWidth-t.bufWidth) > 1e-12*t.bufWidth {
		t.resetMemory()
		return
	}
	t.shiftMemory(t.slicer.CutLeft - t.bufLeft)
	t.bufVer = t.slicer.Version()
	t.bufLeft = t.slicer.CutLeft
}

// shiftMemory moves the buffered voltage by dt: the value at grid time x
// becomes the old value at x + dt, zero outside the old grid.
func (t *Total) shiftMemory(dt float64) {
	w := t.slicer.BinWidth
	last := len(t.buffer) - 1
	for k := range t.scratch {
		pos := float64(k) + dt/w
		j := int(math.Floor(pos))
		switch {
		case j >= last:
			if j == last && pos == float64(last) {
				t.scratch[k] = t.buffer[last]
			} else {
				t.scratch[k] = 0
			}
		case j < 0:
			t.scratch[k] = 0
		default:
			f := pos - float64(j)
			t.scratch[k] = t.buffer[j] + f*(t.buffer[j+1]-t.buffer[j])
		}
	}
	t.buffer, t.scratch = t.scratch, t.buffer
}

// Kick adds charge·V(dt) to the energy of every alive particle, with V
// linearly interpolated between bin centres. Particles outside the first
// and last centre are not kicked.
func (t *Total) Kick(b *beam.Ensemble) {
	KickLinear(b, t.slicer.Centers, t.Voltage, t.rf.Charge)
}

// KickLinear applies charge·V(dt) on a uniform grid of centres.
func KickLinear(b *beam.Ensemble, centers, voltage []float64, charge float64) {
	n := len(centers)
	if n < 2 {
		return
	}
	c0 := centers[0]
	inv := float64(n-1) / (centers[n-1] - c0)
	slope := make([]float64, n-1)
	offset := make([]float64, n-1)
	for i := range slope {
		slope[i] = charge * (voltage[i+1] - voltage[i]) * inv
		offset[i] = charge*voltage[i] - slope[i]*centers[i]
	}
	dynamo.ParallelFor(b.Len(), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			if b.ID[i] == 0 {
				continue
			}
			fbin := int(math.Floor((b.Dt[i] - c0) * inv))
			if fbin < 0 || fbin >= n-1 {
				continue
			}
			b.DE[i] += slope[fbin]*b.Dt[i] + offset[fbin]
		}
	})
}
