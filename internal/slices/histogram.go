package slices

import (
	"math"

	"github.com/san-kum/longsim/internal/dynamo"
)

// chunkSize fixes the partition of the particle arrays so that partial
// histograms are reduced in the same order whatever the worker count.
const chunkSize = 8192

// Histogram is the slice profile of one turn.
type Histogram struct {
	CutLeft  float64
	CutRight float64
	BinWidth float64
	Edges    []float64
	Centers  []float64
	Counts   []float64
}

// Clone returns a deep copy.
func (h Histogram) Clone() Histogram {
	return Histogram{
		CutLeft:  h.CutLeft,
		CutRight: h.CutRight,
		BinWidth: h.BinWidth,
		Edges:    append([]float64(nil), h.Edges...),
		Centers:  append([]float64(nil), h.Centers...),
		Counts:   append([]float64(nil), h.Counts...),
	}
}

// Total returns the sum of all bins.
func (h Histogram) Total() float64 {
	sum := 0.0
	for _, c := range h.Counts {
		sum += c
	}
	return sum
}

// fill bins the alive particles of dt into h.Counts and returns how many
// alive particles fell outside [CutLeft, CutRight).
func (s *Slicer) fill(dt []float64, id []int) int {
	h := &s.Histogram
	n := len(h.Counts)
	numChunks := dynamo.NumChunks(len(dt), chunkSize)
	partials := make([][]float64, numChunks)
	outside := make([]int, numChunks)

	lo, hi := h.CutLeft, h.CutRight
	invWidth := float64(n) / (hi - lo)
	smooth := s.mode == Smooth

	dynamo.ParallelChunks(len(dt), chunkSize, func(c, start, end int) {
		buf := s.pool.Get()
		out := 0
		for i := start; i < end; i++ {
			if id[i] == 0 {
				continue
			}
			a := dt[i]
			if a < lo || a >= hi || math.IsNaN(a) {
				out++
				continue
			}
			if smooth {
				depositSmooth(buf, (a-lo)*invWidth)
				continue
			}
			bin := int((a - lo) * invWidth)
			if bin >= n {
				bin = n - 1
			}
			buf[bin]++
		}
		partials[c] = buf
		outside[c] = out
	})

	for i := range h.Counts {
		h.Counts[i] = 0
	}
	total := 0
	for c, buf := range partials {
		for i, v := range buf {
			h.Counts[i] += v
		}
		total += outside[c]
		s.pool.Put(buf)
	}
	return total
}

// depositSmooth shares one particle between the two bins whose centres
// bracket it, in proportion to the distance. Between an outer edge and the
// outermost centre the whole weight goes to the edge bin.
func depositSmooth(buf []float64, pos float64) {
	n := len(buf)
	u := pos - 0.5
	j := int(math.Floor(u))
	frac := u - float64(j)
	switch {
	case j < 0:
		buf[0]++
	case j >= n-1:
		buf[n-1]++
	default:
		buf[j] += 1 - frac
		buf[j+1] += frac
	}
}
