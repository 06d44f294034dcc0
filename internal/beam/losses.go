package beam

import "github.com/san-kum/longsim/internal/dynamo"

// CutLongitudinal marks every particle with dt outside [lo, hi] as lost.
func (b *Ensemble) CutLongitudinal(lo, hi float64) {
	cut(b.Dt, b.ID, lo, hi)
}

// CutEnergy marks every particle with dE outside [lo, hi] as lost.
func (b *Ensemble) CutEnergy(lo, hi float64) {
	cut(b.DE, b.ID, lo, hi)
}

// Keep marks every particle whose mask entry is false as lost.
func (b *Ensemble) Keep(mask []bool) {
	dynamo.ParallelFor(len(b.ID), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			if !mask[i] {
				b.ID[i] = 0
			}
		}
	})
}

func cut(x []float64, id []int, lo, hi float64) {
	dynamo.ParallelFor(len(x), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			if (x[i]-lo)*(hi-x[i]) < 0 {
				id[i] = 0
			}
		}
	})
}
