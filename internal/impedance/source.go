package impedance

import "github.com/san-kum/longsim/internal/dynamo"

// Source is a wake field description. Wake is evaluated on a time grid in
// seconds (Ω/s) and Impedance on a frequency grid in Hz (Ω). Both are pure.
type Source interface {
	Name() string
	Wake(t []float64) []float64
	Impedance(f []float64) []complex128
}

// gridChunk is the minimum number of grid points handed to one worker.
const gridChunk = 1024

// SumWake superposes the wakes of all sources.
func SumWake(sources []Source, t []float64) []float64 {
	out := make([]float64, len(t))
	for _, s := range sources {
		w := s.Wake(t)
		for i := range out {
			out[i] += w[i]
		}
	}
	return out
}

// SumImpedance superposes the impedances of all sources.
func SumImpedance(sources []Source, f []float64) []complex128 {
	out := make([]complex128, len(f))
	for _, s := range sources {
		z := s.Impedance(f)
		for i := range out {
			out[i] += z[i]
		}
	}
	return out
}

func evalReal(x []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(x))
	dynamo.ParallelFor(len(x), gridChunk, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = fn(x[i])
		}
	})
	return out
}

func evalComplex(x []float64, fn func(float64) complex128) []complex128 {
	out := make([]complex128, len(x))
	dynamo.ParallelFor(len(x), gridChunk, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = fn(x[i])
		}
	})
	return out
}
