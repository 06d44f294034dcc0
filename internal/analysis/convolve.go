package analysis

import "github.com/san-kum/longsim/internal/dynamo"

// Convolve returns the full linear convolution of a and b, computed directly.
// Output samples are independent and are split across workers.
func Convolve(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	n := len(a) + len(b) - 1
	out := make([]float64, n)
	dynamo.ParallelFor(n, 64, func(start, end int) {
		for k := start; k < end; k++ {
			lo := k - len(b) + 1
			if lo < 0 {
				lo = 0
			}
			hi := k
			if hi > len(a)-1 {
				hi = len(a) - 1
			}
			sum := 0.0
			for i := lo; i <= hi; i++ {
				sum += a[i] * b[k-i]
			}
			out[k] = sum
		}
	})
	return out
}

// FFTConvolve returns the same result as Convolve through a zero padded FFT
// product of regular length.
func FFTConvolve(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	n := len(a) + len(b) - 1
	nfft := NextRegular(n)
	fa := RFFT(a, nfft)
	fb := RFFT(b, nfft)
	for i := range fa {
		fa[i] *= fb[i]
	}
	return IRFFT(fa, nfft)[:n]
}
