package analysis

import (
	"math"
	"math/bits"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// planMu serializes calls into go-dsp, whose factor tables are shared
// package state.
var planMu sync.Mutex

// RFFT returns the n/2+1 non-negative frequency terms of x zero padded or
// truncated to n samples.
func RFFT(x []float64, n int) []complex128 {
	if n <= 0 {
		return nil
	}
	buf := make([]float64, n)
	copy(buf, x)

	planMu.Lock()
	full := fft.FFTReal(buf)
	planMu.Unlock()

	return full[:n/2+1]
}

// IRFFT inverts RFFT for an output of n real samples. Missing high
// frequency terms are taken as zero; the imaginary parts of the DC and
// Nyquist terms are ignored.
func IRFFT(spectrum []complex128, n int) []float64 {
	if n <= 0 {
		return nil
	}
	full := make([]complex128, n)
	half := n/2 + 1
	for k := 0; k < half && k < len(spectrum); k++ {
		full[k] = spectrum[k]
	}
	if len(spectrum) > 0 {
		full[0] = complex(real(spectrum[0]), 0)
	}
	if n%2 == 0 && n/2 < len(spectrum) {
		full[n/2] = complex(real(spectrum[n/2]), 0)
	}
	for k := 1; k < (n+1)/2 && k < len(spectrum); k++ {
		full[n-k] = cmplx.Conj(spectrum[k])
	}

	planMu.Lock()
	inv := fft.IFFT(full)
	planMu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = real(inv[i])
	}
	return out
}

// RFFTFreq returns the frequencies matching RFFT for n samples spaced d apart.
func RFFTFreq(n int, d float64) []float64 {
	f := make([]float64, n/2+1)
	for k := range f {
		f[k] = float64(k) / (float64(n) * d)
	}
	return f
}

// NextRegular returns the smallest 2^a·3^b·5^c that is >= target.
func NextRegular(target int) int {
	if target <= 6 {
		if target < 1 {
			return 1
		}
		return target
	}
	if target&(target-1) == 0 {
		return target
	}

	match := math.MaxInt
	p5 := 1
	for p5 < target {
		p35 := p5
		for p35 < target {
			// smallest power of two with p35·2^k >= target
			quotient := (target + p35 - 1) / p35
			p2 := 1 << bits.Len(uint(quotient-1))
			n := p2 * p35
			if n == target {
				return n
			}
			if n < match {
				match = n
			}
			p35 *= 3
			if p35 == target {
				return p35
			}
		}
		if p35 < match {
			match = p35
		}
		p5 *= 5
		if p5 == target {
			return p5
		}
	}
	if p5 < match {
		match = p5
	}
	return match
}

// PowerSpectrum returns |RFFT| of the mean-removed series.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	centred := make([]float64, len(data))
	for i, v := range data {
		centred[i] = v - mean
	}
	spec := RFFT(centred, len(centred))
	ps := make([]float64, len(spec))
	for i := range spec {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// DominantFrequency returns the frequency of the largest non-DC peak of a
// series sampled every d.
func DominantFrequency(data []float64, d float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 {
		return 0
	}
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	return RFFTFreq(len(data), d)[best]
}
