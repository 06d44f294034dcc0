package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRegular(t *testing.T) {
	cases := map[int]int{
		1: 1, 5: 5, 7: 8, 11: 12, 13: 15, 17: 18, 97: 100,
		1000: 1000, 1001: 1024, 1025: 1080, 4097: 4320,
	}
	for in, want := range cases {
		assert.Equal(t, want, NextRegular(in), "next regular of %d", in)
	}
}

func TestRFFTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{8, 15, 64, 100} {
		x := make([]float64, n)
		for i := range x {
			x[i] = rng.NormFloat64()
		}
		spec := RFFT(x, n)
		require.Len(t, spec, n/2+1)
		back := IRFFT(spec, n)
		assert.InDeltaSlice(t, x, back, 1e-12, "n=%d", n)
	}
}

func TestRFFTOfConstant(t *testing.T) {
	spec := RFFT([]float64{1, 1, 1, 1}, 8)
	assert.InDelta(t, 4.0, real(spec[0]), 1e-14)
	freq := RFFTFreq(8, 0.5)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1.0}, freq)
}

func TestConvolveMatchesFFT(t *testing.T) {
	a := []float64{1, 2, 3, 0, -1}
	b := []float64{0.5, -1, 2}
	direct := Convolve(a, b)
	require.Len(t, direct, 7)
	assert.InDeltaSlice(t, []float64{0.5, 0, 1.5, 1, 5.5, 1, -2}, direct, 1e-14)
	assert.InDeltaSlice(t, direct, FFTConvolve(a, b), 1e-12)
}

func TestInterp(t *testing.T) {
	xp := []float64{0, 1, 2}
	fp := []float64{0, 10, 0}
	got := Interp([]float64{-1, 0, 0.5, 1.5, 2, 3}, xp, fp, 0, 0)
	assert.InDeltaSlice(t, []float64{0, 0, 5, 5, 0, 0}, got, 1e-12)

	for _, v := range []float64{-1, 0, 0.25, 1, 1.75, 2, 2.5} {
		assert.InDelta(t, InterpAt(v, xp, fp, 0, 0), Interp([]float64{v}, xp, fp, 0, 0)[0], 1e-12)
	}
}

func TestQuadrature(t *testing.T) {
	x := Linspace(0, math.Pi, 2001)
	y := make([]float64, len(x))
	for i := range x {
		y[i] = math.Sin(x[i])
	}
	assert.InDelta(t, 2.0, Trapz(x, y), 1e-6)

	cum := CumTrapz(y, x[1]-x[0])
	require.Len(t, cum, len(y)-1)
	assert.InDelta(t, 2.0, cum[len(cum)-1], 1e-6)

	g := Gradient(y, x[1]-x[0])
	assert.InDelta(t, math.Cos(x[1000]), g[1000], 1e-6)
	assert.Len(t, Diff(y), len(y)-1)
}

func TestDominantFrequency(t *testing.T) {
	n, d, f0 := 1024, 1e-3, 31.25
	x := make([]float64, n)
	for i := range x {
		x[i] = 3 + math.Sin(2*math.Pi*f0*float64(i)*d)
	}
	assert.InDelta(t, f0, DominantFrequency(x, d), 1.0)
}

func TestPhaseSpaceToASCII(t *testing.T) {
	ps := PhaseSpace{Dt: []float64{0, 1, 0.5}, DE: []float64{0, 1, 0.5}, ID: []int{1, 1, 0}}
	out := PhaseSpaceToASCII(ps, 10, 5)
	assert.Contains(t, out, "#")
	assert.Equal(t, "", PhaseSpaceToASCII(PhaseSpace{}, 10, 5))
}
