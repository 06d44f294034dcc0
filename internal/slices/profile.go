package slices

import (
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// CFWHM converts a Gaussian FWHM to its standard deviation.
var CFWHM = 2 * math.Sqrt(2*math.Ln2)

// FWHM measures bunch length (4σ equivalent) and position from the half
// maximum crossings of the profile above a baseline shift. ok is false when
// a crossing is not inside the window.
func (s *Slicer) FWHM(shift float64) (bl, bp float64, ok bool) {
	return s.FWHMRange(0, len(s.Counts), shift)
}

// FWHMRange is FWHM restricted to the bins [first, last), used to measure
// one bunch of a train.
func (s *Slicer) FWHMRange(first, last int, shift float64) (bl, bp float64, ok bool) {
	first = max(first, 0)
	last = min(last, len(s.Counts))
	if last-first < 3 {
		return math.NaN(), math.NaN(), false
	}
	c := s.Counts[first:last]
	centers := s.Centers[first:last]
	n := len(c)
	peak := floats.Max(c)
	if peak <= shift {
		return math.NaN(), math.NaN(), false
	}
	half := shift + 0.5*(peak-shift)
	dx := s.BinWidth

	i1 := 0
	for i1 < n && c[i1] < half {
		i1++
	}
	i2 := n - 1
	for i2 >= 0 && c[i2] < half {
		i2--
	}
	if i1 <= 0 || i2 >= n-1 {
		return math.NaN(), math.NaN(), false
	}

	t1 := centers[i1] - (c[i1]-half)/(c[i1]-c[i1-1])*dx
	t2 := centers[i2] + (c[i2]-half)/(c[i2]-c[i2+1])*dx
	return 4 * (t2 - t1) / CFWHM, (t1 + t2) / 2, true
}

// RMS measures the bunch position and 4σ length of the normalized profile.
func (s *Slicer) RMS() (bl, bp float64, ok bool) {
	norm := analysis.Trapz(s.Centers, s.Counts)
	if norm <= 0 || len(s.Counts) < 2 {
		return math.NaN(), math.NaN(), false
	}
	density := make([]float64, len(s.Counts))
	floats.ScaleTo(density, 1/norm, s.Counts)

	moment := make([]float64, len(density))
	floats.MulTo(moment, s.Centers, density)
	bp = analysis.Trapz(s.Centers, moment)

	for i, t := range s.Centers {
		moment[i] = (t - bp) * (t - bp) * density[i]
	}
	return 4 * math.Sqrt(analysis.Trapz(s.Centers, moment)), bp, true
}

// GaussianFit fits A·exp(-(t-μ)²/2σ²) to the profile by least squares and
// returns 4σ and μ. The rms values seed the fit.
func (s *Slicer) GaussianFit() (bl, bp float64, ok bool) {
	rmsBl, rmsBp, ok := s.RMS()
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	peak := floats.Max(s.Counts)
	w := s.BinWidth

	// fit in units of bins and of the peak height
	cost := func(x []float64) float64 {
		mu, sigma, amp := x[0], x[1], x[2]
		if sigma == 0 {
			return math.Inf(1)
		}
		sum := 0.0
		for i, t := range s.Centers {
			u := (t-rmsBp)/w - mu
			r := s.Counts[i]/peak - amp*math.Exp(-u*u/(2*sigma*sigma))
			sum += r * r
		}
		return sum
	}

	x0 := []float64{0, math.Max(rmsBl/4/w, 0.5), 1}
	res, err := optimize.Minimize(optimize.Problem{Func: cost}, x0, nil, &optimize.NelderMead{})
	if err != nil || res == nil {
		return math.NaN(), math.NaN(), false
	}
	sigma := math.Abs(res.X[1]) * w
	return 4 * sigma, rmsBp + res.X[0]*w, true
}

// BeamSpectrum computes the rfft of the profile zero padded to n samples and
// stores it with its frequency axis.
func (s *Slicer) BeamSpectrum(n int) []complex128 {
	s.SpectrumFreq = analysis.RFFTFreq(n, s.BinWidth)
	s.Spectrum = analysis.RFFT(s.Counts, n)
	return s.Spectrum
}

// Derivative returns the bin centres and the profile derivative, by central
// differences ("gradient") or by forward differences interpolated back onto
// the centres ("diff").
func (s *Slicer) Derivative(mode string) ([]float64, []float64, error) {
	if len(s.Counts) < 2 {
		return nil, nil, fmt.Errorf("derivative of %d slices: %w", len(s.Counts), dynamo.ErrSlices)
	}
	x := append([]float64(nil), s.Centers...)
	dx := s.BinWidth
	switch mode {
	case "gradient", "":
		return x, analysis.Gradient(s.Counts, dx), nil
	case "diff":
		d := analysis.Diff(s.Counts)
		floats.Scale(1/dx, d)
		mid := make([]float64, len(d))
		for i := range mid {
			mid[i] = x[i] + dx/2
		}
		return x, analysis.Interp(x, mid, d, d[0], d[len(d)-1]), nil
	default:
		return nil, nil, fmt.Errorf("derivative mode %q: %w", mode, dynamo.ErrInvalidParameter)
	}
}
