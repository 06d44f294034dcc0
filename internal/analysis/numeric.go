package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// Linspace returns n evenly spaced samples over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	if n < 1 {
		return nil
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Trapz integrates y sampled at x with the trapezoid rule.
func Trapz(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, y)
}

// CumTrapz returns the running trapezoid integral of y with uniform spacing
// dx. The result has len(y)-1 entries, like scipy's cumtrapz without initial.
func CumTrapz(y []float64, dx float64) []float64 {
	if len(y) < 2 {
		return nil
	}
	out := make([]float64, len(y)-1)
	acc := 0.0
	for i := 1; i < len(y); i++ {
		acc += 0.5 * dx * (y[i] + y[i-1])
		out[i-1] = acc
	}
	return out
}

// Interp evaluates the piecewise linear interpolant of (xp, fp) at every x.
// Points below xp[0] get left and points above the last xp get right.
// xp must be strictly increasing.
func Interp(x, xp, fp []float64, left, right float64) []float64 {
	out := make([]float64, len(x))
	if len(xp) == 0 {
		for i := range out {
			out[i] = left
		}
		return out
	}
	if len(xp) == 1 {
		for i, v := range x {
			switch {
			case v < xp[0]:
				out[i] = left
			case v > xp[0]:
				out[i] = right
			default:
				out[i] = fp[0]
			}
		}
		return out
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xp, fp); err != nil {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	lo, hi := xp[0], xp[len(xp)-1]
	for i, v := range x {
		switch {
		case v < lo:
			out[i] = left
		case v > hi:
			out[i] = right
		default:
			out[i] = pl.Predict(v)
		}
	}
	return out
}

// InterpAt is Interp for a single point on a sorted grid, without allocation.
func InterpAt(v float64, xp, fp []float64, left, right float64) float64 {
	n := len(xp)
	if n == 0 || v < xp[0] {
		return left
	}
	if v > xp[n-1] {
		return right
	}
	j := sort.SearchFloat64s(xp, v)
	if j == 0 {
		return fp[0]
	}
	if xp[j] == v {
		return fp[j]
	}
	t := (v - xp[j-1]) / (xp[j] - xp[j-1])
	return fp[j-1] + t*(fp[j]-fp[j-1])
}

// Gradient returns second order central differences in the interior and
// first order differences at the edges, for uniform spacing dx.
func Gradient(y []float64, dx float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = (y[1] - y[0]) / dx
	out[n-1] = (y[n-1] - y[n-2]) / dx
	for i := 1; i < n-1; i++ {
		out[i] = (y[i+1] - y[i-1]) / (2 * dx)
	}
	return out
}

// Diff returns y[i+1]-y[i].
func Diff(y []float64) []float64 {
	if len(y) < 2 {
		return nil
	}
	out := make([]float64, len(y)-1)
	for i := range out {
		out[i] = y[i+1] - y[i]
	}
	return out
}
