package dynamo

import "math"

// SinTable provides tabulated sine values over one period, linearly
// interpolated. It trades accuracy (below 1e-7 for 8192 entries) for speed in
// the RF kick when a run opts into it.
type SinTable struct {
	sin   []float64
	n     int
	scale float64
}

// DefaultSinTable has 8192 entries.
var DefaultSinTable = NewSinTable(8192)

// NewSinTable tabulates n+1 points of sin over [0, 2π].
func NewSinTable(n int) *SinTable {
	t := &SinTable{
		sin:   make([]float64, n+1),
		n:     n,
		scale: float64(n) / (2 * math.Pi),
	}
	for i := 0; i <= n; i++ {
		t.sin[i] = math.Sin(float64(i) * 2 * math.Pi / float64(n))
	}
	return t
}

// Sin returns the interpolated sine of x.
func (t *SinTable) Sin(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	idx := x * t.scale
	i := int(idx)
	if i >= t.n {
		i = t.n - 1
	}
	frac := idx - float64(i)
	return t.sin[i]*(1-frac) + t.sin[i+1]*frac
}

// FastSin uses the default table.
func FastSin(x float64) float64 {
	return DefaultSinTable.Sin(x)
}
