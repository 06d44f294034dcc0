package impedance

import (
	"fmt"
	"sort"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/dynamo"
)

// InputTable interpolates a loaded wake or impedance table. A table holds
// either a wake or an impedance; the other representation evaluates to zero.
// Queries outside the loaded range return zero.
type InputTable struct {
	Time    []float64
	WakeFn  []float64
	Freq    []float64
	ReZ     []float64
	ImZ     []float64
	isWake  bool
	tabName string
}

// NewWakeTable loads a wake sampled at increasing times.
func NewWakeTable(t, w []float64) (*InputTable, error) {
	if err := checkTable(t, w); err != nil {
		return nil, err
	}
	return &InputTable{
		Time:    append([]float64(nil), t...),
		WakeFn:  append([]float64(nil), w...),
		isWake:  true,
		tabName: "wake_table",
	}, nil
}

// NewImpedanceTable loads an impedance sampled at increasing frequencies. A
// zero impedance at f = 0 is prepended when the table starts above zero.
func NewImpedanceTable(f, re, im []float64) (*InputTable, error) {
	if err := checkTable(f, re); err != nil {
		return nil, err
	}
	if len(im) != len(f) {
		return nil, fmt.Errorf("%d frequencies, %d imaginary values: %w", len(f), len(im), dynamo.ErrSectionMismatch)
	}
	tab := &InputTable{tabName: "impedance_table"}
	if f[0] != 0 {
		tab.Freq = append([]float64{0}, f...)
		tab.ReZ = append([]float64{0}, re...)
		tab.ImZ = append([]float64{0}, im...)
	} else {
		tab.Freq = append([]float64(nil), f...)
		tab.ReZ = append([]float64(nil), re...)
		tab.ImZ = append([]float64(nil), im...)
	}
	return tab, nil
}

func checkTable(x, y []float64) error {
	if len(x) < 2 || len(x) != len(y) {
		return fmt.Errorf("table of %d points and %d values: %w", len(x), len(y), dynamo.ErrSectionMismatch)
	}
	if !sort.SliceIsSorted(x, func(i, j int) bool { return x[i] < x[j] }) {
		return fmt.Errorf("table abscissa not increasing: %w", dynamo.ErrInvalidParameter)
	}
	for i := 1; i < len(x); i++ {
		if x[i] == x[i-1] {
			return fmt.Errorf("duplicate abscissa %g: %w", x[i], dynamo.ErrInvalidParameter)
		}
	}
	return nil
}

func (t *InputTable) Name() string { return t.tabName }

func (t *InputTable) Wake(time []float64) []float64 {
	if !t.isWake {
		return make([]float64, len(time))
	}
	return analysis.Interp(time, t.Time, t.WakeFn, 0, 0)
}

func (t *InputTable) Impedance(f []float64) []complex128 {
	out := make([]complex128, len(f))
	if t.isWake {
		return out
	}
	re := analysis.Interp(f, t.Freq, t.ReZ, 0, 0)
	im := analysis.Interp(f, t.Freq, t.ImZ, 0, 0)
	for i := range out {
		out[i] = complex(re[i], im[i])
	}
	return out
}
