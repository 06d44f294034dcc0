package analysis

import (
	"strings"
)

// PhaseSpace is a point cloud in the longitudinal (dt, dE) plane.
type PhaseSpace struct {
	Dt []float64
	DE []float64
	// ID marks lost particles with 0; nil means every particle is alive.
	ID []int
}

// PhaseSpaceToASCII renders the alive particles as a density scatter with
// ' ', '.', ':', '*' and '#' for increasing counts per cell.
func PhaseSpaceToASCII(ps PhaseSpace, width, height int) string {
	if len(ps.Dt) == 0 || width < 2 || height < 2 {
		return ""
	}

	alive := func(i int) bool { return ps.ID == nil || ps.ID[i] != 0 }

	first := -1
	for i := range ps.Dt {
		if alive(i) {
			first = i
			break
		}
	}
	if first < 0 {
		return ""
	}

	minX, maxX := ps.Dt[first], ps.Dt[first]
	minY, maxY := ps.DE[first], ps.DE[first]
	for i := range ps.Dt {
		if !alive(i) {
			continue
		}
		minX = min(minX, ps.Dt[i])
		maxX = max(maxX, ps.Dt[i])
		minY = min(minY, ps.DE[i])
		maxY = max(maxY, ps.DE[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}

	counts := make([][]int, height)
	for i := range counts {
		counts[i] = make([]int, width)
	}
	peak := 0
	for i := range ps.Dt {
		if !alive(i) {
			continue
		}
		col := int((ps.Dt[i] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((ps.DE[i]-minY)/rangeY*float64(height-1))
		counts[row][col]++
		peak = max(peak, counts[row][col])
	}

	shades := []rune{' ', '.', ':', '*', '#'}
	var sb strings.Builder
	for _, row := range counts {
		for _, c := range row {
			idx := 0
			if c > 0 {
				idx = 1 + (len(shades)-2)*c/peak
			}
			sb.WriteRune(shades[idx])
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
