package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Its resolution in dots is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y), y growing downwards.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Frame maps data coordinates onto the dots of a canvas.
type Frame struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Valid reports whether both ranges are finite and non-empty.
func (f Frame) Valid() bool {
	ok := func(lo, hi float64) bool {
		return !math.IsNaN(lo) && !math.IsInf(lo, 0) && !math.IsNaN(hi) && !math.IsInf(hi, 0) && hi > lo
	}
	return ok(f.XMin, f.XMax) && ok(f.YMin, f.YMax)
}

func (f Frame) project(c *Canvas, x, y float64) (int, int, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	px := (x - f.XMin) / (f.XMax - f.XMin) * w
	py := (f.YMax - y) / (f.YMax - f.YMin) * h
	if px < 0 || px > w || py < 0 || py > h {
		return 0, 0, false
	}
	return int(math.Round(px)), int(math.Round(py)), true
}

// Scatter sets one dot per point. Points where keep returns false, and
// points outside the frame, are skipped.
func (c *Canvas) Scatter(f Frame, xs, ys []float64, keep func(i int) bool) {
	for i := range xs {
		if keep != nil && !keep(i) {
			continue
		}
		if px, py, ok := f.project(c, xs[i], ys[i]); ok {
			c.Set(px, py)
		}
	}
}

// Polyline joins consecutive points. Segments with an endpoint outside the
// frame are dropped.
func (c *Canvas) Polyline(f Frame, xs, ys []float64) {
	var (
		prevX, prevY int
		prevOK       bool
	)
	for i := range xs {
		px, py, ok := f.project(c, xs[i], ys[i])
		if ok && prevOK {
			c.DrawLine(prevX, prevY, px, py)
		} else if ok {
			c.Set(px, py)
		}
		prevX, prevY, prevOK = px, py, ok
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
