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
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a Braille dot matrix. Dot coordinates run over
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line with Bresenham's algorithm.
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

// PoleMap plots poles on the s-plane with the origin at the center. Each
// pole is drawn as a small x; the dashed column marks the imaginary axis.
func PoleMap(poles []complex128, w, h int) string {
	c := NewCanvas(w, h)
	dw, dh := w*2, h*4

	r := 1.0
	for _, p := range poles {
		r = math.Max(r, math.Max(math.Abs(real(p)), math.Abs(imag(p))))
	}
	r *= 1.2

	toX := func(re float64) int { return int(math.Round((re + r) / (2 * r) * float64(dw-1))) }
	toY := func(im float64) int { return int(math.Round((r - im) / (2 * r) * float64(dh-1))) }

	ox, oy := toX(0), toY(0)
	c.DrawLine(0, oy, dw-1, oy)
	for y := 0; y < dh; y += 2 {
		c.Set(ox, y)
	}

	for _, p := range poles {
		x, y := toX(real(p)), toY(imag(p))
		c.DrawLine(x-1, y-1, x+1, y+1)
		c.DrawLine(x-1, y+1, x+1, y-1)
	}
	return c.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
