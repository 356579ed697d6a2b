package viz

import "strings"

// dotBits maps a sub-pixel inside a braille cell to its bit. Rows run top to
// bottom, columns left to right.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a field-by-intensity plot area made of braille cells. Drawing is
// addressed in sub-pixels, two across and four down per cell.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{Width: cols, Height: rows, Grid: make([][]rune, rows)}
	for r := range c.Grid {
		c.Grid[r] = make([]rune, cols)
	}
	c.Clear()
	return c
}

func (c *Canvas) dots() (int, int) { return 2 * c.Width, 4 * c.Height }

// Set lights the sub-pixel (x, y); points off the canvas are dropped.
func (c *Canvas) Set(x, y int) {
	w, h := c.dots()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	c.Grid[y/4][x/2] |= dotBits[y%4][x%2]
}

func (c *Canvas) Clear() {
	for _, row := range c.Grid {
		for i := range row {
			row[i] = brailleBlank
		}
	}
}

// DrawLine joins two sub-pixels with a Bresenham line.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, sx := span(x0, x1)
	dy, sy := span(y0, y1)
	dy = -dy
	e := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// span returns |b-a| and the unit step from a towards b.
func span(a, b int) (int, int) {
	if b < a {
		return a - b, -1
	}
	return b - a, 1
}

// Baseline draws a dotted horizontal rule at intensity v, typically zero.
func (c *Canvas) Baseline(v, lo, hi float64) {
	if v < lo || v > hi {
		return
	}
	w, _ := c.dots()
	_, y := c.toDots(0, 1, v, lo, hi)
	for x := 0; x < w; x += 2 {
		c.Set(x, y)
	}
}

// toDots places sample i of n, with intensity v in [lo, hi], on the
// sub-pixel grid. A flat range sits on the middle row.
func (c *Canvas) toDots(i, n int, v, lo, hi float64) (int, int) {
	w, h := c.dots()
	x := 0
	if n > 1 {
		x = i * (w - 1) / (n - 1)
	}
	if !(hi > lo) {
		return x, h / 2
	}
	return x, int(float64(h-1) * (hi - v) / (hi - lo))
}

// Plot draws ys as a connected trace across the full width.
func (c *Canvas) Plot(ys []float64, lo, hi float64) {
	for i := range ys {
		x, y := c.toDots(i, len(ys), ys[i], lo, hi)
		if i == 0 {
			c.Set(x, y)
			continue
		}
		px, py := c.toDots(i-1, len(ys), ys[i-1], lo, hi)
		c.DrawLine(px, py, x, y)
	}
}

// Scatter marks ys as dots, keeping the first sample that lands in each
// sub-pixel column.
func (c *Canvas) Scatter(ys []float64, lo, hi float64) {
	last := -1
	for i, v := range ys {
		x, y := c.toDots(i, len(ys), v, lo, hi)
		if x != last {
			c.Set(x, y)
			last = x
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.Height * (c.Width*3 + 1))
	for _, row := range c.Grid {
		for _, r := range row {
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
