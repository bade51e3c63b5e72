package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Series is one named line on a chart. Values are on the 0-100 scale.
type Series struct {
	Name   string
	Values []float64
}

// Chart renders series as braille line charts. The rows holding the
// wellbeing profile boundaries carry a dotted guide.
type Chart struct {
	Title string
	// Width is the number of plot columns; 0 sizes the chart to the terminal.
	Width  int
	Height int
	Color  bool
}

const (
	chartMinColumns   = 10
	chartDefaultRows  = 10
	chartGutter       = 6 // "100 ┤ "
	fallbackTermWidth = 80
	guideRune         = '┈'
)

type stroke struct {
	name string
	// mask is the on/off pattern over eight dot columns.
	mask uint8
}

var strokes = []stroke{
	{name: "solid", mask: 0xFF},
	{name: "dashed", mask: 0x0F},
	{name: "dotted", mask: 0x11},
}

var seriesColors = []color.Attribute{color.FgCyan, color.FgMagenta, color.FgYellow, color.FgGreen}

// Score boundaries between the BALANCED, MODERATE and HIGH_STRAIN profiles.
var guideLevels = []float64{80, 60}

// brailleBits maps a dot inside a cell, indexed [row][column], to its bit.
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Render writes the chart. Series without values are skipped; nothing is
// written when none remain.
func (c Chart) Render(w io.Writer, series ...Series) error {
	lines := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	cols := c.Width
	if cols <= 0 {
		cols = chartColumns(terminalWidth())
	}
	cols = max(cols, chartMinColumns)
	rows := c.Height
	if rows <= 0 {
		rows = chartDefaultRows
	}

	layers := make([]*canvas, len(lines))
	for i, s := range lines {
		layers[i] = newCanvas(cols, rows)
		layers[i].polyline(fitSeries(s.Values, cols), strokes[i%len(strokes)])
	}
	paint := c.painters(len(lines))

	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteByte('\n')
	}
	for _, s := range lines {
		lo, hi := valueRange(s.Values)
		fmt.Fprintf(&b, "%s: last %.1f, range %.1f-%.1f\n", s.Name, s.Values[len(s.Values)-1], lo, hi)
	}

	labels := axisLabels(rows)
	guides := guideRows(rows)
	for y := 0; y < rows; y++ {
		fmt.Fprintf(&b, "%3s ┤ ", labels[y])
		for x := 0; x < cols; x++ {
			mask, owner := uint8(0), -1
			for i, layer := range layers {
				if m := layer.dots[y][x]; m != 0 {
					mask |= m
					if owner < 0 {
						owner = i
					}
				}
			}
			switch {
			case owner >= 0:
				b.WriteString(paint[owner](string(brailleRune(mask))))
			case guides[y]:
				b.WriteRune(guideRune)
			default:
				b.WriteRune(brailleRune(0))
			}
		}
		b.WriteByte('\n')
	}

	legend := make([]string, len(lines))
	for i, s := range lines {
		legend[i] = paint[i](fmt.Sprintf("%s (%s)", s.Name, strokes[i%len(strokes)].name))
	}
	b.WriteString("Legend: ")
	b.WriteString(strings.Join(legend, "  "))
	b.WriteString("\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (c Chart) painters(n int) []func(a ...interface{}) string {
	out := make([]func(a ...interface{}) string, n)
	plain := !c.Color || os.Getenv("NO_COLOR") != ""
	for i := range out {
		if plain {
			out[i] = fmt.Sprint
			continue
		}
		col := color.New(seriesColors[i%len(seriesColors)])
		col.EnableColor()
		out[i] = col.SprintFunc()
	}
	return out
}

// chartColumns returns the plot columns that fit next to the axis gutter.
func chartColumns(totalWidth int) int {
	if totalWidth <= 0 {
		return chartMinColumns
	}
	return max(totalWidth-chartGutter, chartMinColumns)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

// axisLabels marks the rows for 100, 0 and the profile boundaries. When two
// levels land on the same row the earlier one keeps it.
func axisLabels(rows int) []string {
	labels := make([]string, rows)
	for _, level := range append([]float64{100, 0}, guideLevels...) {
		row := dotRow(level, rows)
		if labels[row] == "" {
			labels[row] = fmt.Sprintf("%.0f", level)
		}
	}
	return labels
}

func guideRows(rows int) []bool {
	out := make([]bool, rows)
	for _, level := range guideLevels {
		out[dotRow(level, rows)] = true
	}
	return out
}

// dotRow maps a 0-100 value onto one of n rows, 100 at the top.
func dotRow(v float64, n int) int {
	if n <= 1 {
		return 0
	}
	v = math.Max(0, math.Min(100, v))
	return int(math.Round((1 - v/100) * float64(n-1)))
}

type canvas struct {
	dots [][]uint8
}

func newCanvas(cols, rows int) *canvas {
	dots := make([][]uint8, rows)
	for i := range dots {
		dots[i] = make([]uint8, cols)
	}
	return &canvas{dots: dots}
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 || y/4 >= len(c.dots) || x/2 >= len(c.dots[y/4]) {
		return
	}
	c.dots[y/4][x/2] |= brailleBits[y%4][x%2]
}

// polyline plots one value per cell column and joins neighbours.
func (c *canvas) polyline(values []float64, s stroke) {
	height := len(c.dots) * 4
	px, py := -1, -1
	for i, v := range values {
		x, y := i*2, dotRow(v, height)
		if px < 0 {
			if s.on(x) {
				c.set(x, y)
			}
		} else {
			c.segment(px, py, x, y, s)
		}
		px, py = x, y
	}
}

func (c *canvas) segment(x0, y0, x1, y1 int, s stroke) {
	steps := max(absInt(x1-x0), absInt(y1-y0))
	if steps == 0 {
		if s.on(x0) {
			c.set(x0, y0)
		}
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		if s.on(x) {
			c.set(x, y)
		}
	}
}

func (s stroke) on(x int) bool {
	return s.mask>>(uint(x)%8)&1 == 1
}

func brailleRune(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

// fitSeries stretches or squeezes values to exactly n points. Longer input is
// averaged per bucket; shorter input is linearly interpolated.
func fitSeries(values []float64, n int) []float64 {
	switch {
	case len(values) == n:
		return append([]float64(nil), values...)
	case len(values) > n:
		return bucketMeans(values, n)
	default:
		return interpolate(values, n)
	}
}

func bucketMeans(values []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		lo := i * len(values) / n
		hi := (i + 1) * len(values) / n
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

func interpolate(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	step := float64(len(values)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		out[i] = values[j] + (values[j+1]-values[j])*(pos-float64(j))
	}
	return out
}

func valueRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
