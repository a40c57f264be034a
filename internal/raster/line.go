// Package raster provides integer line traversal over a pixel grid.
package raster

import (
	"image"
	"iter"
)

// Line is a Bresenham traversal from Start toward End. The end point itself is
// not visited, so consecutive lines sharing an endpoint never visit it twice.
type Line struct {
	Start, End image.Point
}

// NewLine returns the line from (x0, y0) toward (x1, y1).
func NewLine(x0, y0, x1, y1 int) Line {
	return Line{Start: image.Pt(x0, y0), End: image.Pt(x1, y1)}
}

// Len returns the number of pixels the line visits.
func (l Line) Len() int {
	dx := abs(l.End.X - l.Start.X)
	dy := abs(l.End.Y - l.Start.Y)
	if dy > dx {
		return dy
	}
	return dx
}

// Count returns the number of pixels Samples(step) yields.
func (l Line) Count(step int) int {
	step = max(step, 1)
	return (l.Len() + step - 1) / step
}

// Samples yields every step-th pixel of the line, starting with Start.
// A step below 1 is treated as 1.
func (l Line) Samples(step int) iter.Seq[image.Point] {
	if step < 1 {
		step = 1
	}
	return func(yield func(image.Point) bool) {
		x0, y0, x1, y1 := l.Start.X, l.Start.Y, l.End.X, l.End.Y

		// Walk along the major axis; swap coordinates when the line is steep.
		steep := abs(y1-y0) > abs(x1-x0)
		if steep {
			x0, y0 = y0, x0
			x1, y1 = y1, x1
		}

		deltaX := abs(x1 - x0)
		deltaY := abs(y1 - y0)
		xStep, yStep := 1, 1
		if x0 > x1 {
			xStep = -1
		}
		if y0 > y1 {
			yStep = -1
		}

		x, y := x0, y0
		e := deltaX / 2
		for i := 0; x != x1; i++ {
			if i%step == 0 {
				p := image.Pt(x, y)
				if steep {
					p = image.Pt(y, x)
				}
				if !yield(p) {
					return
				}
			}
			x += xStep
			e -= deltaY
			if e < 0 {
				y += yStep
				e += deltaX
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
