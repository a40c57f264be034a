package footprint

import (
	"iter"
	"math"

	"github.com/golang/geo/r2"
)

// sample is one visited pixel projected onto the map, or a miss.
type sample struct {
	point r2.Point
	hit   bool
}

// foldState accumulates the bounding box and the smallest distance between
// consecutive hits. minDist only ever decreases.
type foldState struct {
	lastValid bool
	last      r2.Point
	minDist   float64
	box       r2.Rect
}

func newFoldState() foldState {
	return foldState{minDist: math.Inf(1), box: r2.EmptyRect()}
}

// step folds one sample into the state. A miss breaks the chain so the next
// hit does not measure a distance across the gap. centerOnZero and projected
// are constant for a run.
func step(s foldState, smp sample, centerOnZero, projected bool) foldState {
	if !smp.hit {
		s.lastValid = false
		return s
	}

	p := smp.point
	if !projected && centerOnZero && p.X > 180 {
		p.X -= 360
	}

	if s.lastValid {
		if dist := p.Sub(s.last).Norm(); dist < s.minDist {
			s.minDist = dist
		}
	}
	s.last = p
	s.box = s.box.AddPoint(p)
	s.lastValid = true
	return s
}

// fold runs one segment through step. The chain is reset at the start of the
// segment; the box and minimum distance carry over. visit, if non-nil, sees
// the state after every sample.
func fold(s foldState, samples iter.Seq[sample], centerOnZero, projected bool, visit func(sample, foldState)) foldState {
	s.lastValid = false
	for smp := range samples {
		s = step(s, smp, centerOnZero, projected)
		if visit != nil {
			visit(smp, s)
		}
	}
	return s
}
