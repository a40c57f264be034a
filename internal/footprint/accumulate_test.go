package footprint

import (
	"math"
	"slices"
	"testing"

	"github.com/golang/geo/r2"
)

func hit(x, y float64) sample { return sample{point: r2.Point{X: x, Y: y}, hit: true} }

var miss = sample{}

func runFold(samples []sample, centerOnZero, projected bool) foldState {
	return fold(newFoldState(), slices.Values(samples), centerOnZero, projected, nil)
}

func TestStep_LongitudeUnwrap(t *testing.T) {
	tests := []struct {
		name         string
		centerOnZero bool
		projected    bool
		in           r2.Point
		want         r2.Point
	}{
		{"unwrapped", true, false, r2.Point{X: 190, Y: 10}, r2.Point{X: -170, Y: 10}},
		{"at 180 kept", true, false, r2.Point{X: 180, Y: 10}, r2.Point{X: 180, Y: 10}},
		{"far from zero", false, false, r2.Point{X: 190, Y: 10}, r2.Point{X: 190, Y: 10}},
		{"projected", true, true, r2.Point{X: 190, Y: 10}, r2.Point{X: 190, Y: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := step(newFoldState(), sample{point: tt.in, hit: true}, tt.centerOnZero, tt.projected)
			if s.last != tt.want {
				t.Errorf("last = %v, want %v", s.last, tt.want)
			}
			if !s.box.ContainsPoint(tt.want) {
				t.Errorf("box %v does not contain %v", s.box, tt.want)
			}
			if tt.want != tt.in && s.box.ContainsPoint(tt.in) {
				t.Errorf("box %v still contains the raw point %v", s.box, tt.in)
			}
		})
	}
}

func TestFold_MissBreaksDistanceChain(t *testing.T) {
	s := runFold([]sample{hit(0, 0), hit(10, 0), miss, hit(10.5, 0)}, false, true)
	if s.minDist != 10 {
		t.Errorf("minDist = %v, want 10 (gap must not be measured)", s.minDist)
	}
	if !s.box.ContainsPoint(r2.Point{X: 10.5}) {
		t.Errorf("box %v does not contain the sample after the gap", s.box)
	}

	// Tracking resumes after the first hit following a miss.
	s = runFold([]sample{hit(0, 0), hit(10, 0), miss, hit(10.5, 0), hit(13, 0)}, false, true)
	if s.minDist != 2.5 {
		t.Errorf("minDist = %v, want 2.5", s.minDist)
	}
}

func TestFold_SegmentsResetChainButKeepMinimum(t *testing.T) {
	s := newFoldState()
	s = fold(s, slices.Values([]sample{hit(0, 0), hit(3, 4)}), false, true, nil)
	if s.minDist != 5 {
		t.Fatalf("minDist = %v, want 5", s.minDist)
	}

	// The next segment starts fresh: (3,4)->(3,4.5) is not measured.
	s = fold(s, slices.Values([]sample{hit(3, 4.5), hit(3, 100)}), false, true, nil)
	if s.minDist != 5 {
		t.Errorf("minDist = %v, want 5 kept across segments", s.minDist)
	}
	if want := r2.RectFromPoints(r2.Point{}, r2.Point{X: 3, Y: 100}); s.box != want {
		t.Errorf("box = %v, want %v", s.box, want)
	}
}

func TestFold_MinimumNeverIncreases(t *testing.T) {
	samples := []sample{hit(0, 0), hit(1, 0), hit(100, 0), miss, hit(0, 0), hit(0, 50)}
	s := newFoldState()
	prev := s.minDist
	for _, smp := range samples {
		s = step(s, smp, false, true)
		if s.minDist > prev {
			t.Fatalf("minDist grew from %v to %v", prev, s.minDist)
		}
		prev = s.minDist
	}
	if s.minDist != 1 {
		t.Errorf("minDist = %v, want 1", s.minDist)
	}
}

func TestFold_OnlyMisses(t *testing.T) {
	s := runFold([]sample{miss, miss, miss}, true, false)
	if !s.box.IsEmpty() {
		t.Errorf("box = %v, want empty", s.box)
	}
	if !math.IsInf(s.minDist, 1) {
		t.Errorf("minDist = %v, want +Inf", s.minDist)
	}
}
