package coverage

import (
	"math"

	"github.com/pspoerri/camfootprint/internal/catalog"
	"github.com/pspoerri/camfootprint/internal/coord"
)

const (
	// minFootprintPixels is the width the narrowest footprint should span
	// at the deepest automatic zoom.
	minFootprintPixels = 64
	maxAutoZoom        = 16
)

// AutoZoomRange picks the zoom range for fps: maxZoom is the first level at
// which the narrowest footprint spans minFootprintPixels, minZoom six levels
// above it.
func AutoZoomRange(fps []Footprint, tileSize int) (minZoom, maxZoom int) {
	for _, f := range fps {
		w := f.Bound.Max[0] - f.Bound.Min[0]
		if w <= 0 {
			continue
		}
		z := int(math.Ceil(math.Log2(minFootprintPixels * 360 / (float64(tileSize) * w))))
		maxZoom = max(maxZoom, z)
	}
	maxZoom = min(max(maxZoom, 0), maxAutoZoom)
	minZoom = max(maxZoom-6, 0)
	return
}

// ResolutionZoom returns the deepest zoom whose pixels are no finer than the
// finest ground sample among the cameras of idx. ok is false when no camera
// has a finite scale.
func ResolutionZoom(idx *catalog.Index, tileSize int) (zoom int, ok bool) {
	ref := idx.Reference()
	finest := math.Inf(1)
	for _, e := range idx.Entries() {
		s := e.Result.Scale
		if !e.Result.Valid() || math.IsInf(s, 0) || !(s > 0) {
			continue
		}
		if ref.IsProjected() {
			s = s / ref.Datum().SemiMajorAxis() * 180 / math.Pi
		}
		finest = min(finest, s)
	}
	if math.IsInf(finest, 1) {
		return 0, false
	}
	return zoomForDegrees(finest, tileSize), true
}

// zoomForDegrees maps a sample spacing in degrees of arc to a zoom level.
func zoomForDegrees(deg float64, tileSize int) int {
	return coord.MaxZoomForResolution(deg/360*coord.EarthCircumference, 0, tileSize)
}
