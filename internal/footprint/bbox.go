package footprint

import (
	"errors"
	"fmt"
	"iter"

	"github.com/golang/geo/r2"

	"github.com/pspoerri/camfootprint/internal/geodesy"
	"github.com/pspoerri/camfootprint/internal/raster"
)

// ErrInvalidImageSize is returned for images without pixels.
var ErrInvalidImageSize = errors.New("image dimensions must be positive")

// Result is the footprint of one camera image.
type Result struct {
	// Box is the footprint in map coordinates. Empty when no ray hit the datum.
	Box r2.Rect
	// Scale is the smallest map distance between consecutive samples divided
	// by StepAmount. +Inf when no two consecutive samples hit.
	Scale float64
	// StepAmount is the pixel stride between samples.
	StepAmount int

	Samples      int
	Hits         int
	CenterOnZero bool

	// Outline holds the map points of the border samples that hit, in
	// traversal order: top, right, bottom then left edge.
	Outline []r2.Point
}

// Valid reports whether any part of the image reached the datum.
func (r Result) Valid() bool {
	return !r.Box.IsEmpty()
}

// StepAmount returns the pixel stride that spreads about 100 samples over the
// perimeter of a cols x rows image, never less than 1.
func StepAmount(cols, rows int32) int {
	return max(1, int((2*int64(cols)+2*int64(rows))/100))
}

// CameraBBox samples the border and the main diagonal of a cols x rows image,
// projects every sample through georef and returns the covered bounding box
// and scale. A camera that never sees the datum yields an invalid Result, not
// an error.
func CameraBBox(georef GeoReference, cam Camera, cols, rows int32) (Result, error) {
	if cols <= 0 || rows <= 0 {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrInvalidImageSize, cols, rows)
	}

	centered, err := CenterOnZero(georef.Datum(), cam)
	if err != nil {
		return Result{}, fmt.Errorf("nadir: %w", err)
	}

	s := &sampler{georef: georef, cam: cam, step: StepAmount(cols, rows)}
	res := Result{StepAmount: s.step, CenterOnZero: centered}
	projected := georef.IsProjected()

	c, r := int(cols), int(rows)
	edges := []raster.Line{
		raster.NewLine(0, 0, c, 0),
		raster.NewLine(c-1, 0, c-1, r),
		raster.NewLine(c-1, r-1, 0, r-1),
		raster.NewLine(0, r-1, 0, 0),
	}
	diagonal := raster.NewLine(0, 0, c, r)

	n := 0
	for _, edge := range edges {
		n += edge.Count(s.step)
	}
	res.Outline = make([]r2.Point, 0, n)

	visit := func(smp sample, st foldState) {
		res.Samples++
		if smp.hit {
			res.Hits++
		}
	}
	outline := func(smp sample, st foldState) {
		visit(smp, st)
		if smp.hit {
			res.Outline = append(res.Outline, st.last)
		}
	}

	state := newFoldState()
	for _, edge := range edges {
		state = fold(state, s.samples(edge), centered, projected, outline)
	}
	state = fold(state, s.samples(diagonal), centered, projected, visit)
	if s.err != nil {
		return Result{}, s.err
	}

	res.Box = state.box
	res.Scale = state.minDist / float64(s.step)
	return res, nil
}

// CenterOnZero reports whether the nadir of pixel (0,0) lies within 90° of
// the prime meridian. The nadir is where the ray from the camera centre
// toward the body centre meets the datum; when it misses, the geocentric
// longitude of the camera centre is used.
func CenterOnZero(d geodesy.Datum, cam Camera) (bool, error) {
	center := cam.CameraCenter(r2.Point{})
	hit, err := DatumIntersection(d, center, center.Mul(-1))
	if err != nil {
		return false, err
	}

	var lon float64
	if hit.Hit {
		lon = d.CartesianToGeodetic(hit.Point).X
	} else {
		lon, _ = geodesy.GeocentricLonLat(center)
	}
	return lon >= -90 && lon <= 90, nil
}

// sampler projects the pixels of a line. The first error stops the run and
// is kept in err.
type sampler struct {
	georef GeoReference
	cam    Camera
	step   int
	err    error
}

func (s *sampler) samples(line raster.Line) iter.Seq[sample] {
	return func(yield func(sample) bool) {
		if s.err != nil {
			return
		}
		for px := range line.Samples(s.step) {
			pix := r2.Point{X: float64(px.X), Y: float64(px.Y)}
			pt, ok, err := GeospatialIntersect(s.georef, s.cam.CameraCenter(pix), s.cam.PixelToVector(pix))
			if err != nil {
				s.err = fmt.Errorf("pixel (%d, %d): %w", px.X, px.Y, err)
				return
			}
			if !yield(sample{point: pt, hit: ok}) {
				return
			}
		}
	}
}
