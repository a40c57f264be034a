package footprint

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// gridCamera looks from center along forward; pixel offsets from the image
// centre tilt the ray along right and down.
type gridCamera struct {
	center, forward, right, down r3.Vector
	cols, rows                   float64
	tilt                         float64
}

func (c gridCamera) CameraCenter(r2.Point) r3.Vector { return c.center }

func (c gridCamera) PixelToVector(p r2.Point) r3.Vector {
	return c.forward.
		Add(c.right.Mul((p.X - c.cols/2) * c.tilt)).
		Add(c.down.Mul((p.Y - c.rows/2) * c.tilt))
}

// nadirCamera hovers over lon 0 at twice the radius of a unit-1000 sphere.
func nadirCamera(cols, rows float64) gridCamera {
	return gridCamera{
		center:  r3.Vector{X: 2000},
		forward: r3.Vector{X: -1},
		right:   r3.Vector{Y: 1},
		down:    r3.Vector{Z: -1},
		cols:    cols,
		rows:    rows,
		tilt:    0.002,
	}
}

type testGeoref struct {
	datum     geodesy.Datum
	projected bool
	lon360    bool
}

func (g testGeoref) Datum() geodesy.Datum { return g.datum }
func (g testGeoref) IsProjected() bool    { return g.projected }

func (g testGeoref) LonLatToPoint(ll r2.Point) r2.Point {
	if g.lon360 && ll.X < 0 {
		ll.X += 360
	}
	if g.projected {
		k := g.datum.SemiMajorAxis() * math.Pi / 180
		return r2.Point{X: ll.X * k, Y: ll.Y * k}
	}
	return ll
}

func testSphere() geodesy.Datum {
	d, err := geodesy.Sphere("test", 1000)
	if err != nil {
		panic(err)
	}
	return d
}
