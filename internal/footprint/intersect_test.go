package footprint

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

func TestDatumIntersection_Miss(t *testing.T) {
	// Closest approach to the centre is 2000 > R.
	got, err := DatumIntersection(testSphere(), r3.Vector{Y: 2000}, r3.Vector{X: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Hit {
		t.Errorf("ray 2000 from the centre hit at %v, want miss", got.Point)
	}
}

func TestDatumIntersection_SphereDistance(t *testing.T) {
	const r = 1000.0
	for _, d := range []float64{1000.5, 1500, 5000, 1e7} {
		origin := r3.Vector{Z: d}
		got, err := DatumIntersection(testSphere(), origin, r3.Vector{Z: -3})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Hit {
			t.Fatalf("d=%v: miss, want hit", d)
		}
		dist := got.Point.Sub(origin).Norm()
		if math.Abs(dist-(d-r))/(d-r) > 1e-6 {
			t.Errorf("d=%v: distance = %v, want %v", d, dist, d-r)
		}
	}
}

func TestDatumIntersection_Ellipsoid(t *testing.T) {
	a := geodesy.WGS84.SemiMajorAxis()
	b := geodesy.WGS84.SemiMinorAxis()

	tests := []struct {
		name   string
		origin r3.Vector
		dir    r3.Vector
		want   r3.Vector
	}{
		{"pole", r3.Vector{Z: 1e7}, r3.Vector{Z: -1}, r3.Vector{Z: b}},
		{"equator", r3.Vector{X: 1e7}, r3.Vector{X: -1}, r3.Vector{X: a}},
		{"south pole", r3.Vector{Z: -2e7}, r3.Vector{Z: 5}, r3.Vector{Z: -b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DatumIntersection(geodesy.WGS84, tt.origin, tt.dir)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Hit || got.Point.Sub(tt.want).Norm() > 1e-6 {
				t.Errorf("got %+v, want hit at %v", got, tt.want)
			}
		})
	}
}

func TestDatumIntersection_OnSurface(t *testing.T) {
	a := geodesy.WGS84.SemiMajorAxis()
	b := geodesy.WGS84.SemiMinorAxis()

	origin := r3.Vector{X: 7e6, Y: -2e6, Z: 5e6}
	for _, dir := range []r3.Vector{
		{X: -1, Y: 0.1, Z: -0.8},
		{X: -0.7, Y: 0.3, Z: -0.6},
		origin.Mul(-1),
	} {
		got, err := DatumIntersection(geodesy.WGS84, origin, dir)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Hit {
			t.Fatalf("dir %v: miss, want hit", dir)
		}
		p := got.Point
		if v := (p.X*p.X+p.Y*p.Y)/(a*a) + p.Z*p.Z/(b*b); math.Abs(v-1) > 1e-9 {
			t.Errorf("dir %v: point %v off the ellipsoid (%v)", dir, p, v)
		}
		// The hit lies on the ray, ahead of the origin.
		if along := p.Sub(origin).Normalize().Dot(dir.Normalize()); math.Abs(along-1) > 1e-9 {
			t.Errorf("dir %v: point %v not on the ray (cos=%v)", dir, p, along)
		}
	}
}

func TestDatumIntersection_Tangent(t *testing.T) {
	got, err := DatumIntersection(testSphere(), r3.Vector{X: -5000, Y: 1000}, r3.Vector{X: 1})
	if err != nil {
		t.Fatal(err)
	}
	want := r3.Vector{Y: 1000}
	if !got.Hit || got.Point.Sub(want).Norm() > 1e-9 {
		t.Errorf("tangent ray = %+v, want hit at %v", got, want)
	}
}

func TestDatumIntersection_BehindOrigin(t *testing.T) {
	// Looking away from the body: the near root is behind the camera.
	got, err := DatumIntersection(testSphere(), r3.Vector{Z: 5000}, r3.Vector{Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Hit {
		t.Errorf("ray pointing away hit at %v, want miss", got.Point)
	}
}

func TestDatumIntersection_InvalidInput(t *testing.T) {
	_, err := DatumIntersection(testSphere(), r3.Vector{X: 5000}, r3.Vector{})
	if !errors.Is(err, ErrZeroDirection) {
		t.Errorf("zero direction error = %v, want ErrZeroDirection", err)
	}

	_, err = DatumIntersection(geodesy.Datum{}, r3.Vector{X: 5000}, r3.Vector{X: -1})
	if !errors.Is(err, geodesy.ErrInvalidDatum) {
		t.Errorf("zero datum error = %v, want ErrInvalidDatum", err)
	}
}

func TestScaleZ_RoundTrip(t *testing.T) {
	zScale := geodesy.WGS84.SemiMajorAxis() / geodesy.WGS84.SemiMinorAxis()
	p := geodesy.WGS84.GeodeticToCartesian(r3.Vector{X: 47.1, Y: -33.3, Z: 0})

	got := scaleZ(scaleZ(p, zScale), 1/zScale)
	if got.Sub(p).Norm() > 1e-8 {
		t.Errorf("scale/unscale %v = %v", p, got)
	}
	if got.X != p.X || got.Y != p.Y {
		t.Errorf("scaleZ touched x/y: %v -> %v", p, got)
	}
}

func TestCameraIntersection(t *testing.T) {
	cam := nadirCamera(100, 100)
	got, err := CameraIntersection(testSphere(), cam, r2.Point{X: 50, Y: 50})
	if err != nil {
		t.Fatal(err)
	}
	want := r3.Vector{X: 1000}
	if !got.Hit || got.Point.Sub(want).Norm() > 1e-9 {
		t.Errorf("centre pixel = %+v, want hit at %v", got, want)
	}
}

func TestGeospatialIntersect(t *testing.T) {
	g := testGeoref{datum: testSphere(), projected: true}

	pt, ok, err := GeospatialIntersect(g, r3.Vector{X: 5000}, r3.Vector{X: -1})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || pt.Norm() > 1e-9 {
		t.Errorf("equator hit = %v (ok=%v), want origin", pt, ok)
	}

	// 90°E on the equator, projected to meters along the equator.
	pt, ok, _ = GeospatialIntersect(g, r3.Vector{Y: 5000}, r3.Vector{Y: -1})
	if want := 1000 * math.Pi / 2; !ok || math.Abs(pt.X-want) > 1e-6 || math.Abs(pt.Y) > 1e-6 {
		t.Errorf("90E hit = %v (ok=%v), want (%v, 0)", pt, ok, want)
	}

	_, ok, err = GeospatialIntersect(g, r3.Vector{X: 5000}, r3.Vector{X: 1})
	if err != nil || ok {
		t.Errorf("away ray: ok=%v err=%v, want miss without error", ok, err)
	}
}
