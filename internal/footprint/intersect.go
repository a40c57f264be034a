// Package footprint computes the ground footprint of a camera image: the
// bounding box in map coordinates covered by the image and an estimate of its
// ground sample distance.
package footprint

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// ErrZeroDirection is returned when a ray has no direction.
var ErrZeroDirection = errors.New("ray direction is the zero vector")

// Camera maps image pixels to rays in the body-fixed frame of the datum.
type Camera interface {
	CameraCenter(pix r2.Point) r3.Vector
	PixelToVector(pix r2.Point) r3.Vector
}

// Intersection is the result of casting a ray at a datum. Point is only
// meaningful when Hit is set.
type Intersection struct {
	Point r3.Vector
	Hit   bool
}

// DatumIntersection returns the first point where the ray from origin along
// dir meets the datum ellipsoid. Rays that miss, or whose nearest root lies
// behind the origin, report Hit == false. A tangent ray is a hit.
func DatumIntersection(d geodesy.Datum, origin, dir r3.Vector) (Intersection, error) {
	if dir.Norm2() == 0 {
		return Intersection{}, ErrZeroDirection
	}
	if err := d.Validate(); err != nil {
		return Intersection{}, err
	}

	// Stretch z so the spheroid becomes a sphere of radius a.
	radius := d.SemiMajorAxis()
	zScale := radius / d.SemiMinorAxis()
	o := scaleZ(origin, zScale)
	u := scaleZ(dir, zScale).Normalize()

	alpha := -o.Dot(u)
	projection := o.Add(u.Mul(alpha))
	gap := radius*radius - projection.Norm2()
	if gap < 0 {
		return Intersection{}, nil
	}

	alpha -= math.Sqrt(gap)
	if alpha < 0 {
		return Intersection{}, nil
	}
	return Intersection{Point: scaleZ(o.Add(u.Mul(alpha)), 1/zScale), Hit: true}, nil
}

// CameraIntersection casts the ray through pixel pix of cam at the datum.
func CameraIntersection(d geodesy.Datum, cam Camera, pix r2.Point) (Intersection, error) {
	return DatumIntersection(d, cam.CameraCenter(pix), cam.PixelToVector(pix))
}

func scaleZ(v r3.Vector, s float64) r3.Vector {
	v.Z *= s
	return v
}
