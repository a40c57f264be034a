package footprint

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// GeoReference places geodetic coordinates on a map.
type GeoReference interface {
	Datum() geodesy.Datum
	// IsProjected is false when map points are raw lon/lat degrees.
	IsProjected() bool
	LonLatToPoint(lonlat r2.Point) r2.Point
}

// GeospatialIntersect intersects a ray with the georeference's datum and
// returns the map point of the intersection. When the ray misses, ok is false
// and the point must be ignored. The height above the datum is dropped.
func GeospatialIntersect(g GeoReference, origin, dir r3.Vector) (point r2.Point, ok bool, err error) {
	d := g.Datum()
	hit, err := DatumIntersection(d, origin, dir)
	if err != nil || !hit.Hit {
		return r2.Point{}, false, err
	}
	llh := d.CartesianToGeodetic(hit.Point)
	return g.LonLatToPoint(r2.Point{X: llh.X, Y: llh.Y}), true, nil
}
