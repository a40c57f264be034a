// Package coverage renders camera footprints into Web Mercator raster tiles.
// Each pixel counts the footprints that contain it.
package coverage

import (
	"github.com/paulmach/orb"

	"github.com/pspoerri/camfootprint/internal/catalog"
	"github.com/pspoerri/camfootprint/internal/coord"
)

// Footprint is one camera footprint in lon/lat degrees, with longitudes
// inside [-180, 180] as far as the ring allows.
type Footprint struct {
	Name    string
	Polygon orb.Polygon
	Bound   orb.Bound
}

// Footprints returns the footprints of every valid camera in idx. A ring
// that crosses the antimeridian yields one copy per side.
func Footprints(idx *catalog.Index) []Footprint {
	var fps []Footprint
	for _, e := range idx.Entries() {
		poly, ok := idx.Polygon(e)
		if !ok {
			continue
		}
		fps = append(fps, NewFootprints(e.Name, poly)...)
	}
	return fps
}

// NewFootprints unwraps the rings of poly so consecutive vertices never
// jump by more than 180° of longitude, then adds copies shifted by ±360°
// for the parts that leave [-180, 180].
func NewFootprints(name string, poly orb.Polygon) []Footprint {
	unwrapped := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		unwrapped[i] = unwrapRing(ring)
	}

	b := unwrapped.Bound()
	fps := []Footprint{{Name: name, Polygon: unwrapped, Bound: b}}
	if b.Max[0] > 180 {
		p := shiftPolygon(unwrapped, -360)
		fps = append(fps, Footprint{Name: name, Polygon: p, Bound: p.Bound()})
	}
	if b.Min[0] < -180 {
		p := shiftPolygon(unwrapped, 360)
		fps = append(fps, Footprint{Name: name, Polygon: p, Bound: p.Bound()})
	}
	return fps
}

func unwrapRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		if i > 0 {
			prev := out[i-1][0]
			for p[0]-prev > 180 {
				p[0] -= 360
			}
			for p[0]-prev < -180 {
				p[0] += 360
			}
		}
		out[i] = p
	}
	return out
}

func shiftPolygon(poly orb.Polygon, dx float64) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		r := make(orb.Ring, len(ring))
		for j, p := range ring {
			r[j] = orb.Point{p[0] + dx, p[1]}
		}
		out[i] = r
	}
	return out
}

// Bound returns the union of the footprint bounds clipped to the Web
// Mercator world.
func Bound(fps []Footprint) (orb.Bound, bool) {
	world := orb.Bound{
		Min: orb.Point{-180, -coord.MaxMercatorLat},
		Max: orb.Point{180, coord.MaxMercatorLat},
	}

	var b orb.Bound
	found := false
	for _, f := range fps {
		if !f.Bound.Intersects(world) {
			continue
		}
		clipped := orb.Bound{
			Min: orb.Point{max(f.Bound.Min[0], world.Min[0]), max(f.Bound.Min[1], world.Min[1])},
			Max: orb.Point{min(f.Bound.Max[0], world.Max[0]), min(f.Bound.Max[1], world.Max[1])},
		}
		if !found {
			b, found = clipped, true
			continue
		}
		b = b.Union(clipped)
	}
	return b, found
}
