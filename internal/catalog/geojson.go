package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Polygon returns the footprint of e in lon/lat degrees: the ring through the
// border samples that hit, or the bounding box when fewer than three did.
// The second result is false for cameras that miss the datum.
func (idx *Index) Polygon(e *Entry) (orb.Polygon, bool) {
	if !e.Result.Valid() {
		return nil, false
	}

	pts := e.Result.Outline
	if len(pts) < 3 {
		v := e.Result.Box.Vertices()
		pts = v[:]
	}

	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ll := idx.ref.PointToLonLat(p)
		ring = append(ring, orb.Point{ll.X, ll.Y})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, true
}

// Feature returns e as a GeoJSON feature. Box and scale are reported in map
// units of the reference.
func (idx *Index) Feature(e *Entry) (*geojson.Feature, bool) {
	poly, ok := idx.Polygon(e)
	if !ok {
		return nil, false
	}

	f := geojson.NewFeature(poly)
	f.ID = e.Name
	f.BBox = geojson.NewBBox(poly.Bound())

	r := e.Result
	f.Properties["name"] = e.Name
	f.Properties["type"] = e.Type
	f.Properties["cols"] = e.Cols
	f.Properties["rows"] = e.Rows
	f.Properties["box"] = []float64{r.Box.X.Lo, r.Box.Y.Lo, r.Box.X.Hi, r.Box.Y.Hi}
	f.Properties["step"] = r.StepAmount
	f.Properties["samples"] = r.Samples
	f.Properties["hits"] = r.Hits
	f.Properties["center_on_zero"] = r.CenterOnZero
	if !math.IsInf(r.Scale, 0) {
		f.Properties["scale"] = r.Scale
	}
	if !e.Window.Empty() {
		f.Properties["window"] = []int{e.Window.Min.X, e.Window.Min.Y, e.Window.Max.X, e.Window.Max.Y}
	}
	return f, true
}

// FeatureCollection returns the footprints of every camera that sees the
// datum, in job order.
func (idx *Index) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range idx.entries {
		if f, ok := idx.Feature(e); ok {
			fc.Append(f)
		}
	}
	return fc
}

// LonLatBound returns the lon/lat bound of all footprints.
func (idx *Index) LonLatBound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, e := range idx.entries {
		poly, ok := idx.Polygon(e)
		if !ok {
			continue
		}
		if !found {
			b = poly.Bound()
			found = true
			continue
		}
		b = b.Union(poly.Bound())
	}
	return b, found
}

// WriteGeoJSON writes the feature collection to path.
func (idx *Index) WriteGeoJSON(path string) error {
	data, err := json.MarshalIndent(idx.FeatureCollection(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// QueryLonLat is Query for a lon/lat box.
func (idx *Index) QueryLonLat(b orb.Bound) []*Entry {
	lo := idx.ref.LonLatToPoint(r2.Point{X: b.Min[0], Y: b.Min[1]})
	hi := idx.ref.LonLatToPoint(r2.Point{X: b.Max[0], Y: b.Max[1]})
	return idx.Query(r2.RectFromPoints(lo, hi))
}

// CoveringLonLat is Covering for a lon/lat point.
func (idx *Index) CoveringLonLat(lon, lat float64) []*Entry {
	return idx.Covering(idx.ref.LonLatToPoint(r2.Point{X: lon, Y: lat}))
}
