// Package georef ties a datum to a map projection and, for rasters, to a
// pixel grid.
package georef

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/pspoerri/camfootprint/internal/cog"
	"github.com/pspoerri/camfootprint/internal/coord"
	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// ErrUnsupportedProjection is returned for projections this package cannot build.
var ErrUnsupportedProjection = errors.New("unsupported projection")

// GeoReference maps lon/lat on a datum to map points, and optionally map
// points to the pixels of a raster. It is immutable and safe for concurrent use.
type GeoReference struct {
	datum geodesy.Datum
	proj  coord.Projection

	// Affine pixel grid; zero pixel size when the reference has no raster.
	originX, originY       float64
	pixelSizeX, pixelSizeY float64
	width, height          int
}

// New returns a georeference without a pixel grid.
func New(datum geodesy.Datum, proj coord.Projection) (*GeoReference, error) {
	if err := datum.Validate(); err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, fmt.Errorf("%w: nil projection", ErrUnsupportedProjection)
	}
	return &GeoReference{datum: datum, proj: proj}, nil
}

// ForEPSG returns a georeference for an EPSG code on the given datum.
func ForEPSG(epsg int, datum geodesy.Datum) (*GeoReference, error) {
	proj := coord.ForEPSG(epsg, datum)
	if proj == nil {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedProjection, epsg)
	}
	return New(datum, proj)
}

// ParseProjection builds a projection from a name such as "geographic",
// "geographic360", "mercator", "equirectangular", "polar-north",
// "polar-south", "lv95" or "EPSG:3857". centerLon sets the central meridian
// where the projection has one.
func ParseProjection(name string, datum geodesy.Datum, centerLon float64) (coord.Projection, error) {
	a := datum.SemiMajorAxis()
	key := strings.ToLower(strings.TrimSpace(name))

	switch key {
	case "", "geographic", "lonlat", "longlat":
		return &coord.Geographic{}, nil
	case "geographic360", "lonlat360":
		return &coord.Geographic{Lon360: true}, nil
	case "mercator", "webmercator":
		return &coord.WebMercator{Radius: a}, nil
	case "equirectangular", "eqc", "simplecylindrical":
		return &coord.Equirectangular{Radius: a, CenterLon: centerLon}, nil
	case "polar-north", "npolar":
		return &coord.PolarStereographic{Radius: a, North: true, CenterLon: centerLon}, nil
	case "polar-south", "spolar":
		return &coord.PolarStereographic{Radius: a, North: false, CenterLon: centerLon}, nil
	case "lv95", "swiss":
		return &coord.SwissLV95{}, nil
	}

	if code, ok := strings.CutPrefix(key, "epsg:"); ok {
		epsg, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedProjection, name)
		}
		if p := coord.ForEPSG(epsg, datum); p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProjection, name)
}

// FromGeoTIFF reads the georeference of a GeoTIFF (or a TIFF with a world
// file). User-defined ellipsoids and the equirectangular, polar
// stereographic and mercator transformations used for planetary data are
// recognised.
func FromGeoTIFF(path string) (*GeoReference, error) {
	info, err := cog.ReadInfo(path)
	if err != nil {
		return nil, err
	}
	return FromInfo(info)
}

// FromInfo builds a georeference from parsed GeoTIFF metadata.
func FromInfo(info cog.Info) (*GeoReference, error) {
	g := info.Geo

	datum := geodesy.WGS84
	if g.SemiMajor > 0 {
		name := g.Citation
		if name == "" {
			name = "custom"
		}
		d, err := geodesy.NewDatum(name, g.SemiMajor, g.SemiMinor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", info.Path, err)
		}
		datum = d
	} else if g.Citation != "" {
		if d, err := geodesy.Lookup(g.Citation); err == nil {
			datum = d
		}
	}

	proj, err := projectionForInfo(info, datum)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Path, err)
	}

	ref, err := New(datum, proj)
	if err != nil {
		return nil, err
	}
	ref.originX, ref.originY = g.OriginX, g.OriginY
	ref.pixelSizeX, ref.pixelSizeY = g.PixelSizeX, g.PixelSizeY
	ref.width, ref.height = info.Width, info.Height
	return ref, nil
}

func projectionForInfo(info cog.Info, datum geodesy.Datum) (coord.Projection, error) {
	g := info.Geo
	if g.EPSG != 0 && g.EPSG != 4326 {
		if p := coord.ForEPSG(g.EPSG, datum); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedProjection, g.EPSG)
	}

	if g.ModelType == cog.ModelTypeProjected {
		a := datum.SemiMajorAxis()
		switch g.CoordTrans {
		case cog.CTEquirectangular:
			return &coord.Equirectangular{Radius: a, CenterLon: g.CenterLon, TrueScaleL: g.StdParallel}, nil
		case cog.CTPolarStereographic:
			return &coord.PolarStereographic{Radius: a, North: g.OriginLat >= 0, CenterLon: g.CenterLon}, nil
		case cog.CTMercator:
			return &coord.WebMercator{Radius: a}, nil
		}
		return nil, fmt.Errorf("%w: coordinate transformation %d", ErrUnsupportedProjection, g.CoordTrans)
	}

	// Geographic; rasters reaching past 180°E use the 0..360 convention.
	_, _, maxX, _ := info.BoundsInCRS()
	return &coord.Geographic{Lon360: maxX > 180}, nil
}

func (g *GeoReference) Datum() geodesy.Datum         { return g.datum }
func (g *GeoReference) Projection() coord.Projection { return g.proj }
func (g *GeoReference) IsProjected() bool            { return g.proj.Projected() }

// LonLatToPoint projects lon/lat degrees to a map point.
func (g *GeoReference) LonLatToPoint(lonlat r2.Point) r2.Point {
	x, y := g.proj.FromLonLat(lonlat.X, lonlat.Y)
	return r2.Point{X: x, Y: y}
}

// PointToLonLat inverts LonLatToPoint.
func (g *GeoReference) PointToLonLat(p r2.Point) r2.Point {
	lon, lat := g.proj.ToLonLat(p.X, p.Y)
	return r2.Point{X: lon, Y: lat}
}

// HasPixelGrid reports whether the reference came with a raster.
func (g *GeoReference) HasPixelGrid() bool {
	return g.pixelSizeX != 0 && g.pixelSizeY != 0
}

// Size returns the raster size in pixels.
func (g *GeoReference) Size() (width, height int) { return g.width, g.height }

// PixelToPoint maps a pixel coordinate (corner based, y down) to a map point.
func (g *GeoReference) PixelToPoint(pix r2.Point) r2.Point {
	return r2.Point{
		X: g.originX + pix.X*g.pixelSizeX,
		Y: g.originY - pix.Y*g.pixelSizeY,
	}
}

// PointToPixel inverts PixelToPoint.
func (g *GeoReference) PointToPixel(p r2.Point) r2.Point {
	return r2.Point{
		X: (p.X - g.originX) / g.pixelSizeX,
		Y: (g.originY - p.Y) / g.pixelSizeY,
	}
}

// PixelWindow returns the raster pixels covered by a map box, clipped to the
// raster. ok is false when the box misses the raster or there is no grid.
func (g *GeoReference) PixelWindow(box r2.Rect) (window image.Rectangle, ok bool) {
	if !g.HasPixelGrid() || box.IsEmpty() {
		return image.Rectangle{}, false
	}
	a := g.PointToPixel(box.Lo())
	b := g.PointToPixel(box.Hi())
	window = image.Rect(
		int(math.Floor(math.Min(a.X, b.X))), int(math.Floor(math.Min(a.Y, b.Y))),
		int(math.Ceil(math.Max(a.X, b.X))), int(math.Ceil(math.Max(a.Y, b.Y))),
	).Intersect(image.Rect(0, 0, g.width, g.height))
	return window, !window.Empty()
}

func (g *GeoReference) String() string {
	s := fmt.Sprintf("%s on %s", projectionName(g.proj), g.datum.Name())
	if g.HasPixelGrid() {
		s += fmt.Sprintf(", %dx%d px of %gx%g", g.width, g.height, g.pixelSizeX, g.pixelSizeY)
	}
	return s
}

func projectionName(p coord.Projection) string {
	switch p := p.(type) {
	case *coord.Geographic:
		if p.Lon360 {
			return "geographic (0..360)"
		}
		return "geographic"
	case *coord.Equirectangular:
		return "equirectangular"
	case *coord.PolarStereographic:
		if p.Code != 0 {
			return fmt.Sprintf("EPSG:%d", p.Code)
		}
		if p.North {
			return "polar stereographic (north)"
		}
		return "polar stereographic (south)"
	case *coord.WebMercator:
		return "mercator"
	default:
		return fmt.Sprintf("EPSG:%d", p.EPSG())
	}
}
