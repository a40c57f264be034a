package coord

import (
	"math"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// Projection converts between geographic longitude/latitude (degrees) on a
// body and the coordinates of a map.
type Projection interface {
	// FromLonLat converts longitude/latitude (degrees) to map coordinates.
	FromLonLat(lon, lat float64) (x, y float64)

	// ToLonLat converts map coordinates to longitude/latitude (degrees).
	ToLonLat(x, y float64) (lon, lat float64)

	// EPSG returns the EPSG code for this projection, or 0 for planetary
	// projections without one.
	EPSG() int

	// Projected is false when map coordinates are raw lon/lat degrees.
	Projected() bool
}

// ForEPSG returns a Projection for the given EPSG code, sized to the datum.
// Returns nil if the EPSG code is not supported.
func ForEPSG(epsg int, datum geodesy.Datum) Projection {
	switch epsg {
	case 4326:
		return &Geographic{}
	case 3857:
		return &WebMercator{Radius: datum.SemiMajorAxis()}
	case 2056:
		return &SwissLV95{}
	case 4087:
		return &Equirectangular{Radius: datum.SemiMajorAxis()}
	case 5041:
		return NewUPS(datum, true)
	case 5042:
		return NewUPS(datum, false)
	default:
		return nil
	}
}

// Geographic is the identity projection: map coordinates are lon/lat degrees.
// Longitudes are wrapped into [-180, 180), or [0, 360) when Lon360 is set.
type Geographic struct {
	Lon360 bool
}

func (g *Geographic) FromLonLat(lon, lat float64) (x, y float64) {
	return WrapLon(lon, g.Lon360), lat
}

func (g *Geographic) ToLonLat(x, y float64) (lon, lat float64) { return x, y }
func (g *Geographic) EPSG() int                                { return 4326 }
func (g *Geographic) Projected() bool                          { return false }

// WrapLon wraps a longitude into [-180, 180), or [0, 360) when positive is set.
func WrapLon(lon float64, positive bool) float64 {
	lon = math.Mod(lon, 360)
	if positive {
		if lon < 0 {
			lon += 360
		}
		return lon
	}
	if lon >= 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return lon
}

// Equirectangular is the simple cylindrical projection in meters used for
// planetary mosaics: x = R·(λ-λ0)·cos(φts), y = R·φ.
type Equirectangular struct {
	Radius     float64
	CenterLon  float64 // λ0, degrees
	TrueScaleL float64 // φts, degrees
}

func (e *Equirectangular) FromLonLat(lon, lat float64) (x, y float64) {
	k := math.Cos(e.TrueScaleL * math.Pi / 180.0)
	x = e.Radius * WrapLon(lon-e.CenterLon, false) * math.Pi / 180.0 * k
	y = e.Radius * lat * math.Pi / 180.0
	return
}

func (e *Equirectangular) ToLonLat(x, y float64) (lon, lat float64) {
	k := math.Cos(e.TrueScaleL * math.Pi / 180.0)
	lon = x/(e.Radius*k)*180.0/math.Pi + e.CenterLon
	lat = y / e.Radius * 180.0 / math.Pi
	return
}

func (e *Equirectangular) EPSG() int       { return 4087 }
func (e *Equirectangular) Projected() bool { return true }

// PolarStereographic is the spherical polar stereographic projection, the
// usual choice for footprints that reach the poles.
type PolarStereographic struct {
	Radius        float64
	North         bool
	CenterLon     float64 // λ0, degrees
	ScaleFactor   float64 // k0; zero means 1
	FalseEasting  float64
	FalseNorthing float64
	Code          int // EPSG code, 0 when not registered
}

// NewUPS returns the Universal Polar Stereographic grid for the datum's
// equatorial radius (spherical approximation).
func NewUPS(datum geodesy.Datum, north bool) *PolarStereographic {
	code := 5042
	if north {
		code = 5041
	}
	return &PolarStereographic{
		Radius:        datum.SemiMajorAxis(),
		North:         north,
		ScaleFactor:   0.994,
		FalseEasting:  2_000_000,
		FalseNorthing: 2_000_000,
		Code:          code,
	}
}

func (p *PolarStereographic) k0() float64 {
	if p.ScaleFactor == 0 {
		return 1
	}
	return p.ScaleFactor
}

func (p *PolarStereographic) FromLonLat(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180.0
	dLambda := (lon - p.CenterLon) * math.Pi / 180.0
	twoRK := 2 * p.Radius * p.k0()

	if p.North {
		rho := twoRK * math.Tan(math.Pi/4-phi/2)
		x = rho*math.Sin(dLambda) + p.FalseEasting
		y = -rho*math.Cos(dLambda) + p.FalseNorthing
		return
	}
	rho := twoRK * math.Tan(math.Pi/4+phi/2)
	x = rho*math.Sin(dLambda) + p.FalseEasting
	y = rho*math.Cos(dLambda) + p.FalseNorthing
	return
}

func (p *PolarStereographic) ToLonLat(x, y float64) (lon, lat float64) {
	dx := x - p.FalseEasting
	dy := y - p.FalseNorthing
	rho := math.Hypot(dx, dy)
	c := 2 * math.Atan(rho/(2*p.Radius*p.k0()))

	if p.North {
		lat = (math.Pi/2 - c) * 180.0 / math.Pi
		lon = p.CenterLon + math.Atan2(dx, -dy)*180.0/math.Pi
	} else {
		lat = (c - math.Pi/2) * 180.0 / math.Pi
		lon = p.CenterLon + math.Atan2(dx, dy)*180.0/math.Pi
	}
	return WrapLon(lon, false), lat
}

func (p *PolarStereographic) EPSG() int       { return p.Code }
func (p *PolarStereographic) Projected() bool { return true }
