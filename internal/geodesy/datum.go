// Package geodesy models reference ellipsoids (datums) of planetary bodies and
// converts between geodetic and body-fixed cartesian coordinates.
package geodesy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
)

// ErrInvalidDatum is returned for ellipsoids that cannot describe a physical body:
// non-positive axes or a semi-minor axis longer than the semi-major axis.
var ErrInvalidDatum = errors.New("invalid datum")

// Datum is an oblate spheroid centred at the origin of a body-fixed frame.
// Lengths are in meters. The zero value is not a valid datum; use NewDatum or
// one of the predefined datums.
type Datum struct {
	name      string
	semiMajor float64
	semiMinor float64
}

// Predefined datums.
var (
	WGS84      = Datum{name: "WGS84", semiMajor: 6378137.0, semiMinor: 6356752.314245179}
	WGS72      = Datum{name: "WGS72", semiMajor: 6378135.0, semiMinor: 6356750.520016094}
	Moon       = Datum{name: "D_MOON", semiMajor: 1737400.0, semiMinor: 1737400.0}
	Mars       = Datum{name: "D_MARS", semiMajor: 3396190.0, semiMinor: 3376200.0}
	MarsSphere = Datum{name: "MOLA", semiMajor: 3396190.0, semiMinor: 3396190.0}
)

// NewDatum validates the axes and returns a datum.
func NewDatum(name string, semiMajor, semiMinor float64) (Datum, error) {
	d := Datum{name: name, semiMajor: semiMajor, semiMinor: semiMinor}
	if err := d.Validate(); err != nil {
		return Datum{}, err
	}
	return d, nil
}

// Sphere returns a spherical datum with the given radius.
func Sphere(name string, radius float64) (Datum, error) {
	return NewDatum(name, radius, radius)
}

// Lookup returns a predefined datum by name. Matching is case-insensitive and
// accepts the common aliases used in georeferencing metadata.
func Lookup(name string) (Datum, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "WGS84", "WGS_1984", "WGS 84", "EPSG:4326":
		return WGS84, nil
	case "WGS72", "WGS_1972":
		return WGS72, nil
	case "MOON", "D_MOON":
		return Moon, nil
	case "MARS", "D_MARS":
		return Mars, nil
	case "MOLA", "MARS_SPHERE", "MARSSPHERE":
		return MarsSphere, nil
	default:
		return Datum{}, fmt.Errorf("unknown datum %q", name)
	}
}

// Validate reports whether the axes describe a physical oblate spheroid.
func (d Datum) Validate() error {
	if !(d.semiMajor > 0) || !(d.semiMinor > 0) {
		return fmt.Errorf("%w: axes must be positive (a=%g, b=%g)", ErrInvalidDatum, d.semiMajor, d.semiMinor)
	}
	if d.semiMinor > d.semiMajor {
		return fmt.Errorf("%w: semi-minor axis %g exceeds semi-major axis %g", ErrInvalidDatum, d.semiMinor, d.semiMajor)
	}
	return nil
}

func (d Datum) Name() string           { return d.name }
func (d Datum) SemiMajorAxis() float64 { return d.semiMajor }
func (d Datum) SemiMinorAxis() float64 { return d.semiMinor }

// Flattening returns (a-b)/a.
func (d Datum) Flattening() float64 {
	return (d.semiMajor - d.semiMinor) / d.semiMajor
}

// EccentricitySquared returns the first eccentricity squared, (a²-b²)/a².
func (d Datum) EccentricitySquared() float64 {
	a2 := d.semiMajor * d.semiMajor
	return (a2 - d.semiMinor*d.semiMinor) / a2
}

func (d Datum) String() string {
	return fmt.Sprintf("%s (a=%.3f m, b=%.3f m)", d.name, d.semiMajor, d.semiMinor)
}

// GeodeticToCartesian converts (lon°, lat°, height m) packed as X, Y, Z into
// body-fixed cartesian coordinates.
func (d Datum) GeodeticToCartesian(llh r3.Vector) r3.Vector {
	lon := llh.X * math.Pi / 180.0
	lat := llh.Y * math.Pi / 180.0
	e2 := d.EccentricitySquared()

	sinLat, cosLat := math.Sincos(lat)
	n := d.semiMajor / math.Sqrt(1-e2*sinLat*sinLat)

	return r3.Vector{
		X: (n + llh.Z) * cosLat * math.Cos(lon),
		Y: (n + llh.Z) * cosLat * math.Sin(lon),
		Z: (n*(1-e2) + llh.Z) * sinLat,
	}
}

// CartesianToGeodetic converts body-fixed cartesian coordinates into
// (lon°, lat°, height m) packed as X, Y, Z. Longitude is in (-180, 180].
func (d Datum) CartesianToGeodetic(p r3.Vector) r3.Vector {
	lon := math.Atan2(p.Y, p.X) * 180.0 / math.Pi
	r := math.Hypot(p.X, p.Y)

	if r == 0 {
		// On the polar axis.
		lat := 90.0
		if p.Z < 0 {
			lat = -90.0
		}
		return r3.Vector{X: 0, Y: lat, Z: math.Abs(p.Z) - d.semiMinor}
	}

	a := d.semiMajor
	e2 := d.EccentricitySquared()

	// Iterate the latitude; converges in a handful of steps for any point
	// outside the core of the body.
	lat := math.Atan2(p.Z, r*(1-e2))
	var h float64
	for i := 0; i < 30; i++ {
		sinLat, cosLat := math.Sincos(lat)
		w := math.Sqrt(1 - e2*sinLat*sinLat)
		n := a / w
		h = r*cosLat + p.Z*sinLat - a*w
		next := math.Atan2(p.Z, r*(1-e2*n/(n+h)))
		if math.Abs(next-lat) < 1e-12 {
			lat = next
			break
		}
		lat = next
	}
	sinLat, cosLat := math.Sincos(lat)
	h = r*cosLat + p.Z*sinLat - a*math.Sqrt(1-e2*sinLat*sinLat)

	return r3.Vector{X: lon, Y: lat * 180.0 / math.Pi, Z: h}
}

// GeocentricLonLat returns the geocentric longitude and latitude (degrees) of a
// cartesian point, independent of the ellipsoid.
func GeocentricLonLat(p r3.Vector) (lon, lat float64) {
	lon = math.Atan2(p.Y, p.X) * 180.0 / math.Pi
	lat = math.Atan2(p.Z, math.Hypot(p.X, p.Y)) * 180.0 / math.Pi
	return
}
