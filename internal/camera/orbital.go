package camera

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	satellite "github.com/joshuaferrara/go-satellite"
)

// earthRotationRate is the sidereal rotation rate of the Earth in rad/s.
const earthRotationRate = 7.2921150e-5

// WGS72 constants used by SGP4.
const (
	wgs72Radius = 6378.135 // km
	wgs72Mu     = 398600.8 // km³/s²
)

// maxAxisRatio bounds the propagated semi-major axis against the TLE mean.
// Drag only shrinks an orbit.
const maxAxisRatio = 1.5

var (
	// ErrInvalidTLE is returned for malformed two-line element sets.
	ErrInvalidTLE = errors.New("invalid TLE")

	// ErrPropagation is returned when SGP4 yields no usable state.
	ErrPropagation = errors.New("SGP4 propagation failed")
)

// OrbitalPose propagates a TLE with SGP4 to t and returns the position (m)
// and velocity (m/s) in the Earth-fixed frame.
func OrbitalPose(line1, line2 string, t time.Time) (position, velocity r3.Vector, err error) {
	line1, line2 = strings.TrimRight(line1, " \r\n"), strings.TrimRight(line2, " \r\n")
	if err := validateTLE(line1, line2); err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return r3.Vector{}, r3.Vector{}, fmt.Errorf("%w: %s (code %d)", ErrPropagation, sat.ErrorStr, sat.Error)
	}

	t = t.UTC()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	// Propagate works on a copy of sat, so error codes raised while
	// propagating are lost. The resulting state is checked instead.
	posECI, velECI := satellite.Propagate(sat, year, int(month), day, hour, minute, sec)
	meanMotion, _ := strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	if err := checkState(posECI, velECI, meanMotion); err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}

	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, minute, sec))
	pos := satellite.ECIToECEF(posECI, gmst)
	vel := satellite.ECIToECEF(velECI, gmst)

	// go-satellite works in kilometres.
	const kmToM = 1000.0
	position = r3.Vector{X: pos.X, Y: pos.Y, Z: pos.Z}.Mul(kmToM)
	velocity = r3.Vector{X: vel.X, Y: vel.Y, Z: vel.Z}.Mul(kmToM)

	// The rotating frame sees the velocity reduced by ω × r.
	omega := r3.Vector{Z: earthRotationRate}
	velocity = velocity.Sub(omega.Cross(position))
	return position, velocity, nil
}

// checkState rejects an ECI state (km, km/s) that is not finite, lies below
// the surface or is not a plausible orbit for a TLE with the given mean
// motion (rev/day).
func checkState(pos, vel satellite.Vector3, meanMotion float64) error {
	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	v2 := vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z
	switch {
	case r == 0 || math.IsNaN(r) || math.IsInf(r, 0) || math.IsNaN(v2) || math.IsInf(v2, 0):
		return fmt.Errorf("%w: no position", ErrPropagation)
	case r < wgs72Radius:
		return fmt.Errorf("%w: decayed, %.0f km from the geocenter", ErrPropagation, r)
	}

	n := meanMotion * 2 * math.Pi / 86400 // rad/s
	meanAxis := math.Cbrt(wgs72Mu / (n * n))
	axis := 1 / (2/r - v2/wgs72Mu)
	if axis <= 0 || axis > maxAxisRatio*meanAxis {
		return fmt.Errorf("%w: semi-major axis %.4g km, TLE mean %.0f km", ErrPropagation, axis, meanAxis)
	}
	return nil
}

// validateTLE checks the fields SGP4 parses so malformed input is rejected
// before it reaches the propagator.
func validateTLE(line1, line2 string) error {
	if len(line1) != 69 || len(line2) != 69 {
		return fmt.Errorf("%w: lines must be 69 characters (got %d and %d)", ErrInvalidTLE, len(line1), len(line2))
	}
	if line1[0] != '1' || line2[0] != '2' {
		return fmt.Errorf("%w: lines must start with 1 and 2", ErrInvalidTLE)
	}
	if strings.TrimSpace(line1[2:7]) != strings.TrimSpace(line2[2:7]) {
		return fmt.Errorf("%w: catalog numbers %q and %q differ", ErrInvalidTLE, line1[2:7], line2[2:7])
	}

	fields := []struct {
		line       string
		start, end int
		name       string
	}{
		{line1, 2, 7, "catalog number"},
		{line1, 18, 32, "epoch"},
		{line2, 8, 16, "inclination"},
		{line2, 17, 25, "right ascension"},
		{line2, 26, 33, "eccentricity"},
		{line2, 34, 42, "argument of perigee"},
		{line2, 43, 51, "mean anomaly"},
		{line2, 52, 63, "mean motion"},
	}
	for _, f := range fields {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f.line[f.start:f.end]), 64); err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidTLE, f.name, f.line[f.start:f.end])
		}
	}
	return nil
}
