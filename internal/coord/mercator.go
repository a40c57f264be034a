package coord

import "math"

const (
	// EarthCircumference is the equatorial circumference in meters at zoom 0.
	EarthCircumference = 40075016.685578488
	// DefaultTileSize is the standard web map tile dimension.
	DefaultTileSize = 256
	// MaxMercatorLat is the latitude at which the square web map is cut off.
	MaxMercatorLat = 85.05112877980659
)

// WebMercator is the spherical Mercator projection (EPSG:3857 on Earth),
// parameterised by the body radius so it also serves other bodies.
type WebMercator struct {
	Radius float64
}

func (w *WebMercator) EPSG() int       { return 3857 }
func (w *WebMercator) Projected() bool { return true }

func (w *WebMercator) ToLonLat(x, y float64) (lon, lat float64) {
	lon = x / w.Radius * 180.0 / math.Pi
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(y/w.Radius)) - math.Pi/2.0)
	return
}

// FromLonLat clamps latitude to the web map range; the poles are at infinity.
func (w *WebMercator) FromLonLat(lon, lat float64) (x, y float64) {
	lat = math.Max(-MaxMercatorLat, math.Min(MaxMercatorLat, lat))
	x = w.Radius * lon * math.Pi / 180.0
	y = w.Radius * math.Log(math.Tan((90.0+lat)*math.Pi/360.0))
	return
}

// LonLatToTile converts lon/lat to tile coordinates at the given zoom level.
func LonLatToTile(lon, lat float64, zoom int) (x, y int) {
	n := math.Pow(2, float64(zoom))
	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180.0
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	maxTile := int(n) - 1
	x = max(0, min(x, maxTile))
	y = max(0, min(y, maxTile))
	return
}

// TileBounds returns the lon/lat bounding box of a tile at the given zoom level.
func TileBounds(z, x, y int) (minLon, minLat, maxLon, maxLat float64) {
	n := math.Pow(2, float64(z))
	minLon = float64(x)/n*360.0 - 180.0
	maxLon = float64(x+1)/n*360.0 - 180.0
	minLat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*float64(y+1)/n))) * 180.0 / math.Pi
	maxLat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*float64(y)/n))) * 180.0 / math.Pi
	return
}

// PixelToLonLat converts a pixel position within a tile to lon/lat.
func PixelToLonLat(z, tileX, tileY, tileSize int, px, py float64) (lon, lat float64) {
	n := math.Pow(2, float64(z))

	globalX := float64(tileX)*float64(tileSize) + px
	globalY := float64(tileY)*float64(tileSize) + py

	lon = globalX/(n*float64(tileSize))*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*globalY/(n*float64(tileSize))))) * 180.0 / math.Pi
	return
}

// ResolutionAtLat returns the ground resolution in meters/pixel at the given
// latitude, zoom level and tile size.
func ResolutionAtLat(lat float64, zoom, tileSize int) float64 {
	return EarthCircumference * math.Cos(lat*math.Pi/180.0) / math.Pow(2, float64(zoom)) / float64(tileSize)
}

// MaxZoomForResolution returns the deepest zoom level whose resolution is
// still no finer than pixelSize meters.
func MaxZoomForResolution(pixelSize, centerLat float64, tileSize int) int {
	if pixelSize <= 0 {
		return 0
	}
	for z := 30; z >= 0; z-- {
		if ResolutionAtLat(centerLat, z, tileSize) >= pixelSize {
			return z
		}
	}
	return 0
}

// TilesInBounds returns all tile coordinates at the given zoom level that
// intersect the given lon/lat bounds.
func TilesInBounds(zoom int, minLon, minLat, maxLon, maxLat float64) [][3]int {
	minTX, minTY := LonLatToTile(minLon, maxLat, zoom) // maxLat -> minTY
	maxTX, maxTY := LonLatToTile(maxLon, minLat, zoom)

	var tiles [][3]int
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			tiles = append(tiles, [3]int{zoom, tx, ty})
		}
	}
	return tiles
}
