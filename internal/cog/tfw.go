package cog

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TFW holds the six parameters of a TIFF world file: pixel width, the two
// rotation terms, pixel height (negative for north-up) and the centre of the
// upper-left pixel.
type TFW struct {
	PixelSizeX float64
	RotationY  float64
	RotationX  float64
	PixelSizeY float64
	OriginX    float64
	OriginY    float64
}

// ParseTFW reads a world file. Rotated world files are rejected.
func ParseTFW(path string) (*TFW, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading TFW %s: %w", path, err)
	}

	fields := strings.Fields(string(data))
	if len(fields) < 6 {
		return nil, fmt.Errorf("TFW %s: expected 6 values, got %d", path, len(fields))
	}

	var vals [6]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("TFW %s value %d: %w", path, i+1, err)
		}
		vals[i] = v
	}

	tfw := &TFW{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}
	if tfw.RotationX != 0 || tfw.RotationY != 0 {
		return nil, fmt.Errorf("TFW %s: rotated world files are not supported (rotation: %f, %f)",
			path, tfw.RotationX, tfw.RotationY)
	}
	return tfw, nil
}

// FindTFW returns the world file next to a TIFF, or "" if there is none.
func FindTFW(tiffPath string) string {
	base := strings.TrimSuffix(tiffPath, filepath.Ext(tiffPath))
	for _, ext := range []string{".tfw", ".TFW", ".tifw", ".TIFW", ".wld"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return ""
}

// GeoInfo converts the world file into corner-based georeferencing.
func (tfw *TFW) GeoInfo() GeoInfo {
	sx, sy := math.Abs(tfw.PixelSizeX), math.Abs(tfw.PixelSizeY)
	return GeoInfo{
		PixelSizeX: sx,
		PixelSizeY: sy,
		OriginX:    tfw.OriginX - sx/2,
		OriginY:    tfw.OriginY + sy/2,
	}
}

// inferEPSG guesses the CRS of a world-file raster from its coordinate
// ranges. Geographic-looking extents default to EPSG:4326.
func inferEPSG(info GeoInfo, width, height uint32) int {
	maxX := info.OriginX + float64(width)*info.PixelSizeX
	minY := info.OriginY - float64(height)*info.PixelSizeY

	if info.OriginX >= -180 && maxX <= 360 && minY >= -90 && info.OriginY <= 90 {
		return 4326
	}
	if info.OriginX >= 2_400_000 && info.OriginX <= 2_900_000 &&
		info.OriginY >= 1_000_000 && info.OriginY <= 1_400_000 {
		return 2056
	}
	if math.Abs(info.OriginX) <= 20037508.34 && math.Abs(info.OriginY) <= 20048966.10 {
		return 3857
	}
	return 0
}
