package cog

import (
	"fmt"
	"os"
)

// Source of the georeferencing of a raster.
const (
	SourceGeoTIFF = "geotiff"
	SourceTFW     = "tfw"
)

// Info describes a GeoTIFF without reading its pixels.
type Info struct {
	Path      string
	Width     int
	Height    int
	Bands     int
	Overviews int
	NoData    string
	Geo       GeoInfo
	GeoSource string
}

// BoundsInCRS returns the bounding box in the raster's CRS.
func (i Info) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	minX = i.Geo.OriginX
	maxY = i.Geo.OriginY
	maxX = minX + float64(i.Width)*i.Geo.PixelSizeX
	minY = maxY - float64(i.Height)*i.Geo.PixelSizeY
	return
}

// ReadInfo parses the TIFF directories of path and returns the size and
// georeferencing of its full-resolution image. Without GeoTIFF tags a
// world file sidecar is used and the CRS inferred from its extent.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ifds, _, err := parseTIFF(f)
	if err != nil {
		return Info{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ifds) == 0 {
		return Info{}, fmt.Errorf("%s: no IFDs found", path)
	}

	first := &ifds[0]
	if first.Width == 0 || first.Height == 0 {
		return Info{}, fmt.Errorf("%s: image has no pixels", path)
	}

	info := Info{
		Path:      path,
		Width:     int(first.Width),
		Height:    int(first.Height),
		Bands:     int(first.SamplesPerPixel),
		Overviews: len(ifds) - 1,
		NoData:    first.NoData,
		Geo:       parseGeoInfo(first),
		GeoSource: SourceGeoTIFF,
	}

	if info.Geo.PixelSizeX == 0 || info.Geo.PixelSizeY == 0 {
		tfwPath := FindTFW(path)
		if tfwPath == "" {
			return Info{}, fmt.Errorf("%s: no georeferencing (no GeoTIFF tags or world file)", path)
		}
		tfw, err := ParseTFW(tfwPath)
		if err != nil {
			return Info{}, err
		}
		geo := tfw.GeoInfo()
		geo.EPSG = info.Geo.EPSG
		if geo.EPSG == 0 {
			geo.EPSG = inferEPSG(geo, first.Width, first.Height)
		}
		info.Geo = geo
		info.GeoSource = SourceTFW
	}
	return info, nil
}
