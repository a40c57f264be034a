package cog

import "strings"

// GeoTIFF GeoKey IDs.
const (
	gkModelType         = 1024
	gkRasterType        = 1025
	gkCitation          = 1026
	gkGeographicType    = 2048
	gkGeogCitation      = 2049
	gkGeogSemiMajorAxis = 2057
	gkGeogSemiMinorAxis = 2058
	gkGeogInvFlattening = 2059
	gkProjectedCSType   = 3072
	gkProjCoordTrans    = 3075
	gkProjStdParallel1  = 3078
	gkProjNatOriginLong = 3080
	gkProjNatOriginLat  = 3081
	gkProjCenterLong    = 3088
)

// Model types.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2
)

// Coordinate transformation codes (ProjCoordTransGeoKey).
const (
	CTMercator            = 7
	CTPolarStereographic  = 15
	CTEquirectangular     = 17
	userDefined           = 32767
	rasterPixelIsPoint    = 2
	geoKeyDirectoryHeader = 4
)

// GeoInfo holds the georeferencing of a raster.
type GeoInfo struct {
	EPSG       int     // EPSG code, 0 when user-defined or unknown
	ModelType  int     // ModelTypeProjected or ModelTypeGeographic, 0 if unset
	OriginX    float64 // x of the upper-left corner
	OriginY    float64 // y of the upper-left corner
	PixelSizeX float64 // pixel width in CRS units (positive)
	PixelSizeY float64 // pixel height in CRS units (positive)

	// Ellipsoid axes from user-defined geographic keys; zero when absent.
	SemiMajor float64
	SemiMinor float64
	Citation  string

	// User-defined projection parameters.
	CoordTrans  int
	CenterLon   float64
	OriginLat   float64
	StdParallel float64
}

// geoKey is one GeoKey directory entry.
type geoKey struct {
	id, location, count, value uint16
}

// parseGeoInfo extracts the georeferencing from an IFD.
func parseGeoInfo(ifd *IFD) GeoInfo {
	var info GeoInfo
	var invFlattening float64

	// ModelPixelScale: [ScaleX, ScaleY, ScaleZ]
	if len(ifd.ModelPixelScale) >= 2 {
		info.PixelSizeX = ifd.ModelPixelScale[0]
		info.PixelSizeY = ifd.ModelPixelScale[1]
	}

	switch {
	case len(ifd.ModelTiepoint) >= 6:
		// Tiepoint [I, J, K, X, Y, Z] maps pixel (I,J) to (X,Y).
		info.OriginX = ifd.ModelTiepoint[3] - ifd.ModelTiepoint[0]*info.PixelSizeX
		info.OriginY = ifd.ModelTiepoint[4] + ifd.ModelTiepoint[1]*info.PixelSizeY
	case len(ifd.ModelTransform) >= 16:
		// Row-major 4x4 affine; rotation terms are ignored.
		m := ifd.ModelTransform
		info.PixelSizeX = m[0]
		info.PixelSizeY = -m[5]
		info.OriginX = m[3]
		info.OriginY = m[7]
	}

	for _, k := range geoKeys(ifd.GeoKeys) {
		switch k.id {
		case gkModelType:
			info.ModelType = int(k.value)
		case gkRasterType:
			if k.value == rasterPixelIsPoint {
				// The tiepoint refers to the centre of the first pixel.
				info.OriginX -= info.PixelSizeX / 2
				info.OriginY += info.PixelSizeY / 2
			}
		case gkGeographicType:
			if info.EPSG == 0 && k.value != userDefined {
				info.EPSG = int(k.value)
			}
		case gkProjectedCSType:
			if k.value != userDefined {
				info.EPSG = int(k.value)
			}
		case gkCitation, gkGeogCitation:
			if s := asciiParam(ifd, k); s != "" && info.Citation == "" {
				info.Citation = s
			}
		case gkGeogSemiMajorAxis:
			info.SemiMajor = doubleParam(ifd, k)
		case gkGeogSemiMinorAxis:
			info.SemiMinor = doubleParam(ifd, k)
		case gkGeogInvFlattening:
			invFlattening = doubleParam(ifd, k)
		case gkProjCoordTrans:
			info.CoordTrans = int(k.value)
		case gkProjNatOriginLong, gkProjCenterLong:
			info.CenterLon = doubleParam(ifd, k)
		case gkProjNatOriginLat:
			info.OriginLat = doubleParam(ifd, k)
		case gkProjStdParallel1:
			info.StdParallel = doubleParam(ifd, k)
		}
	}

	if info.SemiMajor != 0 && info.SemiMinor == 0 {
		info.SemiMinor = info.SemiMajor
		if invFlattening != 0 {
			info.SemiMinor = info.SemiMajor * (1 - 1/invFlattening)
		}
	}
	return info
}

// geoKeys decodes the GeoKey directory. The header is
// [KeyDirectoryVersion, KeyRevision, MinorRevision, NumberOfKeys].
func geoKeys(dir []uint16) []geoKey {
	if len(dir) < geoKeyDirectoryHeader {
		return nil
	}
	var keys []geoKey
	for i := 0; i < int(dir[3]); i++ {
		base := geoKeyDirectoryHeader + i*4
		if base+3 >= len(dir) {
			break
		}
		keys = append(keys, geoKey{id: dir[base], location: dir[base+1], count: dir[base+2], value: dir[base+3]})
	}
	return keys
}

func doubleParam(ifd *IFD, k geoKey) float64 {
	if k.location != tagGeoDoubleParamsTag || int(k.value) >= len(ifd.GeoDoubleParams) {
		return 0
	}
	return ifd.GeoDoubleParams[k.value]
}

func asciiParam(ifd *IFD, k geoKey) string {
	if k.location != tagGeoAsciiParamsTag {
		return ""
	}
	start, end := int(k.value), int(k.value)+int(k.count)
	if start >= len(ifd.GeoAsciiParams) {
		return ""
	}
	end = min(end, len(ifd.GeoAsciiParams))
	return strings.TrimRight(ifd.GeoAsciiParams[start:end], "|\x00 ")
}
