package cog

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

type testTag struct {
	tag, dt uint16
	count   uint32
	data    []byte
}

func shortsTag(bo binary.ByteOrder, tag uint16, vals ...uint16) testTag {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		bo.PutUint16(b[i*2:], v)
	}
	return testTag{tag, dtShort, uint32(len(vals)), b}
}

func longTag(bo binary.ByteOrder, tag uint16, v uint32) testTag {
	b := make([]byte, 4)
	bo.PutUint32(b, v)
	return testTag{tag, dtLong, 1, b}
}

func doublesTag(bo binary.ByteOrder, tag uint16, vals ...float64) testTag {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		bo.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return testTag{tag, dtDouble, uint32(len(vals)), b}
}

func asciiTag(tag uint16, s string) testTag {
	return testTag{tag, dtASCII, uint32(len(s) + 1), append([]byte(s), 0)}
}

// buildTIFF lays out a classic single-IFD TIFF: header, directory, then the
// out-of-line tag data.
func buildTIFF(bo binary.ByteOrder, tags []testTag) []byte {
	sort.Slice(tags, func(i, j int) bool { return tags[i].tag < tags[j].tag })

	buf := make([]byte, 8)
	if bo == binary.ByteOrder(binary.LittleEndian) {
		copy(buf, "II")
	} else {
		copy(buf, "MM")
	}
	bo.PutUint16(buf[2:], 42)
	bo.PutUint32(buf[4:], 8)

	dirSize := 2 + 12*len(tags) + 4
	dataAt := 8 + dirSize
	dir := make([]byte, dirSize)
	bo.PutUint16(dir, uint16(len(tags)))

	var extra []byte
	for i, tg := range tags {
		e := dir[2+i*12:]
		bo.PutUint16(e[0:], tg.tag)
		bo.PutUint16(e[2:], tg.dt)
		bo.PutUint32(e[4:], tg.count)
		if len(tg.data) <= 4 {
			copy(e[8:12], tg.data)
			continue
		}
		bo.PutUint32(e[8:], uint32(dataAt+len(extra)))
		extra = append(extra, tg.data...)
	}
	return append(append(buf, dir...), extra...)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadInfo_ProjectedGeoTIFF(t *testing.T) {
	for _, bo := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(bo.String(), func(t *testing.T) {
			data := buildTIFF(bo, []testTag{
				longTag(bo, tagImageWidth, 1000),
				longTag(bo, tagImageLength, 500),
				shortsTag(bo, tagSamplesPerPixel, 3),
				doublesTag(bo, tagModelPixelScaleTag, 2, 2, 0),
				doublesTag(bo, tagModelTiepointTag, 0, 0, 0, 2_600_000, 1_200_000, 0),
				shortsTag(bo, tagGeoKeyDirectoryTag,
					1, 1, 0, 2,
					gkModelType, 0, 1, ModelTypeProjected,
					gkProjectedCSType, 0, 1, 2056),
				asciiTag(tagGDALNoData, "0"),
			})
			info, err := ReadInfo(writeFile(t, "lv95.tif", data))
			if err != nil {
				t.Fatal(err)
			}
			if info.Width != 1000 || info.Height != 500 || info.Bands != 3 {
				t.Errorf("size = %dx%dx%d, want 1000x500x3", info.Width, info.Height, info.Bands)
			}
			if info.Geo.EPSG != 2056 || info.Geo.ModelType != ModelTypeProjected {
				t.Errorf("EPSG/model = %d/%d, want 2056/1", info.Geo.EPSG, info.Geo.ModelType)
			}
			if info.NoData != "0" {
				t.Errorf("NoData = %q, want \"0\"", info.NoData)
			}
			minX, minY, maxX, maxY := info.BoundsInCRS()
			if minX != 2_600_000 || maxY != 1_200_000 || maxX != 2_602_000 || minY != 1_199_000 {
				t.Errorf("bounds = (%v, %v, %v, %v)", minX, minY, maxX, maxY)
			}
			if info.GeoSource != SourceGeoTIFF {
				t.Errorf("GeoSource = %q, want %q", info.GeoSource, SourceGeoTIFF)
			}
		})
	}
}

func TestReadInfo_PlanetaryGeographic(t *testing.T) {
	bo := binary.LittleEndian
	data := buildTIFF(bo, []testTag{
		longTag(bo, tagImageWidth, 360),
		longTag(bo, tagImageLength, 180),
		doublesTag(bo, tagModelPixelScaleTag, 1, 1, 0),
		doublesTag(bo, tagModelTiepointTag, 0.5, 0.5, 0, 0.5, 89.5, 0),
		shortsTag(bo, tagGeoKeyDirectoryTag,
			1, 1, 0, 5,
			gkModelType, 0, 1, ModelTypeGeographic,
			gkRasterType, 0, 1, rasterPixelIsPoint,
			gkGeographicType, 0, 1, userDefined,
			gkGeogCitation, tagGeoAsciiParamsTag, 7, 0,
			gkGeogSemiMajorAxis, tagGeoDoubleParamsTag, 1, 0),
		doublesTag(bo, tagGeoDoubleParamsTag, 3396190),
		asciiTag(tagGeoAsciiParamsTag, "D_MARS|"),
	})

	info, err := ReadInfo(writeFile(t, "mars.tif", data))
	if err != nil {
		t.Fatal(err)
	}
	g := info.Geo
	if g.EPSG != 0 {
		t.Errorf("EPSG = %d, want 0 for a user-defined datum", g.EPSG)
	}
	if g.SemiMajor != 3396190 || g.SemiMinor != 3396190 {
		t.Errorf("axes = %v/%v, want a 3396190 sphere", g.SemiMajor, g.SemiMinor)
	}
	if g.Citation != "D_MARS" {
		t.Errorf("Citation = %q, want D_MARS", g.Citation)
	}
	// Tiepoint (0.5,0.5)->(0.5,89.5) with origin at pixel (0,0) gives (0,90);
	// PixelIsPoint moves it half a pixel further out.
	if g.OriginX != -0.5 || g.OriginY != 90.5 {
		t.Errorf("origin = (%v, %v), want (-0.5, 90.5)", g.OriginX, g.OriginY)
	}
}

func TestReadInfo_InverseFlattening(t *testing.T) {
	bo := binary.LittleEndian
	data := buildTIFF(bo, []testTag{
		longTag(bo, tagImageWidth, 4),
		longTag(bo, tagImageLength, 4),
		doublesTag(bo, tagModelPixelScaleTag, 1, 1, 0),
		doublesTag(bo, tagModelTiepointTag, 0, 0, 0, 0, 0, 0),
		shortsTag(bo, tagGeoKeyDirectoryTag,
			1, 1, 0, 2,
			gkGeogSemiMajorAxis, tagGeoDoubleParamsTag, 1, 0,
			gkGeogInvFlattening, tagGeoDoubleParamsTag, 1, 1),
		doublesTag(bo, tagGeoDoubleParamsTag, 6378137, 298.257223563),
	})
	info, err := ReadInfo(writeFile(t, "wgs.tif", data))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(info.Geo.SemiMinor-6356752.314245179) > 1e-6 {
		t.Errorf("SemiMinor = %v, want 6356752.314", info.Geo.SemiMinor)
	}
}

func TestReadInfo_ModelTransformation(t *testing.T) {
	bo := binary.BigEndian
	data := buildTIFF(bo, []testTag{
		longTag(bo, tagImageWidth, 10),
		longTag(bo, tagImageLength, 10),
		doublesTag(bo, tagModelTransformation,
			30, 0, 0, 500_000,
			0, -30, 0, 4_000_000,
			0, 0, 0, 0,
			0, 0, 0, 1),
	})
	info, err := ReadInfo(writeFile(t, "affine.tif", data))
	if err != nil {
		t.Fatal(err)
	}
	g := info.Geo
	if g.PixelSizeX != 30 || g.PixelSizeY != 30 || g.OriginX != 500_000 || g.OriginY != 4_000_000 {
		t.Errorf("geo = %+v", g)
	}
}

func TestReadInfo_WorldFile(t *testing.T) {
	bo := binary.LittleEndian
	dir := t.TempDir()
	tif := filepath.Join(dir, "plain.tif")
	if err := os.WriteFile(tif, buildTIFF(bo, []testTag{
		longTag(bo, tagImageWidth, 100),
		longTag(bo, tagImageLength, 50),
	}), 0o644); err != nil {
		t.Fatal(err)
	}

	// No georeferencing at all.
	if _, err := ReadInfo(tif); err == nil || !strings.Contains(err.Error(), "no georeferencing") {
		t.Errorf("error = %v, want no georeferencing", err)
	}

	tfw := "0.1\n0\n0\n-0.1\n5.05\n47.95\n"
	if err := os.WriteFile(filepath.Join(dir, "plain.tfw"), []byte(tfw), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := ReadInfo(tif)
	if err != nil {
		t.Fatal(err)
	}
	if info.GeoSource != SourceTFW {
		t.Errorf("GeoSource = %q, want %q", info.GeoSource, SourceTFW)
	}
	if info.Geo.EPSG != 4326 {
		t.Errorf("EPSG = %d, want inferred 4326", info.Geo.EPSG)
	}
	if math.Abs(info.Geo.OriginX-5) > 1e-12 || math.Abs(info.Geo.OriginY-48) > 1e-12 {
		t.Errorf("origin = (%v, %v), want (5, 48)", info.Geo.OriginX, info.Geo.OriginY)
	}
}

func TestReadInfo_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad byte order", []byte("XX*\x00\x08\x00\x00\x00")},
		{"bad magic", []byte("II\x07\x00\x08\x00\x00\x00")},
		{"truncated directory", []byte("II*\x00\x08\x00\x00\x00\x05\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadInfo(writeFile(t, "bad.tif", tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := ReadInfo(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("missing file: expected error, got nil")
	}
}

func TestParseTFW_Rotated(t *testing.T) {
	p := writeFile(t, "rot.tfw", []byte("1\n0.5\n0\n-1\n0\n0\n"))
	if _, err := ParseTFW(p); err == nil {
		t.Error("expected error for rotated world file")
	}
}

func TestInferEPSG(t *testing.T) {
	tests := []struct {
		name string
		info GeoInfo
		want int
	}{
		{"lonlat", GeoInfo{OriginX: 5, OriginY: 48, PixelSizeX: 0.1, PixelSizeY: 0.1}, 4326},
		{"lv95", GeoInfo{OriginX: 2_600_000, OriginY: 1_200_000, PixelSizeX: 1, PixelSizeY: 1}, 2056},
		{"mercator", GeoInfo{OriginX: 900_000, OriginY: 6_000_000, PixelSizeX: 10, PixelSizeY: 10}, 3857},
		{"unknown", GeoInfo{OriginX: 9e7, OriginY: 9e7, PixelSizeX: 1, PixelSizeY: 1}, 0},
	}
	for _, tt := range tests {
		if got := inferEPSG(tt.info, 100, 100); got != tt.want {
			t.Errorf("%s: inferEPSG = %d, want %d", tt.name, got, tt.want)
		}
	}
}
