package coord

import (
	"math"
	"testing"
)

func TestLonLatToTile(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		zoom     int
		wantX    int
		wantY    int
	}{
		{"origin z0", 0, 0, 0, 0, 0},
		{"zurich z10", 8.5417, 47.3769, 10, 536, 358},
		{"tokyo z10", 139.6917, 35.6895, 10, 909, 403},
		{"south pole clamped", 0, -89.9, 1, 1, 1},
		{"north pole clamped", 0, 89.9, 1, 1, 0},
		{"west of the antimeridian clamped", -200, 0, 5, 0, 16},
		{"east of the antimeridian clamped", 200, 0, 5, 31, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := LonLatToTile(tt.lon, tt.lat, tt.zoom)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("LonLatToTile(%.4f, %.4f, %d) = (%d, %d), want (%d, %d)",
					tt.lon, tt.lat, tt.zoom, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestTileBounds_PixelCorners(t *testing.T) {
	// Tile corners and the outer pixel corners of the same tile agree.
	for _, tile := range [][3]int{{0, 0, 0}, {2, 1, 2}, {4, 8, 7}} {
		z, x, y := tile[0], tile[1], tile[2]
		minLon, minLat, maxLon, maxLat := TileBounds(z, x, y)

		lon, lat := PixelToLonLat(z, x, y, DefaultTileSize, 0, 0)
		if math.Abs(lon-minLon) > 1e-9 || math.Abs(lat-maxLat) > 1e-9 {
			t.Errorf("%v top-left = (%v, %v), want (%v, %v)", tile, lon, lat, minLon, maxLat)
		}
		lon, lat = PixelToLonLat(z, x, y, DefaultTileSize, DefaultTileSize, DefaultTileSize)
		if math.Abs(lon-maxLon) > 1e-9 || math.Abs(lat-minLat) > 1e-9 {
			t.Errorf("%v bottom-right = (%v, %v), want (%v, %v)", tile, lon, lat, maxLon, minLat)
		}
	}

	_, minLat, _, maxLat := TileBounds(0, 0, 0)
	if math.Abs(maxLat-MaxMercatorLat) > 1e-9 || math.Abs(minLat+MaxMercatorLat) > 1e-9 {
		t.Errorf("z0 latitude range = [%v, %v], want ±%v", minLat, maxLat, MaxMercatorLat)
	}
}

func TestResolutionAtLat(t *testing.T) {
	res0 := ResolutionAtLat(0, 0, DefaultTileSize)
	tests := []struct {
		lat  float64
		zoom int
		want float64
	}{
		{0, 0, EarthCircumference / 256},
		{0, 1, res0 / 2},
		{60, 0, res0 / 2},
		{60, 3, res0 / 16},
	}
	for _, tt := range tests {
		got := ResolutionAtLat(tt.lat, tt.zoom, DefaultTileSize)
		if math.Abs(got-tt.want)/tt.want > 1e-9 {
			t.Errorf("ResolutionAtLat(%v, %d) = %v, want %v", tt.lat, tt.zoom, got, tt.want)
		}
	}
}

func TestMaxZoomForResolution(t *testing.T) {
	tests := []struct {
		pixelSize float64
		lat       float64
		tileSize  int
		want      int
	}{
		{10, 0, 256, 13},
		{1, 0, 256, 17},
		{10, 0, 512, 12},
		{100, 0, 256, 10},
		{0, 0, 256, 0},
		{-1, 0, 256, 0},
	}
	for _, tt := range tests {
		if got := MaxZoomForResolution(tt.pixelSize, tt.lat, tt.tileSize); got != tt.want {
			t.Errorf("MaxZoomForResolution(%v, %v, %d) = %d, want %d",
				tt.pixelSize, tt.lat, tt.tileSize, got, tt.want)
		}
	}
}

func TestTilesInBounds(t *testing.T) {
	// A nadir footprint around Zurich at zoom 10.
	tiles := TilesInBounds(10, 8.4, 47.3, 8.6, 47.5)
	minX, minY := LonLatToTile(8.4, 47.5, 10)
	maxX, maxY := LonLatToTile(8.6, 47.3, 10)
	if want := (maxX - minX + 1) * (maxY - minY + 1); len(tiles) != want {
		t.Fatalf("got %d tiles, want %d", len(tiles), want)
	}
	for _, tile := range tiles {
		if tile[0] != 10 || tile[1] < minX || tile[1] > maxX || tile[2] < minY || tile[2] > maxY {
			t.Errorf("tile %v outside [%d..%d]x[%d..%d]", tile, minX, maxX, minY, maxY)
		}
	}

	if got := TilesInBounds(0, -180, -85, 180, 85); len(got) != 1 {
		t.Errorf("world at z0 = %d tiles, want 1", len(got))
	}
}
