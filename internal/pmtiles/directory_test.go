package pmtiles

import (
	"reflect"
	"testing"
)

func TestZXYToTileID_Known(t *testing.T) {
	// Values from the PMTiles v3 reference implementation.
	tests := []struct {
		z, x, y int
		want    uint64
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{1, 0, 1, 2},
		{1, 1, 1, 3},
		{1, 1, 0, 4},
		{2, 0, 0, 5},
		{12, 3423, 1763, 19078479},
	}
	for _, tt := range tests {
		if got := ZXYToTileID(tt.z, tt.x, tt.y); got != tt.want {
			t.Errorf("ZXYToTileID(%d,%d,%d) = %d, want %d", tt.z, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestTileIDToZXY_RoundTrip(t *testing.T) {
	for z := 0; z <= 5; z++ {
		n := 1 << z
		seen := make(map[uint64]bool, n*n)
		first, end := TileIDRange(z)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				id := ZXYToTileID(z, x, y)
				if id < first || id >= end {
					t.Fatalf("ZXYToTileID(%d,%d,%d) = %d, want in [%d, %d)", z, x, y, id, first, end)
				}
				if seen[id] {
					t.Fatalf("ZXYToTileID(%d,%d,%d) = %d is duplicate", z, x, y, id)
				}
				seen[id] = true

				gz, gx, gy := TileIDToZXY(id)
				if gz != z || gx != x || gy != y {
					t.Fatalf("TileIDToZXY(%d) = %d/%d/%d, want %d/%d/%d", id, gz, gx, gy, z, x, y)
				}
			}
		}
	}
}

func TestSortTiles(t *testing.T) {
	tiles := [][3]int{{1, 1, 0}, {0, 0, 0}, {2, 0, 0}, {1, 0, 0}, {1, 1, 1}}
	SortTiles(tiles)
	want := [][3]int{{0, 0, 0}, {1, 0, 0}, {1, 1, 1}, {1, 1, 0}, {2, 0, 0}}
	if !reflect.DeepEqual(tiles, want) {
		t.Errorf("SortTiles = %v, want %v", tiles, want)
	}
}

func TestOptimizeRunLengths(t *testing.T) {
	tests := []struct {
		name string
		in   []Entry
		want []Entry
	}{
		{"empty", nil, nil},
		{"single", []Entry{{TileID: 5, Offset: 0, Length: 10}},
			[]Entry{{TileID: 5, Offset: 0, Length: 10, RunLength: 1}}},
		{"shared data merges",
			[]Entry{{TileID: 1, Offset: 0, Length: 10}, {TileID: 2, Offset: 0, Length: 10}, {TileID: 3, Offset: 0, Length: 10}},
			[]Entry{{TileID: 1, Offset: 0, Length: 10, RunLength: 3}}},
		{"distinct data stays",
			[]Entry{{TileID: 1, Offset: 0, Length: 10}, {TileID: 2, Offset: 10, Length: 10}},
			[]Entry{{TileID: 1, Offset: 0, Length: 10, RunLength: 1}, {TileID: 2, Offset: 10, Length: 10, RunLength: 1}}},
		{"gap in IDs",
			[]Entry{{TileID: 1, Offset: 0, Length: 10}, {TileID: 3, Offset: 0, Length: 10}},
			[]Entry{{TileID: 1, Offset: 0, Length: 10, RunLength: 1}, {TileID: 3, Offset: 0, Length: 10, RunLength: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := optimizeRunLengths(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("optimizeRunLengths = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSerializeDirectory_RoundTrip(t *testing.T) {
	entries := []Entry{
		{TileID: 0, Offset: 0, Length: 100, RunLength: 1},
		{TileID: 1, Offset: 100, Length: 200, RunLength: 1}, // contiguous
		{TileID: 5, Offset: 0, Length: 100, RunLength: 4},   // shared
		{TileID: 40, Offset: 300, Length: 150, RunLength: 1},
	}

	data, err := serializeDirectory(entries)
	if err != nil {
		t.Fatalf("serializeDirectory: %v", err)
	}
	got, err := DeserializeDirectory(data)
	if err != nil {
		t.Fatalf("DeserializeDirectory: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("round trip = %+v, want %+v", got, entries)
	}
}

func TestDeserializeDirectory_Invalid(t *testing.T) {
	if _, err := DeserializeDirectory([]byte("not gzip")); err == nil {
		t.Error("expected error for non-gzip data")
	}
	truncated, err := compressGzip([]byte{3, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DeserializeDirectory(truncated); err == nil {
		t.Error("expected error for truncated directory")
	}
}

func TestBuildDirectory_Leaves(t *testing.T) {
	// Distinct offsets keep every entry, forcing leaf directories.
	n := maxRootEntries + 10
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{TileID: uint64(n - i), Offset: uint64(i * 10), Length: 10}
	}

	root, leaves, err := buildDirectory(entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) == 0 {
		t.Fatal("expected leaf directories")
	}

	rootEntries, err := DeserializeDirectory(root)
	if err != nil {
		t.Fatal(err)
	}
	wantLeaves := (n + leafSize - 1) / leafSize
	if len(rootEntries) != wantLeaves {
		t.Fatalf("root entries = %d, want %d", len(rootEntries), wantLeaves)
	}

	total := 0
	for _, re := range rootEntries {
		if re.RunLength != 0 {
			t.Errorf("root entry %+v is not a leaf pointer", re)
		}
		leaf, err := DeserializeDirectory(leaves[re.Offset : re.Offset+uint64(re.Length)])
		if err != nil {
			t.Fatal(err)
		}
		if leaf[0].TileID != re.TileID {
			t.Errorf("leaf starts at %d, root says %d", leaf[0].TileID, re.TileID)
		}
		total += len(leaf)
	}
	if total != n {
		t.Errorf("leaf entries = %d, want %d", total, n)
	}
}
