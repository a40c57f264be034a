package pmtiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// Entry is one record of a PMTiles directory. RunLength 0 marks a pointer to
// a leaf directory.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

const (
	maxRootEntries = 16384
	leafSize       = 4096
)

// zoomStart returns the first tile ID of zoom level z: the number of tiles
// on all lower levels.
func zoomStart(z int) uint64 {
	var acc uint64
	for i := 0; i < z; i++ {
		n := uint64(1) << uint(i)
		acc += n * n
	}
	return acc
}

// TileIDRange returns the half-open tile ID range [first, end) of zoom z.
func TileIDRange(z int) (first, end uint64) {
	n := uint64(1) << uint(z)
	first = zoomStart(z)
	return first, first + n*n
}

// ZXYToTileID converts z/x/y to a PMTiles v3 tile ID. IDs follow a Hilbert
// curve within each zoom level, so sorting by ID clusters nearby tiles.
func ZXYToTileID(z, x, y int) uint64 {
	n := uint64(1) << uint(z)
	return zoomStart(z) + xyToHilbert(uint64(x), uint64(y), n)
}

// TileIDToZXY inverts ZXYToTileID.
func TileIDToZXY(tileID uint64) (z, x, y int) {
	var acc uint64
	for {
		n := uint64(1) << uint(z)
		if acc+n*n > tileID {
			hx, hy := hilbertToXY(tileID-acc, n)
			return z, int(hx), int(hy)
		}
		acc += n * n
		z++
	}
}

// SortTiles orders z/x/y triples by tile ID.
func SortTiles(tiles [][3]int) {
	slices.SortFunc(tiles, func(a, b [3]int) int {
		ia, ib := ZXYToTileID(a[0], a[1], a[2]), ZXYToTileID(b[0], b[1], b[2])
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	})
}

// xyToHilbert converts (x, y) to a Hilbert curve index for an n x n grid.
func xyToHilbert(x, y, n uint64) uint64 {
	var d uint64
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint64
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		x, y = rotate(s*2, x, y, rx, ry)
	}
	return d
}

// hilbertToXY converts a Hilbert curve index to (x, y) for an n x n grid.
func hilbertToXY(d, n uint64) (x, y uint64) {
	for s := uint64(1); s < n; s *= 2 {
		rx := 1 & (d / 2)
		ry := 1 & (d ^ rx)
		x, y = rotate(s, x, y, rx, ry)
		x += s * rx
		y += s * ry
		d /= 4
	}
	return x, y
}

// rotate flips and transposes a quadrant of side n.
func rotate(n, x, y, rx, ry uint64) (uint64, uint64) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		x, y = y, x
	}
	return x, y
}

// buildDirectory sorts entries, merges runs and serialises them. Directories
// larger than maxRootEntries are split into leaves of leafSize entries.
func buildDirectory(entries []Entry) (rootDir, leafDirs []byte, err error) {
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.TileID < b.TileID:
			return -1
		case a.TileID > b.TileID:
			return 1
		}
		return 0
	})
	runs := optimizeRunLengths(entries)

	if len(runs) <= maxRootEntries {
		rootDir, err = serializeDirectory(runs)
		return rootDir, nil, err
	}

	var leaves bytes.Buffer
	var root []Entry
	for chunk := range slices.Chunk(runs, leafSize) {
		leaf, err := serializeDirectory(chunk)
		if err != nil {
			return nil, nil, err
		}
		root = append(root, Entry{
			TileID: chunk[0].TileID,
			Offset: uint64(leaves.Len()),
			Length: uint32(len(leaf)),
		})
		leaves.Write(leaf)
	}

	rootDir, err = serializeDirectory(root)
	return rootDir, leaves.Bytes(), err
}

// optimizeRunLengths merges consecutive tile IDs that share the same data,
// which is how deduplicated uniform tiles end up in a single entry.
func optimizeRunLengths(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}

	result := make([]Entry, 0, len(entries))
	current := entries[0]
	current.RunLength = 1

	for _, e := range entries[1:] {
		if e.TileID == current.TileID+uint64(current.RunLength) &&
			e.Offset == current.Offset && e.Length == current.Length {
			current.RunLength++
			continue
		}
		result = append(result, current)
		current = e
		current.RunLength = 1
	}
	return append(result, current)
}

type uvarintWriter struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (w *uvarintWriter) put(v uint64) {
	n := binary.PutUvarint(w.tmp[:], v)
	w.buf.Write(w.tmp[:n])
}

// serializeDirectory writes entries column by column (delta tile IDs, run
// lengths, lengths, offsets) and gzips the result. An offset equal to the
// end of the previous entry is stored as 0, any other as offset+1.
func serializeDirectory(entries []Entry) ([]byte, error) {
	var w uvarintWriter
	w.put(uint64(len(entries)))

	var lastID uint64
	for _, e := range entries {
		w.put(e.TileID - lastID)
		lastID = e.TileID
	}
	for _, e := range entries {
		w.put(uint64(e.RunLength))
	}
	for _, e := range entries {
		w.put(uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			w.put(0)
			continue
		}
		w.put(e.Offset + 1)
	}

	return compressGzip(w.buf.Bytes())
}

// DeserializeDirectory decompresses and parses a PMTiles v3 directory.
func DeserializeDirectory(data []byte) ([]Entry, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("decompressing directory: %w", err)
	}
	r := bytes.NewReader(raw)

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	if count > uint64(len(raw)) {
		return nil, fmt.Errorf("entry count %d exceeds directory size", count)
	}
	entries := make([]Entry, count)

	column := func(name string, set func(i int, v uint64)) error {
		for i := range entries {
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return fmt.Errorf("reading %s %d: %w", name, i, err)
			}
			set(i, v)
		}
		return nil
	}

	var lastID uint64
	if err := column("tile ID", func(i int, v uint64) {
		lastID += v
		entries[i].TileID = lastID
	}); err != nil {
		return nil, err
	}
	if err := column("run length", func(i int, v uint64) { entries[i].RunLength = uint32(v) }); err != nil {
		return nil, err
	}
	if err := column("length", func(i int, v uint64) { entries[i].Length = uint32(v) }); err != nil {
		return nil, err
	}
	if err := column("offset", func(i int, v uint64) {
		if v == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
			return
		}
		entries[i].Offset = v - 1
	}); err != nil {
		return nil, err
	}
	return entries, nil
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
