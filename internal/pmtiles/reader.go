package pmtiles

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
)

// Reader provides read access to a PMTiles v3 archive.
type Reader struct {
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries []Entry // one per addressed tile, sorted by tile ID
}

// OpenReader opens a PMTiles v3 archive file.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header and directories of an archive.
func NewReader(ra io.ReaderAt) (*Reader, error) {
	buf := make([]byte, HeaderSize)
	if _, err := ra.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header, err := DeserializeHeader(buf)
	if err != nil {
		return nil, err
	}

	root, err := readDirectory(ra, header.RootDirOffset, header.RootDirLength)
	if err != nil {
		return nil, fmt.Errorf("root directory: %w", err)
	}

	var entries []Entry
	for _, e := range root {
		if e.RunLength > 0 {
			entries = expand(entries, e)
			continue
		}
		leaf, err := readDirectory(ra, header.LeafDirOffset+e.Offset, uint64(e.Length))
		if err != nil {
			return nil, fmt.Errorf("leaf directory at %d: %w", e.Offset, err)
		}
		for _, le := range leaf {
			entries = expand(entries, le)
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.TileID < b.TileID:
			return -1
		case a.TileID > b.TileID:
			return 1
		}
		return 0
	})

	return &Reader{r: ra, header: header, entries: entries}, nil
}

func readDirectory(ra io.ReaderAt, offset, length uint64) ([]Entry, error) {
	data := make([]byte, length)
	if _, err := ra.ReadAt(data, int64(offset)); err != nil {
		return nil, err
	}
	return DeserializeDirectory(data)
}

// expand appends one entry per tile of a run; all share the run's data.
func expand(dst []Entry, e Entry) []Entry {
	for i := uint32(0); i < e.RunLength; i++ {
		dst = append(dst, Entry{TileID: e.TileID + uint64(i), Offset: e.Offset, Length: e.Length, RunLength: 1})
	}
	return dst
}

// Header returns the parsed header.
func (r *Reader) Header() Header {
	return r.header
}

// NumTiles returns the number of addressed tiles.
func (r *Reader) NumTiles() int {
	return len(r.entries)
}

// ReadTile returns the tile bytes at z/x/y, or nil, nil when absent.
func (r *Reader) ReadTile(z, x, y int) ([]byte, error) {
	id := ZXYToTileID(z, x, y)
	i := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].TileID >= id })
	if i == len(r.entries) || r.entries[i].TileID != id {
		return nil, nil
	}

	e := r.entries[i]
	data := make([]byte, e.Length)
	if _, err := r.r.ReadAt(data, int64(r.header.TileDataOffset+e.Offset)); err != nil {
		return nil, fmt.Errorf("reading tile z%d/%d/%d: %w", z, x, y, err)
	}
	return data, nil
}

// TilesAtZoom returns the [z, x, y] coordinates of all tiles at zoom z.
func (r *Reader) TilesAtZoom(z int) [][3]int {
	first, end := TileIDRange(z)
	start := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].TileID >= first })

	var tiles [][3]int
	for _, e := range r.entries[start:] {
		if e.TileID >= end {
			break
		}
		_, x, y := TileIDToZXY(e.TileID)
		tiles = append(tiles, [3]int{z, x, y})
	}
	return tiles
}

// ReadMetadata returns the decoded JSON metadata, or nil when there is none.
func (r *Reader) ReadMetadata() (map[string]any, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}
	raw := make([]byte, r.header.MetadataLength)
	if _, err := r.r.ReadAt(raw, int64(r.header.MetadataOffset)); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decompressing metadata: %w", err)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompressing metadata: %w", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata JSON: %w", err)
	}
	return meta, nil
}

// Close closes the underlying file when the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
