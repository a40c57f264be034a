package pmtiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/paulmach/orb"
)

// ErrFinalized is returned when writing to a writer that has been finalised.
var ErrFinalized = errors.New("pmtiles writer already finalized")

// WriterOptions holds configuration for the PMTiles writer.
type WriterOptions struct {
	MinZoom     int
	MaxZoom     int
	Bounds      orb.Bound // lon/lat
	TileType    uint8
	Name        string
	Description string
	Attribution string
}

// Writer assembles a PMTiles v3 archive in memory. Coverage tiles are few
// and small, so tile data is buffered and laid out in tile-ID order when the
// archive is written.
//
// Identical tiles are stored once: every entry with the same bytes shares
// the offset of the first copy.
type Writer struct {
	opts WriterOptions

	mu        sync.Mutex
	blobs     [][]byte
	entries   []Entry          // Offset indexes blobs until finalised
	dedup     map[uint64][]int // FNV-64a hash → blob indices
	finalized bool
}

// NewWriter creates a new PMTiles writer.
func NewWriter(opts WriterOptions) *Writer {
	return &Writer{
		opts:  opts,
		dedup: make(map[uint64][]int),
	}
}

func tileHash(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// WriteTile adds a tile. Empty data is skipped. Safe for concurrent use.
func (w *Writer) WriteTile(z, x, y int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	tileID := ZXYToTileID(z, x, y)
	hash := tileHash(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrFinalized
	}

	blob := -1
	for _, i := range w.dedup[hash] {
		if bytes.Equal(w.blobs[i], data) {
			blob = i
			break
		}
	}
	if blob < 0 {
		blob = len(w.blobs)
		w.blobs = append(w.blobs, slices.Clone(data))
		w.dedup[hash] = append(w.dedup[hash], blob)
	}

	w.entries = append(w.entries, Entry{
		TileID:    tileID,
		Offset:    uint64(blob),
		Length:    uint32(len(data)),
		RunLength: 1,
	})
	return nil
}

// Stats returns the number of tiles written and of distinct tile contents.
func (w *Writer) Stats() (tiles, unique int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries), len(w.blobs)
}

// Finalize writes the archive to path. The archive is written to a
// temporary file next to path and renamed into place, so a failure leaves
// any existing file untouched.
func (w *Writer) Finalize(path string) error {
	w.mu.Lock()
	done := w.finalized
	w.mu.Unlock()
	if done {
		return ErrFinalized
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming output file: %w", err)
	}
	return nil
}

// WriteTo finalises the archive and writes it to out. Layout:
// header, root directory, metadata, leaf directories, tile data.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return 0, ErrFinalized
	}
	w.finalized = true

	tileData := w.clusterTileData()

	rootDir, leafDirs, err := buildDirectory(w.entries)
	if err != nil {
		return 0, fmt.Errorf("building directory: %w", err)
	}
	metadata, err := compressGzip(w.buildMetadata())
	if err != nil {
		return 0, fmt.Errorf("compressing metadata: %w", err)
	}

	h := NewHeader(w.opts)
	h.RootDirOffset = HeaderSize
	h.RootDirLength = uint64(len(rootDir))
	h.MetadataOffset = h.RootDirOffset + h.RootDirLength
	h.MetadataLength = uint64(len(metadata))
	h.LeafDirOffset = h.MetadataOffset + h.MetadataLength
	h.LeafDirLength = uint64(len(leafDirs))
	h.TileDataOffset = h.LeafDirOffset + h.LeafDirLength
	h.TileDataLength = uint64(len(tileData))
	h.NumAddressedTiles = uint64(len(w.entries))
	h.NumTileEntries = uint64(len(optimizeRunLengths(w.entries)))
	h.NumTileContents = uint64(len(w.blobs))

	var n int64
	for _, part := range [][]byte{h.Serialize(), rootDir, metadata, leafDirs, tileData} {
		m, err := out.Write(part)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("writing archive: %w", err)
		}
	}
	return n, nil
}

// clusterTileData sorts the entries by tile ID and lays the blobs out in
// first-use order, so the data follows the Hilbert order of the directory.
// Entry offsets are rewritten from blob indices to byte offsets.
func (w *Writer) clusterTileData() []byte {
	slices.SortFunc(w.entries, func(a, b Entry) int {
		switch {
		case a.TileID < b.TileID:
			return -1
		case a.TileID > b.TileID:
			return 1
		}
		return 0
	})

	var data bytes.Buffer
	placed := make(map[uint64]uint64, len(w.blobs)) // blob index → byte offset
	for i := range w.entries {
		e := &w.entries[i]
		off, ok := placed[e.Offset]
		if !ok {
			off = uint64(data.Len())
			data.Write(w.blobs[e.Offset])
			placed[e.Offset] = off
		}
		e.Offset = off
	}
	return data.Bytes()
}

func (w *Writer) buildMetadata() []byte {
	format := "unknown"
	switch w.opts.TileType {
	case TileTypePNG:
		format = "png"
	case TileTypeWebP:
		format = "webp"
	}

	name := w.opts.Name
	if name == "" {
		name = "camfootprint"
	}
	description := w.opts.Description
	if description == "" {
		description = "Camera footprint coverage"
	}

	b := w.opts.Bounds
	c := b.Center()
	meta := map[string]any{
		"name":        name,
		"description": description,
		"format":      format,
		"type":        "overlay",
		"minzoom":     fmt.Sprintf("%d", w.opts.MinZoom),
		"maxzoom":     fmt.Sprintf("%d", w.opts.MaxZoom),
		"bounds":      fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min[0], b.Min[1], b.Max[0], b.Max[1]),
		"center":      fmt.Sprintf("%.6f,%.6f,%d", c[0], c[1], (w.opts.MinZoom+w.opts.MaxZoom)/2),
	}
	if w.opts.Attribution != "" {
		meta["attribution"] = w.opts.Attribution
	}

	data, _ := json.Marshal(meta)
	return data
}
