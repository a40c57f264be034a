package coverage

import (
	"fmt"
	"image"

	"github.com/pspoerri/camfootprint/internal/encode"
	"github.com/pspoerri/camfootprint/internal/pmtiles"
)

// Summary describes a coverage archive.
type Summary struct {
	Header     pmtiles.Header
	Metadata   map[string]any
	Format     string      // "png" or "webp"
	Tiles      map[int]int // tile count per zoom
	MaxOverlap int         // highest overlap count in any tile
}

// Inspect opens a coverage archive, decodes every tile and reports what it
// holds.
func Inspect(path string) (*Summary, error) {
	r, err := pmtiles.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	meta, err := r.ReadMetadata()
	if err != nil {
		return nil, err
	}
	h := r.Header()
	s := &Summary{Header: h, Metadata: meta, Tiles: make(map[int]int)}
	switch h.TileType {
	case pmtiles.TileTypePNG:
		s.Format = "png"
	case pmtiles.TileTypeWebP:
		s.Format = "webp"
	default:
		return nil, fmt.Errorf("%s: unsupported tile type %d", path, h.TileType)
	}

	for z := int(h.MinZoom); z <= int(h.MaxZoom); z++ {
		for _, t := range r.TilesAtZoom(z) {
			data, err := r.ReadTile(t[0], t[1], t[2])
			if err != nil {
				return nil, err
			}
			img, err := encode.DecodeImage(data, s.Format)
			if err != nil {
				return nil, fmt.Errorf("tile z%d/%d/%d: %w", t[0], t[1], t[2], err)
			}
			s.Tiles[z]++
			s.MaxOverlap = max(s.MaxOverlap, maxOverlap(img))
		}
	}
	return s, nil
}

// maxOverlap returns the highest overlap count in img. Tiles that did not
// decode to palette indices are matched to the nearest palette colour.
func maxOverlap(img image.Image) int {
	m := 0
	if p, ok := img.(*image.Paletted); ok {
		for _, i := range p.Pix {
			m = max(m, int(i))
		}
		return m
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			m = max(m, Palette.Index(img.At(x, y)))
		}
	}
	return m
}
