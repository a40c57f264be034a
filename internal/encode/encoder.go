// Package encode turns rendered coverage tiles into PNG or WebP bytes.
package encode

import (
	"fmt"
	"image"
	"strings"
)

// TileType constants matching the PMTiles v3 tile types.
const (
	TileTypeUnknown = 0
	TileTypePNG     = 2
	TileTypeWebP    = 4
)

// Encoder encodes an image into tile bytes.
type Encoder interface {
	// Encode encodes an image to bytes in the tile format.
	Encode(img image.Image) ([]byte, error)

	// Format returns the format name ("png" or "webp").
	Format() string

	// PMTileType returns the PMTiles tile type constant.
	PMTileType() uint8
}

// NewEncoder creates an encoder for the given format. quality applies to
// lossy WebP; "webp" with quality 0 or 100 encodes losslessly.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch strings.ToLower(format) {
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return &WebPEncoder{Quality: quality, Lossless: quality <= 0 || quality >= 100}, nil
	default:
		return nil, fmt.Errorf("unsupported tile format: %q (supported: png, webp)", format)
	}
}
