// Package pmtiles writes and reads PMTiles v3 archives of raster tiles.
package pmtiles

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// PMTiles v3 constants.
const (
	HeaderSize = 127

	CompressionUnknown = 0
	CompressionNone    = 1
	CompressionGzip    = 2

	TileTypeUnknown = 0
	TileTypePNG     = 2
	TileTypeWebP    = 4
)

// ErrNotPMTiles is returned for data without the PMTiles v3 magic.
var ErrNotPMTiles = errors.New("not a PMTiles v3 archive")

// Header is the fixed 127-byte PMTiles v3 header.
type Header struct {
	RootDirOffset       uint64
	RootDirLength       uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirOffset       uint64
	LeafDirLength       uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	NumAddressedTiles   uint64
	NumTileEntries      uint64
	NumTileContents     uint64
	Clustered           bool
	InternalCompression uint8
	TileCompression     uint8
	TileType            uint8
	MinZoom             uint8
	MaxZoom             uint8
	Bounds              orb.Bound
	CenterZoom          uint8
	Center              orb.Point
}

// NewHeader fills the descriptive fields of a header from writer options.
func NewHeader(opts WriterOptions) Header {
	return Header{
		Clustered:           true,
		InternalCompression: CompressionGzip,
		TileCompression:     CompressionNone, // PNG and WebP are already compressed
		TileType:            opts.TileType,
		MinZoom:             uint8(opts.MinZoom),
		MaxZoom:             uint8(opts.MaxZoom),
		Bounds:              opts.Bounds,
		CenterZoom:          uint8((opts.MinZoom + opts.MaxZoom) / 2),
		Center:              opts.Bounds.Center(),
	}
}

// Serialize writes the 127-byte header.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:7], "PMTiles")
	buf[7] = 3

	le := binary.LittleEndian
	for i, v := range []uint64{
		h.RootDirOffset, h.RootDirLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirOffset, h.LeafDirLength,
		h.TileDataOffset, h.TileDataLength,
		h.NumAddressedTiles, h.NumTileEntries, h.NumTileContents,
	} {
		le.PutUint64(buf[8+8*i:], v)
	}

	if h.Clustered {
		buf[96] = 1
	}
	buf[97] = h.InternalCompression
	buf[98] = h.TileCompression
	buf[99] = h.TileType
	buf[100] = h.MinZoom
	buf[101] = h.MaxZoom

	le.PutUint32(buf[102:], toE7(h.Bounds.Min[0]))
	le.PutUint32(buf[106:], toE7(h.Bounds.Min[1]))
	le.PutUint32(buf[110:], toE7(h.Bounds.Max[0]))
	le.PutUint32(buf[114:], toE7(h.Bounds.Max[1]))
	buf[118] = h.CenterZoom
	le.PutUint32(buf[119:], toE7(h.Center[0]))
	le.PutUint32(buf[123:], toE7(h.Center[1]))
	return buf
}

// DeserializeHeader parses a 127-byte header.
func DeserializeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize || string(buf[0:7]) != "PMTiles" {
		return Header{}, ErrNotPMTiles
	}
	if buf[7] != 3 {
		return Header{}, fmt.Errorf("%w: version %d", ErrNotPMTiles, buf[7])
	}

	le := binary.LittleEndian
	u := func(i int) uint64 { return le.Uint64(buf[8+8*i:]) }
	e7 := func(off int) float64 { return fromE7(le.Uint32(buf[off:])) }

	return Header{
		RootDirOffset:       u(0),
		RootDirLength:       u(1),
		MetadataOffset:      u(2),
		MetadataLength:      u(3),
		LeafDirOffset:       u(4),
		LeafDirLength:       u(5),
		TileDataOffset:      u(6),
		TileDataLength:      u(7),
		NumAddressedTiles:   u(8),
		NumTileEntries:      u(9),
		NumTileContents:     u(10),
		Clustered:           buf[96] == 1,
		InternalCompression: buf[97],
		TileCompression:     buf[98],
		TileType:            buf[99],
		MinZoom:             buf[100],
		MaxZoom:             buf[101],
		Bounds: orb.Bound{
			Min: orb.Point{e7(102), e7(106)},
			Max: orb.Point{e7(110), e7(114)},
		},
		CenterZoom: buf[118],
		Center:     orb.Point{e7(119), e7(123)},
	}, nil
}

// toE7 encodes degrees as a little-endian int32 of 1e-7 degree units.
func toE7(v float64) uint32 {
	return uint32(int32(math.Round(v * 1e7)))
}

func fromE7(v uint32) float64 {
	return float64(int32(v)) / 1e7
}
