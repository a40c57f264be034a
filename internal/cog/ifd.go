package cog

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tag IDs.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagSamplesPerPixel     = 277
	tagModelPixelScaleTag  = 33550
	tagModelTiepointTag    = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectoryTag  = 34735
	tagGeoDoubleParamsTag  = 34736
	tagGeoAsciiParamsTag   = 34737
	tagGDALNoData          = 42113
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// IFD holds the georeferencing tags of one TIFF image directory. Pixel data
// is never read.
type IFD struct {
	Width           uint32
	Height          uint32
	SamplesPerPixel uint16
	ModelTiepoint   []float64
	ModelPixelScale []float64
	ModelTransform  []float64
	GeoKeys         []uint16
	GeoDoubleParams []float64
	GeoAsciiParams  string
	NoData          string
}

// tiffEntry is a raw directory entry. Value holds the inline bytes until
// resolve replaces them with the referenced data.
type tiffEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte
}

// tiffReader walks the directory chain of a classic or BigTIFF file.
type tiffReader struct {
	r   io.ReadSeeker
	bo  binary.ByteOrder
	big bool
}

// parseTIFF reads all IFDs from a TIFF file.
func parseTIFF(r io.ReadSeeker) ([]IFD, binary.ByteOrder, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("reading TIFF header: %w", err)
	}

	t := &tiffReader{r: r}
	switch string(header[0:2]) {
	case "II":
		t.bo = binary.LittleEndian
	case "MM":
		t.bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("invalid TIFF byte order: %x", header[0:2])
	}

	var offset uint64
	switch magic := t.bo.Uint16(header[2:4]); magic {
	case 42:
		offset = uint64(t.bo.Uint32(header[4:8]))
	case 43:
		// BigTIFF: offset size and padding, then an 8-byte first IFD offset.
		t.big = true
		v, err := t.readUint(8)
		if err != nil {
			return nil, nil, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		offset = v
	default:
		return nil, nil, fmt.Errorf("invalid TIFF magic: %d", magic)
	}

	var ifds []IFD
	seen := map[uint64]bool{}
	for offset != 0 {
		if seen[offset] {
			return nil, nil, fmt.Errorf("IFD loop at offset %d", offset)
		}
		seen[offset] = true

		ifd, next, err := t.readIFD(offset)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing IFD at offset %d: %w", offset, err)
		}
		ifds = append(ifds, ifd)
		offset = next
	}
	return ifds, t.bo, nil
}

func (t *tiffReader) readUint(size int) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(t.r, buf[:size]); err != nil {
		return 0, err
	}
	switch size {
	case 2:
		return uint64(t.bo.Uint16(buf[:2])), nil
	case 4:
		return uint64(t.bo.Uint32(buf[:4])), nil
	default:
		return t.bo.Uint64(buf[:8]), nil
	}
}

func (t *tiffReader) readIFD(offset uint64) (IFD, uint64, error) {
	if _, err := t.r.Seek(int64(offset), io.SeekStart); err != nil {
		return IFD{}, 0, err
	}

	countSize, entrySize, offsetSize := 2, 12, 4
	if t.big {
		countSize, entrySize, offsetSize = 8, 20, 8
	}

	n, err := t.readUint(countSize)
	if err != nil {
		return IFD{}, 0, err
	}

	buf := make([]byte, int(n)*entrySize)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return IFD{}, 0, err
	}
	next, err := t.readUint(offsetSize)
	if err != nil {
		return IFD{}, 0, err
	}

	entries := make([]tiffEntry, n)
	for i := range entries {
		entries[i] = t.entry(buf[i*entrySize : (i+1)*entrySize])
	}
	for i := range entries {
		if err := t.resolve(&entries[i]); err != nil {
			return IFD{}, 0, fmt.Errorf("resolving entry tag %d: %w", entries[i].Tag, err)
		}
	}
	return buildIFD(entries, t.bo), next, nil
}

func (t *tiffReader) entry(buf []byte) tiffEntry {
	e := tiffEntry{
		Tag:      t.bo.Uint16(buf[0:2]),
		DataType: t.bo.Uint16(buf[2:4]),
	}
	if t.big {
		e.Count = t.bo.Uint64(buf[4:12])
		e.Value = append([]byte(nil), buf[12:20]...)
	} else {
		e.Count = uint64(t.bo.Uint32(buf[4:8]))
		e.Value = append([]byte(nil), buf[8:12]...)
	}
	return e
}

// resolve loads the data of an entry that does not fit inline.
func (t *tiffReader) resolve(e *tiffEntry) error {
	total := e.Count * uint64(dataTypeSize(e.DataType))
	if total <= uint64(len(e.Value)) {
		return nil
	}
	if total > 64<<20 {
		return fmt.Errorf("entry of %d bytes is too large", total)
	}

	var at uint64
	if t.big {
		at = t.bo.Uint64(e.Value)
	} else {
		at = uint64(t.bo.Uint32(e.Value))
	}
	if _, err := t.r.Seek(int64(at), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, total)
	if _, err := io.ReadFull(t.r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 1
	}
}

func buildIFD(entries []tiffEntry, bo binary.ByteOrder) IFD {
	ifd := IFD{SamplesPerPixel: 1}
	for _, e := range entries {
		switch e.Tag {
		case tagImageWidth:
			ifd.Width = uint32(getUint(e, bo, 0))
		case tagImageLength:
			ifd.Height = uint32(getUint(e, bo, 0))
		case tagSamplesPerPixel:
			ifd.SamplesPerPixel = uint16(getUint(e, bo, 0))
		case tagModelTiepointTag:
			ifd.ModelTiepoint = getFloat64Slice(e, bo)
		case tagModelPixelScaleTag:
			ifd.ModelPixelScale = getFloat64Slice(e, bo)
		case tagModelTransformation:
			ifd.ModelTransform = getFloat64Slice(e, bo)
		case tagGeoKeyDirectoryTag:
			ifd.GeoKeys = getUint16Slice(e, bo)
		case tagGeoDoubleParamsTag:
			ifd.GeoDoubleParams = getFloat64Slice(e, bo)
		case tagGeoAsciiParamsTag:
			ifd.GeoAsciiParams = asciiValue(e)
		case tagGDALNoData:
			ifd.NoData = asciiValue(e)
		}
	}
	return ifd
}

// getUint returns element i of an integer-typed entry.
func getUint(e tiffEntry, bo binary.ByteOrder, i int) uint64 {
	switch e.DataType {
	case dtShort, dtSShort:
		return uint64(bo.Uint16(e.Value[i*2:]))
	case dtLong, dtSLong:
		return uint64(bo.Uint32(e.Value[i*4:]))
	case dtLong8, dtSLong8, dtIFD8:
		return bo.Uint64(e.Value[i*8:])
	default:
		return uint64(e.Value[i])
	}
}

func getUint16Slice(e tiffEntry, bo binary.ByteOrder) []uint16 {
	out := make([]uint16, e.Count)
	for i := range out {
		out[i] = uint16(getUint(e, bo, i))
	}
	return out
}

func getFloat64Slice(e tiffEntry, bo binary.ByteOrder) []float64 {
	out := make([]float64, e.Count)
	for i := range out {
		switch e.DataType {
		case dtDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.Value[i*8:]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.Value[i*4:])))
		}
	}
	return out
}

func asciiValue(e tiffEntry) string {
	n := min(int(e.Count), len(e.Value))
	s := e.Value[:n]
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s)
}
