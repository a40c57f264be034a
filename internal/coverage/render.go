package coverage

import (
	"image"
	"image/color"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pspoerri/camfootprint/internal/coord"
)

// Palette maps an overlap count to a colour. Index 0 is transparent; counts
// beyond the last entry are clamped to it.
var Palette = color.Palette{
	color.RGBA{},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x60},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x90},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xb0},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xc8},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xe0},
}

// renderTile returns the overlap counts of a tile as palette indices, or nil
// when no footprint touches the tile.
func renderTile(z, x, y, size int, fps []Footprint) *image.Paletted {
	minLon, minLat, maxLon, maxLat := coord.TileBounds(z, x, y)
	tb := orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}

	var polys []orb.Polygon
	for _, f := range fps {
		if f.Bound.Intersects(tb) {
			polys = append(polys, f.Polygon)
		}
	}
	if len(polys) == 0 {
		return nil
	}

	img := image.NewPaletted(image.Rect(0, 0, size, size), Palette)
	top := uint8(len(Palette) - 1)
	for py := 0; py < size; py++ {
		row := img.Pix[py*img.Stride : py*img.Stride+size]
		for px := range row {
			lon, lat := coord.PixelToLonLat(z, x, y, size, float64(px)+0.5, float64(py)+0.5)
			pt := orb.Point{lon, lat}
			var n uint8
			for _, poly := range polys {
				if n < top && planar.PolygonContains(poly, pt) {
					n++
				}
			}
			row[px] = n
		}
	}
	return img
}

// detectUniform reports whether every pixel of img has the same palette
// index, and which.
func detectUniform(img *image.Paletted) (uint8, bool) {
	b := img.Bounds()
	if b.Empty() {
		return 0, false
	}
	first := img.Pix[0]
	for y := 0; y < b.Dy(); y++ {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+b.Dx()] {
			if v != first {
				return 0, false
			}
		}
	}
	return first, true
}
