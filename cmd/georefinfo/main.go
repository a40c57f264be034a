package main

import (
	"fmt"
	"os"

	"github.com/golang/geo/r2"

	"github.com/pspoerri/camfootprint/internal/cog"
	"github.com/pspoerri/camfootprint/internal/georef"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: georefinfo <file.tif>\n")
		os.Exit(1)
	}

	info, err := cog.ReadInfo(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ref, err := georef.FromInfo(info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	geo := info.Geo
	fmt.Printf("File: %s\n", info.Path)
	fmt.Printf("Georeference: %s (from %s)\n", ref, info.GeoSource)
	fmt.Printf("Size: %d x %d, %d band(s), %d overview(s)\n", info.Width, info.Height, info.Bands, info.Overviews)
	if info.NoData != "" {
		fmt.Printf("NoData: %s\n", info.NoData)
	}
	fmt.Printf("EPSG: %d\n", geo.EPSG)
	fmt.Printf("Pixel size (CRS units): %g x %g\n", geo.PixelSizeX, geo.PixelSizeY)
	fmt.Printf("Origin: X=%f, Y=%f\n", geo.OriginX, geo.OriginY)

	d := ref.Datum()
	fmt.Printf("Datum: %s, a=%.3f m, b=%.3f m\n", d.Name(), d.SemiMajorAxis(), d.SemiMinorAxis())
	if geo.CoordTrans != 0 {
		fmt.Printf("Projection parameters: center lon %g, origin lat %g, standard parallel %g\n",
			geo.CenterLon, geo.OriginLat, geo.StdParallel)
	}

	minX, minY, maxX, maxY := info.BoundsInCRS()
	fmt.Printf("Bounds (CRS): X=[%f, %f], Y=[%f, %f]\n", minX, maxX, minY, maxY)

	// Corners in lon/lat, clockwise from the upper left.
	fmt.Printf("Corners (lon/lat):\n")
	w, h := float64(info.Width), float64(info.Height)
	for _, c := range []struct {
		name string
		pix  r2.Point
	}{
		{"upper left", r2.Point{X: 0, Y: 0}},
		{"upper right", r2.Point{X: w, Y: 0}},
		{"lower right", r2.Point{X: w, Y: h}},
		{"lower left", r2.Point{X: 0, Y: h}},
		{"center", r2.Point{X: w / 2, Y: h / 2}},
	} {
		ll := ref.PointToLonLat(ref.PixelToPoint(c.pix))
		fmt.Printf("  %-12s %12.6f %12.6f\n", c.name+":", ll.X, ll.Y)
	}
}
