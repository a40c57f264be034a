package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/pspoerri/camfootprint/internal/coverage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: coverageinfo <coverage.pmtiles>\n")
		os.Exit(1)
	}

	s, err := coverage.Inspect(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	h := s.Header
	fmt.Printf("File: %s\n", os.Args[1])
	if name, ok := s.Metadata["name"].(string); ok {
		fmt.Printf("Name: %s\n", name)
	}
	fmt.Printf("Format: %s\n", s.Format)
	fmt.Printf("Zoom: %d - %d\n", h.MinZoom, h.MaxZoom)
	fmt.Printf("Bounds (lon/lat): [%f, %f] -> [%f, %f]\n", h.Bounds.Min[0], h.Bounds.Min[1], h.Bounds.Max[0], h.Bounds.Max[1])
	fmt.Printf("Tiles: %d addressed, %d entries, %d unique\n", h.NumAddressedTiles, h.NumTileEntries, h.NumTileContents)
	fmt.Printf("Tile data: %d bytes\n", h.TileDataLength)
	fmt.Printf("Max overlap: %d\n", s.MaxOverlap)

	for _, z := range slices.Sorted(maps.Keys(s.Tiles)) {
		fmt.Printf("  z%-2d %6d tiles\n", z, s.Tiles[z])
	}
}
