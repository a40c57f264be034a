package coverage

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/pspoerri/camfootprint/internal/coord"
	"github.com/pspoerri/camfootprint/internal/encode"
	"github.com/pspoerri/camfootprint/internal/pmtiles"
	"github.com/pspoerri/camfootprint/internal/progress"
)

// ErrNoFootprints is returned when there is nothing to render.
var ErrNoFootprints = errors.New("no footprints to render")

// Config holds tile generation configuration.
type Config struct {
	MinZoom     int
	MaxZoom     int
	TileSize    int
	Concurrency int
	Verbose     bool
	Progress    bool
	Encoder     encode.Encoder
}

// Stats holds generation statistics.
type Stats struct {
	TileCount    int64
	EmptyTiles   int64
	UniformTiles int64
	TotalBytes   int64
}

// TileWriter is the interface for writing tiles (implemented by pmtiles.Writer).
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
}

// Tiles lists the tiles of zooms minZoom..maxZoom that intersect the
// footprints, in PMTiles tile-ID order.
func Tiles(fps []Footprint, minZoom, maxZoom int) [][3]int {
	b, ok := Bound(fps)
	if !ok {
		return nil
	}
	var tiles [][3]int
	for z := minZoom; z <= maxZoom; z++ {
		tiles = append(tiles, coord.TilesInBounds(z, b.Min[0], b.Min[1], b.Max[0], b.Max[1])...)
	}
	pmtiles.SortTiles(tiles)
	return tiles
}

// Generate renders the coverage of fps for every zoom level and writes the
// non-empty tiles via the TileWriter.
func Generate(cfg Config, fps []Footprint, writer TileWriter) (Stats, error) {
	if len(fps) == 0 {
		return Stats{}, ErrNoFootprints
	}
	if cfg.Encoder == nil {
		return Stats{}, fmt.Errorf("no encoder")
	}
	if cfg.MinZoom < 0 || cfg.MaxZoom < cfg.MinZoom {
		return Stats{}, fmt.Errorf("invalid zoom range %d..%d", cfg.MinZoom, cfg.MaxZoom)
	}
	tileSize := cfg.TileSize
	if tileSize <= 0 {
		tileSize = 256
	}

	tiles := Tiles(fps, cfg.MinZoom, cfg.MaxZoom)
	if len(tiles) == 0 {
		return Stats{}, ErrNoFootprints
	}
	nWorkers := min(max(cfg.Concurrency, 1), len(tiles))
	if cfg.Verbose {
		log.Printf("Rendering %d tiles for %d footprints (zoom %d-%d, %d workers)",
			len(tiles), len(fps), cfg.MinZoom, cfg.MaxZoom, nWorkers)
	}

	var pb *progress.Bar
	if cfg.Progress {
		pb = progress.New("Coverage", "tiles", int64(len(tiles)))
	}

	var tileCount, emptyCount, uniformCount, totalBytes atomic.Int64
	jobs := make(chan [3]int, nWorkers*2)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				z, x, y := t[0], t[1], t[2]
				if pb != nil {
					pb.Increment()
				}

				img := renderTile(z, x, y, tileSize, fps)
				if img == nil {
					emptyCount.Add(1)
					continue
				}
				if idx, ok := detectUniform(img); ok {
					if idx == 0 {
						emptyCount.Add(1)
						continue
					}
					uniformCount.Add(1)
				}

				data, err := cfg.Encoder.Encode(img)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("encoding tile z%d/%d/%d: %w", z, x, y, err):
					default:
					}
					return
				}
				if err := writer.WriteTile(z, x, y, data); err != nil {
					select {
					case errCh <- fmt.Errorf("writing tile z%d/%d/%d: %w", z, x, y, err):
					default:
					}
					return
				}

				tileCount.Add(1)
				totalBytes.Add(int64(len(data)))
			}
		}()
	}

	var firstErr error
feed:
	for _, t := range tiles {
		select {
		case jobs <- t:
		case firstErr = <-errCh:
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if pb != nil {
		pb.Finish()
	}

	if firstErr == nil {
		select {
		case firstErr = <-errCh:
		default:
		}
	}
	if firstErr != nil {
		return Stats{}, firstErr
	}

	stats := Stats{
		TileCount:    tileCount.Load(),
		EmptyTiles:   emptyCount.Load(),
		UniformTiles: uniformCount.Load(),
		TotalBytes:   totalBytes.Load(),
	}
	if cfg.Verbose {
		log.Printf("Coverage: %d tiles written, %d empty, %d uniform",
			stats.TileCount, stats.EmptyTiles, stats.UniformTiles)
	}
	return stats, nil
}
