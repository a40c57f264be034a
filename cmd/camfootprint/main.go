package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/pspoerri/camfootprint/internal/catalog"
	"github.com/pspoerri/camfootprint/internal/config"
	"github.com/pspoerri/camfootprint/internal/coverage"
	"github.com/pspoerri/camfootprint/internal/encode"
	"github.com/pspoerri/camfootprint/internal/pmtiles"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		geojsonPath  string
		coveragePath string
		format       string
		quality      int
		minZoom      int
		maxZoom      int
		tileSize     int
		query        string
		refPath      string
		concurrency  int
		verbose      bool
		showProgress bool
		showVersion  bool
		cpuProfile   string

		// Single nadir camera.
		lon, lat, alt float64
		fov, yaw      float64
		cols, rows    int
		datum         string
		projection    string
		centerLon     float64
	)

	flag.StringVar(&geojsonPath, "geojson", "", "Write footprints as GeoJSON to file")
	flag.StringVar(&coveragePath, "coverage", "", "Write coverage tiles to a .pmtiles archive")
	flag.StringVar(&format, "format", "png", "Coverage tile encoding: png, webp")
	flag.IntVar(&quality, "quality", 0, "WebP quality 1-99 (0 = lossless)")
	flag.IntVar(&minZoom, "min-zoom", -1, "Minimum coverage zoom level (default: auto)")
	flag.IntVar(&maxZoom, "max-zoom", -1, "Maximum coverage zoom level (default: auto from footprint size)")
	flag.IntVar(&tileSize, "tile-size", 256, "Coverage tile size in pixels")
	flag.StringVar(&query, "query", "", "Print the cameras covering lon,lat")
	flag.StringVar(&refPath, "ref", "", "GeoTIFF whose georeference is used (reports pixel windows)")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of parallel workers")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.BoolVar(&showProgress, "progress", true, "Draw progress bars on stderr")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")

	flag.Float64Var(&lon, "lon", 0, "Camera longitude in degrees (without a job file)")
	flag.Float64Var(&lat, "lat", 0, "Camera latitude in degrees")
	flag.Float64Var(&alt, "alt", 500_000, "Camera height above the datum in meters")
	flag.Float64Var(&fov, "fov", 30, "Horizontal field of view in degrees")
	flag.Float64Var(&yaw, "yaw", 0, "Image up direction, degrees clockwise from north")
	flag.IntVar(&cols, "cols", 1000, "Image width in pixels")
	flag.IntVar(&rows, "rows", 1000, "Image height in pixels")
	flag.StringVar(&datum, "datum", "WGS84", "Datum: WGS84, WGS72, Moon, Mars, MarsSphere")
	flag.StringVar(&projection, "projection", "geographic", "Map projection, e.g. geographic, geographic360, mercator, polar-north, EPSG:2056")
	flag.Float64Var(&centerLon, "center-lon", 0, "Central meridian of the projection")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: camfootprint [flags] [job.yaml]\n\n")
		fmt.Fprintf(os.Stderr, "Compute the ground footprint and scale of camera images.\n")
		fmt.Fprintf(os.Stderr, "Without a job file a single nadir camera is built from the flags.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("camfootprint %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	var job *config.Job
	switch flag.NArg() {
	case 0:
		job = &config.Job{
			Name:       "camfootprint",
			Datum:      config.DatumSpec{Name: datum},
			Projection: projection,
			CenterLon:  centerLon,
			Cameras: []config.CameraSpec{{
				Name:      "camera",
				Type:      config.CameraNadir,
				Cols:      int32(cols),
				Rows:      int32(rows),
				FOV:       fov,
				Yaw:       yaw,
				LonLatAlt: &[3]float64{lon, lat, alt},
			}},
		}
	case 1:
		var err error
		job, err = config.Load(flag.Arg(0))
		if err != nil {
			log.Fatalf("Loading job: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
	if refPath != "" {
		job.Reference = refPath
	}

	var queryPoint orb.Point
	if query != "" {
		p, err := parseLonLat(query)
		if err != nil {
			log.Fatalf("Query: %v", err)
		}
		queryPoint = p
	}

	var enc encode.Encoder
	if coveragePath != "" {
		if !strings.HasSuffix(coveragePath, ".pmtiles") {
			log.Fatal("Coverage file must have .pmtiles extension")
		}
		var err error
		enc, err = encode.NewEncoder(format, quality)
		if err != nil {
			log.Fatalf("Encoder: %v", err)
		}
	}

	start := time.Now()
	idx, stats, err := catalog.Build(catalog.Config{
		Concurrency: concurrency,
		Verbose:     verbose,
		Progress:    showProgress && len(job.Cameras) > 1,
	}, job)
	if err != nil {
		log.Fatalf("Footprints: %v", err)
	}

	fmt.Printf("camfootprint %s (commit %s, built %s)\n", version, commit, buildDate)
	fmt.Printf("  %-14s %s\n", "Job:", job.Name)
	fmt.Printf("  %-14s %s\n", "Reference:", idx.Reference())
	fmt.Printf("  %-14s %d (%d valid, %d empty)\n", "Cameras:", stats.Cameras, stats.Valid, stats.Empty)
	fmt.Println()
	for _, e := range idx.Entries() {
		printEntry(e)
	}

	if query != "" {
		hits := idx.CoveringLonLat(queryPoint[0], queryPoint[1])
		names := make([]string, 0, len(hits))
		for _, e := range hits {
			names = append(names, e.Name)
		}
		fmt.Printf("\n  %-14s %d camera(s) cover %s: %s\n", "Query:", len(hits), query, strings.Join(names, ", "))
	}

	if geojsonPath != "" {
		if err := idx.WriteGeoJSON(geojsonPath); err != nil {
			log.Fatalf("GeoJSON: %v", err)
		}
		fmt.Printf("  %-14s %s\n", "GeoJSON:", geojsonPath)
	}

	if coveragePath != "" {
		writeCoverage(idx, enc, coveragePath, minZoom, maxZoom, tileSize, concurrency, verbose, showProgress)
	}

	if verbose {
		log.Printf("Finished in %v", time.Since(start).Round(time.Millisecond))
	}
}

func writeCoverage(idx *catalog.Index, enc encode.Encoder, path string, minZoom, maxZoom, tileSize, concurrency int, verbose, showProgress bool) {
	fps := coverage.Footprints(idx)
	if len(fps) == 0 {
		log.Printf("WARNING: no camera sees the datum, skipping coverage")
		return
	}
	bound, _ := coverage.Bound(fps)

	autoMin, autoMax := coverage.AutoZoomRange(fps, tileSize)
	if limit, ok := coverage.ResolutionZoom(idx, tileSize); ok && limit < autoMax {
		autoMax = limit
		autoMin = max(autoMax-6, 0)
	}
	if maxZoom < 0 {
		maxZoom = autoMax
	}
	if minZoom < 0 {
		minZoom = min(autoMin, maxZoom)
	}
	if verbose {
		log.Printf("Coverage zoom range: %d - %d (auto-detected max: %d)", minZoom, maxZoom, autoMax)
	}

	writer := pmtiles.NewWriter(pmtiles.WriterOptions{
		MinZoom:  minZoom,
		MaxZoom:  maxZoom,
		Bounds:   bound,
		TileType: enc.PMTileType(),
		Name:     "camfootprint",
	})

	genStart := time.Now()
	stats, err := coverage.Generate(coverage.Config{
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		TileSize:    tileSize,
		Concurrency: concurrency,
		Verbose:     verbose,
		Progress:    showProgress,
		Encoder:     enc,
	}, fps, writer)
	if err != nil {
		log.Fatalf("Coverage: %v", err)
	}
	if err := writer.Finalize(path); err != nil {
		log.Fatalf("Finalizing PMTiles: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Coverage: %v", err)
	}
	fmt.Printf("  %-14s %d tiles (%d uniform, %d empty), zoom %d - %d, %s, %v -> %s\n", "Coverage:",
		stats.TileCount, stats.UniformTiles, stats.EmptyTiles, minZoom, maxZoom,
		humanSize(fi.Size()), time.Since(genStart).Round(time.Millisecond), path)
}

func printEntry(e *catalog.Entry) {
	r := e.Result
	if !r.Valid() {
		fmt.Printf("  %-14s no intersection with the datum (%d samples)\n", e.Name, r.Samples)
		return
	}
	scale := "n/a"
	if !math.IsInf(r.Scale, 0) {
		scale = strconv.FormatFloat(r.Scale, 'g', 6, 64)
	}
	fmt.Printf("  %-14s box [%.6f, %.6f, %.6f, %.6f]  scale %s  hits %d/%d  step %d\n",
		e.Name, r.Box.X.Lo, r.Box.Y.Lo, r.Box.X.Hi, r.Box.Y.Hi, scale, r.Hits, r.Samples, r.StepAmount)
	if !e.Window.Empty() {
		fmt.Printf("  %-14s pixels %v\n", "", e.Window)
	}
}

func parseLonLat(s string) (orb.Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("want lon,lat, got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("latitude: %w", err)
	}
	return orb.Point{lon, lat}, nil
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
