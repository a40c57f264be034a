package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pspoerri/camfootprint/internal/server"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		addr        string
		concurrency int
		maxCameras  int
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&addr, "addr", ":8080", "Listen address")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Workers per footprint request")
	flag.IntVar(&maxCameras, "max-cameras", 10000, "Largest accepted job (0 = unlimited)")
	flag.BoolVar(&verbose, "verbose", false, "Log failed requests and gin debug output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: footprintd [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Serve camera footprints over HTTP.\n\n")
		fmt.Fprintf(os.Stderr, "Endpoints:\n")
		fmt.Fprintf(os.Stderr, "  GET  /api/v1/ping\n")
		fmt.Fprintf(os.Stderr, "  POST /api/v1/footprint   (JSON job)\n")
		fmt.Fprintf(os.Stderr, "  GET  /metrics\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("footprintd %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := server.NewMetrics(reg)
	if err != nil {
		log.Fatalf("Metrics: %v", err)
	}

	srv := server.New(server.Options{
		Concurrency: concurrency,
		MaxCameras:  maxCameras,
		Verbose:     verbose,
	}, metrics)

	log.Printf("footprintd %s listening on %s", version, addr)
	if err := srv.Run(addr); err != nil {
		log.Fatalf("Serving: %v", err)
	}
}
