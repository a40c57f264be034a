// Package server exposes footprint computation over HTTP.
package server

import (
	"errors"
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"github.com/pspoerri/camfootprint/internal/catalog"
	"github.com/pspoerri/camfootprint/internal/config"
	"github.com/pspoerri/camfootprint/internal/georef"
)

// Options configures the service.
type Options struct {
	Concurrency int
	MaxCameras  int // 0 means unlimited
	Verbose     bool
}

// Server routes the footprint API.
type Server struct {
	opts    Options
	metrics *Metrics
	engine  *gin.Engine
}

// CameraResult is the footprint of one camera in a response. Scale is
// omitted when no two consecutive samples hit the datum.
type CameraResult struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Valid        bool        `json:"valid"`
	Box          *[4]float64 `json:"box,omitempty"`
	Scale        *float64    `json:"scale,omitempty"`
	Step         int         `json:"step"`
	Samples      int         `json:"samples"`
	Hits         int         `json:"hits"`
	CenterOnZero bool        `json:"center_on_zero"`
}

// FootprintResponse is the body of a successful POST /api/v1/footprint.
type FootprintResponse struct {
	Reference string                     `json:"reference"`
	Stats     catalog.Stats              `json:"stats"`
	Cameras   []CameraResult             `json:"cameras"`
	GeoJSON   *geojson.FeatureCollection `json:"geojson"`
}

// New returns a server. metrics may be nil.
func New(opts Options, metrics *Metrics) *Server {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	s := &Server{opts: opts, metrics: metrics}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if metrics != nil {
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/footprint", s.postFootprint)
		}
	}
	s.engine = r
	return s
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on addr and serves until the listener fails.
func (s *Server) Run(addr string) error { return s.engine.Run(addr) }

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Server) postFootprint(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := config.ParseJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Rasters are only read from the local filesystem by the CLI.
	if job.Reference != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference rasters are not accepted over HTTP"})
		return
	}
	if s.opts.MaxCameras > 0 && len(job.Cameras) > s.opts.MaxCameras {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many cameras"})
		return
	}

	idx, stats, err := catalog.Build(catalog.Config{Concurrency: s.opts.Concurrency, Verbose: s.opts.Verbose}, job)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, config.ErrInvalidJob) || errors.Is(err, georef.ErrUnsupportedProjection) {
			status = http.StatusBadRequest
		}
		if s.opts.Verbose {
			log.Printf("footprint %q: %v", job.Name, err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.metrics.ObserveCameras(stats.Valid, stats.Empty)

	resp := FootprintResponse{
		Reference: idx.Reference().String(),
		Stats:     stats,
		Cameras:   make([]CameraResult, 0, idx.Len()),
		GeoJSON:   idx.FeatureCollection(),
	}
	for _, e := range idx.Entries() {
		resp.Cameras = append(resp.Cameras, cameraResult(e))
	}
	c.JSON(http.StatusOK, resp)
}

func cameraResult(e *catalog.Entry) CameraResult {
	r := e.Result
	out := CameraResult{
		Name:         e.Name,
		Type:         e.Type,
		Valid:        r.Valid(),
		Step:         r.StepAmount,
		Samples:      r.Samples,
		Hits:         r.Hits,
		CenterOnZero: r.CenterOnZero,
	}
	if out.Valid {
		out.Box = &[4]float64{r.Box.X.Lo, r.Box.Y.Lo, r.Box.X.Hi, r.Box.Y.Hi}
	}
	if !math.IsInf(r.Scale, 0) && !math.IsNaN(r.Scale) {
		scale := r.Scale
		out.Scale = &scale
	}
	return out
}
