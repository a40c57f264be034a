// Package config defines footprint job files. Jobs are written in YAML; the
// same structs carry JSON tags for the HTTP API.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// Camera types.
const (
	CameraNadir    = "nadir"
	CameraLookAt   = "lookat"
	CameraPinhole  = "pinhole"
	CameraLinescan = "linescan"
	CameraOrbital  = "orbital"
)

// ErrInvalidJob wraps every validation failure.
var ErrInvalidJob = errors.New("invalid job")

// Job is a set of cameras imaged against one datum and projection.
type Job struct {
	Name       string       `yaml:"name" json:"name"`
	Datum      DatumSpec    `yaml:"datum" json:"datum"`
	Projection string       `yaml:"projection" json:"projection"`
	CenterLon  float64      `yaml:"center_lon" json:"center_lon"`
	Reference  string       `yaml:"reference,omitempty" json:"reference,omitempty"`
	Cameras    []CameraSpec `yaml:"cameras" json:"cameras"`
}

// DatumSpec names a predefined datum or gives explicit axes in meters.
type DatumSpec struct {
	Name      string  `yaml:"name" json:"name"`
	SemiMajor float64 `yaml:"semi_major" json:"semi_major,omitempty"`
	SemiMinor float64 `yaml:"semi_minor" json:"semi_minor,omitempty"`
}

// CameraSpec describes one camera. Which fields apply depends on Type.
type CameraSpec struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
	Cols int32  `yaml:"cols" json:"cols"`
	Rows int32  `yaml:"rows" json:"rows"`

	// Camera position: body-fixed meters, or lon°, lat°, height m.
	Center    *[3]float64 `yaml:"center,omitempty" json:"center,omitempty"`
	LonLatAlt *[3]float64 `yaml:"lonlatalt,omitempty" json:"lonlatalt,omitempty"`

	FOV float64 `yaml:"fov,omitempty" json:"fov,omitempty"` // horizontal, degrees
	Yaw float64 `yaml:"yaw,omitempty" json:"yaw,omitempty"` // degrees clockwise from north

	// lookat: point aimed at, lon°, lat°, height m.
	Target *[3]float64 `yaml:"target,omitempty" json:"target,omitempty"`

	// pinhole: row-major camera-to-world rotation, focal lengths and
	// principal point in pixels.
	Rotation  []float64   `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Focal     *[2]float64 `yaml:"focal,omitempty" json:"focal,omitempty"`
	Principal *[2]float64 `yaml:"principal,omitempty" json:"principal,omitempty"`

	// linescan: platform velocity in m/s and seconds per image row.
	Velocity *[3]float64 `yaml:"velocity,omitempty" json:"velocity,omitempty"`
	LineTime float64     `yaml:"line_time,omitempty" json:"line_time,omitempty"`

	// orbital: two-line element set and acquisition time. With LineTime set
	// the camera is a pushbroom, otherwise a frame camera.
	TLE  []string  `yaml:"tle,omitempty" json:"tle,omitempty"`
	Time time.Time `yaml:"time,omitempty" json:"time,omitempty"`
}

// Load reads a job file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job %s: %w", path, err)
	}

	var job *Job
	if strings.EqualFold(filepath.Ext(path), ".json") {
		job, err = ParseJSON(data)
	} else {
		job, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", path, err)
	}

	if job.Reference != "" && !filepath.IsAbs(job.Reference) {
		job.Reference = filepath.Join(filepath.Dir(path), job.Reference)
	}
	return job, nil
}

// Parse decodes and validates a YAML job.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	job.applyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// ParseJSON decodes and validates a JSON job.
func ParseJSON(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	job.applyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *Job) applyDefaults() {
	if j.Datum.Name == "" && j.Datum.SemiMajor == 0 {
		j.Datum.Name = "WGS84"
	}
	for i := range j.Cameras {
		c := &j.Cameras[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("camera-%d", i+1)
		}
		if c.Type == "" {
			c.Type = CameraNadir
		}
		c.Type = strings.ToLower(c.Type)
	}
}

// ResolveDatum returns the datum named or described by the spec.
func (d DatumSpec) ResolveDatum() (geodesy.Datum, error) {
	if d.SemiMajor > 0 {
		b := d.SemiMinor
		if b == 0 {
			b = d.SemiMajor
		}
		name := d.Name
		if name == "" {
			name = "custom"
		}
		return geodesy.NewDatum(name, d.SemiMajor, b)
	}
	return geodesy.Lookup(d.Name)
}

// Validate checks the job for missing or inconsistent fields.
func (j *Job) Validate() error {
	if _, err := j.Datum.ResolveDatum(); err != nil {
		return fmt.Errorf("%w: datum: %v", ErrInvalidJob, err)
	}
	if len(j.Cameras) == 0 {
		return fmt.Errorf("%w: no cameras", ErrInvalidJob)
	}
	seen := make(map[string]bool, len(j.Cameras))
	for i := range j.Cameras {
		c := &j.Cameras[i]
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate camera name %q", ErrInvalidJob, c.Name)
		}
		seen[c.Name] = true
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: camera %q: %v", ErrInvalidJob, c.Name, err)
		}
	}
	return nil
}

// Validate checks the fields required by the camera type.
func (c *CameraSpec) Validate() error {
	if c.Cols <= 0 || c.Rows <= 0 {
		return fmt.Errorf("image size %dx%d must be positive", c.Cols, c.Rows)
	}

	hasPosition := c.Center != nil || c.LonLatAlt != nil
	switch c.Type {
	case CameraNadir, CameraLookAt, CameraLinescan, CameraOrbital:
		if c.FOV <= 0 || c.FOV >= 180 {
			return fmt.Errorf("fov %g must be in (0, 180)", c.FOV)
		}
	}

	switch c.Type {
	case CameraNadir:
		if !hasPosition {
			return errors.New("nadir camera needs center or lonlatalt")
		}
	case CameraLookAt:
		if !hasPosition || c.Target == nil {
			return errors.New("lookat camera needs a position and a target")
		}
	case CameraPinhole:
		if !hasPosition {
			return errors.New("pinhole camera needs center or lonlatalt")
		}
		if len(c.Rotation) != 9 {
			return fmt.Errorf("rotation needs 9 values, got %d", len(c.Rotation))
		}
		if c.Focal == nil || c.Focal[0] <= 0 || c.Focal[1] <= 0 {
			return errors.New("pinhole camera needs positive focal lengths")
		}
	case CameraLinescan:
		if !hasPosition || c.Velocity == nil {
			return errors.New("linescan camera needs a position and a velocity")
		}
		if c.LineTime <= 0 {
			return fmt.Errorf("line_time %g must be positive", c.LineTime)
		}
	case CameraOrbital:
		if len(c.TLE) != 2 {
			return fmt.Errorf("tle needs 2 lines, got %d", len(c.TLE))
		}
		if c.Time.IsZero() {
			return errors.New("orbital camera needs a time")
		}
		if c.LineTime < 0 {
			return fmt.Errorf("line_time %g must not be negative", c.LineTime)
		}
	default:
		return fmt.Errorf("unknown camera type %q", c.Type)
	}
	return nil
}
