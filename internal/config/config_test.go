package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pspoerri/camfootprint/internal/geodesy"
)

const sampleJob = `
name: mars-survey
datum:
  name: D_MARS
projection: geographic360
reference: ref/mosaic.tif
cameras:
  - name: ctx-1
    cols: 5000
    rows: 7000
    lonlatalt: [137.4, -4.6, 250000]
    fov: 5.7
  - name: oblique
    type: LookAt
    cols: 1024
    rows: 768
    center: [3700000, 0, 0]
    target: [0, 0, 0]
    fov: 20
  - name: pushbroom
    type: linescan
    cols: 2048
    rows: 10000
    lonlatalt: [10, 10, 300000]
    velocity: [0, 0, 3400]
    line_time: 0.001
    fov: 10
  - name: iss
    type: orbital
    cols: 640
    rows: 480
    fov: 30
    time: 2022-06-11T18:00:00Z
    tle:
      - "1 25544U 98067A   22162.52439360  .00007740  00000-0  14299-3 0  9993"
      - "2 25544  51.6446  15.6734 0004455 190.7426 277.1366 15.49939622344138"
`

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(sampleJob), 0o644); err != nil {
		t.Fatal(err)
	}

	job, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if job.Name != "mars-survey" || job.Projection != "geographic360" {
		t.Errorf("job = %q/%q", job.Name, job.Projection)
	}
	if want := filepath.Join(dir, "ref", "mosaic.tif"); job.Reference != want {
		t.Errorf("Reference = %q, want %q", job.Reference, want)
	}
	if len(job.Cameras) != 4 {
		t.Fatalf("got %d cameras, want 4", len(job.Cameras))
	}

	ctx := job.Cameras[0]
	if ctx.Type != CameraNadir {
		t.Errorf("default type = %q, want %q", ctx.Type, CameraNadir)
	}
	if ctx.LonLatAlt == nil || ctx.LonLatAlt[2] != 250000 {
		t.Errorf("lonlatalt = %v", ctx.LonLatAlt)
	}
	if job.Cameras[1].Type != CameraLookAt {
		t.Errorf("type = %q, want lowercased %q", job.Cameras[1].Type, CameraLookAt)
	}
	iss := job.Cameras[3]
	if want := time.Date(2022, 6, 11, 18, 0, 0, 0, time.UTC); !iss.Time.Equal(want) {
		t.Errorf("time = %v, want %v", iss.Time, want)
	}
	if len(iss.TLE) != 2 || !strings.HasPrefix(iss.TLE[0], "1 25544U") {
		t.Errorf("tle = %q", iss.TLE)
	}

	d, err := job.Datum.ResolveDatum()
	if err != nil {
		t.Fatal(err)
	}
	if d != geodesy.Mars {
		t.Errorf("datum = %v, want Mars", d)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	body := `{"datum": {"name": "moon", "semi_major": 1737400},
		"cameras": [{"cols": 10, "rows": 10, "center": [3000000, 0, 0], "fov": 10}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	job, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if job.Cameras[0].Name != "camera-1" {
		t.Errorf("default name = %q, want camera-1", job.Cameras[0].Name)
	}
	d, err := job.Datum.ResolveDatum()
	if err != nil {
		t.Fatal(err)
	}
	if d.SemiMinorAxis() != 1737400 {
		t.Errorf("semi-minor = %v, want sphere", d.SemiMinorAxis())
	}
}

func TestParse_DefaultDatum(t *testing.T) {
	job, err := Parse([]byte("cameras: [{cols: 1, rows: 1, center: [7e6, 0, 0], fov: 1}]"))
	if err != nil {
		t.Fatal(err)
	}
	if job.Datum.Name != "WGS84" {
		t.Errorf("datum = %q, want WGS84", job.Datum.Name)
	}
}

func TestValidate(t *testing.T) {
	pos := &[3]float64{7e6, 0, 0}
	tests := []struct {
		name string
		job  Job
		want string
	}{
		{"no cameras", Job{Datum: DatumSpec{Name: "WGS84"}}, "no cameras"},
		{"unknown datum", Job{Datum: DatumSpec{Name: "pluto"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraNadir, Cols: 1, Rows: 1, Center: pos, FOV: 1}}}, "datum"},
		{"prolate datum", Job{Datum: DatumSpec{SemiMajor: 1, SemiMinor: 2},
			Cameras: []CameraSpec{{Name: "a", Type: CameraNadir, Cols: 1, Rows: 1, Center: pos, FOV: 1}}}, "datum"},
		{"duplicate", Job{Datum: DatumSpec{Name: "WGS84"}, Cameras: []CameraSpec{
			{Name: "a", Type: CameraNadir, Cols: 1, Rows: 1, Center: pos, FOV: 1},
			{Name: "a", Type: CameraNadir, Cols: 1, Rows: 1, Center: pos, FOV: 1},
		}}, "duplicate"},
		{"zero size", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraNadir, Rows: 1, Center: pos, FOV: 1}}}, "image size"},
		{"no position", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraNadir, Cols: 1, Rows: 1, FOV: 1}}}, "center or lonlatalt"},
		{"bad fov", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraNadir, Cols: 1, Rows: 1, Center: pos, FOV: 180}}}, "fov"},
		{"pinhole rotation", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraPinhole, Cols: 1, Rows: 1, Center: pos, Rotation: []float64{1}}}}, "rotation"},
		{"linescan velocity", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraLinescan, Cols: 1, Rows: 1, Center: pos, FOV: 1}}}, "velocity"},
		{"orbital time", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: CameraOrbital, Cols: 1, Rows: 1, FOV: 1, TLE: []string{"1", "2"}}}}, "time"},
		{"unknown type", Job{Datum: DatumSpec{Name: "WGS84"},
			Cameras: []CameraSpec{{Name: "a", Type: "fisheye", Cols: 1, Rows: 1}}}, "unknown camera type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if !errors.Is(err, ErrInvalidJob) {
				t.Fatalf("error = %v, want ErrInvalidJob", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("cameras: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := ParseJSON([]byte("{")); err == nil {
		t.Error("expected JSON error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
