// Package catalog computes the footprints of every camera in a job and
// indexes them for spatial lookup.
package catalog

import (
	"fmt"
	"image"
	"log"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"github.com/pspoerri/camfootprint/internal/camera"
	"github.com/pspoerri/camfootprint/internal/config"
	"github.com/pspoerri/camfootprint/internal/footprint"
	"github.com/pspoerri/camfootprint/internal/georef"
	"github.com/pspoerri/camfootprint/internal/progress"
)

// Config holds catalog build configuration.
type Config struct {
	Concurrency int
	Verbose     bool
	Progress    bool // draw a progress bar on stderr
}

// Stats holds build statistics.
type Stats struct {
	Cameras int64 `json:"cameras"`
	Valid   int64 `json:"valid"` // cameras that see the datum
	Empty   int64 `json:"empty"`
}

// Entry is the footprint of one camera.
type Entry struct {
	Name   string
	Type   string
	Cols   int32
	Rows   int32
	Result footprint.Result

	// Window is the part of the reference raster under the footprint; empty
	// when the job has no raster or the footprint misses it.
	Window image.Rectangle

	seq int
}

// minExtent pads degenerate boxes so rtreego accepts them.
const minExtent = 1e-9

// Bounds implements rtreego.Spatial.
func (e *Entry) Bounds() rtreego.Rect {
	return toRect(e.Result.Box)
}

func toRect(b r2.Rect) rtreego.Rect {
	point := rtreego.Point{b.X.Lo, b.Y.Lo}
	lengths := []float64{
		math.Max(b.X.Length(), minExtent),
		math.Max(b.Y.Length(), minExtent),
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// Index holds the footprints of a job. Cameras that miss the datum are kept
// in Entries but never match a spatial query.
type Index struct {
	ref     *georef.GeoReference
	entries []*Entry
	rtree   *rtreego.Rtree
}

// cameraJob represents a single camera to evaluate.
type cameraJob struct {
	seq  int
	spec config.CameraSpec
}

// Reference returns the georeference a job is evaluated in: the raster named
// by job.Reference, or the job's projection on its datum.
func Reference(job *config.Job) (*georef.GeoReference, error) {
	if job.Reference != "" {
		ref, err := georef.FromGeoTIFF(job.Reference)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", job.Reference, err)
		}
		return ref, nil
	}
	datum, err := job.Datum.ResolveDatum()
	if err != nil {
		return nil, err
	}
	proj, err := georef.ParseProjection(job.Projection, datum, job.CenterLon)
	if err != nil {
		return nil, err
	}
	return georef.New(datum, proj)
}

// Build evaluates every camera of job in parallel and indexes the result.
func Build(cfg Config, job *config.Job) (*Index, Stats, error) {
	if err := job.Validate(); err != nil {
		return nil, Stats{}, err
	}
	ref, err := Reference(job)
	if err != nil {
		return nil, Stats{}, err
	}
	return BuildWithReference(cfg, ref, job.Cameras)
}

// BuildWithReference evaluates cameras against an explicit georeference.
func BuildWithReference(cfg Config, ref *georef.GeoReference, cameras []config.CameraSpec) (*Index, Stats, error) {
	if len(cameras) == 0 {
		return nil, Stats{}, fmt.Errorf("no cameras")
	}

	nWorkers := min(max(cfg.Concurrency, 1), len(cameras))
	if cfg.Verbose {
		log.Printf("Evaluating %d cameras with %d workers in %s", len(cameras), nWorkers, ref)
	}

	var pb *progress.Bar
	if cfg.Progress {
		pb = progress.New("Footprints", "cameras", int64(len(cameras)))
	}

	entries := make([]*Entry, len(cameras))
	var validCount, emptyCount atomic.Int64

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	jobs := make(chan cameraJob, nWorkers*2)

	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				e, err := evaluate(ref, job)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("camera %q: %w", job.spec.Name, err):
					default:
					}
					return
				}
				entries[job.seq] = e
				if e.Result.Valid() {
					validCount.Add(1)
				} else {
					emptyCount.Add(1)
				}
				if pb != nil {
					pb.Increment()
				}
			}
		}()
	}

	// Feed jobs until the first failure.
	var firstErr error
feed:
	for i, spec := range cameras {
		select {
		case jobs <- cameraJob{seq: i, spec: spec}:
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
		return nil, Stats{}, firstErr
	}

	stats := Stats{
		Cameras: int64(len(cameras)),
		Valid:   validCount.Load(),
		Empty:   emptyCount.Load(),
	}
	if cfg.Verbose {
		log.Printf("Footprints: %d valid, %d empty", stats.Valid, stats.Empty)
	}
	return newIndex(ref, entries), stats, nil
}

func evaluate(ref *georef.GeoReference, job cameraJob) (*Entry, error) {
	cam, err := camera.FromSpec(job.spec, ref.Datum())
	if err != nil {
		return nil, err
	}
	res, err := footprint.CameraBBox(ref, cam, job.spec.Cols, job.spec.Rows)
	if err != nil {
		return nil, err
	}
	e := &Entry{
		Name:   job.spec.Name,
		Type:   job.spec.Type,
		Cols:   job.spec.Cols,
		Rows:   job.spec.Rows,
		Result: res,
		seq:    job.seq,
	}
	if w, ok := ref.PixelWindow(res.Box); ok {
		e.Window = w
	}
	return e, nil
}

func newIndex(ref *georef.GeoReference, entries []*Entry) *Index {
	var spatials []rtreego.Spatial
	for _, e := range entries {
		if e.Result.Valid() {
			spatials = append(spatials, e)
		}
	}
	return &Index{
		ref:     ref,
		entries: entries,
		rtree:   rtreego.NewTree(2, 25, 50, spatials...),
	}
}

// Reference returns the georeference the footprints are expressed in.
func (idx *Index) Reference() *georef.GeoReference { return idx.ref }

// Entries returns every camera in job order.
func (idx *Index) Entries() []*Entry { return idx.entries }

// Len returns the number of cameras.
func (idx *Index) Len() int { return len(idx.entries) }

// Query returns the cameras whose bounding box intersects box, in job order.
func (idx *Index) Query(box r2.Rect) []*Entry {
	if box.IsEmpty() {
		return nil
	}
	return idx.search(idx.shifted(box), func(e *Entry) bool { return true })
}

// Covering returns the cameras whose bounding box contains the map point p,
// in job order. In geographic references the point is also tried one turn
// east and west, since boxes may extend past ±180°.
func (idx *Index) Covering(p r2.Point) []*Entry {
	boxes := idx.shifted(r2.RectFromPoints(p))
	return idx.search(boxes, func(e *Entry) bool {
		for _, b := range boxes {
			if e.Result.Box.ContainsPoint(b.Lo()) {
				return true
			}
		}
		return false
	})
}

func (idx *Index) shifted(box r2.Rect) []r2.Rect {
	if idx.ref.IsProjected() {
		return []r2.Rect{box}
	}
	return []r2.Rect{box, shiftX(box, 360), shiftX(box, -360)}
}

func shiftX(b r2.Rect, dx float64) r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: b.X.Lo + dx, Hi: b.X.Hi + dx}, Y: b.Y}
}

func (idx *Index) search(boxes []r2.Rect, keep func(*Entry) bool) []*Entry {
	seen := make(map[int]bool)
	var out []*Entry
	for _, b := range boxes {
		for _, s := range idx.rtree.SearchIntersect(toRect(b)) {
			e := s.(*Entry)
			if seen[e.seq] || !keep(e) {
				continue
			}
			seen[e.seq] = true
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Entry) int { return a.seq - b.seq })
	return out
}
