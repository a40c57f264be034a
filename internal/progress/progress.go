// Package progress renders an in-place terminal progress bar.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bar refreshes at a fixed interval and supports concurrent Increment calls
// from multiple worker goroutines.
type Bar struct {
	total     int64
	processed atomic.Int64
	label     string
	unit      string
	barWidth  int
	start     time.Time
	out       io.Writer
	done      chan struct{}
	stopped   chan struct{}
	mu        sync.Mutex
}

// New starts a bar on stderr counting total items of unit (e.g. "tiles").
func New(label, unit string, total int64) *Bar {
	return NewWriter(os.Stderr, label, unit, total)
}

// NewWriter starts a bar that draws to out.
func NewWriter(out io.Writer, label, unit string, total int64) *Bar {
	pb := &Bar{
		total:    total,
		label:    label,
		unit:     unit,
		barWidth: 30,
		start:    time.Now(),
		out:      out,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go pb.run()
	return pb
}

// Increment marks one more item as processed. Safe for concurrent use.
func (pb *Bar) Increment() {
	pb.processed.Add(1)
}

// Processed returns the number of items marked so far.
func (pb *Bar) Processed() int64 {
	return pb.processed.Load()
}

// Finish stops the refresh loop and prints the final bar state with a newline.
func (pb *Bar) Finish() {
	close(pb.done)
	<-pb.stopped
	pb.draw()
	fmt.Fprint(pb.out, "\n")
}

func (pb *Bar) run() {
	defer close(pb.stopped)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-pb.done:
			return
		case <-ticker.C:
			pb.draw()
		}
	}
}

func (pb *Bar) draw() {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	processed := pb.processed.Load()
	frac := fraction(processed, pb.total)

	filled := int(float64(pb.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.barWidth-filled)

	elapsed := time.Since(pb.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(processed) / secs
	}

	fmt.Fprintf(pb.out, "\r%s [%s] %3.0f%%  %d/%d %s  %.0f/s  %s\033[K",
		pb.label, bar, frac*100, processed, pb.total, pb.unit, rate, FormatDuration(elapsed))
}

func fraction(processed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return min(float64(processed)/float64(total), 1)
}

// FormatDuration formats a duration concisely (e.g. "1m23s", "45s", "0s").
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}
