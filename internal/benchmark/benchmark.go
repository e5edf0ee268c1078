// Package benchmark times resamplers against each other on synthetic or
// loaded scenes.
package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/homography"
	"github.com/MeKo-Tech/pompom/internal/raster"
	"github.com/MeKo-Tech/pompom/internal/warp"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		NumGC:           m.NumGC,
	}
}

// Result holds the outcome of one benchmark run.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// Average returns the mean duration per iteration.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocatedKB is the cumulative allocation during the run.
func (r Result) AllocatedKB() uint64 {
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / 1024
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc: %d KB",
		r.Name, r.Iterations, r.Average(), r.Duration, r.AllocatedKB())
}

type entry struct {
	name string
	fn   func() error
}

// Suite runs named benchmark functions.
type Suite struct {
	entries []entry
	results []Result
	mu      sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers fn under name.
func (s *Suite) Add(name string, fn func() error) {
	s.entries = append(s.entries, entry{name: name, fn: fn})
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, e := range s.entries {
		if e.name == name {
			return run(e, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every benchmark in registration order.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.entries))
	for _, e := range s.entries {
		s.results = append(s.results, run(e, iterations))
	}
	return s.results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Fprint writes the last results to w.
func (s *Suite) Fprint(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func run(e entry, iterations int) Result {
	runtime.GC()
	before := GetMemoryStats()

	timer := NewTimer(e.name)
	var err error
	for range iterations {
		if err = e.fn(); err != nil {
			break
		}
	}

	return Result{
		Name:         e.name,
		Duration:     timer.Stop(),
		MemoryBefore: before,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   iterations,
		Error:        err,
	}
}

// Scene is one warp workload.
type Scene struct {
	Name   string
	Source image.Image
	H      homography.Homography
	Width  int
	Height int
	Mode   warp.Mode
}

// SyntheticScene draws a stencil of srcW x srcH with a grid of disks and
// panels and maps an inset, slightly keystoned quad onto a dstW x dstH output.
func SyntheticScene(name string, srcW, srcH, dstW, dstH int, mode warp.Mode) (Scene, error) {
	dc := gg.NewContext(srcW, srcH)
	dc.SetRGBA(1, 1, 1, 1)
	cell := float64(min(srcW, srcH)) / 6
	for y := cell / 2; y < float64(srcH); y += cell {
		for x := cell / 2; x < float64(srcW); x += cell {
			if int(x/cell+y/cell)%2 == 0 {
				dc.DrawCircle(x, y, cell/3)
			} else {
				dc.DrawRectangle(x-cell/3, y-cell/4, cell*2/3, cell/2)
			}
		}
	}
	dc.Fill()

	fw, fh := float64(srcW), float64(srcH)
	camera := geometry.Quad{
		TopLeft:     geometry.Point{X: fw * 0.10, Y: fh * 0.12},
		TopRight:    geometry.Point{X: fw * 0.88, Y: fh * 0.08},
		BottomRight: geometry.Point{X: fw * 0.92, Y: fh * 0.90},
		BottomLeft:  geometry.Point{X: fw * 0.06, Y: fh * 0.86},
	}
	h, err := homography.QuadToQuad(camera, geometry.RectQuad(float64(dstW), float64(dstH)))
	if err != nil {
		return Scene{}, fmt.Errorf("scene %s: %w", name, err)
	}
	return Scene{Name: name, Source: dc.Image(), H: h, Width: dstW, Height: dstH, Mode: mode}, nil
}

// LoadScene maps the full frame of the image at path onto a dstW x dstH output.
func LoadScene(path string, dstW, dstH int, mode warp.Mode) (Scene, error) {
	img, err := raster.LoadImage(path)
	if err != nil {
		return Scene{}, err
	}
	b := img.Bounds()
	h, err := homography.QuadToQuad(
		geometry.RectQuad(float64(b.Dx()), float64(b.Dy())),
		geometry.RectQuad(float64(dstW), float64(dstH)))
	if err != nil {
		return Scene{}, err
	}
	return Scene{Name: path, Source: img, H: h, Width: dstW, Height: dstH, Mode: mode}, nil
}

// Comparison holds baseline and candidate timings for one scene.
type Comparison struct {
	Scene     string
	Baseline  Result
	Candidate Result
	Speedup   float64
	Identical bool
}

func (c Comparison) String() string {
	verdict := "identical"
	if !c.Identical {
		verdict = "OUTPUT DIFFERS"
	}
	return fmt.Sprintf("%s: baseline avg %v, candidate avg %v (%.2fx), %s",
		c.Scene, c.Baseline.Average(), c.Candidate.Average(), c.Speedup, verdict)
}

// Compare warps scene with both resamplers, checks that their outputs match
// and times each over iterations.
func Compare(ctx context.Context, scene Scene, baseline, candidate warp.Resampler, iterations int) (Comparison, error) {
	warpWith := func(r warp.Resampler) func() error {
		return func() error {
			_, err := r.Warp(ctx, scene.Source, scene.H, scene.Width, scene.Height, scene.Mode)
			return err
		}
	}

	want, err := baseline.Warp(ctx, scene.Source, scene.H, scene.Width, scene.Height, scene.Mode)
	if err != nil {
		return Comparison{}, fmt.Errorf("baseline warp failed: %w", err)
	}
	got, err := candidate.Warp(ctx, scene.Source, scene.H, scene.Width, scene.Height, scene.Mode)
	if err != nil {
		return Comparison{}, fmt.Errorf("candidate warp failed: %w", err)
	}

	suite := NewSuite()
	suite.Add("baseline", warpWith(baseline))
	suite.Add("candidate", warpWith(candidate))
	results := suite.RunAll(iterations)

	c := Comparison{
		Scene:     scene.Name,
		Baseline:  results[0],
		Candidate: results[1],
		Identical: bytes.Equal(want.Pix, got.Pix),
	}
	if c.Candidate.Duration > 0 {
		c.Speedup = float64(c.Baseline.Duration) / float64(c.Candidate.Duration)
	}
	for _, r := range results {
		if r.Error != nil {
			return c, r.Error
		}
	}
	return c, nil
}
