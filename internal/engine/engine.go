// Package engine ties calibration, resampling, classification and the
// animation clock together for a rendering host. Every per-frame call runs
// under the configured frame timeout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/pompom/internal/clock"
	"github.com/MeKo-Tech/pompom/internal/config"
	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/homography"
	"github.com/MeKo-Tech/pompom/internal/markers"
	"github.com/MeKo-Tech/pompom/internal/raster"
	"github.com/MeKo-Tech/pompom/internal/shapes"
	"github.com/MeKo-Tech/pompom/internal/warp"
)

var (
	// ErrFrameTimeout is returned when a per-frame call exceeds the frame timeout.
	ErrFrameTimeout = errors.New("frame timeout exceeded")
	// ErrNotCalibrated is returned by warps before any calibration succeeded.
	ErrNotCalibrated = errors.New("engine not calibrated")
	// ErrNoDetector is returned by CalibrateImage when no detector is configured.
	ErrNoDetector = errors.New("no marker detector configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine closed")
)

// Option customises an Engine.
type Option func(*Engine)

// WithResampler replaces the pooled warp session.
func WithResampler(r warp.Resampler) Option {
	return func(e *Engine) { e.resampler = r }
}

// WithDetector replaces the HTTP marker detector.
func WithDetector(d markers.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithLayout replaces the configured marker layout.
func WithLayout(l markers.Layout) Option {
	return func(e *Engine) { e.layout = &l }
}

// Engine owns the long-lived resources of one projection setup.
type Engine struct {
	cfg       config.Config
	resampler warp.Resampler
	detector  markers.Detector
	layout    *markers.Layout

	panel   shapes.PanelProfile
	strict  shapes.BlobProfile
	lenient shapes.BlobProfile

	current  atomic.Pointer[Calibration]
	calibSeq atomic.Uint64

	mu        sync.Mutex
	clockSeq  uint64
	closed    bool
	closeOnce sync.Once
}

// New validates cfg and acquires the engine's resources. Close releases them.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	e := &Engine{
		cfg:     cfg,
		panel:   cfg.ToPanelProfile(),
		strict:  cfg.ToBlobProfile(true),
		lenient: cfg.ToBlobProfile(false),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.layout == nil {
		l, err := cfg.Layout()
		if err != nil {
			return nil, fmt.Errorf("failed to load marker layout: %w", err)
		}
		e.layout = &l
	}
	if e.detector == nil && cfg.Calibration.DetectorURL != "" {
		e.detector = markers.NewHTTPDetector(cfg.Calibration.DetectorURL, cfg.DetectorTimeout())
	}
	if e.resampler == nil {
		s, err := warp.NewSession(cfg.ToWarpConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to start warp session: %w", err)
		}
		e.resampler = s
	}

	slog.Info("Engine ready",
		"output_width", cfg.Output.Width,
		"output_height", cfg.Output.Height,
		"markers", len(e.layout.Markers),
		"frame_timeout_ms", cfg.Warp.FrameTimeoutMS)
	return e, nil
}

// Layout returns the marker layout in use.
func (e *Engine) Layout() markers.Layout { return *e.layout }

// Calibration returns the latest calibration, or nil before the first one.
func (e *Engine) Calibration() *Calibration { return e.current.Load() }

// CalibrateFromPoints solves camera-to-projector from explicit
// correspondences and makes the result current.
func (e *Engine) CalibrateFromPoints(src, dst []geometry.Point) (*Calibration, error) {
	cal, err := newCalibration(src, dst, e.cfg.Output.Width, e.cfg.Output.Height, 0)
	if err != nil {
		calibrationsTotal.WithLabelValues(calibrationResult(err)).Inc()
		slog.Warn("Calibration failed", "error", err, "correspondences", len(src))
		return nil, fmt.Errorf("calibration failed: %w", err)
	}
	cal.Sequence = e.calibSeq.Add(1)
	e.publish(cal)
	calibrationsTotal.WithLabelValues("success").Inc()
	slog.Info("Calibration updated", "sequence", cal.Sequence, "correspondences", cal.Correspondences)
	return cal, nil
}

// publish makes cal current unless a calibration with a higher sequence got
// there first.
func (e *Engine) publish(cal *Calibration) {
	for {
		cur := e.current.Load()
		if cur != nil && cur.Sequence > cal.Sequence {
			return
		}
		if e.current.CompareAndSwap(cur, cal) {
			return
		}
	}
}

// Calibrate pairs detected markers with the layout and calibrates.
func (e *Engine) Calibrate(ctx context.Context, detected []markers.Marker) (*Calibration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, dst, err := markers.Correspondences(detected, *e.layout, e.cfg.Calibration.RequiredMarkers)
	if err != nil {
		calibrationsTotal.WithLabelValues(calibrationResult(err)).Inc()
		slog.Warn("Calibration rejected", "error", err, "detected", len(detected))
		return nil, err
	}
	return e.CalibrateFromPoints(src, dst)
}

// CalibrateImage sends an encoded camera frame to the marker detector and
// calibrates from the result.
func (e *Engine) CalibrateImage(ctx context.Context, img []byte, filename string) (*Calibration, error) {
	if e.detector == nil {
		return nil, ErrNoDetector
	}
	res, err := e.detector.Detect(ctx, img, filename)
	if err != nil {
		calibrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("marker detection failed: %w", err)
	}
	return e.Calibrate(ctx, res.Markers)
}

func calibrationResult(err error) string {
	switch {
	case errors.Is(err, markers.ErrDetectionShortfall):
		return "shortfall"
	case errors.Is(err, homography.ErrInsufficientCorrespondences),
		errors.Is(err, homography.ErrCorrespondenceMismatch):
		return "insufficient"
	case errors.Is(err, homography.ErrSingularSystem),
		errors.Is(err, homography.ErrSingularMatrix):
		return "degenerate"
	default:
		return "error"
	}
}

// runFrame runs fn under the frame timeout. When the deadline passes first
// the result is discarded and ErrFrameTimeout returned.
func runFrame[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := e.checkOpen(); err != nil {
		return zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.FrameTimeout())
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		frameDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
			return zero, e.timeout(op, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, e.timeout(op, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

func (e *Engine) timeout(op string, cause error) error {
	frameTimeoutsTotal.WithLabelValues(op).Inc()
	slog.Warn("Frame timeout", "op", op, "timeout_ms", e.cfg.Warp.FrameTimeoutMS)
	return fmt.Errorf("%w: %s after %s: %w", ErrFrameTimeout, op, e.cfg.FrameTimeout(), cause)
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

func (e *Engine) calibration(cal *Calibration) (*Calibration, error) {
	if cal == nil {
		cal = e.current.Load()
	}
	if cal == nil {
		return nil, ErrNotCalibrated
	}
	return cal, nil
}

// WarpStencil binarises mask into projector space. A nil cal uses the
// current calibration.
func (e *Engine) WarpStencil(ctx context.Context, cal *Calibration, mask raster.Mask) (raster.Mask, error) {
	cal, err := e.calibration(cal)
	if err != nil {
		return raster.Mask{}, err
	}
	if err := mask.Validate(); err != nil {
		return raster.Mask{}, fmt.Errorf("invalid stencil: %w", err)
	}
	return runFrame(ctx, e, "warp_stencil", func(ctx context.Context) (raster.Mask, error) {
		out, err := e.resampler.Warp(ctx, mask.Image(), cal.CameraToProjector,
			cal.OutputWidth, cal.OutputHeight, warp.ModeBinarize(e.cfg.Threshold()))
		if err != nil {
			return raster.Mask{}, err
		}
		return raster.FromAlpha(out), nil
	})
}

// WarpImage resamples a colour camera frame into projector space for preview.
func (e *Engine) WarpImage(ctx context.Context, cal *Calibration, img image.Image) (*image.NRGBA, error) {
	cal, err := e.calibration(cal)
	if err != nil {
		return nil, err
	}
	return runFrame(ctx, e, "warp_image", func(ctx context.Context) (*image.NRGBA, error) {
		return e.resampler.Warp(ctx, img, cal.CameraToProjector, cal.OutputWidth, cal.OutputHeight, warp.ModeCopy())
	})
}

// ClassifyPanels partitions mask into islands, land and water.
func (e *Engine) ClassifyPanels(ctx context.Context, mask raster.Mask) (shapes.PanelResult, error) {
	if err := mask.Validate(); err != nil {
		return shapes.PanelResult{}, fmt.Errorf("invalid stencil: %w", err)
	}
	res, err := runFrame(ctx, e, "classify_panels", func(context.Context) (shapes.PanelResult, error) {
		return shapes.ClassifyPanels(mask, e.panel), nil
	})
	if err != nil {
		return shapes.PanelResult{}, err
	}
	observeRegions("panel", len(res.Regions), len(res.Panels()))
	return res, nil
}

// ClassifyBlobs finds near-circular blobs with the strict or lenient preset.
func (e *Engine) ClassifyBlobs(ctx context.Context, mask raster.Mask, strict bool) (shapes.BlobResult, error) {
	if err := mask.Validate(); err != nil {
		return shapes.BlobResult{}, fmt.Errorf("invalid stencil: %w", err)
	}
	profile := e.lenient
	if strict {
		profile = e.strict
	}
	res, err := runFrame(ctx, e, "classify_blobs", func(context.Context) (shapes.BlobResult, error) {
		return shapes.ClassifyBlobs(mask, profile), nil
	})
	if err != nil {
		return shapes.BlobResult{}, err
	}
	observeRegions("blob", len(res.Regions), len(res.Passing()))
	return res, nil
}

func observeRegions(kind string, total, passed int) {
	regionsClassified.WithLabelValues(kind, strconv.FormatBool(true)).Observe(float64(passed))
	regionsClassified.WithLabelValues(kind, strconv.FormatBool(false)).Observe(float64(total - passed))
}

// GoLive issues a new animation clock whose sequence follows the previous one.
func (e *Engine) GoLive() clock.Clock {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := clock.New(e.clockSeq)
	e.clockSeq = c.Sequence
	goLiveTotal.Inc()
	slog.Info("Go live", "sequence", c.Sequence, "seed", c.Seed)
	return c
}

// Close releases the resampler. Further per-frame calls fail with ErrClosed.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		err = e.resampler.Close()
		slog.Debug("Engine closed")
	})
	return err
}
