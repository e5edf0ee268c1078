package warp

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/pompom/internal/homography"
)

// ErrSessionClosed is returned by Warp after Close.
var ErrSessionClosed = errors.New("warp session closed")

// Config holds configuration for an accelerated warp session.
type Config struct {
	Workers  int // number of band workers (0 = runtime.NumCPU())
	BandRows int // destination rows per work item (0 = 32)
}

// DefaultConfig returns sensible defaults for a warp session.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		BandRows: 32,
	}
}

type band struct {
	job    job
	y0, y1 int
	wg     *sync.WaitGroup
}

// Session is a long-lived resampler that owns a pool of band workers. Acquire
// it once at startup with NewSession and release it with Close; per-frame
// creation is wasteful. Output is pixel-identical to CPU.
type Session struct {
	cfg     Config
	bands   chan band
	workers sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewSession starts the worker pool.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BandRows <= 0 {
		cfg.BandRows = 32
	}
	s := &Session{
		cfg:   cfg,
		bands: make(chan band, cfg.Workers*2),
	}
	for range cfg.Workers {
		s.workers.Add(1)
		go s.worker()
	}
	slog.Debug("Warp session started", "workers", cfg.Workers, "band_rows", cfg.BandRows)
	return s, nil
}

func (s *Session) worker() {
	defer s.workers.Done()
	for b := range s.bands {
		b.job.rows(b.y0, b.y1)
		b.wg.Done()
	}
}

// Warp implements Resampler. Cancelling ctx stops dispatching further bands;
// bands already dispatched finish before Warp returns.
func (s *Session) Warp(ctx context.Context, src image.Image, h homography.Homography, dstW, dstH int, mode Mode) (*image.NRGBA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	j, err := prepare(src, h, dstW, dstH, mode)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	var ctxErr error
dispatch:
	for y := 0; y < dstH; y += s.cfg.BandRows {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		b := band{job: j, y0: y, y1: min(y+s.cfg.BandRows, dstH), wg: &wg}
		wg.Add(1)
		select {
		case s.bands <- b:
		case <-ctx.Done():
			wg.Done()
			ctxErr = ctx.Err()
			break dispatch
		}
	}
	wg.Wait()
	if ctxErr != nil {
		return nil, ctxErr
	}
	return j.dst, nil
}

// Close stops the workers. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.bands)
	s.workers.Wait()
	slog.Debug("Warp session closed")
	return nil
}
