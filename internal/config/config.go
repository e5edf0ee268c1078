package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/pompom/internal/markers"
	"github.com/MeKo-Tech/pompom/internal/raster"
	"github.com/MeKo-Tech/pompom/internal/shapes"
	"github.com/MeKo-Tech/pompom/internal/warp"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	panel := shapes.DefaultPanelProfile()
	warpCfg := warp.DefaultConfig()
	return Config{
		LogLevel: "info",
		Output: OutputConfig{
			Width:  1920,
			Height: 1080,
		},
		Calibration: CalibrationConfig{
			RequiredMarkers:    4,
			MarkerInset:        0,
			DetectorURL:        "http://localhost:8000",
			DetectorTimeoutSec: 10,
		},
		Warp: WarpConfig{
			Threshold:      int(raster.ForegroundCutoff),
			Workers:        warpCfg.Workers,
			BandRows:       warpCfg.BandRows,
			FrameTimeoutMS: 250,
		},
		Panel: PanelConfig{
			TargetAspect:      panel.TargetAspect,
			AspectTolerance:   panel.AspectTolerance,
			MinRectangularity: panel.MinRectangularity,
			MinArea:           panel.MinArea,
			MaxAreaRatio:      panel.MaxAreaRatio,
		},
		Blob: BlobConfig{
			Strict:  fromBlobProfile(shapes.StrictBlobProfile()),
			Lenient: fromBlobProfile(shapes.LenientBlobProfile()),
		},
		Preview: PreviewConfig{
			IslandsColor: "#2ecc71",
			LandColor:    "#c2a36b",
			WaterColor:   "#1f4e79",
		},
	}
}

func fromBlobProfile(p shapes.BlobProfile) BlobProfileConfig {
	return BlobProfileConfig{MinRadius: p.MinRadius, MaxRadius: p.MaxRadius, MinCircularity: p.MinCircularity}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("invalid output size: %dx%d (must be positive)", c.Output.Width, c.Output.Height)
	}
	if c.Calibration.RequiredMarkers < 4 {
		return fmt.Errorf("invalid calibration.required_markers: %d (must be at least 4)", c.Calibration.RequiredMarkers)
	}
	if c.Calibration.MarkerInset < 0 {
		return fmt.Errorf("invalid calibration.marker_inset: %.1f (must not be negative)", c.Calibration.MarkerInset)
	}
	if c.Calibration.DetectorTimeoutSec <= 0 {
		return fmt.Errorf("invalid calibration.detector_timeout_sec: %d (must be positive)", c.Calibration.DetectorTimeoutSec)
	}
	if c.Warp.Threshold < 0 || c.Warp.Threshold > 255 {
		return fmt.Errorf("invalid warp.threshold: %d (must be between 0 and 255)", c.Warp.Threshold)
	}
	if c.Warp.Workers < 0 {
		return fmt.Errorf("invalid warp.workers: %d (must not be negative)", c.Warp.Workers)
	}
	if c.Warp.FrameTimeoutMS <= 0 {
		return fmt.Errorf("invalid warp.frame_timeout_ms: %d (must be positive)", c.Warp.FrameTimeoutMS)
	}

	if err := c.ToPanelProfile().Validate(); err != nil {
		return fmt.Errorf("invalid panel profile: %w", err)
	}
	if err := c.ToBlobProfile(true).Validate(); err != nil {
		return fmt.Errorf("invalid blob.strict profile: %w", err)
	}
	if err := c.ToBlobProfile(false).Validate(); err != nil {
		return fmt.Errorf("invalid blob.lenient profile: %w", err)
	}
	if _, err := c.ToPalette(); err != nil {
		return fmt.Errorf("invalid preview palette: %w", err)
	}
	return nil
}

// ToPanelProfile converts to shapes.PanelProfile.
func (c *Config) ToPanelProfile() shapes.PanelProfile {
	return shapes.PanelProfile{
		TargetAspect:      c.Panel.TargetAspect,
		AspectTolerance:   c.Panel.AspectTolerance,
		MinRectangularity: c.Panel.MinRectangularity,
		MinArea:           c.Panel.MinArea,
		MaxAreaRatio:      c.Panel.MaxAreaRatio,
	}
}

// ToBlobProfile converts the strict or lenient preset to shapes.BlobProfile.
func (c *Config) ToBlobProfile(strict bool) shapes.BlobProfile {
	p := c.Blob.Lenient
	if strict {
		p = c.Blob.Strict
	}
	return shapes.BlobProfile{MinRadius: p.MinRadius, MaxRadius: p.MaxRadius, MinCircularity: p.MinCircularity}
}

// ToWarpConfig converts to warp.Config.
func (c *Config) ToWarpConfig() warp.Config {
	return warp.Config{Workers: c.Warp.Workers, BandRows: c.Warp.BandRows}
}

// ToPalette parses the preview colours.
func (c *Config) ToPalette() (shapes.Palette, error) {
	return shapes.ParsePalette(c.Preview.IslandsColor, c.Preview.LandColor, c.Preview.WaterColor)
}

// Threshold returns the stencil binarisation threshold.
func (c *Config) Threshold() uint8 {
	return uint8(min(max(c.Warp.Threshold, 0), 255)) //nolint:gosec // G115: clamped to uint8 range
}

// FrameTimeout returns the per-frame warp/classify deadline.
func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.Warp.FrameTimeoutMS) * time.Millisecond
}

// DetectorTimeout returns the marker detector request timeout.
func (c *Config) DetectorTimeout() time.Duration {
	return time.Duration(c.Calibration.DetectorTimeoutSec) * time.Second
}

// Layout returns the marker layout from LayoutFile, or the default corner
// layout for the output size when no file is configured.
func (c *Config) Layout() (markers.Layout, error) {
	if c.Calibration.LayoutFile == "" {
		return markers.DefaultLayout(c.Output.Width, c.Output.Height, c.Calibration.MarkerInset), nil
	}
	return markers.LoadLayout(c.Calibration.LayoutFile)
}
