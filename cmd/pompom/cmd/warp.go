package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pompom/internal/engine"
	"github.com/MeKo-Tech/pompom/internal/raster"
)

func newWarpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warp <input> <output.png>",
		Short: "Resample a camera image into projector space",
		Long: `Resample a camera image into projector space using a calibration
produced by "pompom calibrate".

Without --binarize the image is bilinearly resampled and pixels that fall
outside the camera frame become transparent. With --binarize the input is
treated as a stencil and every output pixel is fully opaque white or fully
transparent.

Supported input formats: PNG, JPEG, BMP

Examples:
  pompom warp frame.jpg preview.png --calibration calibration.json
  pompom warp stencil.png projected.png --calibration calibration.json --binarize`,
		Args: cobra.ExactArgs(2),
		RunE: runWarp,
	}

	cmd.Flags().StringP("calibration", "c", "", "calibration JSON file (required)")
	cmd.Flags().Bool("binarize", false, "treat the input as a stencil and binarise the result")
	cmd.Flags().Int("threshold", 0, "binarisation threshold 0-255 (default from config)")
	cmd.Flags().Duration("frame-timeout", 0, "override the per-frame timeout")
	_ = cmd.MarkFlagRequired("calibration")
	return cmd
}

func runWarp(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	calFile, _ := cmd.Flags().GetString("calibration")
	binarize, _ := cmd.Flags().GetBool("binarize")

	if cmd.Flags().Changed("threshold") {
		cfg.Warp.Threshold, _ = cmd.Flags().GetInt("threshold")
	}
	if cmd.Flags().Changed("frame-timeout") {
		d, _ := cmd.Flags().GetDuration("frame-timeout")
		cfg.Warp.FrameTimeoutMS = int(d / time.Millisecond)
	}

	if !raster.IsSupportedImage(args[0]) {
		return fmt.Errorf("unsupported image format: %s", args[0])
	}
	cal, err := readCalibration(calFile)
	if err != nil {
		return err
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	var out image.Image
	if binarize {
		mask, err := raster.LoadMask(args[0])
		if err != nil {
			return err
		}
		warped, err := e.WarpStencil(cmd.Context(), cal, mask)
		if err != nil {
			return err
		}
		slog.Debug("Stencil warped", "coverage", warped.Count(), "pixels", warped.Len())
		out = warped.Image()
	} else {
		img, err := raster.LoadImage(args[0])
		if err != nil {
			return err
		}
		if out, err = e.WarpImage(cmd.Context(), cal, img); err != nil {
			return err
		}
	}

	if err := raster.SavePNG(args[1], out); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d projection to %s\n", cal.OutputWidth, cal.OutputHeight, args[1])
	return err
}

// readCalibration accepts both a bare calibration and the calibrate command's
// result document.
func readCalibration(path string) (*engine.Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}
	var res calibrateResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse calibration: %w", err)
	}
	cal := res.Calibration
	if cal == nil {
		cal = &engine.Calibration{}
		if err := json.Unmarshal(data, cal); err != nil {
			return nil, fmt.Errorf("failed to parse calibration: %w", err)
		}
	}
	if cal.OutputWidth <= 0 || cal.OutputHeight <= 0 {
		return nil, errors.New("calibration has no output size")
	}
	return cal, nil
}
