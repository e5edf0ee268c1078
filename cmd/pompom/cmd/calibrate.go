package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pompom/internal/engine"
	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/markers"
)

// calibrateResult is the JSON document printed by the calibrate command.
type calibrateResult struct {
	Success     bool                `json:"success"`
	Matrix      [][]float64         `json:"matrix,omitempty"`
	Error       string              `json:"error,omitempty"`
	Calibration *engine.Calibration `json:"calibration,omitempty"`
}

func newCalibrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Compute the camera-to-projector homography",
		Long: `Compute the camera-to-projector homography from one of three inputs:

  --src/--dst   explicit point lists "x,y;x,y;..." (dst defaults to the
                output corners TL;TR;BR;BL)
  --markers     a detection result JSON file
  --image       a camera frame sent to the marker detection service

The calibration JSON can be passed to "pompom warp --calibration".

Examples:
  pompom calibrate --src "100,80;500,80;500,400;100,400"
  pompom calibrate --markers detections.json --output calibration.json
  pompom calibrate --image frame.png`,
		Args: cobra.NoArgs,
		RunE: runCalibrate,
	}

	cmd.Flags().String("src", "", "camera points as \"x,y;x,y;...\"")
	cmd.Flags().String("dst", "", "projector points as \"x,y;x,y;...\" (default: output corners)")
	cmd.Flags().String("markers", "", "detection result JSON file")
	cmd.Flags().String("image", "", "camera frame for the marker detection service")
	cmd.Flags().StringP("output", "o", "", "write the result to a file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("src", "markers", "image")
	cmd.MarkFlagsOneRequired("src", "markers", "image")
	return cmd
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	srcFlag, _ := cmd.Flags().GetString("src")
	dstFlag, _ := cmd.Flags().GetString("dst")
	markersFile, _ := cmd.Flags().GetString("markers")
	imageFile, _ := cmd.Flags().GetString("image")
	outputFile, _ := cmd.Flags().GetString("output")

	e, err := engine.New(*cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	var cal *engine.Calibration
	switch {
	case srcFlag != "":
		src, dst, perr := pointFlags(srcFlag, dstFlag, cfg.Output.Width, cfg.Output.Height)
		if perr != nil {
			return perr
		}
		cal, err = e.CalibrateFromPoints(src, dst)
	case markersFile != "":
		var det markers.DetectionResult
		det, err = readDetections(markersFile)
		if err != nil {
			return err
		}
		cal, err = e.Calibrate(cmd.Context(), det.Markers)
	default:
		var data []byte
		data, err = os.ReadFile(imageFile)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		cal, err = e.CalibrateImage(cmd.Context(), data, filepath.Base(imageFile))
	}

	if err != nil {
		if werr := writeJSON(cmd, outputFile, calibrateResult{Error: err.Error()}); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}
	return writeJSON(cmd, outputFile, calibrateResult{
		Success:     true,
		Matrix:      cal.CameraToProjector.Rows(),
		Calibration: cal,
	})
}

func readDetections(path string) (markers.DetectionResult, error) {
	var det markers.DetectionResult
	data, err := os.ReadFile(path)
	if err != nil {
		return det, fmt.Errorf("failed to read detections: %w", err)
	}
	if err := json.Unmarshal(data, &det); err != nil {
		return det, fmt.Errorf("failed to parse detections: %w", err)
	}
	if det.Error != "" {
		return det, fmt.Errorf("%w: %s", markers.ErrDetector, det.Error)
	}
	return det, nil
}

func pointFlags(srcFlag, dstFlag string, w, h int) ([]geometry.Point, []geometry.Point, error) {
	src, err := parsePoints(srcFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --src: %w", err)
	}
	if dstFlag == "" {
		corners := geometry.RectQuad(float64(w), float64(h)).Corners()
		return src, corners[:], nil
	}
	dst, err := parsePoints(dstFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --dst: %w", err)
	}
	return src, dst, nil
}

// parsePoints parses "x,y;x,y;..." into points.
func parsePoints(s string) ([]geometry.Point, error) {
	var pts []geometry.Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("point %q is not x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		pts = append(pts, geometry.Point{X: x, Y: y})
	}
	return pts, nil
}
