package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pompom/internal/raster"
	"github.com/MeKo-Tech/pompom/internal/testutil"
)

// calibrateSmall writes a calibration for a 192x108 output into dir.
func calibrateSmall(t *testing.T, dir string) string {
	t.Helper()
	t.Setenv("POMPOM_OUTPUT_WIDTH", "192")
	t.Setenv("POMPOM_OUTPUT_HEIGHT", "108")
	path := filepath.Join(dir, "calibration.json")
	_, err := executeCommand(t, "calibrate", "--src", cameraPoints, "--output", path)
	require.NoError(t, err)
	return path
}

func TestWarpBinarize(t *testing.T) {
	dir := t.TempDir()
	calPath := calibrateSmall(t, dir)
	in := testutil.SaveStencil(t, testutil.NewStencil(640, 480).Rect(100, 80, 400, 320), dir, "stencil.png")
	out := filepath.Join(dir, "projected.png")

	stdout, err := executeCommand(t, "warp", in, out, "--calibration", calPath, "--binarize", "--frame-timeout", "10s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "192x108")

	m, err := raster.LoadMask(out)
	require.NoError(t, err)
	assert.Equal(t, 192, m.Width)
	assert.Equal(t, 108, m.Height)
	assert.Equal(t, 192*108, m.Count())
}

func TestWarpImage(t *testing.T) {
	dir := t.TempDir()
	calPath := calibrateSmall(t, dir)
	in := testutil.SaveStencil(t, testutil.NewStencil(640, 480).Rect(0, 0, 640, 480), dir, "frame.png")
	out := filepath.Join(dir, "preview.png")

	_, err := executeCommand(t, "warp", in, out, "--calibration", calPath, "--frame-timeout", "10s")
	require.NoError(t, err)

	img, err := raster.LoadImage(out)
	require.NoError(t, err)
	assert.Equal(t, 192, img.Bounds().Dx())
	_, _, _, a := img.At(96, 54).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestWarpErrors(t *testing.T) {
	dir := t.TempDir()
	in := testutil.SaveStencil(t, testutil.NewStencil(64, 48), dir, "stencil.png")

	_, err := executeCommand(t, "warp", in, filepath.Join(dir, "out.png"))
	require.Error(t, err, "calibration flag is required")

	_, err = executeCommand(t, "warp", in, filepath.Join(dir, "out.png"), "--calibration", filepath.Join(dir, "missing.json"))
	require.ErrorContains(t, err, "failed to read calibration")

	calPath := calibrateSmall(t, dir)
	_, err = executeCommand(t, "warp", filepath.Join(dir, "stencil.gif"), filepath.Join(dir, "out.png"), "--calibration", calPath)
	require.ErrorContains(t, err, "unsupported image format")

	_, err = executeCommand(t, "warp", in, filepath.Join(dir, "out.png"), "--calibration", calPath, "--threshold", "300")
	require.ErrorContains(t, err, "threshold")
}
