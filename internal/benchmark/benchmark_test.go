package benchmark

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pompom/internal/raster"
	"github.com/MeKo-Tech/pompom/internal/warp"
)

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	suite.Add("success_test", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	suite.Add("error_test", func() error {
		return errors.New("test error")
	})

	result := suite.Run("success_test", 5)
	assert.Equal(t, "success_test", result.Name)
	assert.Equal(t, 5, result.Iterations)
	require.NoError(t, result.Error)
	assert.GreaterOrEqual(t, result.Average(), time.Millisecond)

	result = suite.Run("error_test", 3)
	require.ErrorContains(t, result.Error, "test error")
	assert.Contains(t, result.String(), "ERROR")

	result = suite.Run("non_existent", 1)
	require.ErrorContains(t, result.Error, "not found")
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast_test", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	suite.Add("slow_test", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := suite.RunAll(3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())
	assert.Greater(t, results[1].Duration, results[0].Duration)

	var buf bytes.Buffer
	suite.Fprint(&buf)
	assert.Contains(t, buf.String(), "fast_test: 3 iterations")
}

func TestSyntheticScene(t *testing.T) {
	scene, err := SyntheticScene("grid", 320, 240, 160, 90, warp.ModeBinarize(127))
	require.NoError(t, err)
	assert.Equal(t, 320, scene.Source.Bounds().Dx())

	m := raster.FromImage(scene.Source)
	assert.Positive(t, m.Count())
	assert.Less(t, m.Count(), m.Len())
}

func TestCompareSessionAgainstCPU(t *testing.T) {
	session, err := warp.NewSession(warp.Config{Workers: 3, BandRows: 7})
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	for _, mode := range []warp.Mode{warp.ModeCopy(), warp.ModeBinarize(127)} {
		scene, err := SyntheticScene("grid", 200, 150, 96, 54, mode)
		require.NoError(t, err)

		c, err := Compare(context.Background(), scene, warp.CPU{}, session, 2)
		require.NoError(t, err)
		assert.True(t, c.Identical, mode.Kind.String())
		assert.Equal(t, 2, c.Baseline.Iterations)
		assert.Contains(t, c.String(), "identical")
	}
}

func TestCompareReportsWarpErrors(t *testing.T) {
	scene, err := SyntheticScene("grid", 64, 48, 32, 18, warp.ModeCopy())
	require.NoError(t, err)
	scene.Width = 0

	_, err = Compare(context.Background(), scene, warp.CPU{}, warp.CPU{}, 1)
	require.ErrorIs(t, err, warp.ErrInvalidSize)
}

func TestLoadScene(t *testing.T) {
	scene, err := SyntheticScene("grid", 64, 48, 32, 18, warp.ModeCopy())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "scene.png")
	require.NoError(t, raster.SavePNG(path, scene.Source))

	loaded, err := LoadScene(path, 32, 18, warp.ModeCopy())
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Name)
	assert.Equal(t, 64, loaded.Source.Bounds().Dx())

	_, err = LoadScene(filepath.Join(t.TempDir(), "missing.png"), 32, 18, warp.ModeCopy())
	require.Error(t, err)
}
