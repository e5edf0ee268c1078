package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pompom/internal/markers"
	"github.com/MeKo-Tech/pompom/internal/shapes"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, shapes.DefaultPanelProfile(), cfg.ToPanelProfile())
	assert.Equal(t, shapes.StrictBlobProfile(), cfg.ToBlobProfile(true))
	assert.Equal(t, shapes.LenientBlobProfile(), cfg.ToBlobProfile(false))
	assert.Equal(t, uint8(127), cfg.Threshold())
	assert.Equal(t, 250*time.Millisecond, cfg.FrameTimeout())
	assert.Equal(t, 10*time.Second, cfg.DetectorTimeout())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"output size", func(c *Config) { c.Output.Width = 0 }},
		{"required markers", func(c *Config) { c.Calibration.RequiredMarkers = 3 }},
		{"marker inset", func(c *Config) { c.Calibration.MarkerInset = -1 }},
		{"detector timeout", func(c *Config) { c.Calibration.DetectorTimeoutSec = 0 }},
		{"threshold", func(c *Config) { c.Warp.Threshold = 256 }},
		{"workers", func(c *Config) { c.Warp.Workers = -2 }},
		{"frame timeout", func(c *Config) { c.Warp.FrameTimeoutMS = 0 }},
		{"panel", func(c *Config) { c.Panel.MinRectangularity = 2 }},
		{"strict blob", func(c *Config) { c.Blob.Strict.MaxRadius = 1 }},
		{"lenient blob", func(c *Config) { c.Blob.Lenient.MinCircularity = -0.1 }},
		{"palette", func(c *Config) { c.Preview.LandColor = "sand" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestThresholdClamps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Warp.Threshold = 999
	assert.Equal(t, uint8(255), cfg.Threshold())
	cfg.Warp.Threshold = -5
	assert.Equal(t, uint8(0), cfg.Threshold())
}

func TestLayoutDefaultAndFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration.MarkerInset = 20

	l, err := cfg.Layout()
	require.NoError(t, err)
	assert.Equal(t, markers.DefaultLayout(1920, 1080, 20), l)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	custom := markers.DefaultLayout(800, 600, 10)
	require.NoError(t, markers.SaveLayout(path, custom))
	cfg.Calibration.LayoutFile = path

	l, err = cfg.Layout()
	require.NoError(t, err)
	assert.Equal(t, custom, l)
}

func TestLoaderDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoaderYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pompom.yaml")
	content := `
log_level: debug
output:
  width: 1280
  height: 720
warp:
  threshold: 64
  frame_timeout_ms: 100
blob:
  strict:
    min_circularity: 0.7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader := NewLoaderWithViper(viper.New())
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, loader.GetConfigFileUsed())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1280, cfg.Output.Width)
	assert.Equal(t, uint8(64), cfg.Threshold())
	assert.Equal(t, 100*time.Millisecond, cfg.FrameTimeout())
	assert.InDelta(t, 0.7, cfg.Blob.Strict.MinCircularity, 1e-12)
	assert.InDelta(t, 100.0, cfg.Blob.Strict.MaxRadius, 1e-12, "unset keys keep defaults")
	assert.InDelta(t, 0.3, cfg.Blob.Lenient.MinCircularity, 1e-12)
}

func TestLoaderEnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POMPOM_WARP_THRESHOLD", "200")
	t.Setenv("POMPOM_CALIBRATION_DETECTOR_URL", "http://detector:9000")

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Warp.Threshold)
	assert.Equal(t, "http://detector:9000", cfg.Calibration.DetectorURL)
}

func TestLoaderErrors(t *testing.T) {
	_, err := NewLoaderWithViper(viper.New()).LoadWithFile("/does/not/exist.yaml")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: chatty\n"), 0o600))

	_, err = NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.ErrorContains(t, err, "validation failed")

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "chatty", cfg.LogLevel)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "pompom"))
	assert.Equal(t, "/etc/pompom", paths[len(paths)-1])
}
