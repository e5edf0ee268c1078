//nolint:lll
package config

// Config represents the complete configuration for the pompom engine and its
// developer CLI. It supports loading from configuration files, environment
// variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Projector output raster
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Marker-based calibration
	Calibration CalibrationConfig `mapstructure:"calibration" yaml:"calibration" json:"calibration"`

	// Perspective resampling
	Warp WarpConfig `mapstructure:"warp" yaml:"warp" json:"warp"`

	// Shape classification profiles
	Panel PanelConfig `mapstructure:"panel" yaml:"panel" json:"panel"`
	Blob  BlobConfig  `mapstructure:"blob" yaml:"blob" json:"blob"`

	// Partition preview colours
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview" json:"preview"`
}

// OutputConfig is the fixed projector output resolution.
type OutputConfig struct {
	Width  int `mapstructure:"width" yaml:"width" json:"width"`
	Height int `mapstructure:"height" yaml:"height" json:"height"`
}

// CalibrationConfig contains marker detection and layout settings.
type CalibrationConfig struct {
	RequiredMarkers    int     `mapstructure:"required_markers" yaml:"required_markers" json:"required_markers"`
	LayoutFile         string  `mapstructure:"layout_file" yaml:"layout_file" json:"layout_file"`
	MarkerInset        float64 `mapstructure:"marker_inset" yaml:"marker_inset" json:"marker_inset"`
	DetectorURL        string  `mapstructure:"detector_url" yaml:"detector_url" json:"detector_url"`
	DetectorTimeoutSec int     `mapstructure:"detector_timeout_sec" yaml:"detector_timeout_sec" json:"detector_timeout_sec"`
}

// WarpConfig contains resampler settings.
type WarpConfig struct {
	Threshold      int `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Workers        int `mapstructure:"workers" yaml:"workers" json:"workers"`
	BandRows       int `mapstructure:"band_rows" yaml:"band_rows" json:"band_rows"`
	FrameTimeoutMS int `mapstructure:"frame_timeout_ms" yaml:"frame_timeout_ms" json:"frame_timeout_ms"`
}

// PanelConfig contains the near-rectangular "island" thresholds.
type PanelConfig struct {
	TargetAspect      float64 `mapstructure:"target_aspect" yaml:"target_aspect" json:"target_aspect"`
	AspectTolerance   float64 `mapstructure:"aspect_tolerance" yaml:"aspect_tolerance" json:"aspect_tolerance"`
	MinRectangularity float64 `mapstructure:"min_rectangularity" yaml:"min_rectangularity" json:"min_rectangularity"`
	MinArea           int     `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	MaxAreaRatio      float64 `mapstructure:"max_area_ratio" yaml:"max_area_ratio" json:"max_area_ratio"`
}

// BlobProfileConfig contains one set of near-circular blob thresholds.
type BlobProfileConfig struct {
	MinRadius      float64 `mapstructure:"min_radius" yaml:"min_radius" json:"min_radius"`
	MaxRadius      float64 `mapstructure:"max_radius" yaml:"max_radius" json:"max_radius"`
	MinCircularity float64 `mapstructure:"min_circularity" yaml:"min_circularity" json:"min_circularity"`
}

// BlobConfig holds both blob presets.
type BlobConfig struct {
	Strict  BlobProfileConfig `mapstructure:"strict" yaml:"strict" json:"strict"`
	Lenient BlobProfileConfig `mapstructure:"lenient" yaml:"lenient" json:"lenient"`
}

// PreviewConfig contains hex colours for partition previews.
type PreviewConfig struct {
	IslandsColor string `mapstructure:"islands_color" yaml:"islands_color" json:"islands_color"`
	LandColor    string `mapstructure:"land_color" yaml:"land_color" json:"land_color"`
	WaterColor   string `mapstructure:"water_color" yaml:"water_color" json:"water_color"`
}
