package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "pompom"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "POMPOM"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags bound
// by the CLI take part in resolution.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an isolated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from the search paths, environment variables and
// defaults, then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations; a missing file there is not an error.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is LoadWithFile without the final Validate call.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile)
}

func (l *Loader) load(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// Replace dots and dashes with underscores in env var names
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("output.width", d.Output.Width)
	l.v.SetDefault("output.height", d.Output.Height)

	l.v.SetDefault("calibration.required_markers", d.Calibration.RequiredMarkers)
	l.v.SetDefault("calibration.layout_file", d.Calibration.LayoutFile)
	l.v.SetDefault("calibration.marker_inset", d.Calibration.MarkerInset)
	l.v.SetDefault("calibration.detector_url", d.Calibration.DetectorURL)
	l.v.SetDefault("calibration.detector_timeout_sec", d.Calibration.DetectorTimeoutSec)

	l.v.SetDefault("warp.threshold", d.Warp.Threshold)
	l.v.SetDefault("warp.workers", d.Warp.Workers)
	l.v.SetDefault("warp.band_rows", d.Warp.BandRows)
	l.v.SetDefault("warp.frame_timeout_ms", d.Warp.FrameTimeoutMS)

	l.v.SetDefault("panel.target_aspect", d.Panel.TargetAspect)
	l.v.SetDefault("panel.aspect_tolerance", d.Panel.AspectTolerance)
	l.v.SetDefault("panel.min_rectangularity", d.Panel.MinRectangularity)
	l.v.SetDefault("panel.min_area", d.Panel.MinArea)
	l.v.SetDefault("panel.max_area_ratio", d.Panel.MaxAreaRatio)

	for name, p := range map[string]BlobProfileConfig{"strict": d.Blob.Strict, "lenient": d.Blob.Lenient} {
		l.v.SetDefault("blob."+name+".min_radius", p.MinRadius)
		l.v.SetDefault("blob."+name+".max_radius", p.MaxRadius)
		l.v.SetDefault("blob."+name+".min_circularity", p.MinCircularity)
	}

	l.v.SetDefault("preview.islands_color", d.Preview.IslandsColor)
	l.v.SetDefault("preview.land_color", d.Preview.LandColor)
	l.v.SetDefault("preview.water_color", d.Preview.WaterColor)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// GenerateDefaultConfigFile writes the defaults to filename (pompom.yaml when empty).
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", ConfigFileName))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	}

	return append(paths, filepath.Join("/etc", ConfigFileName))
}
