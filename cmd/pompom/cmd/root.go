package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pompom/internal/config"
	"github.com/MeKo-Tech/pompom/internal/version"
)

var (
	// Configuration loader for the current invocation.
	configLoader *config.Loader
	// Resolved configuration for the current invocation.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// NewRootCommand builds the command tree. Every call returns fresh commands
// with their own flag sets.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pompom",
		Short: "Projection mapping engine tooling",
		Long: `Developer tooling for the pompom projection mapping engine.

Calibrates a camera against a projector from fiducial markers, warps camera
stencils into projector space, classifies stencil regions into panels and
blobs, and inspects the deterministic animation clock.

Examples:
  pompom calibrate --markers detections.json --output calibration.json
  pompom warp stencil.png projected.png --calibration calibration.json --binarize
  pompom classify projected.png --preview partition.png
  pompom clock --seed 42 --namespace sparkle`,
		Version:      version.String(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cmd); err != nil {
				return err
			}
			setupLogging(cmd, globalConfig)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pompom, /etc/pompom)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newBenchCommand(),
		newCalibrateCommand(),
		newClassifyCommand(),
		newClockCommand(),
		newConfigCommand(),
		newVersionCommand(),
		newWarpCommand(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// initConfig resolves configuration from the config file, POMPOM_* environment
// variables and the global flags.
func initConfig(cmd *cobra.Command) error {
	configLoader = config.NewLoaderWithViper(viper.New())
	v := configLoader.GetViper()
	if err := v.BindPFlag("verbose", cmd.Flags().Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}

	cfg, err := configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg
	return nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	// stdout carries command results, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// GetConfig returns the configuration resolved for the running command.
func GetConfig() *config.Config {
	return globalConfig
}

// writeJSON writes v as indented JSON to path, or to the command's stdout
// when path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("Wrote output", "path", path)
	return nil
}
