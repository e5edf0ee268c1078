package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pompom/internal/benchmark"
	"github.com/MeKo-Tech/pompom/internal/warp"
)

func newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [image...]",
		Short: "Compare the pooled resampler against the single-threaded one",
		Long: `Warp each scene with the single-threaded CPU resampler and the pooled
session, check that both produce identical pixels, and report timings.

Without arguments a synthetic stencil is used. Scenes are warped onto the
configured output size.

Examples:
  pompom bench
  pompom bench frame.png --iterations 50 --binarize`,
		Args: cobra.ArbitraryArgs,
		RunE: runBench,
	}

	cmd.Flags().IntP("iterations", "n", 10, "warps per resampler and scene")
	cmd.Flags().Bool("binarize", false, "benchmark stencil binarisation instead of colour resampling")
	cmd.Flags().Int("source-width", 1280, "synthetic scene width")
	cmd.Flags().Int("source-height", 720, "synthetic scene height")
	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	iterations, _ := cmd.Flags().GetInt("iterations")
	binarize, _ := cmd.Flags().GetBool("binarize")
	srcW, _ := cmd.Flags().GetInt("source-width")
	srcH, _ := cmd.Flags().GetInt("source-height")
	if iterations <= 0 {
		return fmt.Errorf("invalid iterations: %d (must be positive)", iterations)
	}

	mode := warp.ModeCopy()
	if binarize {
		mode = warp.ModeBinarize(cfg.Threshold())
	}

	var scenes []benchmark.Scene
	if len(args) == 0 {
		s, err := benchmark.SyntheticScene("synthetic", srcW, srcH, cfg.Output.Width, cfg.Output.Height, mode)
		if err != nil {
			return err
		}
		scenes = append(scenes, s)
	}
	for _, path := range args {
		s, err := benchmark.LoadScene(path, cfg.Output.Width, cfg.Output.Height, mode)
		if err != nil {
			return err
		}
		scenes = append(scenes, s)
	}

	session, err := warp.NewSession(cfg.ToWarpConfig())
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	for _, s := range scenes {
		c, err := benchmark.Compare(cmd.Context(), s, warp.CPU{}, session, iterations)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), c.String()); err != nil {
			return err
		}
		if !c.Identical {
			return fmt.Errorf("%s: pooled output differs from single-threaded output", s.Name)
		}
	}
	return nil
}
