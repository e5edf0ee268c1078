package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pompom/internal/clock"
)

type clockResult struct {
	Clock   clock.Clock          `json:"clock"`
	Streams map[string][]float64 `json:"streams"`
}

func newClockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Issue an animation clock and sample its random streams",
		Long: `Issue an animation clock and print the first values of each named
random stream. Passing --seed reproduces the streams of an earlier session.

Examples:
  pompom clock
  pompom clock --seed 42 --namespace sparkle --namespace drift --count 8`,
		Args: cobra.NoArgs,
		RunE: runClock,
	}

	cmd.Flags().Uint32("seed", 0, "reuse a session seed instead of drawing a fresh one")
	cmd.Flags().Uint64("previous-sequence", 0, "sequence of the clock being replaced")
	cmd.Flags().StringArray("namespace", []string{"default"}, "stream namespace (repeatable)")
	cmd.Flags().Int("count", 5, "values to sample per stream")
	return cmd
}

func runClock(cmd *cobra.Command, args []string) error {
	prev, _ := cmd.Flags().GetUint64("previous-sequence")
	namespaces, _ := cmd.Flags().GetStringArray("namespace")
	count, _ := cmd.Flags().GetInt("count")

	var c clock.Clock
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint32("seed")
		c = clock.NewAt(prev, time.Now(), seed)
	} else {
		c = clock.New(prev)
	}

	streams := c.Streams()
	res := clockResult{Clock: c, Streams: make(map[string][]float64, len(namespaces))}
	for _, ns := range namespaces {
		g := streams.Get(ns)
		values := make([]float64, 0, max(count, 0))
		for range count {
			values = append(values, g.Float64())
		}
		res.Streams[ns] = values
	}
	return writeJSON(cmd, "", res)
}
