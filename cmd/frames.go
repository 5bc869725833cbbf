package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var framesLimit int

var framesCmd = &cobra.Command{
	Use:   "frames <file.opd>",
	Short: "Print the frame plan of an OPD container",
	Long: `Print one row per frame: its time, the header byte offset, the sample
range it occupies in the frame data and the number of points it holds.

Examples:
  # Full plan
  opdtools frames scene.opd

  # First 10 frames only
  opdtools frames -n 10 scene.opd`,
	Args: cobra.ExactArgs(1),
	Run:  runFrames,
}

func init() {
	rootCmd.AddCommand(framesCmd)

	framesCmd.Flags().IntVarP(&framesLimit, "limit", "n", 0, "Print at most this many frames (0 = all)")
}

func runFrames(cmd *cobra.Command, args []string) {
	c := loadContainer(args[0])
	plan := c.Plan()

	ranges := plan.Ranges
	if framesLimit > 0 && framesLimit < len(ranges) {
		ranges = ranges[:framesLimit]
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "frame\ttime\toffset\tstart\tend\tsamples\tpoints\t")
	for _, r := range ranges {
		start, _ := r.ByteRange(plan.Precision)
		fmt.Fprintf(tw, "%d\t%g\t%d\t%d\t%d\t%d\t%d\t\n",
			r.Index, r.Time, plan.Base+start, r.Start, r.End, r.Len(), r.Points())
	}
	if err := tw.Flush(); err != nil {
		slog.Error("Failed to write output", "error", err)
		os.Exit(1)
	}

	slog.Debug("Frame plan",
		"frames", len(plan.Ranges),
		"printed", len(ranges),
		"precision", plan.Precision,
		"total_samples", plan.TotalSamples())
}
