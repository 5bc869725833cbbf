package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/drgolem/opdtools/pkg/opd"
	"github.com/drgolem/opdtools/pkg/opdfile"
)

var inspectCentroids bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.opd>",
	Short: "Print the header and a summary of an OPD container",
	Long: `Decode an OPD container and print its header fields, centroid count,
sample format and frame summary. Use "-" to read from standard input.

Examples:
  # Summary of a container
  opdtools inspect scene.opd

  # Include the centroid table
  opdtools inspect --centroids scene.opd

  # Legacy containers stored with unsigned samples
  opdtools inspect --signedness unsigned old.opd`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectCentroids, "centroids", false, "Print every centroid record")
}

func runInspect(cmd *cobra.Command, args []string) {
	c := loadContainer(args[0])
	h := c.Header
	d := h.Directive

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", args[0])
	fmt.Fprintf(tw, "Version:\t%s\n", h.Version)
	fmt.Fprintf(tw, "Type:\t%s\n", h.Type)
	fmt.Fprintf(tw, "Compressed:\t%s\n", orNone(h.Compressed))
	fmt.Fprintf(tw, "Directive version:\t%s\n", d.Version)
	fmt.Fprintf(tw, "Project:\t%s (%s)\n", d.Meta.ProjectName, d.Meta.ProjectID)
	fmt.Fprintf(tw, "Centroids:\t%d\n", c.Count())
	fmt.Fprintf(tw, "Origin:\t%g, %g, %g\n", d.Origin.X, d.Origin.Y, d.Origin.Z)
	fmt.Fprintf(tw, "Scale:\t%g, %g, %g\n", d.Scale[0], d.Scale[1], d.Scale[2])
	fmt.Fprintf(tw, "Precision:\t%d bytes\n", d.Precision)
	fmt.Fprintf(tw, "Sample format:\t%s\n", c.Frames.Format())
	fmt.Fprintf(tw, "Frames:\t%d\n", c.Frames.Len())
	fmt.Fprintf(tw, "Samples:\t%d\n", c.Plan().TotalSamples())
	if n := c.Frames.Len(); n > 0 {
		fmt.Fprintf(tw, "Duration:\t%gs\n", c.Frames.Time(n-1)-c.Frames.Time(0))
	}
	fmt.Fprintf(tw, "Flags:\tindex=%s subCentroids=%s lastFrameCorrected=%s hasCentroidVolumes=%s\n",
		flag(d.Index), flag(d.SubCentroids), flag(d.LastFrameCorrected), flag(d.HasCentroidVolumes))
	if err := tw.Flush(); err != nil {
		slog.Error("Failed to write output", "error", err)
		os.Exit(1)
	}

	if inspectCentroids {
		printCentroids(c.Centroids, d.Origin)
	}
}

func printCentroids(centroids []opd.Centroid, origin opd.Point) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\nid\tparent\tdx\tdy\tdz\tx\ty\tz\t")
	for i, ct := range centroids {
		p := ct.Position(origin)
		fmt.Fprintf(tw, "%d\t%d\t%g\t%g\t%g\t%g\t%g\t%g\t\n",
			i, ct.ParentID, ct.Offset.X, ct.Offset.Y, ct.Offset.Z, p.X, p.Y, p.Z)
	}
	if err := tw.Flush(); err != nil {
		slog.Error("Failed to write output", "error", err)
		os.Exit(1)
	}
}

// loadContainer decodes fileName ("-" for stdin) with the configured options, exiting on error
func loadContainer(fileName string) *opd.Container {
	opts := decodeOptions()

	var (
		c   *opd.Container
		err error
	)
	if fileName == "-" {
		c, err = opdfile.Read(os.Stdin, "stdin", opts)
	} else {
		c, err = opdfile.ReadFile(fileName, opts)
	}
	if err != nil {
		slog.Error("Failed to load container", "file", fileName, "error", err)
		os.Exit(1)
	}
	return c
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func flag(b *bool) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatBool(*b)
}
