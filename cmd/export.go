package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drgolem/opdtools/internal/exporter"
	"github.com/drgolem/opdtools/pkg/types"
)

var (
	// Flags for export command
	exportFormat   string
	exportOut      string
	exportScaled   bool
	exportCapacity uint64
	exportBatch    int
)

var exportCmd = &cobra.Command{
	Use:   "export <file.opd>",
	Short: "Export normalized point triplets",
	Long: `Decode an OPD container and write every frame's points, normalized to
[-1, 1], as CSV (one row per point) or JSON lines (one object per frame).

A producer goroutine normalizes frames into a lock-free SPSC ring buffer
while the writer drains it, so large containers stream to the output.

Examples:
  # CSV to stdout
  opdtools export scene.opd

  # JSON lines in world units
  opdtools export --format jsonl --scaled --out scene.jsonl scene.opd

  # Smaller ring buffer, debug progress
  opdtools export -v -c 16 --out scene.csv scene.opd`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv or jsonl (default from config)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "Output file path (- for stdout)")
	exportCmd.Flags().BoolVar(&exportScaled, "scaled", false, "Multiply normalized points by the directive scale")
	exportCmd.Flags().Uint64VarP(&exportCapacity, "capacity", "c", 0, "Ring buffer capacity in frames (default from config)")
	exportCmd.Flags().IntVarP(&exportBatch, "batch", "b", 8, "Frames written per ring buffer read")
}

func runExport(cmd *cobra.Command, args []string) {
	fileName := args[0]
	c := loadContainer(fileName)

	format := cfg.ExportFormat
	if exportFormat != "" {
		format = exportFormat
	}
	capacity := cfg.RingCapacity
	if exportCapacity > 0 {
		capacity = exportCapacity
	}

	exp, err := exporter.New(fileName, c, exporter.Options{
		Format:    format,
		Capacity:  capacity,
		Scaled:    exportScaled,
		BatchSize: exportBatch,
	})
	if err != nil {
		slog.Error("Failed to create exporter", "error", err)
		os.Exit(1)
	}

	out := os.Stdout
	if exportOut != "-" {
		out, err = os.Create(exportOut)
		if err != nil {
			slog.Error("Failed to create output file", "path", exportOut, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Exporting",
		"file", fileName,
		"out", exportOut,
		"format", format,
		"frames", c.Frames.Len(),
		"sample_format", c.Frames.Format().String(),
		"ring_capacity", capacity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitorDone := make(chan struct{})
	go monitorExport(exp, monitorDone)

	err = exp.Run(ctx, out)
	close(monitorDone)

	if out != os.Stdout {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if errors.Is(err, context.Canceled) {
		slog.Info("Export interrupted", "written_frames", exp.GetExportStatus().WrittenFrames)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Export failed", "error", err)
		os.Exit(1)
	}

	status := exp.GetExportStatus()
	slog.Info("Export complete",
		"frames", status.WrittenFrames,
		"points", status.WrittenPoints,
		"elapsed", formatElapsed(status.ElapsedTime))
}

func monitorExport(monitor types.ExportMonitor, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := monitor.GetExportStatus()
			progress := 0.0
			if status.TotalFrames > 0 {
				progress = float64(status.WrittenFrames) / float64(status.TotalFrames) * 100
			}
			slog.Info("Export status",
				"file", status.FileName,
				"elapsed", formatElapsed(status.ElapsedTime),
				"produced", status.ProducedFrames,
				"written", status.WrittenFrames,
				"total", status.TotalFrames,
				"progress", fmt.Sprintf("%.1f%%", progress))
		case <-done:
			return
		}
	}
}

// formatElapsed formats d as hh:mm:ss.msec
func formatElapsed(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, (ms%3600000)/60000, (ms%60000)/1000, ms%1000)
}
