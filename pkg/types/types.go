package types

import (
	"time"

	"github.com/drgolem/ringbuffer"
)

// ExportStatus holds progress information for a frame export.
// It is safe to read while the export is running.
type ExportStatus struct {
	FileName       string        // Name of the container being exported
	Format         string        // Output format (csv or jsonl)
	SampleFormat   string        // Decoded sample type, e.g. int16
	TotalFrames    int           // Frames in the container
	ProducedFrames uint64        // Frames normalized and queued
	WrittenFrames  uint64        // Frames written to the output
	WrittenPoints  uint64        // Point rows written to the output
	ElapsedTime    time.Duration // Wall-clock time since the export started
}

// ExportMonitor is an interface for types that can report export progress.
type ExportMonitor interface {
	GetExportStatus() ExportStatus
}

// Re-export common ringbuffer errors from github.com/drgolem/ringbuffer
// so every ring in this module reports the same sentinels.
var (
	// ErrInsufficientSpace indicates the ringbuffer doesn't have enough space for the write operation
	ErrInsufficientSpace = ringbuffer.ErrInsufficientSpace

	// ErrInsufficientData indicates the ringbuffer doesn't have enough data for the read operation
	ErrInsufficientData = ringbuffer.ErrInsufficientData
)
