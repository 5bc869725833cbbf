package exporter

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drgolem/opdtools/pkg/framering"
	"github.com/drgolem/opdtools/pkg/opd"
	"github.com/drgolem/opdtools/pkg/types"
)

const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// idle is how long either side backs off when the ring is full or empty
const idle = 200 * time.Microsecond

// Options configures an export
type Options struct {
	// Format is FormatCSV (one row per point) or FormatJSONL (one object per frame)
	Format string
	// Capacity is the ring buffer size in frames
	Capacity uint64
	// Scaled multiplies normalized points by the directive scale
	Scaled bool
	// BatchSize is the number of frames the consumer reads at once
	BatchSize int
}

// Exporter writes the normalized points of a decoded container.
//
// A producer goroutine normalizes frames into a framering.RingBuffer and the
// caller's goroutine drains it into the output, the same SPSC split the
// ring is built for.
type Exporter struct {
	container *opd.Container
	ringbuf   *framering.RingBuffer
	opts      Options
	fileName  string

	producerDone   atomic.Bool
	startNanos     atomic.Int64
	producedFrames atomic.Uint64
	writtenFrames  atomic.Uint64
	writtenPoints  atomic.Uint64
}

// New creates an Exporter for c. fileName is only used for status reporting
func New(fileName string, c *opd.Container, opts Options) (*Exporter, error) {
	if c == nil {
		return nil, errors.New("no container to export")
	}
	switch opts.Format {
	case "":
		opts.Format = FormatCSV
	case FormatCSV, FormatJSONL:
	default:
		return nil, fmt.Errorf("unsupported export format: %s (supported: %s, %s)", opts.Format, FormatCSV, FormatJSONL)
	}
	if opts.Capacity == 0 {
		opts.Capacity = 64
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8
	}
	return &Exporter{
		container: c,
		ringbuf:   framering.New(opts.Capacity),
		opts:      opts,
		fileName:  filepath.Base(fileName),
	}, nil
}

// Run exports every frame to w and returns once all of them are written,
// the context is cancelled, or either side fails
func (e *Exporter) Run(ctx context.Context, w io.Writer) error {
	e.startNanos.Store(time.Now().UnixNano())
	e.producerDone.Store(false)
	e.ringbuf.Reset()

	out, err := e.newRowWriter(w)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer e.producerDone.Store(true)
		return e.producer(ctx)
	})
	g.Go(func() error {
		return e.consumer(ctx, out)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return out.Flush()
}

// producer normalizes frames and writes them to the ring, retrying while it is full
func (e *Exporter) producer(ctx context.Context) error {
	frames := e.container.Frames
	scale := e.container.Header.Directive.Scale

	for i := 0; i < frames.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		seq, err := frames.Normalized(i)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		frame := framering.PointFrame{
			Index:  i,
			Time:   frames.Time(i),
			Points: make([]opd.Vec3, 0, frames.SampleCount(i)/3),
		}
		for p := range seq {
			if e.opts.Scaled {
				p = p.Mul(scale)
			}
			frame.Points = append(frame.Points, p)
		}

		toWrite := []framering.PointFrame{frame}
		for len(toWrite) > 0 {
			written, _ := e.ringbuf.Write(toWrite)
			toWrite = toWrite[written:]
			e.producedFrames.Add(uint64(written))
			if len(toWrite) == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idle):
			}
		}
	}

	slog.Debug("Producer finished", "total_frames", e.producedFrames.Load())
	return nil
}

// consumer drains the ring into out until the producer is done and the ring is empty
func (e *Exporter) consumer(ctx context.Context, out rowWriter) error {
	for {
		frames, err := e.ringbuf.Read(e.opts.BatchSize)
		if errors.Is(err, framering.ErrInsufficientData) {
			if e.producerDone.Load() && e.ringbuf.AvailableRead() == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idle):
			}
			continue
		}
		if err != nil {
			return err
		}
		for _, f := range frames {
			if err := out.WriteFrame(f); err != nil {
				return fmt.Errorf("failed to write frame %d: %w", f.Index, err)
			}
			e.writtenFrames.Add(1)
			e.writtenPoints.Add(uint64(len(f.Points)))
		}
	}
}

// GetExportStatus returns the current export progress. Implements types.ExportMonitor.
func (e *Exporter) GetExportStatus() types.ExportStatus {
	var elapsed time.Duration
	if start := e.startNanos.Load(); start != 0 {
		elapsed = time.Since(time.Unix(0, start))
	}
	return types.ExportStatus{
		FileName:       e.fileName,
		Format:         e.opts.Format,
		SampleFormat:   e.container.Frames.Format().String(),
		TotalFrames:    e.container.Frames.Len(),
		ProducedFrames: e.producedFrames.Load(),
		WrittenFrames:  e.writtenFrames.Load(),
		WrittenPoints:  e.writtenPoints.Load(),
		ElapsedTime:    elapsed,
	}
}

type rowWriter interface {
	WriteFrame(f framering.PointFrame) error
	Flush() error
}

func (e *Exporter) newRowWriter(w io.Writer) (rowWriter, error) {
	switch e.opts.Format {
	case FormatJSONL:
		bw := bufio.NewWriter(w)
		return &jsonlWriter{w: bw, enc: json.NewEncoder(bw)}, nil
	default:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"frame", "time", "point", "x", "y", "z"}); err != nil {
			return nil, err
		}
		return &csvWriter{w: cw}, nil
	}
}

type csvWriter struct {
	w   *csv.Writer
	row [6]string
}

func (c *csvWriter) WriteFrame(f framering.PointFrame) error {
	c.row[0] = strconv.Itoa(f.Index)
	c.row[1] = formatFloat(f.Time)
	for i, p := range f.Points {
		c.row[2] = strconv.Itoa(i)
		c.row[3] = formatFloat(p[0])
		c.row[4] = formatFloat(p[1])
		c.row[5] = formatFloat(p[2])
		if err := c.w.Write(c.row[:]); err != nil {
			return err
		}
	}
	return nil
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

type jsonlFrame struct {
	Frame  int        `json:"frame"`
	Time   float64    `json:"time"`
	Points []opd.Vec3 `json:"points"`
}

type jsonlWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func (j *jsonlWriter) WriteFrame(f framering.PointFrame) error {
	return j.enc.Encode(jsonlFrame{Frame: f.Index, Time: f.Time, Points: f.Points})
}

func (j *jsonlWriter) Flush() error {
	return j.w.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
