package opd

import (
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"
)

// Frame is one time-stamped run of quantized samples, three per animated point
type Frame[T Sample] struct {
	Time float64
	Data []T
}

// Points returns the frame's samples as normalized triplets
func (f Frame[T]) Points() (iter.Seq[Vec3], error) {
	return Points(f.Data)
}

// Frames holds every frame of a container at a single sample width.
//
// The only implementations are the FrameSet instantiations; type switch on
// FrameSet[int16], FrameSet[uint8], etc. to reach the raw samples
type Frames interface {
	Format() SampleFormat
	Len() int
	Time(i int) float64
	SampleCount(i int) int
	Normalized(i int) (iter.Seq[Vec3], error)
	sealed()
}

// FrameSet is the Frames implementation for sample type T
type FrameSet[T Sample] []Frame[T]

func (fs FrameSet[T]) Format() SampleFormat {
	return formatOf[T]()
}

func (fs FrameSet[T]) Len() int {
	return len(fs)
}

func (fs FrameSet[T]) Time(i int) float64 {
	return fs[i].Time
}

func (fs FrameSet[T]) SampleCount(i int) int {
	return len(fs[i].Data)
}

func (fs FrameSet[T]) Normalized(i int) (iter.Seq[Vec3], error) {
	return Points(fs[i].Data)
}

func (FrameSet[T]) sealed() {}

// DecodeFrames decodes every range of plan from payload (the bytes after the
// centroid block) as samples of the given format.
//
// Ranges are disjoint, so with workers > 1 frames are decoded concurrently
func DecodeFrames(payload []byte, plan *Plan, format SampleFormat, workers int) (Frames, error) {
	switch format {
	case SampleFormat{Bits: 8, Signed: true}:
		return asFrames[int8](decodeFrameSet[int8](payload, plan, workers))
	case SampleFormat{Bits: 16, Signed: true}:
		return asFrames[int16](decodeFrameSet[int16](payload, plan, workers))
	case SampleFormat{Bits: 32, Signed: true}:
		return asFrames[int32](decodeFrameSet[int32](payload, plan, workers))
	case SampleFormat{Bits: 64, Signed: true}:
		return asFrames[int64](decodeFrameSet[int64](payload, plan, workers))
	case SampleFormat{Bits: 8}:
		return asFrames[uint8](decodeFrameSet[uint8](payload, plan, workers))
	case SampleFormat{Bits: 16}:
		return asFrames[uint16](decodeFrameSet[uint16](payload, plan, workers))
	case SampleFormat{Bits: 32}:
		return asFrames[uint32](decodeFrameSet[uint32](payload, plan, workers))
	case SampleFormat{Bits: 64}:
		return asFrames[uint64](decodeFrameSet[uint64](payload, plan, workers))
	}
	return nil, headerError(fmt.Sprintf("unsupported sample format %s", format), nil)
}

func asFrames[T Sample](fs FrameSet[T], err error) (Frames, error) {
	if err != nil {
		return nil, err
	}
	return fs, nil
}

func decodeFrameSet[T Sample](payload []byte, plan *Plan, workers int) (FrameSet[T], error) {
	width := formatOf[T]().Bytes()
	if width != plan.Precision {
		return nil, headerError(fmt.Sprintf("sample width %d does not match precision %d", width, plan.Precision), nil)
	}
	frames := make(FrameSet[T], len(plan.Ranges))
	decode := func(i int) error {
		r := plan.Ranges[i]
		start, end := r.ByteRange(width)
		if start < 0 || end > len(payload) || start > end {
			fe := truncatedError(start, end-start, len(payload)-start, "frame data")
			fe.Frame = r.Index
			return fe
		}
		frames[i] = Frame[T]{Time: r.Time, Data: decodeRun[T](payload[start:end])}
		return nil
	}
	if workers <= 1 || len(frames) < 2 {
		for i := range frames {
			if err := decode(i); err != nil {
				return nil, err
			}
		}
		return frames, nil
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range frames {
		g.Go(func() error {
			return decode(i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}
