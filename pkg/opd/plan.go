package opd

import "fmt"

// FrameRange is the half-open sample range [Start, End) of one frame in the
// decoded sample stream, in sample units rather than bytes
type FrameRange struct {
	Index int
	Time  float64
	Start int
	End   int
}

// Len returns the number of scalar samples in the range
func (r FrameRange) Len() int {
	return r.End - r.Start
}

// Points returns the number of sample triplets in the range
func (r FrameRange) Points() int {
	return r.Len() / 3
}

// ByteRange returns the byte bounds of the range relative to the frame-data origin
func (r FrameRange) ByteRange(precision int) (start, end int) {
	return r.Start * precision, r.End * precision
}

// Plan is the per-frame layout of a container's sample stream, computed once
// from the header so that frames can be decoded independently
type Plan struct {
	Precision int
	// Base is the size of the centroid block; header offsets are measured from its start
	Base   int
	Ranges []FrameRange
}

// TotalSamples returns the sum of all range lengths
func (p *Plan) TotalSamples() int {
	total := 0
	for _, r := range p.Ranges {
		total += r.Len()
	}
	return total
}

// NewPlan converts the directive's byte-offset frame table into sample ranges.
//
// payloadLen is the number of bytes after the centroid block; the final frame
// has no successor in the table and runs to the end of the payload
func NewPlan(d Directive, payloadLen int) (*Plan, error) {
	if !validPrecision(d.Precision) {
		return nil, headerError(fmt.Sprintf("unsupported precision %d (want 1, 2, 4 or 8)", d.Precision), nil)
	}
	prec := d.Precision
	plan := &Plan{
		Precision: prec,
		Base:      d.Count() * CentroidRecordSize,
		Ranges:    make([]FrameRange, 0, len(d.Frames)),
	}
	if len(d.Frames) == 0 {
		return plan, nil
	}
	starts := make([]int, len(d.Frames))
	for i, f := range d.Frames {
		idx, err := plan.sampleIndex(i, f.Offset)
		if err != nil {
			return nil, err
		}
		starts[i] = idx
	}
	if starts[0] != 0 {
		return nil, &FormatError{
			Kind:   ErrMisalignedOffset,
			Pos:    starts[0] * prec,
			Frame:  0,
			Want:   plan.Base,
			Got:    d.Frames[0].Offset,
			Detail: "first frame does not start at the frame-data origin",
		}
	}
	last := len(d.Frames) - 1
	for i := 0; i < last; i++ {
		n := starts[i+1] - starts[i]
		if n <= 0 || n%3 != 0 {
			return nil, &FormatError{
				Kind:   ErrInvalidFrameLength,
				Pos:    starts[i] * prec,
				Frame:  i,
				Got:    n,
				Detail: "sample count is not a positive multiple of 3",
			}
		}
		if starts[i+1]*prec > payloadLen {
			fe := truncatedError(starts[i]*prec, n*prec, payloadLen-starts[i]*prec, "frame data")
			fe.Frame = i
			return nil, fe
		}
		plan.Ranges = append(plan.Ranges, FrameRange{
			Index: i,
			Time:  d.Frames[i].Time,
			Start: starts[i],
			End:   starts[i+1],
		})
	}
	final, err := plan.openRange(last, d.Frames[last].Time, starts[last], payloadLen)
	if err != nil {
		return nil, err
	}
	plan.Ranges = append(plan.Ranges, final)
	return plan, nil
}

func (p *Plan) sampleIndex(frame, offset int) (int, error) {
	rel := offset - p.Base
	if rel < 0 {
		return 0, &FormatError{
			Kind:   ErrMisalignedOffset,
			Pos:    -1,
			Frame:  frame,
			Want:   p.Base,
			Got:    offset,
			Detail: "offset precedes the frame-data origin",
		}
	}
	if rel%p.Precision != 0 {
		return 0, &FormatError{
			Kind:   ErrMisalignedOffset,
			Pos:    rel,
			Frame:  frame,
			Want:   rel - rel%p.Precision,
			Got:    rel,
			Detail: fmt.Sprintf("offset not divisible by precision %d", p.Precision),
		}
	}
	return rel / p.Precision, nil
}

// openRange sizes the final frame from whatever remains of the payload
func (p *Plan) openRange(frame int, time float64, start, payloadLen int) (FrameRange, error) {
	pos := start * p.Precision
	if pos > payloadLen {
		fe := truncatedError(pos, pos, payloadLen, "final frame starts past end of data")
		fe.Frame = frame
		return FrameRange{}, fe
	}
	rem := payloadLen - pos
	if rem == 0 {
		return FrameRange{}, &FormatError{
			Kind:   ErrInvalidFrameLength,
			Pos:    pos,
			Frame:  frame,
			Detail: "final frame is empty",
		}
	}
	triplet := p.Precision * 3
	if rem%triplet != 0 {
		return FrameRange{}, &FormatError{
			Kind:   ErrTrailingBytes,
			Pos:    payloadLen - rem%triplet,
			Frame:  frame,
			Want:   rem - rem%triplet,
			Got:    rem,
			Detail: fmt.Sprintf("final frame is not a whole number of %d-byte triplets", triplet),
		}
	}
	return FrameRange{
		Index: frame,
		Time:  time,
		Start: start,
		End:   start + rem/p.Precision,
	}, nil
}
