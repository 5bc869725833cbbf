package opd

import (
	"encoding/binary"
	"fmt"
)

// Signedness selects how quantized samples are interpreted.
//
// Encoder revisions disagree on this for the same precision, and the header
// does not say, so it is a decode-time choice (see DecodeOptions)
type Signedness uint8

const (
	// SignAuto resolves the interpretation from DecodeOptions.Interpretations,
	// falling back to Signed
	SignAuto Signedness = iota
	Signed
	Unsigned
)

func (s Signedness) String() string {
	switch s {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	default:
		return "auto"
	}
}

// ParseSignedness parses "auto", "signed" or "unsigned"
func ParseSignedness(s string) (Signedness, error) {
	switch s {
	case "", "auto":
		return SignAuto, nil
	case "signed":
		return Signed, nil
	case "unsigned":
		return Unsigned, nil
	}
	return SignAuto, fmt.Errorf("unknown signedness %q (want auto, signed or unsigned)", s)
}

// SampleFormat is one of the eight {signed, unsigned} x {8, 16, 32, 64} bit sample types
type SampleFormat struct {
	Bits   int
	Signed bool
}

func (f SampleFormat) String() string {
	if f.Signed {
		return fmt.Sprintf("int%d", f.Bits)
	}
	return fmt.Sprintf("uint%d", f.Bits)
}

// Bytes returns the byte width of one sample
func (f SampleFormat) Bytes() int {
	return f.Bits / 8
}

// Sample is the set of integer types a frame can hold
type Sample interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

func formatOf[T Sample]() SampleFormat {
	var zero T
	minusOne := zero - 1
	f := SampleFormat{Signed: minusOne < zero}
	switch any(zero).(type) {
	case int8, uint8:
		f.Bits = 8
	case int16, uint16:
		f.Bits = 16
	case int32, uint32:
		f.Bits = 32
	default:
		f.Bits = 64
	}
	return f
}

// decodeRun decodes len(src)/width big-endian samples; len(src) must be a multiple of width
func decodeRun[T Sample](src []byte) []T {
	width := formatOf[T]().Bytes()
	out := make([]T, len(src)/width)
	switch width {
	case 1:
		for i := range out {
			out[i] = T(src[i])
		}
	case 2:
		for i := range out {
			out[i] = T(binary.BigEndian.Uint16(src[i*2:]))
		}
	case 4:
		for i := range out {
			out[i] = T(binary.BigEndian.Uint32(src[i*4:]))
		}
	default:
		for i := range out {
			out[i] = T(binary.BigEndian.Uint64(src[i*8:]))
		}
	}
	return out
}
