package opd

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Vec3 is a 3-component double precision vector.
//
// In JSON it is an array of exactly three numbers
type Vec3 [3]float64

func (v *Vec3) UnmarshalJSON(data []byte) error {
	var components []float64
	if err := json.Unmarshal(data, &components); err != nil {
		return err
	}
	if len(components) != 3 {
		return fmt.Errorf("vector must have 3 components, got %d", len(components))
	}
	copy(v[:], components)
	return nil
}

// Add returns the component-wise sum v + o
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Mul returns the component-wise product, e.g. a normalized sample times Directive.Scale
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]}
}

// Normalize maps a quantized sample to v / (2^(b-1) - 1), nominally [-1, 1].
//
// Unsigned samples are offset-binary: the top bit is flipped to re-centre
// them on zero before dividing, so both interpretations share one range
func Normalize[T Sample](v T) float64 {
	f := formatOf[T]()
	denom := float64(uint64(1)<<(f.Bits-1) - 1)
	if f.Signed {
		return float64(v) / denom
	}
	shift := 64 - f.Bits
	centred := int64((uint64(v)^(uint64(1)<<(f.Bits-1)))<<shift) >> shift
	return float64(centred) / denom
}

// Points groups raw samples into normalized triplets.
//
// The returned sequence is lazy and can be ranged over any number of times;
// it reads data but never modifies it
func Points[T Sample](data []T) (iter.Seq[Vec3], error) {
	if len(data)%3 != 0 {
		return nil, &FormatError{
			Kind:   ErrInvalidFrameLength,
			Pos:    -1,
			Frame:  -1,
			Got:    len(data),
			Detail: "sample count is not a multiple of 3",
		}
	}
	return func(yield func(Vec3) bool) {
		for i := 0; i < len(data); i += 3 {
			if !yield(Vec3{Normalize(data[i]), Normalize(data[i+1]), Normalize(data[i+2])}) {
				return
			}
		}
	}, nil
}
