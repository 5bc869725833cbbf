// Package opdtest builds synthetic OPD containers for tests
package opdtest

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

type Centroid struct {
	ParentID uint32
	X, Y, Z  float32
}

// Frame is one frame of raw sample values; each is truncated to the
// container precision when encoded
type Frame struct {
	Time    float64
	Samples []int64
}

// Spec describes a container. Offsets in the frame table are computed from
// the frames unless Directive overrides "frames"
type Spec struct {
	Version          string
	Type             string
	Compressed       string
	DirectiveVersion string
	Precision        int
	Centroids        []Centroid
	Frames           []Frame
	// Directive is merged into the generated directive; a nil value removes the key
	Directive map[string]any
	// Top is merged into the top-level header object; a nil value removes the key
	Top map[string]any
}

// Simple returns a valid Spec with the given precision, centroid count and frames
func Simple(precision, centroids int, frames ...Frame) Spec {
	s := Spec{
		Version:          "1.0.0",
		Type:             "opd",
		DirectiveVersion: "2.0",
		Precision:        precision,
		Frames:           frames,
	}
	for i := 0; i < centroids; i++ {
		s.Centroids = append(s.Centroids, Centroid{
			ParentID: uint32(i),
			X:        float32(i) + 0.5,
			Y:        float32(i) * -1.25,
			Z:        2,
		})
	}
	return s
}

// FrameTable returns the header frame table for s.Frames
func (s Spec) FrameTable() []map[string]any {
	offset := len(s.Centroids) * 16
	table := make([]map[string]any, 0, len(s.Frames))
	for _, f := range s.Frames {
		table = append(table, map[string]any{"time": f.Time, "offset": offset})
		offset += len(f.Samples) * s.Precision
	}
	return table
}

// HeaderObject returns the JSON header as a generic object
func (s Spec) HeaderObject() map[string]any {
	directive := map[string]any{
		"version":      s.DirectiveVersion,
		"meta":         map[string]any{"projectId": "p-1", "projectName": "synthetic"},
		"numCentroids": len(s.Centroids),
		"origin":       map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
		"precision":    s.Precision,
		"scale":        []float64{10, 20, 30},
		"frames":       s.FrameTable(),
	}
	merge(directive, s.Directive)
	top := map[string]any{
		"version":   s.Version,
		"type":      s.Type,
		"directive": directive,
	}
	if s.Compressed != "" {
		top["compressed"] = s.Compressed
	}
	merge(top, s.Top)
	return top
}

// HeaderJSON returns the encoded JSON header
func (s Spec) HeaderJSON() []byte {
	raw, err := json.Marshal(s.HeaderObject())
	if err != nil {
		panic(err)
	}
	return raw
}

// Payload returns the centroid block followed by the frame samples
func (s Spec) Payload() []byte {
	buf := make([]byte, 0, len(s.Centroids)*16)
	for _, c := range s.Centroids {
		buf = binary.BigEndian.AppendUint32(buf, c.ParentID)
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(c.X))
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(c.Y))
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(c.Z))
	}
	for _, f := range s.Frames {
		buf = append(buf, EncodeSamples(s.Precision, f.Samples)...)
	}
	return buf
}

// Bytes returns the complete container
func (s Spec) Bytes() []byte {
	return Assemble(s.HeaderJSON(), s.Payload())
}

// Assemble prefixes a header and payload with the magic tag and header length
func Assemble(header, payload []byte) []byte {
	buf := make([]byte, 0, 8+len(header)+len(payload))
	buf = append(buf, ".opd"...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(header)))
	buf = append(buf, header...)
	return append(buf, payload...)
}

// EncodeSamples writes samples big-endian at the given byte width
func EncodeSamples(precision int, samples []int64) []byte {
	buf := make([]byte, 0, len(samples)*precision)
	for _, v := range samples {
		switch precision {
		case 1:
			buf = append(buf, byte(v))
		case 2:
			buf = binary.BigEndian.AppendUint16(buf, uint16(v))
		case 4:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		default:
			buf = binary.BigEndian.AppendUint64(buf, uint64(v))
		}
	}
	return buf
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}
