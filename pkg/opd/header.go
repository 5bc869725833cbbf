package opd

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Magic is the literal tag every OPD container starts with
const Magic = ".opd"

// preambleSize is the magic tag plus the big-endian u32 header length
const preambleSize = 8

// Header represents the parsed JSON metadata block of an OPD container
type Header struct {
	Version string
	// Compressed names the payload codec, empty when the payload is raw
	Compressed string
	Type       string
	Directive  Directive
}

// Directive describes the layout of the binary payload
type Directive struct {
	Version string
	Meta    Meta
	// NumCentroids and NumPoints are both count fields; at least one is present.
	// Use Count to read the effective value.
	NumCentroids *int
	NumPoints    *int
	// Origin is the reference point centroid offsets are relative to
	Origin Point
	// Precision is the byte width of one quantized scalar sample: 1, 2, 4 or 8
	Precision int
	// Scale maps normalized samples back to world units; applied by callers
	Scale  Vec3
	Frames []FrameMeta

	// Opaque flags, preserved as-is (nil when absent)
	Index              *bool
	SubCentroids       *bool
	LastFrameCorrected *bool
	HasCentroidVolumes *bool
}

// Count returns the number of centroid records in the container.
//
// numCentroids takes precedence over numPoints when both are present
func (d Directive) Count() int {
	if d.NumCentroids != nil {
		return *d.NumCentroids
	}
	if d.NumPoints != nil {
		return *d.NumPoints
	}
	return 0
}

// SampleBits is the bit width of one scalar sample
func (d Directive) SampleBits() int {
	return d.Precision * 8
}

type Meta struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// Point is a single precision 3D point, as stored in the header origin and centroid records
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vec3 converts the point to a double precision vector
func (p Point) Vec3() Vec3 {
	return Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
}

// FrameMeta is one entry of the header's frame table
type FrameMeta struct {
	Time float64 `json:"time"`
	// Offset is a byte offset measured from the start of the centroid block
	Offset int `json:"offset"`
}

type wireHeader struct {
	Version    *string        `json:"version"`
	Compressed *string        `json:"compressed"`
	Type       *string        `json:"type"`
	Directive  *wireDirective `json:"directive"`
}

type wireDirective struct {
	Version            *string     `json:"version"`
	Meta               *Meta       `json:"meta"`
	NumCentroids       *int        `json:"numCentroids"`
	NumPoints          *int        `json:"numPoints"`
	Origin             *Point      `json:"origin"`
	Precision          *int        `json:"precision"`
	Scale              *Vec3       `json:"scale"`
	Frames             []FrameMeta `json:"frames"`
	Index              *bool       `json:"index"`
	SubCentroids       *bool       `json:"subCentroids"`
	LastFrameCorrected *bool       `json:"lastFrameCorrected"`
	HasCentroidVolumes *bool       `json:"hasCentroidVolumes"`
}

// DecodeHeader validates the magic tag and parses the length-prefixed JSON header.
//
// The returned slice starts immediately after the header block; all frame
// offset arithmetic is relative to it
func DecodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < preambleSize || !bytes.Equal(buf[:len(Magic)], []byte(Magic)) {
		return Header{}, nil, newError(ErrBadMagic, 0, fmt.Sprintf("expected %q", Magic))
	}
	length := binary.BigEndian.Uint32(buf[4:8])
	if uint64(length) > uint64(len(buf)-preambleSize) {
		return Header{}, nil, truncatedError(preambleSize, int(length), len(buf)-preambleSize, "header block")
	}
	end := preambleSize + int(length)
	h, err := parseHeaderJSON(buf[preambleSize:end])
	if err != nil {
		return Header{}, nil, err
	}
	return h, buf[end:], nil
}

func parseHeaderJSON(raw []byte) (Header, error) {
	if !utf8.Valid(raw) {
		return Header{}, headerError("header is not valid UTF-8", nil)
	}
	var w wireHeader
	if err := json.Unmarshal(raw, &w); err != nil {
		return Header{}, headerError("malformed JSON", err)
	}
	switch {
	case w.Version == nil:
		return Header{}, headerError(`missing "version"`, nil)
	case w.Type == nil:
		return Header{}, headerError(`missing "type"`, nil)
	case w.Directive == nil:
		return Header{}, headerError(`missing "directive"`, nil)
	}
	d, err := w.Directive.validate()
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Version:   *w.Version,
		Type:      *w.Type,
		Directive: d,
	}
	if w.Compressed != nil {
		h.Compressed = *w.Compressed
	}
	return h, nil
}

func (w *wireDirective) validate() (Directive, error) {
	switch {
	case w.Version == nil:
		return Directive{}, headerError(`missing "directive.version"`, nil)
	case w.Meta == nil:
		return Directive{}, headerError(`missing "directive.meta"`, nil)
	case w.NumCentroids == nil && w.NumPoints == nil:
		return Directive{}, headerError(`missing "directive.numCentroids" or "directive.numPoints"`, nil)
	case w.Origin == nil:
		return Directive{}, headerError(`missing "directive.origin"`, nil)
	case w.Precision == nil:
		return Directive{}, headerError(`missing "directive.precision"`, nil)
	case w.Scale == nil:
		return Directive{}, headerError(`missing "directive.scale"`, nil)
	case w.Frames == nil:
		return Directive{}, headerError(`missing "directive.frames"`, nil)
	}
	if !validPrecision(*w.Precision) {
		return Directive{}, headerError(fmt.Sprintf("unsupported precision %d (want 1, 2, 4 or 8)", *w.Precision), nil)
	}
	for _, n := range []*int{w.NumCentroids, w.NumPoints} {
		if n != nil && *n < 0 {
			return Directive{}, headerError(fmt.Sprintf("negative count %d", *n), nil)
		}
	}
	for i, f := range w.Frames {
		if f.Offset < 0 {
			return Directive{}, headerError(fmt.Sprintf("frame %d has negative offset %d", i, f.Offset), nil)
		}
	}
	return Directive{
		Version:            *w.Version,
		Meta:               *w.Meta,
		NumCentroids:       w.NumCentroids,
		NumPoints:          w.NumPoints,
		Origin:             *w.Origin,
		Precision:          *w.Precision,
		Scale:              *w.Scale,
		Frames:             w.Frames,
		Index:              w.Index,
		SubCentroids:       w.SubCentroids,
		LastFrameCorrected: w.LastFrameCorrected,
		HasCentroidVolumes: w.HasCentroidVolumes,
	}, nil
}

func validPrecision(p int) bool {
	switch p {
	case 1, 2, 4, 8:
		return true
	}
	return false
}
