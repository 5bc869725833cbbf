package opd

import (
	"encoding/json"
	"testing"

	"github.com/drgolem/opdtools/internal/opdtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeader(t *testing.T) {
	spec := opdtest.Simple(2, 1, opdtest.Frame{Time: 0, Samples: []int64{1, 2, 3}})
	spec.Directive = map[string]any{
		"index":              true,
		"hasCentroidVolumes": false,
	}
	buf := spec.Bytes()
	hdr, rest, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", hdr.Version)
	assert.Equal(t, "opd", hdr.Type)
	assert.Equal(t, "", hdr.Compressed)
	d := hdr.Directive
	assert.Equal(t, "2.0", d.Version)
	assert.Equal(t, Meta{ProjectID: "p-1", ProjectName: "synthetic"}, d.Meta)
	assert.Equal(t, 1, d.Count())
	assert.Nil(t, d.NumPoints)
	assert.Equal(t, Point{X: 1, Y: 2, Z: 3}, d.Origin)
	assert.Equal(t, 2, d.Precision)
	assert.Equal(t, 16, d.SampleBits())
	assert.Equal(t, Vec3{10, 20, 30}, d.Scale)
	assert.Equal(t, []FrameMeta{{Time: 0, Offset: 16}}, d.Frames)
	require.NotNil(t, d.Index)
	assert.True(t, *d.Index)
	require.NotNil(t, d.HasCentroidVolumes)
	assert.False(t, *d.HasCentroidVolumes)
	assert.Nil(t, d.SubCentroids)
	assert.Nil(t, d.LastFrameCorrected)
	// rest starts at the centroid block
	assert.Equal(t, spec.Payload(), rest)
}

func TestDecodeHeader_CompressedAndUnknownFields(t *testing.T) {
	spec := opdtest.Simple(1, 0)
	spec.Compressed = "zstd"
	spec.Top = map[string]any{"generator": "synthetic"}
	spec.Directive = map[string]any{"somethingNew": []int{1, 2}}
	hdr, _, err := DecodeHeader(spec.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "zstd", hdr.Compressed)
}

func TestDecodeHeader_NumPoints(t *testing.T) {
	spec := opdtest.Simple(4, 0)
	spec.Directive = map[string]any{"numCentroids": nil, "numPoints": 7}
	hdr, _, err := DecodeHeader(spec.Bytes())
	require.NoError(t, err)
	assert.Nil(t, hdr.Directive.NumCentroids)
	assert.Equal(t, 7, hdr.Directive.Count())

	spec.Directive = map[string]any{"numCentroids": 2, "numPoints": 7}
	hdr, _, err = DecodeHeader(spec.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, hdr.Directive.Count())
}

func TestDecodeHeader_BadMagic(t *testing.T) {
	valid := opdtest.Simple(1, 0).Bytes()
	for n := 0; n < 8; n++ {
		_, _, err := DecodeHeader(valid[:n])
		assert.ErrorIs(t, err, ErrBadMagic, "length %d", n)
	}
	bad := append([]byte(".odp"), valid[4:]...)
	_, _, err := DecodeHeader(bad)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeHeader_Truncated(t *testing.T) {
	valid := opdtest.Simple(1, 0).Bytes()
	_, _, err := DecodeHeader(valid[:20])
	require.ErrorIs(t, err, ErrTruncated)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 12, fe.Got)
	assert.Equal(t, len(valid)-8, fe.Want)
}

func TestDecodeHeader_Invalid(t *testing.T) {
	testCases := []struct {
		name      string
		directive map[string]any
		top       map[string]any
		contains  string
	}{
		{name: "precision 3", directive: map[string]any{"precision": 3}, contains: "unsupported precision 3"},
		{name: "precision 0", directive: map[string]any{"precision": 0}, contains: "unsupported precision 0"},
		{name: "precision 16", directive: map[string]any{"precision": 16}, contains: "unsupported precision 16"},
		{name: "no count", directive: map[string]any{"numCentroids": nil}, contains: "numPoints"},
		{name: "negative count", directive: map[string]any{"numCentroids": -1}, contains: "negative count"},
		{name: "negative offset", directive: map[string]any{"frames": []map[string]any{{"time": 0, "offset": -4}}}, contains: "negative offset"},
		{name: "no precision", directive: map[string]any{"precision": nil}, contains: "directive.precision"},
		{name: "no origin", directive: map[string]any{"origin": nil}, contains: "directive.origin"},
		{name: "no scale", directive: map[string]any{"scale": nil}, contains: "directive.scale"},
		{name: "no frames", directive: map[string]any{"frames": nil}, contains: "directive.frames"},
		{name: "no meta", directive: map[string]any{"meta": nil}, contains: "directive.meta"},
		{name: "no directive version", directive: map[string]any{"version": nil}, contains: "directive.version"},
		{name: "short scale", directive: map[string]any{"scale": []float64{1, 2}}, contains: "3 components"},
		{name: "scale object", directive: map[string]any{"scale": map[string]float64{"x": 1}}, contains: "malformed JSON"},
		{name: "string precision", directive: map[string]any{"precision": "2"}, contains: "malformed JSON"},
		{name: "no version", top: map[string]any{"version": nil}, contains: `"version"`},
		{name: "no type", top: map[string]any{"type": nil}, contains: `"type"`},
		{name: "no directive", top: map[string]any{"directive": nil}, contains: `"directive"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := opdtest.Simple(2, 0)
			spec.Directive = tc.directive
			spec.Top = tc.top
			_, _, err := DecodeHeader(spec.Bytes())
			require.ErrorIs(t, err, ErrInvalidHeader)
			assert.ErrorContains(t, err, tc.contains)
		})
	}
}

func TestDecodeHeader_MalformedJSON(t *testing.T) {
	_, _, err := DecodeHeader(opdtest.Assemble([]byte(`{"version": "1",`), nil))
	require.ErrorIs(t, err, ErrInvalidHeader)
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)

	_, _, err = DecodeHeader(opdtest.Assemble([]byte{'"', 0xff, '"'}, nil))
	require.ErrorIs(t, err, ErrInvalidHeader)
	assert.ErrorContains(t, err, "UTF-8")
}
