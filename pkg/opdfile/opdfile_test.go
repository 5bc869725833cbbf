package opdfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/opdtools/internal/opdtest"
	"github.com/drgolem/opdtools/pkg/opd"
)

func testSpec() opdtest.Spec {
	return opdtest.Simple(2, 2,
		opdtest.Frame{Time: 0, Samples: []int64{1, 2, 3, 4, 5, 6}},
		opdtest.Frame{Time: 0.5, Samples: []int64{-1, -2, -3, -4, -5, -6}},
	)
}

func compress(t *testing.T, codec string, payload []byte) []byte {
	var buf bytes.Buffer
	switch codec {
	case "zstd":
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(payload, nil)
	case "gzip":
		w := gzip.NewWriter(&buf)
		_, err := w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "zlib":
		w := zlib.NewWriter(&buf)
		_, err := w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		t.Fatalf("unknown codec %q", codec)
	}
	return buf.Bytes()
}

func TestInflate(t *testing.T) {
	for _, codec := range Codecs {
		t.Run(codec, func(t *testing.T) {
			spec := testSpec()
			spec.Compressed = codec
			header := spec.HeaderJSON()
			buf := opdtest.Assemble(header, compress(t, codec, spec.Payload()))

			inflated, err := Inflate(buf)
			require.NoError(t, err)
			assert.Equal(t, opdtest.Assemble(header, spec.Payload()), inflated)

			c, rest, err := opd.Decode(inflated, nil)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, codec, c.Header.Compressed)
			assert.Equal(t, 2, c.Frames.Len())
		})
	}
}

func TestInflate_Uncompressed(t *testing.T) {
	buf := testSpec().Bytes()
	out, err := Inflate(buf)
	require.NoError(t, err)
	assert.Equal(t, buf, out)

	spec := testSpec()
	spec.Compressed = "none"
	buf = spec.Bytes()
	out, err = Inflate(buf)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestInflate_Errors(t *testing.T) {
	spec := testSpec()
	spec.Compressed = "lz4"
	_, err := Inflate(spec.Bytes())
	assert.ErrorIs(t, err, ErrUnsupportedCompression)

	spec.Compressed = "gzip"
	_, err = Inflate(spec.Bytes())
	assert.ErrorContains(t, err, "failed to inflate gzip payload")

	_, err = Inflate([]byte("nope"))
	assert.ErrorIs(t, err, opd.ErrBadMagic)
}

func TestReadFile(t *testing.T) {
	spec := testSpec()
	spec.Compressed = "zstd"
	buf := opdtest.Assemble(spec.HeaderJSON(), compress(t, "zstd", spec.Payload()))
	fileName := filepath.Join(t.TempDir(), "sample.opd")
	require.NoError(t, os.WriteFile(fileName, buf, 0o644))

	c, err := ReadFile(fileName, &opd.DecodeOptions{Workers: 1})
	require.NoError(t, err)
	require.Len(t, c.Centroids, 2)
	require.IsType(t, opd.FrameSet[int16]{}, c.Frames)
	assert.Equal(t, []int16{-1, -2, -3, -4, -5, -6}, c.Frames.(opd.FrameSet[int16])[1].Data)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.opd"), nil)
	assert.ErrorContains(t, err, "failed to open OPD file")
}

func TestRead(t *testing.T) {
	c, err := Read(bytes.NewReader(testSpec().Bytes()), "stdin", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())

	truncated := testSpec().Bytes()
	_, err = Read(bytes.NewReader(truncated[:len(truncated)-1]), "stdin", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, opd.ErrTrailingBytes)
	assert.ErrorContains(t, err, "failed to decode stdin")
}
