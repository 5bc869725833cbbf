// Package opdfile loads OPD containers from disk, inflating compressed
// payloads before handing the buffer to the opd decoder
package opdfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/drgolem/opdtools/pkg/opd"
)

// ErrUnsupportedCompression is returned for an unknown "compressed" header tag
var ErrUnsupportedCompression = errors.New("unsupported payload compression")

// Codecs lists the supported values of the header "compressed" tag
var Codecs = []string{"zstd", "gzip", "zlib"}

var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil)
})

// Inflate returns buf with its payload decompressed according to the
// header's "compressed" tag. The header bytes are kept as they are.
//
// An absent tag, or "none", returns buf unchanged
func Inflate(buf []byte) ([]byte, error) {
	hdr, payload, err := opd.DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	codec := strings.ToLower(hdr.Compressed)
	if codec == "" || codec == "none" {
		return buf, nil
	}
	inflated, err := decompress(codec, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate %s payload: %w", codec, err)
	}
	headerLen := len(buf) - len(payload)
	out := make([]byte, 0, headerLen+len(inflated))
	out = append(out, buf[:headerLen]...)
	out = append(out, inflated...)

	slog.Debug("Payload inflated",
		"codec", codec,
		"compressed_bytes", len(payload),
		"inflated_bytes", len(inflated))

	return out, nil
}

func decompress(codec string, payload []byte) ([]byte, error) {
	switch codec {
	case "zstd":
		dec, err := zstdDecoder()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(payload, nil)
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedCompression, codec, strings.Join(Codecs, ", "))
}

// Read loads a container from r. name is only used for logging
func Read(r io.Reader, name string, options *opd.DecodeOptions) (*opd.Container, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return decodeBuffer(buf, name, options)
}

// ReadFile loads and decodes the container stored at fileName
func ReadFile(fileName string, options *opd.DecodeOptions) (*opd.Container, error) {
	buf, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open OPD file: %w", err)
	}
	return decodeBuffer(buf, fileName, options)
}

func decodeBuffer(buf []byte, name string, options *opd.DecodeOptions) (*opd.Container, error) {
	buf, err := Inflate(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	c, rest, err := opd.Decode(buf, options)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if len(rest) > 0 {
		slog.Warn("Unconsumed bytes after container", "file", name, "bytes", len(rest))
	}

	slog.Debug("OPD container decoded",
		"file", name,
		"centroids", len(c.Centroids),
		"frames", c.Frames.Len(),
		"sample_format", c.Frames.Format().String())

	return c, nil
}
