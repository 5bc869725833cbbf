package opd

import (
	"encoding/binary"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	assert.Equal(t, SampleFormat{Bits: 8, Signed: true}, formatOf[int8]())
	assert.Equal(t, SampleFormat{Bits: 16, Signed: true}, formatOf[int16]())
	assert.Equal(t, SampleFormat{Bits: 32, Signed: true}, formatOf[int32]())
	assert.Equal(t, SampleFormat{Bits: 64, Signed: true}, formatOf[int64]())
	assert.Equal(t, SampleFormat{Bits: 8}, formatOf[uint8]())
	assert.Equal(t, SampleFormat{Bits: 16}, formatOf[uint16]())
	assert.Equal(t, SampleFormat{Bits: 32}, formatOf[uint32]())
	assert.Equal(t, SampleFormat{Bits: 64}, formatOf[uint64]())
	assert.Equal(t, "int16", formatOf[int16]().String())
	assert.Equal(t, "uint64", formatOf[uint64]().String())
	assert.Equal(t, 4, formatOf[uint32]().Bytes())
}

func TestDecodeRun(t *testing.T) {
	assert.Equal(t, []int8{-1, 127, -128}, decodeRun[int8]([]byte{0xFF, 0x7F, 0x80}))
	assert.Equal(t, []uint8{0xFF, 0x7F, 0x80}, decodeRun[uint8]([]byte{0xFF, 0x7F, 0x80}))
	assert.Equal(t, []int16{-2, 0x0102}, decodeRun[int16]([]byte{0xFF, 0xFE, 0x01, 0x02}))
	assert.Equal(t, []uint16{0xFFFE, 0x0102}, decodeRun[uint16]([]byte{0xFF, 0xFE, 0x01, 0x02}))
	assert.Equal(t, []int32{-3}, decodeRun[int32]([]byte{0xFF, 0xFF, 0xFF, 0xFD}))
	assert.Equal(t, []uint32{0x01020304}, decodeRun[uint32]([]byte{1, 2, 3, 4}))
	assert.Equal(t, []int64{-4}, decodeRun[int64]([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFC}))
	assert.Equal(t, []uint64{0x0102030405060708}, decodeRun[uint64]([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Empty(t, decodeRun[int32](nil))
}

func TestParseSignedness(t *testing.T) {
	for in, want := range map[string]Signedness{"": SignAuto, "auto": SignAuto, "signed": Signed, "unsigned": Unsigned} {
		got, err := ParseSignedness(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSignedness("both")
	assert.Error(t, err)
	assert.Equal(t, "unsigned", Unsigned.String())
	assert.Equal(t, "auto", SignAuto.String())
}

func samplePayload(precision, frames, perFrame int) ([]byte, *Plan) {
	plan := &Plan{Precision: precision}
	var buf []byte
	for f := 0; f < frames; f++ {
		start := f * perFrame
		plan.Ranges = append(plan.Ranges, FrameRange{Index: f, Time: float64(f), Start: start, End: start + perFrame})
		for i := 0; i < perFrame; i++ {
			v := uint64(f*perFrame + i)
			switch precision {
			case 1:
				buf = append(buf, byte(v))
			case 2:
				buf = binary.BigEndian.AppendUint16(buf, uint16(v))
			case 4:
				buf = binary.BigEndian.AppendUint32(buf, uint32(v))
			default:
				buf = binary.BigEndian.AppendUint64(buf, v)
			}
		}
	}
	return buf, plan
}

func TestDecodeFrames(t *testing.T) {
	payload, plan := samplePayload(2, 4, 6)
	for _, workers := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("workers %d", workers), func(t *testing.T) {
			frames, err := DecodeFrames(payload, plan, SampleFormat{Bits: 16, Signed: true}, workers)
			require.NoError(t, err)
			require.IsType(t, FrameSet[int16]{}, frames)
			fs := frames.(FrameSet[int16])
			require.Equal(t, 4, fs.Len())
			for f := 0; f < 4; f++ {
				assert.Equal(t, float64(f), fs.Time(f))
				assert.Equal(t, 6, fs.SampleCount(f))
				want := make([]int16, 6)
				for i := range want {
					want[i] = int16(f*6 + i)
				}
				assert.Equal(t, want, fs[f].Data)
			}
		})
	}
}

func TestDecodeFrames_AllFormats(t *testing.T) {
	for _, prec := range []int{1, 2, 4, 8} {
		for _, signed := range []bool{true, false} {
			format := SampleFormat{Bits: prec * 8, Signed: signed}
			t.Run(format.String(), func(t *testing.T) {
				payload, plan := samplePayload(prec, 2, 3)
				frames, err := DecodeFrames(payload, plan, format, 2)
				require.NoError(t, err)
				assert.Equal(t, format, frames.Format())
				assert.Equal(t, 2, frames.Len())
				seq, err := frames.Normalized(1)
				require.NoError(t, err)
				assert.Len(t, slices.Collect(seq), 1)
			})
		}
	}
}

func TestDecodeFrames_Errors(t *testing.T) {
	payload, plan := samplePayload(4, 2, 3)
	_, err := DecodeFrames(payload, plan, SampleFormat{Bits: 16, Signed: true}, 1)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = DecodeFrames(payload, plan, SampleFormat{Bits: 24, Signed: true}, 1)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = DecodeFrames(payload[:len(payload)-1], plan, SampleFormat{Bits: 32, Signed: true}, 4)
	require.ErrorIs(t, err, ErrTruncated)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Frame)
}

func BenchmarkDecodeFrames(b *testing.B) {
	payload, plan := samplePayload(2, 256, 3*1024)
	format := SampleFormat{Bits: 16, Signed: true}
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers %d", workers), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			for i := 0; i < b.N; i++ {
				_, _ = DecodeFrames(payload, plan, format, workers)
			}
		})
	}
}
