package framering

import (
	"sync/atomic"

	"github.com/drgolem/opdtools/pkg/opd"
	"github.com/drgolem/opdtools/pkg/types"
)

// Re-export common ringbuffer errors
var (
	ErrInsufficientSpace = types.ErrInsufficientSpace
	ErrInsufficientData  = types.ErrInsufficientData
)

// PointFrame is one decoded frame as normalized point triplets
type PointFrame struct {
	Index  int
	Time   float64
	Points []opd.Vec3
}

// RingBuffer is a lock-free single-producer single-consumer ring buffer
// of PointFrame values, used to hand frames from a decoding goroutine to a writer.
//
// Thread safety:
//   - Write() must only be called by the producer goroutine
//   - Read() must only be called by the consumer goroutine
//
// The buffer capacity is automatically rounded up to the next power of 2 for
// efficient modulo operations using bitwise AND.
type RingBuffer struct {
	buffer   []PointFrame
	size     uint64 // must be power of 2
	mask     uint64 // size - 1
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a new ring buffer with the given capacity (number of frames).
// Capacity will be rounded up to the next power of 2.
func New(capacity uint64) *RingBuffer {
	capacity = nextPowerOf2(capacity)

	return &RingBuffer{
		buffer: make([]PointFrame, capacity),
		size:   capacity,
		mask:   capacity - 1,
	}
}

// Write writes frames to the ring buffer.
// It writes as many frames as fit and returns the number written.
//
// The Points slice is deep copied, so callers may reuse their buffers after Write returns.
//
// Returns ErrInsufficientSpace if no frame could be written.
func (rb *RingBuffer) Write(frames []PointFrame) (int, error) {
	frameCount := uint64(len(frames))
	if frameCount == 0 {
		return 0, nil
	}

	toWrite := min(frameCount, rb.AvailableWrite())
	if toWrite == 0 {
		return 0, ErrInsufficientSpace
	}

	writePos := rb.writePos.Load()

	for i := uint64(0); i < toWrite; i++ {
		pos := (writePos + i) & rb.mask
		rb.buffer[pos] = frames[i]
		rb.buffer[pos].Points = make([]opd.Vec3, len(frames[i].Points))
		copy(rb.buffer[pos].Points, frames[i].Points)
	}

	rb.writePos.Store(writePos + toWrite)

	return int(toWrite), nil
}

// Read reads up to numFrames from the ring buffer.
//
// If fewer frames are available than requested, returns what's available without error.
// If the buffer is empty, returns (nil, ErrInsufficientData).
func (rb *RingBuffer) Read(numFrames int) ([]PointFrame, error) {
	if numFrames <= 0 {
		return nil, nil
	}

	available := rb.AvailableRead()
	if available == 0 {
		return nil, ErrInsufficientData
	}

	toRead := min(uint64(numFrames), available)

	readPos := rb.readPos.Load()
	result := make([]PointFrame, toRead)

	for i := uint64(0); i < toRead; i++ {
		pos := (readPos + i) & rb.mask
		result[i] = rb.buffer[pos]
		// drop the ring's reference so the slot does not pin the points slice
		rb.buffer[pos].Points = nil
	}

	rb.readPos.Store(readPos + toRead)

	return result, nil
}

// AvailableWrite returns the number of frames available for writing
func (rb *RingBuffer) AvailableWrite() uint64 {
	return rb.size - (rb.writePos.Load() - rb.readPos.Load())
}

// AvailableRead returns the number of frames available for reading
func (rb *RingBuffer) AvailableRead() uint64 {
	return rb.writePos.Load() - rb.readPos.Load()
}

// Size returns the total capacity of the ring buffer (number of frames)
func (rb *RingBuffer) Size() uint64 {
	return rb.size
}

// Reset clears the ring buffer by resetting read and write positions.
func (rb *RingBuffer) Reset() {
	rb.readPos.Store(0)
	rb.writePos.Store(0)
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
