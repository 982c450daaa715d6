// Package api
// Author: momentics
//
// Pooled frame buffers handed between the reactor and the upper stack.

package api

// Buffer describes a pooled memory region holding one frame.
type Buffer interface {
	// Bytes returns the current frame data.
	Bytes() []byte

	// Release returns the buffer to its pool.
	// After Release, buffer must not be used.
	Release()

	// Copy returns a deep copy of buffer contents as a standalone []byte.
	Copy() []byte
}

// BufferPool abstracts frame buffer management.
type BufferPool interface {
	// Get returns a buffer of exactly size bytes, or ErrResourceExhausted.
	Get(size int) (Buffer, error)

	// Stats exposes resource/accounting metrics for observability.
	Stats() BufferPoolStats
}

// BufferPoolStats aggregates buffer allocation/reuse stats.
type BufferPoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
	Failed     int64
}

// bytesBuffer wraps a plain slice that nobody pools.
type bytesBuffer []byte

func (b bytesBuffer) Bytes() []byte { return b }
func (b bytesBuffer) Release()      {}
func (b bytesBuffer) Copy() []byte  { return append([]byte(nil), b...) }

// BytesBuffer adapts an unpooled slice to Buffer.
func BytesBuffer(b []byte) Buffer { return bytesBuffer(b) }
