// File: pool/framepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded pool of receive frame buffers.

package pool

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/warplink/api"
)

// DefaultFrameLimit caps outstanding receive buffers per interface.
const DefaultFrameLimit = 256

// FramePool hands out fixed-class frame buffers and refuses to allocate once
// limit buffers are outstanding. Released buffers are recycled through a
// channel free list.
type FramePool struct {
	class int
	limit int64
	free  chan *frameBuffer

	inUse      atomic.Int64
	totalAlloc atomic.Int64
	totalFree  atomic.Int64
	failed     atomic.Int64
}

// NewFramePool creates a pool of buffers of class bytes each.
func NewFramePool(class, limit int) *FramePool {
	if limit <= 0 {
		limit = DefaultFrameLimit
	}
	return &FramePool{
		class: class,
		limit: int64(limit),
		free:  make(chan *frameBuffer, limit),
	}
}

// Get returns a buffer of exactly size bytes.
func (p *FramePool) Get(size int) (api.Buffer, error) {
	if size < 0 || size > p.class {
		return nil, fmt.Errorf("%w: %d byte frame, class %d", api.ErrFrameTooLarge, size, p.class)
	}
	if p.inUse.Add(1) > p.limit {
		p.inUse.Add(-1)
		p.failed.Add(1)
		return nil, api.ErrResourceExhausted
	}
	p.totalAlloc.Add(1)
	var b *frameBuffer
	select {
	case b = <-p.free:
	default:
		b = &frameBuffer{pool: p, mem: make([]byte, p.class)}
	}
	b.data = b.mem[:size]
	b.released.Store(false)
	return b, nil
}

func (p *FramePool) put(b *frameBuffer) {
	p.inUse.Add(-1)
	p.totalFree.Add(1)
	select {
	case p.free <- b:
	default:
	}
}

// Stats exposes resource/accounting metrics.
func (p *FramePool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: p.totalAlloc.Load(),
		TotalFree:  p.totalFree.Load(),
		InUse:      p.inUse.Load(),
		Failed:     p.failed.Load(),
	}
}

type frameBuffer struct {
	pool     *FramePool
	mem      []byte
	data     []byte
	released atomic.Bool
}

func (b *frameBuffer) Bytes() []byte { return b.data }

func (b *frameBuffer) Copy() []byte { return append([]byte(nil), b.data...) }

// Release is idempotent; only the first call recycles the buffer.
func (b *frameBuffer) Release() {
	if b.released.CompareAndSwap(false, true) {
		b.data = nil
		b.pool.put(b)
	}
}

var _ api.BufferPool = (*FramePool)(nil)
