// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake buffer, buffer pool and upper stack implementations for testing.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/warplink/api"
)

// Buffer is a fake implementation of api.Buffer that remembers its release.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	released bool
	pool     *BufferPool
}

// NewBuffer creates a new unpooled fake buffer holding a copy of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: append([]byte(nil), data...)}
}

// Bytes returns the current buffer data, or nil after Release.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return b.data
}

// Release returns the buffer to its pool.
func (b *Buffer) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	b.data = nil
	pool := b.pool
	b.mu.Unlock()
	if pool != nil {
		pool.put()
	}
}

// Released reports whether Release was called.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Copy returns a deep copy of buffer contents.
func (b *Buffer) Copy() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// BufferPool is a fake implementation of api.BufferPool with a switchable
// exhaustion fault.
type BufferPool struct {
	mu        sync.Mutex
	allocated int64
	freed     int64
	inUse     int64
	failed    int64
	exhausted bool
}

// NewBufferPool creates a new fake buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// SetExhausted makes every Get fail (or succeed again).
func (p *BufferPool) SetExhausted(on bool) {
	p.mu.Lock()
	p.exhausted = on
	p.mu.Unlock()
}

// Get returns a buffer of size bytes.
func (p *BufferPool) Get(size int) (api.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exhausted {
		p.failed++
		return nil, api.ErrResourceExhausted
	}
	p.allocated++
	p.inUse++
	return &Buffer{data: make([]byte, size), pool: p}, nil
}

func (p *BufferPool) put() {
	p.mu.Lock()
	p.freed++
	if p.inUse > 0 {
		p.inUse--
	}
	p.mu.Unlock()
}

// Stats exposes resource/accounting metrics.
func (p *BufferPool) Stats() api.BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.BufferPoolStats{
		TotalAlloc: p.allocated,
		TotalFree:  p.freed,
		InUse:      p.inUse,
		Failed:     p.failed,
	}
}

// Stack records every frame delivered upward.
type Stack struct {
	mu     sync.Mutex
	frames [][]byte
	notify chan struct{}
}

// NewStack creates an empty recording stack.
func NewStack() *Stack {
	return &Stack{notify: make(chan struct{}, 1)}
}

// Receive copies the frame and releases its buffer.
func (s *Stack) Receive(frame api.Buffer) {
	data := frame.Copy()
	frame.Release()
	s.mu.Lock()
	s.frames = append(s.frames, data)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Frames returns the frames received so far.
func (s *Stack) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

// Len returns the number of frames received so far.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// WaitFor blocks until at least n frames arrived or d elapses.
func (s *Stack) WaitFor(n int, d time.Duration) bool {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	for {
		if s.Len() >= n {
			return true
		}
		select {
		case <-s.notify:
		case <-deadline.C:
			return s.Len() >= n
		}
	}
}
