package tap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/fake"
)

// hostDev plays the TAP file: frames sent on in are read by the bridge and
// writes are recorded.
type hostDev struct {
	in      chan []byte
	closed  chan struct{}
	once    sync.Once
	mu      sync.Mutex
	written [][]byte
	failW   bool
	failR   chan error
	closes  atomic.Int32
}

func newHostDev() *hostDev {
	return &hostDev{in: make(chan []byte, 8), closed: make(chan struct{}), failR: make(chan error, 1)}
}

func (h *hostDev) Read(p []byte) (int, error) {
	select {
	case f := <-h.in:
		return copy(p, f), nil
	case err := <-h.failR:
		return 0, err
	case <-h.closed:
		return 0, io.EOF
	}
}

func (h *hostDev) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failW {
		return 0, errors.New("host gone")
	}
	h.written = append(h.written, append([]byte(nil), p...))
	return len(p), nil
}

func (h *hostDev) Close() error {
	if h.closes.Add(1) > 1 {
		return errors.New("already closed")
	}
	h.once.Do(func() { close(h.closed) })
	return nil
}

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	refuse error
}

func (r *recorder) Transmit(_ context.Context, frame api.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse != nil {
		return r.refuse
	}
	r.frames = append(r.frames, frame.Copy())
	frame.Release()
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestReceiveWritesToHost(t *testing.T) {
	host := newHostDev()
	b := NewBridge(host, &recorder{}, nil, nil)
	buf := fake.NewBuffer([]byte{1, 2, 3})
	b.Receive(buf)
	if !buf.Released() {
		t.Error("Expected frame released after delivery")
	}
	if len(host.written) != 1 || !bytes.Equal(host.written[0], []byte{1, 2, 3}) {
		t.Errorf("Unexpected host writes %v", host.written)
	}

	host.failW = true
	b.Receive(fake.NewBuffer([]byte{4}))
	if s := b.Stats(); s.ToHost != 1 || s.HostErrors != 1 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestRunForwardsHostFrames(t *testing.T) {
	host := newHostDev()
	nif := &recorder{}
	b := NewBridge(host, nif, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	host.in <- []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1, 2, 3, 4, 5, 6, 8, 0}
	host.in <- []byte{9}
	deadline := time.Now().Add(time.Second)
	for nif.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if nif.count() != 2 {
		t.Fatalf("Expected 2 frames transmitted, got %d", nif.count())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean stop, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	if s := b.Stats(); s.ToCard != 2 {
		t.Errorf("Expected 2 frames to card, got %+v", s)
	}
	if n := host.closes.Load(); n != 1 {
		t.Errorf("Expected device closed once after cancel, got %d", n)
	}
}

func TestRunClosesDeviceOnceOnReadError(t *testing.T) {
	host := newHostDev()
	b := NewBridge(host, &recorder{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	host.failR <- io.ErrUnexpectedEOF
	if err := b.Run(ctx); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected read error, got %v", err)
	}
	cancel()
	time.Sleep(10 * time.Millisecond)
	if n := host.closes.Load(); n != 1 {
		t.Errorf("Expected device closed once, got %d", n)
	}
}

func TestRunDropsRefusedFrames(t *testing.T) {
	host := newHostDev()
	pool := fake.NewBufferPool()
	b := NewBridge(host, &recorder{refuse: api.ErrInterfaceDown}, pool, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	host.in <- []byte{1, 2, 3}
	deadline := time.Now().Add(time.Second)
	for b.Stats().Dropped == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if b.Stats().Dropped != 1 {
		t.Fatalf("Expected 1 dropped frame, got %+v", b.Stats())
	}
	if st := pool.Stats(); st.InUse != 0 {
		t.Errorf("Refused frame not released, %d in use", st.InUse)
	}
}

func TestRunReturnsDeviceError(t *testing.T) {
	host := newHostDev()
	b := NewBridge(host, &recorder{}, nil, nil)
	host.Close()
	if err := b.Run(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF, got %v", err)
	}
}
