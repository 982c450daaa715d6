// File: tap/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame pump between a TAP device and the card interface.

package tap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/pool"
	"github.com/momentics/warplink/protocol"
)

// Transmitter accepts outbound frames; reactor.Interface implements it.
type Transmitter interface {
	Transmit(ctx context.Context, frame api.Buffer) error
}

// BridgeStats counts frames moved by a bridge.
type BridgeStats struct {
	ToHost     uint64
	ToCard     uint64
	HostErrors uint64
	Dropped    uint64
}

// Bridge delivers received frames to the host and transmits what the host
// writes. It implements reactor.Stack.
type Bridge struct {
	dev  io.ReadWriter
	nif  Transmitter
	pool api.BufferPool
	log  *slog.Logger

	toHost     atomic.Uint64
	toCard     atomic.Uint64
	hostErrors atomic.Uint64
	dropped    atomic.Uint64
}

// NewBridge joins dev and nif. A nil pool selects a small FramePool for
// outbound frames.
func NewBridge(dev io.ReadWriter, nif Transmitter, bufs api.BufferPool, logger *slog.Logger) *Bridge {
	if bufs == nil {
		bufs = pool.NewFramePool(protocol.EthMaxFrame, 16)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{dev: dev, nif: nif, pool: bufs, log: logger.With("component", "tap")}
}

// Receive writes a frame from the card to the host and releases it.
func (b *Bridge) Receive(frame api.Buffer) {
	defer frame.Release()
	if _, err := b.dev.Write(frame.Bytes()); err != nil {
		b.hostErrors.Add(1)
		b.log.Debug("write to host failed", "error", err)
		return
	}
	b.toHost.Add(1)
}

// Run copies host frames to the card until ctx ends or the device fails. Run
// owns a device implementing io.Closer: it is closed exactly once, either
// when ctx ends to unblock reads or when Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	if c, ok := b.dev.(io.Closer); ok {
		closeDev := sync.OnceFunc(func() {
			if err := c.Close(); err != nil {
				b.log.Debug("closing host device failed", "error", err)
			}
		})
		stop := context.AfterFunc(ctx, closeDev)
		defer func() {
			stop()
			closeDev()
		}()
	}
	scratch := make([]byte, protocol.EthMaxFrame+64)
	for {
		n, err := b.dev.Read(scratch)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}
		if n > protocol.EthMaxFrame {
			b.dropped.Add(1)
			continue
		}
		frame, err := b.pool.Get(n)
		if err != nil {
			b.dropped.Add(1)
			continue
		}
		copy(frame.Bytes(), scratch[:n])
		b.forward(ctx, frame)
	}
}

func (b *Bridge) forward(ctx context.Context, frame api.Buffer) {
	err := b.nif.Transmit(ctx, frame)
	switch {
	case err == nil:
		b.toCard.Add(1)
	case errors.Is(err, api.ErrInterfaceDown), errors.Is(err, api.ErrQueueStopped):
		// refused frames stay ours
		frame.Release()
		b.dropped.Add(1)
	default:
		b.dropped.Add(1)
		b.log.Debug("transmit failed", "error", err)
	}
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		ToHost:     b.toHost.Load(),
		ToCard:     b.toCard.Load(),
		HostErrors: b.hostErrors.Load(),
		Dropped:    b.dropped.Load(),
	}
}
