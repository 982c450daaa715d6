// File: reactor/tx.go
// Author: momentics <momentics@gmail.com>
//
// Transmit path and its watchdog.

package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/protocol"
)

// Transmit sends one frame synchronously. When the interface is down or the
// queue is stopped the frame is refused and ownership stays with the caller;
// otherwise the buffer is released whatever the outcome.
func (n *Interface) Transmit(ctx context.Context, frame api.Buffer) error {
	if !n.isUp() {
		return api.ErrInterfaceDown
	}
	if n.queueStopped.Load() {
		return api.ErrQueueStopped
	}
	defer frame.Release()

	data := frame.Bytes()
	if len(data) > protocol.EthMaxFrame {
		n.stats.tx.dropped.Add(1)
		return fmt.Errorf("%w: %d byte frame", api.ErrFrameTooLarge, len(data))
	}

	now := time.Now().UnixNano()
	n.transStart.Store(now)
	n.txSince.Store(now)
	err := n.link.Post(ctx, &protocol.EthTransmit{Packet: data})
	n.txSince.Store(0)
	if err != nil {
		n.stats.tx.errors.Add(1)
		n.logf(slog.LevelError, "transmit failed", "len", len(data), "error", err)
		return err
	}
	n.stats.tx.packets.Add(1)
	n.stats.tx.bytes.Add(uint64(len(data)))
	return nil
}

// TxTimeout is the watchdog action for a transmit stuck in flight. It never
// touches the window.
func (n *Interface) TxTimeout() {
	n.logf(slog.LevelError, "TX timeout")
	n.queueStopped.Store(true)
	n.stats.tx.errors.Add(1)
	n.stats.txTimeouts.Add(1)
	n.transStart.Store(time.Now().UnixNano())
	if n.isUp() {
		n.queueStopped.Store(false)
	}
}

// watchdog fires TxTimeout once per stuck transmit.
func (n *Interface) watchdog() {
	since := n.txSince.Load()
	if since == 0 || time.Since(time.Unix(0, since)) < n.cfg.TxTimeout {
		return
	}
	if n.txSince.CompareAndSwap(since, time.Now().UnixNano()) {
		n.TxTimeout()
	}
}
