// File: reactor/rx.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Receive path: interrupt entry, poll scheduling, budgeted poll and the
// fallback timer.

package reactor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/transport"
)

// HandleInterrupt is the interrupt entry point. It reports whether the
// interrupt came from this device, so a shared line can be demultiplexed.
// It never blocks and never touches the window.
func (n *Interface) HandleInterrupt() bool {
	if n.reg.Load()&dpram.IFEthRx == 0 {
		n.stats.spurious.Add(1)
		return false
	}
	dpram.Clear(n.reg, dpram.IFEthRx)
	n.stats.interrupts.Add(1)
	n.schedule()
	return true
}

// schedule queues one poll unless one is already pending. The packet-arrived
// interrupt stays masked until that poll completes under budget.
func (n *Interface) schedule() bool {
	if !n.isUp() {
		return false
	}
	if !n.pollScheduled.CompareAndSwap(false, true) {
		return false
	}
	dpram.Clear(n.reg, dpram.IEEthRx)
	if !n.post() {
		return false
	}
	n.stats.scheduled.Add(1)
	return true
}

// post hands the poll to the worker. On failure the scheduled flag is
// dropped and the interrupt re-armed so the next trigger can retry.
func (n *Interface) post() bool {
	if w := n.worker.Load(); w != nil {
		err := w.Post(n.poll)
		if err == nil {
			return true
		}
		n.logf(slog.LevelDebug, "poll not queued", "error", err)
	}
	n.pollScheduled.Store(false)
	if n.isUp() {
		dpram.Set(n.reg, dpram.IEEthRx)
	}
	return false
}

// poll consumes up to Budget frames on the worker goroutine.
func (n *Interface) poll() {
	budget := n.Budget()
	done := 0
	for done < budget && n.isUp() {
		if !n.receiveOne() {
			break
		}
		done++
	}
	n.stats.polls.Add(1)

	if done < budget || !n.isUp() {
		n.pollScheduled.Store(false)
		if n.isUp() {
			dpram.Set(n.reg, dpram.IEEthRx)
		}
		return
	}
	// Budget exhausted: more frames are likely waiting. Stay scheduled and
	// keep the interrupt masked.
	n.stats.budgetExhausted.Add(1)
	n.post()
}

type rxOutcome int

const (
	rxFrame rxOutcome = iota
	rxEmpty
	rxFiltered
	rxNoBuffer
)

// receiveOne fetches one frame and delivers it upward. It reports whether
// the poll should continue.
func (n *Interface) receiveOne() bool {
	var (
		frame   api.Buffer
		outcome rxOutcome
	)
	err := n.link.Do(context.Background(), func(tx *transport.Txn) error {
		if err := tx.Write(protocol.Bare(protocol.CmdEthReceive)); err != nil {
			return err
		}
		if st := tx.Send(true); st != api.StatusOK {
			return st.Err()
		}
		var rpl protocol.EthReceive
		if err := tx.Read(&rpl); err != nil {
			return err
		}
		if len(rpl.Packet) == 0 {
			outcome = rxEmpty
			return nil
		}
		if !n.Promiscuous() && !n.accepts(rpl.Destination()) {
			outcome = rxFiltered
			return nil
		}
		b, err := n.pool.Get(len(rpl.Packet))
		if err != nil {
			outcome = rxNoBuffer
			return nil
		}
		copy(b.Bytes(), rpl.Packet)
		frame = b
		outcome = rxFrame
		return nil
	})

	switch {
	case errors.Is(err, api.ErrLinkBreak), errors.Is(err, api.ErrLinkFaulted):
		n.logf(slog.LevelDebug, "receive skipped", "error", err)
		return false
	case errors.Is(err, api.ErrProtocolMismatch):
		n.stats.rx.errors.Add(1)
		n.logf(slog.LevelError, "wrong reply header", "error", err)
		return false
	case err != nil:
		n.stats.rx.errors.Add(1)
		n.logf(slog.LevelError, "receive failed", "error", err)
		return false
	}

	switch outcome {
	case rxEmpty:
		return false
	case rxFiltered:
		n.stats.rx.filtered.Add(1)
		return false
	case rxNoBuffer:
		n.stats.rx.dropped.Add(1)
		n.logf(slog.LevelWarn, "no receive buffer, frame dropped")
		return false
	}

	size := len(frame.Bytes())
	sp := n.stack.Load()
	if sp == nil {
		frame.Release()
		n.stats.rx.dropped.Add(1)
		return true
	}
	(*sp).Receive(frame)
	n.stats.rx.packets.Add(1)
	n.stats.rx.bytes.Add(uint64(size))
	return true
}

// accepts reports whether a frame for dst is ours or broadcast.
func (n *Interface) accepts(dst []byte) bool {
	if dst == nil {
		return false
	}
	if bytes.Equal(dst, broadcastAddr) {
		return true
	}
	mac := n.mac.Load()
	return mac != nil && bytes.Equal(dst, *mac)
}

// runTimer schedules a poll every interval and runs the transmit watchdog.
func (n *Interface) runTimer(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(n.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if n.schedule() {
				n.stats.timerPolls.Add(1)
			}
			n.watchdog()
		}
	}
}
