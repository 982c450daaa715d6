// File: transport/txn.go
// Author: momentics <momentics@gmail.com>
//
// One locked exchange over the frame window.

package transport

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/protocol"
)

// Txn is handed to the Link.Do callback. It is only valid inside it.
type Txn struct {
	link     *Link
	ctx      context.Context
	sent     bool
	timedOut bool
	broken   bool
	done     bool
}

// Window exposes the raw frame window.
func (t *Txn) Window() dpram.Window { return t.link.dev.Win }

// Write encodes cmd into the window.
func (t *Txn) Write(cmd protocol.Command) error {
	if t.done {
		return api.ErrNotInitialized
	}
	return protocol.WriteCommand(t.link.dev.Win, cmd)
}

// Read decodes the reply held in the window into rpl.
func (t *Txn) Read(rpl protocol.Reply) error {
	if t.done {
		return api.ErrNotInitialized
	}
	err := protocol.ReadReply(t.link.dev.Win, rpl)
	if errors.Is(err, api.ErrProtocolMismatch) {
		t.link.mismatches.Add(1)
		t.link.log.Warn("wrong reply header", "want", rpl.ReplyID(), "error", err)
	}
	return err
}

// Send notifies the peer that a command is in the window, waits for it to be
// taken and, if waitForReply is set, waits for the reply to land.
func (t *Txn) Send(waitForReply bool) api.Status {
	if t.done {
		return api.StatusNotInitialized
	}
	l := t.link
	reg := l.dev.Reg
	if l.stale {
		dpram.Clear(reg, dpram.MRPeer|dpram.MPHost)
		l.stale = false
	}
	t.sent = true
	l.roundTrips.Add(1)

	dpram.Set(reg, dpram.MPPeer|dpram.IEPeer)
	if st := t.await(dpram.MRPeer); st != api.StatusOK {
		// Withdraw the request so a late peer does not pick it up.
		dpram.Clear(reg, dpram.MPPeer|dpram.IEPeer)
		l.stale = true
		t.fail(st, "ack")
		return st
	}
	dpram.Clear(reg, dpram.MRPeer|dpram.IEPeer)

	if waitForReply {
		if st := t.await(dpram.MPHost); st != api.StatusOK {
			l.stale = true
			t.fail(st, "reply")
			return st
		}
		dpram.Clear(reg, dpram.MPHost)
	}
	return api.StatusOK
}

func (t *Txn) fail(st api.Status, stage string) {
	l := t.link
	cmd := protocol.PeekCommandID(l.dev.Win)
	switch st {
	case api.StatusTimeout:
		t.timedOut = true
		l.timeouts.Add(1)
		l.log.Warn("peer unresponsive", "stage", stage, "cmd", cmd, "timeout", l.cfg.Timeout)
	case api.StatusBreak:
		t.broken = true
		l.breaks.Add(1)
		l.log.Debug("round trip cancelled", "stage", stage, "cmd", cmd)
	}
}

// await spins until any of bits is set, the deadline passes or the context
// is cancelled.
func (t *Txn) await(bits uint32) api.Status {
	reg := t.link.dev.Reg
	spin := t.link.cfg.SpinBatch
	deadline := time.Now().Add(t.link.cfg.Timeout)
	for {
		for i := 0; i < spin; i++ {
			if reg.Load()&bits != 0 {
				return api.StatusOK
			}
		}
		if t.ctx != nil && t.ctx.Err() != nil {
			return api.StatusBreak
		}
		if time.Now().After(deadline) {
			// One last look: the peer may have answered while we were descheduled.
			if reg.Load()&bits != 0 {
				return api.StatusOK
			}
			return api.StatusTimeout
		}
		runtime.Gosched()
	}
}
