// File: reactor/lifecycle.go
// Author: momentics <momentics@gmail.com>
//
// Bring-up, shutdown and hardware address handling.

package reactor

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/internal/concurrency"
	"github.com/momentics/warplink/protocol"
)

var broadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Up brings the interface up. Failing to read the hardware address is not
// fatal: a random locally administered address is used instead.
func (n *Interface) Up(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.isUp() {
		return nil
	}
	n.logf(slog.LevelInfo, "enabling")
	n.link.ClearFlags()

	if n.mac.Load() == nil {
		n.setMAC(n.readMAC(ctx))
	}

	n.pollScheduled.Store(false)
	n.worker.Store(n.newWorker())
	n.state.Store(int32(api.InterfaceUp))
	n.queueStopped.Store(false)
	n.carrier.Store(true)

	dpram.Set(n.reg, dpram.IEEthRx)

	n.timerStop = make(chan struct{})
	n.timerDone = make(chan struct{})
	go n.runTimer(n.timerStop, n.timerDone)
	return nil
}

// Down shuts the interface down. It returns once no poll is running and
// no timer tick can schedule another one.
func (n *Interface) Down() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.isUp() {
		return nil
	}
	n.state.Store(int32(api.InterfaceDown))

	close(n.timerStop)
	<-n.timerDone

	// ClearFlags waits for a round trip in flight; the poll sees the state
	// change before starting another one.
	n.link.ClearFlags()
	n.logf(slog.LevelInfo, "shutting down")

	if w := n.worker.Swap(nil); w != nil {
		w.Stop()
	}
	// A poll finishing during shutdown may have re-armed the interrupt.
	dpram.Clear(n.reg, dpram.IEEthRx|dpram.IFEthRx)
	n.pollScheduled.Store(false)

	n.carrier.Store(false)
	n.queueStopped.Store(true)
	return nil
}

// readMAC asks the board for its address. Any failure yields a random one.
func (n *Interface) readMAC(ctx context.Context) net.HardwareAddr {
	var rpl protocol.EthMACAddr
	err := n.link.Call(ctx, protocol.Bare(protocol.CmdEthGetMACAddr), &rpl)
	if err == nil {
		mac := net.HardwareAddr(rpl.MAC[:])
		if validAddr(mac) {
			n.logf(slog.LevelInfo, "MAC address read from board", "mac", mac)
			return append(net.HardwareAddr(nil), mac...)
		}
		err = fmt.Errorf("%w: board reported %s", api.ErrInvalidArgument, mac)
	}
	mac := randomAddr()
	n.logf(slog.LevelError, "reading MAC from board failed, using random address", "mac", mac, "error", err)
	return mac
}

func (n *Interface) setMAC(mac net.HardwareAddr) { n.mac.Store(&mac) }

// HardwareAddr returns the interface address, or nil before the first Up.
func (n *Interface) HardwareAddr() net.HardwareAddr {
	p := n.mac.Load()
	if p == nil {
		return nil
	}
	return append(net.HardwareAddr(nil), (*p)...)
}

// SetHardwareAddr is not supported by the board.
func (n *Interface) SetHardwareAddr(net.HardwareAddr) error {
	n.logf(slog.LevelWarn, "MAC setting is not supported")
	return api.ErrAddrNotAvailable
}

// ValidateAddr checks that the current address is a usable unicast address.
func (n *Interface) ValidateAddr() error {
	mac := n.HardwareAddr()
	if !validAddr(mac) {
		return fmt.Errorf("%w: %s", api.ErrAddrNotAvailable, mac)
	}
	return nil
}

// validAddr reports whether mac is a non-zero unicast ethernet address.
func validAddr(mac net.HardwareAddr) bool {
	if len(mac) != protocol.EthMACSize {
		return false
	}
	if mac[0]&0x01 != 0 {
		return false
	}
	return !bytes.Equal(mac, make([]byte, protocol.EthMACSize))
}

// randomAddr returns a random locally administered unicast address.
func randomAddr() net.HardwareAddr {
	mac := make(net.HardwareAddr, protocol.EthMACSize)
	if _, err := rand.Read(mac); err != nil {
		// Fall back to the clock.
		ns := time.Now().UnixNano()
		for i := range mac {
			mac[i] = byte(ns >> (8 * i))
		}
	}
	mac[0] &^= 0x01
	mac[0] |= 0x02
	return mac
}

func (n *Interface) newWorker() *concurrency.Worker {
	if n.cfg.PinPoll {
		w, err := concurrency.NewPinnedWorker(4, n.cfg.PollCPU)
		if err == nil {
			return w
		}
		n.logf(slog.LevelWarn, "poll worker not pinned", "cpu", n.cfg.PollCPU, "err", err)
	}
	return concurrency.NewWorker(4)
}
