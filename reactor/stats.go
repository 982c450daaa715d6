// File: reactor/stats.go
// Author: momentics <momentics@gmail.com>
//
// Interface counters. The receive half is written by the poll worker, the
// transmit half by senders; padding keeps them on separate cache lines.

package reactor

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/warplink/api"
)

type rxCounters struct {
	packets  atomic.Uint64
	bytes    atomic.Uint64
	errors   atomic.Uint64
	dropped  atomic.Uint64
	filtered atomic.Uint64
}

type txCounters struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
	errors  atomic.Uint64
	dropped atomic.Uint64
}

type stats struct {
	rx rxCounters
	_  cpu.CacheLinePad
	tx txCounters
	_  cpu.CacheLinePad

	interrupts      atomic.Uint64
	spurious        atomic.Uint64
	scheduled       atomic.Uint64
	timerPolls      atomic.Uint64
	polls           atomic.Uint64
	budgetExhausted atomic.Uint64
	txTimeouts      atomic.Uint64
}

// PollStats describes receive scheduling activity.
type PollStats struct {
	Interrupts      uint64 // interrupts claimed
	Spurious        uint64 // interrupts for another device on the line
	Scheduled       uint64 // polls queued, from either source
	TimerPolls      uint64 // of Scheduled, queued by the fallback timer
	Polls           uint64 // polls run
	BudgetExhausted uint64
	TxTimeouts      uint64
}

// Stats returns a snapshot of the interface counters.
func (n *Interface) Stats() api.InterfaceStats {
	s := &n.stats
	return api.InterfaceStats{
		RxPackets:  s.rx.packets.Load(),
		RxBytes:    s.rx.bytes.Load(),
		RxErrors:   s.rx.errors.Load(),
		RxDropped:  s.rx.dropped.Load(),
		RxFiltered: s.rx.filtered.Load(),
		TxPackets:  s.tx.packets.Load(),
		TxBytes:    s.tx.bytes.Load(),
		TxErrors:   s.tx.errors.Load(),
		TxDropped:  s.tx.dropped.Load(),
	}
}

// PollStats returns a snapshot of the scheduling counters.
func (n *Interface) PollStats() PollStats {
	s := &n.stats
	return PollStats{
		Interrupts:      s.interrupts.Load(),
		Spurious:        s.spurious.Load(),
		Scheduled:       s.scheduled.Load(),
		TimerPolls:      s.timerPolls.Load(),
		Polls:           s.polls.Load(),
		BudgetExhausted: s.budgetExhausted.Load(),
		TxTimeouts:      s.txTimeouts.Load(),
	}
}
