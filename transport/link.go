// File: transport/link.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Link serialises round trips over one frame window.

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/protocol"
)

const (
	// DefaultTimeout bounds each wait on a peer flag.
	DefaultTimeout = 250 * time.Millisecond

	// DefaultSpinBatch is the number of register polls between deadline checks.
	DefaultSpinBatch = 256
)

// Config holds the link's wait policy.
type Config struct {
	Timeout   time.Duration
	SpinBatch int
	Breaker   BreakerConfig
	Logger    *slog.Logger
}

// DefaultConfig returns default link settings.
func DefaultConfig() Config {
	return Config{
		Timeout:   DefaultTimeout,
		SpinBatch: DefaultSpinBatch,
		Breaker:   DefaultBreakerConfig(),
	}
}

// Stats counts link-level outcomes.
type Stats struct {
	RoundTrips uint64
	Timeouts   uint64
	Mismatches uint64
	Breaks     uint64
	Faulted    uint64
	Breaker    CircuitState
}

// Link is the transport core. One Link per frame window; all users of the
// window, whatever the command family, share it.
type Link struct {
	mu  sync.Mutex
	dev *dpram.Device
	cfg Config
	log *slog.Logger

	breaker *CircuitBreaker

	// stale is set after an abandoned round trip whose late
	// acknowledgement may still land in the register. Guarded by mu.
	stale bool

	roundTrips atomic.Uint64
	timeouts   atomic.Uint64
	mismatches atomic.Uint64
	breaks     atomic.Uint64
	faulted    atomic.Uint64
}

// NewLink binds a link to dev.
func NewLink(dev *dpram.Device, cfg Config) *Link {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SpinBatch <= 0 {
		cfg.SpinBatch = DefaultSpinBatch
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		dev:     dev,
		cfg:     cfg,
		log:     logger.With("component", "link"),
		breaker: NewCircuitBreaker(cfg.Breaker),
	}
}

// Device returns the underlying register/window pair.
func (l *Link) Device() *dpram.Device { return l.dev }

// Do runs fn with exclusive ownership of the frame window. The lock spans the
// command write, the send, the waits and the reply read inside fn.
func (l *Link) Do(ctx context.Context, fn func(tx *Txn) error) error {
	if err := l.breaker.Allow(); err != nil {
		l.faulted.Add(1)
		return err
	}
	tx := &Txn{link: l, ctx: ctx}
	defer l.settle(tx)
	return l.exchange(tx, fn)
}

// settle reports the outcome of tx to the breaker. It also runs when fn
// panics so a half-open probe is never left pending.
func (l *Link) settle(tx *Txn) {
	switch {
	case tx.timedOut:
		l.breaker.Record(true)
	case tx.sent && !tx.broken:
		l.breaker.Record(false)
	default:
		l.breaker.Skip()
	}
}

// exchange runs fn under the window lock. The lock is released and tx retired
// even if fn panics.
func (l *Link) exchange(tx *Txn, fn func(tx *Txn) error) error {
	l.mu.Lock()
	defer func() {
		tx.done = true
		l.mu.Unlock()
	}()
	return fn(tx)
}

// Call sends cmd and decodes the peer's answer into rpl.
func (l *Link) Call(ctx context.Context, cmd protocol.Command, rpl protocol.Reply) error {
	return l.Do(ctx, func(tx *Txn) error {
		if err := tx.Write(cmd); err != nil {
			return err
		}
		if st := tx.Send(true); st != api.StatusOK {
			return fmt.Errorf("%s: %w", cmd.CommandID(), st.Err())
		}
		return tx.Read(rpl)
	})
}

// Post sends cmd without waiting for a reply.
func (l *Link) Post(ctx context.Context, cmd protocol.Command) error {
	return l.Do(ctx, func(tx *Txn) error {
		if err := tx.Write(cmd); err != nil {
			return err
		}
		if st := tx.Send(false); st != api.StatusOK {
			return fmt.Errorf("%s: %w", cmd.CommandID(), st.Err())
		}
		return nil
	})
}

// ClearFlags drops every protocol and interrupt flag. It waits for a round
// trip in flight to finish first.
func (l *Link) ClearFlags() {
	l.mu.Lock()
	dpram.ClearAll(l.dev.Reg)
	l.stale = false
	l.mu.Unlock()
}

// Reset clears all protocol flags and closes the breaker.
func (l *Link) Reset() {
	l.ClearFlags()
	l.breaker.Reset()
}

// BreakerState reports the fault state of the link.
func (l *Link) BreakerState() CircuitState { return l.breaker.State() }

// Stats returns a snapshot of link counters.
func (l *Link) Stats() Stats {
	return Stats{
		RoundTrips: l.roundTrips.Load(),
		Timeouts:   l.timeouts.Load(),
		Mismatches: l.mismatches.Load(),
		Breaks:     l.breaks.Load(),
		Faulted:    l.faulted.Load(),
		Breaker:    l.breaker.State(),
	}
}

// IsTimeout reports whether err is a peer timeout.
func IsTimeout(err error) bool { return errors.Is(err, api.ErrPeerTimeout) }
