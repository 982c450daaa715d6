// File: reactor/interface.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Network interface state, configuration and ethtool-style accessors.

package reactor

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/internal/concurrency"
	"github.com/momentics/warplink/pool"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/transport"
)

const (
	DriverName    = "warpnet"
	DriverVersion = "2024-06-12"

	// DefaultBudget is the number of frames one poll may consume.
	DefaultBudget = 8

	// DefaultPollInterval is the fallback timer period.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultTxTimeout is how long a transmit may stay in flight before the
	// watchdog fires.
	DefaultTxTimeout = 2 * time.Second
)

// Stack receives frames from the interface. Receive owns frame and must
// release it.
type Stack interface {
	Receive(frame api.Buffer)
}

// StackFunc adapts a function to Stack.
type StackFunc func(frame api.Buffer)

func (f StackFunc) Receive(frame api.Buffer) { f(frame) }

// Config holds interface settings.
type Config struct {
	Name         string
	BusInfo      string
	Budget       int
	PollInterval time.Duration
	TxTimeout    time.Duration
	Promiscuous  bool
	MsgLevel     slog.Level

	// PinPoll runs the poll worker on an OS thread bound to PollCPU.
	PinPoll bool
	PollCPU int

	// Pool supplies receive buffers. Nil selects a bounded FramePool.
	Pool   api.BufferPool
	Logger *slog.Logger
}

// DefaultConfig returns default interface settings.
func DefaultConfig() Config {
	return Config{
		Name:         "warp0",
		Budget:       DefaultBudget,
		PollInterval: DefaultPollInterval,
		TxTimeout:    DefaultTxTimeout,
		MsgLevel:     slog.LevelInfo,
	}
}

// Interface is the network device built on a transport link.
type Interface struct {
	link  *transport.Link
	reg   dpram.Register
	stack atomic.Pointer[Stack]
	pool  api.BufferPool
	cfg   Config
	log   *slog.Logger
	level slog.LevelVar

	// mu serialises Up and Down.
	mu    sync.Mutex
	state atomic.Int32

	promisc atomic.Bool
	budget  atomic.Int32
	mac     atomic.Pointer[net.HardwareAddr]

	// pollScheduled is shared by the interrupt and timer paths; whoever
	// flips it false→true owns scheduling the next poll.
	pollScheduled atomic.Bool
	worker        atomic.Pointer[concurrency.Worker]
	timerStop     chan struct{}
	timerDone     chan struct{}

	carrier      atomic.Bool
	queueStopped atomic.Bool
	transStart   atomic.Int64
	txSince      atomic.Int64

	stats stats
}

// New creates an interface in the Down state. stack may be nil until Up.
func New(link *transport.Link, stack Stack, cfg Config) *Interface {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = def.TxTimeout
	}
	if cfg.Pool == nil {
		cfg.Pool = pool.NewFramePool(protocol.EthMaxFrame, pool.DefaultFrameLimit)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := &Interface{
		link: link,
		reg:  link.Device().Reg,
		pool: cfg.Pool,
		cfg:  cfg,
		log:  logger.With("component", "netif", "ifname", cfg.Name),
	}
	if stack != nil {
		n.stack.Store(&stack)
	}
	n.level.Set(cfg.MsgLevel)
	n.promisc.Store(cfg.Promiscuous)
	n.budget.Store(int32(cfg.Budget))
	n.queueStopped.Store(true)
	return n
}

// Name returns the interface name.
func (n *Interface) Name() string { return n.cfg.Name }

// State returns the lifecycle state.
func (n *Interface) State() api.InterfaceState { return api.InterfaceState(n.state.Load()) }

func (n *Interface) isUp() bool { return n.State() == api.InterfaceUp }

// SetStack installs the upward sink. Frames received while no stack is
// installed are dropped.
func (n *Interface) SetStack(s Stack) {
	if s == nil {
		n.stack.Store(nil)
		return
	}
	n.stack.Store(&s)
}

// Promiscuous reports whether frames for foreign addresses are delivered.
func (n *Interface) Promiscuous() bool { return n.promisc.Load() }

// SetPromiscuous changes the receive filter; takes effect on the next frame.
func (n *Interface) SetPromiscuous(on bool) {
	if n.promisc.Swap(on) != on {
		n.logf(slog.LevelInfo, "receive mode changed", "promiscuous", on)
	}
}

// Budget returns the per-poll frame budget.
func (n *Interface) Budget() int { return int(n.budget.Load()) }

// SetBudget changes the per-poll frame budget. Non-positive values are ignored.
func (n *Interface) SetBudget(b int) {
	if b > 0 {
		n.budget.Store(int32(b))
	}
}

// MsgLevel returns the message level below which interface logs are muted.
func (n *Interface) MsgLevel() slog.Level { return n.level.Level() }

// SetMsgLevel changes the message level.
func (n *Interface) SetMsgLevel(l slog.Level) { n.level.Set(l) }

// DriverInfo describes the driver.
func (n *Interface) DriverInfo() api.DriverInfo {
	return api.DriverInfo{Driver: DriverName, Version: DriverVersion, BusInfo: n.cfg.BusInfo}
}

// Link reports the physical link state. The board has no link detection.
func (n *Interface) Link() bool { return true }

// Carrier reports whether the interface signals carrier to the stack.
func (n *Interface) Carrier() bool { return n.carrier.Load() }

// QueueStopped reports whether Transmit currently refuses frames.
func (n *Interface) QueueStopped() bool { return n.queueStopped.Load() }

// TransStart returns the time of the last transmit start.
func (n *Interface) TransStart() time.Time {
	ns := n.transStart.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// BufferStats exposes the receive pool accounting.
func (n *Interface) BufferStats() api.BufferPoolStats { return n.pool.Stats() }

// logf logs msg when level passes the interface message level.
func (n *Interface) logf(level slog.Level, msg string, args ...any) {
	if level < n.level.Level() {
		return
	}
	n.log.Log(context.Background(), level, msg, args...)
}
