// File: facade/facade.go
// Unified facade layer for warplink.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Facade aggregates the card access, the transport link, the network
// interface, the command client and the control plane behind one type. It
// builds everything from an immutable control.Config, runs the background
// pumps under one errgroup and tears them down in reverse order.

package facade

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/warplink/adapters"
	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/client"
	"github.com/momentics/warplink/control"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/fake"
	"github.com/momentics/warplink/pool"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/reactor"
	"github.com/momentics/warplink/tap"
	"github.com/momentics/warplink/transport"
	"github.com/momentics/warplink/uio"
)

// Facade is the main entry point.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type Facade struct {
	cfg control.Config
	log *slog.Logger

	card *uio.Device // nil when simulated
	peer *fake.Peer  // nil unless simulated
	dev  *dpram.Device

	link   *transport.Link
	nif    *reactor.Interface
	client *client.Client

	store   *control.ConfigStore
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
	control *adapters.ControlAdapter

	tapDev *tap.Device
	bridge *tap.Bridge

	mu      sync.Mutex // protects started and the run state
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Facade)(nil)

// NewLogger builds the process logger for level.
func NewLogger(level string) *slog.Logger {
	l, err := control.ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// New builds every component from cfg. Nothing runs until Start. A nil
// logger derives one from cfg.LogLevel.
func New(cfg control.Config, logger *slog.Logger) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}
	f := &Facade{cfg: cfg, log: logger.With("component", "facade")}

	busInfo := cfg.Device.Path
	if cfg.Simulate {
		f.peer = fake.NewPeer(fake.WithLogger(logger), fake.WithDir("/", simulatedRoot...))
		f.peer.Loopback(true)
		f.dev = f.peer.Device()
		busInfo = "simulated"
	} else {
		card, err := uio.Open(uio.Config{
			Path:           cfg.Device.Path,
			MapIndex:       cfg.Device.MapIndex,
			MapSize:        cfg.Device.MapSize,
			RegisterOffset: cfg.Device.RegisterOffset,
			WindowOffset:   cfg.Device.WindowOffset,
			WindowSize:     cfg.Device.WindowSize,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("device init failure: %w", err)
		}
		f.card = card
		f.dev = card.Device()
	}

	f.link = transport.NewLink(f.dev, transport.Config{
		Timeout:   cfg.Link.Timeout,
		SpinBatch: cfg.Link.SpinBatch,
		Breaker: transport.BreakerConfig{
			FailureThreshold: cfg.Link.BreakerThreshold,
			ResetTimeout:     cfg.Link.BreakerReset,
		},
		Logger: logger,
	})

	msgLevel, _ := control.ParseLevel(cfg.Interface.MsgLevel)
	f.nif = reactor.New(f.link, reactor.StackFunc(discard), reactor.Config{
		Name:         cfg.Interface.Name,
		BusInfo:      busInfo,
		Budget:       cfg.Interface.Budget,
		PollInterval: cfg.Interface.PollInterval,
		TxTimeout:    cfg.Interface.TxTimeout,
		Promiscuous:  cfg.Interface.Promiscuous,
		MsgLevel:     msgLevel,
		PinPoll:      cfg.Interface.PollCPU >= 0,
		PollCPU:      cfg.Interface.PollCPU,
		Pool:         pool.NewFramePool(protocol.EthMaxFrame, cfg.Interface.RxBuffers),
		Logger:       logger,
	})
	f.client = client.New(f.link, logger)

	f.store = control.NewConfigStore(cfg.Interface)
	f.metrics = control.NewMetricsRegistry()
	f.probes = control.NewDebugProbes()
	f.control = adapters.NewControlAdapter(f.store, f.metrics, f.probes)
	f.store.OnReload(f.applyTunables)
	f.registerProbes()

	return f, nil
}

// simulatedRoot is the SD card root listed by the simulated board.
var simulatedRoot = []protocol.DirEntry{
	{Name: "kickstart", IsDir: true},
	{Name: "warp.cfg", Size: 412, Date: 0x5a21, Time: 0x6000},
	{Name: "kick31.rom", Size: 524288, IsReadOnly: true},
}

// discard is the upward sink when no host bridge is attached.
func discard(frame api.Buffer) { frame.Release() }

// applyTunables pushes changed runtime settings into the live interface.
func (f *Facade) applyTunables(changed map[string]any) {
	for k, v := range changed {
		switch k {
		case control.KeyPromiscuous:
			f.nif.SetPromiscuous(v.(bool))
		case control.KeyMsgLevel:
			f.nif.SetMsgLevel(v.(slog.Level))
		case control.KeyBudget:
			f.nif.SetBudget(v.(int))
		}
		f.log.Info("setting applied", "key", k, "value", v)
	}
}

func (f *Facade) registerProbes() {
	reg := f.dev.Reg
	f.probes.RegisterProbe("register", func() any { return fmt.Sprintf("%#08x", reg.Load()) })
	f.probes.RegisterProbe("netif.state", func() any { return f.nif.State().String() })
	f.probes.RegisterProbe("netif.carrier", func() any { return f.nif.Carrier() })
	f.probes.RegisterProbe("netif.mac", func() any { return f.nif.HardwareAddr().String() })
	f.probes.RegisterProbe("link.breaker", func() any { return f.link.BreakerState().String() })
	if f.card != nil {
		f.probes.RegisterProbe("uio.interrupts", func() any { return f.card.Count() })
	}
	if f.peer != nil {
		f.probes.RegisterProbe("peer.pending", func() any { return f.peer.Pending() })
	}
}

// Start brings the interface up and launches the interrupt pump, the
// metrics publisher and the TAP bridge when enabled. Subsequent calls have
// no effect.
func (f *Facade) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	if f.cfg.TAP.Enabled {
		dev, err := tap.Open(f.cfg.TAP.Name)
		if err != nil {
			return fmt.Errorf("tap init failure: %w", err)
		}
		f.tapDev = dev
		f.bridge = tap.NewBridge(dev, f.nif, nil, f.log)
		f.nif.SetStack(f.bridge)
	}

	if f.peer != nil {
		f.peer.OnInterrupt(f.nif.HandleInterrupt)
		f.peer.Start()
	}
	if err := f.nif.Up(ctx); err != nil {
		if f.tapDev != nil {
			f.tapDev.Close()
			f.tapDev = nil
		}
		return fmt.Errorf("interface up: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	f.cancel = cancel
	f.group = g

	if f.card != nil {
		g.Go(func() error { return f.interruptPump(gctx) })
	}
	g.Go(func() error { return f.publishMetrics(gctx) })
	if f.bridge != nil {
		g.Go(func() error { return f.bridge.Run(gctx) })
	}

	f.started = true
	f.log.Info("started", "ifname", f.nif.Name(), "mac", f.nif.HardwareAddr(), "simulated", f.peer != nil)
	return nil
}

// interruptPump re-arms the UIO interrupt and feeds each one to the interface.
func (f *Facade) interruptPump(ctx context.Context) error {
	for {
		if err := f.card.EnableInterrupt(); err != nil {
			return err
		}
		if _, err := f.card.WaitInterrupt(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !f.nif.HandleInterrupt() {
			f.log.Debug("interrupt not claimed")
		}
	}
}

// publishMetrics copies counters into the registry every MetricsInterval.
func (f *Facade) publishMetrics(ctx context.Context) error {
	t := time.NewTicker(f.cfg.MetricsInterval)
	defer t.Stop()
	f.PublishMetrics()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			f.PublishMetrics()
		}
	}
}

// PublishMetrics takes one snapshot of every counter.
func (f *Facade) PublishMetrics() {
	s := f.nif.Stats()
	p := f.nif.PollStats()
	l := f.link.Stats()
	b := f.nif.BufferStats()
	m := map[string]any{
		"netif.rx_packets":       s.RxPackets,
		"netif.rx_bytes":         s.RxBytes,
		"netif.rx_errors":        s.RxErrors,
		"netif.rx_dropped":       s.RxDropped,
		"netif.rx_filtered":      s.RxFiltered,
		"netif.tx_packets":       s.TxPackets,
		"netif.tx_bytes":         s.TxBytes,
		"netif.tx_errors":        s.TxErrors,
		"netif.tx_dropped":       s.TxDropped,
		"netif.interrupts":       p.Interrupts,
		"netif.spurious":         p.Spurious,
		"netif.polls":            p.Polls,
		"netif.timer_polls":      p.TimerPolls,
		"netif.budget_exhausted": p.BudgetExhausted,
		"netif.tx_timeouts":      p.TxTimeouts,
		"link.round_trips":       l.RoundTrips,
		"link.timeouts":          l.Timeouts,
		"link.mismatches":        l.Mismatches,
		"link.breaks":            l.Breaks,
		"link.faulted":           l.Faulted,
		"pool.in_use":            b.InUse,
		"pool.failed":            b.Failed,
	}
	if f.bridge != nil {
		bs := f.bridge.Stats()
		m["tap.to_host"] = bs.ToHost
		m["tap.to_card"] = bs.ToCard
		m["tap.dropped"] = bs.Dropped
	}
	f.metrics.Publish(m)
}

// Wait blocks until the background pumps exit and returns the first error.
func (f *Facade) Wait() error {
	f.mu.Lock()
	g := f.group
	f.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Stop takes the interface down, stops the pumps and marks the facade as
// not started. Calling Stop on a non-started facade is a no-op.
func (f *Facade) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return nil
	}
	err := f.nif.Down()
	f.cancel()
	if werr := f.group.Wait(); werr != nil && err == nil {
		err = werr
	}
	// bridge.Run closed the TAP device on its way out
	f.tapDev = nil
	f.PublishMetrics()
	f.started = false
	f.log.Info("stopped")
	return err
}

// Shutdown implements api.GracefulShutdown: Stop, then release the card or
// halt the simulated board. The facade cannot be started again.
func (f *Facade) Shutdown() error {
	err := f.Stop()
	if f.peer != nil {
		f.peer.Stop()
	}
	if f.card != nil {
		if cerr := f.card.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Config returns the configuration the facade was built from.
func (f *Facade) Config() control.Config { return f.cfg }

// Link returns the transport link shared by every command family.
func (f *Facade) Link() *transport.Link { return f.link }

// Interface returns the network interface.
func (f *Facade) Interface() *reactor.Interface { return f.nif }

// Client returns the command client.
func (f *Facade) Client() *client.Client { return f.client }

// Control returns the control plane for tuning, metrics and probes.
func (f *Facade) Control() api.Control { return f.control }

// Peer returns the simulated board, or nil on real hardware.
func (f *Facade) Peer() *fake.Peer { return f.peer }
