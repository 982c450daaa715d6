package facade_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/control"
	"github.com/momentics/warplink/facade"
	"github.com/momentics/warplink/fake"
)

func simulated(t *testing.T) *facade.Facade {
	t.Helper()
	cfg := control.DefaultConfig()
	cfg.Simulate = true
	cfg.Interface.PollInterval = 10 * time.Millisecond
	cfg.MetricsInterval = 10 * time.Millisecond
	f, err := facade.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Shutdown() })
	return f
}

// Test the full lifecycle over the simulated board: bring-up, command
// traffic, looped-back frames, tuning, metrics and restart.
func TestFacadeFullLifecycle(t *testing.T) {
	f := simulated(t)
	ctx := context.Background()
	if err := f.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.Start(ctx); err != nil {
		t.Fatal("second Start must be a no-op:", err)
	}
	nif := f.Interface()
	if nif.State() != api.InterfaceUp {
		t.Fatalf("Expected interface up, got %s", nif.State())
	}
	if want := f.Peer().Snapshot().MAC; !bytes.Equal(nif.HardwareAddr(), want[:]) {
		t.Errorf("Expected board MAC %x, got %s", want, nif.HardwareAddr())
	}

	info, err := f.Client().ARMInfo(ctx)
	if err != nil {
		t.Fatalf("ARMInfo failed: %v", err)
	}
	if info.CPURevID == 0 {
		t.Error("Expected ARM revision from board")
	}

	stack := fake.NewStack()
	nif.SetStack(stack)
	frame := append([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02, 0, 0, 0, 0, 1, 0x08, 0x00}, make([]byte, 46)...)
	if err := nif.Transmit(ctx, fake.NewBuffer(frame)); err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}
	if !stack.WaitFor(1, time.Second) {
		t.Fatal("looped back frame not received")
	}
	if !bytes.Equal(stack.Frames()[0], frame) {
		t.Error("Received frame differs from the transmitted one")
	}

	ctrl := f.Control()
	if err := ctrl.SetConfig(map[string]any{control.KeyPromiscuous: true, control.KeyBudget: 2}); err != nil {
		t.Fatal(err)
	}
	if !nif.Promiscuous() || nif.Budget() != 2 {
		t.Error("Runtime settings not applied to the interface")
	}

	f.PublishMetrics()
	stats := ctrl.Stats()
	if stats["netif.rx_packets"] != uint64(1) || stats["netif.tx_packets"] != uint64(1) {
		t.Errorf("Unexpected packet counters rx=%v tx=%v", stats["netif.rx_packets"], stats["netif.tx_packets"])
	}
	if stats["debug.netif.state"] != "up" {
		t.Errorf("Expected state probe 'up', got %v", stats["debug.netif.state"])
	}
	if _, ok := stats["debug.register"]; !ok {
		t.Error("Register probe missing")
	}

	if err := f.Stop(); err != nil {
		t.Fatal(err)
	}
	if nif.State() != api.InterfaceDown {
		t.Error("Expected interface down after Stop")
	}
	if err := f.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if nif.State() != api.InterfaceUp {
		t.Error("Expected interface up after restart")
	}
	if err := f.Shutdown(); err != nil {
		t.Error(err)
	}
	if err := f.Wait(); err != nil {
		t.Errorf("Expected clean pump exit, got %v", err)
	}
}

func TestFacadeRejectsInvalidConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Simulate = true
	cfg.Interface.Budget = 0
	if _, err := facade.New(cfg, nil); err == nil {
		t.Error("Expected invalid config to be rejected")
	}
}

func TestFacadeStopBeforeStart(t *testing.T) {
	f := simulated(t)
	if err := f.Stop(); err != nil {
		t.Errorf("Stop on a non-started facade must be a no-op, got %v", err)
	}
}
