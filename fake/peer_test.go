package fake_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/momentics/warplink/fake"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/transport"
)

func newLink(t *testing.T, p *fake.Peer) *transport.Link {
	t.Helper()
	p.Start()
	t.Cleanup(p.Stop)
	cfg := transport.DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	return transport.NewLink(p.Device(), cfg)
}

func TestLoopbackRequeuesTransmittedFrames(t *testing.T) {
	p := fake.NewPeer()
	p.Loopback(true)
	link := newLink(t, p)
	ctx := context.Background()

	frame := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 2, 0, 0, 0, 0, 1, 0x08, 0x00}
	if err := link.Post(ctx, &protocol.EthTransmit{Packet: frame}); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for p.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if p.Pending() != 1 {
		t.Fatalf("Expected 1 pending frame, got %d", p.Pending())
	}

	var rx protocol.EthReceive
	if err := link.Call(ctx, protocol.Bare(protocol.CmdEthReceive), &rx); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !bytes.Equal(rx.Packet, frame) {
		t.Errorf("Expected looped frame %x, got %x", frame, rx.Packet)
	}
	if len(p.Transmitted()) != 1 {
		t.Errorf("Expected 1 transmitted frame, got %d", len(p.Transmitted()))
	}

	// queue drained: an empty reply ends the poll
	if err := link.Call(ctx, protocol.Bare(protocol.CmdEthReceive), &rx); err != nil {
		t.Fatal(err)
	}
	if len(rx.Packet) != 0 {
		t.Errorf("Expected empty receive, got %d bytes", len(rx.Packet))
	}
}

func TestWheelDeltasAccumulate(t *testing.T) {
	p := fake.NewPeer()
	link := newLink(t, p)
	p.PushWheel(3)
	p.PushWheel(-1)

	var w protocol.MouseWheelData
	if err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetMouseWheelData), &w); err != nil {
		t.Fatal(err)
	}
	if w.Count != 2 {
		t.Errorf("Expected wheel sum 2, got %d", w.Count)
	}
	if err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetMouseWheelData), &w); err != nil {
		t.Fatal(err)
	}
	if w.Count != 0 {
		t.Errorf("Expected wheel reset after read, got %d", w.Count)
	}
}

func TestQueueFrameRejectsOversize(t *testing.T) {
	p := fake.NewPeer()
	if err := p.QueueFrame(make([]byte, protocol.EthMaxFrame+1)); err == nil {
		t.Error("Expected oversize frame to be rejected")
	}
}
