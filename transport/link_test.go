package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/fake"
	"github.com/momentics/warplink/protocol"
)

func startPeer(t *testing.T, opts ...fake.PeerOption) *fake.Peer {
	t.Helper()
	p := fake.NewPeer(opts...)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.Breaker.FailureThreshold = 0
	return cfg
}

func TestCallRoundTrip(t *testing.T) {
	peer := startPeer(t)
	link := NewLink(peer.Device(), testConfig())

	var info protocol.ARMInfo
	if err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetARMInfo), &info); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	want := peer.Snapshot().ARM
	if info != want {
		t.Errorf("Expected %+v, got %+v", want, info)
	}
	if v := peer.Register().Load() & (dpram.MPPeer | dpram.MRPeer | dpram.MPHost | dpram.IEPeer); v != 0 {
		t.Errorf("Expected handshake bits clear after round trip, got %#x", v)
	}
	if s := link.Stats(); s.RoundTrips != 1 || s.Timeouts != 0 {
		t.Errorf("Unexpected stats: %+v", s)
	}
}

func TestPostDoesNotWaitForReply(t *testing.T) {
	peer := startPeer(t)
	link := NewLink(peer.Device(), testConfig())

	if err := link.Post(context.Background(), &protocol.DbgMsg{Msg: "hello"}); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if log := peer.Snapshot().DebugLog; len(log) == 1 {
			if log[0] != "hello" {
				t.Errorf("Expected hello, got %q", log[0])
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("peer never logged the message")
}

func TestAckTimeoutRetractsRequest(t *testing.T) {
	peer := startPeer(t)
	peer.Stall(true)
	link := NewLink(peer.Device(), testConfig())

	start := time.Now()
	err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetARMInfo), &protocol.ARMInfo{})
	if !errors.Is(err, api.ErrPeerTimeout) || !IsTimeout(err) {
		t.Fatalf("Expected peer timeout, got %v", err)
	}
	if el := time.Since(start); el > time.Second {
		t.Errorf("Timeout took %v", el)
	}
	if peer.Register().Load()&(dpram.MPPeer|dpram.IEPeer) != 0 {
		t.Errorf("Request bits left set: %#x", peer.Register().Load())
	}
	if link.Stats().Timeouts != 1 {
		t.Errorf("Expected 1 timeout, got %d", link.Stats().Timeouts)
	}

	peer.ClearFaults()
	var info protocol.ARMInfo
	if err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetARMInfo), &info); err != nil {
		t.Fatalf("Call after recovery failed: %v", err)
	}
}

func TestReplyTimeoutThenStaleFlagsCleared(t *testing.T) {
	peer := startPeer(t)
	peer.AckOnly(protocol.CmdGetARMInfo, true)
	link := NewLink(peer.Device(), testConfig())

	err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetARMInfo), &protocol.ARMInfo{})
	if !errors.Is(err, api.ErrPeerTimeout) {
		t.Fatalf("Expected peer timeout, got %v", err)
	}
	if peer.Served(protocol.CmdGetARMInfo) != 1 {
		t.Errorf("Expected command to be acknowledged once, got %d", peer.Served(protocol.CmdGetARMInfo))
	}

	peer.ClearFaults()
	// A late acknowledgement left behind must not satisfy the next wait.
	dpram.Set(peer.Register(), dpram.MRPeer)
	var mac protocol.EthMACAddr
	if err := link.Call(context.Background(), protocol.Bare(protocol.CmdEthGetMACAddr), &mac); err != nil {
		t.Fatalf("Call after reply timeout failed: %v", err)
	}
	if mac.MAC != peer.Snapshot().MAC {
		t.Errorf("Expected %x, got %x", peer.Snapshot().MAC, mac.MAC)
	}
}

func TestMismatchedReply(t *testing.T) {
	peer := startPeer(t)
	peer.ReplyWith(protocol.CmdGetARMInfo, protocol.RplEthMACAddr)
	cfg := testConfig()
	cfg.Breaker = BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour}
	link := NewLink(peer.Device(), cfg)

	err := link.Call(context.Background(), protocol.Bare(protocol.CmdGetARMInfo), &protocol.ARMInfo{})
	if !errors.Is(err, api.ErrProtocolMismatch) {
		t.Fatalf("Expected protocol mismatch, got %v", err)
	}
	if api.StatusOf(err) != api.StatusComErr {
		t.Errorf("Expected COMERR, got %s", api.StatusOf(err))
	}
	if link.Stats().Mismatches != 1 {
		t.Errorf("Expected 1 mismatch, got %d", link.Stats().Mismatches)
	}
	if link.BreakerState() != CircuitClosed {
		t.Errorf("A mismatch must not open the breaker, got %s", link.BreakerState())
	}
}

func TestCancelledContextBreaks(t *testing.T) {
	peer := startPeer(t)
	peer.Stall(true)
	cfg := testConfig()
	cfg.Timeout = time.Hour
	link := NewLink(peer.Device(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := link.Call(ctx, protocol.Bare(protocol.CmdGetARMInfo), &protocol.ARMInfo{})
	if !errors.Is(err, api.ErrLinkBreak) {
		t.Fatalf("Expected break, got %v", err)
	}
	if link.Stats().Breaks != 1 {
		t.Errorf("Expected 1 break, got %d", link.Stats().Breaks)
	}
}

func TestBreakerFastFailsDeadPeer(t *testing.T) {
	peer := startPeer(t)
	peer.Stall(true)
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.Breaker = BreakerConfig{FailureThreshold: 2, ResetTimeout: 50 * time.Millisecond}
	link := NewLink(peer.Device(), cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := link.Post(ctx, protocol.Bare(protocol.CmdNop)); !IsTimeout(err) {
			t.Fatalf("attempt %d: expected timeout, got %v", i, err)
		}
	}
	if link.BreakerState() != CircuitOpen {
		t.Fatalf("Expected open breaker, got %s", link.BreakerState())
	}
	rt := link.Stats().RoundTrips
	if err := link.Post(ctx, protocol.Bare(protocol.CmdNop)); !errors.Is(err, api.ErrLinkFaulted) {
		t.Fatalf("Expected faulted link, got %v", err)
	}
	if link.Stats().RoundTrips != rt {
		t.Error("Faulted link must not touch the register")
	}

	peer.ClearFaults()
	time.Sleep(60 * time.Millisecond)
	if link.BreakerState() != CircuitHalfOpen {
		t.Fatalf("Expected half-open breaker, got %s", link.BreakerState())
	}
	if err := link.Post(ctx, protocol.Bare(protocol.CmdNop)); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if link.BreakerState() != CircuitClosed {
		t.Errorf("Expected closed breaker after probe, got %s", link.BreakerState())
	}
}

func TestConcurrentCallersAreSerialised(t *testing.T) {
	peer := startPeer(t)
	// Echo the caller's sequence number so every caller can check it read
	// its own reply and not another caller's.
	peer.Handle(protocol.CmdDbgMsg, func(_ *fake.Peer, w dpram.Window) (protocol.Reply, error) {
		var c protocol.DbgMsg
		if err := protocol.ReadCommand(w, &c); err != nil {
			return nil, err
		}
		n, err := strconv.ParseUint(c.Msg, 10, 32)
		if err != nil {
			return nil, err
		}
		return &protocol.ARMInfo{CPURevID: uint32(n), HALVersion: uint32(c.Type)}, nil
	})
	cfg := testConfig()
	cfg.Timeout = time.Second
	link := NewLink(peer.Device(), cfg)

	const callers, rounds = 8, 50
	var wg sync.WaitGroup
	errs := make(chan error, callers*rounds)
	for g := 0; g < callers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				seq := uint32(g*rounds + i)
				var info protocol.ARMInfo
				err := link.Do(context.Background(), func(tx *Txn) error {
					if err := tx.Write(&protocol.DbgMsg{Type: uint8(g), Msg: fmt.Sprint(seq)}); err != nil {
						return err
					}
					if st := tx.Send(true); st != api.StatusOK {
						return st.Err()
					}
					return tx.Read(&info)
				})
				if err != nil {
					errs <- err
					continue
				}
				if info.CPURevID != seq || info.HALVersion != uint32(g) {
					errs <- fmt.Errorf("caller %d got reply %+v for seq %d", g, info, seq)
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	var msgs []string
	for err := range errs {
		msgs = append(msgs, err.Error())
	}
	if len(msgs) > 0 {
		t.Fatalf("%d bad round trips: %s", len(msgs), strings.Join(msgs[:min(len(msgs), 5)], "; "))
	}
	if got := link.Stats().RoundTrips; got != callers*rounds {
		t.Errorf("Expected %d round trips, got %d", callers*rounds, got)
	}
}

func TestTxnUnusableAfterDo(t *testing.T) {
	peer := startPeer(t)
	link := NewLink(peer.Device(), testConfig())
	var leaked *Txn
	_ = link.Do(context.Background(), func(tx *Txn) error {
		leaked = tx
		return nil
	})
	if st := leaked.Send(false); st != api.StatusNotInitialized {
		t.Errorf("Expected not-initialized, got %s", st)
	}
	if err := leaked.Write(protocol.Bare(protocol.CmdNop)); !errors.Is(err, api.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestResetClearsFlags(t *testing.T) {
	dev, reg := dpram.NewMemDevice(protocol.WindowSize)
	link := NewLink(dev, testConfig())
	dpram.Set(reg, dpram.MPHost|dpram.IFEthRx|dpram.IEEthRx)
	link.Reset()
	if reg.Load() != 0 {
		t.Errorf("Expected clean register, got %#x", reg.Load())
	}
}

func TestPanickingExchangeReleasesWindow(t *testing.T) {
	peer := startPeer(t)
	link := NewLink(peer.Device(), testConfig())

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected the panic to reach the caller")
			}
		}()
		link.Do(context.Background(), func(*Txn) error { panic("boom") })
	}()

	done := make(chan error, 1)
	go func() {
		var info protocol.ARMInfo
		done <- link.Call(context.Background(), protocol.Bare(protocol.CmdGetARMInfo), &info)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Call after panic failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("window lock still held after a panicking exchange")
	}
}
