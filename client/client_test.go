package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/fake"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/transport"
)

func newClient(t *testing.T, opts ...fake.PeerOption) (*Client, *fake.Peer) {
	t.Helper()
	peer := fake.NewPeer(opts...)
	peer.Start()
	t.Cleanup(peer.Stop)
	cfg := transport.DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	return New(transport.NewLink(peer.Device(), cfg), nil), peer
}

// settle waits until the peer has served id n times; one-way commands return
// as soon as the peer acknowledges them.
func settle(t *testing.T, p *fake.Peer, id protocol.CommandID, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for p.Served(id) < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// the handler runs right after the acknowledgement
	time.Sleep(5 * time.Millisecond)
}

func TestSystemSetters(t *testing.T) {
	c, peer := newClient(t)
	ctx := context.Background()

	if err := c.DebugMessage(ctx, 1, "boot ok"); err != nil {
		t.Fatalf("DebugMessage failed: %v", err)
	}
	if err := c.SetCPUTurbo(ctx, 3); err != nil {
		t.Fatalf("SetCPUTurbo failed: %v", err)
	}
	if err := c.SelectKickstart(ctx, 2); err != nil {
		t.Fatalf("SelectKickstart failed: %v", err)
	}
	if err := c.SetIDEMode(ctx, true); err != nil {
		t.Fatalf("SetIDEMode failed: %v", err)
	}
	speed := protocol.SetIDESpeed{IORAssert: 1, IORNegate: 2, IOWAssert: 3, IOWNegate: 4, ACKAssert: 5}
	if err := c.SetIDESpeed(ctx, speed); err != nil {
		t.Fatalf("SetIDESpeed failed: %v", err)
	}
	if err := c.SetWiFiCredentials(ctx, "warpnet", "secret"); err != nil {
		t.Fatalf("SetWiFiCredentials failed: %v", err)
	}
	if err := c.SetTempRegulator(ctx, 65, 30); err != nil {
		t.Fatalf("SetTempRegulator failed: %v", err)
	}
	if err := c.SetTimeZoneShift(ctx, -2*time.Hour); err != nil {
		t.Fatalf("SetTimeZoneShift failed: %v", err)
	}
	settle(t, peer, protocol.CmdSetTimeZoneShift, 1)

	b := peer.Snapshot()
	if len(b.DebugLog) != 1 || b.DebugLog[0] != "boot ok" {
		t.Errorf("Unexpected debug log %q", b.DebugLog)
	}
	if b.Turbo != 3 || b.Kickstart != 2 || !b.IDENative || b.IDESpeed != speed {
		t.Errorf("Unexpected board state %+v", b)
	}
	if b.WiFiSSID != "warpnet" || b.WiFiPass != "secret" {
		t.Errorf("Unexpected credentials %q/%q", b.WiFiSSID, b.WiFiPass)
	}
	if b.Temp.CPUTemp != 65 || b.Temp.MinPWMPercent != 30 || b.TZShift != -7200 {
		t.Errorf("Unexpected regulator/tz %+v %d", b.Temp, b.TZShift)
	}
}

func TestArgumentValidation(t *testing.T) {
	c, peer := newClient(t)
	ctx := context.Background()
	long := string(bytes.Repeat([]byte("x"), protocol.WiFiSSIDLen))
	if err := c.SetWiFiCredentials(ctx, long, ""); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if err := c.SetTempRegulator(ctx, 60, 101); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if peer.Served(protocol.CmdSetWiFiSSID) != 0 {
		t.Error("Invalid arguments must not reach the board")
	}
}

func TestGetters(t *testing.T) {
	c, peer := newClient(t)
	ctx := context.Background()

	info, err := c.ARMInfo(ctx)
	if err != nil {
		t.Fatalf("ARMInfo failed: %v", err)
	}
	if info != peer.Snapshot().ARM {
		t.Errorf("Expected %+v, got %+v", peer.Snapshot().ARM, info)
	}

	if err := c.SetHIDMouseRes(ctx, 400); err != nil {
		t.Fatalf("SetHIDMouseRes failed: %v", err)
	}
	settle(t, peer, protocol.CmdSetHIDMouseRes, 1)
	res, err := c.HIDMouseRes(ctx)
	if err != nil || res != 400 {
		t.Errorf("Expected 400, got %d (%v)", res, err)
	}

	peer.PushWheel(3)
	peer.PushWheel(-1)
	delta, err := c.MouseWheel(ctx)
	if err != nil || delta != 2 {
		t.Errorf("Expected wheel delta 2, got %d (%v)", delta, err)
	}
	if delta, _ = c.MouseWheel(ctx); delta != 0 {
		t.Errorf("Expected wheel delta reset, got %d", delta)
	}
}

func TestGetterTimeout(t *testing.T) {
	c, peer := newClient(t)
	peer.AckOnly(protocol.CmdGetARMInfo, true)
	if _, err := c.ARMInfo(context.Background()); !transport.IsTimeout(err) {
		t.Errorf("Expected timeout, got %v", err)
	}
}

func TestListDir(t *testing.T) {
	entries := []protocol.DirEntry{
		{Name: "S", IsDir: true},
		{Name: "readme.txt", Size: 1234, Date: 0x5a21, Time: 0x6000},
		{Name: "kick.rom", Size: 524288, IsReadOnly: true},
	}
	c, peer := newClient(t, fake.WithDir("/sd", entries...))

	got, err := c.ListDir(context.Background(), "/sd")
	if err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, entries[i], got[i])
		}
	}
	settle(t, peer, protocol.CmdCloseDir, 1)
	if peer.Served(protocol.CmdCloseDir) != 1 {
		t.Error("Expected the directory to be closed")
	}

	if _, err := c.ListDir(context.Background(), "/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
}

func TestBlocksChunkedRoundTrip(t *testing.T) {
	c, peer := newClient(t, fake.WithDisk(protocol.DiskNrSD, 64))
	ctx := context.Background()

	data := make([]byte, 20*protocol.DiskBlockSize)
	for i := range data {
		data[i] = byte(i * 7)
	}
	n, err := c.WriteBlocks(ctx, protocol.DiskNrSD, 3, data)
	if err != nil || n != len(data) {
		t.Fatalf("WriteBlocks: n=%d err=%v", n, err)
	}
	// 20 blocks at 7 per round trip
	if got := peer.Served(protocol.CmdDiskWriteBlocks); got != 3 {
		t.Errorf("Expected 3 write round trips, got %d", got)
	}

	back := make([]byte, len(data))
	n, err = c.ReadBlocks(ctx, protocol.DiskNrSD, 3, back)
	if err != nil || n != len(back) {
		t.Fatalf("ReadBlocks: n=%d err=%v", n, err)
	}
	if !bytes.Equal(back, data) {
		t.Error("Read data differs from written data")
	}
	if got := peer.Served(protocol.CmdDiskReadBlocks); got != 3 {
		t.Errorf("Expected 3 read round trips, got %d", got)
	}

	if _, err := c.ReadBlocks(ctx, protocol.DiskNrSD, 0, make([]byte, 100)); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for partial block, got %v", err)
	}
}

func TestBlockDevice(t *testing.T) {
	c, _ := newClient(t, fake.WithDisk(protocol.DiskNrUSB, 8))
	dev := c.Disk(context.Background(), protocol.DiskNrUSB)

	block := bytes.Repeat([]byte{0xa5}, protocol.DiskBlockSize)
	if _, err := dev.WriteAt(block, 2*protocol.DiskBlockSize); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	got := make([]byte, protocol.DiskBlockSize)
	if _, err := dev.ReadAt(got, 2*protocol.DiskBlockSize); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if !bytes.Equal(got, block) {
		t.Error("ReadAt returned different data")
	}

	// Reading across the end of the disk is a short read.
	tail := make([]byte, 2*protocol.DiskBlockSize)
	n, err := dev.ReadAt(tail, 7*protocol.DiskBlockSize)
	if err != io.EOF || n != 0 {
		t.Errorf("Expected (0, EOF) past the end, got (%d, %v)", n, err)
	}
	if _, err := dev.ReadAt(got, 3); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unaligned offset, got %v", err)
	}
}

func TestBlocksRejectOvercount(t *testing.T) {
	c, peer := newClient(t, fake.WithDisk(protocol.DiskNrSD, 64))
	ctx := context.Background()
	peer.Handle(protocol.CmdDiskReadBlocks, func(_ *fake.Peer, w dpram.Window) (protocol.Reply, error) {
		var cmd protocol.DiskReadBlocks
		if err := protocol.ReadCommand(w, &cmd); err != nil {
			return nil, err
		}
		return &protocol.DiskReadBlocksReply{Count: cmd.Count + 5}, nil
	})
	peer.Handle(protocol.CmdDiskWriteBlocks, func(_ *fake.Peer, w dpram.Window) (protocol.Reply, error) {
		var cmd protocol.DiskWriteBlocks
		if err := protocol.ReadCommand(w, &cmd); err != nil {
			return nil, err
		}
		return &protocol.DiskWriteBlocksReply{Count: cmd.Count + 5}, nil
	})

	buf := make([]byte, 2*protocol.DiskBlockSize)
	n, err := c.ReadBlocks(ctx, protocol.DiskNrSD, 0, buf)
	if !errors.Is(err, api.ErrProtocolMismatch) || n != 0 {
		t.Errorf("Expected (0, ErrProtocolMismatch) on read, got (%d, %v)", n, err)
	}
	n, err = c.WriteBlocks(ctx, protocol.DiskNrSD, 0, buf)
	if !errors.Is(err, api.ErrProtocolMismatch) || n != 0 {
		t.Errorf("Expected (0, ErrProtocolMismatch) on write, got (%d, %v)", n, err)
	}
}
