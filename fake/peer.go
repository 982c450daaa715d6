// Package fake
// Author: momentics <momentics@gmail.com>
//
// Simulated coprocessor for testing and development.
// Provides predictable, controllable behavior on the peer side of the window.

package fake

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/protocol"
)

// Handler serves one command. cmd is a private copy of the window taken when
// the command was acknowledged. A nil reply means the command is one-way.
type Handler func(p *Peer, cmd dpram.Window) (protocol.Reply, error)

// Peer plays the coprocessor over an in-process register and window.
type Peer struct {
	mu       sync.Mutex
	reg      *dpram.MemRegister
	dev      *dpram.Device
	log      *slog.Logger
	handlers map[protocol.CommandID]Handler

	// fault injection
	stalled    bool
	ackOnly    map[protocol.CommandID]bool
	replyIDs   map[protocol.CommandID]protocol.ReplyID
	replyDelay time.Duration

	// rx side of the ethernet family
	rx       *queue.Queue
	armed    bool
	irq      func() bool
	loopback bool

	// recorded traffic
	tx     [][]byte
	served map[protocol.CommandID]int

	// board state touched by the system command family
	Board BoardState

	wake    chan struct{}
	stopCh  chan struct{}
	running int32
	stopped chan struct{}

	backoff time.Duration
}

// BoardState is what the simulated board remembers between commands.
type BoardState struct {
	MAC       [protocol.EthMACSize]byte
	ARM       protocol.ARMInfo
	Turbo     uint32
	Kickstart uint8
	IDENative bool
	IDESpeed  protocol.SetIDESpeed
	MouseRes  uint16
	WiFiSSID  string
	WiFiPass  string
	Temp      protocol.SetTempRegulator
	TZShift   int32
	DebugLog  []string
	Wheel     []int8
	Dirs      map[string][]protocol.DirEntry
	Disks     map[uint8][]byte
	openDir   []protocol.DirEntry
	dirIsOpen bool
}

// PeerOption customises a Peer.
type PeerOption func(*Peer)

// WithMAC sets the address returned for CmdEthGetMACAddr.
func WithMAC(mac [protocol.EthMACSize]byte) PeerOption {
	return func(p *Peer) { p.Board.MAC = mac }
}

// WithLogger routes peer diagnostics to l.
func WithLogger(l *slog.Logger) PeerOption {
	return func(p *Peer) { p.log = l.With("component", "peer") }
}

// WithDisk attaches an in-memory disk of the given number of blocks.
func WithDisk(nr uint8, blocks int) PeerOption {
	return func(p *Peer) { p.Board.Disks[nr] = make([]byte, blocks*protocol.DiskBlockSize) }
}

// WithDir publishes a directory listing under path.
func WithDir(path string, entries ...protocol.DirEntry) PeerOption {
	return func(p *Peer) { p.Board.Dirs[path] = entries }
}

// NewPeer builds a peer with its own device sized to the frame catalog.
func NewPeer(opts ...PeerOption) *Peer {
	dev, reg := dpram.NewMemDevice(protocol.WindowSize)
	p := &Peer{
		reg:      reg,
		dev:      dev,
		log:      slog.Default().With("component", "peer"),
		handlers: make(map[protocol.CommandID]Handler),
		ackOnly:  make(map[protocol.CommandID]bool),
		replyIDs: make(map[protocol.CommandID]protocol.ReplyID),
		rx:       queue.New(),
		served:   make(map[protocol.CommandID]int),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
		backoff:  time.Microsecond,
	}
	p.Board.MAC = [protocol.EthMACSize]byte{0x02, 0x57, 0x41, 0x52, 0x50, 0x01}
	p.Board.ARM = protocol.ARMInfo{CPURevID: 0x410fd083, HALVersion: 0x0102}
	p.Board.MouseRes = 100
	p.Board.Dirs = make(map[string][]protocol.DirEntry)
	p.Board.Disks = make(map[uint8][]byte)
	p.installDefaults()
	for _, o := range opts {
		o(p)
	}
	reg.Observe(p.observe)
	return p
}

// Device returns the host's view of the simulated card.
func (p *Peer) Device() *dpram.Device { return p.dev }

// Register returns the in-process control register.
func (p *Peer) Register() *dpram.MemRegister { return p.reg }

// OnInterrupt installs the host interrupt handler. It is called from the
// peer goroutine whenever IF_ETHRX is raised.
func (p *Peer) OnInterrupt(fn func() bool) {
	p.mu.Lock()
	p.irq = fn
	p.mu.Unlock()
}

// Handle replaces the handler for id.
func (p *Peer) Handle(id protocol.CommandID, h Handler) {
	p.mu.Lock()
	p.handlers[id] = h
	p.mu.Unlock()
}

// Stall stops (or resumes) serving commands. A stalled peer never acknowledges.
func (p *Peer) Stall(on bool) {
	p.mu.Lock()
	p.stalled = on
	p.mu.Unlock()
	p.kick()
}

// AckOnly makes the peer acknowledge id but never post the reply.
func (p *Peer) AckOnly(id protocol.CommandID, on bool) {
	p.mu.Lock()
	p.ackOnly[id] = on
	p.mu.Unlock()
}

// ReplyWith forces the discriminant written in answer to id.
func (p *Peer) ReplyWith(id protocol.CommandID, rpl protocol.ReplyID) {
	p.mu.Lock()
	p.replyIDs[id] = rpl
	p.mu.Unlock()
}

// ClearFaults drops every injected fault.
func (p *Peer) ClearFaults() {
	p.mu.Lock()
	p.stalled = false
	p.replyDelay = 0
	clear(p.ackOnly)
	clear(p.replyIDs)
	p.mu.Unlock()
	p.kick()
}

// SetReplyDelay holds each reply back by d, simulating a slow peer.
func (p *Peer) SetReplyDelay(d time.Duration) {
	p.mu.Lock()
	p.replyDelay = d
	p.mu.Unlock()
}

// QueueFrame makes frame available to CmdEthReceive and raises the
// packet-arrived interrupt if the host has it enabled.
func (p *Peer) QueueFrame(frame []byte) error {
	if len(frame) > protocol.EthMaxFrame {
		return fmt.Errorf("fake: %d byte frame exceeds %d", len(frame), protocol.EthMaxFrame)
	}
	p.mu.Lock()
	p.rx.Add(append([]byte(nil), frame...))
	p.armed = true
	p.mu.Unlock()
	p.kick()
	return nil
}

// Loopback makes every transmitted frame come back as a received one.
func (p *Peer) Loopback(on bool) {
	p.mu.Lock()
	p.loopback = on
	p.mu.Unlock()
}

// Pending returns the number of frames not yet fetched by the host.
func (p *Peer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.Length()
}

// Transmitted returns copies of all frames the host sent.
func (p *Peer) Transmitted() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.tx))
	for i, f := range p.tx {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Served reports how many times id was acknowledged.
func (p *Peer) Served(id protocol.CommandID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.served[id]
}

// Snapshot returns a copy of the board state.
func (p *Peer) Snapshot() BoardState {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.Board
	b.DebugLog = append([]string(nil), p.Board.DebugLog...)
	b.Wheel = append([]int8(nil), p.Board.Wheel...)
	return b
}

// PushWheel queues one mouse wheel delta.
func (p *Peer) PushWheel(delta int8) {
	p.mu.Lock()
	p.Board.Wheel = append(p.Board.Wheel, delta)
	p.mu.Unlock()
}

// Start launches the serving goroutine.
func (p *Peer) Start() {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts the serving goroutine and waits for it to exit.
func (p *Peer) Stop() {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 2) {
		return
	}
	close(p.stopCh)
	<-p.stopped
}

func (p *Peer) observe(old, new uint32) {
	if old&dpram.IEEthRx == 0 && new&dpram.IEEthRx != 0 {
		p.mu.Lock()
		p.armed = p.rx.Length() > 0
		p.mu.Unlock()
	}
	p.kick()
}

func (p *Peer) kick() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Peer) run() {
	defer close(p.stopped)
	timer := time.NewTimer(p.backoff)
	defer timer.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.wake:
		case <-timer.C:
		}
		busy := p.serve()
		p.raise()
		p.adaptiveBackoff(busy)
		timer.Reset(p.backoff)
	}
}

func (p *Peer) adaptiveBackoff(busy bool) {
	if busy {
		p.backoff = time.Microsecond
		return
	}
	p.backoff *= 2
	if p.backoff > time.Millisecond {
		p.backoff = time.Millisecond
	}
}

// serve consumes one pending command, if any.
func (p *Peer) serve() bool {
	if p.reg.Load()&dpram.MPPeer == 0 {
		return false
	}
	p.mu.Lock()
	if p.stalled {
		p.mu.Unlock()
		return false
	}
	cmd := make(dpram.Window, len(p.dev.Win))
	copy(cmd, p.dev.Win)
	id := protocol.PeekCommandID(cmd)
	p.served[id]++
	h := p.handlers[id]
	ackOnly := p.ackOnly[id]
	override, forced := p.replyIDs[id]
	delay := p.replyDelay
	p.mu.Unlock()

	dpram.Clear(p.reg, dpram.MPPeer)
	dpram.Set(p.reg, dpram.MRPeer)

	if h == nil {
		p.log.Warn("unhandled command", "cmd", id)
		return true
	}
	rpl, err := h(p, cmd)
	if err != nil {
		p.log.Warn("command failed", "cmd", id, "error", err)
		return true
	}
	if rpl == nil || ackOnly {
		return true
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err := protocol.WriteReply(p.dev.Win, rpl); err != nil {
		p.log.Warn("reply encode failed", "cmd", id, "error", err)
		return true
	}
	if forced {
		protocol.ByteOrder.PutUint32(p.dev.Win, uint32(override))
	}
	dpram.Set(p.reg, dpram.MPHost)
	return true
}

// raise asserts IF_ETHRX once per arrival while the host has it enabled.
func (p *Peer) raise() {
	p.mu.Lock()
	fire := p.armed && p.rx.Length() > 0 && !p.stalled
	irq := p.irq
	p.mu.Unlock()
	if !fire || p.reg.Load()&dpram.IEEthRx == 0 {
		return
	}
	p.mu.Lock()
	p.armed = false
	p.mu.Unlock()
	dpram.Set(p.reg, dpram.IFEthRx)
	if irq != nil {
		irq()
	}
}
