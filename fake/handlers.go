// File: fake/handlers.go
// Author: momentics <momentics@gmail.com>
//
// Default command handlers of the simulated board.

package fake

import (
	"fmt"

	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/protocol"
)

func (p *Peer) installDefaults() {
	h := p.handlers

	h[protocol.CmdNop] = func(*Peer, dpram.Window) (protocol.Reply, error) { return nil, nil }

	// ethernet
	h[protocol.CmdEthTransmit] = func(p *Peer, w dpram.Window) (protocol.Reply, error) {
		var c protocol.EthTransmit
		if err := protocol.ReadCommand(w, &c); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.tx = append(p.tx, c.Packet)
		if p.loopback {
			p.rx.Add(append([]byte(nil), c.Packet...))
			p.armed = true
		}
		p.mu.Unlock()
		return nil, nil
	}
	h[protocol.CmdEthReceive] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.rx.Length() == 0 {
			return &protocol.EthReceive{}, nil
		}
		return &protocol.EthReceive{Packet: p.rx.Remove().([]byte)}, nil
	}
	h[protocol.CmdEthGetMACAddr] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return &protocol.EthMACAddr{MAC: p.Board.MAC}, nil
	}

	// system
	h[protocol.CmdDbgMsg] = func(p *Peer, w dpram.Window) (protocol.Reply, error) {
		var c protocol.DbgMsg
		if err := protocol.ReadCommand(w, &c); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.Board.DebugLog = append(p.Board.DebugLog, c.Msg)
		p.mu.Unlock()
		return nil, nil
	}
	h[protocol.CmdSetCPUTurbo] = setter(func(b *BoardState, c *protocol.SetCPUTurbo) { b.Turbo = c.Level })
	h[protocol.CmdSelectKick] = setter(func(b *BoardState, c *protocol.SelectKick) { b.Kickstart = c.Nr })
	h[protocol.CmdSetIDEMode] = setter(func(b *BoardState, c *protocol.SetIDEMode) { b.IDENative = c.NativeEnable })
	h[protocol.CmdSetIDESpeed] = setter(func(b *BoardState, c *protocol.SetIDESpeed) { b.IDESpeed = *c })
	h[protocol.CmdSetHIDMouseRes] = setter(func(b *BoardState, c *protocol.SetHIDMouseRes) { b.MouseRes = c.Res })
	h[protocol.CmdSetWiFiSSID] = setter(func(b *BoardState, c *protocol.SetWiFiSSID) { b.WiFiSSID = c.SSID })
	h[protocol.CmdSetWiFiPass] = setter(func(b *BoardState, c *protocol.SetWiFiPass) { b.WiFiPass = c.Pass })
	h[protocol.CmdSetTempRegulator] = setter(func(b *BoardState, c *protocol.SetTempRegulator) { b.Temp = *c })
	h[protocol.CmdSetTimeZoneShift] = setter(func(b *BoardState, c *protocol.SetTimeZoneShift) { b.TZShift = c.ShiftSecs })

	h[protocol.CmdGetHIDMouseRes] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return &protocol.HIDMouseRes{Res: p.Board.MouseRes}, nil
	}
	h[protocol.CmdGetARMInfo] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		arm := p.Board.ARM
		return &arm, nil
	}
	h[protocol.CmdGetMouseWheelData] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		var sum int8
		for _, d := range p.Board.Wheel {
			sum += d
		}
		p.Board.Wheel = p.Board.Wheel[:0]
		return &protocol.MouseWheelData{Count: sum}, nil
	}

	// storage
	h[protocol.CmdOpenDir] = func(p *Peer, w dpram.Window) (protocol.Reply, error) {
		var c protocol.OpenDir
		if err := protocol.ReadCommand(w, &c); err != nil {
			return nil, err
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		entries, ok := p.Board.Dirs[c.Path]
		p.Board.openDir = append(p.Board.openDir[:0], entries...)
		p.Board.dirIsOpen = ok
		return &protocol.OpenDirStatus{Success: ok}, nil
	}
	h[protocol.CmdReadDir] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.Board.dirIsOpen || len(p.Board.openDir) == 0 {
			return &protocol.DirEntry{}, nil
		}
		e := p.Board.openDir[0]
		p.Board.openDir = p.Board.openDir[1:]
		return &e, nil
	}
	h[protocol.CmdCloseDir] = func(p *Peer, _ dpram.Window) (protocol.Reply, error) {
		p.mu.Lock()
		p.Board.openDir = nil
		p.Board.dirIsOpen = false
		p.mu.Unlock()
		return nil, nil
	}
	h[protocol.CmdDiskReadBlocks] = func(p *Peer, w dpram.Window) (protocol.Reply, error) {
		var c protocol.DiskReadBlocks
		if err := protocol.ReadCommand(w, &c); err != nil {
			return nil, err
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		disk, err := p.diskRange(c.DiskNr, c.BlockAddr, c.Count)
		if err != nil {
			return &protocol.DiskReadBlocksReply{}, nil
		}
		return &protocol.DiskReadBlocksReply{Count: c.Count, Data: append([]byte(nil), disk...)}, nil
	}
	h[protocol.CmdDiskWriteBlocks] = func(p *Peer, w dpram.Window) (protocol.Reply, error) {
		var c protocol.DiskWriteBlocks
		if err := protocol.ReadCommand(w, &c); err != nil {
			return nil, err
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		disk, err := p.diskRange(c.DiskNr, c.BlockAddr, c.Count)
		if err != nil {
			return &protocol.DiskWriteBlocksReply{}, nil
		}
		copy(disk, c.Data)
		return &protocol.DiskWriteBlocksReply{Count: c.Count}, nil
	}
}

// diskRange returns the bytes of blocks [addr, addr+count). Caller holds p.mu.
func (p *Peer) diskRange(nr uint8, addr, count uint32) ([]byte, error) {
	disk, ok := p.Board.Disks[nr]
	if !ok {
		return nil, fmt.Errorf("fake: no disk %d", nr)
	}
	from := int(addr) * protocol.DiskBlockSize
	to := from + int(count)*protocol.DiskBlockSize
	if to > len(disk) {
		return nil, fmt.Errorf("fake: blocks %d+%d beyond disk %d", addr, count, nr)
	}
	return disk[from:to], nil
}

// setter builds a one-way handler that decodes C and applies it to the board.
func setter[C any, PC interface {
	*C
	protocol.Command
}](apply func(b *BoardState, c PC)) Handler {
	return func(p *Peer, w dpram.Window) (protocol.Reply, error) {
		c := PC(new(C))
		if err := protocol.ReadCommand(w, c); err != nil {
			return nil, err
		}
		p.mu.Lock()
		apply(&p.Board, c)
		p.mu.Unlock()
		return nil, nil
	}
}
