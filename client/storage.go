// File: client/storage.go
// Author: momentics <momentics@gmail.com>
//
// Directory listing and block storage on the board's SD card and USB disk.

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/transport"
)

// maxDirEntries bounds a listing in case the board never sends the terminator.
const maxDirEntries = 4096

// ListDir returns the entries of path. The open, read and close commands run
// under one lock hold since the board keeps a single directory cursor.
func (c *Client) ListDir(ctx context.Context, path string) ([]protocol.DirEntry, error) {
	if len(path) >= protocol.PathLen {
		return nil, fmt.Errorf("%w: path longer than %d bytes", api.ErrInvalidArgument, protocol.PathLen-1)
	}
	var entries []protocol.DirEntry
	err := c.link.Do(ctx, func(tx *transport.Txn) error {
		var st protocol.OpenDirStatus
		if err := exchange(tx, &protocol.OpenDir{Path: path}, &st); err != nil {
			return fmt.Errorf("open dir: %w", err)
		}
		if !st.Success {
			return fmt.Errorf("%w: %s", fs.ErrNotExist, path)
		}
		defer func() {
			if err := exchange(tx, protocol.Bare(protocol.CmdCloseDir), nil); err != nil {
				c.log.Warn("close dir failed", "path", path, "error", err)
			}
		}()
		for len(entries) < maxDirEntries {
			var e protocol.DirEntry
			if err := exchange(tx, protocol.Bare(protocol.CmdReadDir), &e); err != nil {
				return fmt.Errorf("read dir: %w", err)
			}
			if e.Name == "" {
				return nil
			}
			entries = append(entries, e)
		}
		c.log.Warn("directory listing truncated", "path", path, "entries", len(entries))
		return nil
	})
	return entries, err
}

// exchange performs one round trip inside an open transaction. A nil rpl
// sends without waiting for a reply.
func exchange(tx *transport.Txn, cmd protocol.Command, rpl protocol.Reply) error {
	if err := tx.Write(cmd); err != nil {
		return err
	}
	if st := tx.Send(rpl != nil); st != api.StatusOK {
		return fmt.Errorf("%s: %w", cmd.CommandID(), st.Err())
	}
	if rpl == nil {
		return nil
	}
	return tx.Read(rpl)
}

func blockCount(n int) (uint32, error) {
	if n%protocol.DiskBlockSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a whole number of blocks", api.ErrInvalidArgument, n)
	}
	return uint32(n / protocol.DiskBlockSize), nil
}

// ReadBlocks fills buf from disk starting at block lba. len(buf) must be a
// multiple of the block size. Transfers are split into round trips of at most
// DiskMaxBlocksPerRPC blocks; other link users may run in between.
func (c *Client) ReadBlocks(ctx context.Context, disk uint8, lba uint32, buf []byte) (int, error) {
	total, err := blockCount(len(buf))
	if err != nil {
		return 0, err
	}
	done := uint32(0)
	for done < total {
		n := min(total-done, protocol.DiskMaxBlocksPerRPC)
		var r protocol.DiskReadBlocksReply
		cmd := &protocol.DiskReadBlocks{BlockAddr: lba + done, Count: n, DiskNr: disk}
		if err := c.link.Call(ctx, cmd, &r); err != nil {
			return int(done) * protocol.DiskBlockSize, err
		}
		if r.Count > n {
			return int(done) * protocol.DiskBlockSize, overCount(disk, r.Count, n)
		}
		off := int(done) * protocol.DiskBlockSize
		copy(buf[off:off+int(n)*protocol.DiskBlockSize], r.Data)
		done += r.Count
		if r.Count < n {
			return int(done) * protocol.DiskBlockSize,
				fmt.Errorf("disk %d: read %d of %d blocks at %d: %w", disk, r.Count, n, lba+done-r.Count, io.ErrUnexpectedEOF)
		}
	}
	return len(buf), nil
}

// WriteBlocks stores buf on disk starting at block lba, split like ReadBlocks.
func (c *Client) WriteBlocks(ctx context.Context, disk uint8, lba uint32, buf []byte) (int, error) {
	total, err := blockCount(len(buf))
	if err != nil {
		return 0, err
	}
	done := uint32(0)
	for done < total {
		n := min(total-done, protocol.DiskMaxBlocksPerRPC)
		off := int(done) * protocol.DiskBlockSize
		var r protocol.DiskWriteBlocksReply
		cmd := &protocol.DiskWriteBlocks{
			BlockAddr: lba + done,
			Count:     n,
			Data:      buf[off : off+int(n)*protocol.DiskBlockSize],
			DiskNr:    disk,
		}
		if err := c.link.Call(ctx, cmd, &r); err != nil {
			return off, err
		}
		if r.Count > n {
			return off, overCount(disk, r.Count, n)
		}
		done += r.Count
		if r.Count < n {
			return int(done) * protocol.DiskBlockSize,
				fmt.Errorf("disk %d: wrote %d of %d blocks at %d: %w", disk, r.Count, n, lba+done-r.Count, io.ErrShortWrite)
		}
	}
	return len(buf), nil
}

// BlockDevice exposes one board disk as io.ReaderAt and io.WriterAt. Offsets
// and lengths must be block aligned.
type BlockDevice struct {
	c    *Client
	ctx  context.Context
	disk uint8
}

// Disk returns a block device for disk nr. ctx bounds every transfer.
func (c *Client) Disk(ctx context.Context, nr uint8) *BlockDevice {
	return &BlockDevice{c: c, ctx: ctx, disk: nr}
}

func (d *BlockDevice) lba(off int64) (uint32, error) {
	if off < 0 || off%protocol.DiskBlockSize != 0 {
		return 0, fmt.Errorf("%w: offset %d not block aligned", api.ErrInvalidArgument, off)
	}
	return uint32(off / protocol.DiskBlockSize), nil
}

// ReadAt implements io.ReaderAt.
func (d *BlockDevice) ReadAt(p []byte, off int64) (int, error) {
	lba, err := d.lba(off)
	if err != nil {
		return 0, err
	}
	n, err := d.c.ReadBlocks(d.ctx, d.disk, lba, p)
	if err != nil && n < len(p) && errors.Is(err, io.ErrUnexpectedEOF) {
		return n, io.EOF
	}
	return n, err
}

// WriteAt implements io.WriterAt.
func (d *BlockDevice) WriteAt(p []byte, off int64) (int, error) {
	lba, err := d.lba(off)
	if err != nil {
		return 0, err
	}
	return d.c.WriteBlocks(d.ctx, d.disk, lba, p)
}

var (
	_ io.ReaderAt = (*BlockDevice)(nil)
	_ io.WriterAt = (*BlockDevice)(nil)
)

func overCount(disk uint8, got, asked uint32) error {
	return fmt.Errorf("disk %d: %w: peer reports %d blocks for a %d block request", disk, api.ErrProtocolMismatch, got, asked)
}
