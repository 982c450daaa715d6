// File: protocol/payload_storage.go
// Author: momentics <momentics@gmail.com>
//
// Directory listing and block storage command family.

package protocol

import (
	"fmt"

	"github.com/momentics/warplink/api"
)

// OpenDir starts a directory listing on the peer's storage.
type OpenDir struct {
	Path string
}

func (OpenDir) CommandID() CommandID { return CmdOpenDir }
func (OpenDir) PayloadSize() int     { return PathLen }

func (c OpenDir) MarshalPayload(p []byte) error {
	putString(p, c.Path, PathLen)
	return nil
}

func (c *OpenDir) UnmarshalPayload(p []byte) error {
	c.Path = getString(p, PathLen)
	return nil
}

// OpenDirStatus is the reply to CmdOpenDir.
type OpenDirStatus struct {
	Success bool
}

func (OpenDirStatus) ReplyID() ReplyID { return RplOpenDirStatus }
func (OpenDirStatus) PayloadSize() int { return 4 }

func (r OpenDirStatus) MarshalPayload(p []byte) error {
	ByteOrder.PutUint32(p, boolU32(r.Success))
	return nil
}

func (r *OpenDirStatus) UnmarshalPayload(p []byte) error {
	r.Success = ByteOrder.Uint32(p) != 0
	return nil
}

// DirEntry is the reply to CmdReadDir. An empty Name ends the listing.
type DirEntry struct {
	Name       string
	Size       uint32
	Date       uint16 // FAT packed date
	Time       uint16 // FAT packed time
	IsDir      bool
	IsSys      bool
	IsReadOnly bool
	IsHidden   bool
}

func (DirEntry) ReplyID() ReplyID { return RplReadDir }
func (DirEntry) PayloadSize() int { return PathLen + 4 + 2 + 2 + 4 }

func (r DirEntry) MarshalPayload(p []byte) error {
	putString(p, r.Name, PathLen)
	o := PathLen
	ByteOrder.PutUint32(p[o:], r.Size)
	ByteOrder.PutUint16(p[o+4:], r.Date)
	ByteOrder.PutUint16(p[o+6:], r.Time)
	putBool(p[o+8:], r.IsDir)
	putBool(p[o+9:], r.IsSys)
	putBool(p[o+10:], r.IsReadOnly)
	putBool(p[o+11:], r.IsHidden)
	return nil
}

func (r *DirEntry) UnmarshalPayload(p []byte) error {
	r.Name = getString(p, PathLen)
	o := PathLen
	r.Size = ByteOrder.Uint32(p[o:])
	r.Date = ByteOrder.Uint16(p[o+4:])
	r.Time = ByteOrder.Uint16(p[o+6:])
	r.IsDir = p[o+8] != 0
	r.IsSys = p[o+9] != 0
	r.IsReadOnly = p[o+10] != 0
	r.IsHidden = p[o+11] != 0
	return nil
}

// DiskReadBlocks requests up to DiskMaxBlocksPerRPC blocks.
type DiskReadBlocks struct {
	BlockAddr uint32
	Count     uint32
	DMAAddr   uint32
	DMAEnable bool
	DiskNr    uint8
}

func (DiskReadBlocks) CommandID() CommandID { return CmdDiskReadBlocks }
func (DiskReadBlocks) PayloadSize() int     { return 14 }

func (c DiskReadBlocks) MarshalPayload(p []byte) error {
	if c.Count > DiskMaxBlocksPerRPC {
		return fmt.Errorf("%w: %d blocks per transfer", api.ErrInvalidArgument, c.Count)
	}
	ByteOrder.PutUint32(p, c.BlockAddr)
	ByteOrder.PutUint32(p[4:], c.Count)
	ByteOrder.PutUint32(p[8:], c.DMAAddr)
	putBool(p[12:], c.DMAEnable)
	p[13] = c.DiskNr
	return nil
}

func (c *DiskReadBlocks) UnmarshalPayload(p []byte) error {
	c.BlockAddr = ByteOrder.Uint32(p)
	c.Count = ByteOrder.Uint32(p[4:])
	c.DMAAddr = ByteOrder.Uint32(p[8:])
	c.DMAEnable = p[12] != 0
	c.DiskNr = p[13]
	return nil
}

// DiskReadBlocksReply carries the blocks read. Data is copied out of the window.
type DiskReadBlocksReply struct {
	Count uint32
	Data  []byte
}

func (DiskReadBlocksReply) ReplyID() ReplyID { return RplDiskReadBlocks }
func (DiskReadBlocksReply) PayloadSize() int { return 4 + DiskMaxTransfer }

func (r DiskReadBlocksReply) MarshalPayload(p []byte) error {
	if r.Count > DiskMaxBlocksPerRPC || len(r.Data) > DiskMaxTransfer {
		return fmt.Errorf("%w: %d blocks", api.ErrFrameTooLarge, r.Count)
	}
	ByteOrder.PutUint32(p, r.Count)
	copy(p[4:4+DiskMaxTransfer], r.Data)
	return nil
}

func (r *DiskReadBlocksReply) UnmarshalPayload(p []byte) error {
	r.Count = ByteOrder.Uint32(p)
	if r.Count > DiskMaxBlocksPerRPC {
		return fmt.Errorf("%w: peer returned %d blocks", api.ErrBufferInvalid, r.Count)
	}
	n := int(r.Count) * DiskBlockSize
	r.Data = append(r.Data[:0], p[4:4+n]...)
	return nil
}

// DiskWriteBlocks stores up to DiskMaxBlocksPerRPC blocks.
type DiskWriteBlocks struct {
	BlockAddr uint32
	Count     uint32
	Data      []byte
	DMAAddr   uint32
	DMAEnable bool
	DiskNr    uint8
}

func (DiskWriteBlocks) CommandID() CommandID { return CmdDiskWriteBlocks }
func (DiskWriteBlocks) PayloadSize() int     { return 8 + DiskMaxTransfer + 6 }

func (c DiskWriteBlocks) MarshalPayload(p []byte) error {
	if c.Count > DiskMaxBlocksPerRPC || len(c.Data) > DiskMaxTransfer {
		return fmt.Errorf("%w: %d blocks per transfer", api.ErrInvalidArgument, c.Count)
	}
	ByteOrder.PutUint32(p, c.BlockAddr)
	ByteOrder.PutUint32(p[4:], c.Count)
	copy(p[8:8+DiskMaxTransfer], c.Data)
	o := 8 + DiskMaxTransfer
	ByteOrder.PutUint32(p[o:], c.DMAAddr)
	putBool(p[o+4:], c.DMAEnable)
	p[o+5] = c.DiskNr
	return nil
}

func (c *DiskWriteBlocks) UnmarshalPayload(p []byte) error {
	c.BlockAddr = ByteOrder.Uint32(p)
	c.Count = ByteOrder.Uint32(p[4:])
	if c.Count > DiskMaxBlocksPerRPC {
		return fmt.Errorf("%w: %d blocks per transfer", api.ErrBufferInvalid, c.Count)
	}
	c.Data = append(c.Data[:0], p[8:8+int(c.Count)*DiskBlockSize]...)
	o := 8 + DiskMaxTransfer
	c.DMAAddr = ByteOrder.Uint32(p[o:])
	c.DMAEnable = p[o+4] != 0
	c.DiskNr = p[o+5]
	return nil
}

// DiskWriteBlocksReply reports how many blocks were stored.
type DiskWriteBlocksReply struct {
	Count uint32
}

func (DiskWriteBlocksReply) ReplyID() ReplyID { return RplDiskWriteBlocks }
func (DiskWriteBlocksReply) PayloadSize() int { return 4 }

func (r DiskWriteBlocksReply) MarshalPayload(p []byte) error {
	ByteOrder.PutUint32(p, r.Count)
	return nil
}

func (r *DiskWriteBlocksReply) UnmarshalPayload(p []byte) error {
	r.Count = ByteOrder.Uint32(p)
	return nil
}
