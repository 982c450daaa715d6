// File: protocol/payload_net.go
// Author: momentics <momentics@gmail.com>
//
// Ethernet command family.

package protocol

import (
	"fmt"

	"github.com/momentics/warplink/api"
)

// EthTransmit hands one outbound frame to the peer.
type EthTransmit struct {
	Packet []byte
}

func (EthTransmit) CommandID() CommandID { return CmdEthTransmit }
func (EthTransmit) PayloadSize() int     { return 2 + EthMaxFrame }

func (c EthTransmit) MarshalPayload(p []byte) error {
	if len(c.Packet) > EthMaxFrame {
		return fmt.Errorf("%w: %d byte frame", api.ErrFrameTooLarge, len(c.Packet))
	}
	ByteOrder.PutUint16(p, uint16(len(c.Packet)))
	copy(p[2:], c.Packet)
	return nil
}

func (c *EthTransmit) UnmarshalPayload(p []byte) error {
	n := int(ByteOrder.Uint16(p))
	if n > EthMaxFrame {
		return fmt.Errorf("%w: %d byte frame", api.ErrFrameTooLarge, n)
	}
	c.Packet = append(c.Packet[:0], p[2:2+n]...)
	return nil
}

// EthReceive is the reply to CmdEthReceive. A zero-length packet means the
// peer has nothing queued.
//
// After UnmarshalPayload, Packet aliases the window and is only valid while
// the round trip lock is held.
type EthReceive struct {
	Packet []byte
}

func (EthReceive) ReplyID() ReplyID  { return RplEthReceive }
func (EthReceive) PayloadSize() int { return 2 + EthMaxFrame }

func (r EthReceive) MarshalPayload(p []byte) error {
	if len(r.Packet) > EthMaxFrame {
		return fmt.Errorf("%w: %d byte frame", api.ErrFrameTooLarge, len(r.Packet))
	}
	ByteOrder.PutUint16(p, uint16(len(r.Packet)))
	copy(p[2:], r.Packet)
	return nil
}

func (r *EthReceive) UnmarshalPayload(p []byte) error {
	n := int(ByteOrder.Uint16(p))
	if n > EthMaxFrame {
		return fmt.Errorf("%w: peer reported %d byte frame", api.ErrBufferInvalid, n)
	}
	r.Packet = p[2 : 2+n : 2+n]
	return nil
}

// Destination returns the destination MAC of the received frame, or nil when
// the frame is too short to carry one.
func (r *EthReceive) Destination() []byte {
	if len(r.Packet) < EthMACSize {
		return nil
	}
	return r.Packet[:EthMACSize]
}

// EthMACAddr is the reply to CmdEthGetMACAddr.
type EthMACAddr struct {
	MAC [EthMACSize]byte
}

func (EthMACAddr) ReplyID() ReplyID  { return RplEthMACAddr }
func (EthMACAddr) PayloadSize() int { return EthMACSize }

func (r EthMACAddr) MarshalPayload(p []byte) error {
	copy(p, r.MAC[:])
	return nil
}

func (r *EthMACAddr) UnmarshalPayload(p []byte) error {
	copy(r.MAC[:], p[:EthMACSize])
	return nil
}
