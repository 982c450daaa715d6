// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Tagged command/reply frames and their encoding into the shared window.

package protocol

import (
	"fmt"

	"github.com/momentics/warplink/api"
)

// Payload is a fixed-shape frame body.
type Payload interface {
	// PayloadSize is the byte-exact size of the shape, used for window sizing.
	PayloadSize() int
	MarshalPayload(p []byte) error
	UnmarshalPayload(p []byte) error
}

// Command is a payload sent host to peer.
type Command interface {
	Payload
	CommandID() CommandID
}

// Reply is a payload sent peer to host.
type Reply interface {
	Payload
	ReplyID() ReplyID
}

// CommandFrame is a discriminant plus an opaque payload.
type CommandFrame struct {
	ID      CommandID
	Payload []byte
}

// ReplyFrame is a discriminant plus an opaque payload.
type ReplyFrame struct {
	ID      ReplyID
	Payload []byte
}

// Encode writes the frame into win.
func (f CommandFrame) Encode(win []byte) error {
	return encodeRaw(win, uint32(f.ID), f.Payload)
}

// Encode writes the frame into win.
func (f ReplyFrame) Encode(win []byte) error {
	return encodeRaw(win, uint32(f.ID), f.Payload)
}

// DecodeCommandFrame copies the discriminant and the first n payload bytes out of win.
func DecodeCommandFrame(win []byte, n int) (CommandFrame, error) {
	id, p, err := decodeRaw(win, n)
	return CommandFrame{ID: CommandID(id), Payload: p}, err
}

// DecodeReplyFrame copies the discriminant and the first n payload bytes out of win.
func DecodeReplyFrame(win []byte, n int) (ReplyFrame, error) {
	id, p, err := decodeRaw(win, n)
	return ReplyFrame{ID: ReplyID(id), Payload: p}, err
}

func encodeRaw(win []byte, id uint32, payload []byte) error {
	if HeaderSize+len(payload) > len(win) {
		return fmt.Errorf("%w: %d byte payload, window %d", api.ErrFrameTooLarge, len(payload), len(win))
	}
	ByteOrder.PutUint32(win, id)
	copy(win[HeaderSize:], payload)
	return nil
}

func decodeRaw(win []byte, n int) (uint32, []byte, error) {
	if len(win) < HeaderSize || n < 0 || HeaderSize+n > len(win) {
		return 0, nil, fmt.Errorf("%w: window %d, payload %d", api.ErrBufferInvalid, len(win), n)
	}
	p := make([]byte, n)
	copy(p, win[HeaderSize:HeaderSize+n])
	return ByteOrder.Uint32(win), p, nil
}

// PeekCommandID reads the discriminant without decoding the payload.
func PeekCommandID(win []byte) CommandID { return CommandID(ByteOrder.Uint32(win)) }

// PeekReplyID reads the discriminant without decoding the payload.
func PeekReplyID(win []byte) ReplyID { return ReplyID(ByteOrder.Uint32(win)) }

// WriteCommand encodes cmd into win. The discriminant is only written once
// the payload has been encoded.
func WriteCommand(win []byte, cmd Command) error {
	if err := fits(win, cmd); err != nil {
		return err
	}
	if err := cmd.MarshalPayload(win[HeaderSize:]); err != nil {
		return err
	}
	ByteOrder.PutUint32(win, uint32(cmd.CommandID()))
	return nil
}

// WriteReply encodes rpl into win.
func WriteReply(win []byte, rpl Reply) error {
	if err := fits(win, rpl); err != nil {
		return err
	}
	if err := rpl.MarshalPayload(win[HeaderSize:]); err != nil {
		return err
	}
	ByteOrder.PutUint32(win, uint32(rpl.ReplyID()))
	return nil
}

// ReadCommand decodes win into cmd after checking the discriminant.
func ReadCommand(win []byte, cmd Command) error {
	if err := fits(win, cmd); err != nil {
		return err
	}
	if got := PeekCommandID(win); got != cmd.CommandID() {
		return fmt.Errorf("%w: want %s, got %s", api.ErrProtocolMismatch, cmd.CommandID(), got)
	}
	return cmd.UnmarshalPayload(win[HeaderSize:])
}

// ReadReply decodes win into rpl after checking the discriminant.
func ReadReply(win []byte, rpl Reply) error {
	if err := fits(win, rpl); err != nil {
		return err
	}
	if got := PeekReplyID(win); got != rpl.ReplyID() {
		return fmt.Errorf("%w: want %s, got %s", api.ErrProtocolMismatch, rpl.ReplyID(), got)
	}
	return rpl.UnmarshalPayload(win[HeaderSize:])
}

func fits(win []byte, p Payload) error {
	if HeaderSize+p.PayloadSize() > len(win) {
		return fmt.Errorf("%w: shape %d bytes, window %d", api.ErrFrameTooLarge, p.PayloadSize(), len(win))
	}
	return nil
}
