// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and status enums.

package api

import "errors"

// Status is the result code of one round trip, numbered as on the wire.
type Status uint32

const (
	StatusOK Status = iota
	StatusTimeout
	StatusBreak
	StatusNotInitialized
	StatusComErr
	StatusBufErr
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusBreak:
		return "break"
	case StatusNotInitialized:
		return "not-initialized"
	case StatusComErr:
		return "communication-error"
	case StatusBufErr:
		return "buffer-error"
	default:
		return "unknown"
	}
}

// Err maps a status onto its sentinel error; StatusOK yields nil.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusTimeout:
		return ErrPeerTimeout
	case StatusBreak:
		return ErrLinkBreak
	case StatusNotInitialized:
		return ErrNotInitialized
	case StatusComErr:
		return ErrProtocolMismatch
	default:
		return ErrBufferInvalid
	}
}

// StatusOf classifies err back into a wire status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrPeerTimeout):
		return StatusTimeout
	case errors.Is(err, ErrLinkBreak):
		return StatusBreak
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrLinkFaulted):
		return StatusNotInitialized
	case errors.Is(err, ErrProtocolMismatch):
		return StatusComErr
	default:
		return StatusBufErr
	}
}

// InterfaceState enumerates the lifecycle of a network interface.
type InterfaceState int32

const (
	InterfaceDown InterfaceState = iota
	InterfaceUp
)

func (s InterfaceState) String() string {
	if s == InterfaceUp {
		return "up"
	}
	return "down"
}

// InterfaceStats is a snapshot of the per-interface counters.
type InterfaceStats struct {
	RxPackets  uint64
	RxBytes    uint64
	RxErrors   uint64
	RxDropped  uint64
	RxFiltered uint64
	TxPackets  uint64
	TxBytes    uint64
	TxErrors   uint64
	TxDropped  uint64
}

// DriverInfo mirrors the ethtool driver description.
type DriverInfo struct {
	Driver  string
	Version string
	BusInfo string
}
