// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the warplink stack.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrPeerTimeout       = fmt.Errorf("peer did not respond in time")
	ErrProtocolMismatch  = fmt.Errorf("reply discriminant mismatch")
	ErrLinkFaulted       = fmt.Errorf("link is faulted")
	ErrLinkBreak         = fmt.Errorf("round trip aborted")
	ErrNotInitialized    = fmt.Errorf("device not initialized")
	ErrBufferInvalid     = fmt.Errorf("frame buffer invalid")
	ErrInterfaceDown     = fmt.Errorf("interface is down")
	ErrQueueStopped      = fmt.Errorf("transmit queue is stopped")
	ErrFrameTooLarge     = fmt.Errorf("frame too large")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrAddrNotAvailable  = fmt.Errorf("address not available")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeProtocol
	ErrCodeNotSupported
	ErrCodeInternal
)

// CodeOf classifies err by the sentinel it wraps, or ErrCodeInternal for
// foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	switch {
	case errors.Is(err, ErrPeerTimeout), errors.Is(err, ErrLinkBreak):
		return ErrCodeTimeout
	case errors.Is(err, ErrProtocolMismatch):
		return ErrCodeProtocol
	case errors.Is(err, ErrResourceExhausted):
		return ErrCodeResourceExhausted
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrFrameTooLarge):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrNotSupported), errors.Is(err, ErrAddrNotAvailable):
		return ErrCodeNotSupported
	}
	return ErrCodeInternal
}
