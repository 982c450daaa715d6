// File: dpram/window.go
// Author: momentics <momentics@gmail.com>
//
// Frame window and device grouping.

package dpram

import "errors"

// Card layout: byte offsets inside the control region.
const (
	RegisterOffset = 0x1000
	WindowOffset   = 0x2000
	WindowSpan     = 0x2000
)

var (
	errRegisterOffset = errors.New("dpram: register offset out of range or unaligned")
	errWindowRange    = errors.New("dpram: window outside mapped region")
)

// Window is the shared frame region. Command and reply frames alias the same
// bytes; only one is meaningful at a time.
type Window []byte

// NewMemWindow allocates a heap-backed window.
func NewMemWindow(size int) Window { return make(Window, size) }

// MapWindow carves a window of size bytes at off out of a mapped region.
func MapWindow(mem []byte, off, size int) (Window, error) {
	if off < 0 || size <= 0 || off+size > len(mem) {
		return nil, errWindowRange
	}
	return Window(mem[off : off+size : off+size]), nil
}

// Device groups the control register and the frame window of one card.
type Device struct {
	Reg Register
	Win Window
}

// NewMemDevice builds an in-process device, as used with the simulated peer.
func NewMemDevice(windowSize int) (*Device, *MemRegister) {
	reg := NewMemRegister()
	return &Device{Reg: reg, Win: NewMemWindow(windowSize)}, reg
}
