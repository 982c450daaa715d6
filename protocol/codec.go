// File: protocol/codec.go
// Author: momentics <momentics@gmail.com>
//
// Field helpers for fixed-width C-style fields.

package protocol

import "bytes"

// putString writes s NUL-padded into a field of n bytes, keeping a terminator.
func putString(p []byte, s string, n int) {
	f := p[:n]
	clear(f)
	if len(s) > n-1 {
		s = s[:n-1]
	}
	copy(f, s)
}

// getString reads a NUL-terminated string from a field of n bytes.
func getString(p []byte, n int) string {
	f := p[:n]
	if i := bytes.IndexByte(f, 0); i >= 0 {
		f = f[:i]
	}
	return string(f)
}

func putBool(p []byte, v bool) {
	if v {
		p[0] = 1
	} else {
		p[0] = 0
	}
}

func boolU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// Bare is a command without payload.
type Bare CommandID

func (b Bare) CommandID() CommandID { return CommandID(b) }
func (Bare) PayloadSize() int { return 0 }
func (Bare) MarshalPayload(p []byte) error { return nil }
func (Bare) UnmarshalPayload(p []byte) error { return nil }
