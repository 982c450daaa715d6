// File: dpram/register.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control register bit layout and access helpers.

package dpram

import (
	"sync/atomic"
	"unsafe"
)

// Write mode flag. A write with SetFlag ORs the low bits into the register,
// a write without it clears them.
const (
	SetFlag   uint32 = 0x80000000
	ClearFlag uint32 = 0x00000000
)

// Host-relative bit assignments.
const (
	IEPeer  uint32 = 1 << 0 // peer interrupt enable
	IEHost  uint32 = 1 << 1 // host interrupt enable
	MPPeer  uint32 = 1 << 2 // message pending, host -> peer
	MPHost  uint32 = 1 << 3 // message pending, peer -> host
	MRPeer  uint32 = 1 << 4 // message received by peer
	MRHost  uint32 = 1 << 5 // message received by host
	IEEthRx uint32 = 1 << 6
	IEEthTx uint32 = 1 << 7
	IEEthSt uint32 = 1 << 8
	IFEthRx uint32 = 1 << 9
	IFEthTx uint32 = 1 << 10
	IFEthSt uint32 = 1 << 11
)

// ProtocolBits are every flag the host clears on bring-up and shutdown.
const ProtocolBits = MPHost | MPPeer | MRHost | MRPeer | IEHost |
	IEEthRx | IEEthSt | IEEthTx | IFEthRx | IFEthSt | IFEthTx

// Register is a 32-bit control register. Store hands the raw write value to
// the register, which applies it as a set or clear mask.
type Register interface {
	Load() uint32
	Store(v uint32)
}

// Set ORs bits into r.
func Set(r Register, bits uint32) { r.Store(SetFlag | bits) }

// Clear removes bits from r.
func Clear(r Register, bits uint32) { r.Store(ClearFlag | (bits &^ SetFlag)) }

// Has reports whether all bits are set.
func Has(r Register, bits uint32) bool { return r.Load()&bits == bits }

// ClearAll drops every protocol and ethernet interrupt flag.
func ClearAll(r Register) { Clear(r, ProtocolBits) }

// Apply computes the register value after write v, given the current value.
func Apply(cur, v uint32) uint32 {
	if v&SetFlag != 0 {
		return cur | (v &^ SetFlag)
	}
	return cur &^ v
}

// MemRegister is an in-process register that performs the set/clear logic
// itself. The simulated peer and the tests share one.
type MemRegister struct {
	val     atomic.Uint32
	observe atomic.Pointer[func(old, new uint32)]
}

// NewMemRegister returns a zeroed register.
func NewMemRegister() *MemRegister { return &MemRegister{} }

// Load returns the current value.
func (r *MemRegister) Load() uint32 { return r.val.Load() }

// Store applies v as a set/clear mask.
func (r *MemRegister) Store(v uint32) {
	for {
		cur := r.val.Load()
		next := Apply(cur, v)
		if r.val.CompareAndSwap(cur, next) {
			if fn := r.observe.Load(); fn != nil && cur != next {
				(*fn)(cur, next)
			}
			return
		}
	}
}

// Observe installs fn as a write hook, called after each change with the old
// and new value. Passing nil removes it.
func (r *MemRegister) Observe(fn func(old, new uint32)) {
	if fn == nil {
		r.observe.Store(nil)
		return
	}
	r.observe.Store(&fn)
}

// MappedRegister is a register word inside a memory-mapped region. The
// hardware applies the set/clear semantics; the host only performs plain
// 32-bit loads and stores.
type MappedRegister struct {
	addr *uint32
}

// NewMappedRegister binds a register to mem[off:off+4]. off must be 4-byte
// aligned and the mapping must outlive the register.
func NewMappedRegister(mem []byte, off int) (*MappedRegister, error) {
	if off < 0 || off%4 != 0 || off+4 > len(mem) {
		return nil, errRegisterOffset
	}
	return &MappedRegister{addr: (*uint32)(unsafe.Pointer(&mem[off]))}, nil
}

func (r *MappedRegister) Load() uint32   { return atomic.LoadUint32(r.addr) }
func (r *MappedRegister) Store(v uint32) { atomic.StoreUint32(r.addr, v) }
