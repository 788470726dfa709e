// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"encoding/binary"
	"fmt"
)

// Memory is the physical memory the kernel moves messages through.
type Memory interface {
	// Umap translates vir, a virtual address in segment seg of p,
	// to a physical address. It reports false if any of the
	// bytes bytes starting at vir falls outside the segment.
	Umap(p *Proc, seg int, vir, bytes VirBytes) (PhysBytes, bool)

	// PhysCopy copies n bytes between validated physical addresses.
	PhysCopy(src, dst, n PhysBytes)

	ReadPhys(addr PhysBytes, b []byte)
	WritePhys(addr PhysBytes, b []byte)
}

// An ArrayMem is a Memory backed by a byte slice.
type ArrayMem []byte

// NewArrayMem returns a memory of the given number of clicks.
func NewArrayMem(clicks int) ArrayMem {
	return make(ArrayMem, clicks<<CLICK_SHIFT)
}

func (m ArrayMem) Umap(rp *Proc, seg int, vir, bytes VirBytes) (PhysBytes, bool) {
	if bytes == 0 {
		return 0, false
	}
	if vir+bytes <= vir {
		return 0, false /* overflow */
	}
	vlo := VirClicks(vir >> CLICK_SHIFT)              /* first click of data */
	vc := VirClicks((vir + bytes - 1) >> CLICK_SHIFT) /* last click of data */

	// D and S are one address space, usually with a gap in the middle.
	// A range may cross from D into S only if there is no gap.
	mm := &rp.MemMap[seg]
	if seg != T {
		d, s := &rp.MemMap[D], &rp.MemMap[S]
		switch {
		case vc < d.Vir+d.Len:
			mm = d
		case vlo >= s.Vir:
			mm = s
		case d.Vir+d.Len == s.Vir && d.Phys+PhysClicks(d.Len) == s.Phys:
			mm = &MemMap{Vir: d.Vir, Phys: d.Phys, Len: d.Len + s.Len}
		default:
			return 0, false
		}
	}
	if vlo < mm.Vir || vc >= mm.Vir+mm.Len {
		return 0, false
	}
	pa := PhysBytes(mm.Phys)<<CLICK_SHIFT + PhysBytes(vir) - PhysBytes(mm.Vir)<<CLICK_SHIFT
	if int(pa)+int(bytes) > len(m) {
		return 0, false
	}
	return pa, true
}

func (m ArrayMem) PhysCopy(src, dst, n PhysBytes) {
	copy(m[dst:dst+n], m[src:src+n])
}

func (m ArrayMem) ReadPhys(addr PhysBytes, b []byte) {
	copy(b, m[addr:])
}

func (m ArrayMem) WritePhys(addr PhysBytes, b []byte) {
	copy(m[addr:], b)
}

// validMessBuf reports whether a message at vir lies between the
// start of the data segment and the end of the stack segment of rp.
func validMessBuf(rp *Proc, vir VirBytes) bool {
	vlo := VirClicks(vir >> CLICK_SHIFT)
	vhi := VirClicks((vir + MESS_SIZE - 1) >> CLICK_SHIFT)
	return !(vlo < rp.MemMap[D].Vir || vlo > vhi ||
		vhi >= rp.MemMap[S].Vir+rp.MemMap[S].Len)
}

// copyMess copies the message at svir in sp to dvir in dp,
// stamping it with source src.
func (k *Kernel) copyMess(src int, sp *Proc, svir VirBytes, dp *Proc, dvir VirBytes) {
	from, ok1 := k.Mem.Umap(sp, D, svir, MESS_SIZE)
	to, ok2 := k.Mem.Umap(dp, D, dvir, MESS_SIZE)
	if !ok1 || !ok2 {
		k.panic("copyMess: bad message address %#x in %v or %#x in %v", svir, sp, dvir, dp)
	}
	k.Mem.PhysCopy(from, to, MESS_SIZE)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(src)))
	k.Mem.WritePhys(to, b[:])
}

// deliver writes a message assembled by the kernel to dvir in dp.
func (k *Kernel) deliver(m *Message, dp *Proc, dvir VirBytes) {
	to, ok := k.Mem.Umap(dp, D, dvir, MESS_SIZE)
	if !ok {
		k.panic("deliver: bad message address %#x in %v", dvir, dp)
	}
	var b [MESS_SIZE]byte
	m.marshal(b[:])
	k.Mem.WritePhys(to, b[:])
}

// PutMessage stores m at vir in the address space of process nr.
func (k *Kernel) PutMessage(nr int, vir VirBytes, m *Message) error {
	rp := k.Proc(nr)
	if rp == nil || rp.RtsFlags == SLOT_FREE {
		return fmt.Errorf("put message: %w", EBADSRCDST)
	}
	pa, ok := k.Mem.Umap(rp, D, vir, MESS_SIZE)
	if !ok {
		return fmt.Errorf("put message at %#x in %v: %w", vir, rp, EFAULT)
	}
	var b [MESS_SIZE]byte
	m.marshal(b[:])
	k.Mem.WritePhys(pa, b[:])
	return nil
}

// GetMessage loads the message at vir in the address space of process nr.
func (k *Kernel) GetMessage(nr int, vir VirBytes) (Message, error) {
	var m Message
	rp := k.Proc(nr)
	if rp == nil || rp.RtsFlags == SLOT_FREE {
		return m, fmt.Errorf("get message: %w", EBADSRCDST)
	}
	pa, ok := k.Mem.Umap(rp, D, vir, MESS_SIZE)
	if !ok {
		return m, fmt.Errorf("get message at %#x in %v: %w", vir, rp, EFAULT)
	}
	var b [MESS_SIZE]byte
	k.Mem.ReadPhys(pa, b[:])
	m.unmarshal(b[:])
	return m, nil
}
