// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "encoding/binary"

/* trace requests */
const (
	T_STOP    = -1 /* stop the process */
	T_GETINS  = 1  /* return a word from text space */
	T_GETDATA = 2  /* return a word from data space */
	T_SETINS  = 4  /* set a word in text space */
	T_SETDATA = 5  /* set a word in data space */
	T_RESUME  = 7  /* resume execution */
)

// doTrace handles SYS_TRACE for a debugger working through PM.
// A stopped process keeps P_STOP until it is resumed; its words can
// be read and written at any time.
func doTrace(k *Kernel, m *Message) Errno {
	nr := int(m.M[CTL_PROC_NR])
	if !isokprocn(nr) {
		return EINVAL
	}
	if iskerneln(nr) {
		return EPERM
	}
	if k.isemptyn(nr) {
		return EIO
	}
	rp := k.procAddr(nr)
	addr := VirBytes(m.M[CTL_ADDRESS])

	req := m.M[CTL_REQUEST]
	switch req {
	case T_STOP:
		if rp.RtsFlags == 0 {
			k.LockDequeue(rp)
		}
		rp.RtsFlags |= P_STOP
		return 0

	case T_GETINS, T_GETDATA:
		pa, ok := k.Mem.Umap(rp, traceSeg(rp, req == T_GETINS), addr, 4)
		if !ok {
			return EIO
		}
		var b [4]byte
		k.Mem.ReadPhys(pa, b[:])
		m.M[CTL_DATA] = int32(binary.LittleEndian.Uint32(b[:]))

	case T_SETINS, T_SETDATA:
		pa, ok := k.Mem.Umap(rp, traceSeg(rp, req == T_SETINS), addr, 4)
		if !ok {
			return EIO
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(m.M[CTL_DATA]))
		k.Mem.WritePhys(pa, b[:])
		m.M[CTL_DATA] = 0

	case T_RESUME:
		if rp.RtsFlags&P_STOP != 0 {
			if rp.RtsFlags &^= P_STOP; rp.RtsFlags == 0 {
				k.LockEnqueue(rp)
			}
		}
		m.M[CTL_DATA] = 0

	default:
		return EIO
	}
	return 0
}

// traceSeg returns the segment a trace request addresses.
// Without separate text, text space is data space.
func traceSeg(rp *Proc, text bool) int {
	if text && rp.MemMap[T].Len != 0 {
		return T
	}
	return D
}
