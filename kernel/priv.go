// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "strings"

// PrivFlags are properties of a privilege structure.
type PrivFlags uint16

func (f PrivFlags) String() string {
	var names []string
	if f&PREEMPTIBLE != 0 {
		names = append(names, "P")
	}
	if f&BILLABLE != 0 {
		names = append(names, "B")
	}
	if f&SYS_PROC != 0 {
		names = append(names, "S")
	}
	if f&SENDREC_BUSY != 0 {
		names = append(names, "R")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "")
}

// A Priv holds the privileges of a system process.
// All ordinary processes share the one with ID USER_PRIV_ID.
type Priv struct {
	ProcNr int       // associated process, NONE if free
	ID     int       // index in the privilege table
	Flags  PrivFlags // PREEMPTIBLE, BILLABLE, etc.

	TrapMask uint16 // allowed traps, 1<<SEND etc.
	CallMask uint32 // allowed kernel calls
	IPCTo    SysMap // allowed destinations

	NotifyPending SysMap // pending notifications, by sender id
	IntPending    uint32 // pending hardware interrupts, by hook id
	SigPending    uint32 // pending signals

	AlarmTimer Timer     // synchronous alarm
	StackGuard PhysBytes // guard word of a kernel task stack, 0 if none
}

func (sp *Priv) reset() {
	*sp = Priv{ProcNr: NONE, ID: sp.ID}
	sp.AlarmTimer.init()
}

// getPriv assigns a privilege structure to rc.
// System processes get a free structure of their own;
// user processes share USER_PRIV_ID.
func (k *Kernel) getPriv(rc *Proc, sys bool) Errno {
	var sp *Priv
	if sys {
		for i := range k.priv {
			if p := &k.priv[i]; p.ProcNr == NONE && p.ID != USER_PRIV_ID {
				sp = p
				break
			}
		}
		if sp == nil {
			return ENOSPC
		}
		sp.reset()
		sp.ProcNr = rc.Nr
		rc.Priv = sp
		sp.Flags = SYS_PROC
	} else {
		rc.Priv = &k.priv[USER_PRIV_ID]
		rc.Priv.ProcNr = INIT_PROC_NR
		rc.Priv.Flags = 0
	}
	return 0
}

// nrToID returns the privilege id of process nr, or -1 if it has none.
func (k *Kernel) nrToID(nr int) int {
	rp := k.procAddr(nr)
	if rp.Priv == nil {
		return -1
	}
	return rp.Priv.ID
}

// idToNr returns the process owning privilege id.
func (k *Kernel) idToNr(id int) int {
	return k.priv[id].ProcNr
}

// PrivOf returns the privilege structure of process nr.
func (k *Kernel) PrivOf(nr int) *Priv {
	if p := k.Proc(nr); p != nil {
		return p.Priv
	}
	return nil
}
