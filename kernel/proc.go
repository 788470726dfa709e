// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"strings"
)

// A Clock is a count of clock ticks.
type Clock int64

type (
	VirBytes   uint32
	VirClicks  uint32
	PhysBytes  uint32
	PhysClicks uint32
)

// A MemMap describes one segment of a process:
// its virtual and physical base and its length, all in clicks.
type MemMap struct {
	Vir  VirClicks
	Phys PhysClicks
	Len  VirClicks
}

// RtsFlags are the reasons a process cannot run.
type RtsFlags uint8

var rtsNames = []string{
	"SLOT_FREE",
	"NO_MAP",
	"SENDING",
	"RECEIVING",
	"SIGNALED",
	"SIG_PENDING",
	"P_STOP",
}

func (f RtsFlags) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for i, name := range rtsNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// A Proc is a process table slot.
type Proc struct {
	Nr   int    // process number, fixed for the slot
	Name string // truncated to P_NAME_LEN

	Priv     *Priv    // system privileges
	RtsFlags RtsFlags // SENDING, RECEIVING, etc.

	Priority    int // current scheduling priority
	MaxPriority int // highest priority the process may get
	TicksLeft   int // ticks left in the current quantum
	QuantumSize int // quantum size in ticks

	MemMap [NR_LOCAL_SEGS]MemMap

	UserTime Clock // user time in ticks
	SysTime  Clock // system time in ticks

	nextReady int      // next on the ready queue
	callerQ   int      // head of the processes wishing to send here
	qLink     int      // next on the caller queue this process is on
	messbuf   VirBytes // message buffer while blocked
	getFrom   int      // from whom the process wants to receive
	sendTo    int      // to whom the process wants to send

	Pending uint32 // pending kernel signals
}

func (p *Proc) String() string {
	return fmt.Sprintf("%s(%d)", p.Name, p.Nr)
}

// Runnable reports whether p has no reason not to run.
func (p *Proc) Runnable() bool {
	return p.RtsFlags == 0
}

// SendTo reports the process p is blocked sending to, if any.
func (p *Proc) SendTo() (int, bool) {
	if p.RtsFlags&SENDING == 0 {
		return NONE, false
	}
	return p.sendTo, true
}

// GetFrom reports the source p is blocked receiving from, if any.
func (p *Proc) GetFrom() (int, bool) {
	if p.RtsFlags&RECEIVING == 0 {
		return NONE, false
	}
	return p.getFrom, true
}

func iskerneln(n int) bool { return n < 0 }
func isusern(n int) bool   { return n >= 0 }

func (p *Proc) iskernel() bool { return iskerneln(p.Nr) }

// isokprocn reports whether n names a slot of the process table.
func isokprocn(n int) bool {
	return uint(n+NR_TASKS) < NR_PROCS+NR_TASKS
}

// Proc returns the slot of process number nr, or nil if nr is out of range.
func (k *Kernel) Proc(nr int) *Proc {
	if !isokprocn(nr) {
		return nil
	}
	return &k.proc[nr+NR_TASKS]
}

func (k *Kernel) procAddr(nr int) *Proc {
	return &k.proc[nr+NR_TASKS]
}

func (k *Kernel) isemptyn(n int) bool {
	return k.procAddr(n).RtsFlags == SLOT_FREE
}

// Lookup returns the live process called name.
func (k *Kernel) Lookup(name string) *Proc {
	for i := range k.proc {
		p := &k.proc[i]
		if p.RtsFlags != SLOT_FREE && p.Name == name {
			return p
		}
	}
	return nil
}

// Procs calls f for every occupied slot in process number order.
func (k *Kernel) Procs(f func(p *Proc)) {
	for i := range k.proc {
		if p := &k.proc[i]; p.RtsFlags != SLOT_FREE {
			f(p)
		}
	}
}
