// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernel implements the core of a small message-passing
// microkernel: the process table, synchronous IPC with notifications,
// a multilevel priority scheduler, the timer queue, and the clock and
// system tasks that sit on top of them.
//
// The kernel is hosted. Processes are slots in the process table with
// memory in an ArrayMem; whatever plays the part of a process calls
// SysCall on its behalf, and Restart runs the kernel tasks until a
// non-task process is due to run. Interrupts come from a simulated PIC.
package kernel

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// A Kernel is one running instance of the kernel.
type Kernel struct {
	Big      sync.Mutex   // held while interrupts are disabled
	kReenter atomic.Int32 // -1 at task level, >= 0 in interrupt or trap

	Log   *logrus.Logger
	Trace bool
	Mem   Memory
	IRQ   IRQController
	HZ    int

	proc [NR_TASKS + NR_PROCS]Proc
	priv [NR_SYS_PROCS]Priv

	rdyHead [NR_SCHED_QUEUES]int // heads of the ready queues
	rdyTail [NR_SCHED_QUEUES]int // tails of the ready queues

	procPtr   *Proc // running
	nextPtr   *Proc // to run next
	billPtr   *Proc // charged for system time
	prevPtr   *Proc // ran out of quantum at the last clock interrupt
	prevSched int   // last process given a new quantum

	realtime    atomic.Int64
	clockTimers *Timer
	nextTimeout Clock
	clockHook   IRQHook

	irqHandlers [NR_IRQ_VECTORS]*IRQHook
	irqHooks    [NR_IRQ_HOOKS]IRQHook
	irqActIDs   [NR_IRQ_VECTORS]uint16
	irqUse      uint16

	task     [NR_TASKS]taskState
	memClick PhysClicks // next free click
	memSize  PhysClicks
}

// A taskState is the part of a kernel task that lives outside its slot:
// the code it runs for each message and where it receives messages.
type taskState struct {
	body    func(k *Kernel, m *Message)
	buf     VirBytes
	started bool
}

// NewKernel returns a kernel with empty tables, memory of the given
// number of clicks and a PIC with every line masked.
// If log is nil, a standard logrus logger is used.
func NewKernel(memClicks int, log *logrus.Logger) *Kernel {
	if log == nil {
		log = logrus.New()
	}
	k := &Kernel{
		Log:       log,
		Mem:       NewArrayMem(memClicks),
		IRQ:       NewPIC(),
		HZ:        HZ,
		prevSched: NONE,
		memClick:  1, /* click 0 belongs to the kernel */
		memSize:   PhysClicks(memClicks),
	}
	k.kReenter.Store(-1)
	k.nextTimeout = TMR_NEVER

	for i := range k.proc {
		rp := &k.proc[i]
		rp.Nr = i - NR_TASKS
		rp.RtsFlags = SLOT_FREE
		rp.nextReady = NONE
		rp.callerQ = NONE
		rp.qLink = NONE
		rp.getFrom = NONE
		rp.sendTo = NONE
	}
	for i := range k.priv {
		sp := &k.priv[i]
		sp.ID = i
		sp.reset()
	}
	for q := range k.rdyHead {
		k.rdyHead[q] = NONE
		k.rdyTail[q] = NONE
	}
	for i := range k.irqHooks {
		k.irqHooks[i].ProcNr = NONE
	}

	k.task[CLOCK+NR_TASKS].body = clockTask
	k.task[SYSTEM+NR_TASKS].body = systemTask
	return k
}

// Boot starts the kernel described by c: it loads the boot image,
// hooks the clock interrupt and runs the kernel tasks until they wait.
func Boot(c *Config, log *logrus.Logger) (*Kernel, error) {
	k := NewKernel(c.Memory, log)
	if c.HZ > 0 {
		k.HZ = c.HZ
	}
	for i := range c.Image {
		if err := k.Spawn(&c.Image[i]); err != nil {
			return nil, err
		}
	}
	// Send masks name processes by privilege id, which exist only
	// once the whole image has been loaded.
	for i := range c.Image {
		k.setIPCTo(&c.Image[i])
	}

	k.putIRQHandler(&k.clockHook, CLOCK_IRQ, k.clockHandler)
	k.Restart()
	return k, nil
}

// Spawn fills the free slot e.Nr from e and makes it runnable.
// HARDWARE is only a source of notifications and never runs.
func (k *Kernel) Spawn(e *ImageEntry) error {
	rp := k.Proc(e.Nr)
	if rp == nil {
		return fmt.Errorf("spawn %s: invalid process number %d", e.Name, e.Nr)
	}
	if rp.RtsFlags != SLOT_FREE {
		return fmt.Errorf("spawn %s: slot %d in use by %v", e.Name, e.Nr, rp)
	}

	base, err := k.allocMem(e.Text + e.Data + e.Stack)
	if err != nil {
		return fmt.Errorf("spawn %s: %v", e.Name, err)
	}
	if errno := k.getPriv(rp, e.Flags&SYS_PROC != 0); errno != 0 {
		return fmt.Errorf("spawn %s: %w", e.Name, errno)
	}
	sp := rp.Priv
	sp.Flags |= e.Flags
	sp.TrapMask = e.Traps
	sp.CallMask = e.Calls
	k.setIPCTo(e)

	name := e.Name
	if len(name) > P_NAME_LEN {
		name = name[:P_NAME_LEN]
	}
	rp.Name = name
	rp.Priority = e.Queue
	rp.MaxPriority = e.Queue
	rp.QuantumSize = e.Quantum
	rp.TicksLeft = e.Quantum
	rp.UserTime = 0
	rp.SysTime = 0
	rp.Pending = 0
	rp.nextReady = NONE
	rp.callerQ = NONE
	rp.qLink = NONE
	rp.getFrom = NONE
	rp.sendTo = NONE

	text := PhysClicks(e.Text)
	data := PhysClicks(e.Data)
	rp.MemMap[T] = MemMap{Vir: 0, Phys: base, Len: VirClicks(e.Text)}
	rp.MemMap[D] = MemMap{Vir: 0, Phys: base + text, Len: VirClicks(e.Data)}
	rp.MemMap[S] = MemMap{Vir: VirClicks(e.Data), Phys: base + text + data, Len: VirClicks(e.Stack)}

	if rp.iskernel() {
		t := &k.task[rp.Nr+NR_TASKS]
		t.started = false
		t.buf = 0
		if e.Stack > 0 {
			guard := PhysBytes(rp.MemMap[S].Phys) << CLICK_SHIFT
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], STACK_GUARD)
			k.Mem.WritePhys(guard, b[:])
			sp.StackGuard = guard
		}
	}

	if rp.Nr == HARDWARE {
		rp.RtsFlags = NO_MAP
		return nil
	}
	rp.RtsFlags = 0
	k.LockEnqueue(rp)
	return nil
}

func (k *Kernel) setIPCTo(e *ImageEntry) {
	sp := k.procAddr(e.Nr).Priv
	if sp == nil {
		return
	}
	if e.IPCAll {
		sp.IPCTo.Fill(^uint32(0))
		return
	}
	for _, nr := range e.IPCTo {
		if !isokprocn(nr) {
			continue
		}
		if id := k.nrToID(nr); id >= 0 {
			sp.IPCTo.Set(id)
		}
	}
}

// allocMem hands out n clicks of physical memory. Memory is never
// given back; the boot image is all there is.
func (k *Kernel) allocMem(n int) (PhysClicks, error) {
	if n < 0 || k.memClick+PhysClicks(n) > k.memSize {
		return 0, fmt.Errorf("out of memory: need %d clicks, have %d", n, k.memSize-k.memClick)
	}
	base := k.memClick
	k.memClick += PhysClicks(n)
	return base, nil
}

// Restart runs kernel tasks for as long as one is chosen to run
// and returns the first other process chosen.
// A task runs by handling the message it last received and
// then receiving the next one.
func (k *Kernel) Restart() *Proc {
	for {
		rp := k.nextPtr
		k.procPtr = rp
		if rp == nil || !rp.iskernel() {
			return rp
		}
		t := &k.task[rp.Nr+NR_TASKS]
		if t.body == nil {
			return rp
		}
		if t.started {
			m, err := k.GetMessage(rp.Nr, t.buf)
			if err != nil {
				k.panic("%v: %v", rp, err)
			}
			t.body(k, &m)
		}
		t.started = true
		if e := k.SysCall(rp.Nr, RECEIVE, ANY, t.buf); e != 0 {
			k.panic("%v: receive: %v", rp, e)
		}
	}
}

// Tick lets one clock tick pass while the process chosen to run is
// running: it raises the clock interrupt, handles it and runs the
// tasks it woke. It returns the process to run next.
func (k *Kernel) Tick() *Proc {
	k.Restart()
	k.IRQ.Raise(CLOCK_IRQ)
	k.Dispatch()
	return k.Restart()
}

func (k *Kernel) panic(format string, args ...any) {
	k.Log.Panicf(format, args...)
}
