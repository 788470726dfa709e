// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "encoding/binary"

/*
 * Add rp to the end of one of the ready queues.
 * Called when a process is newly runnable.
 */
func (k *Kernel) enqueue(rp *Proc) {
	q, front := k.sched(rp)

	switch {
	case k.rdyHead[q] == NONE: /* add to empty queue */
		k.rdyHead[q] = rp.Nr
		k.rdyTail[q] = rp.Nr
		rp.nextReady = NONE
	case front: /* add to head of queue */
		rp.nextReady = k.rdyHead[q]
		k.rdyHead[q] = rp.Nr
	default: /* add to tail of queue */
		k.procAddr(k.rdyTail[q]).nextReady = rp.Nr
		k.rdyTail[q] = rp.Nr
		rp.nextReady = NONE
	}

	k.pickProc()
}

/*
 * Take rp off its ready queue.
 * Called when a process is about to block.
 */
func (k *Kernel) dequeue(rp *Proc) {
	q := rp.Priority

	// Kernel tasks run on small fixed stacks; this is where an overrun
	// gets noticed.
	if rp.iskernel() && rp.Priv.StackGuard != 0 {
		var b [4]byte
		k.Mem.ReadPhys(rp.Priv.StackGuard, b[:])
		if binary.LittleEndian.Uint32(b[:]) != STACK_GUARD {
			k.panic("stack overrun by task %d", rp.Nr)
		}
	}

	prev := NONE
	for xp := k.rdyHead[q]; xp != NONE; xp = k.procAddr(xp).nextReady {
		if xp != rp.Nr {
			prev = xp
			continue
		}
		if prev == NONE {
			k.rdyHead[q] = rp.nextReady
		} else {
			k.procAddr(prev).nextReady = rp.nextReady
		}
		if k.rdyTail[q] == rp.Nr {
			k.rdyTail[q] = prev
		}
		rp.nextReady = NONE
		if rp == k.procPtr || rp == k.nextPtr {
			k.pickProc()
		}
		break
	}
}

/*
 * Decide where rp goes: which queue, and whether at the front.
 * A process that used up its quantum gets a new one and goes to the
 * back. Using up two quanta in a row costs a priority level; using
 * one up after someone else did earns one back. Kernel tasks keep
 * their priority.
 */
func (k *Kernel) sched(rp *Proc) (queue int, front bool) {
	timeLeft := rp.TicksLeft > 0
	penalty := 0

	if !timeLeft {
		rp.TicksLeft = rp.QuantumSize
		if k.prevSched == rp.Nr {
			penalty++ /* catch infinite loops */
		} else {
			penalty-- /* give slow way back */
		}
		k.prevSched = rp.Nr
	}

	if penalty != 0 && !rp.iskernel() {
		rp.Priority += penalty
		if rp.Priority < rp.MaxPriority {
			rp.Priority = rp.MaxPriority
		} else if rp.Priority > IDLE_Q-1 {
			rp.Priority = IDLE_Q - 1
		}
	}

	return rp.Priority, timeLeft
}

/*
 * Choose the next process to run: the head of the highest-priority
 * non-empty queue. IDLE is always on the last one.
 */
func (k *Kernel) pickProc() {
	for q := 0; q < NR_SCHED_QUEUES; q++ {
		if nr := k.rdyHead[q]; nr != NONE {
			rp := k.procAddr(nr)
			k.nextPtr = rp
			if rp.Priv.Flags&BILLABLE != 0 {
				k.billPtr = rp
			}
			return
		}
	}
}

// LockEnqueue makes rp runnable. Its flags must already be zero.
func (k *Kernel) LockEnqueue(rp *Proc) {
	im := k.disable("enqueue")
	defer k.restore(im)
	k.enqueue(rp)
}

// LockDequeue takes rp off the ready queues.
func (k *Kernel) LockDequeue(rp *Proc) {
	im := k.disable("dequeue")
	defer k.restore(im)
	k.dequeue(rp)
}

// Queue returns the process numbers on ready queue q, head first.
func (k *Kernel) Queue(q int) []int {
	var nrs []int
	for xp := k.rdyHead[q]; xp != NONE; xp = k.procAddr(xp).nextReady {
		nrs = append(nrs, xp)
	}
	return nrs
}

// Next returns the process chosen to run next.
func (k *Kernel) Next() *Proc { return k.nextPtr }

// Current returns the process that is running.
func (k *Kernel) Current() *Proc { return k.procPtr }

// Bill returns the process charged for system time.
func (k *Kernel) Bill() *Proc { return k.billPtr }
