// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// A TimerFunc is the watchdog run when a timer expires.
// It runs in the clock task and must not block;
// it may only change kernel state and send notifications.
type TimerFunc func(tp *Timer)

// A Timer is a watchdog on the clock's timer queue.
// It belongs to whoever armed it.
type Timer struct {
	next    *Timer
	ExpTime Clock
	Func    TimerFunc
	Arg     int
}

func (tp *Timer) init() {
	tp.next = nil
	tp.ExpTime = TMR_NEVER
}

// Armed reports whether tp is waiting to expire.
func (tp *Timer) Armed() bool {
	return tp.ExpTime != TMR_NEVER
}

/*
 * Timer queue operations.
 * The queue is sorted by expiration time; timers with equal times
 * expire in the order they were set.
 */

func tmrsClrTimer(tmrs **Timer, tp *Timer) {
	for atp := tmrs; *atp != nil; atp = &(*atp).next {
		if *atp == tp {
			*atp = tp.next
			break
		}
	}
	tp.init()
}

func tmrsSetTimer(tmrs **Timer, tp *Timer, exp Clock, watchdog TimerFunc) {
	tmrsClrTimer(tmrs, tp)
	tp.ExpTime = exp
	if watchdog != nil {
		tp.Func = watchdog
	}
	atp := tmrs
	for ; *atp != nil; atp = &(*atp).next {
		if exp < (*atp).ExpTime {
			break
		}
	}
	tp.next = *atp
	*atp = tp
}

// SetTimer arms tp to run watchdog at realtime exp.
// A timer that is already armed is moved.
func (k *Kernel) SetTimer(tp *Timer, exp Clock, watchdog TimerFunc) {
	im := k.disable("set_timer")
	defer k.restore(im)
	tmrsSetTimer(&k.clockTimers, tp, exp, watchdog)
	k.nextTimeout = k.clockTimers.ExpTime
}

// ResetTimer disarms tp. It is a no-op if tp is not armed.
func (k *Kernel) ResetTimer(tp *Timer) {
	im := k.disable("reset_timer")
	defer k.restore(im)
	tmrsClrTimer(&k.clockTimers, tp)
	if k.clockTimers == nil {
		k.nextTimeout = TMR_NEVER
	} else {
		k.nextTimeout = k.clockTimers.ExpTime
	}
}

// NextTimeout returns when the next timer expires, or TMR_NEVER.
func (k *Kernel) NextTimeout() Clock { return k.nextTimeout }

// Uptime returns the number of ticks since boot.
func (k *Kernel) Uptime() Clock { return Clock(k.realtime.Load()) }

// expTimers runs the watchdogs of all timers that expired by now.
// Each timer is taken off the queue before its watchdog runs,
// so a watchdog may set its timer again.
func (k *Kernel) expTimers(now Clock) {
	for {
		im := k.disable("exptimers")
		tp := k.clockTimers
		if tp == nil || tp.ExpTime > now {
			k.restore(im)
			break
		}
		k.clockTimers = tp.next
		tp.init()
		k.restore(im)
		if tp.Func != nil {
			tp.Func(tp)
		}
	}
	im := k.disable("exptimers")
	if k.clockTimers == nil {
		k.nextTimeout = TMR_NEVER
	} else {
		k.nextTimeout = k.clockTimers.ExpTime
	}
	k.restore(im)
}

/*
 * The clock interrupt handler does as little as possible:
 * it advances realtime, charges the running process, and wakes the
 * clock task only when a quantum ran out or a timer is due.
 * It runs with interrupts disabled.
 */
func (k *Kernel) clockHandler(hook *IRQHook) bool {
	ticks := Clock(1)
	now := Clock(k.realtime.Add(int64(ticks)))

	// Charge the running process for user time. An unbillable process
	// runs on behalf of the last billable one, which gets charged for
	// system time as well.
	if rp := k.procPtr; rp != nil {
		rp.UserTime += ticks
		if rp.Priv.Flags&PREEMPTIBLE != 0 {
			rp.TicksLeft -= int(ticks)
		}
		if rp.Priv.Flags&BILLABLE == 0 && k.billPtr != nil {
			k.billPtr.SysTime += ticks
			k.billPtr.TicksLeft -= int(ticks)
		}
		if k.nextTimeout <= now || rp.TicksLeft <= 0 {
			k.prevPtr = rp
			k.miniNotify(k.procAddr(HARDWARE), CLOCK)
		}
	} else if k.nextTimeout <= now {
		k.miniNotify(k.procAddr(HARDWARE), CLOCK)
	}
	return true
}

// clockTask is the deferred half of the clock interrupt.
func clockTask(k *Kernel, m *Message) {
	switch m.Type {
	case HARD_INT:
		k.doClocktick()
	default:
		k.Log.Warnf("CLOCK: illegal request %d from %d", m.Type, m.Source)
	}
}

func (k *Kernel) doClocktick() {
	// The process that used up its quantum goes to the back of its
	// queue with a fresh one.
	if rp := k.prevPtr; rp != nil {
		k.prevPtr = nil
		if rp.RtsFlags == 0 && rp.TicksLeft <= 0 && rp.Priv.Flags&PREEMPTIBLE != 0 {
			k.LockDequeue(rp)
			k.LockEnqueue(rp)
		}
	}

	if now := k.Uptime(); k.nextTimeout <= now {
		k.expTimers(now)
	}
}
