// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Kernel calls are requests to the SYSTEM task.
// The message type is KERNEL_CALL plus the call number.
const (
	KERNEL_CALL = 0x600

	SYS_EXIT     = KERNEL_CALL + 0 /* sys_exit(proc_nr) */
	SYS_KILL     = KERNEL_CALL + 1 /* sys_kill(proc_nr, sig) */
	SYS_GETKSIG  = KERNEL_CALL + 2 /* sys_getksig(&proc_nr, &sigmap) */
	SYS_ENDKSIG  = KERNEL_CALL + 3 /* sys_endksig(proc_nr) */
	SYS_SETALARM = KERNEL_CALL + 4 /* sys_setalarm(exp, abs, &left) */
	SYS_TIMES    = KERNEL_CALL + 5 /* sys_times(proc_nr, &times) */
	SYS_IRQCTL   = KERNEL_CALL + 6 /* sys_irqctl(req, irq, policy, &hook) */
	SYS_UMAP     = KERNEL_CALL + 7 /* sys_umap(proc_nr, seg, vir, bytes, &phys) */
	SYS_VIRCOPY  = KERNEL_CALL + 8 /* sys_vircopy(src, seg, vir, bytes, dst, seg, vir) */
	SYS_TRACE    = KERNEL_CALL + 9 /* sys_trace(proc_nr, req, addr, &data) */
)

var callVec [NR_SYS_CALLS]callEntry

type callEntry struct {
	name string
	impl func(k *Kernel, m *Message) Errno
}

func init() {
	callVec = [NR_SYS_CALLS]callEntry{
		{"exit", doExit},         /* 0 = exit */
		{"kill", doKill},         /* 1 = kill */
		{"getksig", doGetksig},   /* 2 = getksig */
		{"endksig", doEndksig},   /* 3 = endksig */
		{"setalarm", doSetalarm}, /* 4 = setalarm */
		{"times", doTimes},       /* 5 = times */
		{"irqctl", doIrqctl},     /* 6 = irqctl */
		{"umap", doUmap},         /* 7 = umap */
		{"vircopy", doVircopy},   /* 8 = vircopy */
		{"trace", doTrace},       /* 9 = trace */
	}
}

// CallNumber returns the kernel call named name, as in a call mask.
func CallNumber(name string) (int, bool) {
	for i, c := range callVec {
		if c.name == name {
			return KERNEL_CALL + i, true
		}
	}
	return 0, false
}

// CallName returns the name of kernel call nr.
func CallName(nr int) string {
	if i := nr - KERNEL_CALL; 0 <= i && i < NR_SYS_CALLS {
		return callVec[i].name
	}
	return "?"
}

// systemTask handles one kernel call and replies unless the handler
// says not to. The reply goes out through LockSend: the caller is
// known to be waiting for it.
func systemTask(k *Kernel, m *Message) {
	callNr := int(m.Type) - KERNEL_CALL
	rp := k.Proc(int(m.Source))

	var result Errno
	switch {
	case rp == nil:
		k.Log.Warnf("SYSTEM: request %#x from unknown process %d", m.Type, m.Source)
		return
	case callNr < 0 || callNr >= NR_SYS_CALLS:
		k.Log.Warnf("SYSTEM: illegal request %d from %d", callNr, m.Source)
		result = EBADREQUEST
	case rp.Priv.CallMask&(1<<callNr) == 0:
		k.Log.Warnf("SYSTEM: request %d from %d denied", callNr, m.Source)
		result = ECALLDENIED
	default:
		result = callVec[callNr].impl(k, m)
		if k.Trace {
			k.Log.Debugf("SYSTEM: %s from %v = %v", callVec[callNr].name, rp, result)
		}
	}

	if result == EDONTREPLY {
		return
	}
	m.Type = int32(result)
	buf := k.task[SYSTEM+NR_TASKS].buf
	if err := k.PutMessage(SYSTEM, buf, m); err != nil {
		k.panic("SYSTEM: %v", err)
	}
	if s := k.LockSend(SYSTEM, int(m.Source), buf); s != 0 {
		k.Log.Warnf("SYSTEM: reply to %d failed: %v", m.Source, s)
	}
}

// sendSig signals system process nr through a notification from SYSTEM.
func (k *Kernel) sendSig(nr, sig int) {
	rp := k.procAddr(nr)
	rp.Priv.SigPending |= 1 << sig
	k.LockNotify(SYSTEM, nr)
}

// Shutdown warns every system process that the kernel is going down
// by sending it SIGKSTOP. The kernel keeps running so they can finish.
func (k *Kernel) Shutdown() {
	for i := range k.proc {
		rp := &k.proc[i]
		if rp.iskernel() || rp.RtsFlags == SLOT_FREE || rp.Priv.Flags&SYS_PROC == 0 {
			continue
		}
		k.sendSig(rp.Nr, SIGKSTOP)
	}
}

// causeSig makes signal sig pending for process nr and tells PM.
// The process stops running until PM is done with it.
func (k *Kernel) causeSig(nr, sig int) {
	rp := k.procAddr(nr)
	if rp.Pending&(1<<sig) != 0 {
		return
	}
	rp.Pending |= 1 << sig
	if rp.RtsFlags&SIGNALED == 0 {
		if rp.RtsFlags == 0 {
			k.LockDequeue(rp)
		}
		rp.RtsFlags |= SIGNALED | SIG_PENDING
		k.sendSig(PM_PROC_NR, SIGKSIG)
	}
}

// ClearProc frees the slot of process nr. Its alarm is cancelled,
// it leaves the ready queue or the caller queue it is on, and its
// interrupt hooks and privilege structure are released.
// Processes blocked sending to it stay blocked.
func (k *Kernel) ClearProc(nr int) error {
	rc := k.Proc(nr)
	if rc == nil || rc.RtsFlags == SLOT_FREE {
		return EBADSRCDST
	}
	k.clearProc(rc)
	return nil
}

func (k *Kernel) clearProc(rc *Proc) {
	k.ResetTimer(&rc.Priv.AlarmTimer)

	if rc.RtsFlags == 0 {
		k.LockDequeue(rc)
	}

	if rc.RtsFlags&SENDING != 0 {
		im := k.disable("clear_proc")
		for i := range k.proc {
			rp := &k.proc[i]
			for xpp := &rp.callerQ; *xpp != NONE; xpp = &k.procAddr(*xpp).qLink {
				if *xpp == rc.Nr {
					*xpp = rc.qLink
					break
				}
			}
		}
		k.restore(im)
	}

	for i := range k.irqHooks {
		if hook := &k.irqHooks[i]; hook.ProcNr == rc.Nr {
			k.rmIRQHandler(hook)
			hook.ProcNr = NONE
		}
	}

	rc.RtsFlags = SLOT_FREE
	rc.qLink = NONE
	rc.callerQ = NONE
	if rc.Priv.Flags&SYS_PROC != 0 {
		rc.Priv.ProcNr = NONE
	}
	if k.prevPtr == rc {
		k.prevPtr = nil
	}
	if k.billPtr == rc {
		k.billPtr = nil
	}
}
