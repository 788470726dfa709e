// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

const _NSIG = 31

// doKill handles SYS_KILL. Signals from PM go straight to system
// processes as notifications; all others are left for PM to handle.
func doKill(k *Kernel, m *Message) Errno {
	nr := int(m.M[SIG_PROC])
	sig := int(m.M[SIG_NUMBER])
	if !isokprocn(nr) || sig <= 0 || sig > _NSIG {
		return EINVAL
	}
	if iskerneln(nr) {
		return EPERM
	}
	if k.isemptyn(nr) {
		return EINVAL
	}
	if m.Source == PM_PROC_NR {
		if k.procAddr(nr).Priv.Flags&SYS_PROC == 0 {
			return EPERM
		}
		k.sendSig(nr, sig)
		return 0
	}
	k.causeSig(nr, sig)
	return 0
}

// doGetksig handles SYS_GETKSIG: PM collects the signals of one
// signaled process, or NONE if there are none.
func doGetksig(k *Kernel, m *Message) Errno {
	for nr := 0; nr < NR_PROCS; nr++ {
		rp := k.procAddr(nr)
		if rp.RtsFlags&SIGNALED != 0 {
			m.M[SIG_PROC] = int32(nr)
			m.M[SIG_MAP] = int32(rp.Pending)
			rp.Pending = 0
			rp.RtsFlags &^= SIGNALED /* still blocked by SIG_PENDING */
			return 0
		}
	}
	m.M[SIG_PROC] = NONE
	return 0
}

// doEndksig handles SYS_ENDKSIG: PM is done with the signals of a
// process, which may run again.
func doEndksig(k *Kernel, m *Message) Errno {
	nr := int(m.M[SIG_PROC])
	if !isokprocn(nr) {
		return EINVAL
	}
	if iskerneln(nr) {
		return EPERM
	}
	rp := k.procAddr(nr)
	if rp.RtsFlags&SIG_PENDING == 0 {
		return EINVAL
	}
	if rp.RtsFlags &^= SIG_PENDING; rp.RtsFlags == 0 {
		k.LockEnqueue(rp)
	}
	return 0
}
