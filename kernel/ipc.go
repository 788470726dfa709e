// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// SysCall performs trap call on behalf of process caller:
// send to, receive from, or notify srcDst, using the message at mptr
// in the caller's address space. The caller becomes the running process.
//
// Every check happens before any process is touched, so a failed call
// leaves the caller exactly as it was.
func (k *Kernel) SysCall(caller, call, srcDst int, mptr VirBytes) Errno {
	k.enter()
	defer k.leave()

	rp := k.Proc(caller)
	if rp == nil || rp.RtsFlags == SLOT_FREE {
		k.Log.Warnf("sys_call: no such caller %d", caller)
		return EBADSRCDST
	}
	if rp.RtsFlags != 0 {
		k.Log.Warnf("sys_call: caller %v is not runnable (%v)", rp, rp.RtsFlags)
		return ECALLDENIED
	}
	k.procPtr = rp

	function := call & SYSCALL_FUNC
	flags := call & SYSCALL_FLAGS

	// Tasks always reply and never block waiting for the caller to
	// receive, so the only traps that may name one are SENDREC and RECEIVE.
	if rp.Priv.TrapMask&(1<<function) == 0 ||
		iskerneln(srcDst) && function != SENDREC && function != RECEIVE {
		k.Log.Warnf("sys_call: trap %d not allowed, caller %d, src_dst %d", function, caller, srcDst)
		return ECALLDENIED
	}

	if !(isokprocn(srcDst) || srcDst == ANY || function == ECHO) {
		k.Log.Warnf("sys_call: invalid src_dst, src_dst %d, caller %d", srcDst, caller)
		return EBADSRCDST
	}

	// The message may be anywhere from the start of data to the end of
	// stack, but all of it must be mapped.
	if function&CHECK_PTR != 0 {
		if _, ok := k.Mem.Umap(rp, D, mptr, MESS_SIZE); !ok || !validMessBuf(rp, mptr) {
			k.Log.Warnf("sys_call: invalid message pointer %#x, trap %d, caller %d", mptr, function, caller)
			return EFAULT
		}
	}

	if function&CHECK_DST != 0 {
		if srcDst == ANY {
			k.Log.Warnf("sys_call: trap %d to ANY, caller %d", function, caller)
			return EBADSRCDST
		}
		if k.isemptyn(srcDst) {
			k.Log.Warnf("sys_call: dead dest; %d, %d, %d", function, caller, srcDst)
			return EDEADDST
		}
		if !rp.Priv.IPCTo.Test(k.nrToID(srcDst)) {
			k.Log.Warnf("sys_call: ipc mask denied %d sending to %d", caller, srcDst)
			return ECALLDENIED
		}
	}

	var result Errno
	switch function {
	case SENDREC:
		result = k.sendRec(rp, srcDst, mptr, flags)
	case SEND:
		result = k.miniSend(rp, srcDst, mptr, flags)
	case RECEIVE:
		rp.Priv.Flags &^= SENDREC_BUSY
		result = k.miniReceive(rp, srcDst, mptr, flags)
	case NOTIFY:
		result = k.miniNotify(rp, srcDst)
	case ECHO:
		k.copyMess(rp.Nr, rp, mptr, rp, mptr)
		result = 0
	default:
		result = EBADCALL
	}
	if k.Trace {
		k.Log.Debugf("%v %s %s %#x = %v", rp, trapName(function), procName(srcDst), mptr, result)
	}
	return result
}

func trapName(function int) string {
	switch function {
	case SEND:
		return "send"
	case RECEIVE:
		return "receive"
	case SENDREC:
		return "sendrec"
	case NOTIFY:
		return "notify"
	case ECHO:
		return "echo"
	}
	return "trap?"
}

// sendRec sends a request to dst and waits for the reply from dst.
// While the caller is between the two steps, SENDREC_BUSY keeps
// notifications from being taken as the reply.
func (k *Kernel) sendRec(rp *Proc, dst int, mptr VirBytes, flags int) Errno {
	rp.Priv.Flags |= SENDREC_BUSY
	if e := k.miniSend(rp, dst, mptr, flags); e != 0 {
		rp.Priv.Flags &^= SENDREC_BUSY
		return e
	}
	return k.miniReceive(rp, dst, mptr, flags)
}

// miniSend sends the message at mptr from caller to dst.
// If dst is waiting for it, the message is copied at once;
// otherwise the caller blocks on dst's caller queue.
func (k *Kernel) miniSend(caller *Proc, dst int, mptr VirBytes, flags int) Errno {
	dp := k.procAddr(dst)

	if dp == caller {
		return ELOCKED
	}
	for xp := dp; xp.RtsFlags&SENDING != 0; {
		xp = k.procAddr(xp.sendTo)
		if xp == caller {
			return ELOCKED
		}
	}

	if dp.RtsFlags&(RECEIVING|SENDING) == RECEIVING && (dp.getFrom == ANY || dp.getFrom == caller.Nr) {
		k.copyMess(caller.Nr, caller, mptr, dp, dp.messbuf)
		dp.Priv.Flags &^= SENDREC_BUSY
		if dp.RtsFlags &^= RECEIVING; dp.RtsFlags == 0 {
			k.enqueue(dp)
		}
		return 0
	}

	if flags&NON_BLOCKING != 0 {
		return ENOTREADY
	}

	caller.messbuf = mptr
	if caller.RtsFlags == 0 {
		k.dequeue(caller)
	}
	caller.RtsFlags |= SENDING
	caller.sendTo = dst

	xpp := &dp.callerQ
	for *xpp != NONE {
		xpp = &k.procAddr(*xpp).qLink
	}
	*xpp = caller.Nr
	caller.qLink = NONE
	return 0
}

// miniReceive takes a message for caller from src, which may be ANY.
// Pending notifications come first, then senders in the order they
// blocked. With nothing acceptable, the caller blocks.
func (k *Kernel) miniReceive(caller *Proc, src int, mptr VirBytes, flags int) Errno {
	if caller.RtsFlags&SENDING == 0 {
		if caller.Priv.Flags&SENDREC_BUSY == 0 {
			found := NONE
			caller.Priv.NotifyPending.firstInChunks(func(id int) bool {
				nr := k.idToNr(id)
				if src != ANY && src != nr {
					return true
				}
				found = id
				return false
			})
			if found != NONE {
				srcNr := k.idToNr(found)
				caller.Priv.NotifyPending.Unset(found)
				var m Message
				k.buildMess(&m, srcNr, caller)
				k.deliver(&m, caller, mptr)
				return 0
			}
		}

		for xpp := &caller.callerQ; *xpp != NONE; xpp = &k.procAddr(*xpp).qLink {
			xp := k.procAddr(*xpp)
			if src != ANY && src != xp.Nr {
				continue
			}
			k.copyMess(xp.Nr, xp, xp.messbuf, caller, mptr)
			*xpp = xp.qLink
			xp.qLink = NONE
			caller.Priv.Flags &^= SENDREC_BUSY
			if xp.RtsFlags &^= SENDING; xp.RtsFlags == 0 {
				k.enqueue(xp)
			}
			return 0
		}
	}

	if flags&NON_BLOCKING != 0 {
		return ENOTREADY
	}

	caller.getFrom = src
	caller.messbuf = mptr
	if caller.RtsFlags == 0 {
		k.dequeue(caller)
	}
	caller.RtsFlags |= RECEIVING
	return 0
}

// miniNotify notifies dst on behalf of caller. A notification dst
// cannot take right now is remembered as one pending bit per sender.
func (k *Kernel) miniNotify(caller *Proc, dst int) Errno {
	dp := k.procAddr(dst)

	if dp.RtsFlags&(RECEIVING|SENDING) == RECEIVING &&
		dp.Priv.Flags&SENDREC_BUSY == 0 &&
		(dp.getFrom == ANY || dp.getFrom == caller.Nr) {
		var m Message
		k.buildMess(&m, caller.Nr, dp)
		k.deliver(&m, dp, dp.messbuf)
		if dp.RtsFlags &^= RECEIVING; dp.RtsFlags == 0 {
			k.enqueue(dp)
		}
		return 0
	}

	dp.Priv.NotifyPending.Set(caller.Priv.ID)
	return 0
}

// buildMess assembles the notification from src to dp.
// Interrupts and signals that were pending travel in the message
// and are no longer pending afterward.
func (k *Kernel) buildMess(m *Message, src int, dp *Proc) {
	*m = Message{Source: int32(src), Type: NOTIFY_FROM(src)}
	m.M[NOTIFY_TIMESTAMP] = int32(k.Uptime())
	switch src {
	case HARDWARE:
		m.M[NOTIFY_ARG] = int32(dp.Priv.IntPending)
		dp.Priv.IntPending = 0
	case SYSTEM:
		m.M[NOTIFY_ARG] = int32(dp.Priv.SigPending)
		dp.Priv.SigPending = 0
	}
}

// Send sends the message at mptr from caller to dst, blocking until dst takes it.
func (k *Kernel) Send(caller, dst int, mptr VirBytes) Errno {
	return k.SysCall(caller, SEND, dst, mptr)
}

// Receive waits for a message from src, or from anyone if src is ANY.
func (k *Kernel) Receive(caller, src int, mptr VirBytes) Errno {
	return k.SysCall(caller, RECEIVE, src, mptr)
}

// SendRec sends the message at mptr to dst and waits for the reply in the same buffer.
func (k *Kernel) SendRec(caller, dst int, mptr VirBytes) Errno {
	return k.SysCall(caller, SENDREC, dst, mptr)
}

// Notify sends dst a notification from caller. It never blocks.
func (k *Kernel) Notify(caller, dst int) Errno {
	return k.SysCall(caller, NOTIFY, dst, 0)
}

// Echo stamps the message at mptr with the caller as its source.
func (k *Kernel) Echo(caller int, mptr VirBytes) Errno {
	return k.SysCall(caller, ECHO, caller, mptr)
}

// LockNotify sends dst a notification from kernel task src.
func (k *Kernel) LockNotify(src, dst int) Errno {
	im := k.disable("notify")
	defer k.restore(im)
	return k.miniNotify(k.procAddr(src), dst)
}

// LockSend sends the message at mptr in src to dst if dst is waiting
// for it, and fails with ENOTREADY otherwise.
func (k *Kernel) LockSend(src, dst int, mptr VirBytes) Errno {
	im := k.disable("send")
	defer k.restore(im)
	return k.miniSend(k.procAddr(src), dst, mptr, NON_BLOCKING)
}
