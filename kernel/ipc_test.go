// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"reflect"
	"strings"
	"testing"
)

func put(t *testing.T, k *Kernel, nr int, addr VirBytes, typ int32, words ...int32) {
	t.Helper()
	m := Message{Type: typ}
	copy(m.M[:], words)
	if err := k.PutMessage(nr, addr, &m); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, k *Kernel, nr int, addr VirBytes) Message {
	t.Helper()
	m, err := k.GetMessage(nr, addr)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func wantErrno(t *testing.T, what string, have, want Errno) {
	t.Helper()
	if have != want {
		t.Fatalf("%s = %v, want %v", what, have, want)
	}
}

// dump returns the visible state of k.
func dump(k *Kernel) string {
	var b strings.Builder
	k.ProcDump(&b)
	k.QueueDump(&b)
	k.PrivDump(&b)
	k.TimerDump(&b)
	return b.String()
}

func TestSendToReceiver(t *testing.T) {
	k := testKernel(t)
	pm, fs := k.Proc(PM_PROC_NR), k.Proc(FS_PROC_NR)

	wantErrno(t, "receive", k.Receive(PM_PROC_NR, ANY, 0), 0)
	if pm.RtsFlags != RECEIVING {
		t.Fatalf("pm flags %v, want RECEIVING", pm.RtsFlags)
	}
	put(t, k, FS_PROC_NR, 0, 5, 10, 20)
	wantErrno(t, "send", k.Send(FS_PROC_NR, PM_PROC_NR, 0), 0)

	if pm.RtsFlags != 0 || fs.RtsFlags != 0 {
		t.Errorf("flags pm=%v fs=%v, want both runnable", pm.RtsFlags, fs.RtsFlags)
	}
	if q := k.CallerQ(PM_PROC_NR); len(q) != 0 {
		t.Errorf("caller queue of pm = %v, want empty", q)
	}
	m := get(t, k, PM_PROC_NR, 0)
	want := Message{Source: FS_PROC_NR, Type: 5, M: [MESS_WORDS]int32{10, 20}}
	if m != want {
		t.Errorf("pm got %v, want %v", m, want)
	}
	checkQueues(t, k)
}

func TestCallerQueueOrder(t *testing.T) {
	k := testKernel(t)
	senders := []int{FS_PROC_NR, RS_PROC_NR, MEM_PROC_NR}
	for i, nr := range senders {
		put(t, k, nr, 0, int32(100+i))
		wantErrno(t, "send", k.Send(nr, PM_PROC_NR, 0), 0)
		if rp := k.Proc(nr); rp.RtsFlags != SENDING {
			t.Fatalf("%v flags %v, want SENDING", rp, rp.RtsFlags)
		}
	}
	if q := k.CallerQ(PM_PROC_NR); !reflect.DeepEqual(q, senders) {
		t.Fatalf("caller queue of pm = %v, want %v", q, senders)
	}
	checkQueues(t, k)

	for i, nr := range senders {
		wantErrno(t, "receive", k.Receive(PM_PROC_NR, ANY, 0), 0)
		m := get(t, k, PM_PROC_NR, 0)
		if int(m.Source) != nr || m.Type != int32(100+i) {
			t.Errorf("receive %d: got %v, want src=%d type=%d", i, m, nr, 100+i)
		}
		if rp := k.Proc(nr); rp.RtsFlags != 0 {
			t.Errorf("%v flags %v after delivery, want runnable", rp, rp.RtsFlags)
		}
	}
	checkQueues(t, k)
}

func TestReceiveFromSource(t *testing.T) {
	k := testKernel(t)
	pm := k.Proc(PM_PROC_NR)

	wantErrno(t, "receive", k.Receive(PM_PROC_NR, FS_PROC_NR, 0), 0)
	put(t, k, RS_PROC_NR, 0, 1)
	wantErrno(t, "send rs", k.Send(RS_PROC_NR, PM_PROC_NR, 0), 0)
	if pm.RtsFlags != RECEIVING {
		t.Fatalf("pm took a message from rs while waiting for fs")
	}
	if q := k.CallerQ(PM_PROC_NR); !reflect.DeepEqual(q, []int{RS_PROC_NR}) {
		t.Fatalf("caller queue of pm = %v, want [rs]", q)
	}

	put(t, k, FS_PROC_NR, 0, 2)
	wantErrno(t, "send fs", k.Send(FS_PROC_NR, PM_PROC_NR, 0), 0)
	if m := get(t, k, PM_PROC_NR, 0); m.Source != FS_PROC_NR || m.Type != 2 {
		t.Fatalf("pm got %v, want message from fs", m)
	}

	wantErrno(t, "receive fs", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, FS_PROC_NR, 0), ENOTREADY)
	if q := k.CallerQ(PM_PROC_NR); !reflect.DeepEqual(q, []int{RS_PROC_NR}) {
		t.Fatalf("caller queue of pm = %v, want [rs]", q)
	}
	wantErrno(t, "receive rs", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, RS_PROC_NR, 0), 0)
	if m := get(t, k, PM_PROC_NR, 0); m.Source != RS_PROC_NR || m.Type != 1 {
		t.Fatalf("pm got %v, want message from rs", m)
	}
	checkQueues(t, k)
}

func TestNonBlockingSend(t *testing.T) {
	k := testKernel(t)
	before := dump(k)
	wantErrno(t, "send", k.SysCall(PM_PROC_NR, SEND|NON_BLOCKING, FS_PROC_NR, 0), ENOTREADY)
	if after := dump(k); after != before {
		t.Errorf("state changed:\n%s\nwant:\n%s", after, before)
	}
}

func TestDeadlock(t *testing.T) {
	k := testKernel(t)
	wantErrno(t, "self", k.Send(PM_PROC_NR, PM_PROC_NR, 0), ELOCKED)

	wantErrno(t, "fs->pm", k.Send(FS_PROC_NR, PM_PROC_NR, 0), 0)
	wantErrno(t, "rs->fs", k.Send(RS_PROC_NR, FS_PROC_NR, 0), 0)

	before := dump(k)
	wantErrno(t, "pm->fs", k.Send(PM_PROC_NR, FS_PROC_NR, 0), ELOCKED)
	wantErrno(t, "pm->rs", k.Send(PM_PROC_NR, RS_PROC_NR, 0), ELOCKED)
	wantErrno(t, "pm sendrec rs", k.SendRec(PM_PROC_NR, RS_PROC_NR, 0), ELOCKED)
	if after := dump(k); after != before {
		t.Errorf("state changed:\n%s\nwant:\n%s", after, before)
	}
	if k.Proc(PM_PROC_NR).Priv.Flags&SENDREC_BUSY != 0 {
		t.Errorf("failed sendrec left SENDREC_BUSY set")
	}
	checkQueues(t, k)
}

func TestSysCallErrors(t *testing.T) {
	const free = 20
	tests := []struct {
		name   string
		caller int
		call   int
		srcDst int
		mptr   VirBytes
		want   Errno
	}{
		{"trap not allowed", INIT_PROC_NR, SEND, PM_PROC_NR, 0, ECALLDENIED},
		{"ipc mask", INIT_PROC_NR, SENDREC, TTY_PROC_NR, 0, ECALLDENIED},
		{"send to task", PM_PROC_NR, SEND, SYSTEM, 0, ECALLDENIED},
		{"notify task", PM_PROC_NR, NOTIFY, CLOCK, 0, ECALLDENIED},
		{"bad dst", PM_PROC_NR, SEND, 100, 0, EBADSRCDST},
		{"bad src", PM_PROC_NR, RECEIVE, -10, 0, EBADSRCDST},
		{"send ANY", PM_PROC_NR, SEND, ANY, 0, EBADSRCDST},
		{"notify ANY", PM_PROC_NR, NOTIFY, ANY, 0, EBADSRCDST},
		{"dead dst", PM_PROC_NR, SEND, free, 0, EDEADDST},
		{"dead before mask", INIT_PROC_NR, SENDREC, free, 0, EDEADDST},
		{"past stack", PM_PROC_NR, SEND, FS_PROC_NR, 3*CLICK_SIZE - 10, EFAULT},
		{"huge pointer", PM_PROC_NR, RECEIVE, ANY, 0xFFFFFFF0, EFAULT},
		{"echo past stack", PM_PROC_NR, ECHO, PM_PROC_NR, 3 * CLICK_SIZE, EFAULT},
		{"unknown trap", PM_PROC_NR, 7, FS_PROC_NR, 0, EBADCALL},
		{"free caller", free, SEND, PM_PROC_NR, 0, EBADSRCDST},
		{"bad caller", 1000, SEND, PM_PROC_NR, 0, EBADSRCDST},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testKernel(t)
			before := dump(k)
			wantErrno(t, "SysCall", k.SysCall(tt.caller, tt.call, tt.srcDst, tt.mptr), tt.want)
			if after := dump(k); after != before {
				t.Errorf("state changed:\n%s\nwant:\n%s", after, before)
			}
		})
	}
}

func TestBlockedCaller(t *testing.T) {
	k := testKernel(t)
	wantErrno(t, "receive", k.Receive(PM_PROC_NR, ANY, 0), 0)
	wantErrno(t, "send while receiving", k.Send(PM_PROC_NR, FS_PROC_NR, 0), ECALLDENIED)
}

func TestNotify(t *testing.T) {
	k := testKernel(t)
	pm := k.Proc(PM_PROC_NR)
	fsID := k.nrToID(FS_PROC_NR)

	wantErrno(t, "notify", k.Notify(FS_PROC_NR, PM_PROC_NR), 0)
	wantErrno(t, "notify", k.Notify(FS_PROC_NR, PM_PROC_NR), 0)
	if !pm.Priv.NotifyPending.Test(fsID) {
		t.Fatalf("notification from fs not pending")
	}
	if pm.RtsFlags != 0 {
		t.Fatalf("notify blocked pm")
	}

	wantErrno(t, "receive", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, ANY, 0), 0)
	m := get(t, k, PM_PROC_NR, 0)
	if m.Source != FS_PROC_NR || m.Type != NOTIFY_FROM(FS_PROC_NR) {
		t.Errorf("got %v, want notification from fs", m)
	}
	if pm.Priv.NotifyPending.Test(fsID) {
		t.Errorf("notification still pending after delivery")
	}
	wantErrno(t, "receive again", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, ANY, 0), ENOTREADY)

	// A receiver waiting for someone else does not get it.
	wantErrno(t, "receive rs", k.Receive(PM_PROC_NR, RS_PROC_NR, 0), 0)
	wantErrno(t, "notify", k.Notify(FS_PROC_NR, PM_PROC_NR), 0)
	if pm.RtsFlags != RECEIVING || !pm.Priv.NotifyPending.Test(fsID) {
		t.Errorf("notification delivered to process waiting for rs")
	}

	// A receiver waiting for anyone gets it at once.
	k2 := testKernel(t)
	wantErrno(t, "receive", k2.Receive(PM_PROC_NR, ANY, 0), 0)
	wantErrno(t, "notify", k2.Notify(FS_PROC_NR, PM_PROC_NR), 0)
	if rp := k2.Proc(PM_PROC_NR); rp.RtsFlags != 0 || !rp.Priv.NotifyPending.Empty() {
		t.Errorf("notification not delivered: flags %v", rp.RtsFlags)
	}
	checkQueues(t, k2)
}

func TestNotifyChunkScan(t *testing.T) {
	k := testKernel(t)
	wantErrno(t, "notify fs", k.Notify(FS_PROC_NR, PM_PROC_NR), 0)
	wantErrno(t, "notify rs", k.Notify(RS_PROC_NR, PM_PROC_NR), 0)

	// Only the lowest pending sender of a chunk is looked at.
	wantErrno(t, "receive rs", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, RS_PROC_NR, 0), ENOTREADY)
	wantErrno(t, "receive fs", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, FS_PROC_NR, 0), 0)
	wantErrno(t, "receive rs", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, RS_PROC_NR, 0), 0)
	if m := get(t, k, PM_PROC_NR, 0); m.Source != RS_PROC_NR {
		t.Errorf("got %v, want notification from rs", m)
	}
}

func TestSendRec(t *testing.T) {
	k := testKernel(t)
	initp, pm := k.Proc(INIT_PROC_NR), k.Proc(PM_PROC_NR)

	put(t, k, INIT_PROC_NR, 0, 42, 1, 2, 3, 4, 5, 6, 7)
	wantErrno(t, "sendrec", k.SendRec(INIT_PROC_NR, PM_PROC_NR, 0), 0)
	if initp.RtsFlags != SENDING|RECEIVING || initp.Priv.Flags&SENDREC_BUSY == 0 {
		t.Fatalf("init flags %v priv %v, want SENDING|RECEIVING and busy", initp.RtsFlags, initp.Priv.Flags)
	}

	wantErrno(t, "receive", k.Receive(PM_PROC_NR, ANY, 0), 0)
	req := get(t, k, PM_PROC_NR, 0)
	if initp.RtsFlags != RECEIVING {
		t.Fatalf("init flags %v after request taken, want RECEIVING", initp.RtsFlags)
	}

	// A notification while waiting for the reply stays pending.
	wantErrno(t, "notify", k.Notify(FS_PROC_NR, INIT_PROC_NR), 0)
	if initp.RtsFlags != RECEIVING || !initp.Priv.NotifyPending.Test(k.nrToID(FS_PROC_NR)) {
		t.Fatalf("notification taken as reply")
	}

	// pm bounces the request straight back and waits in turn.
	wantErrno(t, "sendrec back", k.SendRec(PM_PROC_NR, INIT_PROC_NR, 0), 0)
	if initp.RtsFlags != 0 || initp.Priv.Flags&SENDREC_BUSY != 0 {
		t.Errorf("init flags %v priv %v after reply", initp.RtsFlags, initp.Priv.Flags)
	}
	if pm.RtsFlags != RECEIVING || pm.Priv.Flags&SENDREC_BUSY == 0 {
		t.Errorf("pm flags %v priv %v, want RECEIVING and busy", pm.RtsFlags, pm.Priv.Flags)
	}
	reply := get(t, k, INIT_PROC_NR, 0)
	want := req
	want.Source = PM_PROC_NR
	if reply != want {
		t.Errorf("reply %v, want %v", reply, want)
	}
	if req.Type != 42 || req.M != [MESS_WORDS]int32{1, 2, 3, 4, 5, 6, 7} {
		t.Errorf("request arrived as %v", req)
	}

	wantErrno(t, "receive", k.Receive(INIT_PROC_NR, ANY, 0), ECALLDENIED) // init may not RECEIVE
	checkQueues(t, k)
}

func TestSendRecNotifyPending(t *testing.T) {
	k := testKernel(t)
	pm := k.Proc(PM_PROC_NR)

	wantErrno(t, "sendrec", k.SendRec(PM_PROC_NR, FS_PROC_NR, 0), 0)
	wantErrno(t, "notify", k.Notify(RS_PROC_NR, PM_PROC_NR), 0)
	wantErrno(t, "fs receive", k.Receive(FS_PROC_NR, ANY, 0), 0)
	wantErrno(t, "notify", k.Notify(RS_PROC_NR, PM_PROC_NR), 0)
	if pm.RtsFlags != RECEIVING {
		t.Fatalf("pm flags %v, want RECEIVING", pm.RtsFlags)
	}

	put(t, k, FS_PROC_NR, 0, 99)
	wantErrno(t, "fs reply", k.Send(FS_PROC_NR, PM_PROC_NR, 0), 0)
	if m := get(t, k, PM_PROC_NR, 0); m.Source != FS_PROC_NR || m.Type != 99 {
		t.Fatalf("pm got %v, want reply from fs", m)
	}
	if pm.Priv.Flags&SENDREC_BUSY != 0 {
		t.Fatalf("SENDREC_BUSY still set after reply")
	}

	wantErrno(t, "receive", k.SysCall(PM_PROC_NR, RECEIVE|NON_BLOCKING, ANY, 0), 0)
	if m := get(t, k, PM_PROC_NR, 0); m.Source != RS_PROC_NR || m.Type != NOTIFY_FROM(RS_PROC_NR) {
		t.Fatalf("pm got %v, want notification from rs", m)
	}
	checkQueues(t, k)
}

func TestEcho(t *testing.T) {
	k := testKernel(t)
	put(t, k, INIT_PROC_NR, 64, 5, 9)
	wantErrno(t, "echo", k.Echo(INIT_PROC_NR, 64), 0)
	m := get(t, k, INIT_PROC_NR, 64)
	want := Message{Source: INIT_PROC_NR, Type: 5, M: [MESS_WORDS]int32{9}}
	if m != want {
		t.Errorf("echo: %v, want %v", m, want)
	}
}

func TestTaskTraps(t *testing.T) {
	k := testKernel(t)
	wantErrno(t, "send", k.Send(CLOCK, PM_PROC_NR, 0), ECALLDENIED)
}
