// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// ProcDump prints the occupied slots of the process table.
func (k *Kernel) ProcDump(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "nr\tname\tprio\tquant\tticks\tuser\tsys\tflags\tipc\n")
	k.Procs(func(rp *Proc) {
		fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%d\t%d\t%d\t%d\t%v\t%s\n",
			rp.Nr, rp.Name, rp.Priority, rp.MaxPriority, rp.QuantumSize, rp.TicksLeft,
			rp.UserTime, rp.SysTime, rp.RtsFlags, k.ipcState(rp))
	})
	tw.Flush()
}

func (k *Kernel) ipcState(rp *Proc) string {
	var s []string
	if to, ok := rp.SendTo(); ok {
		s = append(s, "->"+k.name(to))
	}
	if from, ok := rp.GetFrom(); ok {
		s = append(s, "<-"+k.name(from))
	}
	if q := k.CallerQ(rp.Nr); len(q) > 0 {
		var names []string
		for _, nr := range q {
			names = append(names, k.name(nr))
		}
		s = append(s, "q="+strings.Join(names, ","))
	}
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, " ")
}

// name returns the name of process nr, or its number if it has none.
func (k *Kernel) name(nr int) string {
	if rp := k.Proc(nr); rp != nil && rp.RtsFlags != SLOT_FREE {
		return rp.Name
	}
	return procName(nr)
}

// CallerQ returns the processes blocked sending to nr, oldest first.
func (k *Kernel) CallerQ(nr int) []int {
	var q []int
	for xp := k.procAddr(nr).callerQ; xp != NONE; xp = k.procAddr(xp).qLink {
		q = append(q, xp)
	}
	return q
}

// PrivDump prints the privilege structures in use.
func (k *Kernel) PrivDump(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "id\tproc\tflags\ttraps\tipc_to\tcalls\tpending\n")
	for i := range k.priv {
		sp := &k.priv[i]
		if sp.ProcNr == NONE {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%v\t%#x\t%s\t%#x\t%s\n",
			sp.ID, k.name(sp.ProcNr), sp.Flags, sp.TrapMask, sysMapString(&sp.IPCTo), sp.CallMask, sysMapString(&sp.NotifyPending))
	}
	tw.Flush()
}

func sysMapString(m *SysMap) string {
	var b strings.Builder
	for id := 0; id < NR_SYS_PROCS; id++ {
		if m.Test(id) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// QueueDump prints the non-empty ready queues, head first.
func (k *Kernel) QueueDump(w io.Writer) {
	for q := 0; q < NR_SCHED_QUEUES; q++ {
		nrs := k.Queue(q)
		if len(nrs) == 0 {
			continue
		}
		var names []string
		for _, nr := range nrs {
			names = append(names, k.name(nr))
		}
		fmt.Fprintf(w, "%2d: %s\n", q, strings.Join(names, " "))
	}
}

// TimerDump prints the timer queue.
func (k *Kernel) TimerDump(w io.Writer) {
	fmt.Fprintf(w, "uptime %d next %s\n", k.Uptime(), clockString(k.nextTimeout))
	for tp := k.clockTimers; tp != nil; tp = tp.next {
		fmt.Fprintf(w, "  %d arg=%s\n", tp.ExpTime, k.name(tp.Arg))
	}
}

func clockString(c Clock) string {
	if c == TMR_NEVER {
		return "never"
	}
	return fmt.Sprint(c)
}
