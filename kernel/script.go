// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunScript drives k through a workload script, printing what
// happens to w. Each line is one command:
//
//	tick [n]                       n clock ticks (default 1), then run tasks
//	run                            run tasks, print the process to run next
//	irq n                          raise interrupt n, then run tasks
//	put proc [@addr] type m0 m1 …  store a message in proc's memory
//	get proc [@addr]               print the message in proc's memory
//	send proc dst [@addr] [-n]     trap on behalf of proc
//	receive proc src [@addr] [-n]
//	sendrec proc dst [@addr]
//	notify proc dst
//	echo proc [@addr]
//	call proc type m0 m1 …         sendrec a kernel call to SYSTEM, then run tasks
//	exit proc                      free proc's slot
//	shutdown                       send SIGKSTOP to the system processes
//	ps | queues | privs | timers   dump kernel state
//
// Processes are named by name or number; ANY means any process.
// Message addresses default to 0, the start of the data segment.
// Blank lines and lines beginning with # are ignored.
func (k *Kernel) RunScript(w io.Writer, script string) error {
	for i, line := range strings.Split(script, "\n") {
		f := strings.Fields(line)
		if len(f) == 0 || strings.HasPrefix(f[0], "#") {
			continue
		}
		if err := k.runCommand(w, f); err != nil {
			return fmt.Errorf("line %d: %s: %v", i+1, strings.TrimSpace(line), err)
		}
	}
	return nil
}

func (k *Kernel) runCommand(w io.Writer, f []string) error {
	cmd, args := f[0], f[1:]

	// Pull out @addr and -n, which may appear anywhere after the command.
	var addr VirBytes
	flags := 0
	var rest []string
	for _, a := range args {
		switch {
		case a == "-n":
			flags |= NON_BLOCKING
		case strings.HasPrefix(a, "@"):
			n, err := strconv.ParseUint(a[1:], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid address %s", a)
			}
			addr = VirBytes(n)
		default:
			rest = append(rest, a)
		}
	}
	args = rest

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("need %d arguments", n)
		}
		return nil
	}

	switch cmd {
	default:
		return fmt.Errorf("unknown command")

	case "tick":
		n := 1
		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
				return fmt.Errorf("invalid tick count %s", args[0])
			}
		}
		for i := 0; i < n; i++ {
			k.Tick()
		}

	case "run":
		rp := k.Restart()
		if rp == nil {
			fmt.Fprintf(w, "next none\n")
		} else {
			fmt.Fprintf(w, "next %s\n", rp.Name)
		}

	case "irq":
		if err := need(1); err != nil {
			return err
		}
		irq, err := strconv.Atoi(args[0])
		if err != nil || irq < 0 || irq >= NR_IRQ_VECTORS {
			return fmt.Errorf("invalid irq %s", args[0])
		}
		k.Restart()
		k.IRQ.Raise(irq)
		k.Dispatch()
		k.Restart()

	case "put", "call":
		if err := need(2); err != nil {
			return err
		}
		nr, err := k.parseProc(args[0])
		if err != nil {
			return err
		}
		var m Message
		m.Source = int32(nr)
		vals := args[1:]
		if len(vals) > 1+MESS_WORDS {
			return fmt.Errorf("too many message words")
		}
		for i, v := range vals {
			n, err := k.parseWord(v)
			if err != nil {
				return err
			}
			if i == 0 {
				m.Type = n
			} else {
				m.M[i-1] = n
			}
		}
		if err := k.PutMessage(nr, addr, &m); err != nil {
			return err
		}
		if cmd == "call" {
			e := k.SendRec(nr, SYSTEM, addr)
			fmt.Fprintf(w, "call %s %s = %v\n", k.name(nr), CallName(int(m.Type)), e)
			k.Restart()
		}

	case "get":
		if err := need(1); err != nil {
			return err
		}
		nr, err := k.parseProc(args[0])
		if err != nil {
			return err
		}
		m, err := k.GetMessage(nr, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: src=%s type=%#x m=%v\n", k.name(nr), k.name(int(m.Source)), m.Type, m.M)

	case "send", "receive", "sendrec", "notify":
		if err := need(2); err != nil {
			return err
		}
		nr, err := k.parseProc(args[0])
		if err != nil {
			return err
		}
		other, err := k.parseProc(args[1])
		if err != nil {
			return err
		}
		var function int
		for _, t := range trapNames {
			if t.name == cmd {
				function = t.trap
			}
		}
		e := k.SysCall(nr, function|flags, other, addr)
		fmt.Fprintf(w, "%s %s %s = %v\n", cmd, k.name(nr), k.name(other), e)

	case "echo":
		if err := need(1); err != nil {
			return err
		}
		nr, err := k.parseProc(args[0])
		if err != nil {
			return err
		}
		e := k.Echo(nr, addr)
		fmt.Fprintf(w, "echo %s = %v\n", k.name(nr), e)

	case "exit":
		if err := need(1); err != nil {
			return err
		}
		nr, err := k.parseProc(args[0])
		if err != nil {
			return err
		}
		if err := k.ClearProc(nr); err != nil {
			return err
		}

	case "shutdown":
		k.Shutdown()

	case "ps":
		k.ProcDump(w)
	case "queues":
		k.QueueDump(w)
	case "privs":
		k.PrivDump(w)
	case "timers":
		k.TimerDump(w)
	}
	return nil
}

// parseProc resolves a process name or number.
func (k *Kernel) parseProc(s string) (int, error) {
	switch s {
	case "ANY":
		return ANY, nil
	case "NONE":
		return NONE, nil
	case "SELF":
		return SELF, nil
	}
	if rp := k.Lookup(s); rp != nil {
		return rp.Nr, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("unknown process %s", s)
}

// parseWord parses a message word: a number, a kernel call name
// such as SYS_TIMES, or a process name.
func (k *Kernel) parseWord(s string) (int32, error) {
	if n, err := strconv.ParseInt(s, 0, 32); err == nil {
		return int32(n), nil
	}
	if name, ok := strings.CutPrefix(s, "SYS_"); ok {
		if nr, ok := CallNumber(strings.ToLower(name)); ok {
			return int32(nr), nil
		}
	}
	if nr, err := k.parseProc(s); err == nil {
		return int32(nr), nil
	}
	return 0, fmt.Errorf("invalid message word %s", s)
}
