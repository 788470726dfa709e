// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/tools/txtar"
)

// BootImage is the default boot image, in the txtar form ParseConfig reads.
//
//go:embed boot.txtar
var BootImage []byte

// A Config is a parsed boot image.
type Config struct {
	Comment string
	Memory  int // physical memory in clicks
	HZ      int // clock ticks per second
	Image   []ImageEntry
}

// An ImageEntry describes one process of the boot image.
type ImageEntry struct {
	Nr      int
	Name    string
	Flags   PrivFlags
	Quantum int
	Queue   int
	Text    int // clicks
	Data    int
	Stack   int

	Traps  uint16
	IPCAll bool  // may send to anyone
	IPCTo  []int // process numbers it may send to
	Calls  uint32
}

var trapNames = []struct {
	name string
	trap int
}{
	{"send", SEND},
	{"receive", RECEIVE},
	{"sendrec", SENDREC},
	{"notify", NOTIFY},
	{"echo", ECHO},
}

// ParseConfig parses a boot image archive.
func ParseConfig(archive []byte) (*Config, error) {
	ar := txtar.Parse(archive)
	c := &Config{Comment: string(ar.Comment), HZ: HZ}
	type body struct {
		e    *ImageEntry
		data []byte
	}
	var bodies []body
	byName := make(map[string]int)

	for _, file := range ar.Files {
		f := strings.Fields(file.Name)
		if len(f) == 0 {
			return nil, fmt.Errorf("empty txtar file name")
		}
		switch {
		case f[0] == "config":
			if err := c.parseConfig(file.Data); err != nil {
				return nil, err
			}
		case strings.HasPrefix(f[0], "proc/"):
			e, err := parseEntry(strings.TrimPrefix(f[0], "proc/"), f[1:])
			if err != nil {
				return nil, err
			}
			if _, ok := byName[e.Name]; ok {
				return nil, fmt.Errorf("%s: duplicate process", e.Name)
			}
			if len(c.Image) == NR_BOOT_PROCS {
				return nil, fmt.Errorf("%s: too many processes, limit %d", e.Name, NR_BOOT_PROCS)
			}
			byName[e.Name] = e.Nr
			c.Image = append(c.Image, e)
			bodies = append(bodies, body{nil, file.Data})
		default:
			return nil, fmt.Errorf("unknown txtar file %s", f[0])
		}
	}
	for i := range bodies {
		bodies[i].e = &c.Image[i]
	}

	seen := make(map[int]string)
	for _, b := range bodies {
		e := b.e
		if other, ok := seen[e.Nr]; ok {
			return nil, fmt.Errorf("%s: process number %d already used by %s", e.Name, e.Nr, other)
		}
		seen[e.Nr] = e.Name
		if err := e.parseBody(b.data, byName); err != nil {
			return nil, fmt.Errorf("%s: %v", e.Name, err)
		}
	}
	if c.Memory <= 0 {
		return nil, fmt.Errorf("config: missing memory size")
	}
	return c, nil
}

func (c *Config) parseConfig(data []byte) error {
	for _, line := range strings.Split(string(data), "\n") {
		f := strings.Fields(line)
		if len(f) == 0 || strings.HasPrefix(f[0], "#") {
			continue
		}
		if len(f) != 2 {
			return fmt.Errorf("config: invalid line: %s", line)
		}
		n, err := strconv.Atoi(f[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("config: invalid %s: %s", f[0], f[1])
		}
		switch f[0] {
		default:
			return fmt.Errorf("config: unknown setting %s", f[0])
		case "memory":
			c.Memory = n
		case "hz":
			c.HZ = n
		}
	}
	return nil
}

func parseEntry(name string, args []string) (ImageEntry, error) {
	e := ImageEntry{Name: name, Nr: NONE}
	if name == "" || len(name) > P_NAME_LEN {
		return e, fmt.Errorf("invalid process name %q", name)
	}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return e, fmt.Errorf("%s: invalid txtar k=v: %s", name, arg)
		}
		if k == "flags" {
			for _, c := range v {
				switch c {
				default:
					return e, fmt.Errorf("%s: invalid flag %c", name, c)
				case '-':
				case 'P':
					e.Flags |= PREEMPTIBLE
				case 'B':
					e.Flags |= BILLABLE
				case 'S':
					e.Flags |= SYS_PROC
				}
			}
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return e, fmt.Errorf("%s: invalid txtar k=v: %s", name, arg)
		}
		switch k {
		default:
			return e, fmt.Errorf("%s: invalid txtar k=v: %s", name, arg)
		case "nr":
			e.Nr = i
		case "quantum":
			e.Quantum = i
		case "queue":
			e.Queue = i
		case "text":
			e.Text = i
		case "data":
			e.Data = i
		case "stack":
			e.Stack = i
		}
	}
	switch {
	case !isokprocn(e.Nr):
		return e, fmt.Errorf("%s: invalid process number %d", name, e.Nr)
	case e.Queue < TASK_Q || e.Queue > IDLE_Q:
		return e, fmt.Errorf("%s: invalid queue %d", name, e.Queue)
	case e.Quantum <= 0:
		return e, fmt.Errorf("%s: invalid quantum %d", name, e.Quantum)
	case e.Text < 0 || e.Data < 0 || e.Stack < 0:
		return e, fmt.Errorf("%s: invalid memory size", name)
	case isusern(e.Nr) && e.Data+e.Stack == 0:
		return e, fmt.Errorf("%s: no data or stack", name)
	}
	return e, nil
}

func (e *ImageEntry) parseBody(data []byte, byName map[string]int) error {
	for _, line := range strings.Split(string(data), "\n") {
		f := strings.Fields(line)
		if len(f) == 0 || strings.HasPrefix(f[0], "#") {
			continue
		}
		if len(f) != 2 {
			return fmt.Errorf("invalid line: %s", line)
		}
		list := strings.Split(f[1], ",")
		switch f[0] {
		default:
			return fmt.Errorf("unknown mask %s", f[0])
		case "traps":
			for _, name := range list {
				if name == "all" {
					e.Traps = 0xFFFF
					continue
				}
				found := false
				for _, t := range trapNames {
					if t.name == name {
						e.Traps |= 1 << t.trap
						found = true
					}
				}
				if !found {
					return fmt.Errorf("unknown trap %s", name)
				}
			}
		case "ipcto":
			for _, name := range list {
				if name == "all" {
					e.IPCAll = true
					continue
				}
				nr, ok := byName[name]
				if !ok {
					return fmt.Errorf("unknown process %s", name)
				}
				e.IPCTo = append(e.IPCTo, nr)
			}
		case "calls":
			for _, name := range list {
				if name == "all" {
					e.Calls = 0xFFFFFFFF
					continue
				}
				nr, ok := CallNumber(name)
				if !ok {
					return fmt.Errorf("unknown kernel call %s", name)
				}
				e.Calls |= 1 << (nr - KERNEL_CALL)
			}
		}
	}
	return nil
}

// Archive returns c in the txtar form ParseConfig reads.
func (c *Config) Archive() []byte {
	names := make(map[int]string)
	for _, e := range c.Image {
		names[e.Nr] = e.Name
	}
	ar := &txtar.Archive{Comment: []byte(c.Comment)}
	ar.Files = append(ar.Files, txtar.File{
		Name: "config",
		Data: []byte(fmt.Sprintf("memory %d\nhz %d\n", c.Memory, c.HZ)),
	})
	for _, e := range c.Image {
		name := fmt.Sprintf("proc/%s nr=%d flags=%s quantum=%d queue=%d", e.Name, e.Nr, imageFlags(e.Flags), e.Quantum, e.Queue)
		for _, seg := range []struct {
			key string
			n   int
		}{{"text", e.Text}, {"data", e.Data}, {"stack", e.Stack}} {
			if seg.n != 0 {
				name += fmt.Sprintf(" %s=%d", seg.key, seg.n)
			}
		}
		var body strings.Builder
		if s := e.TrapList(); s != "-" {
			fmt.Fprintf(&body, "traps %s\n", s)
		}
		if e.IPCAll {
			body.WriteString("ipcto all\n")
		} else if len(e.IPCTo) > 0 {
			var list []string
			for _, nr := range e.IPCTo {
				list = append(list, names[nr])
			}
			fmt.Fprintf(&body, "ipcto %s\n", strings.Join(list, ","))
		}
		if s := e.CallList(); s != "-" {
			fmt.Fprintf(&body, "calls %s\n", s)
		}
		ar.Files = append(ar.Files, txtar.File{Name: name, Data: []byte(body.String())})
	}
	return txtar.Format(ar)
}

func imageFlags(f PrivFlags) string {
	s := f &^ SENDREC_BUSY
	return s.String()
}

// TrapList returns the traps e may use as a comma-separated list.
func (e *ImageEntry) TrapList() string {
	if e.Traps == 0xFFFF {
		return "all"
	}
	var list []string
	for _, t := range trapNames {
		if e.Traps&(1<<t.trap) != 0 {
			list = append(list, t.name)
		}
	}
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ",")
}

// CallList returns the kernel calls e may make as a comma-separated list.
func (e *ImageEntry) CallList() string {
	if e.Calls == 0xFFFFFFFF {
		return "all"
	}
	var list []string
	for i, c := range callVec {
		if e.Calls&(1<<i) != 0 {
			list = append(list, c.name)
		}
	}
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ",")
}
