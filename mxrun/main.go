// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Mxrun boots the kernel and drives it with a workload script.
//
// Usage:
//
//	mxrun [-image file] [-trace] [-clock=false] [-cpuprofile file] [script]
//
// With a script argument, or when standard input is not a terminal,
// mxrun runs the script and prints what happens. Otherwise it reads
// script commands from the terminal while the clock ticks in real time.
// Type quit or ^D to exit.
//
// The -image flag boots from a txtar boot image instead of the
// built-in one (see mximage).
//
// The -trace flag logs every trap and kernel call.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"rsc.io/minix/kernel"
)

var (
	imagefile  = flag.String("image", "", "boot from image `file` (default built-in image)")
	trace      = flag.Bool("trace", false, "log every trap and kernel call")
	clock      = flag.Bool("clock", true, "tick the clock in real time when interactive")
	cpuprofile = flag.String("cpuprofile", "", "write cpuprofile to `file`")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: mxrun [-image file] [-trace] [-clock=false] [-cpuprofile file] [script]\n")
	os.Exit(2)
}

func main() {
	log.SetPrefix("mxrun: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() > 1 {
		usage()
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	image := kernel.BootImage
	if *imagefile != "" {
		data, err := os.ReadFile(*imagefile)
		if err != nil {
			log.Fatal(err)
		}
		image = data
	}
	c, err := kernel.ParseConfig(image)
	if err != nil {
		log.Fatal(err)
	}

	klog := logrus.New()
	klog.SetOutput(os.Stderr)
	if *trace {
		klog.SetLevel(logrus.DebugLevel)
	}
	k, err := kernel.Boot(c, klog)
	if err != nil {
		log.Fatal(err)
	}
	k.Trace = *trace

	fd := int(os.Stdin.Fd())
	switch {
	case flag.NArg() == 1:
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		runScript(k, string(data))
	case !term.IsTerminal(fd):
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("reading stdin: %v", err)
		}
		runScript(k, string(data))
	default:
		interactive(k, klog, fd)
	}
}

func runScript(k *kernel.Kernel, script string) {
	if err := k.RunScript(os.Stdout, script); err != nil {
		log.Fatal(err)
	}
}

// interactive runs commands typed at the terminal.
// The kernel is only ever touched from this goroutine;
// the terminal reader hands it lines over a channel.
func interactive(k *kernel.Kernel, klog *logrus.Logger, fd int) {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatal(err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "mx> ")
	klog.SetOutput(t)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := t.ReadLine()
			if err != nil {
				if err != io.EOF {
					klog.Errorf("reading terminal: %v", err)
				}
				return
			}
			lines <- line
		}
	}()

	var tick <-chan time.Time
	if *clock {
		ticker := time.NewTicker(time.Second / time.Duration(k.HZ))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			k.Tick()
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "quit" {
				return
			}
			if err := k.RunScript(t, line); err != nil {
				fmt.Fprintf(t, "%v\n", err)
			}
		}
	}
}
