// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Mximage checks a kernel boot image and prints the processes in it.
//
// Usage:
//
//	mximage [-o out.txtar] [-boot] [-x] [image.txtar]
//
// With no image argument, mximage reads the built-in boot image.
//
// The -o flag writes the image back out in normal form to file.
//
// The -boot flag boots the image and prints the process table,
// the ready queues and the privilege table.
//
// The -x flag extracts the files of the image into the directory
// named by -o (default _image).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/txtar"
	"rsc.io/minix/kernel"
)

var (
	outfile = flag.String("o", "", "write normalized image to `file`")
	bootit  = flag.Bool("boot", false, "boot the image and print the kernel tables")
	xflag   = flag.Bool("x", false, "extract image files")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: mximage [-o out.txtar] [-boot] [-x] [image.txtar]\n")
	os.Exit(2)
}

func main() {
	log.SetPrefix("mximage: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) > 1 {
		usage()
	}

	data := kernel.BootImage
	if len(args) == 1 {
		var err error
		if data, err = os.ReadFile(args[0]); err != nil {
			log.Fatal(err)
		}
	}

	if *xflag {
		if *outfile == "" {
			*outfile = "_image"
		}
		if err := extract(*outfile, txtar.Parse(data)); err != nil {
			log.Fatal(err)
		}
		return
	}

	c, err := kernel.ParseConfig(data)
	if err != nil {
		log.Fatal(err)
	}
	printImage(os.Stdout, c)

	if *bootit {
		klog := logrus.New()
		klog.SetOutput(os.Stderr)
		k, err := kernel.Boot(c, klog)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("\n")
		k.ProcDump(os.Stdout)
		fmt.Printf("\n")
		k.QueueDump(os.Stdout)
		fmt.Printf("\n")
		k.PrivDump(os.Stdout)
	}

	if *outfile != "" {
		if err := os.WriteFile(*outfile, c.Archive(), 0666); err != nil {
			log.Fatal(err)
		}
	}
}

// extract writes the files of ar into dir.
// The name of a proc file ends at its first space.
func extract(dir string, ar *txtar.Archive) error {
	for _, f := range ar.Files {
		name, _, _ := strings.Cut(f.Name, " ")
		if !filepath.IsLocal(name) {
			return fmt.Errorf("refusing to extract %s: not a local path", name)
		}
		targ := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(targ), 0777); err != nil {
			return err
		}
		if err := os.WriteFile(targ, f.Data, 0666); err != nil {
			return err
		}
	}
	return nil
}

func printImage(w io.Writer, c *kernel.Config) {
	names := make(map[int]string)
	for _, e := range c.Image {
		names[e.Nr] = e.Name
	}
	fmt.Fprintf(w, "memory %d clicks, %d Hz\n", c.Memory, c.HZ)
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "nr\tname\tflags\tquantum\tqueue\ttext\tdata\tstack\ttraps\tipcto\tcalls\n")
	for i := range c.Image {
		e := &c.Image[i]
		ipc := "-"
		if e.IPCAll {
			ipc = "all"
		} else if len(e.IPCTo) > 0 {
			var list []string
			for _, nr := range e.IPCTo {
				list = append(list, names[nr])
			}
			ipc = strings.Join(list, ",")
		}
		fmt.Fprintf(tw, "%d\t%s\t%v\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			e.Nr, e.Name, e.Flags, e.Quantum, e.Queue, e.Text, e.Data, e.Stack,
			e.TrapList(), ipc, e.CallList())
	}
	tw.Flush()
}
