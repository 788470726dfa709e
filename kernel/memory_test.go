// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"errors"
	"testing"
)

// gapProc has 2 clicks of data at physical click 10 and, after a gap
// of 2 clicks, 1 click of stack at physical click 20.
func gapProc() *Proc {
	rp := &Proc{Name: "gap"}
	rp.MemMap[T] = MemMap{Vir: 0, Phys: 8, Len: 1}
	rp.MemMap[D] = MemMap{Vir: 0, Phys: 10, Len: 2}
	rp.MemMap[S] = MemMap{Vir: 4, Phys: 20, Len: 1}
	return rp
}

var umapTests = []struct {
	seg   int
	vir   VirBytes
	bytes VirBytes
	pa    PhysBytes
	ok    bool
}{
	{D, 0, MESS_SIZE, 10 << CLICK_SHIFT, true},
	{D, 100, 1, 10<<CLICK_SHIFT + 100, true},
	{D, 2*CLICK_SIZE - MESS_SIZE, MESS_SIZE, 12<<CLICK_SHIFT - MESS_SIZE, true},
	{D, 2*CLICK_SIZE - 1, MESS_SIZE, 0, false}, // runs into the gap
	{D, 3 * CLICK_SIZE, MESS_SIZE, 0, false},   // in the gap
	{D, 4 * CLICK_SIZE, MESS_SIZE, 20 << CLICK_SHIFT, true},
	{S, 4*CLICK_SIZE + 8, 8, 20<<CLICK_SHIFT + 8, true},
	{D, 5*CLICK_SIZE - 4, MESS_SIZE, 0, false}, // past the stack
	{D, 0, 0, 0, false},
	{D, 0xFFFFFFFF, 2, 0, false},
	{T, 10, 4, 8<<CLICK_SHIFT + 10, true},
	{T, CLICK_SIZE, 4, 0, false},
}

func TestUmap(t *testing.T) {
	mem := NewArrayMem(32)
	rp := gapProc()
	for _, tt := range umapTests {
		pa, ok := mem.Umap(rp, tt.seg, tt.vir, tt.bytes)
		if ok != tt.ok || ok && pa != tt.pa {
			t.Errorf("Umap(seg %d, %#x, %d) = %#x, %v, want %#x, %v", tt.seg, tt.vir, tt.bytes, pa, ok, tt.pa, tt.ok)
		}
	}

	// Physical memory ends before the segment does.
	small := NewArrayMem(16)
	if _, ok := small.Umap(rp, D, 4*CLICK_SIZE, MESS_SIZE); ok {
		t.Errorf("Umap past end of physical memory succeeded")
	}
}

// flatProc has its stack right after its data, in both address spaces.
func flatProc(stackPhys PhysClicks) *Proc {
	rp := &Proc{Name: "flat"}
	rp.MemMap[D] = MemMap{Vir: 0, Phys: 10, Len: 2}
	rp.MemMap[S] = MemMap{Vir: 2, Phys: stackPhys, Len: 1}
	return rp
}

func TestUmapAcrossSegments(t *testing.T) {
	mem := NewArrayMem(32)
	for _, tt := range []struct {
		stack PhysClicks
		vir   VirBytes
		pa    PhysBytes
		ok    bool
	}{
		{12, 2*CLICK_SIZE - 16, 12<<CLICK_SHIFT - 16, true},
		{12, 3*CLICK_SIZE - MESS_SIZE, 13<<CLICK_SHIFT - MESS_SIZE, true},
		{12, 3*CLICK_SIZE - 16, 0, false}, // past the stack
		{20, 2*CLICK_SIZE - 16, 0, false}, // stack is elsewhere physically
		{20, 2 * CLICK_SIZE, 20 << CLICK_SHIFT, true},
	} {
		pa, ok := mem.Umap(flatProc(tt.stack), D, tt.vir, MESS_SIZE)
		if ok != tt.ok || ok && pa != tt.pa {
			t.Errorf("stack at %d: Umap(%#x) = %#x, %v, want %#x, %v", tt.stack, tt.vir, pa, ok, tt.pa, tt.ok)
		}
	}
}

func TestMessageAcrossSegments(t *testing.T) {
	k := testKernel(t)
	buf := VirBytes(2*CLICK_SIZE - 16)
	wantErrno(t, "receive", k.Receive(PM_PROC_NR, ANY, buf), 0)
	put(t, k, INIT_PROC_NR, 0, 42, 7)
	wantErrno(t, "sendrec", k.SendRec(INIT_PROC_NR, PM_PROC_NR, 0), 0)
	m := get(t, k, PM_PROC_NR, buf)
	if m.Source != INIT_PROC_NR || m.Type != 42 || m.M[0] != 7 {
		t.Errorf("pm received %v", m)
	}
}

func TestValidMessBuf(t *testing.T) {
	rp := gapProc()
	for _, tt := range []struct {
		vir VirBytes
		ok  bool
	}{
		{0, true},
		{3 * CLICK_SIZE, true}, // in the gap, but in range
		{5*CLICK_SIZE - MESS_SIZE, true},
		{5*CLICK_SIZE - MESS_SIZE + 1, false},
		{0xFFFFFFFF - 8, false},
	} {
		if ok := validMessBuf(rp, tt.vir); ok != tt.ok {
			t.Errorf("validMessBuf(%#x) = %v, want %v", tt.vir, ok, tt.ok)
		}
	}
}

func TestMessageLayout(t *testing.T) {
	k := testKernel(t)
	m := Message{Source: -2, Type: 0x1234, M: [MESS_WORDS]int32{1, -1, 3, 4, 5, 6, 0x7eadbeef}}
	if err := k.PutMessage(PM_PROC_NR, 8, &m); err != nil {
		t.Fatal(err)
	}
	pm := k.Proc(PM_PROC_NR)
	pa := PhysBytes(pm.MemMap[D].Phys)<<CLICK_SHIFT + 8
	var b [MESS_SIZE]byte
	k.Mem.ReadPhys(pa, b[:])
	want := []byte{0xfe, 0xff, 0xff, 0xff, 0x34, 0x12, 0, 0, 1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}
	if string(b[:len(want)]) != string(want) {
		t.Errorf("message bytes % x, want % x", b[:len(want)], want)
	}
	if m2 := get(t, k, PM_PROC_NR, 8); m2 != m {
		t.Errorf("read back %v, want %v", m2, m)
	}

	if err := k.PutMessage(PM_PROC_NR, 0x10000, &m); !errors.Is(err, EFAULT) {
		t.Errorf("PutMessage out of range = %v, want EFAULT", err)
	}
	if _, err := k.GetMessage(30, 0); !errors.Is(err, EBADSRCDST) {
		t.Errorf("GetMessage from free slot = %v, want EBADSRCDST", err)
	}
}

func TestErrno(t *testing.T) {
	for _, tt := range []struct {
		e    Errno
		name string
		kind Kind
	}{
		{0, "OK", KindNone},
		{ECALLDENIED, "ECALLDENIED", PermissionDenied},
		{EBADSRCDST, "EBADSRCDST", InvalidProcess},
		{EDEADDST, "EDEADDST", InvalidProcess},
		{ELOCKED, "ELOCKED", Deadlock},
		{ENOTREADY, "ENOTREADY", WouldBlock},
		{EFAULT, "EFAULT", FaultyBuffer},
		{EBADCALL, "EBADCALL", BadRequest},
		{EIO, "EIO", BadRequest},
		{EDONTREPLY, "EDONTREPLY", KindNone},
		{Errno(60), "Errno(60)", BadRequest},
	} {
		if s := tt.e.Error(); s != tt.name {
			t.Errorf("Errno(%d).Error() = %q, want %q", int(tt.e), s, tt.name)
		}
		if k := tt.e.Kind(); k != tt.kind {
			t.Errorf("%v.Kind() = %v, want %v", tt.e, k, tt.kind)
		}
	}
}
