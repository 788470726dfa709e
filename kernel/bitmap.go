// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "math/bits"

const (
	BITCHUNK_BITS = 16
	NR_SYS_CHUNKS = (NR_SYS_PROCS + BITCHUNK_BITS - 1) / BITCHUNK_BITS
)

// A SysMap is a set of privilege ids, stored as fixed-size chunks.
// The zero value is the empty set.
type SysMap struct {
	chunk [NR_SYS_CHUNKS]uint16
}

func (m *SysMap) Set(id int) {
	m.chunk[id/BITCHUNK_BITS] |= 1 << (id % BITCHUNK_BITS)
}

func (m *SysMap) Unset(id int) {
	m.chunk[id/BITCHUNK_BITS] &^= 1 << (id % BITCHUNK_BITS)
}

func (m *SysMap) Test(id int) bool {
	if id < 0 || id >= NR_SYS_PROCS {
		return false
	}
	return m.chunk[id/BITCHUNK_BITS]&(1<<(id%BITCHUNK_BITS)) != 0
}

func (m *SysMap) Empty() bool {
	for _, c := range m.chunk {
		if c != 0 {
			return false
		}
	}
	return true
}

// Lowest returns the smallest id in m.
func (m *SysMap) Lowest() (int, bool) {
	for i, c := range m.chunk {
		if c != 0 {
			return i*BITCHUNK_BITS + bits.TrailingZeros16(c), true
		}
	}
	return 0, false
}

// Fill sets the ids in the low word of mask, the way boot image
// send masks are written.
func (m *SysMap) Fill(mask uint32) {
	for id := 0; id < 32 && id < NR_SYS_PROCS; id++ {
		if mask&(1<<id) != 0 {
			m.Set(id)
		}
	}
}

// firstInChunks calls f with the lowest set id of every non-empty chunk,
// in chunk order, until f returns false.
// Only the first id of each chunk is offered.
func (m *SysMap) firstInChunks(f func(id int) bool) {
	for i, c := range m.chunk {
		if c == 0 {
			continue
		}
		if !f(i*BITCHUNK_BITS + bits.TrailingZeros16(c)) {
			return
		}
	}
}
