// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"encoding/binary"
	"fmt"
)

const (
	MESS_WORDS = 7
	MESS_SIZE  = 8 + 4*MESS_WORDS
)

// A Message is the fixed-size unit of IPC.
// In process memory it is MESS_SIZE little-endian bytes:
// source, type, then the payload words.
type Message struct {
	Source int32
	Type   int32
	M      [MESS_WORDS]int32
}

/* payload slots of notifications */
const (
	NOTIFY_ARG       = 0
	NOTIFY_TIMESTAMP = 1
)

/* payload slots of kernel calls */
const (
	PR_PROC_NR = 0 /* SYS_EXIT */

	ALRM_EXP_TIME  = 0 /* SYS_SETALARM */
	ALRM_ABS_TIME  = 1
	ALRM_TIME_LEFT = 0

	SIG_PROC   = 0 /* SYS_KILL, SYS_GETKSIG, SYS_ENDKSIG */
	SIG_NUMBER = 1
	SIG_MAP    = 1

	T_PROC_NR    = 0 /* SYS_TIMES */
	T_USER_TIME  = 1
	T_SYST_TIME  = 2
	T_BOOT_TICKS = 3

	IRQ_REQUEST = 0 /* SYS_IRQCTL */
	IRQ_VECTOR  = 1
	IRQ_POLICY  = 2
	IRQ_HOOK_ID = 3

	CP_SRC_PROC_NR = 0 /* SYS_VIRCOPY, SYS_UMAP */
	CP_SRC_SPACE   = 1
	CP_SRC_ADDR    = 2
	CP_NR_BYTES    = 3
	CP_DST_PROC_NR = 4
	CP_DST_SPACE   = 5
	CP_DST_ADDR    = 6

	CTL_PROC_NR = 0 /* SYS_TRACE */
	CTL_REQUEST = 1
	CTL_ADDRESS = 2
	CTL_DATA    = 3
)

func (m *Message) marshal(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], uint32(m.Source))
	binary.LittleEndian.PutUint32(b[4:], uint32(m.Type))
	for i, w := range m.M {
		binary.LittleEndian.PutUint32(b[8+4*i:], uint32(w))
	}
}

func (m *Message) unmarshal(b []byte) {
	m.Source = int32(binary.LittleEndian.Uint32(b[0:]))
	m.Type = int32(binary.LittleEndian.Uint32(b[4:]))
	for i := range m.M {
		m.M[i] = int32(binary.LittleEndian.Uint32(b[8+4*i:]))
	}
}

func (m Message) String() string {
	return fmt.Sprintf("src=%s type=%#x m=%v", procName(int(m.Source)), m.Type, m.M)
}

func procName(nr int) string {
	switch nr {
	case ANY:
		return "ANY"
	case NONE:
		return "NONE"
	case SELF:
		return "SELF"
	}
	return fmt.Sprint(nr)
}
