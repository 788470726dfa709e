// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// doTimes handles SYS_TIMES.
func doTimes(k *Kernel, m *Message) Errno {
	if nr := int(m.M[T_PROC_NR]); isokprocn(nr) {
		rp := k.procAddr(nr)
		m.M[T_USER_TIME] = int32(rp.UserTime)
		m.M[T_SYST_TIME] = int32(rp.SysTime)
	}
	m.M[T_BOOT_TICKS] = int32(k.Uptime())
	return 0
}
