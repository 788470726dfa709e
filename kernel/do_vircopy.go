// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// doVircopy handles SYS_VIRCOPY: a system process copies bytes
// between the address spaces of two processes, either of which may be
// itself. The memory of kernel tasks can be read but not written.
func doVircopy(k *Kernel, m *Message) Errno {
	n := VirBytes(m.M[CP_NR_BYTES])
	if m.M[CP_NR_BYTES] <= 0 {
		return EINVAL
	}
	src, errno := k.vcopyAddr(m, m.M[CP_SRC_PROC_NR], m.M[CP_SRC_SPACE], m.M[CP_SRC_ADDR], n)
	if errno != 0 {
		return errno
	}
	if iskerneln(int(m.M[CP_DST_PROC_NR])) {
		return EPERM
	}
	dst, errno := k.vcopyAddr(m, m.M[CP_DST_PROC_NR], m.M[CP_DST_SPACE], m.M[CP_DST_ADDR], n)
	if errno != 0 {
		return errno
	}
	k.Mem.PhysCopy(src, dst, PhysBytes(n))
	return 0
}

func (k *Kernel) vcopyAddr(m *Message, nr, seg, vir int32, n VirBytes) (PhysBytes, Errno) {
	if nr == SELF {
		nr = m.Source
	}
	if !isokprocn(int(nr)) || k.isemptyn(int(nr)) || seg < T || seg > S {
		return 0, EINVAL
	}
	pa, ok := k.Mem.Umap(k.procAddr(int(nr)), int(seg), VirBytes(vir), n)
	if !ok {
		return 0, EFAULT
	}
	return pa, 0
}
