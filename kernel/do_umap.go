// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// doUmap handles SYS_UMAP: it translates a virtual range in one of the
// segments of a process to a physical address.
func doUmap(k *Kernel, m *Message) Errno {
	nr := int(m.M[CP_SRC_PROC_NR])
	if nr == SELF {
		nr = int(m.Source)
	}
	seg := int(m.M[CP_SRC_SPACE])
	if !isokprocn(nr) || k.isemptyn(nr) || seg < T || seg > S {
		return EINVAL
	}
	pa, ok := k.Mem.Umap(k.procAddr(nr), seg, VirBytes(m.M[CP_SRC_ADDR]), VirBytes(m.M[CP_NR_BYTES]))
	if !ok {
		return EFAULT
	}
	m.M[CP_DST_ADDR] = int32(pa)
	return 0
}
