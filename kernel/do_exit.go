// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// doExit handles SYS_EXIT.
// PM may clear any process slot but those of kernel tasks; anyone
// else can only exit itself, and gets no reply.
func doExit(k *Kernel, m *Message) Errno {
	if m.Source == PM_PROC_NR {
		nr := int(m.M[PR_PROC_NR])
		if nr != SELF {
			if !isokprocn(nr) {
				return EINVAL
			}
			if iskerneln(nr) {
				return EPERM
			}
			if k.isemptyn(nr) {
				return EINVAL
			}
			k.clearProc(k.procAddr(nr))
			return 0
		}
	}
	k.clearProc(k.procAddr(int(m.Source)))
	return EDONTREPLY
}
