// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// doIrqctl handles SYS_IRQCTL. A driver sets a policy on an IRQ line
// and from then on gets a notification from HARDWARE for every
// interrupt, with the bit it chose set in the notification argument.
// Hook ids in messages count from 1.
func doIrqctl(k *Kernel, m *Message) Errno {
	id := int(m.M[IRQ_HOOK_ID]) - 1
	irq := int(m.M[IRQ_VECTOR])

	switch m.M[IRQ_REQUEST] {
	case IRQ_ENABLE, IRQ_DISABLE:
		if id < 0 || id >= NR_IRQ_HOOKS || k.irqHooks[id].ProcNr == NONE {
			return EINVAL
		}
		hook := &k.irqHooks[id]
		if hook.ProcNr != int(m.Source) {
			return EPERM
		}
		if m.M[IRQ_REQUEST] == IRQ_ENABLE {
			k.enableIRQ(hook)
		} else {
			k.disableIRQ(hook)
		}

	case IRQ_SETPOLICY:
		if irq < 0 || irq >= NR_IRQ_VECTORS {
			return EINVAL
		}
		var hook *IRQHook
		for id = range k.irqHooks {
			if k.irqHooks[id].ProcNr == NONE {
				hook = &k.irqHooks[id]
				break
			}
		}
		if hook == nil {
			return ENOSPC
		}
		notifyID := int(m.M[IRQ_HOOK_ID])
		if notifyID < 0 || notifyID > 31 {
			return EINVAL
		}
		hook.ProcNr = int(m.Source)
		hook.NotifyID = notifyID
		hook.Policy = int(m.M[IRQ_POLICY])
		k.putIRQHandler(hook, irq, k.genericHandler)
		m.M[IRQ_HOOK_ID] = int32(id + 1)

	case IRQ_RMPOLICY:
		if id < 0 || id >= NR_IRQ_HOOKS || k.irqHooks[id].ProcNr == NONE {
			return EINVAL
		}
		hook := &k.irqHooks[id]
		if hook.ProcNr != int(m.Source) {
			return EPERM
		}
		k.rmIRQHandler(hook)
		hook.ProcNr = NONE

	default:
		return EINVAL
	}
	return 0
}
