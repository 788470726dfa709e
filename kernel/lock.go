// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// The kernel has a single logical thread of execution.
// Kernel.Big stands in for the processor's interrupt-enable bit:
// holding it means interrupts are disabled. Interrupt and trap entry
// take it and raise kReenter to 0 or more; code running at task level
// (kReenter < 0) takes it around every change to shared state.
// Nothing ever waits on Big for long, because the kernel never blocks.

// An intrMask records whether disable took Big.
type intrMask bool

// disable turns interrupts off, unless they already are because
// the caller runs in interrupt or trap context.
func (k *Kernel) disable(who string) intrMask {
	if k.kReenter.Load() >= 0 {
		return false
	}
	if !k.Big.TryLock() {
		k.panic("lock %s: kernel lock already held at task level", who)
	}
	return true
}

// restore undoes disable.
func (k *Kernel) restore(im intrMask) {
	if im {
		k.Big.Unlock()
	}
}

// enter begins an interrupt or trap.
func (k *Kernel) enter() {
	k.Big.Lock()
	k.kReenter.Add(1)
}

// leave ends an interrupt or trap.
func (k *Kernel) leave() {
	k.kReenter.Add(-1)
	k.Big.Unlock()
}
