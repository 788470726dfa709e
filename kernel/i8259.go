// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "math/bits"

// An IRQController is the interrupt controller the kernel programs.
type IRQController interface {
	Raise(irq int)            // a device requests an interrupt
	Next() (irq int, ok bool) // take the highest-priority unmasked request
	Mask(irq int)
	Unmask(irq int)
	EOI(irq int) // end of interrupt
}

// A PIC is a simulated 8259A: one controller, NR_IRQ_VECTORS lines,
// line 0 having the highest priority. Requests latch in IRR until
// their line is unmasked and not already in service.
type PIC struct {
	IRR uint16 // interrupt request register
	ISR uint16 // in-service register
	IMR uint16 // interrupt mask register
}

// NewPIC returns a controller with every line masked.
func NewPIC() *PIC {
	return &PIC{IMR: 0xFFFF}
}

func (c *PIC) Raise(irq int) { c.IRR |= 1 << irq }
func (c *PIC) Mask(irq int)  { c.IMR |= 1 << irq }
func (c *PIC) Unmask(irq int) {
	c.IMR &^= 1 << irq
}
func (c *PIC) EOI(irq int) { c.ISR &^= 1 << irq }

func (c *PIC) Next() (int, bool) {
	ready := c.IRR &^ c.IMR &^ c.ISR
	if ready == 0 {
		return 0, false
	}
	irq := bits.TrailingZeros16(ready)
	c.IRR &^= 1 << irq
	c.ISR |= 1 << irq
	return irq, true
}

/* IRQ policies for SYS_IRQCTL */
const (
	IRQ_REENABLE = 0x001 /* reenable IRQ line after interrupt */
)

/* SYS_IRQCTL requests */
const (
	IRQ_SETPOLICY = 1 /* manage a slot of the IRQ table */
	IRQ_RMPOLICY  = 2 /* remove a slot of the IRQ table */
	IRQ_ENABLE    = 3 /* enable interrupts */
	IRQ_DISABLE   = 4 /* disable interrupts */
)

// An IRQHook links a handler into the chain of an interrupt line.
type IRQHook struct {
	next    *IRQHook
	handler func(hook *IRQHook) bool // returns whether to reenable the line
	irq     int
	id      uint16 // bit in irqActIDs while the handler is active

	ProcNr   int // NONE if not in use
	NotifyID int // bit set in the owner's IntPending
	Policy   int
}

// putIRQHandler chains hook onto irq.
func (k *Kernel) putIRQHandler(hook *IRQHook, irq int, handler func(*IRQHook) bool) {
	if irq < 0 || irq >= NR_IRQ_VECTORS {
		k.panic("invalid call to put_irq_handler: %d", irq)
	}
	line := &k.irqHandlers[irq]
	id := uint16(1)
	for *line != nil {
		if *line == hook {
			return
		}
		line = &(*line).next
		id <<= 1
	}
	if id == 0 {
		k.panic("too many handlers for irq %d", irq)
	}
	hook.next = nil
	hook.handler = handler
	hook.irq = irq
	hook.id = id
	*line = hook
	k.irqUse |= 1 << irq
	k.IRQ.Unmask(irq)
}

// rmIRQHandler unchains hook.
func (k *Kernel) rmIRQHandler(hook *IRQHook) {
	irq := hook.irq
	if irq < 0 || irq >= NR_IRQ_VECTORS {
		k.panic("invalid call to rm_irq_handler: %d", irq)
	}
	for line := &k.irqHandlers[irq]; *line != nil; line = &(*line).next {
		if (*line).id == hook.id {
			*line = (*line).next
			if k.irqHandlers[irq] == nil {
				k.irqUse &^= 1 << irq
				k.IRQ.Mask(irq)
			}
			break
		}
	}
	k.irqActIDs[irq] &^= hook.id
}

// enableIRQ reenables hook's line once no handler on it is active.
func (k *Kernel) enableIRQ(hook *IRQHook) {
	if k.irqActIDs[hook.irq] &^= hook.id; k.irqActIDs[hook.irq] == 0 {
		k.IRQ.Unmask(hook.irq)
	}
}

// disableIRQ keeps hook's line masked until enableIRQ.
func (k *Kernel) disableIRQ(hook *IRQHook) bool {
	if k.irqActIDs[hook.irq]&hook.id != 0 {
		return false
	}
	k.irqActIDs[hook.irq] |= hook.id
	k.IRQ.Mask(hook.irq)
	return true
}

// Interrupt runs the handlers chained on irq, with interrupts disabled.
// The line stays masked while any handler asks to keep it so.
func (k *Kernel) Interrupt(irq int) {
	k.enter()
	defer k.leave()

	k.IRQ.Mask(irq)
	k.IRQ.EOI(irq)
	for hook := k.irqHandlers[irq]; hook != nil; hook = hook.next {
		k.irqActIDs[irq] |= hook.id
		if hook.handler(hook) {
			k.irqActIDs[irq] &^= hook.id
		}
	}
	if k.irqActIDs[irq] == 0 && k.irqUse&(1<<irq) != 0 {
		k.IRQ.Unmask(irq)
	}
}

// Dispatch delivers every interrupt request pending at the controller
// and reports how many there were.
func (k *Kernel) Dispatch() int {
	n := 0
	for {
		irq, ok := k.IRQ.Next()
		if !ok {
			return n
		}
		k.Interrupt(irq)
		n++
	}
}

// genericHandler turns an interrupt into a notification from HARDWARE
// to the driver that set the policy.
func (k *Kernel) genericHandler(hook *IRQHook) bool {
	k.procAddr(hook.ProcNr).Priv.IntPending |= 1 << hook.NotifyID
	k.LockNotify(HARDWARE, hook.ProcNr)
	return hook.Policy&IRQ_REENABLE != 0
}
