// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// doSetalarm handles SYS_SETALARM. A system process sets or, with an
// expiration time of 0, cancels its synchronous alarm. The reply
// carries the ticks that were left on the previous alarm.
func doSetalarm(k *Kernel, m *Message) Errno {
	exp := Clock(m.M[ALRM_EXP_TIME])
	abs := m.M[ALRM_ABS_TIME] != 0
	nr := int(m.Source)
	rp := k.procAddr(nr)
	if rp.Priv.Flags&SYS_PROC == 0 {
		return EPERM
	}

	tp := &rp.Priv.AlarmTimer
	tp.Arg = nr
	tp.Func = k.causeAlarm

	now := k.Uptime()
	if tp.Armed() && now < tp.ExpTime {
		m.M[ALRM_TIME_LEFT] = int32(tp.ExpTime - now)
	} else {
		m.M[ALRM_TIME_LEFT] = 0
	}

	if exp == 0 {
		k.ResetTimer(tp)
		return 0
	}
	if !abs {
		exp += now
	}
	k.SetTimer(tp, exp, tp.Func)
	return 0
}

// causeAlarm wakes the owner of an alarm with a notification from CLOCK.
func (k *Kernel) causeAlarm(tp *Timer) {
	k.LockNotify(CLOCK, tp.Arg)
}
