// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "math"

/*
 * tunable variables
 */
const (
	NR_TASKS        = 4  /* number of kernel tasks */
	NR_PROCS        = 64 /* number of user-level process slots */
	NR_SYS_PROCS    = 32 /* number of privilege structures */
	NR_BOOT_PROCS   = 12 /* processes in the boot image */
	NR_SCHED_QUEUES = 16 /* must equal IDLE_Q + 1 */
	NR_IRQ_VECTORS  = 16 /* interrupt lines of the PIC */
	NR_IRQ_HOOKS    = 16 /* interrupt hooks available to drivers */
	NR_SYS_CALLS    = 10 /* kernel calls handled by SYSTEM */
	NR_LOCAL_SEGS   = 3  /* text, data, stack */
	P_NAME_LEN      = 8  /* process names are truncated to this */
	HZ              = 60 /* default clock ticks per second */
)

/*
 * scheduling queues
 * 0 is the highest priority; IDLE has a queue for itself
 */
const (
	TASK_Q     = 0  /* kernel tasks */
	MAX_USER_Q = 0  /* highest priority for user processes */
	USER_Q     = 7  /* default user priority */
	MIN_USER_Q = 14 /* lowest priority for user processes */
	IDLE_Q     = 15 /* only IDLE goes here */
)

/*
 * process numbers
 * kernel tasks are negative
 */
const (
	IDLE     = -4
	CLOCK    = -3
	SYSTEM   = -2
	HARDWARE = -1

	PM_PROC_NR   = 0
	FS_PROC_NR   = 1
	RS_PROC_NR   = 2
	MEM_PROC_NR  = 3
	LOG_PROC_NR  = 4
	TTY_PROC_NR  = 5
	DRVR_PROC_NR = 6
	INIT_PROC_NR = 7

	ANY  = 0x7ace /* receive from any process */
	NONE = 0x6ace /* no process; also the nil link */
	SELF = 0x8ace /* the calling process */
)

// USER_PRIV_ID is the privilege structure shared by all ordinary processes.
// It is fixed because send masks refer to it.
const USER_PRIV_ID = 0

/* runtime flags; a process is runnable iff its flags are zero */
const (
	SLOT_FREE   RtsFlags = 0x01 /* process slot is free */
	NO_MAP      RtsFlags = 0x02 /* keeps unmapped forked child from running */
	SENDING     RtsFlags = 0x04 /* blocked trying to send */
	RECEIVING   RtsFlags = 0x08 /* blocked trying to receive */
	SIGNALED    RtsFlags = 0x10 /* new kernel signal arrived */
	SIG_PENDING RtsFlags = 0x20 /* unready while signal being processed */
	P_STOP      RtsFlags = 0x40 /* stopped by a tracer */
)

/* privilege flags */
const (
	PREEMPTIBLE  PrivFlags = 0x01 /* kernel tasks are not preemptible */
	BILLABLE     PrivFlags = 0x04 /* some processes are not billable */
	SYS_PROC     PrivFlags = 0x10 /* system processes are privileged */
	SENDREC_BUSY PrivFlags = 0x20 /* sendrec in progress */
)

/* trap numbers, chosen so the checks in SysCall can test bits */
const (
	SEND    = 1 /* 0 0 0 1 : blocking send */
	RECEIVE = 2 /* 0 0 1 0 : blocking receive */
	SENDREC = 3 /* 0 0 1 1 : SEND + RECEIVE */
	NOTIFY  = 4 /* 0 1 0 0 : nonblocking notify */
	ECHO    = 8 /* 1 0 0 0 : echo a message */

	SYSCALL_FUNC  = 0x0F
	SYSCALL_FLAGS = 0xF0
	NON_BLOCKING  = 0x10

	CHECK_PTR = 0x0B /* 1 0 1 1 : validate message buffer */
	CHECK_DST = 0x05 /* 0 1 0 1 : validate message destination */
	CHECK_SRC = 0x02 /* 0 0 1 0 : validate message source */
)

/* memory */
const (
	CLICK_SHIFT = 10
	CLICK_SIZE  = 1 << CLICK_SHIFT

	T = 0 /* text segment */
	D = 1 /* data segment */
	S = 2 /* stack segment */
)

const (
	TMR_NEVER   Clock = math.MaxInt64
	STACK_GUARD       = 0xDEADBEEF
	CLOCK_IRQ         = 0
)

/* notifications */
const (
	NOTIFY_MESSAGE = 0x1000

	HARD_INT  = NOTIFY_MESSAGE | (HARDWARE + NR_TASKS)
	SYN_ALARM = NOTIFY_MESSAGE | (CLOCK + NR_TASKS)
	SYS_SIG   = NOTIFY_MESSAGE | (SYSTEM + NR_TASKS)
)

// NOTIFY_FROM returns the message type of a notification sent by src.
func NOTIFY_FROM(src int) int32 {
	return int32(NOTIFY_MESSAGE | (src + NR_TASKS))
}

/* kernel signals */
const (
	SIGKILL  = 9
	SIGKSIG  = 22 /* kernel signal pending for PM */
	SIGKSTOP = 23 /* kernel shutting down */
)
