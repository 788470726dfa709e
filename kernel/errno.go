// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "fmt"

// An Errno is the result of a trap or kernel call.
// Zero means success.
type Errno int8

const (
	ECALLDENIED Errno = 1 + iota /* trap or destination not allowed */
	EBADSRCDST                   /* bad source or destination process */
	EDEADDST                     /* destination slot is free */
	ELOCKED                      /* cyclic send */
	ENOTREADY                    /* nonblocking call could not complete */
	EFAULT                       /* bad message buffer */
	EBADCALL                     /* unknown trap */
	EINVAL                       /* malformed kernel call */
	EPERM                        /* kernel call not allowed for process type */
	EBADREQUEST                  /* unknown kernel call */
	ENOSPC                       /* no free privilege structure or hook */
	EIO                          /* trace request failed */

	EDONTREPLY Errno = 127 /* handler replies itself, or never */
)

func (e Errno) Error() string {
	if 0 <= e && int(e) < len(enames) && enames[e] != "" {
		return enames[e]
	}
	if e == EDONTREPLY {
		return "EDONTREPLY"
	}
	return fmt.Sprintf("Errno(%d)", int(e))
}

var enames = []string{
	"OK",
	"ECALLDENIED",
	"EBADSRCDST",
	"EDEADDST",
	"ELOCKED",
	"ENOTREADY",
	"EFAULT",
	"EBADCALL",
	"EINVAL",
	"EPERM",
	"EBADREQUEST",
	"ENOSPC",
	"EIO",
}

// A Kind groups errnos by what went wrong.
type Kind int

const (
	KindNone Kind = iota
	PermissionDenied
	InvalidProcess
	Deadlock
	WouldBlock
	FaultyBuffer
	BadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case PermissionDenied:
		return "PermissionDenied"
	case InvalidProcess:
		return "InvalidProcess"
	case Deadlock:
		return "Deadlock"
	case WouldBlock:
		return "WouldBlock"
	case FaultyBuffer:
		return "FaultyBuffer"
	case BadRequest:
		return "BadRequest"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kind reports the class of e.
func (e Errno) Kind() Kind {
	switch e {
	case 0, EDONTREPLY:
		return KindNone
	case ECALLDENIED, EPERM:
		return PermissionDenied
	case EBADSRCDST, EDEADDST:
		return InvalidProcess
	case ELOCKED:
		return Deadlock
	case ENOTREADY:
		return WouldBlock
	case EFAULT:
		return FaultyBuffer
	case ENOSPC:
		return WouldBlock
	}
	return BadRequest
}
