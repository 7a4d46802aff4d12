// Package svc carries kernel operations across the privilege boundary.
//
// A task raises a supervisor call whose immediate is a Code. Register r0 is
// reserved, r1..r3 hold the first arguments and the rest are pushed on the
// caller's stack just above the exception frame. Go values that do not fit
// in a register word travel as Handles.
package svc

import "errors"

// ErrUnknownTrap is reported for supervisor calls with no known Code.
var ErrUnknownTrap = errors.New("svc: unknown trap")

// Code selects the kernel operation of a supervisor call.
type Code uint8

const (
	StartOS Code = iota
	CreateTask
	Sleep
	DestroyTask
	Yield
	Wait
	RegisterError
	Lock
	GetTicks
)

func (c Code) String() string {
	switch c {
	case StartOS:
		return "StartOS"
	case CreateTask:
		return "CreateTask"
	case Sleep:
		return "Sleep"
	case DestroyTask:
		return "DestroyTask"
	case Yield:
		return "Yield"
	case Wait:
		return "Wait"
	case RegisterError:
		return "RegisterError"
	case Lock:
		return "Lock"
	case GetTicks:
		return "GetTicks"
	default:
		return "unknown"
	}
}
