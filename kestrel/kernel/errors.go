package kernel

import "errors"

var (
	// ErrNoMemory is returned when a task control block or stack cannot be
	// allocated.
	ErrNoMemory = errors.New("kernel: out of memory")
	// ErrNoCurrentTask reports a task-context operation with no task running.
	ErrNoCurrentTask = errors.New("kernel: no current task")
	// ErrBadPriority is returned for priorities above MaxPriority.
	ErrBadPriority = errors.New("kernel: invalid priority")
	// ErrStackInit is returned when the port cannot lay out a task frame.
	ErrStackInit = errors.New("kernel: cannot initialize task stack")
)

// Fault is an error code reported through RegisterError.
//
// Codes below FaultKernelBase are application defined. Codes from
// FaultKernelBase up are raised by the kernel and the trap layer and are
// fatal.
type Fault uint32

const (
	FaultNone Fault = 0

	FaultKernelBase Fault = 0xFFFF_0000

	// FaultUnknownTrap is raised for a supervisor call with an unknown code.
	FaultUnknownTrap Fault = FaultKernelBase + iota
	// FaultBadTrapArgument is raised for a trap whose arguments do not resolve.
	FaultBadTrapArgument
)

// Fatal reports whether the code is one the kernel must not continue past.
func (f Fault) Fatal() bool {
	return f >= FaultKernelBase
}

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultUnknownTrap:
		return "unknown trap"
	case FaultBadTrapArgument:
		return "bad trap argument"
	}
	if f.Fatal() {
		return "kernel fault"
	}
	return "application fault"
}

// ErrorContext is the register state of the caller that registered an
// error. It is zero for errors raised inside the kernel.
type ErrorContext struct {
	PC uint32
	LR uint32
	// SP is the caller's stack pointer before the trap.
	SP uint32
	R  [4]uint32
}

// ErrorStats summarizes the errors registered so far.
type ErrorStats struct {
	Count uint64
	Last  Fault
	// LastTask is the task that registered the last error, if any.
	LastTask    TaskID
	LastContext ErrorContext
}
