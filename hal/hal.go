package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined; the SysTick source of the port
// consumes it.
type Time interface {
	Ticks() <-chan uint64
}

// TaskFunc is the entry point of a task. It runs with arg as its argument
// when the task is first scheduled.
type TaskFunc func(arg any)

// Port is the processor-specific shim the kernel drives.
//
// All methods except TriggerPendSwitch, DisableInterrupts and EnableInterrupts
// are called from kernel context only.
type Port interface {
	// Initialize configures exception priorities and the tick timer.
	Initialize()
	// TriggerPendSwitch requests a deferred context switch. Requests
	// coalesce until the switch handler runs.
	TriggerPendSwitch()
	// InitializeTaskStack lays out a fresh exception frame below stackTop
	// so that resuming from the returned stack pointer runs entry(arg).
	// It returns 0 if the frame does not fit.
	InitializeTaskStack(stackTop uint32, entry TaskFunc, arg any) uint32
	// ReleaseTaskStack drops any per-task state built by
	// InitializeTaskStack before the stack memory is freed.
	ReleaseTaskStack(sp uint32)
	// DisableInterrupts masks interrupts. Calls nest.
	DisableInterrupts()
	// EnableInterrupts undoes one DisableInterrupts. An unmatched call is
	// a fatal error.
	EnableInterrupts()
	// WaitForInterrupt parks the processor until an interrupt is taken.
	WaitForInterrupt()
}

// Switcher is called by the port's deferred switch handler. It stores sp as
// the outgoing task's saved stack pointer and returns the stack pointer of
// the task to resume.
type Switcher interface {
	SwitchContext(sp uint32) uint32
}

// TrapHandler handles a supervisor call whose exception frame starts at
// frame in memory.
type TrapHandler interface {
	HandleTrap(frame uint32)
}

// Machine is a Port that also exposes the wiring points a system needs to
// assemble a kernel on top of it.
type Machine interface {
	Port

	Memory() *Memory
	// HeapRegion returns the RAM range available to the allocator.
	HeapRegion() (base, size uint32)

	SetSwitcher(s Switcher)
	SetTrapHandler(h TrapHandler)
	SetTickHandler(fn func())
	SetTaskExit(fn func())
	SetFaultHandler(fn func(v any))

	// SupervisorCall raises a trap with the given immediate, argument
	// registers and stacked words, and returns r0 and r1 of the frame as
	// left by the handler.
	SupervisorCall(code uint8, regs [4]uint32, stacked ...uint32) (r0, r1 uint32)

	// Preempt opens an interrupt window for the running task: pending
	// interrupts are taken and a pended switch happens here.
	Preempt()
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	Display() Display
	Time() Time
	Machine() Machine
}
