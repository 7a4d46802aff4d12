package svc

import (
	"fmt"

	"kestrel/hal"
	"kestrel/kestrel/kernel"
)

// Kernel is the set of operations reachable through supervisor calls.
// *kernel.Kernel implements it.
type Kernel interface {
	StartOS()
	CreateTask(entry hal.TaskFunc, arg any, prio kernel.Priority, name string, stackSize uint32) (kernel.TaskID, error)
	Sleep(ticks uint32)
	DestroyTask()
	Yield()
	Wait(l *kernel.Lockable)
	Lock(l *kernel.Lockable, acquired bool)
	RegisterErrorAt(code kernel.Fault, ctx kernel.ErrorContext)
	GetTicks() uint64
}

// Dispatcher decodes supervisor calls and runs them against a Kernel.
type Dispatcher struct {
	mem     *hal.Memory
	k       Kernel
	handles *Handles
	log     hal.Logger
}

// NewDispatcher returns a trap handler reading frames from mem. log may be
// nil.
func NewDispatcher(mem *hal.Memory, k Kernel, handles *Handles, log hal.Logger) *Dispatcher {
	return &Dispatcher{mem: mem, k: k, handles: handles, log: log}
}

// HandleTrap runs the call whose exception frame starts at frame. Results
// are written back to r0 and r1 of the frame.
func (d *Dispatcher) HandleTrap(frame uint32) {
	if d.k == nil {
		kernel.Fatalf("svc: no kernel registered")
		return
	}
	f := hal.ReadAutoFrame(d.mem, frame)

	// Arguments past r3 sit right above the frame, one word further up
	// if the processor padded the stack to align it. That is also where
	// the caller's stack pointer was.
	args := frame + hal.AutoFrameSize
	if f.XPSR&hal.XPSRStackPadded != 0 {
		args += 4
	}
	ctx := kernel.ErrorContext{
		PC: f.PC,
		LR: f.LR,
		SP: args,
		R:  [4]uint32{f.R0, f.R1, f.R2, f.R3},
	}

	imm, ok := hal.SVCImmediate(d.mem, f.PC)
	if !ok {
		d.logf("%v: no svc instruction before pc %#x", ErrUnknownTrap, f.PC)
		d.k.RegisterErrorAt(kernel.FaultUnknownTrap, ctx)
		return
	}

	switch code := Code(imm); code {
	case StartOS:
		d.k.StartOS()

	case CreateTask:
		nameWord := d.mem.Word(args)
		stackSize := d.mem.Word(args + 4)

		entry, _ := d.value(f.R1).(hal.TaskFunc)
		arg := d.value(f.R2)
		name, _ := d.value(nameWord).(string)
		for _, w := range []uint32{f.R1, f.R2, nameWord} {
			d.handles.Release(w)
		}

		id, err := d.k.CreateTask(entry, arg, kernel.Priority(f.R3), name, stackSize)
		if err != nil {
			d.logf("%v: %v", code, err)
		}
		f.R0 = uint32(id)
		f.Store(d.mem, frame)

	case Sleep:
		d.k.Sleep(f.R1)

	case DestroyTask:
		d.k.DestroyTask()

	case Yield:
		d.k.Yield()

	case Wait:
		if l := d.lockable(code, f.R1, ctx); l != nil {
			d.k.Wait(l)
		}

	case Lock:
		if l := d.lockable(code, f.R1, ctx); l != nil {
			d.k.Lock(l, f.R2 != 0)
		}

	case RegisterError:
		d.k.RegisterErrorAt(kernel.Fault(f.R1), ctx)

	case GetTicks:
		n := d.k.GetTicks()
		f.R0 = uint32(n)
		f.R1 = uint32(n >> 32)
		f.Store(d.mem, frame)

	default:
		d.logf("svc #%d: %v", imm, ErrUnknownTrap)
		d.k.RegisterErrorAt(kernel.FaultUnknownTrap, ctx)
	}
}

func (d *Dispatcher) value(w uint32) any {
	v, _ := d.handles.Get(w)
	return v
}

func (d *Dispatcher) lockable(code Code, w uint32, ctx kernel.ErrorContext) *kernel.Lockable {
	l, _ := d.value(w).(*kernel.Lockable)
	if l == nil {
		d.logf("%v: handle %#x is not a lockable", code, w)
		d.k.RegisterErrorAt(kernel.FaultBadTrapArgument, ctx)
	}
	return l
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.log == nil {
		return
	}
	d.log.WriteLineString("svc: " + fmt.Sprintf(format, args...))
}
