package kernel

import (
	"fmt"
	"sync/atomic"
)

// PanicInfo contains details about a failed assertion.
type PanicInfo struct {
	TaskID TaskID
	Name   string
	Value  any
	Stack  []byte
}

// FatalError is the panic value raised when no handler is installed.
type FatalError struct {
	Info PanicInfo
}

func (e *FatalError) Error() string {
	if e.Info.Name != "" {
		return fmt.Sprintf("kernel: fatal in task %q: %v", e.Info.Name, e.Info.Value)
	}
	return fmt.Sprintf("kernel: fatal: %v", e.Info.Value)
}

var (
	panicActive  atomic.Bool
	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether an assertion has failed since start-up.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide assertion handler. Passing nil
// restores the default, which panics with a *FatalError.
//
// A handler that returns lets the caller continue, which is only meant for
// tests. It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

// Fatalf reports an invariant violation outside of any task context.
func Fatalf(format string, args ...any) {
	triggerPanic(PanicInfo{Value: fmt.Errorf(format, args...)})
}

// Assert calls Fatalf when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		Fatalf(format, args...)
	}
}

func triggerPanic(info PanicInfo) {
	panicActive.Store(true)
	info.Stack = captureStack()
	if v := panicHandler.Load(); v != nil {
		if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
			fn(info)
			return
		}
	}
	panic(&FatalError{Info: info})
}
