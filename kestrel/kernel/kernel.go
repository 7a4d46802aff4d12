// Package kernel implements a preemptive fixed-priority task scheduler with
// priority inheritance for a single-core machine.
//
// Every Kernel method except Snapshot, Current and Errors runs in kernel
// context: from a supervisor call, the tick interrupt or the context switch
// handler. The port guarantees these never interleave, so the kernel keeps
// no locks of its own. Only the tick counter is shared with interrupt
// context and is accessed with interrupts masked.
package kernel

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"kestrel/hal"
)

const (
	// DefaultMinStackSize is the smallest stack a task is given.
	DefaultMinStackSize = 256
	// DefaultMaxNameLen is how many bytes of a task name are kept.
	DefaultMaxNameLen = 10

	// tcbSize is the heap reservation backing a control block.
	tcbSize = 64
)

// Allocator provides the memory for task control blocks and stacks.
type Allocator interface {
	Alloc(size uint32) (addr uint32, ok bool)
	Free(addr uint32)
}

// Hooks observe scheduling decisions. Both run in the switch handler and
// must not call back into the kernel.
type Hooks struct {
	// BeforeSchedule runs on entry to the scheduler with the task that was
	// running (0 if none).
	BeforeSchedule func(prev TaskID, now uint64)
	// AfterSchedule runs once the next task has been picked.
	AfterSchedule func(next TaskID, now uint64)
}

// Config tunes a Kernel. Zero fields take their defaults.
type Config struct {
	MinStackSize uint32
	MaxNameLen   int
	Logger       hal.Logger
	Hooks        Hooks
	// OnTick runs at the start of every tick interrupt.
	OnTick func()
}

// Kernel owns every task and the ready, blocked and sleeping lists.
type Kernel struct {
	port  hal.Port
	alloc Allocator
	cfg   Config

	tasks    map[TaskID]*tcb
	ready    taskList
	blocked  taskList
	sleeping taskList
	current  *tcb

	ticks   uint64
	lastID  TaskID
	started bool
	errs    ErrorStats
}

// New returns a kernel that drives port and takes memory from alloc.
func New(port hal.Port, alloc Allocator, cfg Config) *Kernel {
	if cfg.MinStackSize == 0 {
		cfg.MinStackSize = DefaultMinStackSize
	}
	if cfg.MaxNameLen <= 0 {
		cfg.MaxNameLen = DefaultMaxNameLen
	}
	return &Kernel{
		port:  port,
		alloc: alloc,
		cfg:   cfg,
		tasks: make(map[TaskID]*tcb),
	}
}

// CreateTask allocates a task that starts at entry(arg) when first
// scheduled and adds it to the ready list. Stack sizes below the configured
// minimum are raised to it. On failure no state changes.
func (k *Kernel) CreateTask(entry hal.TaskFunc, arg any, prio Priority, name string, stackSize uint32) (TaskID, error) {
	if prio > MaxPriority {
		return 0, fmt.Errorf("create %q: %w", name, ErrBadPriority)
	}

	addr, ok := k.alloc.Alloc(tcbSize)
	if !ok {
		k.logf("create %q: control block: %v", name, ErrNoMemory)
		return 0, fmt.Errorf("create %q: %w", name, ErrNoMemory)
	}

	if stackSize < k.cfg.MinStackSize {
		stackSize = k.cfg.MinStackSize
	}
	stackSize = (stackSize + 7) &^ 7
	base, ok := k.alloc.Alloc(stackSize)
	if !ok {
		k.alloc.Free(addr)
		k.logf("create %q: stack of %d bytes: %v", name, stackSize, ErrNoMemory)
		return 0, fmt.Errorf("create %q: %w", name, ErrNoMemory)
	}

	sp := k.port.InitializeTaskStack(base+stackSize, entry, arg)
	if sp == 0 {
		k.alloc.Free(base)
		k.alloc.Free(addr)
		return 0, fmt.Errorf("create %q: %w", name, ErrStackInit)
	}

	t := &tcb{
		id:           k.nextID(),
		addr:         addr,
		sp:           sp,
		stackBase:    base,
		stackSize:    stackSize,
		entry:        entry,
		arg:          arg,
		priority:     prio,
		basePriority: prio,
		state:        Ready,
		name:         truncateName(name, k.cfg.MaxNameLen),
	}
	k.tasks[t.id] = t
	k.ready.Add(t)
	return t.id, nil
}

// StartOS creates the idle task, initializes the port and requests the
// first context switch.
func (k *Kernel) StartOS() {
	if k.started {
		k.fatal(errors.New("StartOS called twice"))
		return
	}
	k.started = true

	if _, err := k.CreateTask(k.idle, nil, Idle, "Idle", k.cfg.MinStackSize); err != nil {
		k.fatal(fmt.Errorf("idle task: %w", err))
		return
	}
	k.port.Initialize()
	k.port.TriggerPendSwitch()
}

func (k *Kernel) idle(any) {
	for {
		k.port.WaitForInterrupt()
	}
}

// Sleep suspends the current task for ticks ticks.
func (k *Kernel) Sleep(ticks uint32) {
	t := k.current
	if t == nil {
		k.fatal(fmt.Errorf("sleep: %w", ErrNoCurrentTask))
		return
	}
	t.block = wakeAt(uint64(ticks) + k.GetTicks())
	t.state = Sleeping
	k.ready.Remove(t)
	k.sleeping.Add(t)

	k.port.TriggerPendSwitch()
}

// DestroyTask removes the current task and frees its memory. It is a no-op
// when no task is current.
func (k *Kernel) DestroyTask() {
	t := k.current
	if t == nil {
		return
	}

	k.ready.Remove(t)
	delete(k.tasks, t.id)
	k.port.ReleaseTaskStack(t.sp)
	k.alloc.Free(t.stackBase)
	k.alloc.Free(t.addr)
	k.current = nil
	k.logf("task %q destroyed", t.name)

	k.port.TriggerPendSwitch()
}

// Yield requests a scheduling decision without changing any state.
func (k *Kernel) Yield() {
	k.port.TriggerPendSwitch()
}

// Wait blocks the current task on l. The holder of l inherits the waiter's
// priority if it is lower.
func (k *Kernel) Wait(l *Lockable) {
	t := k.current
	if t == nil {
		k.fatal(fmt.Errorf("wait: %w", ErrNoCurrentTask))
		return
	}
	t.state = Blocked
	t.block = waitOn{l: l}

	// The holder may not have reported its acquisition yet; the waiter
	// still blocks and is woken by the release.
	if holder := k.tasks[l.blocker]; holder != nil && holder.priority < t.priority {
		holder.priority = t.priority
	}

	k.ready.Remove(t)
	k.blocked.Add(t)

	k.port.TriggerPendSwitch()
}

// Lock records the current task as the holder of l when acquired is true.
// On release it restores the holder's base priority and readies every task
// blocked on l.
func (k *Kernel) Lock(l *Lockable, acquired bool) {
	if acquired {
		t := k.current
		if t == nil {
			k.fatal(fmt.Errorf("lock: %w", ErrNoCurrentTask))
			return
		}
		l.blocker = t.id
		return
	}

	if holder := k.tasks[l.blocker]; holder != nil {
		holder.priority = holder.basePriority
	}
	l.blocker = 0

	k.blocked.Walk(func(t *tcb) bool {
		if w, ok := t.block.(waitOn); ok && w.l == l {
			k.blocked.Remove(t)
			t.block = nil
			t.state = Ready
			k.ready.Add(t)
		}
		return true
	})

	k.port.TriggerPendSwitch()
}

// RegisterError records an error reported by a task or the trap layer.
// Fatal-class codes halt the system.
func (k *Kernel) RegisterError(code Fault) {
	k.RegisterErrorAt(code, ErrorContext{})
}

// RegisterErrorAt is RegisterError with the register state of the caller,
// as decoded from its trap frame.
func (k *Kernel) RegisterErrorAt(code Fault, ctx ErrorContext) {
	k.errs.Count++
	k.errs.Last = code
	k.errs.LastTask = 0
	k.errs.LastContext = ctx
	name := "-"
	if k.current != nil {
		k.errs.LastTask = k.current.id
		name = k.current.name
	}
	if ctx.PC != 0 {
		k.logf("error %#x (%s) registered by %s at pc %#x lr %#x sp %#x",
			uint32(code), code, name, ctx.PC, ctx.LR, ctx.SP)
	} else {
		k.logf("error %#x (%s) registered by %s", uint32(code), code, name)
	}

	if code.Fatal() {
		k.fatal(fmt.Errorf("registered error %#x (%s)", uint32(code), code))
	}
}

// GetTicks returns the number of ticks since start-up.
func (k *Kernel) GetTicks() uint64 {
	k.port.DisableInterrupts()
	n := k.ticks
	k.port.EnableInterrupts()
	return n
}

// SwitchContext is the body of the deferred switch handler. It saves sp as
// the outgoing task's stack pointer, picks the next task and returns its
// stack pointer. sp is 0 when nothing was running.
func (k *Kernel) SwitchContext(sp uint32) uint32 {
	if k.current != nil && sp != 0 {
		k.current.sp = sp
	}
	k.triggerScheduler()
	if k.current == nil {
		return 0
	}
	return k.current.sp
}

// triggerScheduler makes the highest priority ready task current. Among
// equals the one that ran least recently wins.
func (k *Kernel) triggerScheduler() {
	now := k.GetTicks()
	if h := k.cfg.Hooks.BeforeSchedule; h != nil {
		h(k.currentID(), now)
	}

	if t := k.current; t != nil && t.state == Running {
		t.state = Ready
		t.lastRun = now
	}

	var next *tcb
	k.ready.Walk(func(t *tcb) bool {
		if t.state != Ready {
			return true
		}
		switch {
		case next == nil, t.priority > next.priority:
			next = t
		case t.priority == next.priority && t.lastRun < next.lastRun:
			next = t
		}
		return true
	})

	k.current = next
	if next == nil {
		k.fatal(errors.New("no task ready to run"))
		return
	}
	next.state = Running

	if h := k.cfg.Hooks.AfterSchedule; h != nil {
		h(next.id, now)
	}
}

// HandleTick is the body of the tick interrupt.
func (k *Kernel) HandleTick() {
	if k.cfg.OnTick != nil {
		k.cfg.OnTick()
	}

	k.port.DisableInterrupts()
	k.ticks++
	now := k.ticks
	k.port.EnableInterrupts()

	k.sleeping.Walk(func(t *tcb) bool {
		if w, ok := t.block.(wakeAt); ok && now >= uint64(w) {
			k.sleeping.Remove(t)
			t.block = nil
			t.state = Ready
			k.ready.Add(t)
		}
		return true
	})

	k.port.TriggerPendSwitch()
}

// Current returns the running task.
func (k *Kernel) Current() (TaskInfo, bool) {
	k.port.DisableInterrupts()
	defer k.port.EnableInterrupts()
	if k.current == nil {
		return TaskInfo{}, false
	}
	return k.current.info(), true
}

// Task returns the state of the task id.
func (k *Kernel) Task(id TaskID) (TaskInfo, bool) {
	k.port.DisableInterrupts()
	defer k.port.EnableInterrupts()
	t, ok := k.tasks[id]
	if !ok {
		return TaskInfo{}, false
	}
	return t.info(), true
}

// Snapshot returns the state of every task: ready ones first, then
// sleeping, then blocked, each in list order.
func (k *Kernel) Snapshot() []TaskInfo {
	k.port.DisableInterrupts()
	defer k.port.EnableInterrupts()

	out := make([]TaskInfo, 0, len(k.tasks))
	for _, l := range []*taskList{&k.ready, &k.sleeping, &k.blocked} {
		l.Walk(func(t *tcb) bool {
			out = append(out, t.info())
			return true
		})
	}
	return out
}

// Errors returns the registered error statistics.
func (k *Kernel) Errors() ErrorStats {
	k.port.DisableInterrupts()
	defer k.port.EnableInterrupts()
	return k.errs
}

// Fault reports a processor fault taken while the current task ran. It is
// always fatal.
func (k *Kernel) Fault(v any) {
	k.fatal(fmt.Errorf("fault: %v", v))
}

func (k *Kernel) nextID() TaskID {
	k.lastID++
	if k.lastID == 0 {
		k.lastID++
	}
	return k.lastID
}

// truncateName cuts name to at most n bytes without splitting a rune.
func truncateName(name string, n int) string {
	if len(name) <= n {
		return name
	}
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}

func (k *Kernel) currentID() TaskID {
	if k.current == nil {
		return 0
	}
	return k.current.id
}

func (k *Kernel) fatal(v any) {
	info := PanicInfo{Value: v}
	if k.current != nil {
		info.TaskID = k.current.id
		info.Name = k.current.name
	}
	k.logf("fatal: %v", v)
	triggerPanic(info)
}

func (k *Kernel) logf(format string, args ...any) {
	if k.cfg.Logger == nil {
		return
	}
	k.cfg.Logger.WriteLineString("kernel: " + fmt.Sprintf(format, args...))
}
