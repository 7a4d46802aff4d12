// Package app assembles a running system from a HAL: heap, kernel, trap
// layer and the tasks of a workload scenario.
package app

import (
	"errors"
	"fmt"
	"sync/atomic"

	"kestrel/hal"
	"kestrel/internal/buildinfo"
	"kestrel/kestrel/kernel"
	"kestrel/kestrel/mem"
	"kestrel/kestrel/services/monitor"
	"kestrel/kestrel/svc"
	"kestrel/kestrel/trace"
	"kestrel/kestrel/workload"
)

// ErrHalted is returned by the step function once the kernel has hit a
// fatal error.
var ErrHalted = errors.New("app: system halted")

type Config struct {
	// Scenario to install. Nil installs the built-in one.
	Scenario *workload.Scenario
	// Monitor adds a task drawing the task table on the display.
	Monitor       bool
	MonitorPeriod uint32
	// Trace, if set, records every scheduling decision.
	Trace *trace.Recorder
	// MinStackSize overrides the kernel default.
	MinStackSize uint32
	// OnTick, if set, runs in the tick interrupt before the tick is
	// counted. It must not block or call into the kernel's task API.
	OnTick func(k *kernel.Kernel)
}

// System is one booted machine.
type System struct {
	h   hal.HAL
	m   hal.Machine
	cfg Config

	heap    *mem.Heap
	k       *kernel.Kernel
	handles *svc.Handles
	client  *svc.Client
	mon     *monitor.Monitor
	con     *console

	tasks []workload.Installed

	running atomic.Bool
	halted  atomic.Pointer[kernel.PanicInfo]
}

// New boots a system on h and returns its step function.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig is New with cfg.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s := NewSystem(h, cfg)
	if err := s.Boot(); err != nil {
		return func() error { return err }
	}
	return s.Step
}

// NewSystem wires a kernel onto the machine of h. No task exists yet.
func NewSystem(h hal.HAL, cfg Config) *System {
	s := &System{h: h, m: h.Machine(), cfg: cfg}
	installPanicHandler(s)

	base, size := s.m.HeapRegion()
	s.heap = mem.NewHeap(base, size)
	s.heap.Paint(s.m.Memory())

	kcfg := kernel.Config{
		MinStackSize: cfg.MinStackSize,
		Logger:       h.Logger(),
	}
	if cfg.Trace != nil {
		kcfg.Hooks = cfg.Trace.Hooks()
	}
	if cfg.OnTick != nil {
		kcfg.OnTick = func() { cfg.OnTick(s.k) }
	}
	s.k = kernel.New(s.m, s.heap, kcfg)

	s.handles = svc.NewHandles()
	s.client = svc.NewClient(s.m, s.handles)

	s.m.SetSwitcher(s.k)
	s.m.SetTickHandler(s.k.HandleTick)
	s.m.SetTrapHandler(svc.NewDispatcher(s.m.Memory(), s.k, s.handles, h.Logger()))
	s.m.SetTaskExit(s.client.DestroyTask)
	s.m.SetFaultHandler(s.k.Fault)

	mcfg := monitor.Config{
		Logger: h.Logger(),
		Memory: s.m.Memory(),
		Heap:   s.heap,
		Masker: s.m,
		Period: cfg.MonitorPeriod,
	}
	if cfg.Monitor {
		mcfg.Display = h.Display()
	}
	s.mon = monitor.New(s.k, s.client, mcfg)
	s.con = &console{s: s}
	return s
}

// Boot creates the scenario tasks, the console and optionally the monitor,
// then starts the kernel. On the host it returns once the first task runs.
func (s *System) Boot() error {
	s.logf("%s", buildinfo.Banner())

	sc := s.cfg.Scenario
	if sc == nil {
		sc = workload.Default()
	}
	tasks, err := sc.Install(workload.Env{
		Sys:    s.client,
		Work:   s.m.WaitForInterrupt,
		Logger: s.h.Logger(),
	})
	s.tasks = tasks
	for _, t := range tasks {
		s.label(t.ID, t.Spec.Name)
	}
	if err != nil {
		return fmt.Errorf("app: boot: %w", err)
	}

	if err := s.create(s.con.run, kernel.Level8, "console", 512); err != nil {
		return err
	}
	if s.cfg.Monitor {
		if err := s.create(s.mon.Run, kernel.Level0, "monitor", 1024); err != nil {
			return err
		}
	}

	s.running.Store(true)
	s.client.StartOS()
	return nil
}

func (s *System) create(entry hal.TaskFunc, prio kernel.Priority, name string, stack uint32) error {
	id := s.client.CreateTask(entry, nil, prio, name, stack)
	if id == 0 {
		return fmt.Errorf("app: boot: cannot create %s task", name)
	}
	s.label(id, name)
	return nil
}

func (s *System) label(id kernel.TaskID, name string) {
	if s.cfg.Trace != nil {
		s.cfg.Trace.SetName(id, name)
	}
}

// Step is called by the host runner after every frame.
func (s *System) Step() error {
	if info := s.halted.Load(); info != nil {
		return fmt.Errorf("%w: %v", ErrHalted, info.Value)
	}
	return nil
}

// Tasks returns the scenario tasks created at boot.
func (s *System) Tasks() []workload.Installed { return s.tasks }

func (s *System) Kernel() *kernel.Kernel { return s.k }
func (s *System) Heap() *mem.Heap        { return s.heap }

// RequestPrint asks the console to log the task table. Safe from any
// goroutine.
func (s *System) RequestPrint() { s.con.print.Store(true) }

// RaiseError asks the console to register an application error. Safe from
// any goroutine.
func (s *System) RaiseError() { s.con.raise.Store(true) }

func (s *System) logf(format string, args ...any) {
	if l := s.h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf(format, args...))
	}
}
