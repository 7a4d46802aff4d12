// Package monitor is a task that shows the scheduler state on the display
// and, on request, in the log.
package monitor

import (
	"fmt"
	"sync/atomic"

	"kestrel/hal"
	"kestrel/kestrel/kernel"
	"kestrel/kestrel/mem"
	ksync "kestrel/kestrel/sync"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// DefaultPeriod is the refresh interval in ticks.
const DefaultPeriod = 250

// Kernel is the read-only view of the scheduler the monitor needs.
type Kernel interface {
	Snapshot() []kernel.TaskInfo
	Errors() kernel.ErrorStats
}

// Sys is the task-side API the monitor runs on.
type Sys interface {
	Sleep(ticks uint32)
	GetTicks() uint64
}

// HeapStats reports allocator usage.
type HeapStats interface {
	Stats() mem.Stats
}

type Config struct {
	Display hal.Display
	Logger  hal.Logger
	// Memory, if set, is scanned for painted stack bytes.
	Memory *hal.Memory
	Heap   HeapStats
	// Masker, if set, keeps ticks out while the tasks, errors and heap
	// usage of one refresh are read.
	Masker ksync.Masker
	// Period between refreshes in ticks.
	Period uint32
}

// Monitor renders a task table every Period ticks.
type Monitor struct {
	k   Kernel
	sys Sys
	cfg Config

	fb hal.Framebuffer
	d  *fbDisplay

	print   atomic.Bool
	refresh atomic.Uint64
}

func New(k Kernel, sys Sys, cfg Config) *Monitor {
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	m := &Monitor{k: k, sys: sys, cfg: cfg}
	if cfg.Display != nil {
		if fb := cfg.Display.Framebuffer(); fb != nil {
			m.fb = fb
			m.d = &fbDisplay{fb: fb}
		}
	}
	return m
}

// RequestPrint asks the monitor to write the next table to the log. It may
// be called from any goroutine.
func (m *Monitor) RequestPrint() {
	m.print.Store(true)
}

// Refreshes returns how many times the table was rebuilt.
func (m *Monitor) Refreshes() uint64 {
	return m.refresh.Load()
}

// Run is the task entry point.
func (m *Monitor) Run(any) {
	for {
		m.Update(m.sys.GetTicks())
		m.sys.Sleep(m.cfg.Period)
	}
}

// Update rebuilds the table at tick now, draws it and logs it if a print
// was requested.
func (m *Monitor) Update(now uint64) {
	lines := m.Lines(now)
	m.refresh.Add(1)
	if m.d != nil {
		m.draw(lines)
	}
	if m.print.Swap(false) && m.cfg.Logger != nil {
		for _, l := range lines {
			m.cfg.Logger.WriteLineString(l)
		}
	}
}

// Lines returns the full screen text at tick now.
func (m *Monitor) Lines(now uint64) []string {
	cs := ksync.EnterCritical(m.cfg.Masker)
	tasks := m.k.Snapshot()
	errs := m.k.Errors()
	var heap *mem.Stats
	if m.cfg.Heap != nil {
		st := m.cfg.Heap.Stats()
		heap = &st
	}
	cs.Exit()

	lines := []string{
		fmt.Sprintf("tick %d  tasks %d  errors %d", now, len(tasks), errs.Count),
	}
	if heap != nil {
		lines = append(lines, fmt.Sprintf("heap %d/%d  largest %d  fails %d",
			heap.Used, heap.Size, heap.Largest, heap.Fails))
	}
	if errs.Count > 0 {
		l := fmt.Sprintf("last error %#x (%s)", uint32(errs.Last), errs.Last)
		if pc := errs.LastContext.PC; pc != 0 {
			l += fmt.Sprintf(" pc %#x", pc)
		}
		lines = append(lines, l)
	}
	lines = append(lines, "", Header)
	return append(lines, FormatTable(tasks, now, m.stackUsage)...)
}

func (m *Monitor) stackUsage(t kernel.TaskInfo) (uint32, bool) {
	if m.cfg.Memory == nil || !m.cfg.Memory.Contains(t.StackBase, t.StackSize) {
		return 0, false
	}
	return mem.StackUsage(m.cfg.Memory, t.StackBase, t.StackSize), true
}

func (m *Monitor) draw(lines []string) {
	m.fb.ClearRGB(0, 0, 0)
	t := tinyterm.NewTerminal(m.d)
	t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	for i, l := range lines {
		// Highlight the header row.
		if l == Header {
			fmt.Fprintf(t, "\x1b[33m%s\x1b[0m", l)
		} else {
			fmt.Fprint(t, l)
		}
		if i < len(lines)-1 {
			fmt.Fprint(t, "\r\n")
		}
	}
	t.Display()
}
