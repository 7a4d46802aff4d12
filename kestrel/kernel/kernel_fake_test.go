package kernel

import (
	"testing"

	"kestrel/hal"
)

type fakePort struct {
	initialized int
	pends       int
	level       int
	failInit    bool
	released    []uint32
}

func (p *fakePort) Initialize()        { p.initialized++ }
func (p *fakePort) TriggerPendSwitch() { p.pends++ }
func (p *fakePort) WaitForInterrupt()  {}

func (p *fakePort) InitializeTaskStack(stackTop uint32, entry hal.TaskFunc, arg any) uint32 {
	if p.failInit {
		return 0
	}
	return hal.TaskFrameAddr(stackTop)
}

func (p *fakePort) ReleaseTaskStack(sp uint32) {
	p.released = append(p.released, sp)
}

func (p *fakePort) DisableInterrupts() { p.level++ }

func (p *fakePort) EnableInterrupts() {
	if p.level == 0 {
		panic("EnableInterrupts without DisableInterrupts")
	}
	p.level--
}

// fakeAlloc is a bump allocator that can fail chosen allocations. With
// recycle set, freed blocks are handed out again, most recent first.
type fakeAlloc struct {
	next    uint32
	n       int
	failAt  map[int]bool // 1-based allocation numbers that fail
	sizes   []uint32
	live    map[uint32]uint32
	frees   map[uint32]int
	recycle bool
	freed   []uint32
	freedSz map[uint32]uint32
}

func newFakeAlloc() *fakeAlloc {
	return &fakeAlloc{
		next:   0x2000_0000,
		failAt: make(map[int]bool),
		live:   make(map[uint32]uint32),
		frees:  make(map[uint32]int),
	}
}

func newRecyclingAlloc() *fakeAlloc {
	a := newFakeAlloc()
	a.recycle = true
	a.freedSz = make(map[uint32]uint32)
	return a
}

func (a *fakeAlloc) Alloc(size uint32) (uint32, bool) {
	a.n++
	if a.failAt[a.n] {
		return 0, false
	}
	a.sizes = append(a.sizes, size)
	for i := len(a.freed) - 1; i >= 0; i-- {
		if addr := a.freed[i]; a.freedSz[addr] == size {
			a.freed = append(a.freed[:i], a.freed[i+1:]...)
			delete(a.freedSz, addr)
			a.live[addr] = size
			return addr, true
		}
	}
	addr := a.next
	a.next += (size + 7) &^ 7
	a.live[addr] = size
	return addr, true
}

func (a *fakeAlloc) Free(addr uint32) {
	a.frees[addr]++
	if a.recycle {
		a.freed = append(a.freed, addr)
		a.freedSz[addr] = a.live[addr]
	}
	delete(a.live, addr)
}

type recordLogger struct {
	lines []string
}

func (l *recordLogger) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *recordLogger) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func newTestKernel(t *testing.T) (*Kernel, *fakePort, *fakeAlloc) {
	t.Helper()
	port := &fakePort{}
	alloc := newFakeAlloc()
	return New(port, alloc, Config{}), port, alloc
}

func mustCreate(t *testing.T, k *Kernel, prio Priority, name string) TaskID {
	t.Helper()
	id, err := k.CreateTask(func(any) {}, nil, prio, name, DefaultMinStackSize)
	if err != nil {
		t.Fatalf("CreateTask(%q) error = %v", name, err)
	}
	return id
}

func capturePanics(t *testing.T) *[]PanicInfo {
	t.Helper()
	var got []PanicInfo
	SetPanicHandler(func(info PanicInfo) { got = append(got, info) })
	t.Cleanup(func() { SetPanicHandler(nil) })
	return &got
}

func currentName(t *testing.T, k *Kernel) string {
	t.Helper()
	cur, ok := k.Current()
	if !ok {
		t.Fatalf("Current() ok = false, want a running task")
	}
	return cur.Name
}

func taskInfo(t *testing.T, k *Kernel, id TaskID) TaskInfo {
	t.Helper()
	ti, ok := k.Task(id)
	if !ok {
		t.Fatalf("Task(%#x) ok = false", uint32(id))
	}
	return ti
}
