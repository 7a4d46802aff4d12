package kernel

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateTaskAddsReadyTask(t *testing.T) {
	k, _, alloc := newTestKernel(t)

	id, err := k.CreateTask(func(any) {}, 5, Level4, "LongTaskName123", 16)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	ti := taskInfo(t, k, id)
	if ti.State != Ready {
		t.Fatalf("State = %v, want %v", ti.State, Ready)
	}
	if ti.Priority != Level4 || ti.BasePriority != Level4 {
		t.Fatalf("Priority, BasePriority = %v, %v, want %v, %v", ti.Priority, ti.BasePriority, Level4, Level4)
	}
	if ti.LastRun != 0 {
		t.Fatalf("LastRun = %d, want 0", ti.LastRun)
	}
	if ti.Name != "LongTaskNa" {
		t.Fatalf("Name = %q, want %q", ti.Name, "LongTaskNa")
	}
	if ti.StackSize != DefaultMinStackSize {
		t.Fatalf("StackSize = %d, want %d", ti.StackSize, DefaultMinStackSize)
	}
	if got := alloc.sizes; len(got) != 2 || got[0] != tcbSize || got[1] != DefaultMinStackSize {
		t.Fatalf("allocation sizes = %v, want [%d %d]", got, tcbSize, DefaultMinStackSize)
	}
	if !k.ready.Contains(k.tasks[id]) {
		t.Fatalf("task not in ready list")
	}
}

func TestCreateTaskTruncatesNameOnRuneBoundary(t *testing.T) {
	k, _, _ := newTestKernel(t)
	tests := []struct {
		name, want string
	}{
		{"abcdefghi\u20acxyz", "abcdefghi"},
		{"\u00e4\u00f6\u00fc\u00e4\u00f6\u00fc", "\u00e4\u00f6\u00fc\u00e4\u00f6"},
		{"short", "short"},
	}
	for _, tt := range tests {
		id := mustCreate(t, k, Level1, tt.name)
		if got := taskInfo(t, k, id).Name; got != tt.want {
			t.Fatalf("Name = %q, want %q", got, tt.want)
		}
	}
}

func TestCreateTaskFailureLeavesNoState(t *testing.T) {
	tests := []struct {
		name     string
		failAt   int
		failInit bool
		wantErr  error
	}{
		{name: "control block", failAt: 1, wantErr: ErrNoMemory},
		{name: "stack", failAt: 2, wantErr: ErrNoMemory},
		{name: "frame", failInit: true, wantErr: ErrStackInit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, port, alloc := newTestKernel(t)
			mustCreate(t, k, Level1, "keep")
			before := k.ready.Len()

			alloc.failAt[alloc.n+tt.failAt] = true
			port.failInit = tt.failInit
			id, err := k.CreateTask(func(any) {}, nil, Level2, "fail", 512)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateTask() error = %v, want %v", err, tt.wantErr)
			}
			if id != 0 {
				t.Fatalf("CreateTask() id = %#x, want 0", uint32(id))
			}
			if got := k.ready.Len(); got != before {
				t.Fatalf("ready list length = %d, want %d", got, before)
			}
			if got := len(k.tasks); got != 1 {
				t.Fatalf("tasks = %d, want 1", got)
			}
			if got := len(alloc.live); got != 2 {
				t.Fatalf("live allocations = %d, want 2", got)
			}
		})
	}
}

func TestCreateTaskRejectsBadPriority(t *testing.T) {
	k, _, alloc := newTestKernel(t)
	if _, err := k.CreateTask(func(any) {}, nil, MaxPriority+1, "bad", 0); !errors.Is(err, ErrBadPriority) {
		t.Fatalf("CreateTask() error = %v, want %v", err, ErrBadPriority)
	}
	if alloc.n != 0 {
		t.Fatalf("allocations = %d, want 0", alloc.n)
	}
}

func TestStartOSRunsHighestPriorityTask(t *testing.T) {
	k, port, _ := newTestKernel(t)
	mustCreate(t, k, Level3, "TestTask1")
	mustCreate(t, k, Level7, "TestTask2")

	k.StartOS()
	if port.initialized != 1 {
		t.Fatalf("port initialized %d times, want 1", port.initialized)
	}
	if port.pends != 1 {
		t.Fatalf("pend requests = %d, want 1", port.pends)
	}
	if got := k.ready.Len(); got != 3 {
		t.Fatalf("ready list length = %d, want 3 with idle", got)
	}

	k.triggerScheduler()
	if got := currentName(t, k); got != "TestTask2" {
		t.Fatalf("current = %q, want %q", got, "TestTask2")
	}

	k.DestroyTask()
	k.triggerScheduler()
	if got := currentName(t, k); got != "TestTask1" {
		t.Fatalf("current = %q, want %q", got, "TestTask1")
	}
}

func TestStartOSTwiceIsFatal(t *testing.T) {
	panics := capturePanics(t)
	k, _, _ := newTestKernel(t)
	k.StartOS()
	k.StartOS()
	if len(*panics) != 1 {
		t.Fatalf("fatal reports = %d, want 1", len(*panics))
	}
	if got := k.ready.Len(); got != 1 {
		t.Fatalf("ready list length = %d, want 1 idle task", got)
	}
}

func TestSchedulerPicksHighestPriority(t *testing.T) {
	tests := [][]Priority{
		{Level0},
		{Level1, Level5, Level3},
		{Level9, Level0, Level9},
		{Idle, Level2, Level2, Level1},
	}
	for _, prios := range tests {
		k, _, _ := newTestKernel(t)
		for i, p := range prios {
			mustCreate(t, k, p, string(rune('a'+i)))
		}
		k.triggerScheduler()
		cur, ok := k.Current()
		if !ok {
			t.Fatalf("%v: no current task", prios)
		}
		for _, ti := range k.Snapshot() {
			if ti.State == Ready && ti.Priority > cur.Priority {
				t.Fatalf("%v: picked %v while %q at %v is ready", prios, cur.Priority, ti.Name, ti.Priority)
			}
		}
		if cur.State != Running {
			t.Fatalf("%v: current state = %v, want %v", prios, cur.State, Running)
		}
	}
}

func TestSchedulerRoundRobinAmongEquals(t *testing.T) {
	k, _, _ := newTestKernel(t)
	mustCreate(t, k, Level2, "a")
	mustCreate(t, k, Level2, "b")
	k.StartOS()

	want := []string{"a", "b", "a", "b", "a"}
	for i, w := range want {
		if i > 0 {
			k.HandleTick()
		}
		k.triggerScheduler()
		if got := currentName(t, k); got != w {
			t.Fatalf("cycle %d: current = %q, want %q", i, got, w)
		}
	}
}

func TestSchedulerKeepsRunningTaskWithoutTicks(t *testing.T) {
	k, _, _ := newTestKernel(t)
	mustCreate(t, k, Level2, "a")
	mustCreate(t, k, Level2, "b")

	k.triggerScheduler()
	k.Yield()
	k.triggerScheduler()
	if got := currentName(t, k); got != "a" {
		t.Fatalf("current = %q, want %q on the same tick", got, "a")
	}
}

func TestTicksCount(t *testing.T) {
	k, port, _ := newTestKernel(t)
	if got := k.GetTicks(); got != 0 {
		t.Fatalf("GetTicks() = %d, want 0", got)
	}
	for i := 0; i < 200; i++ {
		k.HandleTick()
	}
	if got := k.GetTicks(); got != 200 {
		t.Fatalf("GetTicks() = %d, want 200", got)
	}
	if port.pends != 200 {
		t.Fatalf("pend requests = %d, want 200", port.pends)
	}
	if port.level != 0 {
		t.Fatalf("interrupt mask level = %d, want 0", port.level)
	}
}

func TestSleepWakesAfterTicks(t *testing.T) {
	k, _, _ := newTestKernel(t)
	id := mustCreate(t, k, Level0, "sleeper")
	k.StartOS()

	k.triggerScheduler()
	if got := currentName(t, k); got != "sleeper" {
		t.Fatalf("current = %q, want sleeper", got)
	}

	k.Sleep(1242)
	ti := taskInfo(t, k, id)
	if ti.State != Sleeping || ti.WakeTick != 1242 {
		t.Fatalf("after Sleep: state %v wake %d, want %v wake 1242", ti.State, ti.WakeTick, Sleeping)
	}

	k.triggerScheduler()
	idleTicks := 0
	for currentName(t, k) == "Idle" {
		idleTicks++
		if idleTicks > 2000 {
			t.Fatalf("sleeper never woke")
		}
		k.HandleTick()
		k.triggerScheduler()
	}
	if idleTicks != 1242 {
		t.Fatalf("idle ran for %d ticks, want 1242", idleTicks)
	}
	if got := currentName(t, k); got != "sleeper" {
		t.Fatalf("current = %q, want sleeper", got)
	}
	if got := k.GetTicks(); got != 1242 {
		t.Fatalf("woke at tick %d, want 1242", got)
	}
}

func TestSleepAddsCurrentTicks(t *testing.T) {
	k, _, _ := newTestKernel(t)
	id := mustCreate(t, k, Level0, "s")
	for i := 0; i < 10; i++ {
		k.HandleTick()
	}
	k.triggerScheduler()
	k.Sleep(5)
	if got := taskInfo(t, k, id).WakeTick; got != 15 {
		t.Fatalf("WakeTick = %d, want 15", got)
	}
	if k.ready.Contains(k.tasks[id]) || !k.sleeping.Contains(k.tasks[id]) {
		t.Fatalf("sleeping task is not in the sleeping list only")
	}
}

func TestPriorityInheritance(t *testing.T) {
	k, _, _ := newTestKernel(t)
	var l Lockable
	l.Init(k)

	a := mustCreate(t, k, Level0, "A")
	k.StartOS()
	k.triggerScheduler()
	l.LockAcquired()
	if got := l.Blocker(); got != a {
		t.Fatalf("Blocker() = %#x, want A", uint32(got))
	}

	mustCreate(t, k, Level1, "B")
	k.triggerScheduler()
	if got := currentName(t, k); got != "B" {
		t.Fatalf("current = %q, want B", got)
	}

	c := mustCreate(t, k, Level2, "C")
	k.triggerScheduler()
	if got := currentName(t, k); got != "C" {
		t.Fatalf("current = %q, want C", got)
	}

	l.Block()
	if got := taskInfo(t, k, c); got.State != Blocked || got.WaitingOn != &l {
		t.Fatalf("C state %v waiting on %p, want %v on %p", got.State, got.WaitingOn, Blocked, &l)
	}
	if got := taskInfo(t, k, a).Priority; got != Level2 {
		t.Fatalf("A priority = %v, want inherited %v", got, Level2)
	}

	k.triggerScheduler()
	if got := currentName(t, k); got != "A" {
		t.Fatalf("current = %q, want A over B", got)
	}

	l.LockReleased()
	ti := taskInfo(t, k, a)
	if ti.Priority != Level0 || ti.BasePriority != Level0 {
		t.Fatalf("A priority = %v base %v, want %v", ti.Priority, ti.BasePriority, Level0)
	}
	if got := l.Blocker(); got != 0 {
		t.Fatalf("Blocker() = %#x after release, want 0", uint32(got))
	}
	if got := taskInfo(t, k, c).State; got != Ready {
		t.Fatalf("C state = %v, want %v", got, Ready)
	}

	k.triggerScheduler()
	if got := currentName(t, k); got != "C" {
		t.Fatalf("current = %q, want C", got)
	}
}

func TestDestroyedHolderDoesNotPassInheritanceOn(t *testing.T) {
	alloc := newRecyclingAlloc()
	k := New(&fakePort{}, alloc, Config{})
	var l Lockable
	l.Init(k)

	a := mustCreate(t, k, Level0, "A")
	k.StartOS()
	k.triggerScheduler()
	l.LockAcquired()
	aAddr := k.tasks[a].addr
	k.DestroyTask()

	b := mustCreate(t, k, Level0, "B")
	if got := k.tasks[b].addr; got != aAddr {
		t.Fatalf("B control block = %#x, want A's recycled %#x", got, aAddr)
	}
	if b == a {
		t.Fatalf("CreateTask() reused destroyed TaskID %d", uint32(a))
	}
	if _, ok := k.Task(a); ok {
		t.Fatalf("Task() resolves the destroyed holder")
	}

	c := mustCreate(t, k, Level5, "C")
	k.triggerScheduler()
	if got := currentName(t, k); got != "C" {
		t.Fatalf("current = %q, want C", got)
	}
	l.Block()
	if got := taskInfo(t, k, c).State; got != Blocked {
		t.Fatalf("C state = %v, want %v", got, Blocked)
	}
	if got := taskInfo(t, k, b).Priority; got != Level0 {
		t.Fatalf("B priority = %v, want %v", got, Level0)
	}

	k.triggerScheduler()
	if got := currentName(t, k); got != "B" {
		t.Fatalf("current = %q, want B", got)
	}
	l.LockReleased()
	if got := taskInfo(t, k, b); got.Priority != Level0 || got.BasePriority != Level0 {
		t.Fatalf("B priority = %v base %v after release, want %v", got.Priority, got.BasePriority, Level0)
	}
	if got := taskInfo(t, k, c).State; got != Ready {
		t.Fatalf("C state = %v, want %v", got, Ready)
	}
}

func TestTaskIDsAreNotReused(t *testing.T) {
	k := New(&fakePort{}, newRecyclingAlloc(), Config{})
	seen := make(map[TaskID]bool)
	k.StartOS()
	for i := 0; i < 5; i++ {
		id := mustCreate(t, k, Level9, "t")
		if id == 0 || seen[id] {
			t.Fatalf("CreateTask() = %d, want a fresh nonzero id", uint32(id))
		}
		seen[id] = true
		k.triggerScheduler()
		k.DestroyTask()
	}
}

func TestInheritanceNeverLowers(t *testing.T) {
	k, _, _ := newTestKernel(t)
	var l Lockable
	l.Init(k)

	h := mustCreate(t, k, Level5, "holder")
	k.triggerScheduler()
	l.LockAcquired()

	mustCreate(t, k, Level1, "low")
	k.Sleep(100)
	k.triggerScheduler()
	l.Block()

	if got := taskInfo(t, k, h).Priority; got != Level5 {
		t.Fatalf("holder priority = %v, want %v", got, Level5)
	}
}

func TestWaitWithoutHolderStillBlocks(t *testing.T) {
	k, _, _ := newTestKernel(t)
	var l Lockable
	l.Init(k)

	w := mustCreate(t, k, Level3, "w")
	k.triggerScheduler()
	l.Block()
	if got := taskInfo(t, k, w).State; got != Blocked {
		t.Fatalf("state = %v, want %v", got, Blocked)
	}

	mustCreate(t, k, Level1, "r")
	k.triggerScheduler()
	l.LockReleased()
	if got := taskInfo(t, k, w).State; got != Ready {
		t.Fatalf("state = %v after release, want %v", got, Ready)
	}
}

func TestReleaseWakesOnlyItsWaiters(t *testing.T) {
	k, _, _ := newTestKernel(t)
	var l1, l2 Lockable
	l1.Init(k)
	l2.Init(k)

	w1 := mustCreate(t, k, Level4, "w1")
	w2 := mustCreate(t, k, Level4, "w2")
	w3 := mustCreate(t, k, Level4, "w3")
	mustCreate(t, k, Level1, "rel")

	k.triggerScheduler()
	l1.Block()
	k.triggerScheduler()
	l2.Block()
	k.triggerScheduler()
	l1.Block()
	k.triggerScheduler()
	if got := currentName(t, k); got != "rel" {
		t.Fatalf("current = %q, want rel", got)
	}

	l1.LockReleased()
	for _, tc := range []struct {
		id   TaskID
		want State
	}{{w1, Ready}, {w2, Blocked}, {w3, Ready}} {
		if got := taskInfo(t, k, tc.id).State; got != tc.want {
			t.Fatalf("%s state = %v, want %v", taskInfo(t, k, tc.id).Name, got, tc.want)
		}
	}
	if got := k.blocked.Len(); got != 1 {
		t.Fatalf("blocked list length = %d, want 1", got)
	}
}

func TestDestroyTaskFreesOnce(t *testing.T) {
	k, port, alloc := newTestKernel(t)
	id := mustCreate(t, k, Level1, "gone")
	mustCreate(t, k, Level0, "stay")
	k.triggerScheduler()

	ti := taskInfo(t, k, id)
	pends := port.pends
	k.DestroyTask()

	if _, ok := k.Task(id); ok {
		t.Fatalf("Task() still finds the destroyed task")
	}
	if _, ok := k.Current(); ok {
		t.Fatalf("Current() ok = true after DestroyTask")
	}
	if got := k.ready.Len(); got != 1 {
		t.Fatalf("ready list length = %d, want 1", got)
	}
	if len(alloc.frees) != 2 || alloc.frees[ti.StackBase] != 1 {
		t.Fatalf("frees = %v, want stack and control block freed once", alloc.frees)
	}
	if len(port.released) != 1 || port.released[0] != ti.SP {
		t.Fatalf("released stacks = %#x, want [%#x]", port.released, ti.SP)
	}
	if port.pends != pends+1 {
		t.Fatalf("pend requests = %d, want %d", port.pends, pends+1)
	}

	k.DestroyTask()
	for addr, n := range alloc.frees {
		if n != 1 {
			t.Fatalf("address %#x freed %d times", addr, n)
		}
	}
	if len(alloc.frees) != 2 {
		t.Fatalf("frees after second DestroyTask = %v", alloc.frees)
	}
}

func TestSwitchContextSavesStackPointer(t *testing.T) {
	k, _, _ := newTestKernel(t)
	a := mustCreate(t, k, Level2, "a")
	b := mustCreate(t, k, Level2, "b")
	spA := taskInfo(t, k, a).SP
	spB := taskInfo(t, k, b).SP

	if got := k.SwitchContext(0); got != spA {
		t.Fatalf("SwitchContext(0) = %#x, want %#x", got, spA)
	}
	k.HandleTick()
	if got := k.SwitchContext(spA - 16); got != spB {
		t.Fatalf("SwitchContext() = %#x, want %#x", got, spB)
	}
	if got := taskInfo(t, k, a).SP; got != spA-16 {
		t.Fatalf("saved SP = %#x, want %#x", got, spA-16)
	}
}

func TestEmptyReadyListIsFatal(t *testing.T) {
	panics := capturePanics(t)
	k, _, _ := newTestKernel(t)
	k.triggerScheduler()
	if len(*panics) != 1 {
		t.Fatalf("fatal reports = %d, want 1", len(*panics))
	}
	if !InPanicMode() {
		t.Fatalf("InPanicMode() = false after a fatal")
	}
}

func TestDefaultPanicHandlerPanics(t *testing.T) {
	SetPanicHandler(nil)
	k, _, _ := newTestKernel(t)
	defer func() {
		r := recover()
		fe, ok := r.(*FatalError)
		if !ok {
			t.Fatalf("recovered %v, want *FatalError", r)
		}
		if !strings.Contains(fe.Error(), "no task ready") {
			t.Fatalf("Error() = %q", fe.Error())
		}
	}()
	k.triggerScheduler()
}

func TestTaskOperationsWithoutCurrentTaskAreFatal(t *testing.T) {
	var l Lockable
	ops := map[string]func(k *Kernel){
		"sleep": func(k *Kernel) { k.Sleep(1) },
		"wait":  func(k *Kernel) { k.Wait(&l) },
		"lock":  func(k *Kernel) { k.Lock(&l, true) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			panics := capturePanics(t)
			k, _, _ := newTestKernel(t)
			op(k)
			if len(*panics) != 1 {
				t.Fatalf("fatal reports = %d, want 1", len(*panics))
			}
			err, _ := (*panics)[0].Value.(error)
			if !errors.Is(err, ErrNoCurrentTask) {
				t.Fatalf("fatal value = %v, want %v", (*panics)[0].Value, ErrNoCurrentTask)
			}
		})
	}
}

func TestRegisterError(t *testing.T) {
	panics := capturePanics(t)
	log := &recordLogger{}
	k := New(&fakePort{}, newFakeAlloc(), Config{Logger: log})
	id := mustCreate(t, k, Level1, "app")
	k.triggerScheduler()

	k.RegisterError(7)
	st := k.Errors()
	if st.Count != 1 || st.Last != 7 || st.LastTask != id {
		t.Fatalf("Errors() = %+v, want count 1 last 7 task %#x", st, uint32(id))
	}
	if len(*panics) != 0 {
		t.Fatalf("application error was fatal")
	}
	if len(log.lines) != 1 || !strings.HasPrefix(log.lines[0], "kernel: ") {
		t.Fatalf("log = %q", log.lines)
	}

	ctx := ErrorContext{PC: 0x2000_0012, LR: 0x0800_1235, SP: 0x2000_7ff0, R: [4]uint32{1, 9}}
	k.RegisterErrorAt(9, ctx)
	if got := k.Errors(); got.Last != 9 || got.LastContext != ctx {
		t.Fatalf("Errors() = %+v, want last 9 with context %+v", got, ctx)
	}
	if len(log.lines) != 2 || !strings.Contains(log.lines[1], "pc 0x20000012 lr 0x8001235 sp 0x20007ff0") {
		t.Fatalf("log = %q", log.lines)
	}

	k.RegisterError(FaultUnknownTrap)
	if got := k.Errors().LastContext; got != (ErrorContext{}) {
		t.Fatalf("LastContext = %+v after a kernel error, want zero", got)
	}
	if len(*panics) != 1 {
		t.Fatalf("fatal reports = %d, want 1", len(*panics))
	}
	if got := (*panics)[0].Name; got != "app" {
		t.Fatalf("PanicInfo.Name = %q, want app", got)
	}
	if got := k.Errors().Count; got != 3 {
		t.Fatalf("Errors().Count = %d, want 3", got)
	}
}

func TestHooks(t *testing.T) {
	type event struct {
		before bool
		id     TaskID
		now    uint64
	}
	var events []event
	var ticks int
	k := New(&fakePort{}, newFakeAlloc(), Config{
		Hooks: Hooks{
			BeforeSchedule: func(prev TaskID, now uint64) { events = append(events, event{true, prev, now}) },
			AfterSchedule:  func(next TaskID, now uint64) { events = append(events, event{false, next, now}) },
		},
		OnTick: func() { ticks++ },
	})
	a := mustCreate(t, k, Level1, "a")

	k.triggerScheduler()
	k.HandleTick()
	k.triggerScheduler()

	want := []event{{true, 0, 0}, {false, a, 0}, {true, a, 1}, {false, a, 1}}
	if len(events) != len(want) {
		t.Fatalf("events = %+v, want %+v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %+v, want %+v", events, want)
		}
	}
	if ticks != 1 {
		t.Fatalf("OnTick calls = %d, want 1", ticks)
	}
}

func TestSnapshotOrder(t *testing.T) {
	k, _, _ := newTestKernel(t)
	var l Lockable
	l.Init(k)
	mustCreate(t, k, Level3, "blk")
	mustCreate(t, k, Level2, "slp")
	mustCreate(t, k, Level1, "rdy")

	k.triggerScheduler()
	l.Block()
	k.triggerScheduler()
	k.Sleep(10)
	k.triggerScheduler()

	got := k.Snapshot()
	want := []struct {
		name  string
		state State
	}{{"rdy", Running}, {"slp", Sleeping}, {"blk", Blocked}}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() has %d tasks, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].State != w.state {
			t.Fatalf("Snapshot()[%d] = %s/%v, want %s/%v", i, got[i].Name, got[i].State, w.name, w.state)
		}
	}
	if got[1].WakeTick != 10 {
		t.Fatalf("WakeTick = %d, want 10", got[1].WakeTick)
	}
}

func TestPriorityString(t *testing.T) {
	tests := map[Priority]string{Idle: "idle", Level0: "L0", Level9: "L9", Level9 + 1: "invalid"}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Fatalf("Priority(%d).String() = %q, want %q", uint8(p), got, want)
		}
	}
}

func TestFaultNamesCurrentTask(t *testing.T) {
	panics := capturePanics(t)
	k, _, _ := newTestKernel(t)
	mustCreate(t, k, Level2, "crasher")
	k.triggerScheduler()

	k.Fault("bus error")
	if len(*panics) != 1 {
		t.Fatalf("fatal reports = %d, want 1", len(*panics))
	}
	p := (*panics)[0]
	if p.Name != "crasher" {
		t.Fatalf("Name = %q, want %q", p.Name, "crasher")
	}
	if !strings.Contains(p.Value.(error).Error(), "bus error") {
		t.Fatalf("Value = %v, want it to mention the fault", p.Value)
	}
}
