package kernel

import (
	"kestrel/hal"
	"kestrel/kestrel/internal/list"
)

// TaskID is a weak handle to a task. IDs are handed out in creation order
// and never reused, so a stale TaskID simply resolves to nothing. Zero is
// never a valid task.
type TaskID uint32

// Priority orders tasks for scheduling; higher runs first.
type Priority uint8

const (
	Idle Priority = iota
	Level0
	Level1
	Level2
	Level3
	Level4
	Level5
	Level6
	Level7
	Level8
	Level9
)

// MaxPriority is the most urgent priority a task can have.
const MaxPriority = Level9

func (p Priority) String() string {
	switch {
	case p == Idle:
		return "idle"
	case p <= MaxPriority:
		return "L" + string(rune('0'+p-Level0))
	default:
		return "invalid"
	}
}

// State is the scheduling state of a task.
type State uint8

const (
	Ready State = iota
	Running
	Sleeping
	Blocked
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// blockArg says what a suspended task is waiting for.
type blockArg interface{ isBlockArg() }

// wakeAt is the tick at which a sleeping task becomes ready.
type wakeAt uint64

// waitOn is the lockable a blocked task waits to be released.
type waitOn struct{ l *Lockable }

func (wakeAt) isBlockArg() {}
func (waitOn) isBlockArg() {}

// tcb is the task control block.
type tcb struct {
	link list.Link[tcb]

	id        TaskID
	addr      uint32
	sp        uint32
	stackBase uint32
	stackSize uint32

	entry hal.TaskFunc
	arg   any

	priority     Priority
	basePriority Priority
	state        State
	name         string

	// block is a wakeAt while sleeping and a waitOn while blocked, nil
	// otherwise.
	block   blockArg
	lastRun uint64
}

func (t *tcb) ListLink() *list.Link[tcb] { return &t.link }

type taskList = list.List[tcb, *tcb]

// TaskInfo is a copy of a task's scheduling state.
type TaskInfo struct {
	ID           TaskID
	Name         string
	Priority     Priority
	BasePriority Priority
	State        State
	// WakeTick is the wake-up tick of a sleeping task.
	WakeTick uint64
	// WaitingOn is the lockable a blocked task waits for.
	WaitingOn *Lockable
	LastRun   uint64
	StackBase uint32
	StackSize uint32
	SP        uint32
}

func (t *tcb) info() TaskInfo {
	ti := TaskInfo{
		ID:           t.id,
		Name:         t.name,
		Priority:     t.priority,
		BasePriority: t.basePriority,
		State:        t.state,
		LastRun:      t.lastRun,
		StackBase:    t.stackBase,
		StackSize:    t.stackSize,
		SP:           t.sp,
	}
	switch b := t.block.(type) {
	case wakeAt:
		ti.WakeTick = uint64(b)
	case waitOn:
		ti.WaitingOn = b.l
	}
	return ti
}
