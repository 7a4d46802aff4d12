package sync

// Locker is any lock with Lock and Unlock.
type Locker interface {
	Lock()
	Unlock()
}

// Guard holds a lock until Release.
//
//	defer ksync.Acquire(&l).Release()
type Guard[L Locker] struct {
	l L
}

// Acquire locks l and returns a Guard releasing it.
func Acquire[L Locker](l L) Guard[L] {
	l.Lock()
	return Guard[L]{l: l}
}

func (g Guard[L]) Release() {
	g.l.Unlock()
}

// Masker masks and unmasks interrupts with nesting.
type Masker interface {
	DisableInterrupts()
	EnableInterrupts()
}

// CriticalSection is a stretch of code run with interrupts masked.
type CriticalSection struct {
	m Masker
}

// EnterCritical masks interrupts on m. A nil m makes the section a no-op,
// as before the port exists.
func EnterCritical(m Masker) CriticalSection {
	if m != nil {
		m.DisableInterrupts()
	}
	return CriticalSection{m: m}
}

// Exit unmasks interrupts again.
func (cs CriticalSection) Exit() {
	if cs.m != nil {
		cs.m.EnableInterrupts()
	}
}
