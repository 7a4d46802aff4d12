package sync

import (
	"sync/atomic"

	"kestrel/kestrel/kernel"
)

// Mutex is a sleeping lock. A task that finds it held blocks in the kernel
// and the holder inherits the waiter's priority until it unlocks.
type Mutex struct {
	lk   kernel.Lockable
	held atomic.Bool
}

// NewMutex returns an unlocked mutex that reports to sys.
func NewMutex(sys kernel.Syscaller) *Mutex {
	m := &Mutex{}
	m.Init(sys)
	return m
}

// Init binds a zero Mutex to sys.
func (m *Mutex) Init(sys kernel.Syscaller) {
	m.lk.Init(sys)
}

// Lock acquires m, blocking the calling task while it is held.
func (m *Mutex) Lock() {
	for m.held.Swap(true) {
		m.lk.Block()
	}
	m.lk.LockAcquired()
}

// TryLock acquires m if it is free.
func (m *Mutex) TryLock() bool {
	if m.held.Swap(true) {
		return false
	}
	m.lk.LockAcquired()
	return true
}

// Unlock releases m and readies every task blocked on it.
func (m *Mutex) Unlock() {
	m.held.Store(false)
	m.lk.LockReleased()
}

// Holder returns the task holding m, or 0.
func (m *Mutex) Holder() kernel.TaskID {
	return m.lk.Blocker()
}

// Lockable exposes the kernel side of m.
func (m *Mutex) Lockable() *kernel.Lockable {
	return &m.lk
}
