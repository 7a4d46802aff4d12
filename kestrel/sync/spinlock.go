package sync

import (
	"runtime"
	"sync/atomic"
)

const spinsBeforeYield = 64

// SpinLock is a lock where each task trying to acquire it busy-waits until
// it becomes available. Re-acquiring a lock already held by the caller
// deadlocks.
//
// The zero value is an unlocked SpinLock.
type SpinLock struct {
	held  atomic.Bool
	yield func()
}

// SetYield installs the function called between bursts of spinning. The
// default gives up the host processor.
func (l *SpinLock) SetYield(fn func()) {
	l.yield = fn
}

// Lock blocks until the lock is acquired.
func (l *SpinLock) Lock() {
	for spins := 1; !l.TryLock(); spins++ {
		if spins%spinsBeforeYield != 0 {
			continue
		}
		if l.yield != nil {
			l.yield()
		} else {
			runtime.Gosched()
		}
	}
}

// TryLock acquires the lock if it is free.
func (l *SpinLock) TryLock() bool {
	return !l.held.Swap(true)
}

// Unlock releases the lock. Unlocking a free lock has no effect.
func (l *SpinLock) Unlock() {
	l.held.Store(false)
}
