package kernel

// Syscaller is the kernel entry a Lockable reports to. The Kernel itself
// implements it for code already running in kernel context; tasks use a
// trapping implementation.
type Syscaller interface {
	Wait(l *Lockable)
	Lock(l *Lockable, acquired bool)
}

// Lockable is embedded by synchronization primitives that block tasks and
// take part in priority inheritance.
//
// The zero value is unusable until Init binds it to a Syscaller. A Lockable
// must outlive every task that waits on it.
type Lockable struct {
	sys     Syscaller
	blocker TaskID
}

// Init binds l to the kernel entry it reports to.
func (l *Lockable) Init(sys Syscaller) {
	l.sys = sys
}

// Block suspends the calling task until the resource is released.
func (l *Lockable) Block() {
	l.sys.Wait(l)
}

// LockAcquired records the calling task as the holder.
func (l *Lockable) LockAcquired() {
	l.sys.Lock(l, true)
}

// LockReleased ends the hold and readies every task waiting on l.
func (l *Lockable) LockReleased() {
	l.sys.Lock(l, false)
}

// Blocker returns the task holding the resource, or 0 when it is free.
func (l *Lockable) Blocker() TaskID {
	return l.blocker
}
