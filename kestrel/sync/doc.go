// Package sync provides the synchronization primitives tasks use: a
// blocking Mutex with priority inheritance, a busy-waiting SpinLock, a
// scoped Guard and interrupt-masking critical sections.
//
// Import it under another name (ksync) next to the standard library sync.
package sync
