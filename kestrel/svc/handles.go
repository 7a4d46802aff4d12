package svc

import ksync "kestrel/kestrel/sync"

// Handles maps Go values to the 32-bit words passed in trap registers.
// Word 0 always stands for nil.
type Handles struct {
	lock ksync.SpinLock
	next uint32
	objs map[uint32]any

	// interned words and the values they were interned for
	ids      map[any]uint32
	interned map[uint32]struct{}
}

func NewHandles() *Handles {
	return &Handles{
		objs:     make(map[uint32]any),
		ids:      make(map[any]uint32),
		interned: make(map[uint32]struct{}),
	}
}

// Put registers v under a fresh word. The receiver of the word releases it.
func (h *Handles) Put(v any) uint32 {
	if v == nil {
		return 0
	}
	defer ksync.Acquire(&h.lock).Release()
	return h.add(v)
}

// Intern returns the word already registered for v or registers one.
// v must be comparable, typically a pointer.
func (h *Handles) Intern(v any) uint32 {
	if v == nil {
		return 0
	}
	defer ksync.Acquire(&h.lock).Release()
	if w, ok := h.ids[v]; ok {
		return w
	}
	w := h.add(v)
	h.ids[v] = w
	h.interned[w] = struct{}{}
	return w
}

func (h *Handles) add(v any) uint32 {
	for {
		h.next++
		if h.next == 0 {
			continue
		}
		if _, used := h.objs[h.next]; !used {
			break
		}
	}
	h.objs[h.next] = v
	return h.next
}

// Get returns the value registered under w.
func (h *Handles) Get(w uint32) (any, bool) {
	if w == 0 {
		return nil, false
	}
	defer ksync.Acquire(&h.lock).Release()
	v, ok := h.objs[w]
	return v, ok
}

// Release forgets w.
func (h *Handles) Release(w uint32) {
	if w == 0 {
		return
	}
	defer ksync.Acquire(&h.lock).Release()
	v, ok := h.objs[w]
	if !ok {
		return
	}
	delete(h.objs, w)
	if _, ok := h.interned[w]; ok {
		delete(h.interned, w)
		delete(h.ids, v)
	}
}

// Len returns the number of live words.
func (h *Handles) Len() int {
	defer ksync.Acquire(&h.lock).Release()
	return len(h.objs)
}
