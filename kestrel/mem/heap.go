// Package mem is the kernel's dynamic memory allocator: a first-fit heap
// over a region of machine RAM.
package mem

import (
	"sort"

	"kestrel/hal"
	"kestrel/kestrel/kernel"
	ksync "kestrel/kestrel/sync"
)

// Align is the alignment of every block handed out.
const Align = 8

// StackPaint is the byte fresh blocks are filled with when painting is on.
const StackPaint = 0xA5

type span struct {
	addr uint32
	size uint32
}

// Heap hands out 8-byte aligned blocks of a fixed region. It is safe for
// concurrent use; a spin lock serializes callers.
type Heap struct {
	lock ksync.SpinLock

	base uint32
	size uint32
	free []span // sorted by address, never adjacent
	used map[uint32]uint32

	paint *hal.Memory

	allocs uint64
	frees  uint64
	fails  uint64
}

// Stats describes the heap at one instant.
type Stats struct {
	Size    uint32
	Used    uint32
	Free    uint32
	Largest uint32
	Blocks  int
	Allocs  uint64
	Frees   uint64
	Fails   uint64
}

// NewHeap returns a heap managing [base, base+size). The region is trimmed
// to Align.
func NewHeap(base, size uint32) *Heap {
	start := alignUp(base)
	end := (base + size) &^ (Align - 1)
	h := &Heap{
		base: start,
		used: make(map[uint32]uint32),
	}
	if end > start {
		h.size = end - start
		h.free = []span{{addr: start, size: h.size}}
	}
	return h
}

// Paint makes every block handed out from now on be filled with
// StackPaint in m, so that stack usage can be measured later.
func (h *Heap) Paint(m *hal.Memory) {
	defer ksync.Acquire(&h.lock).Release()
	h.paint = m
}

// Alloc returns the address of a free block of at least size bytes.
func (h *Heap) Alloc(size uint32) (uint32, bool) {
	defer ksync.Acquire(&h.lock).Release()

	if size == 0 || size > h.size {
		h.fails++
		return 0, false
	}
	size = alignUp(size)
	for i, s := range h.free {
		if s.size < size {
			continue
		}
		if s.size == size {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = span{addr: s.addr + size, size: s.size - size}
		}
		h.used[s.addr] = size
		h.allocs++
		if h.paint != nil {
			h.paint.Fill(s.addr, size, StackPaint)
		}
		return s.addr, true
	}
	h.fails++
	return 0, false
}

// Free returns a block obtained from Alloc. Freeing anything else is a
// fatal error.
func (h *Heap) Free(addr uint32) {
	h.lock.Lock()
	size, ok := h.used[addr]
	if !ok {
		h.lock.Unlock()
		kernel.Fatalf("mem: free of unallocated address %#x", addr)
		return
	}
	delete(h.used, addr)
	h.frees++
	h.insert(span{addr: addr, size: size})
	h.lock.Unlock()
}

// insert puts s back into the free list, merging with its neighbours.
func (h *Heap) insert(s span) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > s.addr })

	if i > 0 && h.free[i-1].addr+h.free[i-1].size == s.addr {
		i--
		h.free[i].size += s.size
	} else {
		h.free = append(h.free, span{})
		copy(h.free[i+1:], h.free[i:])
		h.free[i] = s
	}
	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
}

// SizeOf returns the size of the allocated block at addr.
func (h *Heap) SizeOf(addr uint32) (uint32, bool) {
	defer ksync.Acquire(&h.lock).Release()
	size, ok := h.used[addr]
	return size, ok
}

// Stats returns the current usage.
func (h *Heap) Stats() Stats {
	defer ksync.Acquire(&h.lock).Release()

	st := Stats{
		Size:   h.size,
		Blocks: len(h.used),
		Allocs: h.allocs,
		Frees:  h.frees,
		Fails:  h.fails,
	}
	for _, s := range h.free {
		st.Free += s.size
		if s.size > st.Largest {
			st.Largest = s.size
		}
	}
	st.Used = st.Size - st.Free
	return st
}

// StackUsage returns how many bytes at the top of the painted block
// [base, base+size) have been written since it was handed out. Stacks grow
// down, so the untouched paint sits at the bottom.
func StackUsage(m *hal.Memory, base, size uint32) uint32 {
	var untouched uint32
	for untouched < size && m.Byte(base+untouched) == StackPaint {
		untouched++
	}
	return size - untouched
}

func alignUp(v uint32) uint32 {
	return (v + Align - 1) &^ (Align - 1)
}
