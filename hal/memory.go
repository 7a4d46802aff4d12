package hal

import (
	"encoding/binary"
	"fmt"
)

// Memory is a flat little-endian address space backing the simulated RAM.
// Addresses outside [Base, Base+Size) are a fault.
type Memory struct {
	base uint32
	buf  []byte
}

// NewMemory returns size bytes of zeroed memory mapped at base.
func NewMemory(base, size uint32) *Memory {
	return &Memory{base: base, buf: make([]byte, size)}
}

func (m *Memory) Base() uint32 { return m.base }
func (m *Memory) Size() uint32 { return uint32(len(m.buf)) }

// Contains reports whether the n bytes at addr are mapped.
func (m *Memory) Contains(addr, n uint32) bool {
	if addr < m.base {
		return false
	}
	off := uint64(addr - m.base)
	return off+uint64(n) <= uint64(len(m.buf))
}

func (m *Memory) offset(addr, n uint32) int {
	if !m.Contains(addr, n) {
		panic(fmt.Sprintf("hal: bus fault at 0x%08x (%d bytes)", addr, n))
	}
	return int(addr - m.base)
}

func (m *Memory) Byte(addr uint32) byte {
	return m.buf[m.offset(addr, 1)]
}

func (m *Memory) SetByte(addr uint32, v byte) {
	m.buf[m.offset(addr, 1)] = v
}

func (m *Memory) Word(addr uint32) uint32 {
	off := m.offset(addr, 4)
	return binary.LittleEndian.Uint32(m.buf[off:])
}

func (m *Memory) SetWord(addr uint32, v uint32) {
	off := m.offset(addr, 4)
	binary.LittleEndian.PutUint32(m.buf[off:], v)
}

// Fill sets n bytes starting at addr to v.
func (m *Memory) Fill(addr, n uint32, v byte) {
	off := m.offset(addr, n)
	b := m.buf[off : off+int(n)]
	for i := range b {
		b[i] = v
	}
}
