package memory

import (
	"encoding/binary"

	"github.com/wippyai/win32emu/errors"
)

// PageSize is the guest page granularity used when growing a Flat region.
const PageSize = 0x1000

func pageRound(sz uint64) uint64 {
	if sz < PageSize {
		return PageSize
	}
	if diff := sz % PageSize; diff != 0 {
		return sz + (PageSize - diff)
	}
	return sz
}

// Flat is a contiguous guest region [base, base+size). Backing storage is
// allocated lazily up to the highest written page; untouched bytes read as
// zero.
type Flat struct {
	linear []byte
	base   uint64
	size   uint64
}

// NewFlat creates a region covering size bytes starting at guest address base.
func NewFlat(base, size uint64) *Flat {
	return &Flat{base: base, size: size}
}

// Base returns the first guest address of the region.
func (m *Flat) Base() uint64 { return m.base }

// Size returns the region size in bytes.
func (m *Flat) Size() uint64 { return m.size }

// Contains reports whether [addr, addr+length) lies inside the region.
func (m *Flat) Contains(addr, length uint64) bool {
	if addr < m.base {
		return false
	}
	off := addr - m.base
	return off <= m.size && length <= m.size-off
}

func (m *Flat) project(addr, length uint64) ([]byte, error) {
	if !m.Contains(addr, length) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, addr, length)
	}
	off := addr - m.base
	end := off + length
	if uint64(len(m.linear)) < end {
		grown := pageRound(end)
		if grown > m.size {
			grown = m.size
		}
		slice := make([]byte, grown)
		copy(slice, m.linear)
		m.linear = slice
	}
	return m.linear[off:end], nil
}

// Read returns a copy of length bytes at addr.
func (m *Flat) Read(addr uint64, length uint64) ([]byte, error) {
	if !m.Contains(addr, length) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, addr, length)
	}
	out := make([]byte, length)
	off := addr - m.base
	if off < uint64(len(m.linear)) {
		copy(out, m.linear[off:])
	}
	return out, nil
}

// Write copies data to addr.
func (m *Flat) Write(addr uint64, data []byte) error {
	dst, err := m.project(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Flat) ReadU32(addr uint64) (uint32, error) {
	b, err := m.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Flat) ReadU64(addr uint64) (uint64, error) {
	b, err := m.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Flat) WriteU32(addr uint64, value uint32) error {
	dst, err := m.project(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Flat) WriteU64(addr uint64, value uint64) error {
	dst, err := m.project(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(dst, value)
	return nil
}
