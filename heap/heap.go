package heap

import (
	"fmt"
	"sort"

	win32emu "github.com/wippyai/win32emu"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

// Alignment is the guaranteed alignment of every block address.
const Alignment = 16

// Block describes one live allocation.
type Block struct {
	Addr uint64
	Size uint64
}

type span struct {
	addr uint64
	size uint64
}

type allocation struct {
	requested uint64
	reserved  uint64
}

// Option configures a Heap.
type Option func(*Heap)

// Legacy makes Realloc free the old block before allocating the new one
// without copying contents.
func Legacy() Option {
	return func(h *Heap) { h.legacy = true }
}

// Heap manages [base, base+size) of guest memory.
type Heap struct {
	mem    win32emu.Memory
	used   map[uint64]allocation
	free   []span
	base   uint64
	limit  uint64
	inUse  uint64
	legacy bool
}

func alignUp(v uint64) uint64 {
	return (v + Alignment - 1) &^ (Alignment - 1)
}

// New creates a heap over the given guest range.
func New(mem win32emu.Memory, base, size uint64, opts ...Option) (*Heap, error) {
	if mem == nil {
		return nil, errors.NotInitialized(errors.PhaseHeap, "memory")
	}
	start := alignUp(base)
	if size == 0 || start < base || start-base >= size {
		return nil, errors.InvalidInput(errors.PhaseHeap, fmt.Sprintf("empty heap range %#x+%#x", base, size))
	}
	end := base + size
	if end < base {
		return nil, errors.InvalidInput(errors.PhaseHeap, "heap range overflows address space")
	}
	end &^= Alignment - 1
	if end <= start {
		return nil, errors.InvalidInput(errors.PhaseHeap, fmt.Sprintf("empty heap range %#x+%#x", base, size))
	}

	h := &Heap{
		mem:   mem,
		used:  make(map[uint64]allocation),
		base:  start,
		limit: end,
		free:  []span{{addr: start, size: end - start}},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Base returns the first usable address.
func (h *Heap) Base() uint64 { return h.base }

// Limit returns the end of the managed range.
func (h *Heap) Limit() uint64 { return h.limit }

// IsLegacy reports whether the Legacy option is active.
func (h *Heap) IsLegacy() bool { return h.legacy }

// Alloc reserves size bytes and returns the block address. Zero-size
// requests still get a unique block. zero clears the block in guest memory.
func (h *Heap) Alloc(size uint64, zero bool) (uint64, error) {
	reserved := alignUp(size)
	if reserved == 0 {
		reserved = Alignment
	}
	if reserved < size {
		return 0, h.exhausted(size)
	}

	addr, ok := h.take(reserved)
	if !ok {
		return 0, h.exhausted(size)
	}
	if zero {
		if err := h.mem.Write(addr, make([]byte, reserved)); err != nil {
			h.release(addr, reserved)
			return 0, errors.Wrap(errors.PhaseHeap, errors.KindOutOfBounds, err, "zero block")
		}
	}
	h.used[addr] = allocation{requested: size, reserved: reserved}
	h.inUse += reserved
	return addr, nil
}

// take carves reserved bytes from the first span large enough.
func (h *Heap) take(reserved uint64) (uint64, bool) {
	for i, s := range h.free {
		if s.size < reserved {
			continue
		}
		if s.size == reserved {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = span{addr: s.addr + reserved, size: s.size - reserved}
		}
		return s.addr, true
	}
	return 0, false
}

// takeAt carves [addr, addr+n) out of the free span that contains it.
func (h *Heap) takeAt(addr, n uint64) bool {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > addr }) - 1
	if i < 0 {
		return false
	}
	s := h.free[i]
	if addr+n > s.addr+s.size {
		return false
	}
	var parts []span
	if addr > s.addr {
		parts = append(parts, span{addr: s.addr, size: addr - s.addr})
	}
	if end := s.addr + s.size; addr+n < end {
		parts = append(parts, span{addr: addr + n, size: end - addr - n})
	}
	h.free = append(h.free[:i], append(parts, h.free[i+1:]...)...)
	return true
}

func (h *Heap) exhausted(size uint64) error {
	return errors.GuestWrap(errors.PhaseHeap, win32.ErrorNotEnoughMemory,
		errors.AllocationFailed(errors.PhaseHeap, size), "heap exhausted")
}

// Free releases the block at addr. Unknown addresses are guest errors.
func (h *Heap) Free(addr uint64) error {
	a, ok := h.used[addr]
	if !ok {
		return errors.Guest(errors.PhaseHeap, win32.ErrorInvalidHandle, fmt.Sprintf("no block at %#x", addr))
	}
	delete(h.used, addr)
	h.inUse -= a.reserved
	h.release(addr, a.reserved)
	return nil
}

// release returns a span to the free list, merging with adjacent spans.
func (h *Heap) release(addr, size uint64) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > addr })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{addr: addr, size: size}

	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].addr+h.free[i-1].size == h.free[i].addr {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

// Realloc resizes the block at addr and returns the new address. The block
// keeps its address when shrinking or when the free space after it suffices;
// otherwise contents move to a new block. On failure the original block is
// untouched, except under Legacy where it is already released.
func (h *Heap) Realloc(addr, size uint64, zero bool) (uint64, error) {
	old, ok := h.used[addr]
	if !ok {
		return 0, errors.Guest(errors.PhaseHeap, win32.ErrorInvalidHandle, fmt.Sprintf("no block at %#x", addr))
	}

	if h.legacy {
		if err := h.Free(addr); err != nil {
			return 0, err
		}
		return h.Alloc(size, zero)
	}

	reserved := alignUp(size)
	if reserved == 0 {
		reserved = Alignment
	}
	if reserved < size {
		return 0, h.exhausted(size)
	}

	keep := min(old.requested, size)
	var data []byte
	if keep > 0 {
		var err error
		if data, err = h.mem.Read(addr, keep); err != nil {
			return 0, errors.Wrap(errors.PhaseHeap, errors.KindOutOfBounds, err, "read old block")
		}
	}

	delete(h.used, addr)
	h.inUse -= old.reserved
	h.release(addr, old.reserved)

	// Stay in place when the following free span covers the growth.
	next := addr
	if !h.takeAt(addr, reserved) {
		var ok bool
		if next, ok = h.take(reserved); !ok {
			h.takeAt(addr, old.reserved)
			h.used[addr] = old
			h.inUse += old.reserved
			return 0, h.exhausted(size)
		}
	}

	var err error
	if next != addr && len(data) > 0 {
		err = h.mem.Write(next, data)
	}
	if err == nil && zero && reserved > keep {
		err = h.mem.Write(next+keep, make([]byte, reserved-keep))
	}
	if err != nil {
		h.release(next, reserved)
		h.takeAt(addr, old.reserved)
		h.used[addr] = old
		h.inUse += old.reserved
		return 0, errors.Wrap(errors.PhaseHeap, errors.KindOutOfBounds, err, "copy block")
	}

	h.used[next] = allocation{requested: size, reserved: reserved}
	h.inUse += reserved
	return next, nil
}

// Size returns the requested size of the block at addr.
func (h *Heap) Size(addr uint64) (uint64, error) {
	a, ok := h.used[addr]
	if !ok {
		return 0, errors.Guest(errors.PhaseHeap, win32.ErrorInvalidHandle, fmt.Sprintf("no block at %#x", addr))
	}
	return a.requested, nil
}

// Owns reports whether addr is the start of a live block.
func (h *Heap) Owns(addr uint64) bool {
	_, ok := h.used[addr]
	return ok
}

// Blocks returns live blocks in address order.
func (h *Heap) Blocks() []Block {
	out := make([]Block, 0, len(h.used))
	for addr, a := range h.used {
		out = append(out, Block{Addr: addr, Size: a.requested})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// InUse returns the number of reserved bytes, alignment padding included.
func (h *Heap) InUse() uint64 {
	return h.inUse
}

// FreeSpans returns the number of disjoint free spans.
func (h *Heap) FreeSpans() int {
	return len(h.free)
}
