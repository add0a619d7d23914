package heap

import (
	"bytes"
	"testing"

	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/win32"
)

const (
	testBase = 0x500000
	testSize = 0x1000
)

func newHeap(t *testing.T, opts ...Option) (*Heap, *memory.Flat) {
	t.Helper()
	mem := memory.NewFlat(testBase, testSize)
	h, err := New(mem, testBase, testSize, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h, mem
}

func TestAlloc(t *testing.T) {
	h, _ := newHeap(t)

	a, err := h.Alloc(64, false)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if a == 0 {
		t.Fatal("Alloc returned null")
	}
	if a%Alignment != 0 {
		t.Errorf("address %#x not aligned", a)
	}

	b, err := h.Alloc(1, false)
	if err != nil {
		t.Fatal(err)
	}
	if b < a+64 {
		t.Errorf("blocks overlap: a=%#x b=%#x", a, b)
	}

	if size, _ := h.Size(b); size != 1 {
		t.Errorf("Size = %d, want 1", size)
	}
	if h.InUse() != 64+Alignment {
		t.Errorf("InUse = %d, want %d", h.InUse(), 64+Alignment)
	}
}

func TestAlloc_ZeroSize(t *testing.T) {
	h, _ := newHeap(t)
	a, err := h.Alloc(0, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Alloc(0, false)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("zero-size blocks share an address")
	}
	if err := h.Free(a); err != nil {
		t.Errorf("Free zero-size block: %v", err)
	}
}

func TestAlloc_ZeroInit(t *testing.T) {
	h, mem := newHeap(t)
	if err := mem.Write(testBase, bytes.Repeat([]byte{0xAA}, 32)); err != nil {
		t.Fatal(err)
	}

	a, err := h.Alloc(32, true)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := mem.Read(a, 32)
	if !bytes.Equal(data, make([]byte, 32)) {
		t.Errorf("zero-init block not cleared: %x", data)
	}
}

func TestAlloc_Exhausted(t *testing.T) {
	h, _ := newHeap(t)
	_, err := h.Alloc(testSize+1, false)
	if err == nil {
		t.Fatal("expected exhaustion")
	}
	code, ok := errors.GuestCode(err)
	if !ok || code != win32.ErrorNotEnoughMemory {
		t.Errorf("GuestCode = %d, %v; want %d", code, ok, win32.ErrorNotEnoughMemory)
	}
	if errors.IsFatal(err) {
		t.Error("exhaustion must not be fatal")
	}
}

func TestFree(t *testing.T) {
	h, _ := newHeap(t)

	a, _ := h.Alloc(64, false)
	b, _ := h.Alloc(64, false)
	c, _ := h.Alloc(64, false)

	if err := h.Free(b); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if h.FreeSpans() != 2 {
		t.Errorf("FreeSpans = %d, want 2", h.FreeSpans())
	}
	if err := h.Free(a); err != nil {
		t.Fatal(err)
	}
	if err := h.Free(c); err != nil {
		t.Fatal(err)
	}
	if h.FreeSpans() != 1 {
		t.Errorf("free spans not coalesced: %d", h.FreeSpans())
	}
	if h.InUse() != 0 {
		t.Errorf("InUse = %d after freeing all", h.InUse())
	}

	whole, err := h.Alloc(testSize, false)
	if err != nil {
		t.Fatalf("whole-range alloc after coalescing failed: %v", err)
	}
	if whole != testBase {
		t.Errorf("whole = %#x, want %#x", whole, testBase)
	}
}

func TestFree_Unknown(t *testing.T) {
	h, _ := newHeap(t)
	a, _ := h.Alloc(16, false)

	tests := []struct {
		name string
		addr uint64
	}{
		{"never allocated", testBase + 0x800},
		{"interior pointer", a + 4},
		{"null", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := errors.GuestCode(h.Free(tt.addr))
			if !ok || code != win32.ErrorInvalidHandle {
				t.Errorf("Free(%#x) code = %d, %v", tt.addr, code, ok)
			}
		})
	}

	_ = h.Free(a)
	if _, ok := errors.GuestCode(h.Free(a)); !ok {
		t.Error("double free should be a guest error")
	}
}

func TestRealloc_PreservesContents(t *testing.T) {
	h, mem := newHeap(t)

	a, err := h.Alloc(64, false)
	if err != nil || a == 0 {
		t.Fatalf("Alloc(64) = %#x, %v", a, err)
	}
	_, _ = h.Alloc(16, false)

	payload := bytes.Repeat([]byte("0123456789abcdef"), 4)
	if err := mem.Write(a, payload); err != nil {
		t.Fatal(err)
	}

	b, err := h.Realloc(a, 128, false)
	if err != nil {
		t.Fatalf("Realloc failed: %v", err)
	}
	if err := mem.Write(b+127, []byte{0xFF}); err != nil {
		t.Fatalf("last byte of grown block not writable: %v", err)
	}
	got, _ := mem.Read(b, 64)
	if !bytes.Equal(got, payload) {
		t.Errorf("contents not preserved: %q", got)
	}
	if h.Owns(a) && a != b {
		t.Error("old block still live")
	}
	if size, _ := h.Size(b); size != 128 {
		t.Errorf("Size = %d, want 128", size)
	}
}

func TestRealloc_Shrink(t *testing.T) {
	h, mem := newHeap(t)
	a, _ := h.Alloc(64, false)
	_ = mem.Write(a, []byte("abcdefgh"))

	b, err := h.Realloc(a, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := mem.Read(b, 4)
	if string(got) != "abcd" {
		t.Errorf("shrunk contents = %q", got)
	}
}

func TestRealloc_FailureKeepsBlock(t *testing.T) {
	h, _ := newHeap(t)
	a, _ := h.Alloc(64, false)

	if _, err := h.Realloc(a, testSize*2, false); err == nil {
		t.Fatal("expected failure")
	}
	if !h.Owns(a) {
		t.Error("original block released on failed realloc")
	}
}

func TestRealloc_GrowsInPlace(t *testing.T) {
	h, mem := newHeap(t)
	a, err := h.Alloc(0x600, false)
	if err != nil {
		t.Fatal(err)
	}
	_ = mem.Write(a, []byte("keep"))

	b, err := h.Realloc(a, 0x700, false)
	if err != nil {
		t.Fatalf("Realloc(0x700) on a %#x heap failed: %v", testSize, err)
	}
	if b != a {
		t.Errorf("block moved from %#x to %#x", a, b)
	}
	if got, _ := mem.Read(b, 4); string(got) != "keep" {
		t.Errorf("contents = %q", got)
	}
	if h.InUse() != 0x700 || h.FreeSpans() != 1 {
		t.Errorf("InUse = %#x, spans = %d", h.InUse(), h.FreeSpans())
	}
}

func TestRealloc_ShrinkInPlace(t *testing.T) {
	h, _ := newHeap(t)
	a, _ := h.Alloc(0x800, false)
	tail, _ := h.Alloc(16, false)

	b, err := h.Realloc(a, 0x100, false)
	if err != nil || b != a {
		t.Fatalf("Realloc = %#x, %v; want %#x", b, err, a)
	}
	if h.InUse() != 0x110 {
		t.Errorf("InUse = %#x, want 0x110", h.InUse())
	}
	c, err := h.Alloc(0x700, false)
	if err != nil || c != a+0x100 {
		t.Errorf("released tail not reusable: %#x, %v", c, err)
	}
	if !h.Owns(tail) {
		t.Error("neighbour block lost")
	}
}

func TestRealloc_MergesWithPreviousSpan(t *testing.T) {
	h, mem := newHeap(t)
	a, _ := h.Alloc(0x400, false)
	b, _ := h.Alloc(0x400, false)
	_, _ = h.Alloc(0x700, false)
	_ = mem.Write(b, []byte("moved"))
	_ = h.Free(a)

	c, err := h.Realloc(b, 0x800, false)
	if err != nil {
		t.Fatalf("Realloc failed: %v", err)
	}
	if c != a {
		t.Errorf("Realloc = %#x, want %#x", c, a)
	}
	if got, _ := mem.Read(c, 5); string(got) != "moved" {
		t.Errorf("contents = %q", got)
	}
}

func TestRealloc_ZeroFillsGrowth(t *testing.T) {
	h, mem := newHeap(t)
	a, _ := h.Alloc(8, false)
	_ = mem.Write(a, bytes.Repeat([]byte{0xAA}, 32))

	b, err := h.Realloc(a, 32, true)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := mem.Read(b, 32)
	if !bytes.Equal(got[:8], bytes.Repeat([]byte{0xAA}, 8)) {
		t.Errorf("prefix = % x", got[:8])
	}
	if !bytes.Equal(got[8:], make([]byte, 24)) {
		t.Errorf("growth not zeroed: % x", got[8:])
	}
}

func TestRealloc_Legacy(t *testing.T) {
	h, mem := newHeap(t, Legacy())
	if !h.IsLegacy() {
		t.Fatal("Legacy option not applied")
	}

	a, _ := h.Alloc(64, false)
	_, _ = h.Alloc(16, false)
	_ = mem.Write(a, bytes.Repeat([]byte{0x5A}, 64))

	b, err := h.Realloc(a, 128, false)
	if err != nil {
		t.Fatalf("Realloc failed: %v", err)
	}
	if b == 0 {
		t.Fatal("Realloc returned null")
	}
	if b == a {
		t.Fatalf("expected a new block, got the old address %#x", a)
	}
	got, _ := mem.Read(b, 64)
	if bytes.Equal(got, bytes.Repeat([]byte{0x5A}, 64)) {
		t.Error("legacy realloc should not carry contents over")
	}
	if err := mem.Write(b+127, []byte{1}); err != nil {
		t.Errorf("grown block not usable: %v", err)
	}
}

func TestBlocks(t *testing.T) {
	h, _ := newHeap(t)
	a, _ := h.Alloc(8, false)
	b, _ := h.Alloc(24, false)

	blocks := h.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("Blocks len = %d", len(blocks))
	}
	if blocks[0] != (Block{Addr: a, Size: 8}) || blocks[1] != (Block{Addr: b, Size: 24}) {
		t.Errorf("Blocks = %+v", blocks)
	}
}

func TestNew_Invalid(t *testing.T) {
	mem := memory.NewFlat(0, 0x100)
	if _, err := New(nil, 0, 0x100); err == nil {
		t.Error("expected error for nil memory")
	}
	if _, err := New(mem, 0x10, 0); err == nil {
		t.Error("expected error for empty range")
	}
	if _, err := New(mem, 0x11, 0x8); err == nil {
		t.Error("expected error for range smaller than alignment")
	}
}
