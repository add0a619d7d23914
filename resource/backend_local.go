package resource

import (
	"sort"
	"sync"

	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

const (
	firstHandle Handle = 4
	handleStep  Handle = 4
	handleLimit        = win32.PseudoHandleBase
)

// LocalBackend is the in-memory store behind Table. Handles come from a
// monotonic counter and are never recycled; only live entries are kept.
type LocalBackend struct {
	entries map[Handle]Resource
	next    Handle
	mu      sync.RWMutex
	closed  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries: make(map[Handle]Resource),
		next:    firstHandle,
	}
}

// Create stores a value and returns a fresh handle.
func (b *LocalBackend) Create(value Resource) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errors.New(errors.PhaseHandle, errors.KindClosed).Detail("handle table closed").Build()
	}
	if b.next >= handleLimit {
		return 0, errors.New(errors.PhaseHandle, errors.KindExhausted).
			Detail("handle space exhausted at %#x", uint32(b.next)).Build()
	}

	handle := b.next
	b.next += handleStep
	b.entries[handle] = value
	return handle, nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (Resource, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.entries[handle]
	return value, ok
}

// Drop invalidates a handle and returns its value for the caller to close.
func (b *LocalBackend) Drop(handle Handle) (Resource, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.entries[handle]
	if !ok {
		return nil, false
	}
	delete(b.entries, handle)
	return value, true
}

// Len returns the number of live resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Each iterates over live resources in handle order.
func (b *LocalBackend) Each(fn func(Handle, Resource) bool) {
	b.mu.RLock()
	handles := make([]Handle, 0, len(b.entries))
	values := make(map[Handle]Resource, len(b.entries))
	for h, v := range b.entries {
		handles = append(handles, h)
		values[h] = v
	}
	b.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		if !fn(h, values[h]) {
			break
		}
	}
}

// Seal stops issuing handles. Live entries stay reachable for draining.
func (b *LocalBackend) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Closed reports whether the backend is sealed.
func (b *LocalBackend) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
