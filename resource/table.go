package resource

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/win32emu/errors"
)

// Table maps guest handles to owned resources and notifies observers of
// lifecycle events.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert takes ownership of r and returns a fresh handle.
func (t *Table) Insert(r Resource) (Handle, error) {
	if r == nil {
		return 0, errors.InvalidInput(errors.PhaseHandle, "nil resource")
	}

	handle, err := t.backend.Create(r)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:     EventCreated,
		Handle:   handle,
		Kind:     r.Kind(),
		Resource: r,
	})

	return handle, nil
}

// Get retrieves a live resource. Pseudo, stale and never-issued ids fail
// with an error matching ErrNotFound.
func (t *Table) Get(handle Handle) (Resource, error) {
	r, ok := t.backend.Get(handle)
	if !ok {
		return nil, errors.NotFound(errors.PhaseHandle, "handle", fmt.Sprintf("%#x", uint32(handle)))
	}
	return r, nil
}

// File retrieves a live *File.
func (t *Table) File(handle Handle) (*File, error) {
	r, err := t.Get(handle)
	if err != nil {
		return nil, err
	}
	f, ok := r.(*File)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseHandle, KindFile.String(), r.Kind().String())
	}
	return f, nil
}

// Search retrieves a live *Search.
func (t *Table) Search(handle Handle) (*Search, error) {
	r, err := t.Get(handle)
	if err != nil {
		return nil, err
	}
	s, ok := r.(*Search)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseHandle, KindSearch.String(), r.Kind().String())
	}
	return s, nil
}

// Remove invalidates handle and closes its resource. The handle is dead even
// when the close fails.
func (t *Table) Remove(handle Handle) error {
	r, ok := t.backend.Drop(handle)
	if !ok {
		return errors.NotFound(errors.PhaseHandle, "handle", fmt.Sprintf("%#x", uint32(handle)))
	}

	err := r.Close()

	t.notify(Event{
		Type:     EventDropped,
		Handle:   handle,
		Kind:     r.Kind(),
		Resource: r,
	})

	if err != nil {
		return errors.Wrap(errors.PhaseHandle, errors.KindInvalidData, err, fmt.Sprintf("close handle %#x", uint32(handle)))
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live resources in handle order.
func (t *Table) Each(fn func(Handle, Resource) bool) {
	t.backend.Each(fn)
}

// Close removes every live resource in handle order and refuses further
// inserts. Close errors are aggregated. Calling Close again is a no-op.
func (t *Table) Close() error {
	if t.backend.Closed() {
		return nil
	}
	t.backend.Seal()

	var handles []Handle
	t.backend.Each(func(h Handle, _ Resource) bool {
		handles = append(handles, h)
		return true
	})

	var err error
	for _, h := range handles {
		err = multierr.Append(err, t.Remove(h))
	}
	return err
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
