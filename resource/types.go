package resource

import (
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

// Handle is an opaque reference to a resource in a table.
type Handle = win32.Handle

// Kind identifies a resource variant.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindSearch
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Resource is a host-side value owned by the handle table. The variant set
// is closed: only *File and *Search implement it.
type Resource interface {
	Kind() Kind
	Close() error
	sealed()
}

// ErrNotFound matches (via errors.Is) every lookup failure for an id that is
// not currently live in the table.
var ErrNotFound = &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindNotFound}

// EventType identifies a resource lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	if t == EventCreated {
		return "created"
	}
	return "dropped"
}

// Event represents a resource lifecycle event.
type Event struct {
	Resource Resource
	Handle   Handle
	Kind     Kind
	Type     EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}
