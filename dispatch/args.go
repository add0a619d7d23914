package dispatch

import (
	"fmt"

	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

// Frame yields the raw argument slots of a trapped call.
type Frame interface {
	Arg(i int) (uint64, error)
}

// Values is a Frame over already-collected slots.
type Values []uint64

// Arg implements Frame.
func (v Values) Arg(i int) (uint64, error) {
	if i < 0 || i >= len(v) {
		return 0, errors.InvalidInput(errors.PhaseDispatch, fmt.Sprintf("argument %d missing (have %d)", i, len(v)))
	}
	return v[i], nil
}

// Args are the decoded arguments passed to a handler.
type Args struct {
	raw     []uint64
	strs    []string
	ptrMask uint64
}

// NewArgs builds Args directly, for handlers invoked outside a registry.
func NewArgs(ptrSize int, raw []uint64, strs []string) Args {
	mask := ^uint64(0)
	if ptrSize == 4 {
		mask = 0xFFFFFFFF
	}
	if len(strs) < len(raw) {
		padded := make([]string, len(raw))
		copy(padded, strs)
		strs = padded
	}
	return Args{raw: raw, strs: strs, ptrMask: mask}
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.raw) }

// Raw returns slot i unmodified.
func (a Args) Raw(i int) uint64 { return a.raw[i] }

// Handle returns slot i truncated to a 32-bit handle.
func (a Args) Handle(i int) win32.Handle { return win32.Handle(uint32(a.raw[i])) }

// Ptr returns slot i as a guest address of the session's pointer width.
func (a Args) Ptr(i int) uint64 { return a.raw[i] & a.ptrMask }

// IsNull reports whether slot i is a null pointer.
func (a Args) IsNull(i int) bool { return a.Ptr(i) == 0 }

// U32 returns slot i as a DWORD.
func (a Args) U32(i int) uint32 { return uint32(a.raw[i]) }

// Int returns slot i as a signed 32-bit integer.
func (a Args) Int(i int) int32 { return int32(uint32(a.raw[i])) }

// Bool returns slot i as a BOOL.
func (a Args) Bool(i int) bool { return uint32(a.raw[i]) != 0 }

// Str returns the decoded string for a String or WString slot. A null
// pointer decodes as "".
func (a Args) Str(i int) string { return a.strs[i] }
