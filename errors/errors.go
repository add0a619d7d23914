package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which component raised the error
type Phase string

const (
	PhaseRegister Phase = "register" // schema registration
	PhaseDispatch Phase = "dispatch" // argument decoding and invocation
	PhaseHandle   Phase = "handle"   // handle table
	PhaseHeap     Phase = "heap"     // heap emulator
	PhaseStdio    Phase = "stdio"    // standard stream router
	PhaseFile     Phase = "file"     // file I/O virtualization
	PhaseMemory   Phase = "memory"   // guest memory access
	PhaseSession  Phase = "session"  // session lifecycle
	PhaseParse    Phase = "parse"    // call script parsing
)

// Kind categorizes the error
type Kind string

const (
	KindGuest          Kind = "guest"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindAllocation     Kind = "allocation"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindRegistration   Kind = "registration"
	KindClosed         Kind = "closed"
	KindExhausted      Kind = "exhausted"
	KindNotInitialized Kind = "not_initialized"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	API    string
	Detail string
	Code   uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.API != "" {
		b.WriteString(" in ")
		b.WriteString(e.API)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Kind == KindGuest {
		fmt.Fprintf(&b, " (last error %d)", e.Code)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error must stop the emulation session.
func (e *Error) Fatal() bool {
	return e.Kind != KindGuest
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// API sets the emulated API name
func (b *Builder) API(name string) *Builder {
	b.err.API = name
	return b
}

// Code sets the Win32 last-error code
func (b *Builder) Code(code uint32) *Builder {
	b.err.Code = code
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Guest creates a recoverable, guest-visible error carrying a last-error code
func Guest(phase Phase, code uint32, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGuest,
		Code:   code,
		Detail: detail,
	}
}

// GuestWrap creates a guest error that keeps the host error as cause
func GuestWrap(phase Phase, code uint32, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGuest,
		Code:   code,
		Detail: detail,
		Cause:  cause,
	}
}

// Unimplemented creates a fatal error for a capability with no emulation
func Unimplemented(api, what string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindUnsupported,
		API:    api,
		Detail: what,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %v not found", what, value),
		Value:  value,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// OutOfBounds creates a guest memory access error
func OutOfBounds(phase Phase, addr, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access %#x+%d out of bounds", addr, length),
		Value:  addr,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Value:  size,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(api string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		API:    api,
		Detail: fmt.Sprintf("register %s", api),
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a script parsing error
func ParseFailed(line int, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("line %d: %s", line, detail),
		Value:  line,
	}
}

// GuestCode returns the last-error code carried by a guest error anywhere in
// the chain.
func GuestCode(err error) (uint32, bool) {
	var e *Error
	if stderrors.As(err, &e) && e.Kind == KindGuest {
		return e.Code, true
	}
	return 0, false
}

// IsFatal reports whether err must stop the session. Any error that is not a
// guest error is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	_, guest := GuestCode(err)
	return !guest
}

// IsUnsupported reports whether err is an unimplemented-capability error.
func IsUnsupported(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == KindUnsupported
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
