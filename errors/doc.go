// Package errors provides structured error types for the win32emu library.
//
// Errors are categorized by Phase (which component raised them) and Kind
// (error category). Two kinds carry special meaning for the dispatcher:
//
//	KindGuest       - a Win32-visible failure; Code holds the last-error value
//	KindUnsupported - no emulation exists for the request; halts the session
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFile, errors.KindGuest).
//		API("ReadFile").
//		Code(win32.ErrorInvalidHandle).
//		Detail("handle %#x not found", h).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Guest(errors.PhaseFile, win32.ErrorInvalidHandle, "bad handle")
//	err := errors.Unimplemented("GetFileType", "handle has no file type")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
