// Package stdio routes guest I/O on the standard stream pseudo-handles to
// host readers and writers.
package stdio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	emuerrors "github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

// MaxRead caps a single read request (1 GB).
const MaxRead = 1 << 30

// Router serves STD_INPUT_HANDLE, STD_OUTPUT_HANDLE and STD_ERROR_HANDLE.
type Router struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewRouter creates a router. A nil input reads as empty; a nil output
// discards; a nil error writer falls back to the output writer.
func NewRouter(in io.Reader, out, errOut io.Writer) *Router {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = out
	}
	return &Router{in: in, out: out, errOut: errOut}
}

// Match reports whether h is one of the three standard stream sentinels.
func (r *Router) Match(h win32.Handle) bool {
	return win32.IsStdHandle(h)
}

// Read reads up to n bytes from the input stream. Fewer bytes at end of
// input is a short read, not an error. Reads on the output sentinels are
// access-denied guest errors.
func (r *Router) Read(h win32.Handle, n int) ([]byte, error) {
	switch h {
	case win32.StdInputHandle:
	case win32.StdOutputHandle, win32.StdErrorHandle:
		return nil, emuerrors.Guest(emuerrors.PhaseStdio, win32.ErrorAccessDenied, "read from output stream")
	default:
		return nil, emuerrors.Guest(emuerrors.PhaseStdio, win32.ErrorInvalidHandle, fmt.Sprintf("not a std handle: %#x", uint32(h)))
	}

	if r.in == nil || n <= 0 {
		return nil, nil
	}
	if n > MaxRead {
		n = MaxRead
	}

	buf := make([]byte, n)
	var (
		got int
		err error
	)
	if r.IsTerminal(h) {
		got, err = r.in.Read(buf)
	} else {
		got, err = io.ReadFull(r.in, buf)
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return buf[:got], emuerrors.GuestWrap(emuerrors.PhaseStdio, win32.ErrorGenFailure, err, "stdin read")
	}
	return buf[:got], nil
}

// Write writes data to the output or error stream and returns the count
// written. Writes to the input sentinel are access-denied guest errors.
func (r *Router) Write(h win32.Handle, data []byte) (int, error) {
	var w io.Writer
	switch h {
	case win32.StdOutputHandle:
		w = r.out
	case win32.StdErrorHandle:
		w = r.errOut
	case win32.StdInputHandle:
		return 0, emuerrors.Guest(emuerrors.PhaseStdio, win32.ErrorAccessDenied, "write to input stream")
	default:
		return 0, emuerrors.Guest(emuerrors.PhaseStdio, win32.ErrorInvalidHandle, fmt.Sprintf("not a std handle: %#x", uint32(h)))
	}

	n, err := w.Write(data)
	if err != nil {
		return n, emuerrors.GuestWrap(emuerrors.PhaseStdio, win32.ErrorGenFailure, err, "std stream write")
	}
	return n, nil
}

// Stream returns the host stream behind a sentinel, or nil.
func (r *Router) Stream(h win32.Handle) any {
	switch h {
	case win32.StdInputHandle:
		return r.in
	case win32.StdOutputHandle:
		return r.out
	case win32.StdErrorHandle:
		return r.errOut
	}
	return nil
}

// IsTerminal reports whether the host stream behind h is an interactive
// terminal.
func (r *Router) IsTerminal(h win32.Handle) bool {
	f, ok := r.Stream(h).(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
