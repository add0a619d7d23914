package kernel32

import (
	"context"
	"fmt"

	d "github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/session"
	"github.com/wippyai/win32emu/win32"
)

func heapAPIs() []api {
	var out []api
	out = append(out, memFamily("Local", win32.LMemZeroInit)...)
	out = append(out, memFamily("Global", win32.GMemZeroInit)...)

	hHeap := param("hHeap", d.Handle)
	dwFlags := param("dwFlags", d.DWORD)
	lpMem := param("lpMem", d.Pointer)
	out = append(out,
		api{schema: d.Schema{Name: "GetProcessHeap", Returns: d.Handle}, handler: getProcessHeap},
		api{schema: d.Schema{Name: "HeapAlloc", Params: []d.Param{
			hHeap, dwFlags, param("dwBytes", d.SizeT),
		}, Returns: d.Pointer}, handler: heapAlloc},
		api{schema: d.Schema{Name: "HeapFree", Params: []d.Param{hHeap, dwFlags, lpMem}, Returns: d.Bool}, handler: heapFree},
		api{schema: d.Schema{Name: "HeapReAlloc", Params: []d.Param{
			hHeap, dwFlags, lpMem, param("dwBytes", d.SizeT),
		}, Returns: d.Pointer}, handler: heapReAlloc},
		api{schema: d.Schema{Name: "HeapSize", Params: []d.Param{hHeap, dwFlags, lpMem}, Returns: d.SizeT}, handler: heapSize},
	)
	return out
}

// memFamily builds the Local* or Global* allocator set. Both families share
// the session heap; the flags differ only in name.
func memFamily(prefix string, zeroInit uint32) []api {
	flags := param("uFlags", d.UINT)
	hMem := param("hMem", d.Pointer)

	alloc := func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		addr, err := s.Heap().Alloc(a.Raw(1)&sizeMask(s), a.U32(0)&zeroInit != 0)
		if err != nil {
			return 0, err
		}
		return addr, nil
	}
	realloc := func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		addr, err := s.Heap().Realloc(a.Ptr(0), a.Raw(1)&sizeMask(s), a.U32(2)&zeroInit != 0)
		if err != nil {
			return 0, err
		}
		return addr, nil
	}
	free := func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		if a.IsNull(0) {
			return 0, nil
		}
		if err := s.Heap().Free(a.Ptr(0)); err != nil {
			return a.Ptr(0), err
		}
		return 0, nil
	}
	lock := func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		if a.IsNull(0) {
			return 0, errors.Guest(errors.PhaseHeap, win32.ErrorInvalidHandle, "null memory handle")
		}
		return a.Ptr(0), nil
	}
	unlock := func(_ context.Context, _ *session.Session, _ d.Args) (uint64, error) {
		return retTrue, nil
	}
	size := func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		n, err := s.Heap().Size(a.Ptr(0))
		if err != nil {
			return 0, err
		}
		return n, nil
	}

	return []api{
		{schema: d.Schema{Name: prefix + "Alloc", Params: []d.Param{flags, param("uBytes", d.SizeT)}, Returns: d.Pointer}, handler: alloc},
		{schema: d.Schema{Name: prefix + "ReAlloc", Params: []d.Param{hMem, param("uBytes", d.SizeT), flags}, Returns: d.Pointer}, handler: realloc},
		{schema: d.Schema{Name: prefix + "Free", Params: []d.Param{hMem}, Returns: d.Pointer}, handler: free},
		{schema: d.Schema{Name: prefix + "Lock", Params: []d.Param{hMem}, Returns: d.Pointer}, handler: lock},
		{schema: d.Schema{Name: prefix + "Unlock", Params: []d.Param{hMem}, Returns: d.Bool}, handler: unlock},
		{schema: d.Schema{Name: prefix + "Size", Params: []d.Param{hMem}, Returns: d.SizeT}, handler: size},
	}
}

func sizeMask(s *session.Session) uint64 {
	if s.PointerSize() == 4 {
		return 0xFFFFFFFF
	}
	return ^uint64(0)
}

func processHeap(s *session.Session, a d.Args) error {
	if a.Ptr(0) != s.Heap().Base() {
		return errors.Guest(errors.PhaseHeap, win32.ErrorInvalidHandle, fmt.Sprintf("unknown heap %#x", a.Ptr(0)))
	}
	return nil
}

func getProcessHeap(_ context.Context, s *session.Session, _ d.Args) (uint64, error) {
	return s.Heap().Base(), nil
}

func heapAlloc(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := processHeap(s, a); err != nil {
		return 0, err
	}
	return s.Heap().Alloc(a.Raw(2)&sizeMask(s), a.U32(1)&win32.HeapZeroMemory != 0)
}

func heapFree(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := processHeap(s, a); err != nil {
		return retFalse, err
	}
	if a.IsNull(2) {
		return retTrue, nil
	}
	if err := s.Heap().Free(a.Ptr(2)); err != nil {
		return retFalse, err
	}
	return retTrue, nil
}

func heapReAlloc(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := processHeap(s, a); err != nil {
		return 0, err
	}
	if a.IsNull(2) {
		return 0, errors.Guest(errors.PhaseHeap, win32.ErrorInvalidParameter, "null lpMem")
	}
	return s.Heap().Realloc(a.Ptr(2), a.Raw(3)&sizeMask(s), a.U32(1)&win32.HeapZeroMemory != 0)
}

func heapSize(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	failed := sizeMask(s)
	if err := processHeap(s, a); err != nil {
		return failed, err
	}
	n, err := s.Heap().Size(a.Ptr(2))
	if err != nil {
		return failed, err
	}
	return n, nil
}
