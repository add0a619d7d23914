package kernel32

import (
	"context"

	d "github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/fileio"
	"github.com/wippyai/win32emu/session"
	"github.com/wippyai/win32emu/win32"
)

func fileAPIs() []api {
	createParams := func(name d.Type) []d.Param {
		return []d.Param{
			param("lpFileName", name),
			param("dwDesiredAccess", d.DWORD),
			param("dwShareMode", d.DWORD),
			param("lpSecurityAttributes", d.Pointer),
			param("dwCreationDisposition", d.DWORD),
			param("dwFlagsAndAttributes", d.DWORD),
			param("hTemplateFile", d.Handle),
		}
	}
	ioParams := func(verb, count string) []d.Param {
		return []d.Param{
			param("hFile", d.Handle),
			param("lpBuffer", d.Pointer),
			param("nNumberOfBytesTo"+verb, d.DWORD),
			param(count, d.Pointer),
			param("lpOverlapped", d.Pointer),
		}
	}
	findParams := []d.Param{param("hFindFile", d.Handle), param("lpFindFileData", d.Pointer)}

	return []api{
		{schema: d.Schema{Name: "CreateFileA", Params: createParams(d.String), Returns: d.Handle}, handler: createFile},
		{schema: d.Schema{Name: "CreateFileW", Params: createParams(d.WString), Returns: d.Handle}, handler: createFile},
		{schema: d.Schema{Name: "ReadFile", Params: ioParams("Read", "lpNumberOfBytesRead"), Returns: d.Bool}, handler: readFile},
		{schema: d.Schema{Name: "WriteFile", Params: ioParams("Write", "lpNumberOfBytesWritten"), Returns: d.Bool}, handler: writeFile},
		{schema: d.Schema{Name: "GetFileType", Params: []d.Param{param("hFile", d.Handle)}, Returns: d.DWORD}, handler: getFileType},
		{schema: d.Schema{Name: "CloseHandle", Params: []d.Param{param("hObject", d.Handle)}, Returns: d.Bool}, handler: closeHandle},
		{schema: d.Schema{Name: "GetFileSize", Params: []d.Param{
			param("hFile", d.Handle), param("lpFileSizeHigh", d.Pointer),
		}, Returns: d.DWORD}, handler: getFileSize},
		{schema: d.Schema{Name: "SetFilePointer", Params: []d.Param{
			param("hFile", d.Handle),
			param("lDistanceToMove", d.Int),
			param("lpDistanceToMoveHigh", d.Pointer),
			param("dwMoveMethod", d.DWORD),
		}, Returns: d.DWORD}, handler: setFilePointer},
		{schema: d.Schema{Name: "FlushFileBuffers", Params: []d.Param{param("hFile", d.Handle)}, Returns: d.Bool}, handler: flushFileBuffers},
		{schema: d.Schema{Name: "DeleteFileA", Params: []d.Param{param("lpFileName", d.String)}, Returns: d.Bool}, handler: deleteFile},
		{schema: d.Schema{Name: "DeleteFileW", Params: []d.Param{param("lpFileName", d.WString)}, Returns: d.Bool}, handler: deleteFile},
		{schema: d.Schema{Name: "FindFirstFileA", Params: []d.Param{
			param("lpFileName", d.String), param("lpFindFileData", d.Pointer),
		}, Returns: d.Handle}, handler: findFirstFile(false)},
		{schema: d.Schema{Name: "FindFirstFileW", Params: []d.Param{
			param("lpFileName", d.WString), param("lpFindFileData", d.Pointer),
		}, Returns: d.Handle}, handler: findFirstFile(true)},
		{schema: d.Schema{Name: "FindNextFileA", Params: findParams, Returns: d.Bool}, handler: findNextFile(false)},
		{schema: d.Schema{Name: "FindNextFileW", Params: findParams, Returns: d.Bool}, handler: findNextFile(true)},
		{schema: d.Schema{Name: "FindClose", Params: []d.Param{param("hFindFile", d.Handle)}, Returns: d.Bool}, handler: findClose},
		{schema: d.Schema{Name: "GetStdHandle", Params: []d.Param{param("nStdHandle", d.DWORD)}, Returns: d.Handle}, handler: getStdHandle},
		{schema: d.Schema{Name: "SetHandleCount", Params: []d.Param{param("uNumber", d.UINT)}, Returns: d.UINT}, handler: setHandleCount},
	}
}

func createFile(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	opened, err := s.Files().Open(a.Str(0), a.U32(1), a.U32(2), a.U32(4), a.U32(5))
	if err != nil {
		return s.HandleValue(win32.InvalidHandleValue), err
	}
	if opened.Existed {
		s.SetLastError(win32.ErrorAlreadyExists)
	} else {
		s.SetLastError(win32.ErrorSuccess)
	}
	return s.HandleValue(opened.Handle), nil
}

func readFile(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	data, err := s.Files().Read(a.Handle(0), int(a.U32(2)))
	if err != nil {
		return retFalse, err
	}
	if err := writeBytes(s, a.Ptr(1), data); err != nil {
		return retFalse, err
	}
	if !a.IsNull(3) {
		if err := writeU32(s, a.Ptr(3), uint32(len(data))); err != nil {
			return retFalse, err
		}
	}
	return retTrue, nil
}

func writeFile(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := s.Files().Validate(a.Handle(0)); err != nil {
		return retFalse, err
	}
	data, err := readBytes(s, a.Ptr(1), a.U32(2))
	if err != nil {
		return retFalse, err
	}
	n, err := s.Files().Write(a.Handle(0), data)
	if err != nil {
		return retFalse, err
	}
	if !a.IsNull(3) {
		if err := writeU32(s, a.Ptr(3), uint32(n)); err != nil {
			return retFalse, err
		}
	}
	return retTrue, nil
}

func getFileType(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	t, err := s.Files().Type(a.Handle(0))
	if err != nil {
		return uint64(win32.FileTypeUnknown), err
	}
	return uint64(t), nil
}

func closeHandle(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := s.Files().Close(a.Handle(0)); err != nil {
		return retFalse, err
	}
	return retTrue, nil
}

func getFileSize(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	size, err := s.Files().Size(a.Handle(0))
	if err != nil {
		return uint64(win32.InvalidFileSize), err
	}
	if !a.IsNull(1) {
		if err := writeU32(s, a.Ptr(1), uint32(size>>32)); err != nil {
			return uint64(win32.InvalidFileSize), err
		}
	}
	// Callers tell a size of 0xFFFFFFFF from failure by a zero last error.
	s.SetLastError(win32.ErrorSuccess)
	return uint64(uint32(size)), nil
}

func setFilePointer(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	distance := int64(a.Int(1))
	if !a.IsNull(2) {
		high, err := s.Memory().ReadU32(a.Ptr(2))
		if err != nil {
			return uint64(win32.InvalidSetFilePointer), errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read lpDistanceToMoveHigh")
		}
		distance = int64(uint64(high)<<32 | uint64(a.U32(1)))
	}

	pos, err := s.Files().Seek(a.Handle(0), distance, a.U32(3))
	if err != nil {
		return uint64(win32.InvalidSetFilePointer), err
	}
	if !a.IsNull(2) {
		if err := writeU32(s, a.Ptr(2), uint32(uint64(pos)>>32)); err != nil {
			return uint64(win32.InvalidSetFilePointer), err
		}
	}
	s.SetLastError(win32.ErrorSuccess)
	return uint64(uint32(pos)), nil
}

func flushFileBuffers(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := s.Files().Flush(a.Handle(0)); err != nil {
		return retFalse, err
	}
	return retTrue, nil
}

func deleteFile(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := s.Files().Delete(a.Str(0)); err != nil {
		return retFalse, err
	}
	return retTrue, nil
}

func findFirstFile(wide bool) d.Handler {
	return func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		invalid := s.HandleValue(win32.InvalidHandleValue)
		if a.IsNull(1) {
			return invalid, errors.Guest(errors.PhaseFile, win32.ErrorInvalidParameter, "null lpFindFileData")
		}
		h, entry, err := s.Files().FindFirst(a.Str(0))
		if err != nil {
			return invalid, err
		}
		buf, err := fileio.EncodeFindData(entry, wide)
		if err != nil {
			_ = s.Files().FindClose(h)
			return invalid, err
		}
		if err := writeBytes(s, a.Ptr(1), buf); err != nil {
			_ = s.Files().FindClose(h)
			return invalid, err
		}
		return s.HandleValue(h), nil
	}
}

func findNextFile(wide bool) d.Handler {
	return func(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
		if a.IsNull(1) {
			return retFalse, errors.Guest(errors.PhaseFile, win32.ErrorInvalidParameter, "null lpFindFileData")
		}
		entry, err := s.Files().FindNext(a.Handle(0))
		if err != nil {
			return retFalse, err
		}
		buf, err := fileio.EncodeFindData(entry, wide)
		if err != nil {
			return retFalse, err
		}
		if err := writeBytes(s, a.Ptr(1), buf); err != nil {
			return retFalse, err
		}
		return retTrue, nil
	}
}

func findClose(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	if err := s.Files().FindClose(a.Handle(0)); err != nil {
		return retFalse, err
	}
	return retTrue, nil
}

func getStdHandle(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	h := win32.Handle(a.U32(0))
	if !win32.IsStdHandle(h) {
		return s.HandleValue(win32.InvalidHandleValue), errors.Guest(errors.PhaseStdio, win32.ErrorInvalidHandle, "unknown std handle selector")
	}
	return s.HandleValue(h), nil
}

func setHandleCount(_ context.Context, _ *session.Session, a d.Args) (uint64, error) {
	return uint64(a.U32(0)), nil
}
