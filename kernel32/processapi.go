package kernel32

import (
	"context"

	"go.uber.org/zap"

	d "github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/session"
	"github.com/wippyai/win32emu/win32"
)

func processAPIs() []api {
	envParams := func(name d.Type) []d.Param {
		return []d.Param{
			param("lpName", name),
			param("lpBuffer", d.Pointer),
			param("nSize", d.DWORD),
		}
	}
	ptr := []d.Param{param("Ptr", d.Pointer)}

	return []api{
		{schema: d.Schema{Name: "FatalExit", Params: []d.Param{param("ExitCode", d.Int)}}, handler: exit},
		{schema: d.Schema{Name: "ExitProcess", Params: []d.Param{param("uExitCode", d.UINT)}}, handler: exit},
		{schema: d.Schema{Name: "EncodePointer", Params: ptr, Returns: d.Pointer}, handler: identity},
		{schema: d.Schema{Name: "DecodePointer", Params: ptr, Returns: d.Pointer}, handler: identity},
		{schema: d.Schema{Name: "WinExec", Params: []d.Param{
			param("lpCmdLine", d.String), param("uCmdShow", d.UINT),
		}, Returns: d.UINT}, handler: winExec},
		{schema: d.Schema{Name: "GetEnvironmentVariableA", Params: envParams(d.String), Returns: d.DWORD}, handler: getEnvironmentVariable},
		{schema: d.Schema{Name: "GetEnvironmentVariableW", Params: envParams(d.WString), Returns: d.DWORD}, handler: getEnvironmentVariable},
		{schema: d.Schema{Name: "GetLastError", Returns: d.DWORD}, handler: getLastError},
		{schema: d.Schema{Name: "SetLastError", Params: []d.Param{param("dwErrCode", d.DWORD)}}, handler: setLastError},
	}
}

// exit serves FatalExit and ExitProcess. The exit code is the low 32 bits of
// the argument either way.
func exit(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	return 0, s.Halt(a.U32(0))
}

func identity(_ context.Context, _ *session.Session, a d.Args) (uint64, error) {
	return a.Ptr(0), nil
}

func winExec(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	s.Logger().Info("WinExec ignored", zap.String("cmdline", a.Str(0)))
	return uint64(win32.WinExecSuccess), nil
}

func getEnvironmentVariable(_ context.Context, _ *session.Session, a d.Args) (uint64, error) {
	return 0, errors.Guest(errors.PhaseSession, win32.ErrorEnvvarNotFound, "environment variable "+a.Str(0))
}

func getLastError(_ context.Context, s *session.Session, _ d.Args) (uint64, error) {
	return uint64(s.LastError()), nil
}

func setLastError(_ context.Context, s *session.Session, a d.Args) (uint64, error) {
	s.SetLastError(a.U32(0))
	return 0, nil
}
