package fileio

import (
	"errors"
	"os"
	"syscall"

	emuerrors "github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

// mapOSError converts a host error into a Win32 last-error code.
func mapOSError(err error) win32.Errno {
	if err == nil {
		return win32.ErrorSuccess
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return mapErrno(errno)
	}
	switch {
	case os.IsNotExist(err):
		return win32.ErrorFileNotFound
	case os.IsPermission(err):
		return win32.ErrorAccessDenied
	case os.IsExist(err):
		return win32.ErrorFileExists
	}
	return win32.ErrorGenFailure
}

func mapErrno(errno syscall.Errno) win32.Errno {
	switch errno {
	case syscall.EACCES, syscall.EPERM, syscall.EISDIR:
		return win32.ErrorAccessDenied
	case syscall.ENOENT:
		return win32.ErrorFileNotFound
	case syscall.ENOTDIR:
		return win32.ErrorPathNotFound
	case syscall.EEXIST:
		return win32.ErrorFileExists
	case syscall.ENOTEMPTY:
		return win32.ErrorDirNotEmpty
	case syscall.ENAMETOOLONG:
		return win32.ErrorFilenameExcedRange
	case syscall.ENOSPC:
		return win32.ErrorDiskFull
	case syscall.EROFS:
		return win32.ErrorWriteProtect
	case syscall.EBUSY:
		return win32.ErrorSharingViolation
	case syscall.EMFILE, syscall.ENFILE:
		return win32.ErrorTooManyOpenFiles
	case syscall.EPIPE:
		return win32.ErrorBrokenPipe
	case syscall.EINVAL:
		return win32.ErrorInvalidParameter
	default:
		return win32.ErrorGenFailure
	}
}

// hostError wraps a host failure as a guest error.
func hostError(err error, detail string) error {
	return emuerrors.GuestWrap(emuerrors.PhaseFile, mapOSError(err), err, detail)
}

func guestError(code win32.Errno, detail string) error {
	return emuerrors.Guest(emuerrors.PhaseFile, code, detail)
}
