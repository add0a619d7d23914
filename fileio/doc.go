// Package fileio virtualizes guest file I/O.
//
// Guest handles resolve in two steps: the three standard stream sentinels
// are served by a stdio.Router, everything else by the resource.Table.
// Guest paths pass through a vfs.Root, so files opened by the guest always
// live under the emulated root directory.
//
// Failures the guest can observe are returned as guest errors carrying a
// Win32 last-error code (see errors.Guest). Requests the emulator has no
// answer for, such as classifying a handle that is not a file, are
// unimplemented-capability errors and stop the session.
package fileio
