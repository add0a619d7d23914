// Package kernel32 implements the emulated kernel32.dll surface: file I/O,
// handle lifecycle, the Local/Global/Heap allocators and process-control
// stubs.
//
// Register binds every handler to a dispatch.Registry:
//
//	reg := dispatch.NewRegistry()
//	if err := kernel32.Register(reg); err != nil {
//	    return err
//	}
//
// Handlers follow Win32 return conventions. A failing call returns the
// documented failure value (FALSE, NULL, INVALID_HANDLE_VALUE,
// INVALID_FILE_SIZE) together with a guest error whose code becomes the
// last error. Output parameters such as lpNumberOfBytesWritten are left
// untouched on failure.
package kernel32
