// Package win32emu emulates a subset of the Windows kernel32 API surface for
// guest code executing inside a CPU/memory emulator.
//
// The emulator traps a guest call, hands the raw argument slots to the
// dispatcher, and resumes the guest with the scalar return value. Everything
// the handlers touch lives in one session value: the handle table, the guest
// heap, the standard stream router, the emulated root filesystem and the
// process-wide last error.
//
// # Architecture Overview
//
//	win32emu/          Root package with Memory and Halter interfaces
//	├── win32/         Win32 constants (handles, error codes, flags)
//	├── errors/        Structured errors: fatal-unsupported vs guest errors
//	├── memory/        Guest address space backings and string marshaling
//	├── resource/      Handle table and resource variants
//	├── heap/          Heap emulator over the guest address space
//	├── stdio/         Standard stream router for pseudo-handles
//	├── vfs/           Guest path to host path translation
//	├── fileio/        File I/O virtualization
//	├── session/       Session context and configuration
//	├── dispatch/      Static API schemas and the call dispatcher
//	├── kernel32/      Emulated kernel32 handlers
//	├── script/        Call scripts for driving a session without a CPU
//	└── cmd/run/       CLI: script mode, API listing, interactive console
//
// # Quick Start
//
//	sess, err := session.New(session.NewConfig().
//	    WithRootFS("/srv/rootfs").
//	    WithStdout(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	reg := dispatch.NewRegistry()
//	if err := kernel32.Register(reg); err != nil {
//	    log.Fatal(err)
//	}
//
//	// frame is provided by the CPU emulator's calling-convention marshaler
//	res, err := reg.Call(ctx, sess, "WriteFile", frame)
//
// # Error Classes
//
// Guest-visible failures return the Win32 failure value and update the
// session's last error; the guest keeps running. Calls into behavior that has
// no emulation (unknown APIs, unclassifiable handles) return an error from
// Call and halt the session.
//
// # Thread Safety
//
// A session is driven by a single emulation thread. The registry serializes
// calls per session, so handlers never run concurrently.
package win32emu
