// Package memory provides guest address-space backings and the string
// marshaling helpers handlers use to move data across the guest boundary.
//
// Two backings implement win32emu.Memory:
//
//	Flat   - a sparse byte region at a fixed guest base, grown on write
//	Wazero - a wazero linear memory, guest addresses are offsets into it
//
// The CPU emulator normally supplies its own Memory; these backings serve
// hosts that drive a session without one (call scripts, tests, the
// interactive console).
package memory
