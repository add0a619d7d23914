package win32emu

// Memory is the guest address space as exposed by the CPU emulator.
// Addresses are guest virtual addresses. Read returns a copy.
type Memory interface {
	Read(addr uint64, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
	ReadU32(addr uint64) (uint32, error)
	ReadU64(addr uint64) (uint64, error)
	WriteU32(addr uint64, value uint32) error
	WriteU64(addr uint64, value uint64) error
}

// Halter stops the CPU emulation loop. Implemented by the emulator that owns
// the guest; FatalExit and ExitProcess call it.
type Halter interface {
	Stop() error
}
