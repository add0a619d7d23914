package session

import (
	"io"

	"go.uber.org/zap"

	win32emu "github.com/wippyai/win32emu"
	"github.com/wippyai/win32emu/vfs"
)

// Defaults used when a Config leaves a value unset.
const (
	DefaultHeapBase    uint64 = 0x00500000
	DefaultHeapSize    uint64 = 0x00100000
	DefaultPointerSize        = 4
)

// Config configures a Session. Use the builder methods to set it up.
type Config struct {
	stdin         io.Reader
	stdout        io.Writer
	stderr        io.Writer
	mem           win32emu.Memory
	halter        win32emu.Halter
	logger        *zap.Logger
	rootFS        string
	cwd           string
	heapBase      uint64
	heapSize      uint64
	ptrSize       int
	legacyRealloc bool
}

// NewConfig creates a configuration with defaults: no standard input,
// discarded output, a 1 MiB heap at 0x500000 and 32-bit pointers.
func NewConfig() *Config {
	return &Config{
		cwd:      vfs.DefaultCwd,
		heapBase: DefaultHeapBase,
		heapSize: DefaultHeapSize,
		ptrSize:  DefaultPointerSize,
	}
}

// WithRootFS sets the host directory backing the emulated C: drive.
func (c *Config) WithRootFS(dir string) *Config {
	c.rootFS = dir
	return c
}

// WithCwd sets the guest working directory
func (c *Config) WithCwd(cwd string) *Config {
	c.cwd = cwd
	return c
}

// WithStdin sets the reader behind STD_INPUT_HANDLE
func (c *Config) WithStdin(r io.Reader) *Config {
	c.stdin = r
	return c
}

// WithStdout sets the writer behind STD_OUTPUT_HANDLE
func (c *Config) WithStdout(w io.Writer) *Config {
	c.stdout = w
	return c
}

// WithStderr sets the writer behind STD_ERROR_HANDLE
func (c *Config) WithStderr(w io.Writer) *Config {
	c.stderr = w
	return c
}

// WithMemory supplies the guest address space. Without it the session
// creates a flat region covering the heap.
func (c *Config) WithMemory(mem win32emu.Memory) *Config {
	c.mem = mem
	return c
}

// WithHeap sets the guest range managed by the heap emulator.
func (c *Config) WithHeap(base, size uint64) *Config {
	c.heapBase = base
	c.heapSize = size
	return c
}

// WithPointerSize sets the guest pointer width in bytes (4 or 8).
func (c *Config) WithPointerSize(n int) *Config {
	c.ptrSize = n
	return c
}

// WithLegacyRealloc makes realloc free before allocating, without copying.
func (c *Config) WithLegacyRealloc(on bool) *Config {
	c.legacyRealloc = on
	return c
}

// WithLogger sets the logger; sessions log through a child with their id.
func (c *Config) WithLogger(l *zap.Logger) *Config {
	c.logger = l
	return c
}

// WithHalter sets the CPU stop hook used by FatalExit and ExitProcess.
func (c *Config) WithHalter(h win32emu.Halter) *Config {
	c.halter = h
	return c
}

// RootFS returns the configured root directory
func (c *Config) RootFS() string { return c.rootFS }

// PointerSize returns the configured pointer width
func (c *Config) PointerSize() int { return c.ptrSize }

// Heap returns the configured heap range
func (c *Config) Heap() (base, size uint64) { return c.heapBase, c.heapSize }
