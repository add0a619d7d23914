// Package session bundles the state one emulated process carries across
// API calls: guest memory, heap, handle table, standard streams, emulated
// root and the last-error value.
package session

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	win32emu "github.com/wippyai/win32emu"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/fileio"
	"github.com/wippyai/win32emu/heap"
	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/resource"
	"github.com/wippyai/win32emu/stdio"
	"github.com/wippyai/win32emu/vfs"
	"github.com/wippyai/win32emu/win32"
)

// Session is the per-process emulation context. It is not safe for
// concurrent use; dispatch.Registry serializes calls into it.
type Session struct {
	mem       win32emu.Memory
	halter    win32emu.Halter
	heap      *heap.Heap
	table     *resource.Table
	router    *stdio.Router
	root      *vfs.Root
	files     *fileio.Service
	log       *zap.Logger
	closers   []io.Closer
	fault     error
	ptrSize   int
	id        uuid.UUID
	lastError uint32
	exitCode  uint32
	running   bool
	closed    bool
}

// New builds a session from cfg. A nil cfg uses NewConfig defaults and
// fails for want of a root directory.
func New(cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.rootFS == "" {
		return nil, errors.NotInitialized(errors.PhaseSession, "root filesystem")
	}
	if cfg.ptrSize != 4 && cfg.ptrSize != 8 {
		return nil, errors.InvalidInput(errors.PhaseSession, fmt.Sprintf("pointer size %d", cfg.ptrSize))
	}

	id := uuid.New()
	log := cfg.logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", id.String()))

	mem := cfg.mem
	if mem == nil {
		mem = memory.NewFlat(cfg.heapBase, cfg.heapSize)
	}

	var opts []heap.Option
	if cfg.legacyRealloc {
		opts = append(opts, heap.Legacy())
	}
	h, err := heap.New(mem, cfg.heapBase, cfg.heapSize, opts...)
	if err != nil {
		return nil, err
	}

	root, err := vfs.New(cfg.rootFS)
	if err != nil {
		return nil, err
	}
	if err := root.SetCwd(cfg.cwd); err != nil {
		return nil, err
	}

	table := resource.NewTable()
	router := stdio.NewRouter(cfg.stdin, cfg.stdout, cfg.stderr)
	files, err := fileio.New(table, router, root)
	if err != nil {
		return nil, err
	}
	files.SetLogger(log)

	s := &Session{
		id:      id,
		mem:     mem,
		halter:  cfg.halter,
		heap:    h,
		table:   table,
		router:  router,
		root:    root,
		files:   files,
		log:     log,
		ptrSize: cfg.ptrSize,
		running: true,
	}
	table.Subscribe(&handleObserver{log: log})

	log.Info("session started",
		zap.String("root", root.Host()),
		zap.String("cwd", root.Cwd()),
		zap.Int("pointer_size", cfg.ptrSize),
		zap.Bool("legacy_realloc", cfg.legacyRealloc))
	return s, nil
}

type handleObserver struct {
	log *zap.Logger
}

func (o *handleObserver) OnResourceEvent(e resource.Event) {
	o.log.Debug("handle "+e.Type.String(),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Stringer("kind", e.Kind))
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// Memory returns the guest address space.
func (s *Session) Memory() win32emu.Memory { return s.mem }

// Heap returns the heap emulator.
func (s *Session) Heap() *heap.Heap { return s.heap }

// Table returns the handle table.
func (s *Session) Table() *resource.Table { return s.table }

// Router returns the standard stream router.
func (s *Session) Router() *stdio.Router { return s.router }

// Files returns the file I/O service.
func (s *Session) Files() *fileio.Service { return s.files }

// Root returns the emulated root.
func (s *Session) Root() *vfs.Root { return s.root }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.log }

// PointerSize returns the guest pointer width in bytes.
func (s *Session) PointerSize() int { return s.ptrSize }

// LastError returns the thread last-error value.
func (s *Session) LastError() uint32 { return s.lastError }

// SetLastError sets the thread last-error value.
func (s *Session) SetLastError(code uint32) { s.lastError = code }

// HandleValue widens a handle for return to the guest. On 64-bit guests
// pseudo-handles and INVALID_HANDLE_VALUE are sign-extended.
func (s *Session) HandleValue(h win32.Handle) uint64 {
	if s.ptrSize == 8 && h >= win32.PseudoHandleBase {
		return uint64(int64(int32(h)))
	}
	return uint64(h)
}

// OwnCloser registers c to be closed with the session.
func (s *Session) OwnCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Running reports whether the guest may keep executing.
func (s *Session) Running() bool { return s.running }

// ExitCode returns the code passed to Halt.
func (s *Session) ExitCode() uint32 { return s.exitCode }

// Halt stops the session with an exit code and asks the CPU emulator to
// stop. Only the first call has an effect.
func (s *Session) Halt(code uint32) error {
	if !s.running {
		return nil
	}
	s.running = false
	s.exitCode = code
	s.log.Info("session halted", zap.Uint32("exit_code", code))

	if s.halter == nil {
		return nil
	}
	if err := s.halter.Stop(); err != nil {
		return errors.Wrap(errors.PhaseSession, errors.KindInvalidData, err, "stop emulator")
	}
	return nil
}

// Abort stops the session because of a fatal error. Like Halt, only the
// first stop has an effect.
func (s *Session) Abort(cause error) error {
	if !s.running {
		return nil
	}
	s.running = false
	s.fault = cause
	s.log.Error("session aborted", zap.Error(cause))

	if s.halter == nil {
		return nil
	}
	if err := s.halter.Stop(); err != nil {
		return errors.Wrap(errors.PhaseSession, errors.KindInvalidData, err, "stop emulator")
	}
	return nil
}

// Err returns the fatal error that aborted the session, if any.
func (s *Session) Err() error { return s.fault }

// Close releases every open handle and owned resource. Errors are
// aggregated. Calling Close again is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.running = false

	err := s.table.Close()
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	if err != nil {
		s.log.Warn("session closed with errors", zap.Error(err))
		return err
	}
	s.log.Info("session closed")
	return nil
}
