package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	emuerrors "github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/resource"
	"github.com/wippyai/win32emu/stdio"
	"github.com/wippyai/win32emu/vfs"
	"github.com/wippyai/win32emu/win32"
)

// Service implements guest file operations over a handle table, a standard
// stream router and an emulated root.
type Service struct {
	table  *resource.Table
	router *stdio.Router
	root   *vfs.Root
	log    *zap.Logger
}

// New creates a service. All three collaborators are required.
func New(table *resource.Table, router *stdio.Router, root *vfs.Root) (*Service, error) {
	switch {
	case table == nil:
		return nil, emuerrors.NotInitialized(emuerrors.PhaseFile, "handle table")
	case router == nil:
		return nil, emuerrors.NotInitialized(emuerrors.PhaseFile, "stdio router")
	case root == nil:
		return nil, emuerrors.NotInitialized(emuerrors.PhaseFile, "root filesystem")
	}
	return &Service{table: table, router: router, root: root, log: zap.NewNop()}, nil
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(l *zap.Logger) {
	if l != nil {
		s.log = l
	}
}

// Root returns the emulated root.
func (s *Service) Root() *vfs.Root { return s.root }

// Opened is the result of a successful Open.
type Opened struct {
	Handle win32.Handle
	// Existed is set when CREATE_ALWAYS or OPEN_ALWAYS found the file
	// already present; CreateFile reports ERROR_ALREADY_EXISTS then.
	Existed bool
}

func accessMode(access uint32) resource.Access {
	var mode resource.Access
	if access&(win32.GenericRead|win32.GenericAll|win32.FileReadData) != 0 {
		mode |= resource.AccessRead
	}
	if access&(win32.GenericWrite|win32.GenericAll|win32.FileWriteData|win32.FileAppendData) != 0 {
		mode |= resource.AccessWrite
	}
	if mode == 0 {
		mode = resource.AccessRead
	}
	return mode
}

func openFlags(mode resource.Access) int {
	switch {
	case mode.CanRead() && mode.CanWrite():
		return os.O_RDWR
	case mode.CanWrite():
		return os.O_WRONLY
	default:
		return os.O_RDONLY
	}
}

// missing reports the code for an absent target: FILE_NOT_FOUND when the
// parent directory exists, PATH_NOT_FOUND otherwise.
func missing(hostPath string) win32.Errno {
	if info, err := os.Stat(filepath.Dir(hostPath)); err != nil || !info.IsDir() {
		return win32.ErrorPathNotFound
	}
	return win32.ErrorFileNotFound
}

// Open opens or creates a file under the emulated root according to the
// Win32 creation disposition. share and flags are accepted and ignored.
func (s *Service) Open(guestPath string, access, share, disposition, flags uint32) (Opened, error) {
	mode := accessMode(access)

	switch disposition {
	case win32.CreateNew, win32.CreateAlways, win32.OpenExisting, win32.OpenAlways:
	case win32.TruncateExisting:
		if !mode.CanWrite() {
			return Opened{}, guestError(win32.ErrorInvalidParameter, "TRUNCATE_EXISTING without write access")
		}
	default:
		return Opened{}, guestError(win32.ErrorInvalidParameter, fmt.Sprintf("invalid creation disposition %d", disposition))
	}

	hostPath, err := s.root.Resolve(guestPath)
	if err != nil {
		return Opened{}, err
	}

	info, statErr := os.Stat(hostPath)
	exists := statErr == nil
	if statErr != nil && !os.IsNotExist(statErr) {
		return Opened{}, hostError(statErr, "stat "+guestPath)
	}
	if exists && info.IsDir() {
		return Opened{}, guestError(win32.ErrorAccessDenied, guestPath+" is a directory")
	}
	if !exists {
		if code := missing(hostPath); code == win32.ErrorPathNotFound {
			return Opened{}, guestError(code, "parent of "+guestPath+" not found")
		}
	}

	flag := openFlags(mode)
	truncate := false
	switch disposition {
	case win32.CreateNew:
		if exists {
			return Opened{}, guestError(win32.ErrorFileExists, guestPath+" exists")
		}
		flag |= os.O_CREATE | os.O_EXCL
	case win32.CreateAlways:
		flag |= os.O_CREATE
		truncate = exists
	case win32.OpenExisting:
		if !exists {
			return Opened{}, guestError(win32.ErrorFileNotFound, guestPath+" not found")
		}
	case win32.OpenAlways:
		flag |= os.O_CREATE
	case win32.TruncateExisting:
		if !exists {
			return Opened{}, guestError(win32.ErrorFileNotFound, guestPath+" not found")
		}
		truncate = true
	}

	if truncate {
		if mode.CanWrite() {
			flag |= os.O_TRUNC
		} else if err := os.Truncate(hostPath, 0); err != nil {
			return Opened{}, hostError(err, "truncate "+guestPath)
		}
	}

	f, err := os.OpenFile(hostPath, flag, 0o644)
	if err != nil {
		return Opened{}, hostError(err, "open "+guestPath)
	}

	file, err := resource.NewFile(f, guestPath, mode)
	if err != nil {
		_ = f.Close()
		return Opened{}, hostError(err, "stat "+guestPath)
	}

	h, err := s.table.Insert(file)
	if err != nil {
		_ = file.Close()
		return Opened{}, emuerrors.GuestWrap(emuerrors.PhaseFile, win32.ErrorTooManyOpenFiles, err, "insert handle")
	}

	s.log.Debug("file opened",
		zap.String("path", guestPath),
		zap.String("host", hostPath),
		zap.Stringer("mode", mode),
		zap.Stringer("type", file.Type()),
		zap.Uint32("handle", uint32(h)))

	existed := exists && (disposition == win32.CreateAlways || disposition == win32.OpenAlways)
	return Opened{Handle: h, Existed: existed}, nil
}

func (s *Service) file(h win32.Handle) (*resource.File, error) {
	f, err := s.table.File(h)
	if err != nil {
		return nil, emuerrors.GuestWrap(emuerrors.PhaseFile, win32.ErrorInvalidHandle, err, fmt.Sprintf("handle %#x", uint32(h)))
	}
	return f, nil
}

// Validate reports a guest error 6 when h is neither a std sentinel nor an
// open file.
func (s *Service) Validate(h win32.Handle) error {
	if s.router.Match(h) {
		return nil
	}
	_, err := s.file(h)
	return err
}

// Read reads up to n bytes from h. Zero bytes with a nil error means end of
// file.
func (s *Service) Read(h win32.Handle, n int) ([]byte, error) {
	if s.router.Match(h) {
		return s.router.Read(h, n)
	}
	f, err := s.file(h)
	if err != nil {
		return nil, err
	}
	if !f.Access().CanRead() {
		return nil, guestError(win32.ErrorAccessDenied, "handle not opened for reading")
	}
	if n > stdio.MaxRead {
		n = stdio.MaxRead
	}
	data, err := f.Read(n)
	if err != nil {
		return data, hostError(err, "read "+f.GuestPath())
	}
	return data, nil
}

// Write writes all of data to h and returns the count written.
func (s *Service) Write(h win32.Handle, data []byte) (int, error) {
	if s.router.Match(h) {
		return s.router.Write(h, data)
	}
	f, err := s.file(h)
	if err != nil {
		return 0, err
	}
	if !f.Access().CanWrite() {
		return 0, guestError(win32.ErrorAccessDenied, "handle not opened for writing")
	}
	n, err := f.Write(data)
	if err != nil {
		return n, hostError(err, "write "+f.GuestPath())
	}
	return n, nil
}

// Type classifies h. Handles without a classification are unimplemented.
func (s *Service) Type(h win32.Handle) (win32.FileType, error) {
	if s.router.Match(h) {
		return win32.FileTypeChar, nil
	}
	f, err := s.table.File(h)
	if err != nil {
		return win32.FileTypeUnknown, emuerrors.New(emuerrors.PhaseDispatch, emuerrors.KindUnsupported).
			API("GetFileType").
			Cause(err).
			Detail("no file type for handle %#x", uint32(h)).
			Build()
	}
	if f.Type() == win32.FileTypeUnknown {
		return win32.FileTypeUnknown, emuerrors.Unimplemented("GetFileType", "unclassified host file "+f.GuestPath())
	}
	return f.Type(), nil
}

// Close releases h. Closing a standard stream sentinel succeeds and does
// nothing.
func (s *Service) Close(h win32.Handle) error {
	if s.router.Match(h) {
		return nil
	}
	if _, err := s.table.Get(h); err != nil {
		return emuerrors.GuestWrap(emuerrors.PhaseFile, win32.ErrorInvalidHandle, err, fmt.Sprintf("handle %#x", uint32(h)))
	}
	if err := s.table.Remove(h); err != nil {
		return hostError(err, fmt.Sprintf("close handle %#x", uint32(h)))
	}
	s.log.Debug("handle closed", zap.Uint32("handle", uint32(h)))
	return nil
}

// Size returns the size of the file behind h.
func (s *Service) Size(h win32.Handle) (uint64, error) {
	f, err := s.file(h)
	if err != nil {
		return 0, err
	}
	size, err := f.Size()
	if err != nil {
		return 0, hostError(err, "stat "+f.GuestPath())
	}
	return uint64(size), nil
}

// Seek moves the file pointer of h by distance relative to method and
// returns the new absolute position.
func (s *Service) Seek(h win32.Handle, distance int64, method uint32) (int64, error) {
	f, err := s.file(h)
	if err != nil {
		return 0, err
	}

	var base int64
	switch method {
	case win32.FileBegin:
	case win32.FileCurrent:
		base, err = f.Seek(0, io.SeekCurrent)
	case win32.FileEnd:
		base, err = f.Size()
	default:
		return 0, guestError(win32.ErrorInvalidParameter, fmt.Sprintf("invalid move method %d", method))
	}
	if err != nil {
		return 0, hostError(err, "seek "+f.GuestPath())
	}

	target := base + distance
	if target < 0 {
		return 0, guestError(win32.ErrorNegativeSeek, fmt.Sprintf("seek to %d", target))
	}
	pos, err := f.Seek(target, io.SeekStart)
	if err != nil {
		return 0, hostError(err, "seek "+f.GuestPath())
	}
	return pos, nil
}

// Flush commits buffered data of h to the host.
func (s *Service) Flush(h win32.Handle) error {
	if s.router.Match(h) {
		return nil
	}
	f, err := s.file(h)
	if err != nil {
		return err
	}
	if f.Type() != win32.FileTypeDisk {
		return nil
	}
	if err := f.Sync(); err != nil {
		return hostError(err, "flush "+f.GuestPath())
	}
	return nil
}

// Delete removes a file under the emulated root.
func (s *Service) Delete(guestPath string) error {
	hostPath, err := s.root.Resolve(guestPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(hostPath)
	if os.IsNotExist(err) {
		return guestError(missing(hostPath), guestPath+" not found")
	}
	if err != nil {
		return hostError(err, "stat "+guestPath)
	}
	if info.IsDir() {
		return guestError(win32.ErrorAccessDenied, guestPath+" is a directory")
	}
	if err := os.Remove(hostPath); err != nil {
		return hostError(err, "delete "+guestPath)
	}
	s.log.Debug("file deleted", zap.String("path", guestPath))
	return nil
}

// FindFirst lists the directory named by pattern, keeps the entries whose
// names match its last component, and returns a search handle positioned
// after the first entry.
func (s *Service) FindFirst(pattern string) (win32.Handle, resource.Entry, error) {
	dir, glob, err := s.root.Split(pattern)
	if err != nil {
		return 0, resource.Entry{}, err
	}

	dirInfo, err := os.Stat(dir)
	if err != nil || !dirInfo.IsDir() {
		return 0, resource.Entry{}, guestError(win32.ErrorPathNotFound, "directory of "+pattern+" not found")
	}
	listing, err := os.ReadDir(dir)
	if err != nil {
		return 0, resource.Entry{}, hostError(err, "list "+pattern)
	}

	var matches []resource.Entry
	if dir != s.root.Host() {
		for _, name := range []string{".", ".."} {
			if vfs.Match(glob, name) {
				e := resource.EntryFromInfo(dirInfo)
				e.Name = name
				matches = append(matches, e)
			}
		}
	}
	for _, d := range listing {
		if !vfs.Match(glob, d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		matches = append(matches, resource.EntryFromInfo(info))
	}
	if len(matches) == 0 {
		return 0, resource.Entry{}, guestError(win32.ErrorFileNotFound, "no match for "+pattern)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })

	search := resource.NewSearch(pattern, matches)
	first, _ := search.Next()

	h, err := s.table.Insert(search)
	if err != nil {
		return 0, resource.Entry{}, emuerrors.GuestWrap(emuerrors.PhaseFile, win32.ErrorTooManyOpenFiles, err, "insert handle")
	}

	s.log.Debug("search started",
		zap.String("pattern", pattern),
		zap.Int("matches", len(matches)),
		zap.Uint32("handle", uint32(h)))
	return h, first, nil
}

// FindNext returns the next entry of a search handle.
func (s *Service) FindNext(h win32.Handle) (resource.Entry, error) {
	search, err := s.table.Search(h)
	if err != nil {
		return resource.Entry{}, emuerrors.GuestWrap(emuerrors.PhaseFile, win32.ErrorInvalidHandle, err, fmt.Sprintf("search handle %#x", uint32(h)))
	}
	e, ok := search.Next()
	if !ok {
		return resource.Entry{}, guestError(win32.ErrorNoMoreFiles, "search exhausted")
	}
	return e, nil
}

// FindClose releases a search handle.
func (s *Service) FindClose(h win32.Handle) error {
	if _, err := s.table.Search(h); err != nil {
		return emuerrors.GuestWrap(emuerrors.PhaseFile, win32.ErrorInvalidHandle, err, fmt.Sprintf("search handle %#x", uint32(h)))
	}
	return s.table.Remove(h)
}
