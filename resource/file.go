package resource

import (
	"io"
	"io/fs"
	"os"

	"github.com/wippyai/win32emu/win32"
)

// Access is the read/write mode a file handle was opened with.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
)

// CanRead reports whether reads are permitted.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite reports whether writes are permitted.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "r"
	case AccessWrite:
		return "w"
	case AccessRead | AccessWrite:
		return "rw"
	default:
		return "-"
	}
}

// File is an open host file owned by the table.
type File struct {
	f         *os.File
	guestPath string
	access    Access
	fileType  win32.FileType
}

// NewFile wraps an open host file and classifies it from its mode bits.
func NewFile(f *os.File, guestPath string, access Access) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &File{
		f:         f,
		guestPath: guestPath,
		access:    access,
		fileType:  Classify(info.Mode()),
	}, nil
}

// Classify maps host mode bits to a Win32 file type.
func Classify(mode fs.FileMode) win32.FileType {
	switch {
	case mode.IsRegular():
		return win32.FileTypeDisk
	case mode&(fs.ModeNamedPipe|fs.ModeSocket) != 0:
		return win32.FileTypePipe
	case mode&fs.ModeCharDevice != 0:
		return win32.FileTypeChar
	case mode&fs.ModeDevice != 0:
		return win32.FileTypeDisk
	default:
		return win32.FileTypeUnknown
	}
}

// Kind implements Resource.
func (*File) Kind() Kind { return KindFile }

func (*File) sealed() {}

// Type returns the classification recorded at open time.
func (f *File) Type() win32.FileType { return f.fileType }

// Access returns the open mode.
func (f *File) Access() Access { return f.access }

// GuestPath returns the path the guest opened.
func (f *File) GuestPath() string { return f.guestPath }

// HostPath returns the host path of the underlying file.
func (f *File) HostPath() string { return f.f.Name() }

// Read reads up to n bytes. Disk files fill the buffer unless end of file is
// reached; pipes and devices return what one read yields. End of file is a
// short read, not an error.
func (f *File) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	var (
		got int
		err error
	)
	if f.fileType == win32.FileTypeDisk {
		got, err = io.ReadFull(f.f, buf)
	} else {
		got, err = f.f.Read(buf)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return buf[:got], err
}

// Write writes all of data and returns the count written.
func (f *File) Write(data []byte) (int, error) {
	return f.f.Write(data)
}

// Seek moves the file pointer; whence uses io.Seek* values.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.f.Seek(offset, whence)
}

// Size returns the current file size.
func (f *File) Size() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Sync flushes buffered data to the host.
func (f *File) Sync() error {
	return f.f.Sync()
}

// Close implements Resource.
func (f *File) Close() error {
	return f.f.Close()
}
