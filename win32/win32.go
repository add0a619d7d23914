// Package win32 holds the Win32 constants reproduced bit-exactly by the
// emulator: pseudo-handles, last-error codes, file type codes, access and
// creation-disposition values, allocation flags and file attributes.
package win32

// Handle is a 32-bit guest handle value.
type Handle uint32

// Standard stream pseudo-handles and the invalid-handle sentinel.
// STD_*_HANDLE are (DWORD)-10, -11, -12.
const (
	StdInputHandle     Handle = 0xFFFFFFF6
	StdOutputHandle    Handle = 0xFFFFFFF5
	StdErrorHandle     Handle = 0xFFFFFFF4
	InvalidHandleValue Handle = 0xFFFFFFFF

	// PseudoHandleBase is the lowest value reserved for sentinels. The
	// handle table never issues ids at or above it.
	PseudoHandleBase Handle = 0xFFFFFF00
)

// IsStdHandle reports whether h is one of the three standard stream
// pseudo-handles.
func IsStdHandle(h Handle) bool {
	return h == StdInputHandle || h == StdOutputHandle || h == StdErrorHandle
}

// Errno is a Win32 last-error code.
type Errno = uint32

const (
	ErrorSuccess            Errno = 0
	ErrorInvalidFunction    Errno = 1
	ErrorFileNotFound       Errno = 2
	ErrorPathNotFound       Errno = 3
	ErrorTooManyOpenFiles   Errno = 4
	ErrorAccessDenied       Errno = 5
	ErrorInvalidHandle      Errno = 6
	ErrorNotEnoughMemory    Errno = 8
	ErrorInvalidData        Errno = 13
	ErrorOutOfMemory        Errno = 14
	ErrorNoMoreFiles        Errno = 18
	ErrorWriteProtect       Errno = 19
	ErrorGenFailure         Errno = 31
	ErrorSharingViolation   Errno = 32
	ErrorHandleEOF          Errno = 38
	ErrorNotSupported       Errno = 50
	ErrorFileExists         Errno = 80
	ErrorInvalidParameter   Errno = 87
	ErrorBrokenPipe         Errno = 109
	ErrorDiskFull           Errno = 112
	ErrorNegativeSeek       Errno = 131
	ErrorDirNotEmpty        Errno = 145
	ErrorAlreadyExists      Errno = 183
	ErrorEnvvarNotFound     Errno = 203
	ErrorFilenameExcedRange Errno = 206
	ErrorDirectory          Errno = 267
)

// FileType is a GetFileType result.
type FileType uint32

const (
	FileTypeUnknown FileType = 0x0000
	FileTypeDisk    FileType = 0x0001
	FileTypeChar    FileType = 0x0002
	FileTypePipe    FileType = 0x0003
	FileTypeRemote  FileType = 0x8000
)

func (t FileType) String() string {
	switch t {
	case FileTypeDisk:
		return "disk"
	case FileTypeChar:
		return "char"
	case FileTypePipe:
		return "pipe"
	case FileTypeRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Access rights for CreateFile.
const (
	GenericRead    uint32 = 0x80000000
	GenericWrite   uint32 = 0x40000000
	GenericExecute uint32 = 0x20000000
	GenericAll     uint32 = 0x10000000

	FileReadData   uint32 = 0x0001
	FileWriteData  uint32 = 0x0002
	FileAppendData uint32 = 0x0004
)

// Creation dispositions for CreateFile.
const (
	CreateNew        uint32 = 1
	CreateAlways     uint32 = 2
	OpenExisting     uint32 = 3
	OpenAlways       uint32 = 4
	TruncateExisting uint32 = 5
)

// SetFilePointer move methods.
const (
	FileBegin   uint32 = 0
	FileCurrent uint32 = 1
	FileEnd     uint32 = 2
)

// Sentinel return values.
const (
	InvalidFileSize       uint32 = 0xFFFFFFFF
	InvalidSetFilePointer uint32 = 0xFFFFFFFF
)

// Allocation flags.
const (
	LMemFixed    uint32 = 0x0000
	LMemMoveable uint32 = 0x0002
	LMemZeroInit uint32 = 0x0040
	GMemFixed    uint32 = 0x0000
	GMemMoveable uint32 = 0x0002
	GMemZeroInit uint32 = 0x0040

	HeapNoSerialize        uint32 = 0x00000001
	HeapGenerateExceptions uint32 = 0x00000004
	HeapZeroMemory         uint32 = 0x00000008
)

// File attributes.
const (
	FileAttributeReadonly  uint32 = 0x00000001
	FileAttributeHidden    uint32 = 0x00000002
	FileAttributeDirectory uint32 = 0x00000010
	FileAttributeArchive   uint32 = 0x00000020
	FileAttributeNormal    uint32 = 0x00000080
)

// MaxPath is MAX_PATH.
const MaxPath = 260

// WinExec returns a value greater than 31 on success.
const WinExecSuccess uint32 = 33

// Constants maps the Win32 constant names accepted in call scripts to their
// values.
var Constants = map[string]uint64{
	"NULL":                  0,
	"FALSE":                 0,
	"TRUE":                  1,
	"STD_INPUT_HANDLE":      uint64(StdInputHandle),
	"STD_OUTPUT_HANDLE":     uint64(StdOutputHandle),
	"STD_ERROR_HANDLE":      uint64(StdErrorHandle),
	"INVALID_HANDLE_VALUE":  uint64(InvalidHandleValue),
	"GENERIC_READ":          uint64(GenericRead),
	"GENERIC_WRITE":         uint64(GenericWrite),
	"GENERIC_EXECUTE":       uint64(GenericExecute),
	"GENERIC_ALL":           uint64(GenericAll),
	"FILE_READ_DATA":        uint64(FileReadData),
	"FILE_WRITE_DATA":       uint64(FileWriteData),
	"FILE_APPEND_DATA":      uint64(FileAppendData),
	"CREATE_NEW":            uint64(CreateNew),
	"CREATE_ALWAYS":         uint64(CreateAlways),
	"OPEN_EXISTING":         uint64(OpenExisting),
	"OPEN_ALWAYS":           uint64(OpenAlways),
	"TRUNCATE_EXISTING":     uint64(TruncateExisting),
	"FILE_BEGIN":            uint64(FileBegin),
	"FILE_CURRENT":          uint64(FileCurrent),
	"FILE_END":              uint64(FileEnd),
	"LMEM_FIXED":            uint64(LMemFixed),
	"LMEM_MOVEABLE":         uint64(LMemMoveable),
	"LMEM_ZEROINIT":         uint64(LMemZeroInit),
	"GMEM_FIXED":            uint64(GMemFixed),
	"GMEM_MOVEABLE":         uint64(GMemMoveable),
	"GMEM_ZEROINIT":         uint64(GMemZeroInit),
	"HEAP_ZERO_MEMORY":      uint64(HeapZeroMemory),
	"FILE_ATTRIBUTE_NORMAL": uint64(FileAttributeNormal),
}
