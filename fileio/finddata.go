package fileio

import (
	"encoding/binary"
	"time"

	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/resource"
	"github.com/wippyai/win32emu/win32"
)

// Sizes of WIN32_FIND_DATAA and WIN32_FIND_DATAW.
const (
	FindDataSizeA = 320
	FindDataSizeW = 592
)

const (
	offAttributes = 0
	offCreation   = 4
	offAccess     = 12
	offWrite      = 20
	offSizeHigh   = 28
	offSizeLow    = 32
	offFileName   = 44
)

// epochDelta is the number of 100ns intervals between 1601-01-01 and
// 1970-01-01.
const epochDelta = 116444736000000000

// Filetime converts t to a Win32 FILETIME value.
func Filetime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100) + epochDelta
}

// EncodeFindData lays out e as WIN32_FIND_DATAW when wide is set, otherwise
// as WIN32_FIND_DATAA. Names longer than MAX_PATH-1 are truncated.
func EncodeFindData(e resource.Entry, wide bool) ([]byte, error) {
	size := FindDataSizeA
	if wide {
		size = FindDataSizeW
	}
	buf := make([]byte, size)
	le := binary.LittleEndian

	ft := Filetime(e.ModTime)
	le.PutUint32(buf[offAttributes:], e.Attributes)
	le.PutUint64(buf[offCreation:], ft)
	le.PutUint64(buf[offAccess:], ft)
	le.PutUint64(buf[offWrite:], ft)
	le.PutUint32(buf[offSizeHigh:], uint32(uint64(e.Size)>>32))
	le.PutUint32(buf[offSizeLow:], uint32(e.Size))

	name := []rune(e.Name)
	if len(name) > win32.MaxPath-1 {
		name = name[:win32.MaxPath-1]
	}

	if !wide {
		raw := []byte(string(name))
		if len(raw) > win32.MaxPath-1 {
			raw = raw[:win32.MaxPath-1]
		}
		copy(buf[offFileName:offFileName+win32.MaxPath], raw)
		return buf, nil
	}

	raw, err := memory.EncodeWide(string(name))
	if err != nil {
		return nil, err
	}
	if len(raw) > 2*(win32.MaxPath-1) {
		raw = raw[:2*(win32.MaxPath-1)]
	}
	copy(buf[offFileName:offFileName+2*win32.MaxPath], raw)
	return buf, nil
}
