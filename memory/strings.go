package memory

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"

	win32emu "github.com/wippyai/win32emu"
	"github.com/wippyai/win32emu/errors"
)

// MaxString bounds NUL-terminated string reads from guest memory.
const MaxString = 32768

const scanChunk = 64

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// scan reads unit-sized elements from addr until a zero unit. Reads are
// chunked, falling back to unit reads near the end of the address space.
func scan(mem win32emu.Memory, addr uint64, unit int, limit int) ([]byte, error) {
	var out []byte
	zero := make([]byte, unit)
	for len(out) < limit*unit {
		chunk, err := mem.Read(addr+uint64(len(out)), scanChunk)
		if err != nil {
			chunk, err = mem.Read(addr+uint64(len(out)), uint64(unit))
			if err != nil {
				return nil, err
			}
		}
		for i := 0; i+unit <= len(chunk); i += unit {
			if bytes.Equal(chunk[i:i+unit], zero) {
				return append(out, chunk[:i]...), nil
			}
		}
		out = append(out, chunk[:len(chunk)-len(chunk)%unit]...)
	}
	return nil, errors.InvalidInput(errors.PhaseMemory, "string exceeds maximum length")
}

// ReadCString reads a NUL-terminated narrow string at addr.
func ReadCString(mem win32emu.Memory, addr uint64) (string, error) {
	b, err := scan(mem, addr, 1, MaxString)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadWString reads a NUL-terminated UTF-16LE string at addr.
func ReadWString(mem win32emu.Memory, addr uint64) (string, error) {
	b, err := scan(mem, addr, 2, MaxString)
	if err != nil {
		return "", err
	}
	return DecodeWide(b)
}

// DecodeWide converts UTF-16LE bytes to a Go string.
func DecodeWide(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(errors.PhaseMemory, errors.KindInvalidData, err, "decode utf-16")
	}
	return string(out), nil
}

// EncodeWide converts s to UTF-16LE without a terminator.
func EncodeWide(s string) ([]byte, error) {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindInvalidData, err, "encode utf-16")
	}
	return out, nil
}

// WriteCString writes s followed by a NUL byte.
func WriteCString(mem win32emu.Memory, addr uint64, s string) error {
	return mem.Write(addr, append([]byte(s), 0))
}

// WriteWString writes s as UTF-16LE followed by a NUL unit.
func WriteWString(mem win32emu.Memory, addr uint64, s string) error {
	b, err := EncodeWide(s)
	if err != nil {
		return err
	}
	return mem.Write(addr, append(b, 0, 0))
}
