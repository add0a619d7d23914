package fileio

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/resource"
	"github.com/wippyai/win32emu/win32"
)

func TestFiletime(t *testing.T) {
	if Filetime(time.Time{}) != 0 {
		t.Error("zero time should encode as 0")
	}
	if got := Filetime(time.Unix(0, 0)); got != epochDelta {
		t.Errorf("Filetime(unix epoch) = %d, want %d", got, uint64(epochDelta))
	}
}

func TestEncodeFindData(t *testing.T) {
	e := resource.Entry{
		Name:       "report.txt",
		Size:       0x1_0000_0005,
		Attributes: win32.FileAttributeArchive,
		ModTime:    time.Unix(1, 0),
	}

	t.Run("ansi", func(t *testing.T) {
		buf, err := EncodeFindData(e, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(buf) != FindDataSizeA {
			t.Fatalf("len = %d, want %d", len(buf), FindDataSizeA)
		}
		le := binary.LittleEndian
		if le.Uint32(buf[0:]) != win32.FileAttributeArchive {
			t.Error("attributes mismatch")
		}
		if le.Uint32(buf[28:]) != 1 || le.Uint32(buf[32:]) != 5 {
			t.Errorf("size high/low = %d/%d", le.Uint32(buf[28:]), le.Uint32(buf[32:]))
		}
		if le.Uint64(buf[20:]) != Filetime(e.ModTime) {
			t.Error("last write time mismatch")
		}
		name := string(buf[44 : 44+len(e.Name)])
		if name != e.Name || buf[44+len(e.Name)] != 0 {
			t.Errorf("name = %q", name)
		}
	})

	t.Run("wide", func(t *testing.T) {
		buf, err := EncodeFindData(e, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(buf) != FindDataSizeW {
			t.Fatalf("len = %d, want %d", len(buf), FindDataSizeW)
		}
		name, err := memory.DecodeWide(buf[44 : 44+2*len(e.Name)])
		if err != nil || name != e.Name {
			t.Errorf("name = %q, %v", name, err)
		}
	})

	t.Run("long name truncated", func(t *testing.T) {
		long := resource.Entry{Name: strings.Repeat("n", 400)}
		buf, err := EncodeFindData(long, false)
		if err != nil {
			t.Fatal(err)
		}
		if buf[44+win32.MaxPath-1] != 0 {
			t.Error("name not NUL-terminated within MAX_PATH")
		}
	})
}
