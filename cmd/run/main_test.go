package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/script"
	"github.com/wippyai/win32emu/session"
	"github.com/wippyai/win32emu/vfs"
)

func testOptions(t *testing.T, kind string) options {
	t.Helper()
	return options{
		rootFS:     t.TempDir(),
		cwd:        vfs.DefaultCwd,
		memoryKind: kind,
		ptrSize:    session.DefaultPointerSize,
		heapBase:   session.DefaultHeapBase,
		heapSize:   session.DefaultHeapSize,
	}
}

func TestWasmPages(t *testing.T) {
	tests := []struct {
		end   uint64
		pages uint32
		ok    bool
	}{
		{1, 1, true},
		{memory.WasmPageSize, 1, true},
		{memory.WasmPageSize + 1, 2, true},
		{session.DefaultHeapBase + session.DefaultHeapSize, 96, true},
		{0, 0, false},
		{1 << 33, 0, false},
	}
	for _, tt := range tests {
		pages, err := wasmPages(tt.end)
		if (err == nil) != tt.ok {
			t.Errorf("wasmPages(%#x) error = %v, want ok=%v", tt.end, err, tt.ok)
			continue
		}
		if pages != tt.pages {
			t.Errorf("wasmPages(%#x) = %d, want %d", tt.end, pages, tt.pages)
		}
	}
}

func TestNewSessionMemoryKinds(t *testing.T) {
	for _, kind := range []string{"flat", "wazero"} {
		t.Run(kind, func(t *testing.T) {
			opts := testOptions(t, kind)
			out := &bytes.Buffer{}
			sess, reg, err := newSession(context.Background(), opts, strings.NewReader(""), out, out)
			if err != nil {
				t.Fatal(err)
			}
			defer sess.Close()

			src := `
h = CreateFileA "C:/log.txt" GENERIC_WRITE 0 NULL CREATE_ALWAYS 0 NULL
WriteFile $h "ok" 2 NULL NULL
CloseHandle $h
WriteFile STD_OUTPUT_HANDLE "done" 4 NULL NULL
`
			stmts, err := script.Parse(strings.NewReader(src))
			if err != nil {
				t.Fatal(err)
			}
			if err := script.NewRunner(reg, sess, nil).Run(context.Background(), stmts); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(filepath.Join(opts.rootFS, "log.txt"))
			if err != nil || string(data) != "ok" {
				t.Fatalf("log.txt = %q, %v", data, err)
			}
			if out.String() != "done" {
				t.Fatalf("stdout = %q", out.String())
			}
		})
	}
}

func TestNewSessionUnknownMemory(t *testing.T) {
	opts := testOptions(t, "mmap")
	if _, _, err := newSession(context.Background(), opts, nil, nil, nil); err == nil {
		t.Fatal("expected error for unknown memory backing")
	}
}

func TestListAPIs(t *testing.T) {
	var b bytes.Buffer
	if err := listAPIs(&b); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{
		"CreateFileA(lpFileName: LPCSTR string",
		"GetLastError() -> DWORD",
		"ExitProcess(uExitCode: UINT u32)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q", want)
		}
	}
}

func TestConvertArg(t *testing.T) {
	tests := []struct {
		in   string
		typ  wit.Type
		want string
	}{
		{"", wit.U32{}, "0"},
		{"0x10", wit.U32{}, "0x10"},
		{"GENERIC_READ", wit.U32{}, "GENERIC_READ"},
		{`C:\a.txt`, wit.String{}, `"C:\a.txt"`},
		{`"quoted"`, wit.String{}, `"quoted"`},
		{"$name", wit.String{}, "$name"},
		{`say "hi"`, wit.String{}, `"say \"hi\""`},
		{"", wit.String{}, `""`},
		{"true", wit.Bool{}, "1"},
		{"", wit.Bool{}, "0"},
	}
	for _, tt := range tests {
		if got := convertArg(tt.in, tt.typ); got != tt.want {
			t.Errorf("convertArg(%q, %T) = %q, want %q", tt.in, tt.typ, got, tt.want)
		}
	}
}

func TestWitTypeStr(t *testing.T) {
	tests := map[dispatch.Type]string{
		dispatch.Void:    "void",
		dispatch.Handle:  "u32",
		dispatch.Pointer: "u64",
		dispatch.Int:     "s32",
		dispatch.WString: "string",
		dispatch.Bool:    "bool",
	}
	for typ, want := range tests {
		if got := witTypeStr(typ.Wit()); got != want {
			t.Errorf("witTypeStr(%s) = %q, want %q", typ, got, want)
		}
	}
}
