package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/kernel32"
	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/script"
	"github.com/wippyai/win32emu/session"
	"github.com/wippyai/win32emu/vfs"
)

type options struct {
	rootFS        string
	cwd           string
	scriptFile    string
	memoryKind    string
	stdin         string
	ptrSize       int
	heapBase      uint64
	heapSize      uint64
	legacyRealloc bool
	list          bool
	interactive   bool
	verbose       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.rootFS, "rootfs", "", "Host directory used as the emulated C:\\ root")
	flag.StringVar(&opts.cwd, "cwd", vfs.DefaultCwd, "Guest working directory")
	flag.StringVar(&opts.scriptFile, "script", "", "Call script to run (- for stdin)")
	flag.StringVar(&opts.memoryKind, "memory", "flat", "Guest memory backing: flat or wazero")
	flag.StringVar(&opts.stdin, "stdin", "", "Guest stdin data (default: process stdin)")
	flag.IntVar(&opts.ptrSize, "ptr", session.DefaultPointerSize, "Guest pointer size in bytes (4 or 8)")
	flag.Uint64Var(&opts.heapBase, "heap-base", session.DefaultHeapBase, "Guest heap base address")
	flag.Uint64Var(&opts.heapSize, "heap-size", session.DefaultHeapSize, "Guest heap size in bytes")
	flag.BoolVar(&opts.legacyRealloc, "legacy-realloc", false, "Free before allocating in LocalReAlloc/GlobalReAlloc (no copy)")
	flag.BoolVar(&opts.list, "list", false, "List emulated APIs and exit")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if opts.list {
		if err := listAPIs(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if opts.rootFS == "" || (opts.scriptFile == "" && !opts.interactive) {
		fmt.Fprintln(os.Stderr, "Usage: run -rootfs <dir> -script <file> [-memory flat|wazero] [-ptr 4|8] [-v]")
		fmt.Fprintln(os.Stderr, "       run -list")
		fmt.Fprintln(os.Stderr, "       run -rootfs <dir> -i  (interactive mode)")
		os.Exit(1)
	}

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(int(code))
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	dispatch.SetLogger(logger.Named("dispatch"))
	return logger
}

// memoryCloser adapts a wazero-backed memory to io.Closer for the session.
type memoryCloser struct {
	mem *memory.Wazero
}

func (c memoryCloser) Close() error {
	return c.mem.Close(context.Background())
}

// wasmPages returns the number of wasm pages needed to cover [0, end).
func wasmPages(end uint64) (uint32, error) {
	pages := (end + memory.WasmPageSize - 1) / memory.WasmPageSize
	if pages == 0 || pages > 65536 {
		return 0, fmt.Errorf("heap end %#x does not fit a wasm memory", end)
	}
	return uint32(pages), nil
}

// newSession builds a session and a registry with every kernel32 API.
func newSession(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) (*session.Session, *dispatch.Registry, error) {
	cfg := session.NewConfig().
		WithRootFS(opts.rootFS).
		WithCwd(opts.cwd).
		WithStdin(stdin).
		WithStdout(stdout).
		WithStderr(stderr).
		WithHeap(opts.heapBase, opts.heapSize).
		WithPointerSize(opts.ptrSize).
		WithLegacyRealloc(opts.legacyRealloc).
		WithLogger(newLogger(opts.verbose))

	var wmem *memory.Wazero
	switch opts.memoryKind {
	case "flat":
	case "wazero":
		pages, err := wasmPages(opts.heapBase + opts.heapSize)
		if err != nil {
			return nil, nil, err
		}
		wmem, err = memory.NewWazero(ctx, pages)
		if err != nil {
			return nil, nil, fmt.Errorf("create wazero memory: %w", err)
		}
		cfg.WithMemory(wmem)
	default:
		return nil, nil, fmt.Errorf("unknown memory backing %q", opts.memoryKind)
	}

	sess, err := session.New(cfg)
	if err != nil {
		if wmem != nil {
			_ = wmem.Close(ctx)
		}
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	if wmem != nil {
		sess.OwnCloser(memoryCloser{mem: wmem})
	}

	reg := dispatch.NewRegistry()
	if err := kernel32.Register(reg); err != nil {
		_ = sess.Close()
		return nil, nil, fmt.Errorf("register kernel32: %w", err)
	}
	return sess, reg, nil
}

func run(opts options) (uint32, error) {
	ctx := context.Background()

	var (
		src   io.Reader
		stdin io.Reader = os.Stdin
	)
	if opts.scriptFile == "-" {
		src = os.Stdin
		stdin = strings.NewReader("")
	} else {
		f, err := os.Open(opts.scriptFile)
		if err != nil {
			return 0, fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		src = f
	}
	if opts.stdin != "" {
		stdin = strings.NewReader(opts.stdin)
	}

	stmts, err := script.Parse(src)
	if err != nil {
		return 0, err
	}

	sess, reg, err := newSession(ctx, opts, stdin, os.Stdout, os.Stderr)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	fmt.Fprintf(os.Stderr, "Session: %s\n", sess.ID())
	fmt.Fprintf(os.Stderr, "Root: %s (cwd %s)\n", sess.Root().Host(), sess.Root().Cwd())

	runner := script.NewRunner(reg, sess, os.Stderr)
	if err := runner.Run(ctx, stmts); err != nil {
		return 0, fmt.Errorf("script: %w", err)
	}
	return sess.ExitCode(), nil
}

func listAPIs(w io.Writer) error {
	reg := dispatch.NewRegistry()
	if err := kernel32.Register(reg); err != nil {
		return err
	}
	fmt.Fprintf(w, "Emulated APIs (%d):\n", reg.Len())
	for _, s := range reg.Schemas() {
		fmt.Fprintf(w, "  %s\n", formatSchema(s, false))
	}
	return nil
}

func formatSchema(s dispatch.Schema, styled bool) string {
	render := func(str string) string {
		if styled {
			return typeStyle.Render(str)
		}
		return str
	}

	var b bytes.Buffer
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name + ": " + render(p.Type.String()+" "+witTypeStr(p.Type.Wit())))
	}
	b.WriteByte(')')
	if s.Returns != dispatch.Void {
		b.WriteString(" -> " + render(s.Returns.String()))
	}
	return b.String()
}
