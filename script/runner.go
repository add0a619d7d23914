package script

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/session"
	"github.com/wippyai/win32emu/win32"
)

// Runner executes statements against one session. Variables persist across
// Exec calls. Strings and buffers built for a statement live on the guest
// heap until it completes, unless a let binds them to a variable.
type Runner struct {
	reg   *dispatch.Registry
	sess  *session.Session
	out   io.Writer
	vars  map[string]uint64
	temps []uint64
}

// NewRunner creates a runner that prints results to out.
func NewRunner(reg *dispatch.Registry, sess *session.Session, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		reg:  reg,
		sess: sess,
		out:  out,
		vars: make(map[string]uint64),
	}
}

// Var returns a script variable.
func (r *Runner) Var(name string) (uint64, bool) {
	v, ok := r.vars[name]
	return v, ok
}

// SetVar binds a script variable.
func (r *Runner) SetVar(name string, v uint64) {
	r.vars[name] = v
}

// Run executes stmts in order. It stops at the first error or when the
// session halts.
func (r *Runner) Run(ctx context.Context, stmts []Stmt) error {
	for _, st := range stmts {
		if err := r.Exec(ctx, st); err != nil {
			return err
		}
		if !r.sess.Running() {
			fmt.Fprintf(r.out, "halted: exit code %d\n", r.sess.ExitCode())
			return nil
		}
	}
	return nil
}

// Exec executes one statement.
func (r *Runner) Exec(ctx context.Context, st Stmt) error {
	defer r.release()

	switch st.Op {
	case OpLet:
		v, err := r.value(st, st.Args[0], dispatch.Pointer)
		if err != nil {
			return err
		}
		r.temps = r.temps[:0]
		r.vars[st.Assign] = v
		fmt.Fprintf(r.out, "%s = %#x\n", st.Assign, v)
		return nil
	case OpDump:
		return r.dump(st)
	case OpU32:
		addr, err := r.value(st, st.Args[0], dispatch.Pointer)
		if err != nil {
			return err
		}
		v, err := r.sess.Memory().ReadU32(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "[%#x] = %d (%#x)\n", addr, v, v)
		return nil
	default:
		return r.call(ctx, st)
	}
}

func (r *Runner) call(ctx context.Context, st Stmt) error {
	schema, ok := r.reg.Lookup(st.API)
	if !ok {
		// Unknown names still go through the registry so they fail the way a
		// trapped guest call would.
		_, err := r.reg.Call(ctx, r.sess, st.API, dispatch.Values(nil))
		return err
	}
	if len(st.Args) != len(schema.Params) {
		return r.errorf(st, "%s takes %d arguments, got %d", st.API, len(schema.Params), len(st.Args))
	}

	vals := make(dispatch.Values, len(st.Args))
	for i, arg := range st.Args {
		v, err := r.value(st, arg, schema.Params[i].Type)
		if err != nil {
			return err
		}
		vals[i] = v
	}

	res, err := r.reg.Call(ctx, r.sess, st.API, vals)
	if err != nil {
		return err
	}
	if st.Assign != "" {
		r.vars[st.Assign] = res.Value
	}

	r.sess.Logger().Debug("script call",
		zap.Int("line", st.Line),
		zap.String("api", st.API),
		zap.Uint64("ret", res.Value))
	fmt.Fprintf(r.out, "%s(%s) = %#x  last_error=%d\n", st.API, formatArgs(st.Args), res.Value, r.sess.LastError())
	return nil
}

// value resolves arg for a slot of type t, copying strings and buffers into
// the guest heap.
func (r *Runner) value(st Stmt, arg Arg, t dispatch.Type) (uint64, error) {
	switch arg.Kind {
	case ArgInt:
		return arg.Int, nil
	case ArgConst:
		v, ok := win32.Constants[arg.Name]
		if !ok {
			return 0, r.errorf(st, "unknown constant %s", arg.Name)
		}
		return v, nil
	case ArgVar:
		v, ok := r.vars[arg.Name]
		if !ok {
			return 0, r.errorf(st, "undefined variable $%s", arg.Name)
		}
		return v, nil
	case ArgBuffer:
		addr, err := r.sess.Heap().Alloc(arg.Int, true)
		if err != nil {
			return 0, err
		}
		r.temps = append(r.temps, addr)
		return addr, nil
	case ArgString:
		return r.marshal(st, arg.Str, t)
	}
	return 0, r.errorf(st, "unknown argument kind %d", arg.Kind)
}

func (r *Runner) marshal(st Stmt, s string, t dispatch.Type) (uint64, error) {
	var (
		data []byte
		err  error
	)
	switch t {
	case dispatch.String:
		data = append([]byte(s), 0)
	case dispatch.WString:
		data, err = memory.EncodeWide(s)
		if err != nil {
			return 0, err
		}
		data = append(data, 0, 0)
	case dispatch.Pointer:
		data = []byte(s)
	default:
		return 0, r.errorf(st, "string passed for %s parameter", t)
	}

	addr, err := r.sess.Heap().Alloc(uint64(len(data)), false)
	if err != nil {
		return 0, err
	}
	r.temps = append(r.temps, addr)
	if len(data) > 0 {
		if err := r.sess.Memory().Write(addr, data); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

// release frees the statement's temporary guest allocations.
func (r *Runner) release() {
	for _, addr := range r.temps {
		if err := r.sess.Heap().Free(addr); err != nil {
			r.sess.Logger().Debug("script temporary already freed",
				zap.Uint64("addr", addr),
				zap.Error(err))
		}
	}
	r.temps = r.temps[:0]
}

func (r *Runner) dump(st Stmt) error {
	addr, err := r.value(st, st.Args[0], dispatch.Pointer)
	if err != nil {
		return err
	}
	n, err := r.value(st, st.Args[1], dispatch.DWORD)
	if err != nil {
		return err
	}
	data, err := r.sess.Memory().Read(addr, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%#x:\n%s", addr, hex.Dump(data))
	return nil
}

func (r *Runner) errorf(st Stmt, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).
		API(st.API).
		Value(st.Line).
		Detail("line %d: %s", st.Line, fmt.Sprintf(format, args...)).
		Build()
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
