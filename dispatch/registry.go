package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/memory"
	"github.com/wippyai/win32emu/session"
)

// Handler implements one emulated API. On a guest error the returned value
// is still handed to the guest as the failure result.
type Handler func(ctx context.Context, s *session.Session, a Args) (uint64, error)

// Result is the outcome of a dispatched call.
type Result struct {
	Value      uint64
	StackBytes int
}

type entry struct {
	handler Handler
	schema  Schema
}

// Registry maps API names to schemas and handlers.
type Registry struct {
	entries map[string]*entry
	mu      sync.RWMutex
	callMu  sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register validates schema and binds it to handler.
func (r *Registry) Register(schema Schema, handler Handler) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return errors.Registration(schema.Name, fmt.Errorf("nil handler"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[schema.Name]; exists {
		return errors.Registration(schema.Name, fmt.Errorf("already registered"))
	}
	params := make([]Param, len(schema.Params))
	copy(params, schema.Params)
	schema.Params = params
	r.entries[schema.Name] = &entry{schema: schema, handler: handler}
	Logger().Debug("api registered",
		zap.String("api", schema.Name),
		zap.String("signature", schema.Signature()))
	return nil
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Schema{}, false
	}
	return e.schema, true
}

// Schemas returns every registered schema sorted by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schema, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered APIs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Call dispatches one API call against s. Calls are serialized across the
// registry. Guest errors set the last error and return the handler's
// value; every other error aborts the session and is returned.
func (r *Registry) Call(ctx context.Context, s *session.Session, name string, frame Frame) (Result, error) {
	if s == nil {
		return Result{}, errors.NotInitialized(errors.PhaseDispatch, "session")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	r.callMu.Lock()
	defer r.callMu.Unlock()

	if !s.Running() {
		return Result{}, errors.New(errors.PhaseSession, errors.KindClosed).
			API(name).
			Detail("session is not running").
			Build()
	}

	e, ok := r.lookup(name)
	if !ok {
		return Result{}, r.fatal(s, name, errors.Unimplemented(name, "no handler registered"))
	}

	args, err := r.decode(s, e.schema, frame)
	if err != nil {
		return Result{}, r.fatal(s, name, err)
	}

	ret, err := e.handler(ctx, s, args)
	res := Result{Value: ret, StackBytes: e.schema.StackBytes(s.PointerSize())}

	if err != nil {
		code, guest := errors.GuestCode(err)
		if !guest {
			return Result{}, r.fatal(s, name, err)
		}
		s.SetLastError(code)
		s.Logger().Debug("api failed",
			zap.String("api", name),
			zap.Uint64("ret", ret),
			zap.Uint32("last_error", code),
			zap.Error(err))
		return res, nil
	}

	s.Logger().Debug("api call",
		zap.String("api", name),
		zap.Uint64("ret", ret),
		zap.Uint32("last_error", s.LastError()))
	return res, nil
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

func (r *Registry) decode(s *session.Session, schema Schema, frame Frame) (Args, error) {
	raw := make([]uint64, len(schema.Params))
	strs := make([]string, len(schema.Params))
	for i := range schema.Params {
		v, err := frame.Arg(i)
		if err != nil {
			return Args{}, err
		}
		raw[i] = v
	}

	args := NewArgs(s.PointerSize(), raw, strs)
	for i, p := range schema.Params {
		if !p.Type.IsString() || args.IsNull(i) {
			continue
		}
		var (
			str string
			err error
		)
		if p.Type == WString {
			str, err = memory.ReadWString(s.Memory(), args.Ptr(i))
		} else {
			str, err = memory.ReadCString(s.Memory(), args.Ptr(i))
		}
		if err != nil {
			return Args{}, errors.Wrap(errors.PhaseDispatch, errors.KindOutOfBounds, err, fmt.Sprintf("read %s %s", p.Type, p.Name))
		}
		strs[i] = str
	}
	return args, nil
}

func (r *Registry) fatal(s *session.Session, name string, err error) error {
	s.Logger().Error("fatal api error", zap.String("api", name), zap.Error(err))
	if stopErr := s.Abort(err); stopErr != nil {
		s.Logger().Warn("failed to stop emulator", zap.Error(stopErr))
	}
	return err
}
