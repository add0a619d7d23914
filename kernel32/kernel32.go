package kernel32

import (
	"fmt"

	"github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/session"
)

const (
	retFalse uint64 = 0
	retTrue  uint64 = 1
)

type api struct {
	handler dispatch.Handler
	schema  dispatch.Schema
}

func param(name string, t dispatch.Type) dispatch.Param {
	return dispatch.Param{Name: name, Type: t}
}

func apis() []api {
	var all []api
	all = append(all, fileAPIs()...)
	all = append(all, heapAPIs()...)
	all = append(all, processAPIs()...)
	return all
}

// Register binds every kernel32 handler to reg.
func Register(reg *dispatch.Registry) error {
	for _, a := range apis() {
		if err := reg.Register(a.schema, a.handler); err != nil {
			return err
		}
	}
	return nil
}

// Schemas returns the schemas Register installs, in registration order.
func Schemas() []dispatch.Schema {
	list := apis()
	out := make([]dispatch.Schema, len(list))
	for i, a := range list {
		out[i] = a.schema
	}
	return out
}

// writeU32 stores an output DWORD. Faults on guest memory are fatal.
func writeU32(s *session.Session, addr uint64, v uint32) error {
	if err := s.Memory().WriteU32(addr, v); err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, fmt.Sprintf("write DWORD at %#x", addr))
	}
	return nil
}

func readBytes(s *session.Session, addr uint64, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	data, err := s.Memory().Read(addr, uint64(n))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, fmt.Sprintf("read buffer %#x+%d", addr, n))
	}
	return data, nil
}

func writeBytes(s *session.Session, addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := s.Memory().Write(addr, data); err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, fmt.Sprintf("write buffer %#x+%d", addr, len(data)))
	}
	return nil
}
