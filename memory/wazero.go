package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/win32emu/errors"
)

// WasmPageSize is the wazero linear memory page size (64 KB).
const WasmPageSize = 65536

const maxWasmPages = 65536

// Wazero is a guest address space backed by a wazero linear memory. Guest
// address N is linear memory offset N.
type Wazero struct {
	rt  wazero.Runtime
	mod api.Module
	Mem api.Memory
}

// NewWazero instantiates a memory-only module with the given number of
// 64 KB pages and wraps its exported memory.
func NewWazero(ctx context.Context, pages uint32) (*Wazero, error) {
	if pages == 0 || pages > maxWasmPages {
		return nil, errors.InvalidInput(errors.PhaseMemory, fmt.Sprintf("page count %d out of range", pages))
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	mod, err := rt.Instantiate(ctx, memoryModule(pages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindNotInitialized, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.NotInitialized(errors.PhaseMemory, "exported memory")
	}

	return &Wazero{rt: rt, mod: mod, Mem: mem}, nil
}

// WrapWazero adapts an existing wazero memory, for hosts that already run
// guest code on wazero.
func WrapWazero(mem api.Memory) *Wazero {
	if mem == nil {
		return nil
	}
	return &Wazero{Mem: mem}
}

// memoryModule encodes (module (memory (export "memory") pages)).
func memoryModule(pages uint32) []byte {
	limits := append([]byte{0x01, 0x00}, uleb(pages)...)
	export := []byte{0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00}

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	bin = append(bin, 0x05)
	bin = append(bin, uleb(uint32(len(limits)))...)
	bin = append(bin, limits...)
	bin = append(bin, 0x07)
	bin = append(bin, uleb(uint32(len(export)))...)
	bin = append(bin, export...)
	return bin
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// Size returns the current linear memory size in bytes.
func (m *Wazero) Size() uint64 {
	return uint64(m.Mem.Size())
}

// Close releases the wazero runtime when this memory owns one.
func (m *Wazero) Close(ctx context.Context) error {
	if m.rt == nil {
		return nil
	}
	return m.rt.Close(ctx)
}

func (m *Wazero) offset(addr, length uint64) (uint32, error) {
	if addr > uint64(^uint32(0)) || length > m.Size() || addr > m.Size()-length {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, length)
	}
	return uint32(addr), nil
}

// Read returns a copy of length bytes at addr.
func (m *Wazero) Read(addr uint64, length uint64) ([]byte, error) {
	off, err := m.offset(addr, length)
	if err != nil {
		return nil, err
	}
	data, ok := m.Mem.Read(off, uint32(length))
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, addr, length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write writes bytes to memory.
func (m *Wazero) Write(addr uint64, data []byte) error {
	off, err := m.offset(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	if !m.Mem.Write(off, data) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, uint64(len(data)))
	}
	return nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Wazero) ReadU32(addr uint64) (uint32, error) {
	off, err := m.offset(addr, 4)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint32Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Wazero) ReadU64(addr uint64) (uint64, error) {
	off, err := m.offset(addr, 8)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint64Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, 8)
	}
	return v, nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Wazero) WriteU32(addr uint64, value uint32) error {
	off, err := m.offset(addr, 4)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint32Le(off, value) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Wazero) WriteU64(addr uint64, value uint64) error {
	off, err := m.offset(addr, 8)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint64Le(off, value) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, 8)
	}
	return nil
}
