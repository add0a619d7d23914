package dispatch

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/win32emu/errors"
)

// Type is the declared type of a parameter or return value.
type Type uint8

const (
	Void Type = iota
	Handle
	Pointer
	DWORD
	UINT
	Int
	SizeT
	String
	WString
	Bool
)

var typeNames = [...]string{
	Void:    "VOID",
	Handle:  "HANDLE",
	Pointer: "LPVOID",
	DWORD:   "DWORD",
	UINT:    "UINT",
	Int:     "INT",
	SizeT:   "SIZE_T",
	String:  "LPCSTR",
	WString: "LPCWSTR",
	Bool:    "BOOL",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return int(t) < len(typeNames)
}

// Wit returns the WIT type used to render values of t. Void has none.
func (t Type) Wit() wit.Type {
	switch t {
	case Handle, DWORD, UINT:
		return wit.U32{}
	case Pointer, SizeT:
		return wit.U64{}
	case Int:
		return wit.S32{}
	case String, WString:
		return wit.String{}
	case Bool:
		return wit.Bool{}
	default:
		return nil
	}
}

// IsString reports whether the slot carries a pointer to a NUL-terminated
// string the registry decodes before calling the handler.
func (t Type) IsString() bool {
	return t == String || t == WString
}

// Param is one declared parameter.
type Param struct {
	Name string
	Type Type
}

// Schema is the static signature of one emulated API.
type Schema struct {
	Name    string
	Params  []Param
	Returns Type
}

// Validate checks the schema for registration: a non-empty name, known
// types, and unique non-empty parameter names.
func (s Schema) Validate() error {
	if s.Name == "" {
		return errors.Registration("", fmt.Errorf("empty API name"))
	}
	if !s.Returns.Valid() {
		return errors.Registration(s.Name, fmt.Errorf("unknown return type %s", s.Returns))
	}
	seen := make(map[string]bool, len(s.Params))
	for i, p := range s.Params {
		if p.Name == "" {
			return errors.Registration(s.Name, fmt.Errorf("parameter %d has no name", i))
		}
		if seen[p.Name] {
			return errors.Registration(s.Name, fmt.Errorf("duplicate parameter %q", p.Name))
		}
		seen[p.Name] = true
		if p.Type == Void || !p.Type.Valid() {
			return errors.Registration(s.Name, fmt.Errorf("parameter %q has invalid type %s", p.Name, p.Type))
		}
	}
	return nil
}

// StackBytes returns the bytes a stdcall callee pops for this signature.
func (s Schema) StackBytes(ptrSize int) int {
	return len(s.Params) * ptrSize
}

// Signature renders the schema as a C-style prototype.
func (s Schema) Signature() string {
	out := s.Returns.String() + " " + s.Name + "("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		out += p.Type.String() + " " + p.Name
	}
	return out + ")"
}
