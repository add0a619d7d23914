package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "guest error",
			err: &Error{
				Phase:  PhaseFile,
				Kind:   KindGuest,
				API:    "WriteFile",
				Code:   6,
				Detail: "handle 0x40 not found",
			},
			contains: []string{"[file]", "guest", "WriteFile", "handle 0x40 not found", "last error 6"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseHeap,
				Kind:  KindAllocation,
			},
			contains: []string{"[heap]", "allocation"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseMemory,
				Kind:   KindOutOfBounds,
				Detail: "write past end",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[memory]", "out_of_bounds", "write past end", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseFile,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseHandle,
		Kind:   KindNotFound,
		Detail: "handle 4 not found",
	}

	if !err.Is(&Error{Phase: PhaseHandle, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseHeap, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseHandle, Kind: KindClosed}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("lookup: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseHandle, Kind: KindNotFound}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseFile, KindGuest).
		API("CreateFileA").
		Code(2).
		Value("missing.txt").
		Cause(cause).
		Detail("open %s", "missing.txt").
		Build()

	if err.Phase != PhaseFile {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseFile)
	}
	if err.Kind != KindGuest {
		t.Errorf("Kind = %v, want %v", err.Kind, KindGuest)
	}
	if err.API != "CreateFileA" {
		t.Errorf("API = %v, want CreateFileA", err.API)
	}
	if err.Code != 2 {
		t.Errorf("Code = %d, want 2", err.Code)
	}
	if err.Value != "missing.txt" {
		t.Errorf("Value = %v, want missing.txt", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "open missing.txt" {
		t.Errorf("Detail = %v, want 'open missing.txt'", err.Detail)
	}
}

func TestErrorClasses(t *testing.T) {
	t.Run("guest is not fatal", func(t *testing.T) {
		err := Guest(PhaseFile, 6, "invalid handle")
		if IsFatal(err) {
			t.Error("guest error reported as fatal")
		}
		if err.Fatal() {
			t.Error("Fatal() = true for guest error")
		}
		code, ok := GuestCode(fmt.Errorf("wrapped: %w", err))
		if !ok || code != 6 {
			t.Errorf("GuestCode = %d, %v; want 6, true", code, ok)
		}
	})

	t.Run("unimplemented is fatal", func(t *testing.T) {
		err := Unimplemented("GetFileType", "no classification")
		if !IsFatal(err) {
			t.Error("unimplemented error not fatal")
		}
		if !IsUnsupported(err) {
			t.Error("IsUnsupported = false")
		}
		if _, ok := GuestCode(err); ok {
			t.Error("GuestCode should not match unimplemented error")
		}
	})

	t.Run("plain errors are fatal", func(t *testing.T) {
		if !IsFatal(errors.New("host failure")) {
			t.Error("plain error should be fatal")
		}
		if IsFatal(nil) {
			t.Error("nil should not be fatal")
		}
	})

	t.Run("fatal wrapping guest stays fatal", func(t *testing.T) {
		err := Wrap(PhaseMemory, KindOutOfBounds, Guest(PhaseFile, 5, "denied"), "copy out")
		if !IsFatal(err) {
			t.Error("outer fatal error should win")
		}
	})
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseHandle, "handle", 8)
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if err.Value != 8 {
			t.Errorf("Value = %v, want 8", err.Value)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseHeap, 1024)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseMemory, 0x1000, 4)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if !strings.Contains(err.Detail, "0x1000") {
			t.Errorf("Detail = %v, should contain address", err.Detail)
		}
	})

	t.Run("Registration", func(t *testing.T) {
		cause := errors.New("duplicate")
		err := Registration("ReadFile", cause)
		if err.Kind != KindRegistration || err.API != "ReadFile" {
			t.Errorf("unexpected registration error: %v", err)
		}
		if !errors.Is(err, cause) {
			t.Error("registration error should unwrap to cause")
		}
	})

	t.Run("ParseFailed", func(t *testing.T) {
		err := ParseFailed(3, "unterminated string")
		if err.Phase != PhaseParse || err.Value != 3 {
			t.Errorf("unexpected parse error: %v", err)
		}
	})
}
