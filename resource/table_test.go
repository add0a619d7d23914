package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type closeCounter struct {
	err    error
	closed int
}

func (c *closeCounter) Kind() Kind { return KindSearch }
func (c *closeCounter) sealed()    {}
func (c *closeCounter) Close() error {
	c.closed++
	return c.err
}

func openTemp(t *testing.T, name string) *File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	file, err := NewFile(f, `C:\`+name, AccessRead|AccessWrite)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return file
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()
	file := openTemp(t, "a.txt")

	h, err := table.Insert(file)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h != 4 {
		t.Errorf("first handle = %#x, want 0x4", uint32(h))
	}

	r, err := table.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r != file {
		t.Fatal("Get returned a different resource")
	}

	got, err := table.File(h)
	if err != nil || got != file {
		t.Fatalf("File = %v, %v", got, err)
	}

	if _, err := table.Search(h); !errors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindTypeMismatch}) {
		t.Errorf("Search on file handle = %v, want type mismatch", err)
	}

	if err := table.Remove(h); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if _, err := table.Get(h); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove = %v, want ErrNotFound", err)
	}
}

func TestTable_NeverReused(t *testing.T) {
	table := NewTable()
	seen := make(map[Handle]bool)

	for i := 0; i < 100; i++ {
		h, err := table.Insert(NewSearch("*", nil))
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if seen[h] {
			t.Fatalf("handle %#x reused", uint32(h))
		}
		if h%4 != 0 {
			t.Fatalf("handle %#x not 4-aligned", uint32(h))
		}
		seen[h] = true
		if i%2 == 0 {
			if err := table.Remove(h); err != nil {
				t.Fatalf("Remove: %v", err)
			}
		}
	}

	if table.Len() != 50 {
		t.Errorf("Len = %d, want 50", table.Len())
	}
}

func TestTable_NotFound(t *testing.T) {
	table := NewTable()
	h, _ := table.Insert(NewSearch("*", nil))

	tests := []struct {
		name   string
		handle Handle
	}{
		{"zero", 0},
		{"never issued", h + 4},
		{"misaligned", h + 1},
		{"stdout pseudo", win32.StdOutputHandle},
		{"invalid handle value", win32.InvalidHandleValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := table.Get(tt.handle); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%#x) = %v, want ErrNotFound", uint32(tt.handle), err)
			}
			if err := table.Remove(tt.handle); !errors.Is(err, ErrNotFound) {
				t.Errorf("Remove(%#x) = %v, want ErrNotFound", uint32(tt.handle), err)
			}
		})
	}
}

func TestTable_Exhausted(t *testing.T) {
	table := NewTable()
	table.backend.next = handleLimit - handleStep

	h, err := table.Insert(NewSearch("*", nil))
	if err != nil {
		t.Fatalf("last Insert failed: %v", err)
	}
	if h >= win32.PseudoHandleBase {
		t.Fatalf("issued handle %#x inside pseudo range", uint32(h))
	}
	if _, err := table.Get(h); err != nil {
		t.Errorf("Get(%#x) failed: %v", uint32(h), err)
	}

	_, err = table.Insert(NewSearch("*", nil))
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindExhausted}) {
		t.Errorf("Insert past limit = %v, want exhausted", err)
	}
}

func TestTable_ChurnKeepsOnlyLiveEntries(t *testing.T) {
	table := NewTable()
	var last Handle
	for i := 0; i < 10000; i++ {
		h, err := table.Insert(NewSearch("*", nil))
		if err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		if h <= last {
			t.Fatalf("handle %#x not above previous %#x", uint32(h), uint32(last))
		}
		last = h
		if err := table.Remove(h); err != nil {
			t.Fatalf("Remove(%#x) failed: %v", uint32(h), err)
		}
	}
	if n := len(table.backend.entries); n != 0 {
		t.Errorf("backend holds %d entries after churn, want 0", n)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Insert(NewSearch("*.txt", nil))
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h || obs.events[0].Kind != KindSearch {
		t.Fatalf("unexpected created event: %+v", obs.events[0])
	}

	_ = table.Remove(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped {
		t.Fatalf("Expected EventDropped, got %+v", obs.events)
	}

	table.Unsubscribe(obs)
	_, _ = table.Insert(NewSearch("*", nil))
	if len(obs.events) != 2 {
		t.Fatal("Observer still notified after Unsubscribe")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	ok := &closeCounter{}
	bad1 := &closeCounter{err: os.ErrClosed}
	bad2 := &closeCounter{err: os.ErrPermission}

	var order []Handle
	for _, r := range []Resource{ok, bad1, bad2} {
		h, err := table.Insert(r)
		if err != nil {
			t.Fatal(err)
		}
		order = append(order, h)
	}

	obs := &testObserver{}
	table.Subscribe(obs)

	err := table.Close()
	if err == nil {
		t.Fatal("expected aggregated close error")
	}
	if !errors.Is(err, os.ErrClosed) || !errors.Is(err, os.ErrPermission) {
		t.Errorf("aggregated error missing causes: %v", err)
	}
	if ok.closed != 1 || bad1.closed != 1 || bad2.closed != 1 {
		t.Error("not every resource closed exactly once")
	}
	for i, e := range obs.events {
		if e.Handle != order[i] {
			t.Errorf("close order[%d] = %#x, want %#x", i, uint32(e.Handle), uint32(order[i]))
		}
	}

	if _, err := table.Insert(NewSearch("*", nil)); !errors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindClosed}) {
		t.Errorf("Insert after Close = %v, want closed", err)
	}
	if err := table.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	for i := 0; i < 3; i++ {
		_, _ = table.Insert(NewSearch("*", nil))
	}
	_ = table.Remove(8)

	var got []Handle
	table.Each(func(h Handle, _ Resource) bool {
		got = append(got, h)
		return true
	})
	if len(got) != 2 || got[0] != 4 || got[1] != 12 {
		t.Errorf("Each handles = %v, want [4 12]", got)
	}
}
