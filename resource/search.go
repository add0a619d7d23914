package resource

import (
	"io/fs"
	"strings"
	"time"

	"github.com/wippyai/win32emu/win32"
)

// Entry is one directory listing result.
type Entry struct {
	ModTime    time.Time
	Name       string
	Size       int64
	Attributes uint32
}

// EntryFromInfo builds an Entry with Win32 attributes derived from the host
// mode bits.
func EntryFromInfo(info fs.FileInfo) Entry {
	var attrs uint32
	if info.IsDir() {
		attrs |= win32.FileAttributeDirectory
	}
	if info.Mode().Perm()&0o200 == 0 {
		attrs |= win32.FileAttributeReadonly
	}
	if strings.HasPrefix(info.Name(), ".") {
		attrs |= win32.FileAttributeHidden
	}
	if attrs == 0 {
		attrs = win32.FileAttributeNormal
	}

	size := info.Size()
	if info.IsDir() {
		size = 0
	}
	return Entry{
		Name:       info.Name(),
		Size:       size,
		Attributes: attrs,
		ModTime:    info.ModTime(),
	}
}

// Search is a FindFirstFile cursor over a snapshot of matching entries.
type Search struct {
	pattern string
	entries []Entry
	pos     int
}

// NewSearch creates a cursor positioned before the first entry.
func NewSearch(pattern string, entries []Entry) *Search {
	return &Search{pattern: pattern, entries: entries}
}

// Kind implements Resource.
func (*Search) Kind() Kind { return KindSearch }

func (*Search) sealed() {}

// Pattern returns the guest pattern the cursor was created from.
func (s *Search) Pattern() string { return s.pattern }

// Next returns the next entry, or false once the listing is exhausted.
func (s *Search) Next() (Entry, bool) {
	if s.pos >= len(s.entries) {
		return Entry{}, false
	}
	e := s.entries[s.pos]
	s.pos++
	return e, true
}

// Remaining returns the number of entries not yet returned.
func (s *Search) Remaining() int {
	return len(s.entries) - s.pos
}

// Close implements Resource.
func (s *Search) Close() error {
	s.entries = nil
	s.pos = 0
	return nil
}
