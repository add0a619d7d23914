// Package resource provides the Win32 handle table.
//
// Handles are opaque 32-bit values the guest receives from CreateFile,
// FindFirstFile and similar calls. The table maps them to host-side
// resources and owns those resources until the guest closes them.
//
// # Handle Issuance
//
// Ids start at 4 and advance by 4, matching Win32 handle granularity. An
// id is never reused within a table, so a stale handle can never alias a
// newer resource. Issuance stops before the pseudo-handle range
// (0xFFFFFF00 and above), which keeps issued ids disjoint from
// STD_*_HANDLE and INVALID_HANDLE_VALUE.
//
//	table := resource.NewTable()
//
//	h, err := table.Insert(file)
//	f, err := table.File(h)   // variant-checked lookup
//	err = table.Remove(h)     // closes the file, h is dead from now on
//
// # Variants
//
// The set of resource variants is closed:
//
//	*File   - host file classified as disk, pipe or character device
//	*Search - directory enumeration cursor
//
// Lookups of a stale, pseudo, or never-issued id return an error matching
// ErrNotFound. Variant-checked lookups of the wrong variant return a
// type-mismatch error.
//
// # Observers
//
// Observers receive EventCreated and EventDropped notifications; sessions
// use one to log handle traffic.
//
// # Teardown
//
// Close closes every open resource in handle order, aggregates the close
// errors and refuses further inserts.
package resource
