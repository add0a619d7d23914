// Package heap emulates the Local*, Global* and Heap* allocators over a
// fixed region of guest memory.
//
// Blocks are carved first-fit from an address-ordered free list, aligned to
// 16 bytes, and coalesced with free neighbours when released. The block
// address is the only identity handed to the guest; Lock returns it
// unchanged and moveable memory is never moved.
//
// Realloc preserves the first min(old, new) bytes. The Legacy option
// selects free-then-allocate, as some emulators implement LocalReAlloc,
// which returns a block whose contents are not carried over.
package heap
