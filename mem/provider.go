// Package mem implements the memory provider the block allocator sits on:
// a fixed-capacity heap segment that grows monotonically via Sbrk and never
// relocates, so payload pointers handed out by the allocator above it stay
// valid for the provider's whole lifetime.
package mem

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/go-alloc/segheap/cache/mempool"
)

// ErrArenaExhausted is returned by Sbrk when growing the heap by the
// requested amount would exceed the provider's fixed capacity.
var ErrArenaExhausted = errors.New("mem: arena exhausted")

// Provider is the downward-facing interface the block allocator consumes.
// It mirrors the classic sbrk/mem_heap_lo/mem_heap_hi trio: Sbrk extends the
// heap and returns the base of the newly granted region, Lo and Hi report
// the current bounds for the self-consistency checker.
type Provider interface {
	// Sbrk extends the heap by n bytes and returns the base address of the
	// new region. It never shrinks the heap and never moves previously
	// granted memory.
	Sbrk(n uintptr) (unsafe.Pointer, error)

	// Lo returns the address of the first byte of the heap segment.
	Lo() unsafe.Pointer

	// Hi returns the address of the last byte currently in the heap
	// segment (brk minus one, inclusive, the way mem_heap_hi is typically
	// read: the highest valid address so far), or Lo if nothing has been
	// granted yet.
	Hi() unsafe.Pointer

	// Close releases the backing store. The provider must not be used
	// afterwards.
	Close() error
}

// arena is a Provider backed by a single fixed-capacity byte slab. The slab
// is obtained once, from the mempool size-classed pool rather than a fresh
// make([]byte, ...), so that the many short-lived allocators a test suite or
// benchmark spins up reuse memory across providers of the same size class.
type arena struct {
	slab     []byte
	base     unsafe.Pointer
	capacity uintptr
	brk      uintptr
}

// NewArena constructs a Provider whose heap segment can grow up to capacity
// bytes. capacity must be large enough for at least the four-word bootstrap
// request the allocator's New makes; callers that want headroom for many
// allocations should size capacity generously, since the arena never grows
// past it.
func NewArena(capacity uintptr) (Provider, error) {
	if capacity == 0 {
		return nil, errors.New("mem: arena capacity must be > 0")
	}

	slab := mempool.Malloc(int(capacity))
	if len(slab) == 0 {
		return nil, errors.New("mem: failed to allocate arena backing store")
	}

	return &arena{
		slab:     slab,
		base:     unsafe.Pointer(&slab[0]),
		capacity: capacity,
	}, nil
}

func (a *arena) Sbrk(n uintptr) (unsafe.Pointer, error) {
	if n == 0 {
		return unsafe.Add(a.base, int(a.brk)), nil
	}
	if a.brk+n > a.capacity {
		return nil, errors.Wrapf(ErrArenaExhausted, "requested %d bytes, %d available", n, a.capacity-a.brk)
	}

	p := unsafe.Add(a.base, int(a.brk))
	a.brk += n
	return p, nil
}

func (a *arena) Lo() unsafe.Pointer {
	return a.base
}

func (a *arena) Hi() unsafe.Pointer {
	if a.brk == 0 {
		return a.base
	}
	return unsafe.Add(a.base, int(a.brk-1))
}

func (a *arena) Close() error {
	mempool.Free(a.slab)
	a.slab = nil
	a.base = nil
	return nil
}
