package malloc

import "github.com/go-alloc/segheap/mem"

// Options configures an Allocator beyond what New's defaults provide.
// Reserved for callers that want a non-default provider capacity; the
// allocator's own tuning constants (list count, FIFO boundary, initial
// chunk) are compile-time constants, matching the reference implementation
// they are grounded on.
type Options struct {
	// Capacity is the arena size in bytes handed to mem.NewArena when the
	// caller does not construct its own mem.Provider.
	Capacity uintptr
}

// DefaultOptions returns the default options to pass to NewWithOptions.
func DefaultOptions() Options {
	return Options{Capacity: mem.DefaultCapacity}
}

// NewWithOptions builds a fresh arena sized by opts and bootstraps an
// Allocator on top of it.
func NewWithOptions(opts Options) (*Allocator, error) {
	p, err := mem.NewArena(opts.Capacity)
	if err != nil {
		return nil, err
	}
	return New(p)
}
