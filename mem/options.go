package mem

// DefaultCapacity is used by callers that have no specific heap ceiling in
// mind; it comfortably fits the allocator's own tests and small benchmarks.
const DefaultCapacity = 16 << 20 // 16MB
