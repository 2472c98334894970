package trace

import "github.com/go-alloc/segheap/container/ring"

// History keeps the most recent operations a Runner has replayed, in a
// fixed-capacity ring so long traces don't grow memory without bound.
type History struct {
	buf  *ring.Ring[Op]
	next int
	size int
	cap  int
}

// NewHistory builds a History that remembers the last capacity operations.
func NewHistory(capacity int) *History {
	return &History{
		buf: ring.NewFromSlice(make([]Op, capacity)),
		cap: capacity,
	}
}

// Record appends op, evicting the oldest entry once the ring is full.
func (h *History) Record(op Op) {
	if h.cap == 0 {
		return
	}
	item, _ := h.buf.Get(h.next)
	*item.Pointer() = op
	h.next = (h.next + 1) % h.cap
	if h.size < h.cap {
		h.size++
	}
}

// Recent returns the recorded operations oldest-first.
func (h *History) Recent() []Op {
	out := make([]Op, 0, h.size)
	start := h.next - h.size
	if start < 0 {
		start += h.cap
	}
	for i := 0; i < h.size; i++ {
		item, _ := h.buf.Get((start + i) % h.cap)
		out = append(out, item.Value())
	}
	return out
}

// Len returns the number of operations currently recorded.
func (h *History) Len() int {
	return h.size
}
