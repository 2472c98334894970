package trace

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/go-alloc/segheap/malloc"
)

// ErrUnknownID is returned when a free references a block id that was
// never allocated, or was already freed. A realloc of such an id is not an
// error: it allocates a new block.
var ErrUnknownID = errors.New("trace: unknown block id")

// Runner replays operations against a single malloc.Allocator. The
// allocator has no internal synchronization, so Runner serializes access
// to it with its own mutex; callers wanting concurrent replay should use
// one Runner (and one Allocator) per goroutine, as RunConcurrent does.
type Runner struct {
	mu      sync.Mutex
	alloc   *malloc.Allocator
	live    map[int]unsafe.Pointer
	history *History
}

// NewRunner builds a Runner driving alloc, remembering up to historySize
// recent operations.
func NewRunner(alloc *malloc.Allocator, historySize int) *Runner {
	return &Runner{
		alloc:   alloc,
		live:    make(map[int]unsafe.Pointer),
		history: NewHistory(historySize),
	}
}

// Apply executes a single operation against the runner's allocator.
func (r *Runner) Apply(op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch op.Kind {
	case Alloc:
		bp, err := r.alloc.Alloc(op.Size)
		if err != nil {
			return errors.Wrapf(err, "trace: alloc id %d", op.ID)
		}
		r.live[op.ID] = bp

	case Free:
		bp, ok := r.live[op.ID]
		if !ok {
			return errors.Wrapf(ErrUnknownID, "free id %d", op.ID)
		}
		r.alloc.Free(bp)
		delete(r.live, op.ID)

	case Realloc:
		bp := r.live[op.ID] // nil if absent, which Realloc treats as Alloc
		nbp, err := r.alloc.Realloc(bp, op.Size)
		if err != nil {
			return errors.Wrapf(err, "trace: realloc id %d", op.ID)
		}
		r.live[op.ID] = nbp
	}

	r.history.Record(op)
	return nil
}

// Run executes ops in order, stopping at the first error.
func (r *Runner) Run(ops []Op) error {
	for _, op := range ops {
		if err := r.Apply(op); err != nil {
			return err
		}
	}
	return nil
}

// History returns the runner's operation history ring.
func (r *Runner) History() *History {
	return r.history
}

// Live returns the payload address currently associated with id, and
// whether one exists.
func (r *Runner) Live(id int) (unsafe.Pointer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bp, ok := r.live[id]
	return bp, ok
}

// Check runs the allocator's self-consistency audit under the runner's
// lock, so it cannot race with an in-flight Apply.
func (r *Runner) Check() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc.Check()
}
