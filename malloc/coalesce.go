package malloc

import "unsafe"

// coalesce merges bp with any free physical neighbor and returns the
// payload address of the merged block. It detaches every block it absorbs
// from its free list and leaves the result undetached; the caller is
// responsible for attaching the final block.
func (a *Allocator) coalesce(bp unsafe.Pointer) unsafe.Pointer {
	prevAlloc := allocOf(loadWord(footer(prevBlock(bp))))
	nextAlloc := allocOf(loadWord(header(nextBlock(bp))))
	size := sizeOf(loadWord(header(bp)))

	switch {
	case prevAlloc && nextAlloc:
		// Case 1: no free neighbor, nothing to merge.
		return bp

	case prevAlloc && !nextAlloc:
		// Case 2: merge with the following free block.
		next := nextBlock(bp)
		size += sizeOf(loadWord(header(next)))
		a.detach(next, noHint)
		storeWord(header(bp), pack(size, false))
		storeWord(footer(bp), pack(size, false))
		return bp

	case !prevAlloc && nextAlloc:
		// Case 3: merge with the preceding free block.
		prev := prevBlock(bp)
		size += sizeOf(loadWord(header(prev)))
		a.detach(prev, noHint)
		storeWord(footer(bp), pack(size, false))
		storeWord(header(prev), pack(size, false))
		return prev

	default:
		// Case 4: merge with both neighbors.
		prev := prevBlock(bp)
		next := nextBlock(bp)
		size += sizeOf(loadWord(header(prev))) + sizeOf(loadWord(header(next)))
		a.detach(prev, noHint)
		a.detach(next, noHint)
		storeWord(header(prev), pack(size, false))
		storeWord(footer(next), pack(size, false))
		return prev
	}
}
