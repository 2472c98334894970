package malloc

import "unsafe"

// noHint tells detach/attach to compute the bucket index from the block's
// own size instead of using a caller-supplied one.
const noHint = -1

// detach removes bp from its free list. hint is the bucket index if the
// caller already knows it, or noHint to have detach compute it from bp's
// size.
func (a *Allocator) detach(bp unsafe.Pointer, hint int) {
	idx := hint
	if idx == noHint {
		idx = bucketOf(sizeOf(loadWord(header(bp))))
	}

	pred := getLinkPrev(bp)
	succ := getLinkNext(bp)

	switch {
	case pred != nil && succ != nil:
		setLinkNext(pred, succ)
		setLinkPrev(succ, pred)
	case pred != nil && succ == nil:
		setLinkNext(pred, nil)
	case pred == nil && succ != nil:
		setLinkPrev(succ, nil)
		a.freeLists[idx] = succ
	default:
		a.freeLists[idx] = nil
	}
}

// attach inserts bp into its free list. FIFO buckets (idx <= orderBoundary)
// push at the head; address-ordered buckets (idx > orderBoundary) scan
// forward for the first address gap bp fits into.
func (a *Allocator) attach(bp unsafe.Pointer, hint int) {
	idx := hint
	if idx == noHint {
		idx = bucketOf(sizeOf(loadWord(header(bp))))
	}

	if idx > orderBoundary {
		a.attachOrdered(bp, idx)
		return
	}

	head := a.freeLists[idx]
	if head != nil {
		setLinkNext(bp, head)
		setLinkPrev(head, bp)
	} else {
		setLinkNext(bp, nil)
	}
	setLinkPrev(bp, nil)
	a.freeLists[idx] = bp
}

func (a *Allocator) attachOrdered(bp unsafe.Pointer, idx int) {
	curr := a.freeLists[idx]
	if curr == nil {
		setLinkNext(bp, nil)
		setLinkPrev(bp, nil)
		a.freeLists[idx] = bp
		return
	}

	next := getLinkNext(curr)
	for next != nil && ptrLess(next, bp) {
		curr = next
		next = getLinkNext(curr)
	}
	prev := getLinkPrev(curr)

	switch {
	case prev == nil && ptrLess(bp, curr):
		// Case 1: new head of the list.
		setLinkNext(bp, curr)
		setLinkPrev(curr, bp)
		setLinkPrev(bp, nil)
		a.freeLists[idx] = bp
	case next == nil && ptrLess(curr, bp):
		// Case 2: new tail of the list.
		setLinkNext(bp, nil)
		setLinkPrev(bp, curr)
		setLinkNext(curr, bp)
	case next == nil && ptrLess(bp, curr):
		// Case 3: second-to-last, inserted just before curr.
		setLinkNext(prev, bp)
		setLinkPrev(bp, prev)
		setLinkPrev(curr, bp)
	case next != nil && ptrLess(curr, bp) && ptrLess(bp, next):
		// Case 4: interior, between curr and next.
		setLinkNext(bp, next)
		setLinkPrev(bp, curr)
		setLinkNext(curr, bp)
		setLinkPrev(next, bp)
	}
}
