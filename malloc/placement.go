package malloc

import (
	"unsafe"

	"github.com/pkg/errors"
)

// ErrInvalidSize is returned for zero-size requests, which have no defined
// payload to allocate.
var ErrInvalidSize = errors.New("malloc: invalid size")

// adjustRequest rounds a user payload size up to the allocator's block
// granularity: room for the header/footer pair, then up to the next
// multiple of pairSize, with a floor of minBlockSize so every block has
// room for its free-list links.
func adjustRequest(size uintptr) uintptr {
	asize := size + pairSize
	if asize < minBlockSize {
		return minBlockSize
	}
	return (asize + pairSize - 1) &^ (pairSize - 1)
}

// findFit scans buckets from bucketOf(asize) upward and returns the first
// block big enough to satisfy asize, detaching it from its free list before
// returning it. It returns nil if no block anywhere fits, leaving every
// list untouched.
func (a *Allocator) findFit(asize uintptr) unsafe.Pointer {
	for idx := bucketOf(asize); idx < listCount; idx++ {
		for bp := a.freeLists[idx]; bp != nil; bp = getLinkNext(bp) {
			if sizeOf(loadWord(header(bp))) >= asize {
				a.detach(bp, idx)
				return bp
			}
		}
	}
	return nil
}

// place installs bp as an allocated block of asize bytes. bp must already
// be off any free list: findFit detaches fit blocks, and heap extension
// never links its new block onto one. If the remainder left over is large
// enough to hold a free block of its own, it is split off, marked free and
// attached to its bucket; otherwise the whole block is consumed.
func (a *Allocator) place(bp unsafe.Pointer, asize uintptr) {
	total := sizeOf(loadWord(header(bp)))

	remain := total - asize
	if remain >= minBlockSize {
		storeWord(header(bp), pack(asize, true))
		storeWord(footer(bp), pack(asize, true))

		rem := nextBlock(bp)
		storeWord(header(rem), pack(remain, false))
		storeWord(footer(rem), pack(remain, false))
		a.attach(rem, noHint)
		return
	}

	storeWord(header(bp), pack(total, true))
	storeWord(footer(bp), pack(total, true))
}

// Alloc reserves a block able to hold size bytes and returns its payload
// address. It first searches the free lists; if none fits, it extends the
// heap by max(asize, initialChunk) and places the request there.
func (a *Allocator) Alloc(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}

	asize := adjustRequest(size)

	if bp := a.findFit(asize); bp != nil {
		a.place(bp, asize)
		return bp, nil
	}

	extendSize := asize
	if extendSize < initialChunk {
		extendSize = initialChunk
	}

	bp, err := a.extend(extendSize / wordSize)
	if err != nil {
		return nil, errors.Wrap(err, "malloc: failed to extend heap")
	}

	a.place(bp, asize)
	return bp, nil
}

// Free returns bp to the allocator, coalescing it with any free physical
// neighbor before attaching the result to its free list.
func (a *Allocator) Free(bp unsafe.Pointer) {
	if bp == nil {
		return
	}

	size := sizeOf(loadWord(header(bp)))
	storeWord(header(bp), pack(size, false))
	storeWord(footer(bp), pack(size, false))

	merged := a.coalesce(bp)
	a.attach(merged, noHint)
}

// Realloc resizes the block at bp to hold size bytes, preferring in-place
// growth (merging with a free successor, extending into the epilogue, or
// merging with a free predecessor) before falling back to allocate, copy
// and free. A nil bp behaves like Alloc; a zero size behaves like Free and
// returns nil.
func (a *Allocator) Realloc(bp unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	if bp == nil {
		return a.Alloc(size)
	}
	if size == 0 {
		a.Free(bp)
		return nil, nil
	}

	asize := adjustRequest(size)
	current := sizeOf(loadWord(header(bp)))

	if asize <= current {
		// Case 1: shrink in place, splitting off the remainder if it is
		// big enough to stand on its own.
		remain := current - asize
		if remain >= minBlockSize {
			storeWord(header(bp), pack(asize, true))
			storeWord(footer(bp), pack(asize, true))

			rem := nextBlock(bp)
			storeWord(header(rem), pack(remain, false))
			storeWord(footer(rem), pack(remain, false))
			a.attach(rem, noHint)
		}
		return bp, nil
	}

	next := nextBlock(bp)
	nextHdr := loadWord(header(next))

	if !allocOf(nextHdr) && current+sizeOf(nextHdr) >= asize {
		// Case 2: merge with a free successor. Deliberately deviates from
		// the reference here: it splits off a remainder only when one big
		// enough to hold free-list links actually exists, rather than
		// unconditionally writing a (possibly zero-size) leftover block.
		total := current + sizeOf(nextHdr)
		a.detach(next, noHint)

		remain := total - asize
		if remain >= minBlockSize {
			storeWord(header(bp), pack(asize, true))
			storeWord(footer(bp), pack(asize, true))

			rem := nextBlock(bp)
			storeWord(header(rem), pack(remain, false))
			storeWord(footer(rem), pack(remain, false))
			a.attach(rem, noHint)
		} else {
			storeWord(header(bp), pack(total, true))
			storeWord(footer(bp), pack(total, true))
		}
		return bp, nil
	}

	if sizeOf(nextHdr) == 0 {
		// Case 3: next is the epilogue; extend the heap in place.
		if _, err := a.extend((asize - current) / wordSize); err != nil {
			return nil, errors.Wrap(err, "malloc: failed to extend heap during realloc")
		}
		storeWord(header(bp), pack(asize, true))
		storeWord(footer(bp), pack(asize, true))
		return bp, nil
	}

	prev := prevBlock(bp)
	prevHdr := loadWord(header(prev))

	if !allocOf(prevHdr) && current+sizeOf(prevHdr) >= asize {
		// Case 4: merge with a free predecessor, sliding the payload
		// backward. prev < bp always, so a forward byte copy never
		// clobbers data it hasn't read yet.
		total := current + sizeOf(prevHdr)
		a.detach(prev, noHint)

		memmove(header(prev), header(bp), current)
		storeWord(header(prev), pack(total, true))
		storeWord(footer(prev), pack(total, true))
		return prev, nil
	}

	// Case 5: no in-place option; allocate, copy the old payload, free
	// the original block.
	newBp, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	copySize := current - pairSize
	memmove(newBp, bp, copySize)
	a.Free(bp)
	return newBp, nil
}
