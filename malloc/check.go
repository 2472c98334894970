package malloc

import (
	"unsafe"

	"github.com/go-alloc/segheap/util/logger"
)

// Check walks the heap and every free list looking for consistency
// violations, logging each one it finds through the shared logger. It
// returns true if the heap is consistent. Check is O(n^2) in the worst case
// (each heap-resident free block's list-membership check walks its bucket)
// and is meant for tests and diagnostics, not the allocation hot path.
func (a *Allocator) Check() bool {
	ok := true

	// Audit heap adjacency: walk blocks in physical order and confirm no
	// two free blocks are adjacent (coalescing should have merged them),
	// that every header matches its footer, and that every free block is
	// actually reachable from its bucket's list (an orphaned free block
	// would otherwise never be found by a lists-only audit).
	for bp := a.origin; sizeOf(loadWord(header(bp))) != 0; bp = nextBlock(bp) {
		hdr := loadWord(header(bp))
		ftr := loadWord(footer(bp))
		if hdr != ftr {
			logger.L.Errorf("malloc: header/footer mismatch at %p: header=%x footer=%x", bp, hdr, ftr)
			ok = false
		}

		if !allocOf(hdr) {
			next := nextBlock(bp)
			if sizeOf(loadWord(header(next))) != 0 && !allocOf(loadWord(header(next))) {
				logger.L.Errorf("malloc: uncoalesced adjacent free blocks at %p and %p", bp, next)
				ok = false
			}

			idx := bucketOf(sizeOf(hdr))
			if !a.inFreeList(bp, idx) {
				logger.L.Errorf("malloc: free block %p of size %d missing from list %d", bp, sizeOf(hdr), idx)
				ok = false
			}
		}
	}

	for idx := 0; idx < listCount; idx++ {
		if !a.checkList(idx) {
			ok = false
		}
	}

	return ok
}

// inFreeList reports whether bp appears on bucket idx's free list.
func (a *Allocator) inFreeList(bp unsafe.Pointer, idx int) bool {
	for cur := a.freeLists[idx]; cur != nil; cur = getLinkNext(cur) {
		if cur == bp {
			return true
		}
	}
	return false
}

// checkList audits a single bucket: every block on it must be free, sized
// for its bucket, and its forward/backward links must agree with each
// other.
func (a *Allocator) checkList(idx int) bool {
	ok := true
	var prev unsafe.Pointer

	lo := uintptr(a.provider.Lo())
	hi := uintptr(a.provider.Hi())

	for bp := a.freeLists[idx]; bp != nil; bp = getLinkNext(bp) {
		addr := uintptr(bp)
		if addr < lo || addr > hi {
			logger.L.Errorf("malloc: block %p in list %d falls outside heap bounds [%#x, %#x]", bp, idx, lo, hi)
			ok = false
		}

		hdr := loadWord(header(bp))
		if allocOf(hdr) {
			logger.L.Errorf("malloc: allocated block %p found on free list %d", bp, idx)
			ok = false
		}
		if bucketOf(sizeOf(hdr)) != idx {
			logger.L.Errorf("malloc: block %p of size %d misfiled in list %d", bp, sizeOf(hdr), idx)
			ok = false
		}
		if getLinkPrev(bp) != prev {
			logger.L.Errorf("malloc: broken backward link at %p in list %d", bp, idx)
			ok = false
		}
		prev = bp
	}

	return ok
}
