package malloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/go-alloc/segheap/mem"
)

// ErrNotInitialized names the state of an Allocator that New has not
// bootstrapped. No method of Allocator returns it: they do not check for a
// zero-value Allocator, which is not usable.
var ErrNotInitialized = errors.New("malloc: allocator not initialized")

// initialChunk is the minimum amount requested from the memory provider
// when no existing free block satisfies an allocation (128 bytes in the
// reference, a small power of two picked to amortize sbrk calls).
const initialChunk = 128

// Allocator is the block allocator. Its zero value is not ready for use;
// construct one with New. All state is unsynchronized: concurrent callers
// must serialize access with an external mutex (see package trace for the
// pattern).
type Allocator struct {
	provider  mem.Provider
	origin    unsafe.Pointer // prologue's payload address, the heap origin
	freeLists [listCount]unsafe.Pointer
}

// New installs the prologue, epilogue and empty free lists on top of p.
// p must be freshly constructed; New performs the bootstrap sbrk request
// itself.
func New(p mem.Provider) (*Allocator, error) {
	a := &Allocator{provider: p}

	base, err := p.Sbrk(4 * wordSize)
	if err != nil {
		return nil, errors.Wrap(err, "malloc: failed to reserve initial heap")
	}

	storeWord(base, 0) // alignment padding
	prologueHdr := unsafe.Add(base, int(wordSize))
	prologueFtr := unsafe.Add(base, int(2*wordSize))
	epilogueHdr := unsafe.Add(base, int(3*wordSize))

	storeWord(prologueHdr, pack(pairSize, true))
	storeWord(prologueFtr, pack(pairSize, true))
	storeWord(epilogueHdr, pack(0, true))

	a.origin = unsafe.Add(base, int(2*wordSize))

	return a, nil
}

// extend rounds words up to the next even count, requests that many words
// from the memory provider, and reinterprets the returned region as a
// fresh free block followed by a new epilogue header. It does not coalesce
// the new block with any predecessor; callers decide.
func (a *Allocator) extend(words uintptr) (unsafe.Pointer, error) {
	if words%2 != 0 {
		words++
	}
	size := words * wordSize

	bp, err := a.provider.Sbrk(size)
	if err != nil {
		return nil, err
	}

	storeWord(header(bp), pack(size, false))
	storeWord(footer(bp), pack(size, false))
	storeWord(header(nextBlock(bp)), pack(0, true))

	return bp, nil
}
