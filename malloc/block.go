package malloc

import "unsafe"

// word is the allocator's natural metadata unit: a pointer-width unsigned
// integer, matching the reference's `uintptr_t` header/footer words.
type word = uintptr

const (
	wordSize = unsafe.Sizeof(word(0))
	pairSize = 2 * wordSize

	// minBlockSize is the smallest span a block can occupy: one header
	// word, two link words (forward/backward), one footer word.
	minBlockSize = 4 * wordSize

	allocBit word = 1
)

// pack ORs the allocated flag into size. Callers must ensure size is a
// multiple of pairSize so the low bits stay free for the flag.
func pack(size uintptr, alloc bool) word {
	w := word(size)
	if alloc {
		w |= allocBit
	}
	return w
}

func sizeOf(w word) uintptr {
	return uintptr(w) &^ (pairSize - 1)
}

func allocOf(w word) bool {
	return w&allocBit != 0
}

func loadWord(p unsafe.Pointer) word {
	return *(*word)(p)
}

func storeWord(p unsafe.Pointer, w word) {
	*(*word)(p) = w
}

// header returns the address of payload's header word.
func header(payload unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(payload, -int(wordSize))
}

// footer returns the address of payload's footer word, derived from the
// size currently recorded in its header.
func footer(payload unsafe.Pointer) unsafe.Pointer {
	size := sizeOf(loadWord(header(payload)))
	return unsafe.Add(payload, int(size)-int(pairSize))
}

// nextBlock returns the payload address of the block physically following
// payload, derived from payload's own header size.
func nextBlock(payload unsafe.Pointer) unsafe.Pointer {
	size := sizeOf(loadWord(header(payload)))
	return unsafe.Add(payload, int(size))
}

// prevBlock returns the payload address of the block physically preceding
// payload, derived from that block's footer (two words before payload).
func prevBlock(payload unsafe.Pointer) unsafe.Pointer {
	prevFooter := unsafe.Add(payload, -int(pairSize))
	size := sizeOf(loadWord(prevFooter))
	return unsafe.Add(payload, -int(size))
}

// linkNextAddr/linkPrevAddr address the two in-payload list-linkage words of a free
// block: word 0 is the forward link, word 1 is the backward link. Allocated
// blocks overwrite this area with user data.
func linkNextAddr(payload unsafe.Pointer) unsafe.Pointer {
	return payload
}

func linkPrevAddr(payload unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(payload, int(wordSize))
}

func getLinkNext(payload unsafe.Pointer) unsafe.Pointer {
	return wordToPtr(loadWord(linkNextAddr(payload)))
}

func getLinkPrev(payload unsafe.Pointer) unsafe.Pointer {
	return wordToPtr(loadWord(linkPrevAddr(payload)))
}

func setLinkNext(payload, v unsafe.Pointer) {
	storeWord(linkNextAddr(payload), ptrToWord(v))
}

func setLinkPrev(payload, v unsafe.Pointer) {
	storeWord(linkPrevAddr(payload), ptrToWord(v))
}

func ptrToWord(p unsafe.Pointer) word {
	return word(uintptr(p))
}

func wordToPtr(w word) unsafe.Pointer {
	return unsafe.Pointer(uintptr(w))
}

// ptrLess orders two payload addresses by raw address value, the ordering
// used by the address-ordered free-list buckets.
func ptrLess(a, b unsafe.Pointer) bool {
	return uintptr(a) < uintptr(b)
}

// memmove copies n bytes from src to dst, safe for overlapping regions in
// either direction (mirrors the reference's use of memmove rather than
// memcpy when shifting a payload backward during in-place-previous resize).
func memmove(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	dstSlice := unsafe.Slice((*byte)(dst), n)
	srcSlice := unsafe.Slice((*byte)(src), n)
	copy(dstSlice, srcSlice)
}
