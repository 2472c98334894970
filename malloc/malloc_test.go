package malloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocReturnsUsablePayload(t *testing.T) {
	a := newTestAllocator(t, 4096)

	bp, err := a.Alloc(64)
	require.NoError(t, err)
	require.NotNil(t, bp)

	buf := unsafe.Slice((*byte)(bp), 64)
	for i := range buf {
		buf[i] = byte(i)
	}
	for i := range buf {
		assert.Equal(t, byte(i), buf[i])
	}
}

func TestAllocZeroSizeIsError(t *testing.T) {
	a := newTestAllocator(t, 4096)

	_, err := a.Alloc(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestAllocExhaustsProvider(t *testing.T) {
	a := newTestAllocator(t, 64)

	var lastErr error
	for i := 0; i < 1000; i++ {
		if _, err := a.Alloc(16); err != nil {
			lastErr = err
			break
		}
	}
	assert.Error(t, lastErr)
}

func TestFreeAllowsReuse(t *testing.T) {
	a := newTestAllocator(t, 4096)

	bp, err := a.Alloc(32)
	require.NoError(t, err)
	a.Free(bp)

	bp2, err := a.Alloc(32)
	require.NoError(t, err)
	assert.Equal(t, bp, bp2)
}

func TestFreeCoalescesAdjacentBlocks(t *testing.T) {
	a := newTestAllocator(t, 4096)

	first, err := a.Alloc(16)
	require.NoError(t, err)
	second, err := a.Alloc(16)
	require.NoError(t, err)
	firstSize := sizeOf(loadWord(header(first)))
	secondSize := sizeOf(loadWord(header(second)))

	a.Free(first)
	a.Free(second)

	require.True(t, a.Check())

	// A request big enough to need both blocks' combined space should
	// succeed without extending the heap further, proving they merged.
	big, err := a.Alloc(firstSize + secondSize - pairSize)
	require.NoError(t, err)
	assert.Equal(t, first, big)
}

func TestReallocShrinkInPlace(t *testing.T) {
	a := newTestAllocator(t, 4096)

	bp, err := a.Alloc(256)
	require.NoError(t, err)

	shrunk, err := a.Realloc(bp, 16)
	require.NoError(t, err)
	assert.Equal(t, bp, shrunk)
	assert.True(t, a.Check())
}

func TestReallocGrowsIntoFreeSuccessor(t *testing.T) {
	a := newTestAllocator(t, 4096)

	first, err := a.Alloc(16)
	require.NoError(t, err)
	second, err := a.Alloc(16)
	require.NoError(t, err)
	secondSize := sizeOf(loadWord(header(second)))

	a.Free(second)

	grown, err := a.Realloc(first, secondSize)
	require.NoError(t, err)
	assert.Equal(t, first, grown)
	assert.True(t, a.Check())
}

func TestReallocExtendsEpilogue(t *testing.T) {
	a := newTestAllocator(t, 1 << 16)

	// asize 128 consumes the whole 128-byte initial extension, so the
	// block's successor is the epilogue.
	bp, err := a.Alloc(112)
	require.NoError(t, err)

	grown, err := a.Realloc(bp, 4096)
	require.NoError(t, err)
	assert.Equal(t, bp, grown)
	assert.True(t, a.Check())
}

func TestReallocMergesWithFreePredecessor(t *testing.T) {
	a := newTestAllocator(t, 4096)

	first, err := a.Alloc(16)
	require.NoError(t, err)
	second, err := a.Alloc(16)
	require.NoError(t, err)
	// Keep second's successor allocated so growth cannot take the
	// merge-with-successor path and must fall through to this one.
	_, err = a.Alloc(16)
	require.NoError(t, err)
	firstSize := sizeOf(loadWord(header(first)))

	buf := unsafe.Slice((*byte)(second), 16)
	for i := range buf {
		buf[i] = byte(0xaa)
	}

	a.Free(first)

	grown, err := a.Realloc(second, firstSize)
	require.NoError(t, err)
	assert.Equal(t, first, grown)

	grownBuf := unsafe.Slice((*byte)(grown), 16)
	for i := range grownBuf {
		assert.Equal(t, byte(0xaa), grownBuf[i])
	}
	assert.True(t, a.Check())
}

func TestReallocFallsBackToCopy(t *testing.T) {
	a := newTestAllocator(t, 1 << 16)

	first, err := a.Alloc(16)
	require.NoError(t, err)
	_, err = a.Alloc(16) // keep first's successor allocated
	require.NoError(t, err)

	buf := unsafe.Slice((*byte)(first), 16)
	for i := range buf {
		buf[i] = byte(i + 1)
	}

	grown, err := a.Realloc(first, 4096)
	require.NoError(t, err)
	require.NotEqual(t, first, grown)

	grownBuf := unsafe.Slice((*byte)(grown), 16)
	for i := range grownBuf {
		assert.Equal(t, byte(i+1), grownBuf[i])
	}
	assert.True(t, a.Check())
}

func TestReallocNilActsAsAlloc(t *testing.T) {
	a := newTestAllocator(t, 4096)

	bp, err := a.Realloc(nil, 32)
	require.NoError(t, err)
	assert.NotNil(t, bp)
}

func TestReallocZeroActsAsFree(t *testing.T) {
	a := newTestAllocator(t, 4096)

	bp, err := a.Alloc(32)
	require.NoError(t, err)

	out, err := a.Realloc(bp, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}

// TestAllocExtendDoesNotCorruptSiblingFreeBlock regresses a bug where place
// unconditionally detached its block, including freshly extended blocks
// that were never on any list: detaching such a block read its
// uninitialized link words and could wipe out whatever else already lived
// in that block's bucket. Here a free block is left standing alone in
// bucket 2 (size 96), then a request that must extend the heap lands a new
// block in that same bucket (size 128, too big to split further against a
// 112-byte request). The pre-existing free block must survive untouched.
func TestAllocExtendDoesNotCorruptSiblingFreeBlock(t *testing.T) {
	a := newTestAllocator(t, 1<<16)

	first, err := a.Alloc(80) // asize 96: extends to 128, splits off a 32-byte remainder
	require.NoError(t, err)
	require.Equal(t, uintptr(96), sizeOf(loadWord(header(first))))

	_, err = a.Alloc(16) // asize 32: consumes the remainder, so first has no free neighbor
	require.NoError(t, err)

	a.Free(first)
	idx := bucketOf(sizeOf(loadWord(header(first))))
	require.Equal(t, 2, idx)
	require.Equal(t, first, a.freeLists[idx])

	_, err = a.Alloc(96) // asize 112: too big for first's list entry, forces a fresh extend
	require.NoError(t, err)

	assert.Equal(t, first, a.freeLists[idx])
	assert.Nil(t, getLinkNext(first))
	assert.True(t, a.Check())
}

func TestAdjustRequestFloor(t *testing.T) {
	assert.Equal(t, minBlockSize, adjustRequest(1))
}

func TestManyAllocFreeCyclesStayConsistent(t *testing.T) {
	a := newTestAllocator(t, 1 << 20)

	var live []unsafe.Pointer
	sizes := []uintptr{8, 16, 24, 40, 64, 128, 256, 512}

	for round := 0; round < 20; round++ {
		for _, s := range sizes {
			bp, err := a.Alloc(s)
			require.NoError(t, err)
			live = append(live, bp)
		}
		for i := 0; i < len(live); i += 2 {
			a.Free(live[i])
		}
		var kept []unsafe.Pointer
		for i := 1; i < len(live); i += 2 {
			kept = append(kept, live[i])
		}
		live = kept
	}

	require.True(t, a.Check())

	for _, bp := range live {
		a.Free(bp)
	}
	assert.True(t, a.Check())
}
