package malloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-alloc/segheap/mem"
)

func newTestAllocator(t *testing.T, capacity uintptr) *Allocator {
	t.Helper()

	p, err := mem.NewArena(capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	a, err := New(p)
	require.NoError(t, err)
	return a
}
