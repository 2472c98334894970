package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArena(t *testing.T) {
	_, err := NewArena(0)
	assert.Error(t, err)

	a, err := NewArena(4096)
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.Close()
}

func TestArenaSbrkGrowsMonotonically(t *testing.T) {
	a, err := NewArena(256)
	require.NoError(t, err)
	defer a.Close()

	p1, err := a.Sbrk(32)
	require.NoError(t, err)
	require.NotNil(t, p1)

	p2, err := a.Sbrk(32)
	require.NoError(t, err)
	assert.Equal(t, uintptr(32), uintptr(p2)-uintptr(p1))

	assert.Equal(t, a.Lo(), p1)
}

func TestArenaSbrkNeverMovesPriorRegions(t *testing.T) {
	a, err := NewArena(256)
	require.NoError(t, err)
	defer a.Close()

	p1, err := a.Sbrk(16)
	require.NoError(t, err)

	*(*byte)(p1) = 0x42

	_, err = a.Sbrk(16)
	require.NoError(t, err)

	assert.Equal(t, byte(0x42), *(*byte)(p1))
}

func TestArenaSbrkExhaustion(t *testing.T) {
	a, err := NewArena(16)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Sbrk(16)
	require.NoError(t, err)

	_, err = a.Sbrk(1)
	assert.ErrorIs(t, err, ErrArenaExhausted)
}

func TestArenaLoHi(t *testing.T) {
	a, err := NewArena(64)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, a.Lo(), a.Hi())

	_, err = a.Sbrk(8)
	require.NoError(t, err)
	assert.True(t, uintptr(a.Hi()) > uintptr(a.Lo()))
	assert.True(t, uintptr(a.Hi()) < uintptr(a.Lo())+8+1)
}
