package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenParseRoundTrips(t *testing.T) {
	ops := []Op{
		{Kind: Alloc, ID: 0, Size: 16},
		{Kind: Alloc, ID: 1, Size: 32},
		{Kind: Realloc, ID: 0, Size: 64},
		{Kind: Free, ID: 1},
	}

	out, err := Write(ops)
	require.NoError(t, err)

	got, err := Parse(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, ops, got)
}
