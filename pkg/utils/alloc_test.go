// pkg/utils/alloc_test.go

package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFree(t *testing.T) {
	base := AllocMemory()

	b := Alloc(10)
	require.Len(t, b, 10)
	require.Equal(t, 16, cap(b))
	require.Equal(t, base+16, AllocMemory())

	Free(b)
	require.Equal(t, base, AllocMemory())

	for _, size := range []int{1, 15, 16, 1000, 1 << 20} {
		b := Alloc(size)
		require.Len(t, b, size)
		Free(b)
	}
	require.Equal(t, base, AllocMemory())
}
