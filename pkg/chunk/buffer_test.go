// pkg/chunk/buffer_test.go

package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferLifecycle(t *testing.T) {
	b := newBuffer(8)
	defer b.free()
	require.Equal(t, 8, b.capacity())
	require.True(t, b.endReached())

	b.fill([]byte("hello"))
	require.Equal(t, 5, b.remaining())
	require.Equal(t, "hello", string(b.current()))

	b.skip(2)
	require.Equal(t, 3, b.remaining())
	require.Equal(t, "llo", string(b.current()))
	require.False(t, b.endReached())

	b.skip(3)
	require.True(t, b.endReached())
	require.Zero(t, b.remaining())

	b.resetCursor()
	require.Equal(t, 5, b.remaining())
}

func TestBufferFillKeepsCursor(t *testing.T) {
	b := newBuffer(8)
	defer b.free()
	b.fill([]byte("abcdef"))
	b.skip(4)

	// a fill never resets the cursor, reuse does that explicitly
	b.fill([]byte("xyzxyz"))
	require.Equal(t, 2, b.remaining())
	require.Equal(t, "yz", string(b.current()))
}

func TestBufferPreconditions(t *testing.T) {
	b := newBuffer(4)
	defer b.free()
	require.Panics(t, func() { b.fill(make([]byte, 5)) })
	require.Panics(t, func() { b.setSize(5) })
	require.NotPanics(t, func() { b.setSize(4) })
	require.Panics(t, func() { newBuffer(0) })
}
