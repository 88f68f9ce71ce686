// pkg/chunk/writer_test.go

package chunk

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempTarget(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.bin")
}

func TestWriterScenario(t *testing.T) {
	// 4-byte buffers, writes of 6 and 3 bytes: buffer A flushes in the
	// background after the first four bytes, Complete forces the rest out
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.True(t, w.IsOpen())
	require.Equal(t, path, w.Path())

	require.NoError(t, w.WriteBytes([]byte("ABCDEF")))
	require.NoError(t, w.WriteBytes([]byte("GHI")))
	require.EqualValues(t, 9, w.TotalStored())
	require.NoError(t, w.Complete())
	require.False(t, w.IsOpen())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGHI", string(got))
}

func TestWriterReaderRoundTrip(t *testing.T) {
	data := make([]byte, 1<<20+13337)
	rand.New(rand.NewSource(1)).Read(data)
	path := tempTarget(t)

	// odd buffer size so flush boundaries never align with the writes
	w := NewWriter(&Config{BufferSize: 1000})
	defer w.Close()
	require.NoError(t, w.Begin(path, int64(len(data)), Truncate))
	granularities := []int{1, 7, 100, 999, 4096}
	for i, off := 0, 0; off < len(data); i++ {
		n := granularities[i%len(granularities)]
		if off+n > len(data) {
			n = len(data) - off
		}
		require.NoError(t, w.WriteBytes(data[off:off+n]))
		off += n
	}
	require.NoError(t, w.Complete())

	r := NewReader(&Config{BufferSize: 512})
	defer r.Close()
	require.NoError(t, r.Begin(path))
	var sink bytes.Buffer
	_, err := io.Copy(&sink, r)
	require.NoError(t, err)
	require.NoError(t, r.End())
	require.Equal(t, data, sink.Bytes())
}

func TestWriterReserve(t *testing.T) {
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.NoError(t, w.Begin(path, 4096, Truncate))

	// the size on disk reflects the reservation, not the bytes stored
	require.EqualValues(t, 4096, w.FileSizeOnDisk())
	require.NoError(t, w.WriteBytes([]byte("0123456789")))
	require.EqualValues(t, 10, w.TotalStored())
	require.NoError(t, w.Complete())
	require.EqualValues(t, -1, w.FileSizeOnDisk())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 4096)
	require.Equal(t, "0123456789", string(got[:10]))
}

func TestWriterAppend(t *testing.T) {
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.NoError(t, w.WriteBytes([]byte("hello, ")))
	require.NoError(t, w.Complete())

	require.NoError(t, w.Begin(path, 0, Append))
	require.NoError(t, w.WriteBytes([]byte("world")))
	require.NoError(t, w.Complete())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello, world", string(got))
}

func TestOverwriteHeaderFirst(t *testing.T) {
	// overwriting at offset 0 before anything was buffered is a plain
	// buffered write, the header-then-body pattern
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 8})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.NoError(t, w.OverwriteAt(0, []byte("HDR")))
	require.EqualValues(t, 3, w.TotalStored())
	require.NoError(t, w.WriteBytes([]byte("-body")))
	require.NoError(t, w.Complete())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "HDR-body", string(got))
}

func TestOverwriteInMiddle(t *testing.T) {
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.NoError(t, w.WriteBytes([]byte("AAAABBBB"))) // both buffers flushed
	require.NoError(t, w.WriteBytes([]byte("CC")))       // partial, still buffered

	// forces the partial buffer out, patches, and restores the write
	// pointer so appending continues where it left off
	require.NoError(t, w.OverwriteAt(2, []byte("xy")))
	require.NoError(t, w.WriteBytes([]byte("ZZ")))
	require.NoError(t, w.Complete())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "AAxyBBBBCCZZ", string(got))
}

func TestOverwriteAtHighWater(t *testing.T) {
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.NoError(t, w.WriteBytes([]byte("AB")))

	// offset equal to the flushed high-water mark is still in range
	require.NoError(t, w.OverwriteAt(2, []byte("CD")))
	require.NoError(t, w.Complete())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ABCD", string(got))
}

func TestOverwriteBeyondHighWater(t *testing.T) {
	path := tempTarget(t)
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.NoError(t, w.WriteBytes([]byte("AB")))
	require.Panics(t, func() { _ = w.OverwriteAt(100, []byte("XX")) })
}

func TestWriterMisuse(t *testing.T) {
	w := NewWriter(&Config{BufferSize: 4})
	defer w.Close()
	require.Panics(t, func() { _ = w.WriteBytes([]byte("x")) })
	require.Panics(t, func() { _ = w.Complete() })
	require.False(t, w.IsOpen())
	require.EqualValues(t, -1, w.FileSizeOnDisk())

	path := tempTarget(t)
	require.NoError(t, w.Begin(path, 0, Truncate))
	require.Panics(t, func() { _ = w.Begin(path, 0, Truncate) })
	require.NoError(t, w.Complete())
	require.Panics(t, func() { _ = w.Complete() })
}

func TestWriterRateLimited(t *testing.T) {
	data := make([]byte, 64<<10)
	rand.New(rand.NewSource(2)).Read(data)
	path := tempTarget(t)

	w := NewWriter(&Config{BufferSize: 4096, UploadLimit: 1 << 30})
	defer w.Close()
	require.NoError(t, w.Begin(path, 0, Truncate))
	_, err := io.Copy(w, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, w.Complete())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, got)
}
