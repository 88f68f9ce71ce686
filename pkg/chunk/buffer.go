// pkg/chunk/buffer.go

package chunk

import (
	"AveIO/pkg/utils"
)

// Buffer is a fixed-capacity byte region with an apparent size and a
// read cursor. The backing storage is allocated once and overwritten
// in place on every reuse. It does no locking of its own: the owning
// Reader or Writer keeps background tasks away from it.
type Buffer struct {
	data []byte // len(data) is the capacity, fixed at allocation
	size int    // bytes currently valid, <= len(data)
	pos  int    // read cursor, <= size
}

func newBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic("capacity of buffer should > 0")
	}
	return &Buffer{data: utils.Alloc(capacity)}
}

func (b *Buffer) capacity() int { return len(b.data) }

func (b *Buffer) remaining() int { return b.size - b.pos }

func (b *Buffer) endReached() bool { return b.pos >= b.size }

// current returns the valid bytes after the cursor.
func (b *Buffer) current() []byte { return b.data[b.pos:b.size] }

func (b *Buffer) skip(n int) { b.pos += n }

// resetCursor is called exactly once per reuse, before the buffer is
// repopulated.
func (b *Buffer) resetCursor() { b.pos = 0 }

// fill copies p in and sets the apparent size. The cursor is left
// untouched, callers reset it explicitly.
func (b *Buffer) fill(p []byte) {
	if len(p) > len(b.data) {
		panic("fill exceeds buffer capacity")
	}
	b.size = copy(b.data, p)
}

// setSize sets the apparent size when bytes were stored directly into
// the backing slice by a background load.
func (b *Buffer) setSize(n int) {
	if n > len(b.data) {
		panic("apparent size exceeds buffer capacity")
	}
	b.size = n
}

func (b *Buffer) free() {
	if b.data != nil {
		utils.Free(b.data)
		b.data = nil
	}
	b.size = 0
	b.pos = 0
}
