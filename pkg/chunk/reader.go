// pkg/chunk/reader.go

package chunk

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"AveIO/pkg/utils"
)

// ErrOutOfRange is returned when a read asks for more bytes than
// remain in the file.
var ErrOutOfRange = errors.New("requesting more bytes than there remains to be read")

// Reader streams a file sequentially through two alternating buffers.
// The caller drains one buffer while a background task prefetches the
// next chunk into the other, so the caller only blocks when the disk
// falls behind.
//
// A Reader is driven by one goroutine; it manages its single
// background loader itself and is not safe for concurrent use.
type Reader struct {
	chunkSize int
	bw        bwlimit

	file     *os.File
	fileSize int64
	consumed int64 // bytes handed to the caller so far

	numChunks     int
	lastChunkSize int
	readingChunk  int // chunk currently being drained, 0-based

	isA   bool
	buffA *Buffer
	buffB *Buffer

	load *task // at most one in-flight prefetch
}

// NewReader allocates a reader with its two chunk buffers. The buffers
// live until Close.
func NewReader(config *Config) *Reader {
	c := fixConfig(config)
	return &Reader{
		chunkSize: c.BufferSize,
		bw:        newBwlimit(c.UploadLimit, c.DownloadLimit),
		buffA:     newBuffer(c.BufferSize),
		buffB:     newBuffer(c.BufferSize),
	}
}

// Begin opens the file and loads the first chunk. The first prefetch
// is joined right away since there is nothing to consume yet; the
// second one, if the file spans more than one chunk, runs overlapped.
func (r *Reader) Begin(path string) error {
	_ = r.End() // just in case

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "stat %s", path)
	}
	r.file = f
	r.fileSize = st.Size()
	r.consumed = 0

	cs := int64(r.chunkSize)
	r.numChunks = int(r.fileSize / cs)
	r.lastChunkSize = int(r.fileSize % cs)
	// numChunks includes the last, possibly short, chunk.
	if r.lastChunkSize > 0 {
		r.numChunks++
	} else if r.fileSize > 0 {
		r.lastChunkSize = r.chunkSize
	}
	logger.Debugf("reading %s: %d bytes in %d chunks of %d", path, r.fileSize, r.numChunks, r.chunkSize)

	r.prefetch(r.buffA, 0)
	if err = r.load.join(); err != nil {
		_ = f.Close()
		r.file = nil
		return err
	}
	r.load = nil
	if r.numChunks > 1 {
		r.prefetch(r.buffB, 1)
	}
	r.isA = true
	r.readingChunk = 0
	return nil
}

// End joins any outstanding load and closes the file. Safe to call on
// an already-closed session.
func (r *Reader) End() error {
	err := r.load.join()
	r.load = nil
	if r.file != nil {
		if e := r.file.Close(); err == nil {
			err = e
		}
		r.file = nil
	}
	return err
}

// Close ends the session and releases both buffers. The reader must
// not be used afterwards.
func (r *Reader) Close() error {
	err := r.End()
	r.buffA.free()
	r.buffB.free()
	return err
}

// HasMore reports whether any bytes are left to read. It is re-derived
// on every call: the apparent size of the active buffer changes when a
// background load is set up.
func (r *Reader) HasMore() bool {
	isLastChunk := r.readingChunk >= r.numChunks-1
	return !isLastChunk || !r.current().endReached()
}

// FileSize returns the byte size of the file of the current session.
func (r *Reader) FileSize() int64 { return r.fileSize }

// RemainingTotal returns how many bytes are left to read in the file.
func (r *Reader) RemainingTotal() int64 { return r.fileSize - r.consumed }

// RemainingInBuffer returns how many bytes are left in the buffer
// currently being drained.
func (r *Reader) RemainingInBuffer() int { return r.current().remaining() }

// ReadBytes fills p entirely, swapping buffers under the hood as chunk
// boundaries are crossed. Asking for more bytes than remain in the
// file fails with ErrOutOfRange without consuming anything.
func (r *Reader) ReadBytes(p []byte) error {
	return r.consume(p, len(p))
}

// Skip consumes and discards n bytes.
func (r *Reader) Skip(n int) error {
	return r.consume(nil, n)
}

func (r *Reader) consume(dst []byte, n int) error {
	if r.file == nil {
		panic("chunk: read before Begin")
	}
	if int64(n) > r.fileSize-r.consumed {
		return ErrOutOfRange
	}
	total := n
	for n > 0 {
		buff := r.current()
		numCopy := utils.Min(n, buff.remaining())
		if dst != nil {
			copy(dst[:numCopy], buff.current())
			dst = dst[numCopy:]
		}
		buff.skip(numCopy)
		n -= numCopy

		if buff.endReached() {
			r.focusNextBuffer()
			if r.readingChunk < r.numChunks-1 {
				// Refill the buffer that was just vacated, two chunks
				// ahead of the one now being drained.
				if err := r.prefetch(r.other(), r.readingChunk+1); err != nil {
					return err
				}
			} else {
				// Draining the final chunk next: its load must have
				// finished before any byte of it is handed out.
				if err := r.load.join(); err != nil {
					return err
				}
			}
		}
	}
	r.consumed += int64(total)
	return nil
}

// Read implements io.Reader over the session. Unlike ReadBytes it
// stops at the end of the file and reports io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	if !r.HasMore() {
		return 0, io.EOF
	}
	n := len(p)
	if rem := r.fileSize - r.consumed; int64(n) > rem {
		n = int(rem)
	}
	if err := r.ReadBytes(p[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	var b [1]byte
	err := r.ReadBytes(b[:])
	return b[0], err
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	var b [2]byte
	if err := r.ReadBytes(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := r.ReadBytes(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := r.ReadBytes(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadString reads a fixed-length string of numChars bytes.
func (r *Reader) ReadString(numChars int) (string, error) {
	b := make([]byte, numChars)
	if err := r.ReadBytes(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) current() *Buffer {
	if r.isA {
		return r.buffA
	}
	return r.buffB
}

func (r *Reader) other() *Buffer {
	if r.isA {
		return r.buffB
	}
	return r.buffA
}

func (r *Reader) focusNextBuffer() {
	if !r.HasMore() {
		return
	}
	r.isA = !r.isA
	r.readingChunk++
}

// prefetch schedules a background load of the given chunk into buff.
// The single background slot is freed first, so the error of joining
// the previous load, which targeted the buffer that just became
// active, surfaces here. Cursor and apparent size are set on the
// foreground: HasMore may look at them while the load still runs.
func (r *Reader) prefetch(buff *Buffer, chunkIndex int) error {
	if err := r.load.join(); err != nil {
		return err
	}
	r.load = nil

	size := r.chunkSize
	if chunkIndex == r.numChunks-1 {
		size = r.lastChunkSize
	}
	if r.numChunks == 0 {
		size = 0
	}
	buff.resetCursor()
	buff.setSize(size)
	if size == 0 {
		return nil
	}

	// The goroutine gets its own view of the destination bytes; it
	// never reads session state the foreground keeps mutating.
	file := r.file
	bw := &r.bw
	dst := buff.data[:size]
	r.load = spawn(func() error {
		if _, err := io.ReadFull(file, dst); err != nil {
			return errors.Wrapf(err, "prefetch chunk %d", chunkIndex)
		}
		bw.waitDown(len(dst))
		return nil
	})
	return nil
}
