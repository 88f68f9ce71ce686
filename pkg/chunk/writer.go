// pkg/chunk/writer.go

package chunk

import (
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"AveIO/pkg/utils"
)

// OpenMode controls how Begin opens the target file.
type OpenMode int

const (
	// Truncate discards any existing content.
	Truncate OpenMode = iota
	// Append keeps existing content and continues at the end.
	Append
)

// Writer accumulates bytes into one of two buffers. When one fills up
// it is handed to a background task that flushes it to disk while the
// caller keeps filling the other, so the caller only blocks when the
// disk falls behind.
//
// A Writer is driven by one goroutine; it manages its background
// flushers itself and is not safe for concurrent use.
type Writer struct {
	bufSize int
	bw      bwlimit

	path  string
	file  *os.File
	began bool

	neverBuffered bool
	totalStored   int64 // bytes ever accepted by WriteBytes, including bytes later overwritten

	isA        bool
	fillOffset int // next write position inside the active buffer
	buffA      *Buffer
	buffB      *Buffer

	flushA    *task // in-flight flush of buffer A, if any
	flushB    *task
	lastFlush *task      // most recently scheduled flush, for ordering
	fileMu    sync.Mutex // serializes write/seek syscalls on the handle
}

// NewWriter allocates a writer with its two buffers. The buffers live
// until Close.
func NewWriter(config *Config) *Writer {
	c := fixConfig(config)
	return &Writer{
		bufSize: c.BufferSize,
		bw:      newBwlimit(c.UploadLimit, c.DownloadLimit),
		buffA:   newBuffer(c.BufferSize),
		buffB:   newBuffer(c.BufferSize),
	}
}

// Begin opens (or creates) the target file and reserves reserveBytes
// for it on disk, so that running out of space fails here instead of
// in the middle of the session. A failed reservation is reported as
// insufficient space, see IsNoSpace.
func (w *Writer) Begin(path string, reserveBytes int64, mode OpenMode) error {
	if w.began {
		panic("chunk: Begin while a write session is open")
	}
	flag := os.O_WRONLY | os.O_CREATE
	if mode == Truncate || !utils.Exists(path) {
		flag |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	if mode == Append {
		if _, err = f.Seek(0, io.SeekEnd); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "seek to end of %s", path)
		}
	}
	if err = prealloc(f, reserveBytes); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "reserve %d bytes for %s", reserveBytes, path)
	}
	w.path = path
	w.file = f
	w.neverBuffered = true
	w.totalStored = 0
	w.isA = true
	w.fillOffset = 0
	w.lastFlush = nil
	w.began = true
	logger.Debugf("writing %s: reserved %d bytes, buffers of %d", path, reserveBytes, w.bufSize)
	return nil
}

// WriteBytes adds bytes to the active buffer. When the buffer becomes
// exactly full its flush is scheduled in the background and filling
// continues in the other buffer.
func (w *Writer) WriteBytes(p []byte) error {
	if !w.began {
		panic("chunk: write before Begin")
	}
	w.neverBuffered = false
	w.totalStored += int64(len(p))

	for len(p) > 0 {
		// The active buffer may still be flushing from its previous
		// round; it must not be touched until that finished.
		if err := w.joinFlush(w.active()); err != nil {
			return err
		}
		buff := w.active()
		available := w.bufSize - w.fillOffset
		numToWrite := utils.Min(len(p), available)
		copy(buff.data[w.fillOffset:], p[:numToWrite])

		if numToWrite < available { // "less than", NOT "less or equal"
			w.fillOffset += numToWrite
			return nil
		}

		w.flush(buff, w.bufSize)
		w.isA = !w.isA
		w.fillOffset = 0
		p = p[numToWrite:]
	}
	return nil
}

// Write implements io.Writer over the session.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.WriteBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// OverwriteAt rewrites bytes somewhere in the already-flushed part of
// the file. This is the slow path: every pending flush is joined and
// any partial buffer is forced out first, so the bytes on disk are
// exactly the bytes written so far. The file pointer is put back where
// it was, and buffered writing continues appending there.
//
// Writing the header of a file before any body bytes exist does not
// need the seek dance: if nothing was ever buffered and both the file
// pointer and offset are zero, this degenerates into plain WriteBytes.
//
// Overwriting past the flushed high-water mark is a usage error.
func (w *Writer) OverwriteAt(offsetInFile int64, p []byte) error {
	if !w.began {
		panic("chunk: overwrite before Begin")
	}
	if err := w.flushAll(); err != nil {
		return err
	}
	// All tasks are joined, the foreground owns the handle again.
	highWater, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "locate write pointer")
	}
	if w.neverBuffered && highWater == 0 && offsetInFile == 0 {
		return w.WriteBytes(p)
	}
	if offsetInFile > highWater {
		panic("chunk: overwrite past the flushed high-water mark")
	}

	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	if _, err = w.file.Seek(offsetInFile, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to %d", offsetInFile)
	}
	if _, err = w.file.Write(p); err != nil {
		return errors.Wrapf(err, "overwrite %d bytes at %d", len(p), offsetInFile)
	}
	if _, err = w.file.Seek(highWater, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek back to %d", highWater)
	}
	return nil
}

// Complete flushes whatever is still buffered, waits for the
// background writes to finish and closes the file. Calling it twice
// without an intervening Begin is a usage error.
func (w *Writer) Complete() error {
	if !w.began {
		panic("chunk: Complete before Begin")
	}
	err := w.flushAll()
	if e := w.file.Close(); err == nil {
		err = e
	}
	w.file = nil
	w.path = ""
	w.began = false
	return err
}

// Close finishes any open session and releases the buffers. The
// writer must not be used afterwards.
func (w *Writer) Close() error {
	var err error
	if w.began {
		err = w.Complete()
	}
	w.buffA.free()
	w.buffB.free()
	return err
}

// Path returns the path of the file being written, or "" when closed.
func (w *Writer) Path() string { return w.path }

// IsOpen reports whether a write session is open.
func (w *Writer) IsOpen() bool { return w.began }

// TotalStored returns the bytes ever accepted by WriteBytes in this
// session, independent of what reached the disk already.
func (w *Writer) TotalStored() int64 { return w.totalStored }

// FileSizeOnDisk returns the current size of the target file. With a
// reservation it reflects the reserved size, not the bytes written.
func (w *Writer) FileSizeOnDisk() int64 {
	if !w.began {
		return -1
	}
	st, err := os.Stat(w.path)
	if err != nil {
		return -1
	}
	return st.Size()
}

// IsNoSpace reports whether err was caused by the disk running out of
// space, e.g. while reserving the file size in Begin.
func IsNoSpace(err error) bool {
	return errors.Is(errors.Cause(err), syscall.ENOSPC)
}

func (w *Writer) active() *Buffer {
	if w.isA {
		return w.buffA
	}
	return w.buffB
}

func (w *Writer) joinFlush(buff *Buffer) error {
	if buff == w.buffA {
		err := w.flushA.join()
		w.flushA = nil
		return err
	}
	err := w.flushB.join()
	w.flushB = nil
	return err
}

// flush schedules an asynchronous write of the first count bytes of
// buff. The task owns its view of the bytes: the foreground will not
// touch buff again before joining it. Each flush first joins the one
// scheduled before it, keeping the bytes on disk in buffer order even
// when both buffers are in flight.
func (w *Writer) flush(buff *Buffer, count int) {
	buff.setSize(count)
	data := buff.data[:count]
	file := w.file
	bw := &w.bw
	mu := &w.fileMu
	prev := w.lastFlush
	t := spawn(func() error {
		if err := prev.join(); err != nil {
			return err
		}
		bw.waitUp(len(data))
		mu.Lock()
		defer mu.Unlock()
		if _, err := file.Write(data); err != nil {
			return errors.Wrap(err, "flush buffer")
		}
		return nil
	})
	w.lastFlush = t
	if buff == w.buffA {
		w.flushA = t
	} else {
		w.flushB = t
	}
}

// flushAll forces out whatever remains in the active buffer and joins
// both background tasks, leaving the writer with empty buffers and the
// file reflecting everything written so far.
func (w *Writer) flushAll() error {
	if w.fillOffset > 0 {
		if err := w.joinFlush(w.active()); err != nil {
			return err
		}
		w.flush(w.active(), w.fillOffset)
	}
	errA := w.flushA.join()
	errB := w.flushB.join()
	w.flushA = nil
	w.flushB = nil
	w.lastFlush = nil
	w.fillOffset = 0
	w.isA = true
	if errA != nil {
		return errA
	}
	return errB
}
