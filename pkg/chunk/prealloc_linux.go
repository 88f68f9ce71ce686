// pkg/chunk/prealloc_linux.go

package chunk

import (
	"os"

	"golang.org/x/sys/unix"
)

// prealloc reserves size bytes for the file on disk, so a long write
// session fails early instead of half way when space runs out.
func prealloc(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	err := unix.Fallocate(int(f.Fd()), 0, 0, size)
	if err == unix.EOPNOTSUPP {
		return f.Truncate(size)
	}
	return err
}
