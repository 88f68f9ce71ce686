// pkg/chunk/prealloc_other.go

//go:build !linux

package chunk

import "os"

func prealloc(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	return f.Truncate(size)
}
