// pkg/utils/alloc.go

package utils

import (
	"sync"
	"sync/atomic"
)

var used int64
var pools [33]sync.Pool // from 1 byte up to 4G

func init() {
	for i := range pools {
		size := 1 << i
		pools[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
}

func powerOf2(s int) int {
	var bits int
	var p = 1
	for p < s {
		bits++
		p <<= 1
	}
	return bits
}

// Alloc returns a byte slice of the wanted size, backed by a pooled
// block of the next power of two.
func Alloc(size int) []byte {
	b := *pools[powerOf2(size)].Get().(*[]byte)
	atomic.AddInt64(&used, int64(cap(b)))
	return b[:size]
}

// Free returns a slice obtained from Alloc back to its pool.
func Free(b []byte) {
	b = b[:cap(b)]
	if len(b) == 0 || len(b)&(len(b)-1) != 0 {
		panic("size of freed slice is not power of 2")
	}
	atomic.AddInt64(&used, -int64(cap(b)))
	pools[powerOf2(len(b))].Put(&b)
}

// AllocMemory returns the number of bytes currently handed out by Alloc.
func AllocMemory() int64 {
	return atomic.LoadInt64(&used)
}
