// pkg/chunk/config.go

package chunk

import (
	"AveIO/pkg/utils"
)

var logger = utils.GetLogger("aveio")

// DefaultBufferSize is large enough to approach the sequential
// bandwidth of common storage without holding much memory.
const DefaultBufferSize = 1 << 20

// Config for readers and writers.
type Config struct {
	BufferSize    int   // size of each of the two internal buffers, in bytes
	UploadLimit   int64 // bandwidth limit for flushes in bytes per second, 0 means unlimited
	DownloadLimit int64 // bandwidth limit for prefetches in bytes per second, 0 means unlimited
}

func fixConfig(config *Config) Config {
	var c Config
	if config != nil {
		c = *config
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}
