// pkg/chunk/bwlimit.go

package chunk

import (
	"github.com/juju/ratelimit"
)

// bwlimit throttles the background prefetch and flush paths. The
// in-memory copies between caller and buffers are never limited.
type bwlimit struct {
	up   *ratelimit.Bucket
	down *ratelimit.Bucket
}

func newBwlimit(up, down int64) bwlimit {
	var bw bwlimit
	if up > 0 {
		// keep some headroom for filesystem metadata traffic
		bw.up = ratelimit.NewBucketWithRate(float64(up)*0.85, up)
	}
	if down > 0 {
		bw.down = ratelimit.NewBucketWithRate(float64(down)*0.85, down)
	}
	return bw
}

func (bw *bwlimit) waitUp(n int) {
	if bw.up != nil {
		bw.up.Wait(int64(n))
	}
}

func (bw *bwlimit) waitDown(n int) {
	if bw.down != nil {
		bw.down.Wait(int64(n))
	}
}
