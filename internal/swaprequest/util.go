package swaprequest

import (
	"time"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// checkpointDir (RunUtil's parameter) and nowMs are injected rather than
// looked up directly so tests
// can pin deterministic paths/timestamps; the util lane (spec.md §4.7) is
// the one place a checkpoint name actually needs wall-clock time.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// RunUtil carries out one non-key-bound admin request (spec.md §4.6 item 4:
// "for UTILS (compact-range, flush, checkpoint, stats): direct engine
// call"), dispatched outside the GET/PUT/DEL/ITERATE batching scheme on the
// dedicated util lane (spec.md §4.7).
func (ex *Executor) RunUtil(r *Request, checkpointDir string) {
	switch r.Util {
	case UtilCompactRange:
		r.Err = ex.Engine.CompactRange()
	case UtilFlush:
		// LMDB has no per-CF flush distinct from its own durability
		// guarantees; CompactRange is likewise a no-op for the same
		// reason (see internal/rocks/compaction.go), so flush degrades
		// to the same direct no-op call.
		r.Err = ex.Engine.CompactRange()
	case UtilCheckpoint:
		_, err := ex.Engine.Checkpoint(checkpointDir, nowMs())
		r.Err = err
	case UtilStats:
		_, err := ex.Engine.Stats()
		r.Err = err
	default:
		r.Err = swaperr.ErrUnsupportedUtil
	}
}
