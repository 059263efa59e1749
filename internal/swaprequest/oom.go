package swaprequest

import (
	"sync/atomic"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"
)

// MemoryGauge is the "estimated in-flight memory gauge" spec.md §4.6's
// EXEC_OOM_CHECK consults before issuing reads/writes: one process-wide
// atomic counter of bytes currently committed to in-flight swap payloads,
// checked against a configured limit (SPEC_FULL.md's DESIGN NOTES call for
// folding process-wide mutable state like this into a single runtime
// singleton; MemoryGauge is that datum for the executor).
type MemoryGauge struct {
	limit    int64
	inFlight int64
}

func NewMemoryGauge(limitBytes int64) *MemoryGauge {
	return &MemoryGauge{limit: limitBytes}
}

// Admit reserves n bytes if doing so would not exceed the limit, returning
// whether the reservation succeeded. A non-positive limit disables the
// check (unlimited).
func (g *MemoryGauge) Admit(n int64) bool {
	if g == nil || g.limit <= 0 {
		return true
	}
	for {
		cur := atomic.LoadInt64(&g.inFlight)
		if cur+n > g.limit {
			return false
		}
		if atomic.CompareAndSwapInt64(&g.inFlight, cur, cur+n) {
			return true
		}
	}
}

// Release gives back n bytes reserved by a prior successful Admit, called
// once a request's payload has been merged or failed.
func (g *MemoryGauge) Release(n int64) {
	if g == nil {
		return
	}
	atomic.AddInt64(&g.inFlight, -n)
}

// InFlight reports the current reservation, for stats/INFO.
func (g *MemoryGauge) InFlight() int64 {
	if g == nil {
		return 0
	}
	return atomic.LoadInt64(&g.inFlight)
}

// estimatePayload is the executor's "estimated payload size" input to
// Admit: sum of key+value byte lengths the request is about to move
// through rocks, the same quantity RIOEstimatePayloadSize computes in
// ctrip_swap_exec.c.
func estimatePayload(kvs []swapdata.KV) int64 {
	var n int64
	for _, kv := range kvs {
		n += int64(len(kv.Key) + len(kv.Val))
	}
	return n
}
