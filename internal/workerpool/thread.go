// Package workerpool implements spec.md §4.7: the autoscaling worker pool
// that carries out swap requests' rocks I/O off the server thread, plus the
// two dedicated lanes (defer, util) that sit outside the scaling policy.
//
// Grounded on original_source/src/ctrip_swap_thread.c: swapThreadMain's
// take-pending-under-lock/release/process-sequentially loop,
// swapThreadsSelectThreadIdx's dispatch policy, and
// swapThreadsTryShrinking's idle-shrink policy.
package workerpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaprequest"
)

// idleNone is the startIdleTime sentinel for "currently running or just
// finished a batch", mirroring the original's start_idle_time == -1.
const idleNone = -1

// thread is one swapThreadMain loop: a mutex-guarded pending batch list
// plus a condition variable standing in for pthread_cond_wait/signal.
type thread struct {
	id   int
	core bool

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*swaprequest.Batch
	stop    bool

	runReqsCount  int64 // atomic
	startIdleTime int64 // atomic unix-nanos, idleNone while not idle
}

func newThread(id int, core bool) *thread {
	t := &thread{id: id, core: core, startIdleTime: idleNone}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// run is swapThreadMain: drain the pending list under the lock, release it,
// then process every batch sequentially, decrementing run_reqs_count as
// each batch completes.
func (t *thread) run(ex *swaprequest.Executor, onBatchDone func(*swaprequest.Batch)) {
	for {
		t.mu.Lock()
		for len(t.pending) == 0 && !t.stop {
			if atomic.LoadInt64(&t.startIdleTime) == idleNone {
				atomic.StoreInt64(&t.startIdleTime, time.Now().UnixNano())
			}
			t.cond.Wait()
		}
		if len(t.pending) == 0 && t.stop {
			t.mu.Unlock()
			return
		}
		atomic.StoreInt64(&t.startIdleTime, idleNone)
		batch := t.pending
		t.pending = nil
		t.mu.Unlock()

		for _, b := range batch {
			ex.RunBatch(b)
			atomic.AddInt64(&t.runReqsCount, -int64(len(b.Requests)))
			if onBatchDone != nil {
				onBatchDone(b)
			}
		}
	}
}

func (t *thread) dispatch(b *swaprequest.Batch) {
	atomic.AddInt64(&t.runReqsCount, int64(len(b.Requests)))
	t.mu.Lock()
	t.pending = append(t.pending, b)
	t.mu.Unlock()
	t.cond.Signal()
}

func (t *thread) requestStop() {
	t.mu.Lock()
	t.stop = true
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *thread) idleSeconds(now time.Time) (idle float64, ok bool) {
	start := atomic.LoadInt64(&t.startIdleTime)
	if start == idleNone {
		return 0, false
	}
	return now.Sub(time.Unix(0, start)).Seconds(), true
}
