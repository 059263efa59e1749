package workerpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaprequest"
)

// extraLanes is EXTRA_SWAP_THREADS_NUM: the defer lane (index 0) and the
// util lane (index 1) sit outside core_threads/max_threads and never
// participate in SelectThreadIdx's load balancing.
const extraLanes = 2

const (
	deferLaneIdx = 0
	utilLaneIdx  = 1
)

// Config is the §4.7 parameter set.
type Config struct {
	CoreThreads               int
	MaxThreads                int
	ReqThresholdForNewThread  int64
	IdleThreadKeepAliveSecond float64
}

// Pool is the autoscaling worker pool plus its two dedicated lanes.
// threads[0] is the defer lane, threads[1] is the util lane, threads[2:2+
// CoreThreads] are the always-on core threads, and anything past that is
// elastic, created by SelectThreadIdx and reaped by TryShrink.
type Pool struct {
	cfg      Config
	executor *swaprequest.Executor

	mu            sync.Mutex
	threads       []*thread
	createEnabled bool

	onBatchDone func(*swaprequest.Batch)

	wg sync.WaitGroup
}

// New builds a pool; call Start to spin up its goroutines.
func New(cfg Config, executor *swaprequest.Executor) *Pool {
	return &Pool{cfg: cfg, executor: executor, createEnabled: true}
}

// OnBatchDone installs a hook run on the worker goroutine right after each
// batch finishes, before the next one in the drained list starts; the
// server thread uses this to schedule the merge step.
func (p *Pool) OnBatchDone(fn func(*swaprequest.Batch)) {
	p.mu.Lock()
	p.onBatchDone = fn
	p.mu.Unlock()
}

// Start creates the defer lane, the util lane, and the core threads, each
// running its own goroutine loop.
func (p *Pool) Start() {
	p.mu.Lock()
	p.addThreadLocked(false, false) // defer lane
	p.addThreadLocked(false, false) // util lane
	for i := 0; i < p.cfg.CoreThreads; i++ {
		p.addThreadLocked(true, false)
	}
	p.mu.Unlock()
}

// Stop signals every thread and waits for its goroutine to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	threads := append([]*thread(nil), p.threads...)
	p.mu.Unlock()
	for _, t := range threads {
		t.requestStop()
	}
	p.wg.Wait()
}

// addThreadLocked appends and starts a new thread; caller holds p.mu.
// dynamic marks a thread created by SelectThreadIdx mid-run rather than by
// Start, which disables further creation until the next Tick (the
// original's "creation disabled this tick to avoid thrash").
func (p *Pool) addThreadLocked(core, dynamic bool) int {
	id := len(p.threads)
	t := newThread(id, core)
	p.threads = append(p.threads, t)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		t.run(p.executor, p.batchDoneHook())
	}()
	if dynamic {
		p.createEnabled = false
	}
	return id
}

func (p *Pool) batchDoneHook() func(*swaprequest.Batch) {
	return func(b *swaprequest.Batch) {
		p.mu.Lock()
		fn := p.onBatchDone
		p.mu.Unlock()
		if fn != nil {
			fn(b)
		}
	}
}

// Dispatch selects a thread via SelectThreadIdx and hands it b, returning
// the chosen index.
func (p *Pool) Dispatch(b *swaprequest.Batch) int {
	idx := p.SelectThreadIdx()
	p.DispatchTo(b, idx)
	return idx
}

// DispatchTo hands b directly to threads[idx], bypassing load balancing;
// used for the defer/util lanes.
func (p *Pool) DispatchTo(b *swaprequest.Batch, idx int) {
	p.mu.Lock()
	t := p.threads[idx]
	p.mu.Unlock()
	t.dispatch(b)
}

// DeferLane is the fixed index util/defer requests that must run outside
// the scaling policy are dispatched to.
func (p *Pool) DeferLane() int { return deferLaneIdx }

// UtilLane is the fixed index admin (compact/flush/checkpoint/stats)
// requests are dispatched to.
func (p *Pool) UtilLane() int { return utilLaneIdx }

// SelectThreadIdx is swapThreadsSelectThreadIdx: grow to core_threads
// first, then pick the elastic thread with the smallest in-flight count,
// growing past core up to max_threads if that minimum is too loaded.
func (p *Pool) SelectThreadIdx() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.threads)
	if total < p.cfg.CoreThreads+extraLanes && p.createEnabled {
		return p.addThreadLocked(true, true)
	}

	hasElastic := total > p.cfg.CoreThreads+extraLanes
	lastIdx := total
	if hasElastic {
		lastIdx = total - 1
	}

	minCount := int64(1<<63 - 1)
	minIdx := extraLanes
	for i := extraLanes; i < lastIdx; i++ {
		c := atomic.LoadInt64(&p.threads[i].runReqsCount)
		if c < minCount {
			minCount = c
			minIdx = i
		}
	}

	if minCount < p.cfg.ReqThresholdForNewThread {
		return minIdx
	}
	if !hasElastic {
		if p.createEnabled {
			return p.addThreadLocked(false, true)
		}
		return minIdx
	}

	lastCount := atomic.LoadInt64(&p.threads[total-1].runReqsCount)
	if lastCount < p.cfg.ReqThresholdForNewThread {
		return total - 1
	}
	if p.createEnabled && total < p.cfg.MaxThreads+extraLanes {
		return p.addThreadLocked(false, true)
	}
	if lastCount < minCount {
		return total - 1
	}
	return minIdx
}

// TryShrink is swapThreadsTryShrinking: reap the most-recently-created
// elastic thread once it has sat idle past IdleThreadKeepAliveSecond,
// skipping the check entirely if thread creation was disabled this tick
// (avoids thrashing a thread that was just created to handle a burst).
func (p *Pool) TryShrink(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.createEnabled {
		return
	}
	total := len(p.threads)
	if total <= p.cfg.CoreThreads+extraLanes {
		return
	}
	last := p.threads[total-1]
	idle, ok := last.idleSeconds(now)
	if !ok || idle <= p.cfg.IdleThreadKeepAliveSecond {
		return
	}
	last.requestStop()
	p.threads = p.threads[:total-1]
}

// Tick resets the once-per-scheduling-tick "a thread was just created"
// guard; the caller (server loop) invokes it once per tick before
// Dispatch/TryShrink so at most one elastic thread is created per tick.
func (p *Pool) Tick() {
	p.mu.Lock()
	p.createEnabled = true
	p.mu.Unlock()
}

// Drained reports whether every thread has an empty pending list (used by
// shutdown to wait out in-flight work before closing the engine).
func (p *Pool) Drained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.threads {
		t.mu.Lock()
		empty := len(t.pending) == 0
		t.mu.Unlock()
		if !empty {
			return false
		}
	}
	return true
}

// ThreadCount reports the current total thread count (core + elastic +
// the two dedicated lanes), for INFO/stats.
func (p *Pool) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}

// InFlightRequests sums every thread's runReqsCount, the pool-wide
// equivalent of ctrip_swap_stat.c's swap_inprogress_count.
func (p *Pool) InFlightRequests() int64 {
	p.mu.Lock()
	threads := p.threads
	p.mu.Unlock()

	var total int64
	for _, t := range threads {
		total += atomic.LoadInt64(&t.runReqsCount)
	}
	return total
}
