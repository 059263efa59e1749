package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaprequest"
)

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	engine := rocks.New("").InMem().MustOpen()
	t.Cleanup(func() { require.NoError(t, engine.Close()) })
	ex := swaprequest.NewExecutor(engine, swaprequest.NewMemoryGauge(0))
	p := New(cfg, ex)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func emptyBatch() *swaprequest.Batch {
	return &swaprequest.Batch{Requests: nil}
}

func TestStartCreatesDeferUtilAndCoreThreads(t *testing.T) {
	p := newTestPool(t, Config{CoreThreads: 3, MaxThreads: 6, ReqThresholdForNewThread: 4, IdleThreadKeepAliveSecond: 1})
	require.Equal(t, 2+3, p.ThreadCount())
}

func TestSelectThreadIdxGrowsToCoreThenReusesThreads(t *testing.T) {
	p := newTestPool(t, Config{CoreThreads: 2, MaxThreads: 4, ReqThresholdForNewThread: 1000, IdleThreadKeepAliveSecond: 60})
	// Core threads already exist from Start; with a high threshold,
	// SelectThreadIdx should reuse one of them rather than grow further.
	idx := p.SelectThreadIdx()
	require.GreaterOrEqual(t, idx, extraLanes)
	require.Less(t, idx, extraLanes+2)
	require.Equal(t, 2+2, p.ThreadCount())
}

func TestSelectThreadIdxGrowsPastCoreWhenOverThreshold(t *testing.T) {
	p := newTestPool(t, Config{CoreThreads: 1, MaxThreads: 3, ReqThresholdForNewThread: 0, IdleThreadKeepAliveSecond: 60})
	before := p.ThreadCount()
	idx := p.SelectThreadIdx()
	require.Equal(t, before, idx)
	require.Equal(t, before+1, p.ThreadCount())
}

func TestDispatchRunsBatchOnChosenThread(t *testing.T) {
	p := newTestPool(t, Config{CoreThreads: 1, MaxThreads: 2, ReqThresholdForNewThread: 10, IdleThreadKeepAliveSecond: 60})

	var mu sync.Mutex
	var seen []*swaprequest.Batch
	var wg sync.WaitGroup
	wg.Add(1)
	p.OnBatchDone(func(b *swaprequest.Batch) {
		mu.Lock()
		seen = append(seen, b)
		mu.Unlock()
		wg.Done()
	})

	b := emptyBatch()
	p.Dispatch(b)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	require.Same(t, b, seen[0])
}

func TestTryShrinkReapsIdleElasticThread(t *testing.T) {
	p := newTestPool(t, Config{CoreThreads: 1, MaxThreads: 3, ReqThresholdForNewThread: 0, IdleThreadKeepAliveSecond: 0})
	before := p.ThreadCount()
	idx := p.SelectThreadIdx()
	require.Equal(t, before, idx)
	require.Equal(t, before+1, p.ThreadCount())

	// Let the newly created thread register itself as idle.
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, idle := p.threads[idx].idleSeconds(time.Now())
		return idle
	}, time.Second, time.Millisecond)

	p.Tick()
	p.TryShrink(time.Now().Add(time.Second))
	require.Equal(t, before, p.ThreadCount())
}

func TestRunReqsCountTracksInFlightBatches(t *testing.T) {
	p := newTestPool(t, Config{CoreThreads: 1, MaxThreads: 1, ReqThresholdForNewThread: 1000, IdleThreadKeepAliveSecond: 60})
	idx := extraLanes // the one core thread
	release := make(chan struct{})

	b := &swaprequest.Batch{Requests: []*swaprequest.Request{{}, {}}}
	require.Equal(t, int64(0), atomic.LoadInt64(&p.threads[idx].runReqsCount))
	p.OnBatchDone(func(*swaprequest.Batch) { close(release) })
	p.DispatchTo(b, idx)

	select {
	case <-release:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never ran")
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&p.threads[idx].runReqsCount) == 0
	}, time.Second, time.Millisecond)
}
