// Package stats implements spec.md §7's statistics surface: per-swap-type
// and per-rocks-action counters, swap-in hit/miss breakdowns, and the
// rate limiter that reads them back. Grounded on
// original_source/src/ctrip_swap_stat.c: initStatsSwap's swapStat/
// compactionFilterStat tables, genSwapExecInfoString/genSwapHitInfoString's
// INFO rendering, and swapRateLimitState/swapRateLimit's three-tier
// backpressure policy.
package stats

import (
	"sync/atomic"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

// RioAction names one rocksdb-facing operation the executor issues,
// mirroring ctrip_swap_stat.c's ROCKS_TYPES (rocksActionName).
type RioAction int

const (
	RioGet RioAction = iota
	RioMultiGet
	RioPut
	RioMultiPut
	RioDel
	RioMultiDel
	RioWriteBatch
	RioCheckpoint
	rioActionCount
)

func (a RioAction) String() string {
	switch a {
	case RioGet:
		return "get"
	case RioMultiGet:
		return "multiget"
	case RioPut:
		return "put"
	case RioMultiPut:
		return "multiput"
	case RioDel:
		return "del"
	case RioMultiDel:
		return "multidel"
	case RioWriteBatch:
		return "writebatch"
	case RioCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// intentionCount bounds the swapStats array; keyrequest.Intention's four
// values (NOP/IN/OUT/DEL) index it directly, as swap_stats[SWAP_NOP] does
// upstream (kept, not skipped, so the array is directly indexable).
const intentionCount = 4

// counter is one swapStat/rio row: batch count, request count, bytes
// moved, and cumulative time spent, each updated atomically from whatever
// goroutine finishes the operation (a workerpool thread for swap ops, the
// server goroutine for rio ops issued synchronously).
type counter struct {
	batch  int64
	count  int64
	memory int64
	timeNs int64
}

func (c *counter) add(batch, count, memory, timeNs int64) {
	atomic.AddInt64(&c.batch, batch)
	atomic.AddInt64(&c.count, count)
	atomic.AddInt64(&c.memory, memory)
	atomic.AddInt64(&c.timeNs, timeNs)
}

func (c *counter) snapshot() (batch, count, memory, timeNs int64) {
	return atomic.LoadInt64(&c.batch), atomic.LoadInt64(&c.count),
		atomic.LoadInt64(&c.memory), atomic.LoadInt64(&c.timeNs)
}

func (c *counter) reset() {
	atomic.StoreInt64(&c.batch, 0)
	atomic.StoreInt64(&c.count, 0)
	atomic.StoreInt64(&c.memory, 0)
	// time is deliberately not reset: ctrip_swap_stat.c's resetStatsSwap
	// leaves swap_stats[i].time alone, matching "swap thread updates swap
	// stats, reset when there are swapRequest inprogress would result
	// swap_in_progress overflow when swap finishes."
}

// HitStats is the swap-in hit/miss breakdown genSwapHitInfoString renders.
type HitStats struct {
	attempt                 int64
	noIO                    int64
	notFoundCuckooFilt      int64
	notFoundAbsentCacheFilt int64
	notFoundColdfilterMiss  int64
	dataNotFound            int64
	absentSubkeyQueryCount  int64
	absentSubkeyFiltCount   int64
}

// IncrAttempt records one swap-in attempt.
func (h *HitStats) IncrAttempt() { atomic.AddInt64(&h.attempt, 1) }

// IncrNoIO records a swap-in that needed no rocks I/O (fully resident).
func (h *HitStats) IncrNoIO() { atomic.AddInt64(&h.noIO, 1) }

// IncrNotFoundCuckooFilt records a swap-in short-circuited by the cuckoo
// filter (definitely absent).
func (h *HitStats) IncrNotFoundCuckooFilt() { atomic.AddInt64(&h.notFoundCuckooFilt, 1) }

// IncrNotFoundAbsentCacheFilt records a swap-in short-circuited by the
// absent-subkey cache.
func (h *HitStats) IncrNotFoundAbsentCacheFilt() { atomic.AddInt64(&h.notFoundAbsentCacheFilt, 1) }

// IncrNotFoundColdfilterMiss records a swap-in that reached rocks and
// found nothing.
func (h *HitStats) IncrNotFoundColdfilterMiss() { atomic.AddInt64(&h.notFoundColdfilterMiss, 1) }

// IncrDataNotFound records a swap-in whose meta existed but a requested
// subkey's data row was missing (a corruption/inconsistency signal).
func (h *HitStats) IncrDataNotFound() { atomic.AddInt64(&h.dataNotFound, 1) }

// IncrAbsentSubkeyQuery/Filt track the absent-subkey cache's own hit rate.
func (h *HitStats) IncrAbsentSubkeyQuery() { atomic.AddInt64(&h.absentSubkeyQueryCount, 1) }
func (h *HitStats) IncrAbsentSubkeyFilt()  { atomic.AddInt64(&h.absentSubkeyFiltCount, 1) }

func (h *HitStats) snapshot() (attempt, noIO, cuckoo, absentCache, coldMiss, dataNotFound, query, filt int64) {
	return atomic.LoadInt64(&h.attempt), atomic.LoadInt64(&h.noIO),
		atomic.LoadInt64(&h.notFoundCuckooFilt), atomic.LoadInt64(&h.notFoundAbsentCacheFilt),
		atomic.LoadInt64(&h.notFoundColdfilterMiss), atomic.LoadInt64(&h.dataNotFound),
		atomic.LoadInt64(&h.absentSubkeyQueryCount), atomic.LoadInt64(&h.absentSubkeyFiltCount)
}

func (h *HitStats) reset() {
	atomic.StoreInt64(&h.attempt, 0)
	atomic.StoreInt64(&h.noIO, 0)
	atomic.StoreInt64(&h.notFoundCuckooFilt, 0)
	atomic.StoreInt64(&h.notFoundAbsentCacheFilt, 0)
	atomic.StoreInt64(&h.notFoundColdfilterMiss, 0)
	atomic.StoreInt64(&h.dataNotFound, 0)
	atomic.StoreInt64(&h.absentSubkeyQueryCount, 0)
	atomic.StoreInt64(&h.absentSubkeyFiltCount, 0)
}

// Stats is the process-wide counter set, one instance per server.
type Stats struct {
	swap [intentionCount]counter
	rio  [rioActionCount]counter
	Hit  HitStats
}

// New builds an empty Stats, matching initStatsSwap's zeroed tables.
func New() *Stats { return &Stats{} }

// IncrSwap records one completed batch of swap ops for intention.
func (s *Stats) IncrSwap(intention keyrequest.Intention, batch, count, memory int64, elapsed int64) {
	if int(intention) < 0 || int(intention) >= intentionCount {
		return
	}
	s.swap[intention].add(batch, count, memory, elapsed)
}

// SwapSnapshot returns intention's current counters.
func (s *Stats) SwapSnapshot(intention keyrequest.Intention) (batch, count, memory, timeNs int64) {
	if int(intention) < 0 || int(intention) >= intentionCount {
		return 0, 0, 0, 0
	}
	return s.swap[intention].snapshot()
}

// IncrRio records one rocksdb-facing operation.
func (s *Stats) IncrRio(action RioAction, batch, count, memory int64, elapsed int64) {
	if action < 0 || action >= rioActionCount {
		return
	}
	s.rio[action].add(batch, count, memory, elapsed)
}

// RioSnapshot returns action's current counters.
func (s *Stats) RioSnapshot(action RioAction) (batch, count, memory, timeNs int64) {
	if action < 0 || action >= rioActionCount {
		return 0, 0, 0, 0
	}
	return s.rio[action].snapshot()
}

// Reset clears batch/count/memory for every swap and rio counter plus the
// hit breakdown, leaving cumulative time totals alone (see counter.reset's
// doc comment); this is resetStatsSwap.
func (s *Stats) Reset() {
	for i := range s.swap {
		s.swap[i].reset()
	}
	for i := range s.rio {
		s.rio[i].reset()
	}
	s.Hit.reset()
}
