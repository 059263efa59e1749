package stats

import (
	"fmt"
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/compaction"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/workerpool"
)

// InfoString renders an INFO-style text block for the given pool and
// compaction filter, following genSwapExecInfoString/
// genSwapHitInfoString/genSwapThreadInfoString's "section\r\n" layout.
func (s *Stats) InfoString(pool *workerpool.Pool, filter *compaction.Filter) string {
	var b strings.Builder

	for _, in := range []keyrequest.Intention{keyrequest.IntentionIn, keyrequest.IntentionOut, keyrequest.IntentionDel} {
		batch, count, memory, timeNs := s.SwapSnapshot(in)
		fmt.Fprintf(&b, "swap_%s:batch=%d,count=%d,memory=%d,latency_ns=%d\r\n",
			strings.ToLower(in.String()), batch, count, memory, timeNs)
	}

	for _, act := range []RioAction{RioGet, RioMultiGet, RioPut, RioMultiPut, RioDel, RioMultiDel, RioWriteBatch, RioCheckpoint} {
		batch, count, memory, timeNs := s.RioSnapshot(act)
		fmt.Fprintf(&b, "swap_rio_%s:batch=%d,count=%d,memory=%d,latency_ns=%d\r\n",
			act.String(), batch, count, memory, timeNs)
	}

	if filter != nil {
		for _, cf := range []codec.CF{codec.CFData, codec.CFScore} {
			scan, filt := filter.Counts(cf)
			fmt.Fprintf(&b, "swap_compaction_filter_%s:scan_count=%d,filt_count=%d\r\n", cf.String(), scan, filt)
		}
	}

	attempt, noIO, cuckoo, absentCache, coldMiss, dataNotFound, query, filt := s.Hit.snapshot()
	notFound := cuckoo + absentCache + coldMiss
	var memHitPct, keyspaceHitPct float64
	if attempt > 0 {
		memHitPct = float64(noIO) / float64(attempt) * 100
		keyspaceHitPct = float64(attempt-notFound) / float64(attempt) * 100
	}
	fmt.Fprintf(&b,
		"swap_swapin_attempt_count:%d\r\n"+
			"swap_swapin_not_found_count:%d\r\n"+
			"swap_swapin_no_io_count:%d\r\n"+
			"swap_swapin_memory_hit_perc:%.2f%%\r\n"+
			"swap_swapin_keyspace_hit_perc:%.2f%%\r\n"+
			"swap_swapin_not_found_cuckoofilter_filt_count:%d\r\n"+
			"swap_swapin_not_found_absentcache_filt_count:%d\r\n"+
			"swap_swapin_not_found_coldfilter_miss_count:%d\r\n"+
			"swap_swapin_data_not_found_count:%d\r\n"+
			"swap_absent_subkey_query_count:%d\r\n"+
			"swap_absent_subkey_filt_count:%d\r\n",
		attempt, notFound, noIO, memHitPct, keyspaceHitPct,
		cuckoo, absentCache, coldMiss, dataNotFound, query, filt)

	if pool != nil {
		fmt.Fprintf(&b, "swap_worker_thread_count:%d\r\n", pool.ThreadCount())
		fmt.Fprintf(&b, "swap_inprogress_count:%d\r\n", pool.InFlightRequests())
	}

	return b.String()
}
