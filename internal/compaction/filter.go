// Package compaction implements spec.md §4.8: the compaction filter
// installed on the Data CF and Score CF, dropping any row that belongs to
// a key whose meta has moved on to a newer version (or vanished outright)
// since the row was written — the mechanism that makes "delete = delete
// meta row only" safe for container types.
//
// Grounded on original_source/src/ctrip_swap_compact.c's
// rocksCompactionFilterFilter (decode row -> skip whole-key strings ->
// skip mid-snapshot -> look up meta -> compare versions).
package compaction

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
)

// metaLookup is the per-instance decision cache key (spec.md §4.8 step 4:
// "local cache per filter instance keyed by (version, meta_key)").
type metaLookup struct {
	version uint64
	metaKey string
}

// Filter is one compaction-filter instance, bound to the engine it reads
// Meta CF rows from. A Filter is not reused across runs: each Run call
// creates a fresh cache, matching "per filter instance" rather than a
// process-wide cache that could outlive a reopened engine.
type Filter struct {
	engine *rocks.Engine

	snapshotInFlight *int32 // shared process-wide flag, see rdb.SnapshotFlag.Int32

	sf    singleflight.Group
	mu    sync.Mutex
	cache map[metaLookup]rocks.FilterDecision

	// scanCount/filtCount are per-CF running totals (grounded on
	// ctrip_swap_stat.c's compactionFilterStat: scan_count is every row
	// Visit saw, filt_count is the subset it decided to remove), read by
	// the stats package for INFO-style reporting.
	scanCount [cfCount]int64
	filtCount [cfCount]int64
}

// cfCount bounds the per-CF counter arrays; codec only ever routes
// Data/Score rows through a filter (Meta rows aren't compaction-filtered),
// but the array is sized to the full CF space so a CF value can always
// index it directly.
const cfCount = 3

// NewFilter builds a filter reading meta rows from engine. snapshotFlag is
// the shared atomic int32 a running bulk snapshot (RDB save, checkpoint)
// sets to 1 for its duration; nil disables the check (always runnable).
func NewFilter(engine *rocks.Engine, snapshotFlag *int32) *Filter {
	return &Filter{
		engine:           engine,
		snapshotInFlight: snapshotFlag,
		cache:            make(map[metaLookup]rocks.FilterDecision),
	}
}

// Visit implements rocks.CompactionFilter per spec.md §4.8's numbered
// steps.
func (f *Filter) Visit(cf codec.CF, key, val []byte) rocks.FilterDecision {
	atomic.AddInt64(&f.scanCount[cf], 1)
	decision := f.visit(cf, key, val)
	if decision == rocks.FilterRemove {
		atomic.AddInt64(&f.filtCount[cf], 1)
	}
	return decision
}

func (f *Filter) visit(cf codec.CF, key, val []byte) rocks.FilterDecision {
	dbid, userKey, version, _, err := decodeRowKey(cf, key)
	if err != nil {
		// An undecodable row predates this layout or is corrupt; keeping it
		// is the safe default (never silently destroy data compaction
		// can't account for).
		return rocks.FilterKeep
	}
	if version == 0 {
		// string whole-key layout: no container version to go stale.
		return rocks.FilterKeep
	}
	if f.snapshotInFlight != nil && atomic.LoadInt32(f.snapshotInFlight) != 0 {
		return rocks.FilterKeep
	}

	metaKey := codec.EncodeMetaKey(dbid, userKey)
	lookup := metaLookup{version: version, metaKey: string(metaKey)}

	f.mu.Lock()
	cached, ok := f.cache[lookup]
	f.mu.Unlock()
	if ok {
		return cached
	}

	decision := f.lookupDecision(lookup, metaKey)
	f.mu.Lock()
	f.cache[lookup] = decision
	f.mu.Unlock()
	return decision
}

// Counts returns the running scan/filt totals for cf, for INFO-style
// reporting; see ctrip_swap_stat.c's updateCompactionFiltScanCount/
// updateCompactionFiltSuccessCount.
func (f *Filter) Counts(cf codec.CF) (scan, filt int64) {
	return atomic.LoadInt64(&f.scanCount[cf]), atomic.LoadInt64(&f.filtCount[cf])
}

// lookupDecision reads the Meta CF row for lookup.metaKey, collapsing
// concurrent identical lookups (the Data CF and Score CF passes run
// concurrently, see Run) through singleflight so a hot key's meta is only
// fetched once per version per sweep.
func (f *Filter) lookupDecision(lookup metaLookup, metaKey []byte) rocks.FilterDecision {
	v, _, _ := f.sf.Do(fmt.Sprintf("%d:%s", lookup.version, lookup.metaKey), func() (interface{}, error) {
		raw, err := f.engine.Get(codec.CFMeta, metaKey)
		if err != nil {
			// missing meta: key is deleted.
			return rocks.FilterRemove, nil
		}
		_, _, metaVersion, _, derr := codec.DecodeMetaVal(raw)
		if derr != nil {
			return rocks.FilterKeep, nil
		}
		if metaVersion > lookup.version {
			return rocks.FilterRemove, nil
		}
		return rocks.FilterKeep, nil
	})
	return v.(rocks.FilterDecision)
}

func decodeRowKey(cf codec.CF, key []byte) (dbid uint32, userKey []byte, version uint64, subkey []byte, err error) {
	switch cf {
	case codec.CFData:
		return codec.DecodeDataKey(key)
	case codec.CFScore:
		dbid, userKey, version, _, member, err := codec.DecodeScoreKey(key)
		return dbid, userKey, version, member, err
	default:
		return 0, nil, 0, nil, fmt.Errorf("compaction: unexpected column family %v", cf)
	}
}
