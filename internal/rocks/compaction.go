package rocks

import (
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// FilterDecision is what a CompactionFilter returns for one visited row,
// mirroring rocksdb_compactionfilter_t's keep/remove/changed outcomes
// (spec.md §4.8 only ever needs keep-or-remove, never changed).
type FilterDecision int

const (
	FilterKeep FilterDecision = iota
	FilterRemove
)

// CompactionFilter is installed on Data CF and Score CF (spec.md §4.8): for
// each row visited it is handed the CF, raw key and raw value and decides
// whether the row survives.
type CompactionFilter interface {
	Visit(cf codec.CF, key, val []byte) FilterDecision
}

// RunCompactionFilter adapts spec.md §4.8's "installed on Data CF and Score
// CF" LSM compaction-filter hook to LMDB's B+tree storage, which never
// invokes a user filter mid-compaction. It performs an explicit full pass
// over both CFs in turn, deleting every row the filter marks FilterRemove.
// The same two passes are driven by internal/compaction.Run on a schedule
// rather than by a background LSM compaction cycle, which is the
// adaptation DESIGN.md's Open Question resolution for this package
// records; Run calls FilterCF directly so the two CF passes run
// concurrently, while RunCompactionFilter stays sequential for callers
// that just want one call.
func (e *Engine) RunCompactionFilter(filter CompactionFilter) (removed int, err error) {
	for _, cf := range []codec.CF{codec.CFData, codec.CFScore} {
		n, ferr := e.FilterCF(cf, filter)
		removed += n
		if ferr != nil {
			return removed, ferr
		}
	}
	return removed, nil
}

// FilterCF runs one compaction-filter pass over a single column family,
// deleting every row filter marks FilterRemove inside one write
// transaction.
func (e *Engine) FilterCF(cf codec.CF, filter CompactionFilter) (removed int, err error) {
	rows, ierr := e.Iterate(IterSpec{CF: cf})
	if ierr != nil {
		return 0, ierr
	}
	var dels []CFKey
	for _, r := range rows {
		if filter.Visit(cf, r.Key, r.Val) == FilterRemove {
			dels = append(dels, CFKey{CF: cf, Key: r.Key})
		}
	}
	if len(dels) == 0 {
		return 0, nil
	}
	if werr := e.MultiDel(dels); werr != nil {
		return 0, fmt.Errorf("%w: compaction filter delete: %v", swaperr.ErrIOFailure, werr)
	}
	return len(dels), nil
}

// CompactRange is a no-op placeholder for RocksDB's rocksdb_compact_range_cf
// (ctrip_swap_exec.c's "compact range" util task): LMDB has no separate
// compaction step to trigger, a B+tree is always "compacted". Kept so the
// util-task dispatcher (internal/command) has a uniform call regardless of
// backend, per spec.md §6's DEBUG-surface util tasks.
func (e *Engine) CompactRange() error { return nil }
