package rdb

import "sync/atomic"

// SnapshotFlag is the process-wide flag internal/compaction's Filter checks
// before deciding a row is stale: nonzero while an RDB save, rordb
// checkpoint, or bulk load is in flight, so the compaction filter keeps
// every row rather than racing a concurrent meta-version bump mid-snapshot
// (spec.md §4.8's filter steps: skip filtering while a snapshot is being
// taken). A single SnapshotFlag is shared between Save/SaveRordb here and
// compaction.NewFilter via Int32.
type SnapshotFlag int32

func (f *SnapshotFlag) begin() {
	if f != nil {
		atomic.AddInt32((*int32)(f), 1)
	}
}

func (f *SnapshotFlag) end() {
	if f != nil {
		atomic.AddInt32((*int32)(f), -1)
	}
}

// Int32 exposes the underlying counter, handed to compaction.NewFilter.
func (f *SnapshotFlag) Int32() *int32 { return (*int32)(f) }
