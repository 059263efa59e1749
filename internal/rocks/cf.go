package rocks

import (
	"errors"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
)

// DelBothFamilies removes dataKey from the Data CF and scoreKey from the
// Score CF as two independent write transactions, ANDing their outcomes.
//
// This is the fix for SPEC_FULL.md's "update_rocksdb_* double-call bug":
// the original issues two sequential calls (one per family) and returns only
// the first's result, discarding whether the second actually succeeded,
// where the intent ("apply to data and score families both") requires both
// to be checked. The two deletes are separate transactions rather than one
// WriteBatch, so the AND has to happen here. No code path in this module
// calls it: a zset DEL goes through the executor's runDel, which deletes
// only the meta row and leaves the Data and Score rows to the compaction
// filter.
func (e *Engine) DelBothFamilies(dataKey, scoreKey []byte) error {
	dataErr := e.Del(codec.CFData, dataKey)
	scoreErr := e.Del(codec.CFScore, scoreKey)
	return updateBothFamilies(dataErr, scoreErr)
}

func updateBothFamilies(dataErr, scoreErr error) error {
	if dataErr != nil && scoreErr != nil {
		return errors.Join(dataErr, scoreErr)
	}
	if dataErr != nil {
		return dataErr
	}
	return scoreErr
}
