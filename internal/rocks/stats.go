package rocks

import (
	"fmt"

	"github.com/ledgerwatch/lmdb-go/lmdb"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// CFStats mirrors the handful of counters ctrip_swap_exec.c's
// rocksGetInternalStats reads via rocksdb_property_int_cf per column family.
// LMDB has no memtable, so Entries/Depth come from mdb_stat instead; the
// shape is kept so internal/stats can render the same INFO fields
// regardless of which engine backs a given build.
type CFStats struct {
	CF       codec.CF
	Entries  uint64
	Depth    uint
	PageSize uint
}

// Stats reads mdb_stat for every column family within one read transaction.
func (e *Engine) Stats() ([]CFStats, error) {
	e.mu.RLock()
	env, dbis := e.env, e.dbis
	e.mu.RUnlock()

	out := make([]CFStats, 0, len(allCFs))
	err := env.View(func(txn *lmdb.Txn) error {
		for _, cf := range allCFs {
			st, err := txn.Stat(dbis[cf])
			if err != nil {
				return err
			}
			out = append(out, CFStats{
				CF:       cf,
				Entries:  st.Entries,
				Depth:    st.Depth,
				PageSize: st.PSize,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %v", swaperr.ErrIOFailure, err)
	}
	return out, nil
}
