package rocks

import (
	"fmt"

	"github.com/ledgerwatch/lmdb-go/lmdb"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// IterRow is one key/value pair yielded by a bounded scan.
type IterRow struct {
	Key []byte
	Val []byte
}

// IterSpec is a half-open [Start, End) bounded cursor scan over one column
// family, the engine-side counterpart of swapdata.RangeSpec: "a bounded
// iterator scan with start/end" (spec.md §4.6). A nil End scans to the end
// of the CF; Limit <= 0 means unbounded.
type IterSpec struct {
	CF      codec.CF
	Start   []byte
	End     []byte
	Reverse bool
	Limit   int
}

// Iterate runs one bounded scan to completion within a single read
// transaction and returns every row found, in key order (reverse order if
// Reverse is set). Large scans are expected to be pre-bounded by the caller
// (encode_range already restricts to one key's subkey range), so returning a
// slice rather than a streaming cursor keeps the call sites simple.
func (e *Engine) Iterate(spec IterSpec) ([]IterRow, error) {
	e.mu.RLock()
	env, dbi := e.env, e.dbis[spec.CF]
	e.mu.RUnlock()

	var rows []IterRow
	err := env.View(func(txn *lmdb.Txn) error {
		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return err
		}
		defer cur.Close()

		if spec.Reverse {
			return iterateReverse(cur, spec, &rows)
		}
		return iterateForward(cur, spec, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", swaperr.ErrIOFailure, err)
	}
	return rows, nil
}

func iterateForward(cur *lmdb.Cursor, spec IterSpec, rows *[]IterRow) error {
	var k, v []byte
	var err error
	if spec.Start != nil {
		k, v, err = cur.Get(spec.Start, nil, lmdb.SetRange)
	} else {
		k, v, err = cur.Get(nil, nil, lmdb.First)
	}
	for {
		if err != nil {
			if lmdb.IsNotFound(err) {
				return nil
			}
			return err
		}
		if spec.End != nil && compareBytes(k, spec.End) >= 0 {
			return nil
		}
		*rows = append(*rows, IterRow{Key: append([]byte(nil), k...), Val: append([]byte(nil), v...)})
		if spec.Limit > 0 && len(*rows) >= spec.Limit {
			return nil
		}
		k, v, err = cur.Get(nil, nil, lmdb.Next)
	}
}

func iterateReverse(cur *lmdb.Cursor, spec IterSpec, rows *[]IterRow) error {
	var k, v []byte
	var err error
	if spec.End != nil {
		k, v, err = cur.Get(spec.End, nil, lmdb.SetRange)
		if err == nil {
			k, v, err = cur.Get(nil, nil, lmdb.Prev)
		} else if lmdb.IsNotFound(err) {
			k, v, err = cur.Get(nil, nil, lmdb.Last)
		}
	} else {
		k, v, err = cur.Get(nil, nil, lmdb.Last)
	}
	for {
		if err != nil {
			if lmdb.IsNotFound(err) {
				return nil
			}
			return err
		}
		if spec.Start != nil && compareBytes(k, spec.Start) < 0 {
			return nil
		}
		*rows = append(*rows, IterRow{Key: append([]byte(nil), k...), Val: append([]byte(nil), v...)})
		if spec.Limit > 0 && len(*rows) >= spec.Limit {
			return nil
		}
		k, v, err = cur.Get(nil, nil, lmdb.Prev)
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
