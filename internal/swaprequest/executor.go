package swaprequest

import (
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// Executor carries out rocks primitives for one worker's batches. It holds
// no per-request state: everything it needs is read off Request/Batch, so
// one Executor can be shared across every worker in the pool.
type Executor struct {
	Engine *rocks.Engine
	Gauge  *MemoryGauge
}

func NewExecutor(engine *rocks.Engine, gauge *MemoryGauge) *Executor {
	return &Executor{Engine: engine, Gauge: gauge}
}

// RunBatch carries out batch's rocks primitive for every request in it,
// continuing past per-request failures (spec.md §4.6: "the batch continues
// so that sibling requests are not penalized").
func (ex *Executor) RunBatch(batch *Batch) {
	switch batch.Action {
	case swapdata.ActionGet:
		ex.runGet(batch.Requests)
	case swapdata.ActionIterate:
		ex.runIterate(batch.Requests)
	case swapdata.ActionPut:
		ex.runPut(batch.Requests)
	case swapdata.ActionDel:
		ex.runDel(batch.Requests)
	}
}

// admitOOM applies EXEC_OOM_CHECK (spec.md §4.6) for one request given the
// KV rows it is about to move; failure sets r.Err and returns false so the
// caller skips the actual I/O for this request only.
func (ex *Executor) admitOOM(r *Request, kvs []swapdata.KV) bool {
	if !r.KeyRequest.IntentionFlags.Has(keyrequest.FlagOOMCheck) {
		return true
	}
	if ex.Gauge.Admit(estimatePayload(kvs)) {
		return true
	}
	r.Err = swaperr.ErrOOMCheckFailed
	return false
}

// runGet implements executor pipeline step 1's GET half: encode keys,
// multi-get, decode, and (EXEC_IN_DEL) schedule the follow-up multi-del.
func (ex *Executor) runGet(reqs []*Request) {
	var keys []rocks.CFKey
	spans := make([]int, len(reqs)+1)
	for i, r := range reqs {
		spans[i] = len(keys)
		if r.Err != nil {
			continue
		}
		kvs := r.Contract.EncodeKeys(r.KeyRequest.Intention, r.Ctx)
		if !ex.admitOOM(r, kvs) {
			continue
		}
		for _, kv := range kvs {
			keys = append(keys, rocks.CFKey{CF: kv.CF, Key: kv.Key})
		}
	}
	spans[len(reqs)] = len(keys)

	vals, err := ex.Engine.MultiGet(keys)
	if err != nil {
		for _, r := range reqs {
			if r.Err == nil {
				r.Err = err
			}
		}
		return
	}

	for i, r := range reqs {
		if r.Err != nil {
			continue
		}
		lo, hi := spans[i], spans[i+1]
		rows := make([]swapdata.Row, 0, hi-lo)
		for j := lo; j < hi; j++ {
			rows = append(rows, swapdata.Row{CF: keys[j].CF, RawKey: keys[j].Key, RawVal: vals[j]})
		}
		decoded, derr := r.Contract.DecodeData(rows)
		if derr != nil {
			r.Err = derr
			continue
		}
		r.Decoded = decoded

		if r.KeyRequest.IntentionFlags.Has(keyrequest.FlagInDel) {
			dels := make([]rocks.CFKey, hi-lo)
			copy(dels, keys[lo:hi])
			if derr := ex.Engine.MultiDel(dels); derr != nil {
				r.Err = derr
			}
		}
	}
}

// runIterate implements executor pipeline step 1's ITERATE half, used by
// whole-range/score-range IN and by list/bitmap IN (which always resolve to
// a range of raw-indices or byte-buckets rather than named subkeys).
func (ex *Executor) runIterate(reqs []*Request) {
	for _, r := range reqs {
		if r.Err != nil {
			continue
		}
		spec := r.Contract.EncodeRange(r.KeyRequest.Intention, r.Ctx)
		rows, err := ex.Engine.Iterate(rocks.IterSpec{
			CF: spec.CF, Start: spec.Start, End: spec.End, Reverse: spec.Reverse, Limit: spec.Limit,
		})
		if err != nil {
			r.Err = err
			continue
		}
		if !ex.admitOOM(r, rowsAsKV(rows)) {
			continue
		}
		drows := make([]swapdata.Row, len(rows))
		dels := make([]rocks.CFKey, len(rows))
		for i, row := range rows {
			drows[i] = swapdata.Row{CF: spec.CF, RawKey: row.Key, RawVal: row.Val}
			dels[i] = rocks.CFKey{CF: spec.CF, Key: row.Key}
		}
		decoded, derr := r.Contract.DecodeData(drows)
		if derr != nil {
			r.Err = derr
			continue
		}
		r.Decoded = decoded

		if r.KeyRequest.IntentionFlags.Has(keyrequest.FlagInDel) {
			if derr := ex.Engine.MultiDel(dels); derr != nil {
				r.Err = derr
			}
		}
	}
}

func rowsAsKV(rows []rocks.IterRow) []swapdata.KV {
	out := make([]swapdata.KV, len(rows))
	for i, row := range rows {
		out[i] = swapdata.KV{Key: row.Key, Val: row.Val}
	}
	return out
}

// runPut implements executor pipeline step 2 (OUT): multi-put the data
// rows, then multi-put each request's meta row. The two are not one atomic
// write batch across requests (spec.md §4.6: "in practice meta write
// follows data write, and compaction filter handles the transient
// inconsistency via version numbers") — only atomic per key within
// WriteBatch, not across the whole OUT batch.
func (ex *Executor) runPut(reqs []*Request) {
	var dataKVs []rocks.CFKV
	spans := make([]int, len(reqs)+1)
	for i, r := range reqs {
		spans[i] = len(dataKVs)
		if r.Err != nil {
			continue
		}
		kvs := r.Contract.EncodeData(r.KeyRequest.Intention, r.Ctx)
		if !ex.admitOOM(r, kvs) {
			continue
		}
		for _, kv := range kvs {
			dataKVs = append(dataKVs, rocks.CFKV{CF: kv.CF, Key: kv.Key, Val: kv.Val})
		}
	}
	spans[len(reqs)] = len(dataKVs)

	if len(dataKVs) > 0 {
		if err := ex.Engine.MultiPut(dataKVs); err != nil {
			for _, r := range reqs {
				if r.Err == nil {
					r.Err = err
				}
			}
			return
		}
	}

	var metaKVs []rocks.CFKV
	for _, r := range reqs {
		if r.Err != nil || r.Object == nil || r.Object.Meta == nil {
			continue
		}
		row := r.Object.EncodeMetaRow()
		metaKVs = append(metaKVs, rocks.CFKV{CF: row.CF, Key: row.Key, Val: row.Val})
	}
	if len(metaKVs) > 0 {
		if err := ex.Engine.MultiPut(metaKVs); err != nil {
			for _, r := range reqs {
				if r.Err == nil {
					r.Err = err
				}
			}
		}
	}
}

// runDel implements executor pipeline step 3: delete the meta row always,
// plus the data rows for string (whole-key del must not leave orphan data
// since there is no compaction filter pass covering CFMeta itself) while
// non-string types leave their data rows for the compaction filter to reap
// once they go stale (spec.md §4.6 item 3).
func (ex *Executor) runDel(reqs []*Request) {
	for _, r := range reqs {
		if r.Err != nil || r.Object == nil {
			continue
		}
		dels := []rocks.CFKey{{CF: codec.CFMeta, Key: r.Object.MetaCFKey()}}
		if r.SwapType == codec.TypeString {
			kvs := r.Contract.EncodeKeys(r.KeyRequest.Intention, r.Ctx)
			for _, kv := range kvs {
				dels = append(dels, rocks.CFKey{CF: kv.CF, Key: kv.Key})
			}
		}
		if err := ex.Engine.MultiDel(dels); err != nil {
			r.Err = fmt.Errorf("%w: del: %v", swaperr.ErrIOFailure, err)
		}
	}
}
