package swaprequest

import (
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
)

// Merge runs on the server thread (spec.md §4.6: "merge ... calls the
// swap-data contract to install results atomically with respect to other
// commands, which are held back by the listeners"). It always invokes
// r.FinishCB exactly once, whether or not an error occurred upstream, so
// the caller's listener-notify step always runs.
func (ex *Executor) Merge(r *Request) {
	defer func() {
		if r.FinishCB != nil {
			r.FinishCB(r)
		}
	}()
	if r.Err != nil {
		return
	}

	switch r.KeyRequest.Intention {
	case keyrequest.IntentionIn:
		ex.mergeIn(r)
	case keyrequest.IntentionOut:
		ex.mergeOut(r)
	case keyrequest.IntentionDel:
		ex.mergeDel(r)
	}
}

func (ex *Executor) mergeIn(r *Request) {
	carry, err := r.Contract.CreateOrMerge(r.Decoded, r.Ctx)
	if err != nil {
		r.Err = err
		return
	}
	r.Carry = carry
	if err := r.Contract.SwapIn(carry, r.Ctx); err != nil {
		r.Err = err
		return
	}

	if !r.KeyRequest.IntentionFlags.Has(keyrequest.FlagInDel) {
		return
	}
	// "also deleting the meta row if the merge makes the key fully hot;
	// for string type, always with meta" (spec.md §4.6 item 1). The data
	// rows were already dropped by the executor alongside the multi-get;
	// only the meta row's fate depends on the post-merge hot/cold state,
	// which is only known now.
	if r.SwapType == codec.TypeString || r.Contract.MergedIsHot(r.Decoded, r.Ctx) {
		dropMeta(ex.Engine, r)
	}
}

func (ex *Executor) mergeOut(r *Request) {
	keepData := r.KeyRequest.IntentionFlags.Has(keyrequest.FlagOutKeepData)
	_, err := r.Contract.SwapOut(r.Ctx, keepData)
	r.Err = err
}

func (ex *Executor) mergeDel(r *Request) {
	skipData := r.KeyRequest.IntentionFlags.Has(keyrequest.FlagSkipFin)
	r.Err = r.Contract.SwapDel(r.Ctx, skipData)
}

func dropMeta(engine *rocks.Engine, r *Request) {
	if r.Object == nil {
		return
	}
	if err := engine.Del(codec.CFMeta, r.Object.MetaCFKey()); err != nil && r.Err == nil {
		r.Err = err
	}
}
