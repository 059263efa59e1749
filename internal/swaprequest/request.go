// Package swaprequest implements spec.md §4.6: the swap request bundled
// with its swap-data, batched by rocks primitive, carried out on a worker
// thread, then merged back on the server thread.
//
// Grounded on original_source/src/ctrip_swap_exec.c's swapRequest/RIOBatch
// machinery: a swapRequest bundles (intention, flags, swap_ctx, swap_data,
// data_ctx, finish_cb, trace) exactly as spec.md §4.6 describes, and
// swapExecBatchPrepareRIOBatch/DoRIOBatch groups same-primitive requests
// into one RIOBatch before doing the I/O. This package re-expresses that as
// Request/GroupByAction/Executor rather than a C union-of-RIO-kinds.
package swaprequest

import (
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"
)

// UtilKind distinguishes the non-key-bound admin requests (spec.md §4.6
// item 4: "compact-range, flush, checkpoint, stats") from regular
// IN/OUT/DEL requests, which carry UtilNone.
type UtilKind int

const (
	UtilNone UtilKind = iota
	UtilCompactRange
	UtilFlush
	UtilCheckpoint
	UtilStats
)

// Trace carries the diagnostics spec.md §4.6's swapRequest bundles
// alongside finish_cb: which scheduling tick submitted this request and
// which worker actually ran it, surfaced by internal/stats.
type Trace struct {
	Tick   int64
	Worker int
}

// Request is one swapRequest: a keyRequest's resolved intention/flags/ctx
// paired with the swap-data contract and object it targets. Decoded/Carry
// are filled in by the executor and read back by Merge.
type Request struct {
	KeyRequest *keyrequest.KeyRequest
	Contract   swapdata.Contract
	Object     *swapdata.Object
	Ctx        *swapdata.Ctx
	// SwapType names the value type independent of Object.Meta, which may
	// still be nil when a never-persisted key takes the DEL path (runDel
	// needs to know whether to delete data rows without requiring meta to
	// exist yet).
	SwapType codec.SwapType

	Util UtilKind

	// Decoded is DecodeData's result (IN path) or nil (OUT/DEL/UTIL).
	Decoded interface{}
	// Carry is CreateOrMerge's result, read by Merge to call SwapIn.
	Carry interface{}

	// Err holds the first failure encountered anywhere in the executor or
	// merge pipeline; spec.md §4.6: "errors from the engine set the
	// request's error code; the batch continues so sibling requests are
	// not penalized."
	Err error

	// FinishCB runs on the server thread once Merge completes, regardless
	// of Err; it is the caller's hook to notify the listener graph.
	FinishCB func(*Request)

	Trace Trace
}

// Action reports which rocks primitive this request needs, NOP for a
// UtilKind request (those dispatch directly, see RunUtil).
func (r *Request) Action() swapdata.Action {
	if r.Util != UtilNone {
		return swapdata.ActionNOP
	}
	return r.Contract.ChooseAction(r.KeyRequest.Intention, r.Ctx)
}
