package server

import (
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/command"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/listener"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaprequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/wireproto"
)

// Dispatcher turns one client command into keyRequests and carries each
// through analyze -> (listener wait ->) worker submission, then merges a
// worker's finished batch back. Every exported method here must only be
// called from the single server goroutine (spec.md §5); Dispatch and
// HandleBatchDone between them are that goroutine's entire event loop body.
type Dispatcher struct {
	registry *command.Registry
	keyspace *Keyspace
	graph    *listener.Graph
	pool     workerDispatcher
	executor *swaprequest.Executor

	txidSeq int64
}

// workerDispatcher is the slice of workerpool.Pool's API the dispatcher
// needs, narrowed so tests can substitute a synchronous fake.
type workerDispatcher interface {
	Dispatch(b *swaprequest.Batch) int
}

// NewDispatcher wires the command pipeline over an already-started pool;
// the pool's OnBatchDone hook must be wired by the caller to deliver
// batches back to HandleBatchDone on the server goroutine (see Server).
func NewDispatcher(reg *command.Registry, ks *Keyspace, graph *listener.Graph, pool workerDispatcher, ex *swaprequest.Executor) *Dispatcher {
	return &Dispatcher{registry: reg, keyspace: ks, graph: graph, pool: pool, executor: ex}
}

// asyncBox lets submitKeyRequest's proceed closure and the code right after
// listener.Graph.Wait returns coordinate the one-time Notify call a
// keyRequest's queue entry needs: Wait may run the entry inline before it
// returns the *listener.Handle the Notify call needs, so whichever side
// finishes second does the Notify. Safe with no locking because both sides
// only ever run on the single server goroutine, never concurrently.
type asyncBox struct {
	handle        *listener.Handle
	pendingNotify bool
}

// Dispatch extracts argv's keyRequests and carries every one of them
// through to completion (synchronously for a NOP analysis, asynchronously
// via the worker pool otherwise), replying to client once the command's
// keyRequests have all settled.
func (d *Dispatcher) Dispatch(client *wireproto.Client, dbid int, argv [][]byte) {
	if len(argv) == 0 {
		return
	}
	d.txidSeq++
	txid := d.txidSeq
	cmdName := strings.ToUpper(string(argv[0]))

	reqs, err := d.registry.Extract(dbid, txid, argv)
	if err != nil {
		d.reply(client, err)
		return
	}
	if len(reqs) == 0 {
		d.reply(client, nil)
		return
	}

	cmd := newPendingCmd(client, cmdName, len(reqs), d.onCmdDone)
	for i := range reqs {
		d.submitKeyRequest(&reqs[i], cmd)
	}
}

func (d *Dispatcher) onCmdDone(cmd *pendingCmd) {
	d.reply(cmd.client, cmd.firstErr)
}

// reply writes the swap pipeline's verdict back to the client. Actual
// Redis value semantics (what GET returns, whether SET replies +OK or the
// old value) belong to the host command processor this module's swap
// layer sits underneath, per the Non-goal excluding "any command-semantics
// changes observable to clients" — so the wire reply here only ever
// reports whether the swap work backing the command succeeded.
func (d *Dispatcher) reply(client *wireproto.Client, err error) {
	if client == nil {
		return
	}
	_ = client.WriteReply(func(w *wireproto.Writer) error {
		if err != nil {
			return w.WriteError("ERR " + err.Error())
		}
		return w.WriteSimpleString("OK")
	})
}

// submitKeyRequest resolves kr's key (if any — db/server-scoped requests
// have none) and binds it through the listener graph, per spec.md §4.5's
// reentrant-wait contract.
func (d *Dispatcher) submitKeyRequest(kr *keyrequest.KeyRequest, cmd *pendingCmd) {
	if kr.Level != keyrequest.LevelKey {
		d.submitScoped(kr, cmd)
		return
	}

	obj, contract, swapType, ok, err := d.keyspace.Resolve(kr.DBID, kr.Key, kr.CmdName)
	if err != nil {
		cmd.fail(err)
		return
	}
	if !ok {
		cmd.complete()
		return
	}

	box := &asyncBox{}
	proceed := func(_ int, _ []byte, _ interface{}, _ interface{}) error {
		d.runAnalyzed(kr, obj, contract, swapType, cmd, box)
		return nil
	}
	handle, err := d.graph.Wait(kr.Txid, kr.DBID, kr.Key, proceed, nil, nil, nil)
	if err != nil {
		cmd.fail(err)
		return
	}
	box.handle = handle
	if box.pendingNotify {
		_ = d.graph.Notify(handle)
	}
}

// submitScoped handles the three keyspace-wide commands that bind at
// LevelDB/LevelServer rather than a single key: SCAN/RANDOMKEY (read-only
// metascan, nothing to swap), FLUSHDB, FLUSHALL. These never touch
// swapdata.Contract — there is no single Object they analyze — so they
// settle synchronously once the listener graph admits them.
func (d *Dispatcher) submitScoped(kr *keyrequest.KeyRequest, cmd *pendingCmd) {
	bindDBID, bindKey := bindArgs(kr)

	box := &asyncBox{}
	proceed := func(_ int, _ []byte, _ interface{}, _ interface{}) error {
		switch kr.CmdName {
		case "FLUSHDB":
			d.keyspace.Flush(kr.DBID)
		case "FLUSHALL":
			d.keyspace.FlushAll()
		}
		// RANDOMKEY/SCAN produce no mutation at this layer (see Dispatch's
		// reply doc comment: no value semantics live here).
		cmd.complete()
		d.notifyBox(box)
		return nil
	}
	handle, err := d.graph.Wait(kr.Txid, bindDBID, bindKey, proceed, nil, nil, nil)
	if err != nil {
		cmd.fail(err)
		return
	}
	box.handle = handle
	if box.pendingNotify {
		_ = d.graph.Notify(handle)
	}
}

// bindArgs derives listener.Graph.Wait's (dbid, key) bind pair from a
// keyRequest's Level: a LevelServer request (FLUSHALL) binds server-wide
// regardless of its DBID field, which generic.go's flushall leaves unset.
func bindArgs(kr *keyrequest.KeyRequest) (int, []byte) {
	switch kr.Level {
	case keyrequest.LevelServer:
		return -1, nil
	default: // LevelDB
		return kr.DBID, nil
	}
}

// runAnalyzed runs Analyze for one resolved keyRequest and either settles
// it immediately (NOP) or submits it to the worker pool, in both cases
// eventually calling notifyBox exactly once.
func (d *Dispatcher) runAnalyzed(kr *keyrequest.KeyRequest, obj *swapdata.Object, contract swapdata.Contract, swapType codec.SwapType, cmd *pendingCmd, box *asyncBox) {
	ctx := &swapdata.Ctx{}
	intention, flags, err := contract.Analyze(0, kr, ctx)
	if err != nil {
		cmd.fail(err)
		d.notifyBox(box)
		return
	}
	if intention == keyrequest.IntentionNOP {
		d.keyspace.Sync(kr.DBID, kr.Key, obj)
		cmd.complete()
		d.notifyBox(box)
		return
	}

	resolved := *kr
	resolved.Intention = intention
	resolved.IntentionFlags = flags

	req := &swaprequest.Request{
		KeyRequest: &resolved,
		Contract:   contract,
		Object:     obj,
		Ctx:        ctx,
		SwapType:   swapType,
		FinishCB: func(r *swaprequest.Request) {
			d.keyspace.Sync(kr.DBID, kr.Key, obj)
			if r.Err != nil {
				cmd.fail(r.Err)
			} else {
				cmd.complete()
			}
			d.notifyBox(box)
		},
	}

	batches, _ := swaprequest.GroupByAction([]*swaprequest.Request{req})
	for _, b := range batches {
		d.pool.Dispatch(b)
	}
}

func (d *Dispatcher) notifyBox(box *asyncBox) {
	if box.handle != nil {
		_ = d.graph.Notify(box.handle)
		return
	}
	box.pendingNotify = true
}

// HandleBatchDone runs a finished worker batch's merge step — the part of
// spec.md §4.6 that must happen back on the server goroutine — for every
// request in it. Called from the server loop once a workerpool.Pool
// OnBatchDone hook has handed the batch across the done channel.
func (d *Dispatcher) HandleBatchDone(batch *swaprequest.Batch) {
	for _, r := range batch.Requests {
		d.executor.Merge(r)
	}
}
