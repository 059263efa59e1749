package swaprequest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	engine := rocks.New("").InMem().MustOpen()
	t.Cleanup(func() { require.NoError(t, engine.Close()) })
	return NewExecutor(engine, NewMemoryGauge(0))
}

func newStringObject(dbid int, key string) *swapdata.Object {
	nextVersion := uint64(1)
	return &swapdata.Object{
		DBID:        dbid,
		Key:         []byte(key),
		NextVersion: func() uint64 { v := nextVersion; nextVersion++; return v },
	}
}

// TestOutThenInRoundTrip exercises the full OUT-batch-then-IN-batch path: a
// hot string is persisted (executor runPut, then Merge's SwapOut), then read
// back by a fresh request (executor runGet, then Merge's CreateOrMerge).
func TestOutThenInRoundTrip(t *testing.T) {
	ex := newTestExecutor(t)

	o := newStringObject(0, "greeting")
	o.Str = []byte("hello")
	o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeString}
	contract, err := swapdata.ContractFor(codec.TypeString, o)
	require.NoError(t, err)

	outReq := &Request{
		KeyRequest: &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut},
		Contract:   contract,
		Object:     o,
		Ctx:        &swapdata.Ctx{},
		SwapType:   codec.TypeString,
	}
	batches, _ := GroupByAction([]*Request{outReq})
	require.Len(t, batches, 1)
	require.Equal(t, swapdata.ActionPut, batches[0].Action)

	ex.RunBatch(batches[0])
	require.NoError(t, outReq.Err)

	var finished bool
	outReq.FinishCB = func(r *Request) { finished = true }
	ex.Merge(outReq)
	require.NoError(t, outReq.Err)
	require.True(t, finished)
	require.Nil(t, o.Str, "expected string evicted after swap-out")

	// Fresh object, same key/version, simulating the server thread reloading
	// the object's meta before issuing the IN.
	in := newStringObject(0, "greeting")
	in.Meta = o.Meta.DeepCopy()
	inContract, err := swapdata.ContractFor(codec.TypeString, in)
	require.NoError(t, err)

	inReq := &Request{
		KeyRequest: &keyrequest.KeyRequest{Intention: keyrequest.IntentionIn},
		Contract:   inContract,
		Object:     in,
		Ctx:        &swapdata.Ctx{},
		SwapType:   codec.TypeString,
	}
	batches, _ = GroupByAction([]*Request{inReq})
	require.Len(t, batches, 1)
	require.Equal(t, swapdata.ActionGet, batches[0].Action)

	ex.RunBatch(batches[0])
	require.NoError(t, inReq.Err)
	ex.Merge(inReq)
	require.NoError(t, inReq.Err)
	require.Equal(t, "hello", string(in.Str))
}

// TestDelRemovesMetaAndStringData confirms runDel drops both the meta row
// and the string data row, and that Merge's SwapDel clears the in-memory
// object.
func TestDelRemovesMetaAndStringData(t *testing.T) {
	ex := newTestExecutor(t)

	o := newStringObject(0, "doomed")
	o.Str = []byte("bye")
	o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeString}
	require.NoError(t, ex.Engine.Put(codec.CFMeta, o.MetaCFKey(),
		codec.EncodeMetaVal(o.Meta.SwapType, 0, o.Meta.Version, nil)))
	dataKey := codec.EncodeDataKey(uint32(o.DBID), o.Key, o.Meta.Version, nil)
	require.NoError(t, ex.Engine.Put(codec.CFData, dataKey, o.Str))

	contract, err := swapdata.ContractFor(codec.TypeString, o)
	require.NoError(t, err)
	delReq := &Request{
		KeyRequest: &keyrequest.KeyRequest{Intention: keyrequest.IntentionDel},
		Contract:   contract,
		Object:     o,
		Ctx:        &swapdata.Ctx{},
		SwapType:   codec.TypeString,
	}
	batches, _ := GroupByAction([]*Request{delReq})
	require.Len(t, batches, 1)
	require.Equal(t, swapdata.ActionDel, batches[0].Action)

	ex.RunBatch(batches[0])
	require.NoError(t, delReq.Err)
	ex.Merge(delReq)
	require.NoError(t, delReq.Err)
	require.Nil(t, o.Str)
	require.Nil(t, o.Meta)

	_, err = ex.Engine.Get(codec.CFMeta, o.MetaCFKey())
	require.Error(t, err)
	_, err = ex.Engine.Get(codec.CFData, dataKey)
	require.Error(t, err)
}

// TestOOMCheckRejectsOversizedIn confirms admitOOM sets an error without
// touching the engine when the gauge is exhausted.
func TestOOMCheckRejectsOversizedIn(t *testing.T) {
	engine := rocks.New("").InMem().MustOpen()
	defer engine.Close()
	ex := NewExecutor(engine, NewMemoryGauge(1))

	o := newStringObject(0, "big")
	o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeString}
	contract, err := swapdata.ContractFor(codec.TypeString, o)
	require.NoError(t, err)

	req := &Request{
		KeyRequest: &keyrequest.KeyRequest{
			Intention:      keyrequest.IntentionIn,
			IntentionFlags: keyrequest.FlagOOMCheck,
		},
		Contract: contract,
		Object:   o,
		Ctx:      &swapdata.Ctx{},
		SwapType: codec.TypeString,
	}
	ex.runGet([]*Request{req})
	require.Error(t, req.Err)
}

// TestRunUtilDispatchesCheckpoint confirms the util lane routes
// UtilCheckpoint to Engine.Checkpoint rather than the GET/PUT/DEL batching
// scheme.
func TestRunUtilDispatchesCheckpoint(t *testing.T) {
	ex := newTestExecutor(t)
	req := &Request{Util: UtilCheckpoint}
	ex.RunUtil(req, t.TempDir())
	require.NoError(t, req.Err)
}
