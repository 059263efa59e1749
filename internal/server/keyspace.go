// Package server implements spec.md §5's single-threaded command loop: it
// turns one client command into keyRequests (internal/command), resolves
// each against a live Object (internal/swapdata), analyzes and — unless the
// analysis is a NOP — submits it through the listener wait graph
// (internal/listener) and worker pool (internal/workerpool), then merges
// the result back and replies once every keyRequest a command produced has
// settled.
//
// Grounded on original_source/src/server.c's single command-processing
// thread plus ctrip_swap.c's per-command "extract keyRequests, analyze,
// submit" pipeline; re-expressed as one Go goroutine draining a command
// channel and a worker-completion channel rather than a libevent loop.
package server

import (
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/coldfilter"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/command"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/config"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swapdata"
)

// Keyspace is the live, per-db (db,key) -> *swapdata.Object map plus the
// persisted-meta cache and cold filter each Object needs, owned
// exclusively by the server goroutine (spec.md §5: "touched from a single
// thread, no locking"). It sits above internal/objectmeta (which only
// tracks whether a key has ever touched rocks) since nothing upstream of
// this package needs a notion of "the object currently resident in RAM".
type Keyspace struct {
	dbnum   int
	meta    *objectmeta.Store
	filters []*coldfilter.Filter
	live    []map[string]*swapdata.Object
	cfg     *config.Config
}

// NewKeyspace builds an empty keyspace over dbnum databases.
func NewKeyspace(dbnum int, meta *objectmeta.Store, cfg *config.Config) *Keyspace {
	ks := &Keyspace{
		dbnum:   dbnum,
		meta:    meta,
		cfg:     cfg,
		filters: make([]*coldfilter.Filter, dbnum),
		live:    make([]map[string]*swapdata.Object, dbnum),
	}
	for i := 0; i < dbnum; i++ {
		ks.filters[i] = coldfilter.New(coldfilter.DefaultConfig())
		ks.live[i] = make(map[string]*swapdata.Object)
	}
	return ks
}

// Filter returns dbid's cold filter, for compaction/rdb wiring that needs
// to prime it at load time.
func (ks *Keyspace) Filter(dbid int) *coldfilter.Filter { return ks.filters[dbid] }

// Meta returns the underlying persisted-meta store, for rdb load/save.
func (ks *Keyspace) Meta() *objectmeta.Store { return ks.meta }

// Resolve finds or creates the Object+Contract bound to (dbid,key), given
// the command family that produced the keyRequest touching it. ok is false
// when the key has never been persisted, isn't currently live, and cmdName
// names a type-agnostic generic command (DEL, EXISTS, TYPE, EXPIRE, ...) —
// there is nothing to analyze, the key simply doesn't exist.
func (ks *Keyspace) Resolve(dbid int, key []byte, cmdName string) (*swapdata.Object, swapdata.Contract, codec.SwapType, bool, error) {
	k := string(key)

	if o, ok := ks.live[dbid][k]; ok {
		swapType := ks.typeOf(o, cmdName)
		c, err := swapdata.ContractFor(swapType, o)
		return o, c, swapType, true, err
	}

	meta, hasMeta := ks.meta.Get(dbid, k)
	inferred, hasType := command.SwapTypeFor(cmdName)
	if !hasMeta && !hasType {
		return nil, nil, 0, false, nil
	}
	swapType := inferred
	if hasMeta {
		swapType = meta.SwapType
	}

	o := &swapdata.Object{
		DBID:                dbid,
		Key:                 append([]byte(nil), key...),
		Meta:                meta,
		Filter:              ks.filters[dbid],
		NextVersion:         ks.meta.NextVersion,
		EvictStepMaxSubkeys: int(ks.cfg.SwapEvictStepMaxSubkeys),
		EvictStepMaxMemory:  int(ks.cfg.SwapEvictStepMaxMemory),
	}
	ks.live[dbid][k] = o

	c, err := swapdata.ContractFor(swapType, o)
	return o, c, swapType, true, err
}

// typeOf picks o's swap-type off its own persisted meta if it has one, the
// command family otherwise (a live object can still be meta-less: it was
// just created in RAM and has never been swapped out).
func (ks *Keyspace) typeOf(o *swapdata.Object, cmdName string) codec.SwapType {
	if o.Meta != nil {
		return o.Meta.SwapType
	}
	if t, ok := command.SwapTypeFor(cmdName); ok {
		return t
	}
	return codec.TypeString
}

// Sync reconciles the persisted-meta cache with o's current Meta pointer
// after a request involving it has fully settled: swap-data contracts
// assign/clear Object.Meta directly rather than going through the Store, so
// the store has to be told about the change explicitly. A clean, empty,
// never-dirty object with no meta left is dropped from the live map
// entirely — nothing about it is worth keeping in RAM.
func (ks *Keyspace) Sync(dbid int, key []byte, o *swapdata.Object) {
	k := string(key)
	if o.Meta != nil {
		ks.meta.Set(dbid, k, o.Meta)
		return
	}
	ks.meta.Delete(dbid, k)
	if !o.DataDirty && len(o.DirtySubkeys) == 0 && objectEmpty(o) {
		delete(ks.live[dbid], k)
	}
}

func objectEmpty(o *swapdata.Object) bool {
	return len(o.Hash) == 0 && len(o.Set) == 0 && len(o.ZSet) == 0 &&
		len(o.List) == 0 && len(o.Bits) == 0 && len(o.Str) == 0
}

// Delete drops dbid/key's live object and persisted meta unconditionally,
// used once a DEL/UNLINK's swap-in-then-delete round trip has fully
// settled (see runDel/mergeDel in internal/swaprequest, which already drop
// the rocks-side rows; this just drops the RAM-side bookkeeping).
func (ks *Keyspace) Delete(dbid int, key []byte) {
	k := string(key)
	delete(ks.live[dbid], k)
	ks.meta.Delete(dbid, k)
	ks.filters[dbid].KeyDeleted(key)
}

// Exists reports whether dbid/key has any footprint at all, live or
// persisted (EXISTS/TOUCH with no swap work pending).
func (ks *Keyspace) Exists(dbid int, key []byte) bool {
	k := string(key)
	if _, ok := ks.live[dbid][k]; ok {
		return true
	}
	_, ok := ks.meta.Get(dbid, k)
	return ok
}

// Flush clears every key of dbid: live objects, persisted meta, and the
// cold filter (a fresh db has nothing to remember as probably-cold).
func (ks *Keyspace) Flush(dbid int) {
	ks.live[dbid] = make(map[string]*swapdata.Object)
	ks.meta.Flush(dbid)
	ks.filters[dbid] = coldfilter.New(coldfilter.DefaultConfig())
}

// FlushAll clears every database.
func (ks *Keyspace) FlushAll() {
	for i := 0; i < ks.dbnum; i++ {
		ks.Flush(i)
	}
}
