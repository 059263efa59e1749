package compaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
)

func newTestEngine(t *testing.T) *rocks.Engine {
	t.Helper()
	e := rocks.New("").InMem().MustOpen()
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func putMeta(t *testing.T, e *rocks.Engine, dbid uint32, key []byte, swapType codec.SwapType, version uint64) {
	t.Helper()
	require.NoError(t, e.Put(codec.CFMeta, codec.EncodeMetaKey(dbid, key), codec.EncodeMetaVal(swapType, 0, version, nil)))
}

func TestRunDropsRowsFromStaleVersion(t *testing.T) {
	e := newTestEngine(t)

	// "live" has meta at version 2 and a row still at version 1: stale,
	// must be dropped.
	putMeta(t, e, 0, []byte("live"), codec.TypeHash, 2)
	staleKey := codec.EncodeDataKey(0, []byte("live"), 1, []byte("field"))
	require.NoError(t, e.Put(codec.CFData, staleKey, []byte("old")))

	// A current-version row for the same key must survive.
	currentKey := codec.EncodeDataKey(0, []byte("live"), 2, []byte("field"))
	require.NoError(t, e.Put(codec.CFData, currentKey, []byte("new")))

	// "gone" has no meta at all: its row must be dropped.
	goneKey := codec.EncodeDataKey(0, []byte("gone"), 1, []byte("field"))
	require.NoError(t, e.Put(codec.CFData, goneKey, []byte("orphan")))

	// A whole-key string row (version 0) is never touched.
	strKey := codec.EncodeDataKey(0, []byte("str"), 0, nil)
	require.NoError(t, e.Put(codec.CFData, strKey, []byte("hello")))

	removed, err := Run(e, nil)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = e.Get(codec.CFData, staleKey)
	require.Error(t, err)
	_, err = e.Get(codec.CFData, goneKey)
	require.Error(t, err)

	v, err := e.Get(codec.CFData, currentKey)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)

	v, err = e.Get(codec.CFData, strKey)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestRunDropsStaleScoreRows(t *testing.T) {
	e := newTestEngine(t)

	putMeta(t, e, 0, []byte("z"), codec.TypeZSet, 3)
	staleScoreKey := codec.EncodeScoreKey(0, []byte("z"), 1, 4.2, []byte("m"))
	require.NoError(t, e.Put(codec.CFScore, staleScoreKey, nil))
	currentScoreKey := codec.EncodeScoreKey(0, []byte("z"), 3, 4.2, []byte("m"))
	require.NoError(t, e.Put(codec.CFScore, currentScoreKey, nil))

	removed, err := Run(e, nil)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = e.Get(codec.CFScore, staleScoreKey)
	require.Error(t, err)
	_, err = e.Get(codec.CFScore, currentScoreKey)
	require.NoError(t, err)
}

func TestFilterCountsTrackScanAndFiltPerCF(t *testing.T) {
	e := newTestEngine(t)

	putMeta(t, e, 0, []byte("live"), codec.TypeHash, 2)
	staleKey := codec.EncodeDataKey(0, []byte("live"), 1, []byte("field"))
	require.NoError(t, e.Put(codec.CFData, staleKey, []byte("old")))
	currentKey := codec.EncodeDataKey(0, []byte("live"), 2, []byte("field"))
	require.NoError(t, e.Put(codec.CFData, currentKey, []byte("new")))

	f := NewFilter(e, nil)
	removed, err := e.FilterCF(codec.CFData, f)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	scan, filt := f.Counts(codec.CFData)
	require.EqualValues(t, 2, scan)
	require.EqualValues(t, 1, filt)
}

func TestVisitKeepsEverythingWhileSnapshotInFlight(t *testing.T) {
	e := newTestEngine(t)
	goneKey := codec.EncodeDataKey(0, []byte("gone"), 1, []byte("field"))
	require.NoError(t, e.Put(codec.CFData, goneKey, []byte("orphan")))

	inFlight := int32(1)
	f := NewFilter(e, &inFlight)
	decision := f.Visit(codec.CFData, goneKey, []byte("orphan"))
	require.Equal(t, rocks.FilterKeep, decision)
}
