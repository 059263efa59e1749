package rdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
)

func newTestEngine(t *testing.T) *rocks.Engine {
	t.Helper()
	e := rocks.New("").InMem().MustOpen()
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func putColdHash(t *testing.T, e *rocks.Engine, dbid int, key []byte, version uint64, fields map[string]string) {
	t.Helper()
	require.NoError(t, e.Put(codec.CFMeta, codec.EncodeMetaKey(uint32(dbid), key), codec.EncodeMetaVal(codec.TypeHash, 1234, version, nil)))
	for f, v := range fields {
		require.NoError(t, e.Put(codec.CFData, codec.EncodeDataKey(uint32(dbid), key, version, []byte(f)), []byte(v)))
	}
}

func TestSaveLoadColdHashRoundTrip(t *testing.T) {
	src := newTestEngine(t)
	putColdHash(t, src, 0, []byte("h"), 1, map[string]string{"f1": "v1", "f2": "v2"})

	var buf bytes.Buffer
	stats, err := Save(&buf, src, 0, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Keys)
	require.Equal(t, 2, stats.Rows)

	dst := newTestEngine(t)
	store := objectmeta.NewStore(1)
	loadStats, err := Load(&buf, dst, 0, store, Options{})
	require.NoError(t, err)
	require.Equal(t, stats, loadStats)

	v, err := dst.Get(codec.CFData, codec.EncodeDataKey(0, []byte("h"), 1, []byte("f1")))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
	v, err = dst.Get(codec.CFData, codec.EncodeDataKey(0, []byte("h"), 1, []byte("f2")))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)

	meta, ok := store.Get(0, "h")
	require.True(t, ok)
	require.Equal(t, uint64(1), meta.Version)
	require.Equal(t, codec.TypeHash, meta.SwapType)
	require.Equal(t, uint64(2), meta.ColdLen)
	require.Equal(t, objectmeta.LengthExtend{}, meta.Extend)
}

func TestSaveLoadZSetRoundTripCarriesScores(t *testing.T) {
	src := newTestEngine(t)
	require.NoError(t, src.Put(codec.CFMeta, codec.EncodeMetaKey(0, []byte("z")), codec.EncodeMetaVal(codec.TypeZSet, 0, 5, nil)))
	require.NoError(t, src.Put(codec.CFScore, codec.EncodeScoreKey(0, []byte("z"), 5, 1.5, []byte("m1")), nil))
	require.NoError(t, src.Put(codec.CFScore, codec.EncodeScoreKey(0, []byte("z"), 5, -2.5, []byte("m2")), nil))

	var buf bytes.Buffer
	stats, err := Save(&buf, src, 0, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Rows)

	dst := newTestEngine(t)
	_, err = Load(&buf, dst, 0, nil, Options{})
	require.NoError(t, err)

	_, err = dst.Get(codec.CFScore, codec.EncodeScoreKey(0, []byte("z"), 5, 1.5, []byte("m1")))
	require.NoError(t, err)
	_, err = dst.Get(codec.CFScore, codec.EncodeScoreKey(0, []byte("z"), 5, -2.5, []byte("m2")))
	require.NoError(t, err)
}

func TestSaveScopesToRequestedDB(t *testing.T) {
	src := newTestEngine(t)
	putColdHash(t, src, 0, []byte("h0"), 1, map[string]string{"f": "v"})
	putColdHash(t, src, 1, []byte("h1"), 1, map[string]string{"f": "v"})

	var buf bytes.Buffer
	stats, err := Save(&buf, src, 0, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Keys)
}

func TestSaveLoadCompressedRoundTrip(t *testing.T) {
	src := newTestEngine(t)
	putColdHash(t, src, 0, []byte("h"), 1, map[string]string{"f1": "v1"})

	var buf bytes.Buffer
	_, err := Save(&buf, src, 0, nil, Options{Compress: true})
	require.NoError(t, err)

	dst := newTestEngine(t)
	loadStats, err := Load(&buf, dst, 0, nil, Options{Compress: true})
	require.NoError(t, err)
	require.Equal(t, 1, loadStats.Keys)

	v, err := dst.Get(codec.CFData, codec.EncodeDataKey(0, []byte("h"), 1, []byte("f1")))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestSnapshotFlagGuardsFilterDecision(t *testing.T) {
	var flag SnapshotFlag
	require.Equal(t, int32(0), *flag.Int32())
	flag.begin()
	require.Equal(t, int32(1), *flag.Int32())
	flag.end()
	require.Equal(t, int32(0), *flag.Int32())
}
