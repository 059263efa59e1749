package rocks

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New("").InMem().MustOpen()
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func TestPutGetDel(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Put(codec.CFData, []byte("k1"), []byte("v1")))
	v, err := e.Get(codec.CFData, []byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	_, err = e.Get(codec.CFData, []byte("missing"))
	require.ErrorIs(t, err, swaperr.ErrKeyNotFound)

	require.NoError(t, e.Del(codec.CFData, []byte("k1")))
	_, err = e.Get(codec.CFData, []byte("k1"))
	require.ErrorIs(t, err, swaperr.ErrKeyNotFound)
}

func TestMultiGetMixesCFsAndMisses(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.MultiPut([]CFKV{
		{CF: codec.CFMeta, Key: []byte("m1"), Val: []byte("meta")},
		{CF: codec.CFData, Key: []byte("d1"), Val: []byte("data")},
	}))

	vals, err := e.MultiGet([]CFKey{
		{CF: codec.CFMeta, Key: []byte("m1")},
		{CF: codec.CFData, Key: []byte("d1")},
		{CF: codec.CFData, Key: []byte("nope")},
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("meta"), []byte("data"), nil}, vals)
}

func TestIterateBoundedRangeForwardAndReverse(t *testing.T) {
	e := newTestEngine(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.Put(codec.CFData, []byte(k), []byte(k+"v")))
	}

	rows, err := e.Iterate(IterSpec{CF: codec.CFData, Start: []byte("b"), End: []byte("d")})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []byte("b"), rows[0].Key)
	require.Equal(t, []byte("c"), rows[1].Key)

	rev, err := e.Iterate(IterSpec{CF: codec.CFData, Start: []byte("a"), End: []byte("d"), Reverse: true})
	require.NoError(t, err)
	require.Len(t, rev, 3)
	require.Equal(t, []byte("c"), rev[0].Key)
	require.Equal(t, []byte("a"), rev[2].Key)
}

func TestWriteBatchAtomicAcrossFamilies(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.WriteBatch([]CFKV{
		{CF: codec.CFData, Key: []byte("k"), Val: []byte("v")},
		{CF: codec.CFScore, Key: []byte("sk"), Val: nil},
	}, nil))

	_, err := e.Get(codec.CFData, []byte("k"))
	require.NoError(t, err)
	_, err = e.Get(codec.CFScore, []byte("sk"))
	require.NoError(t, err)
}

func TestDegradedRejectsWrites(t *testing.T) {
	e := newTestEngine(t)
	e.SetDegraded(true)
	err := e.Put(codec.CFData, []byte("k"), []byte("v"))
	require.Error(t, err)
}

func TestCheckpointProducesIndependentSnapshot(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Put(codec.CFData, []byte("k"), []byte("v")))

	dir := t.TempDir()
	target, err := e.Checkpoint(dir, 123456)
	require.NoError(t, err)
	require.DirExists(t, target)

	snap, err := OpenAt(target)
	require.NoError(t, err)
	defer snap.Close()
	v, err := snap.Get(codec.CFData, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

type keepEvenFilter struct{ n int }

func (f *keepEvenFilter) Visit(cf codec.CF, key, val []byte) FilterDecision {
	f.n++
	if f.n%2 == 0 {
		return FilterRemove
	}
	return FilterKeep
}

func TestRunCompactionFilterDeletesMarkedRows(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 4; i++ {
		require.NoError(t, e.Put(codec.CFData, []byte{byte('a' + i)}, []byte("v")))
	}
	removed, err := e.RunCompactionFilter(&keepEvenFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	rows, err := e.Iterate(IterSpec{CF: codec.CFData})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
