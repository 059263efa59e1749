package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

func argv(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestExtractUnknownCommandYieldsNoRequests(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("PING"))
	require.NoError(t, err)
	require.Empty(t, reqs)
}

func TestExtractEmptyArgvErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(0, 1, nil)
	require.Error(t, err)
}

func TestGetProducesWholeKeyInRequest(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(3, 1, argv("GET", "foo"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, 3, reqs[0].DBID)
	require.Equal(t, []byte("foo"), reqs[0].Key)
	require.Equal(t, keyrequest.IntentionIn, reqs[0].Intention)
	require.Equal(t, keyrequest.SubkeyWholeKey, reqs[0].SubkeySpec.Kind)
}

func TestHsetCollectsFieldsOnly(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("HSET", "h", "f1", "v1", "f2", "v2"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, keyrequest.SubkeyList, reqs[0].SubkeySpec.Kind)
	require.Equal(t, [][]byte{[]byte("f1"), []byte("f2")}, reqs[0].SubkeySpec.Subkeys)
}

func TestHdelSetsInDelFlag(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("HDEL", "h", "f1", "f2"))
	require.NoError(t, err)
	require.True(t, reqs[0].IntentionFlags.Has(keyrequest.FlagInDel))
	require.Equal(t, [][]byte{[]byte("f1"), []byte("f2")}, reqs[0].SubkeySpec.Subkeys)
}

func TestZaddSkipsLeadingOptionTokens(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("ZADD", "z", "NX", "CH", "1", "a", "2", "b"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, reqs[0].SubkeySpec.Subkeys)
}

func TestZrangeByScoreParsesExclusiveAndInfBounds(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("ZRANGEBYSCORE", "z", "(1", "+inf"))
	require.NoError(t, err)
	require.Equal(t, keyrequest.SubkeyScoreRange, reqs[0].SubkeySpec.Kind)
	require.Equal(t, 1.0, reqs[0].SubkeySpec.ScoreLo)
	require.True(t, reqs[0].SubkeySpec.ScoreLoExcl)
	require.False(t, reqs[0].SubkeySpec.ScoreHiExcl)
}

func TestLpopDefaultsToSingleElement(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("LPOP", "l"))
	require.NoError(t, err)
	require.Equal(t, keyrequest.SubkeyIndexRange, reqs[0].SubkeySpec.Kind)
	require.EqualValues(t, 0, reqs[0].SubkeySpec.IndexLo)
	require.EqualValues(t, 0, reqs[0].SubkeySpec.IndexHi)
}

func TestLpopWithCountRangesFromHead(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("LPOP", "l", "3"))
	require.NoError(t, err)
	require.EqualValues(t, 0, reqs[0].SubkeySpec.IndexLo)
	require.EqualValues(t, 2, reqs[0].SubkeySpec.IndexHi)
}

func TestRpopWithCountRangesFromTail(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("RPOP", "l", "3"))
	require.NoError(t, err)
	require.EqualValues(t, -3, reqs[0].SubkeySpec.IndexLo)
	require.EqualValues(t, -1, reqs[0].SubkeySpec.IndexHi)
}

func TestSetbitUsesBitmapOffset(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("SETBIT", "b", "42", "1"))
	require.NoError(t, err)
	require.Equal(t, keyrequest.SubkeyBitmapOffset, reqs[0].SubkeySpec.Kind)
	require.EqualValues(t, 42, reqs[0].SubkeySpec.BitOffset)
	require.True(t, reqs[0].IntentionFlags.Has(keyrequest.FlagInDel))
}

func TestBitcountDefaultsToWholeRange(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("BITCOUNT", "b"))
	require.NoError(t, err)
	require.EqualValues(t, 0, reqs[0].SubkeySpec.ByteLo)
	require.EqualValues(t, -1, reqs[0].SubkeySpec.ByteHi)
}

func TestBitposRangeArgsOffsetByOne(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("BITPOS", "b", "1", "5", "10"))
	require.NoError(t, err)
	require.EqualValues(t, 5, reqs[0].SubkeySpec.ByteLo)
	require.EqualValues(t, 10, reqs[0].SubkeySpec.ByteHi)
}

func TestDelExpandsEachKeyToItsOwnRequest(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("DEL", "a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	for _, req := range reqs {
		require.True(t, req.IntentionFlags.Has(keyrequest.FlagInDel))
	}
}

func TestFlushdbIsDBLevel(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(2, 1, argv("FLUSHDB"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, keyrequest.LevelDB, reqs[0].Level)
	require.Equal(t, keyrequest.IntentionDel, reqs[0].Intention)
	require.Equal(t, 2, reqs[0].DBID)
}

func TestFlushallIsServerLevel(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("FLUSHALL"))
	require.NoError(t, err)
	require.Equal(t, keyrequest.LevelServer, reqs[0].Level)
}

func TestDebugObjectProducesSingleKeyRequest(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("DEBUG", "OBJECT", "k"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, []byte("k"), reqs[0].Key)
}

func TestDebugUnknownSubcommandIsNop(t *testing.T) {
	r := NewRegistry()
	reqs, err := r.Extract(0, 1, argv("DEBUG", "SLEEP", "1"))
	require.NoError(t, err)
	require.Empty(t, reqs)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("get")
	require.True(t, ok)
	_, ok = r.Lookup("GeT")
	require.True(t, ok)
}
