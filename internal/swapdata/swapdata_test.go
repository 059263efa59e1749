package swapdata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/coldfilter"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

func counter() func() uint64 {
	var v uint64
	return func() uint64 { v++; return v }
}

// TestHashEvictThenReload drives the reference type through spec.md §4.4's
// full state machine: hot -> (OUT) warm -> (IN) hot again, mirroring
// ctrip_swap_hash.c's hashSwapAna OUT/IN branches.
func TestHashEvictThenReload(t *testing.T) {
	o := &Object{
		DBID:                0,
		Key:                 []byte("h"),
		Hash:                map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2"), "f3": []byte("v3")},
		DataDirty:           true,
		NextVersion:         counter(),
		Filter:              coldfilter.New(coldfilter.DefaultConfig()),
		EvictStepMaxSubkeys: 2,
	}
	c, err := ContractFor(codec.TypeHash, o)
	require.NoError(t, err)

	// OUT: evict step caps at 2 of 3 fields; the third stays dirty so
	// may_keep_data must be false (mirrors hashSwapAnaOutSelectSubkeys).
	ctxOut := &Ctx{}
	intention, flags, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, ctxOut)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionOut, intention)
	require.Len(t, ctxOut.Subkeys, 2)
	require.False(t, flags.Has(keyrequest.FlagOutKeepData))
	require.Equal(t, ActionPut, c.ChooseAction(intention, ctxOut))

	rows := c.EncodeData(intention, ctxOut)
	require.Len(t, rows, 2)
	store := make(map[string][]byte, len(rows))
	for _, kv := range rows {
		store[string(kv.Key)] = kv.Val
	}

	totallyOut, err := c.SwapOut(ctxOut, false)
	require.NoError(t, err)
	require.False(t, totallyOut)
	require.Len(t, o.Hash, 1)
	require.EqualValues(t, 2, o.Meta.ColdLen)
	o.Filter.AddKey(o.Key)

	// IN: request the two evicted fields by name.
	evicted := append([][]byte{}, ctxOut.Subkeys...)
	ctxIn := &Ctx{}
	reqIn := &keyrequest.KeyRequest{
		Intention:  keyrequest.IntentionIn,
		SubkeySpec: keyrequest.SubkeySpec{Kind: keyrequest.SubkeyList, Subkeys: evicted},
	}
	intention2, _, err := c.Analyze(0, reqIn, ctxIn)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionIn, intention2)
	require.ElementsMatch(t, evicted, ctxIn.Subkeys)
	require.Equal(t, ActionGet, c.ChooseAction(intention2, ctxIn))

	keys := c.EncodeKeys(intention2, ctxIn)
	require.Len(t, keys, 2)
	dataRows := make([]Row, 0, len(keys))
	for _, kv := range keys {
		dataRows = append(dataRows, Row{CF: kv.CF, RawKey: kv.Key, RawVal: store[string(kv.Key)]})
	}
	decoded, err := c.DecodeData(dataRows)
	require.NoError(t, err)
	carry, err := c.CreateOrMerge(decoded, ctxIn)
	require.NoError(t, err)
	require.NoError(t, c.SwapIn(carry, ctxIn))

	require.Len(t, o.Hash, 3)
	require.EqualValues(t, 0, o.Meta.ColdLen)
	require.True(t, c.MergedIsHot(decoded, ctxIn))
}

// TestHashAnalyzeInOnHotKeyIsNOP: a never-persisted key always NOPs on IN.
func TestHashAnalyzeInOnHotKeyIsNOP(t *testing.T) {
	o := &Object{Key: []byte("h"), Hash: map[string][]byte{"f": []byte("v")}, NextVersion: counter()}
	c, err := ContractFor(codec.TypeHash, o)
	require.NoError(t, err)
	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionIn}, &Ctx{})
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionNOP, intention)
}

// TestHashAnalyzeOutNoswapFastPath: once a key is persisted and clean, OUT
// evicts straight from RAM with no rocks I/O (ctx.NoSwap) and NOPs.
func TestHashAnalyzeOutNoswapFastPath(t *testing.T) {
	o := &Object{
		Key:         []byte("h"),
		Hash:        map[string][]byte{"f1": []byte("v1")},
		NextVersion: counter(),
	}
	c, err := ContractFor(codec.TypeHash, o)
	require.NoError(t, err)

	// First OUT: nothing is marked dirty, so this already takes the noswap
	// path; it creates the in-memory meta and evicts the one field.
	_, _, err = c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, &Ctx{})
	require.NoError(t, err)
	require.NotNil(t, o.Meta)

	// Re-add the field as clean (as if re-loaded and never mutated) and
	// verify a second OUT with nothing dirty takes the noswap path.
	o.Hash["f1"] = []byte("v1")
	ctx2 := &Ctx{}
	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, ctx2)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionNOP, intention)
	require.True(t, ctx2.NoSwap)
	require.Empty(t, o.Hash, "noswap OUT evicts directly without a rocks round-trip")
}

func TestSetRoundTrip(t *testing.T) {
	o := &Object{
		Key:                 []byte("s"),
		Set:                 map[string]struct{}{"a": {}, "b": {}},
		DataDirty:           true,
		NextVersion:         counter(),
		EvictStepMaxSubkeys: 10,
	}
	c, err := ContractFor(codec.TypeSet, o)
	require.NoError(t, err)

	ctxOut := &Ctx{}
	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, ctxOut)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionOut, intention)
	rows := c.EncodeData(intention, ctxOut)
	require.Len(t, rows, 2)

	totallyOut, err := c.SwapOut(ctxOut, false)
	require.NoError(t, err)
	require.True(t, totallyOut)
	require.Empty(t, o.Set)

	var dataRows []Row
	for _, kv := range rows {
		dataRows = append(dataRows, Row{CF: kv.CF, RawKey: kv.Key, RawVal: kv.Val})
	}
	decoded, err := c.DecodeData(dataRows)
	require.NoError(t, err)
	carry, err := c.CreateOrMerge(decoded, &Ctx{})
	require.NoError(t, err)
	require.NoError(t, c.SwapIn(carry, &Ctx{}))
	require.Len(t, o.Set, 2)
	require.True(t, c.MergedIsHot(decoded, &Ctx{}))
}

func TestZsetScoreRangeRoundTrip(t *testing.T) {
	o := &Object{
		Key:                 []byte("z"),
		ZSet:                map[string]float64{"a": 1.5, "b": 2.5, "c": -3.5},
		DataDirty:           true,
		NextVersion:         counter(),
		EvictStepMaxSubkeys: 10,
	}
	c, err := ContractFor(codec.TypeZSet, o)
	require.NoError(t, err)

	ctxOut := &Ctx{}
	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, ctxOut)
	require.NoError(t, err)
	rows := c.EncodeData(intention, ctxOut)
	require.Len(t, rows, 6) // 2 rows (Data+Score) per member
	_, err = c.SwapOut(ctxOut, false)
	require.NoError(t, err)
	require.Empty(t, o.ZSet)

	// Simulate a ZRANGEBYSCORE [0, 10]: only Score CF rows for a and b.
	var scoreRows []Row
	for _, kv := range rows {
		if kv.CF == codec.CFScore {
			_, _, _, score, _, derr := codec.DecodeScoreKey(kv.Key)
			require.NoError(t, derr)
			if score >= 0 && score <= 10 {
				scoreRows = append(scoreRows, Row{CF: kv.CF, RawKey: kv.Key})
			}
		}
	}
	require.Len(t, scoreRows, 2)
	decoded, err := c.DecodeData(scoreRows)
	require.NoError(t, err)
	members := decoded.(map[string]float64)
	require.Equal(t, 1.5, members["a"])
	require.Equal(t, 2.5, members["b"])
}

func TestListSegmentResidency(t *testing.T) {
	o := &Object{
		Key:                 []byte("l"),
		List:                map[int64][]byte{0: []byte("a"), 1: []byte("b"), 2: []byte("c")},
		DataDirty:           true,
		NextVersion:         counter(),
		EvictStepMaxSubkeys: 2,
	}
	c, err := ContractFor(codec.TypeList, o)
	require.NoError(t, err)

	ctxOut := &Ctx{}
	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, ctxOut)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionOut, intention)
	require.Len(t, ctxOut.Subkeys, 2)
	rows := c.EncodeData(intention, ctxOut)
	_, err = c.SwapOut(ctxOut, false)
	require.NoError(t, err)
	require.Len(t, o.List, 1)

	// Requesting the now-evicted index range must come back IN.
	ctxIn := &Ctx{}
	reqIn := &keyrequest.KeyRequest{
		Intention:  keyrequest.IntentionIn,
		SubkeySpec: keyrequest.SubkeySpec{Kind: keyrequest.SubkeyIndexRange, IndexLo: 0, IndexHi: 2},
	}
	intention2, _, err := c.Analyze(0, reqIn, ctxIn)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionIn, intention2)

	decoded, err := c.DecodeData([]Row{{CF: rows[0].CF, RawKey: rows[0].Key, RawVal: rows[0].Val}, {CF: rows[1].CF, RawKey: rows[1].Key, RawVal: rows[1].Val}})
	require.NoError(t, err)
	carry, err := c.CreateOrMerge(decoded, ctxIn)
	require.NoError(t, err)
	require.NoError(t, c.SwapIn(carry, ctxIn))
	require.Len(t, o.List, 3)
}

func TestBitmapBucketResidency(t *testing.T) {
	o := &Object{
		Key:                 []byte("bm"),
		Bits:                map[int64][]byte{0: make([]byte, 4096)},
		DataDirty:           true,
		NextVersion:         counter(),
		EvictStepMaxSubkeys: 10,
	}
	c, err := ContractFor(codec.TypeBitmap, o)
	require.NoError(t, err)

	ctxOut := &Ctx{}
	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, ctxOut)
	require.NoError(t, err)
	rows := c.EncodeData(intention, ctxOut)
	require.Len(t, rows, 1)
	_, err = c.SwapOut(ctxOut, false)
	require.NoError(t, err)
	require.Empty(t, o.Bits)

	ctxIn := &Ctx{}
	reqIn := &keyrequest.KeyRequest{
		Intention:  keyrequest.IntentionIn,
		SubkeySpec: keyrequest.SubkeySpec{Kind: keyrequest.SubkeyBitmapOffset, BitOffset: 100},
	}
	intention2, _, err := c.Analyze(0, reqIn, ctxIn)
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionIn, intention2)
	decoded, err := c.DecodeData([]Row{{CF: rows[0].CF, RawKey: rows[0].Key, RawVal: rows[0].Val}})
	require.NoError(t, err)
	carry, err := c.CreateOrMerge(decoded, ctxIn)
	require.NoError(t, err)
	require.NoError(t, c.SwapIn(carry, ctxIn))
	require.Len(t, o.Bits, 1)
}

func TestStringWholeKeyRoundTrip(t *testing.T) {
	o := &Object{Key: []byte("str"), Str: []byte("hello"), NextVersion: counter()}
	c, err := ContractFor(codec.TypeString, o)
	require.NoError(t, err)

	intention, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionOut}, &Ctx{})
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionOut, intention)
	rows := c.EncodeData(intention, &Ctx{})
	require.Len(t, rows, 1)
	require.Equal(t, []byte("hello"), rows[0].Val)

	_, err = c.SwapOut(&Ctx{}, false)
	require.NoError(t, err)
	require.Nil(t, o.Str)
	require.EqualValues(t, 1, o.Meta.ColdLen)

	intentionIn, _, err := c.Analyze(0, &keyrequest.KeyRequest{Intention: keyrequest.IntentionIn}, &Ctx{})
	require.NoError(t, err)
	require.Equal(t, keyrequest.IntentionIn, intentionIn)
	decoded, err := c.DecodeData([]Row{{CF: rows[0].CF, RawKey: rows[0].Key, RawVal: rows[0].Val}})
	require.NoError(t, err)
	_, err = c.CreateOrMerge(decoded, &Ctx{})
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), o.Str)
}

func TestContractForUnknownTypeErrors(t *testing.T) {
	_, err := ContractFor(codec.SwapType(99), &Object{})
	require.Error(t, err)
}
