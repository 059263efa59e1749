// Package swapdata implements spec.md §4.4: the polymorphic swap-data
// contract, one implementation per value swap-type, dispatched through a
// static table keyed by codec.SwapType rather than virtual inheritance (per
// spec.md §9's design note). hash.go is the reference implementation;
// set/zset mirror it, list/bitmap additionally consult a residency map
// (objectmeta.SegmentExtend / BucketExtend) before deciding which rows they
// need.
//
// Grounded on original_source/src/ctrip_swap_hash.c (hashSwapAna family) and
// ctrip_swap_set.c, re-expressed against Go maps/slices in place of Redis's
// hashTypeIterator/dirtySubkeys machinery.
package swapdata

import (
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/coldfilter"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// Action is the rocks primitive choose_action maps an intention down to.
type Action int

const (
	ActionNOP Action = iota
	ActionGet
	ActionIterate
	ActionPut
	ActionDel
)

func (a Action) String() string {
	switch a {
	case ActionNOP:
		return "NOP"
	case ActionGet:
		return "GET"
	case ActionIterate:
		return "ITERATE"
	case ActionPut:
		return "PUT"
	case ActionDel:
		return "DEL"
	default:
		return "?"
	}
}

// KV is one (column family, raw key[, raw value]) row produced by
// encode_keys/encode_data or consumed by decode_data.
type KV struct {
	CF  codec.CF
	Key []byte
	Val []byte // unset for encode_keys (GET/DEL only need the key)
}

// RangeSpec is the (cf, flags, start, end, limit) tuple encode_range
// produces for an ITERATE action.
type RangeSpec struct {
	CF      codec.CF
	Reverse bool
	Start   []byte
	End     []byte
	Limit   int
}

// Ctx is the per-request scratch space analyze() writes into and every
// later stage reads from; one Ctx is created per keyRequest and discarded
// once the request's listener fires. It folds together the union of
// per-type datactx flavors the original keeps as separate C structs (hash's
// hashDataCtx, list's segment ctx, bitmap's bucket ctx) since Go has no
// cheap tagged-union story that beats one struct with unused fields.
type Ctx struct {
	// Subkeys is the resolved, filtered subkey list for IN/OUT/DEL.
	Subkeys [][]byte

	// WholeRange is set when IN should iterate the entire key (empty
	// subkey list on the keyRequest): encode_range instead of encode_keys.
	WholeRange bool

	// IndexLo/IndexHi is the list raw-index span analyze resolved.
	IndexLo, IndexHi int64

	// ScoreLo/ScoreHi is the zset score span analyze resolved; ScoreRange
	// marks that encode_range should scan the Score CF (ZRANGEBYSCORE)
	// rather than WholeRange's Data CF scan.
	ScoreLo, ScoreHi         float64
	ScoreLoExcl, ScoreHiExcl bool
	ScoreRange               bool

	// ByteLo/ByteHi is the bitmap byte-bucket span analyze resolved.
	ByteLo, ByteHi int64

	// MayKeepData mirrors hashSwapAnaOutSelectSubkeys's may_keep_data: true
	// when every candidate subkey was selected (nothing left dirty), so the
	// in-memory copy can be kept after persisting.
	MayKeepData bool

	// NoSwap mirrors the original's "noswap" fast path: everything
	// selected was already clean, so OUT degrades to a pure in-memory
	// evict with no rocks I/O at all.
	NoSwap bool
}

// Row is one (cf, raw key, raw value) tuple read back from rocks, fed into
// decode_data.
type Row struct {
	CF     codec.CF
	RawKey []byte
	RawVal []byte
}

// Contract is the operation set every swap-type implements (spec.md §4.4).
// decoded/carry are left as interface{} because each type's shape differs
// (a map of subkey->value for hash/set, a float64 score map for zset, a
// bucket-index->bytes map for bitmap) and nothing downstream of create_or_merge needs to
// see across types.
type Contract interface {
	Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error)
	ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action
	EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV
	EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV
	EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec
	DecodeData(rows []Row) (decoded interface{}, err error)
	CreateOrMerge(decoded interface{}, ctx *Ctx) (carry interface{}, err error)
	SwapIn(carry interface{}, ctx *Ctx) error
	SwapOut(ctx *Ctx, keepData bool) (totallyOut bool, err error)
	SwapDel(ctx *Ctx, skipData bool) error
	CleanObject(ctx *Ctx, keepData bool) error
	MergedIsHot(decoded interface{}, ctx *Ctx) bool
}

// Object is the single concrete runtime value the swap-data layer manages;
// each swap-type's Contract implementation is a thin method set bound to
// one Object, reading/writing the fields relevant to its SwapType and
// ignoring the rest (the "one variant of a polymorphic entity" from
// spec.md §3, statically dispatched instead of via an interface hierarchy).
type Object struct {
	DBID int
	Key  []byte
	Meta *objectmeta.Meta

	// ExpireMs is the key's absolute expire time in milliseconds (0 means
	// no expiry), carried through to the Meta CF row's expire_ms field
	// (spec.md §4.1's "value = type_tag(1) ∥ expire_ms(i64) ∥ ...").
	ExpireMs int64

	Filter *coldfilter.Filter // per-db cold filter, consulted by analyze(IN)

	Hash map[string][]byte
	Set  map[string]struct{}
	ZSet map[string]float64
	// List holds resident elements keyed by raw (monotonic) index; absent
	// indices within [0, Length) are evicted, tracked by the Meta's
	// SegmentExtend.
	List map[int64][]byte
	// Bits holds resident byte-buckets keyed by bucket index (see
	// objectmeta.BucketExtend / BucketSize); absent buckets are evicted.
	Bits map[int64][]byte
	Str  []byte

	// DirtySubkeys mirrors the original's dirty-subkeys auxiliary
	// structure: subkeys mutated in memory since the last persist, tracked
	// separately from full-object dirtiness so analyze(OUT) can persist
	// just the delta.
	DirtySubkeys map[string]struct{}
	DataDirty    bool // whole value dirty (e.g. just loaded, never persisted)
	MetaDirty    bool

	NextVersion func() uint64 // objectmeta.Store.NextVersion, injected

	// EvictStepMaxSubkeys/EvictStepMaxMemory bound one OUT step the way
	// server.swap_evict_step_max_subkeys/_memory do in the original: a big
	// hash/set/zset is evicted across several commands rather than all at
	// once. Zero means "use the package default" (see defaultEvictStep*).
	EvictStepMaxSubkeys int
	EvictStepMaxMemory  int
}

const (
	defaultEvictStepMaxSubkeys = 100
	defaultEvictStepMaxMemory  = 1 << 20
)

func (o *Object) evictStepMaxSubkeys() int {
	if o.EvictStepMaxSubkeys > 0 {
		return o.EvictStepMaxSubkeys
	}
	return defaultEvictStepMaxSubkeys
}

func (o *Object) evictStepMaxMemory() int {
	if o.EvictStepMaxMemory > 0 {
		return o.EvictStepMaxMemory
	}
	return defaultEvictStepMaxMemory
}

// Persisted reports whether this key has ever been written to rocks (has
// object meta), mirroring swapDataPersisted.
func (o *Object) Persisted() bool { return o.Meta != nil }

// IsCold reports cold_len > 0 with no in-memory value bytes.
func (o *Object) IsCold(valueLen int) bool {
	return o.Meta != nil && valueLen == 0 && o.Meta.ColdLen > 0
}

// IsHot reports a fully-resident key: either never persisted, or persisted
// with cold_len == 0.
func (o *Object) IsHot(valueLen int) bool {
	return o.Meta == nil || (o.Meta.ColdLen == 0 && valueLen > 0)
}

// MetaCFKey builds this object's Meta CF row key, usable even before Meta
// exists (a DEL on a never-persisted key still needs the key to issue a
// harmless no-op delete).
func (o *Object) MetaCFKey() []byte {
	return codec.EncodeMetaKey(uint32(o.DBID), o.Key)
}

// EncodeMetaRow builds this object's current Meta CF row, called by the
// executor after a successful OUT multi-put (spec.md §4.6: "meta write
// follows data write"). type_extend is left empty: the residency Extend
// (SegmentExtend/BucketExtend) is server-thread RAM bookkeeping rebuilt as
// subkeys swap back in, not a value the disk row needs to carry.
func (o *Object) EncodeMetaRow() KV {
	return KV{
		CF:  codec.CFMeta,
		Key: codec.EncodeMetaKey(uint32(o.DBID), o.Key),
		Val: codec.EncodeMetaVal(o.Meta.SwapType, o.ExpireMs, o.Meta.Version, nil),
	}
}

// ContractFor returns the Contract bound to o for swapType, implementing
// the "static dispatch table keyed by swap_type" spec.md §9 calls for.
func ContractFor(swapType codec.SwapType, o *Object) (Contract, error) {
	switch swapType {
	case codec.TypeString:
		return &stringData{o: o}, nil
	case codec.TypeHash:
		return &hashData{o: o}, nil
	case codec.TypeSet:
		return &setData{o: o}, nil
	case codec.TypeZSet:
		return &zsetData{o: o}, nil
	case codec.TypeList:
		return &listData{o: o}, nil
	case codec.TypeBitmap:
		return &bitmapData{o: o}, nil
	default:
		return nil, fmt.Errorf("%w: unknown swap type %v", swaperr.ErrAnalysisFailed, swapType)
	}
}
