package swapdata

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// listData implements spec.md §4.4's list variant: "segment-meta tracks
// which index ranges are in memory; analyze for LINDEX, LRANGE, LPOP, LPUSH
// consults the segment map, may swap-in one segment only." The raw-index
// space is monotonic and gap-free (unlike hash/set field names), so
// residency is tracked at the range level via objectmeta.SegmentExtend
// rather than per-element like hash's dirty-subkeys set.
type listData struct {
	o *Object
}

func (d *listData) segments() *objectmeta.SegmentExtend {
	if d.o.Meta == nil {
		return nil
	}
	seg, _ := d.o.Meta.Extend.(*objectmeta.SegmentExtend)
	return seg
}

func ridxKey(ridx int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ridx))
	return buf
}

func decodeRidx(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func (d *listData) Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	switch req.Intention {
	case keyrequest.IntentionNOP:
		return keyrequest.IntentionNOP, 0, nil
	case keyrequest.IntentionIn:
		return d.analyzeIn(req, ctx)
	case keyrequest.IntentionOut:
		if o.IsCold(len(o.List)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		return d.analyzeOut(req, ctx)
	case keyrequest.IntentionDel:
		return keyrequest.IntentionDel, 0, nil
	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: unhandled intention", swaperr.ErrAnalysisFailed)
	}
}

func (d *listData) analyzeIn(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		return keyrequest.IntentionNOP, 0, nil
	}
	lo, hi := req.SubkeySpec.IndexLo, req.SubkeySpec.IndexHi
	if req.SubkeySpec.Kind != keyrequest.SubkeyIndexRange || hi <= lo {
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: list request needs an index range", swaperr.ErrAnalysisFailed)
	}
	seg := d.segments()
	if seg != nil && seg.InMemoryRange(lo, hi) {
		return keyrequest.IntentionNOP, 0, nil
	}
	ctx.IndexLo, ctx.IndexHi = lo, hi
	return keyrequest.IntentionIn, 0, nil
}

// analyzeOut evicts the resident elements with the lowest raw indexes, up
// to the configured evict-step-subkeys count applied to element count
// rather than segment count. It does not pick by segment and does not
// exclude ranges a pending request asks for.
func (d *listData) analyzeOut(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeList, Extend: &objectmeta.SegmentExtend{}}
	}
	seg := d.segments()
	if seg == nil {
		seg = &objectmeta.SegmentExtend{}
		o.Meta.Extend = seg
	}

	var residentRidx []int64
	for ridx := range o.List {
		residentRidx = append(residentRidx, ridx)
	}
	sort.Slice(residentRidx, func(i, j int) bool { return residentRidx[i] < residentRidx[j] })

	maxElems := o.evictStepMaxSubkeys()
	if maxElems > len(residentRidx) {
		maxElems = len(residentRidx)
	}
	evict := residentRidx[:maxElems]
	ctx.Subkeys = make([][]byte, len(evict))
	for i, r := range evict {
		ctx.Subkeys[i] = ridxKey(r)
	}
	ctx.MayKeepData = len(evict) == len(residentRidx)
	ctx.NoSwap = len(o.DirtySubkeys) == 0 && !o.DataDirty

	if ctx.NoSwap {
		if err := d.CleanObject(ctx, true); err != nil {
			return keyrequest.IntentionNOP, 0, err
		}
		return keyrequest.IntentionNOP, 0, nil
	}

	flags := keyrequest.Flags(0)
	if ctx.MayKeepData {
		flags |= keyrequest.FlagOutKeepData
	}
	return keyrequest.IntentionOut, flags, nil
}

func (d *listData) ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action {
	switch intention {
	case keyrequest.IntentionIn:
		return ActionIterate
	case keyrequest.IntentionOut:
		return ActionPut
	case keyrequest.IntentionDel:
		return ActionDel
	default:
		return ActionNOP
	}
}

func (d *listData) version() uint64 {
	if d.o.Meta == nil {
		return 0
	}
	return d.o.Meta.Version
}

func (d *listData) EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, sk := range ctx.Subkeys {
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, sk)})
	}
	return out
}

func (d *listData) EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, sk := range ctx.Subkeys {
		ridx := decodeRidx(sk)
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, sk), Val: o.List[ridx]})
	}
	return out
}

func (d *listData) EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec {
	o := d.o
	version := d.version()
	start := codec.EncodeDataKey(uint32(o.DBID), o.Key, version, ridxKey(ctx.IndexLo))
	end := codec.EncodeDataKey(uint32(o.DBID), o.Key, version, ridxKey(ctx.IndexHi))
	return RangeSpec{CF: codec.CFData, Start: start, End: end}
}

func (d *listData) DecodeData(rows []Row) (interface{}, error) {
	decoded := make(map[int64][]byte, len(rows))
	for _, r := range rows {
		_, _, _, subkey, err := codec.DecodeDataKey(r.RawKey)
		if err != nil {
			return nil, err
		}
		decoded[decodeRidx(subkey)] = r.RawVal
	}
	return decoded, nil
}

func (d *listData) CreateOrMerge(decoded interface{}, ctx *Ctx) (interface{}, error) {
	o := d.o
	elems, ok := decoded.(map[int64][]byte)
	if !ok {
		return nil, fmt.Errorf("%w: list decode produced %T", swaperr.ErrDecodeMismatch, decoded)
	}
	if o.List == nil {
		o.List = make(map[int64][]byte, len(elems))
	}
	var lo, hi int64
	first := true
	for ridx, v := range elems {
		o.List[ridx] = v
		if first {
			lo, hi = ridx, ridx+1
			first = false
		} else {
			if ridx < lo {
				lo = ridx
			}
			if ridx+1 > hi {
				hi = ridx + 1
			}
		}
	}
	if seg := d.segments(); seg != nil && !first {
		seg.MarkInMemory(lo, hi)
	}
	if o.Meta != nil {
		n := uint64(len(elems))
		if n > o.Meta.ColdLen {
			o.Meta.ColdLen = 0
		} else {
			o.Meta.ColdLen -= n
		}
	}
	return elems, nil
}

func (d *listData) SwapIn(carry interface{}, ctx *Ctx) error { return nil }

func (d *listData) SwapOut(ctx *Ctx, keepData bool) (bool, error) {
	o := d.o
	if !keepData {
		if err := d.CleanObject(ctx, false); err != nil {
			return false, err
		}
	}
	o.Meta.ColdLen += uint64(len(ctx.Subkeys))
	return len(o.List) == 0, nil
}

func (d *listData) SwapDel(ctx *Ctx, skipData bool) error {
	o := d.o
	o.List = nil
	o.DirtySubkeys = nil
	o.Meta = nil
	return nil
}

func (d *listData) CleanObject(ctx *Ctx, keepData bool) error {
	if keepData {
		return nil
	}
	o := d.o
	for _, sk := range ctx.Subkeys {
		ridx := decodeRidx(sk)
		delete(o.List, ridx)
		delete(o.DirtySubkeys, strconv.FormatInt(ridx, 10))
		if seg := d.segments(); seg != nil {
			seg.MarkEvicted(ridx, ridx+1)
		}
	}
	return nil
}

func (d *listData) MergedIsHot(decoded interface{}, ctx *Ctx) bool {
	return d.o.Meta == nil || d.o.Meta.ColdLen == 0
}
