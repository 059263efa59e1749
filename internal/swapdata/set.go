package swapdata

import (
	"fmt"
	"sort"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// setData mirrors hashData per spec.md §4.4 ("set, zset: mirror hash");
// the only structural difference is that a set member has no associated
// value, so the Data CF row is member-as-subkey with an empty payload.
type setData struct {
	o *Object
}

func (d *setData) Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	switch req.Intention {
	case keyrequest.IntentionNOP:
		return keyrequest.IntentionNOP, 0, nil
	case keyrequest.IntentionIn:
		return d.analyzeIn(req, ctx)
	case keyrequest.IntentionOut:
		if o.IsCold(len(o.Set)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		return d.analyzeOut(req, ctx)
	case keyrequest.IntentionDel:
		return keyrequest.IntentionDel, 0, nil
	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: unhandled intention", swaperr.ErrAnalysisFailed)
	}
}

func (d *setData) analyzeIn(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		return keyrequest.IntentionNOP, 0, nil
	}
	if len(req.SubkeySpec.Subkeys) == 0 {
		if o.IsHot(len(o.Set)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		ctx.WholeRange = true
		return keyrequest.IntentionIn, 0, nil
	}
	selected := make([][]byte, 0, len(req.SubkeySpec.Subkeys))
	for _, sk := range req.SubkeySpec.Subkeys {
		if _, hot := o.Set[string(sk)]; hot {
			continue
		}
		if o.Filter != nil && o.Filter.KnownAbsent(o.Key, sk) {
			continue
		}
		selected = append(selected, sk)
	}
	ctx.Subkeys = selected
	if len(selected) == 0 {
		return keyrequest.IntentionNOP, 0, nil
	}
	return keyrequest.IntentionIn, 0, nil
}

func (d *setData) analyzeOut(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	maxSubkeys := o.evictStepMaxSubkeys()

	var candidates []string
	fromDirty := len(o.DirtySubkeys) > 0
	if o.DataDirty || !fromDirty {
		candidates = make([]string, 0, len(o.Set))
		for m := range o.Set {
			candidates = append(candidates, m)
		}
	} else {
		candidates = make([]string, 0, len(o.DirtySubkeys))
		for m := range o.DirtySubkeys {
			if _, ok := o.Set[m]; ok {
				candidates = append(candidates, m)
			}
		}
	}
	sort.Strings(candidates)

	noswap := !o.DataDirty && !fromDirty
	mayKeepData := true
	subkeys := make([][]byte, 0, maxSubkeys)
	for _, m := range candidates {
		if len(subkeys) >= maxSubkeys {
			if !noswap {
				mayKeepData = false
			}
			break
		}
		subkeys = append(subkeys, []byte(m))
	}
	ctx.Subkeys = subkeys
	ctx.MayKeepData = mayKeepData
	ctx.NoSwap = noswap

	if !o.Persisted() {
		o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeSet, Extend: objectmeta.LengthExtend{}}
	}

	if noswap {
		if err := d.CleanObject(ctx, true); err != nil {
			return keyrequest.IntentionNOP, 0, err
		}
		if len(o.Set) == 0 {
			o.Meta.ColdLen += uint64(len(subkeys))
		}
		return keyrequest.IntentionNOP, 0, nil
	}

	flags := keyrequest.Flags(0)
	if mayKeepData {
		flags |= keyrequest.FlagOutKeepData
	}
	return keyrequest.IntentionOut, flags, nil
}

func (d *setData) ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action {
	switch intention {
	case keyrequest.IntentionIn:
		if ctx.WholeRange {
			return ActionIterate
		}
		return ActionGet
	case keyrequest.IntentionOut:
		return ActionPut
	case keyrequest.IntentionDel:
		return ActionDel
	default:
		return ActionNOP
	}
}

func (d *setData) version() uint64 {
	if d.o.Meta == nil {
		return 0
	}
	return d.o.Meta.Version
}

func (d *setData) EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, m := range ctx.Subkeys {
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, m)})
	}
	return out
}

func (d *setData) EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, m := range ctx.Subkeys {
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, m), Val: []byte{}})
	}
	return out
}

func (d *setData) EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec {
	start, end := codec.DataKeyRange(uint32(d.o.DBID), d.o.Key, d.version())
	return RangeSpec{CF: codec.CFData, Start: start, End: end}
}

func (d *setData) DecodeData(rows []Row) (interface{}, error) {
	decoded := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		_, _, _, subkey, err := codec.DecodeDataKey(r.RawKey)
		if err != nil {
			return nil, err
		}
		decoded[string(subkey)] = struct{}{}
	}
	return decoded, nil
}

func (d *setData) CreateOrMerge(decoded interface{}, ctx *Ctx) (interface{}, error) {
	o := d.o
	members, ok := decoded.(map[string]struct{})
	if !ok {
		return nil, fmt.Errorf("%w: set decode produced %T", swaperr.ErrDecodeMismatch, decoded)
	}
	if o.Set == nil {
		o.Set = make(map[string]struct{}, len(members))
	}
	for m := range members {
		o.Set[m] = struct{}{}
	}
	if o.Meta != nil {
		n := uint64(len(members))
		if n > o.Meta.ColdLen {
			o.Meta.ColdLen = 0
		} else {
			o.Meta.ColdLen -= n
		}
	}
	return members, nil
}

func (d *setData) SwapIn(carry interface{}, ctx *Ctx) error { return nil }

func (d *setData) SwapOut(ctx *Ctx, keepData bool) (bool, error) {
	o := d.o
	if !keepData {
		if err := d.CleanObject(ctx, false); err != nil {
			return false, err
		}
	}
	o.Meta.ColdLen += uint64(len(ctx.Subkeys))
	return len(o.Set) == 0, nil
}

func (d *setData) SwapDel(ctx *Ctx, skipData bool) error {
	o := d.o
	o.Set = nil
	o.DirtySubkeys = nil
	o.Meta = nil
	return nil
}

func (d *setData) CleanObject(ctx *Ctx, keepData bool) error {
	if keepData {
		return nil
	}
	o := d.o
	for _, m := range ctx.Subkeys {
		delete(o.Set, string(m))
		delete(o.DirtySubkeys, string(m))
	}
	return nil
}

func (d *setData) MergedIsHot(decoded interface{}, ctx *Ctx) bool {
	return d.o.Meta == nil || d.o.Meta.ColdLen == 0
}
