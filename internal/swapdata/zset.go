package swapdata

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// zsetData mirrors hashData (spec.md §4.4: "set, zset: mirror hash") but
// additionally maintains the Score CF so ZRANGEBYSCORE can scan members in
// score order without decoding the whole key. Every member row written to
// the Data CF (member -> score bytes) is paired with a Score CF row
// (score, member) -> empty so either axis can be scanned.
type zsetData struct {
	o *Object
}

func (d *zsetData) Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	switch req.Intention {
	case keyrequest.IntentionNOP:
		return keyrequest.IntentionNOP, 0, nil
	case keyrequest.IntentionIn:
		return d.analyzeIn(req, ctx)
	case keyrequest.IntentionOut:
		if o.IsCold(len(o.ZSet)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		return d.analyzeOut(req, ctx)
	case keyrequest.IntentionDel:
		return keyrequest.IntentionDel, 0, nil
	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: unhandled intention", swaperr.ErrAnalysisFailed)
	}
}

func (d *zsetData) analyzeIn(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		return keyrequest.IntentionNOP, 0, nil
	}

	if req.SubkeySpec.Kind == keyrequest.SubkeyScoreRange {
		ctx.ScoreRange = true
		ctx.ScoreLo, ctx.ScoreHi = req.SubkeySpec.ScoreLo, req.SubkeySpec.ScoreHi
		ctx.ScoreLoExcl, ctx.ScoreHiExcl = req.SubkeySpec.ScoreLoExcl, req.SubkeySpec.ScoreHiExcl
		return keyrequest.IntentionIn, 0, nil
	}

	if len(req.SubkeySpec.Subkeys) == 0 {
		if o.IsHot(len(o.ZSet)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		ctx.WholeRange = true
		return keyrequest.IntentionIn, 0, nil
	}

	selected := make([][]byte, 0, len(req.SubkeySpec.Subkeys))
	for _, sk := range req.SubkeySpec.Subkeys {
		if _, hot := o.ZSet[string(sk)]; hot {
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

func (d *zsetData) analyzeOut(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	maxSubkeys := o.evictStepMaxSubkeys()

	var candidates []string
	fromDirty := len(o.DirtySubkeys) > 0
	if o.DataDirty || !fromDirty {
		candidates = make([]string, 0, len(o.ZSet))
		for m := range o.ZSet {
			candidates = append(candidates, m)
		}
	} else {
		candidates = make([]string, 0, len(o.DirtySubkeys))
		for m := range o.DirtySubkeys {
			if _, ok := o.ZSet[m]; ok {
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
		o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeZSet, Extend: objectmeta.LengthExtend{}}
	}

	if noswap {
		if err := d.CleanObject(ctx, true); err != nil {
			return keyrequest.IntentionNOP, 0, err
		}
		if len(o.ZSet) == 0 {
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

func (d *zsetData) ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action {
	switch intention {
	case keyrequest.IntentionIn:
		if ctx.WholeRange || ctx.ScoreRange {
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

func (d *zsetData) version() uint64 {
	if d.o.Meta == nil {
		return 0
	}
	return d.o.Meta.Version
}

func (d *zsetData) EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, m := range ctx.Subkeys {
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, m)})
	}
	return out
}

func encodeScoreBytes(score float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, codec.EncodeScoreUint64(score))
	return buf
}

func decodeScoreBytes(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: zset score value must be 8 bytes", swaperr.ErrDecodeMismatch)
	}
	return codec.DecodeScoreUint64(binary.BigEndian.Uint64(b)), nil
}

// EncodeData emits both axes: the Data CF member->score row and the Score
// CF (score,member)->empty row, so either a GET-by-member or a
// ZRANGEBYSCORE range scan can be served without decoding the other.
func (d *zsetData) EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys)*2)
	for _, m := range ctx.Subkeys {
		score := o.ZSet[string(m)]
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, m), Val: encodeScoreBytes(score)})
		out = append(out, KV{CF: codec.CFScore, Key: codec.EncodeScoreKey(uint32(o.DBID), o.Key, version, score, m)})
	}
	return out
}

func (d *zsetData) EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec {
	o := d.o
	version := d.version()
	if ctx.ScoreRange {
		start, end := codec.ScoreKeyRange(uint32(o.DBID), o.Key, version, ctx.ScoreLo, ctx.ScoreHi)
		return RangeSpec{CF: codec.CFScore, Start: start, End: end}
	}
	start, end := codec.DataKeyRange(uint32(o.DBID), o.Key, version)
	return RangeSpec{CF: codec.CFData, Start: start, End: end}
}

// DecodeData accepts rows from either CF: Data CF rows carry member+score
// together, Score CF rows (from a ZRANGEBYSCORE scan) carry the score
// embedded in the key and no value.
func (d *zsetData) DecodeData(rows []Row) (interface{}, error) {
	decoded := make(map[string]float64, len(rows))
	for _, r := range rows {
		switch r.CF {
		case codec.CFData:
			_, _, _, member, err := codec.DecodeDataKey(r.RawKey)
			if err != nil {
				return nil, err
			}
			score, err := decodeScoreBytes(r.RawVal)
			if err != nil {
				return nil, err
			}
			decoded[string(member)] = score
		case codec.CFScore:
			_, _, _, score, member, err := codec.DecodeScoreKey(r.RawKey)
			if err != nil {
				return nil, err
			}
			decoded[string(member)] = score
		default:
			return nil, fmt.Errorf("%w: zset row from unexpected cf %v", swaperr.ErrDecodeMismatch, r.CF)
		}
	}
	return decoded, nil
}

func (d *zsetData) CreateOrMerge(decoded interface{}, ctx *Ctx) (interface{}, error) {
	o := d.o
	members, ok := decoded.(map[string]float64)
	if !ok {
		return nil, fmt.Errorf("%w: zset decode produced %T", swaperr.ErrDecodeMismatch, decoded)
	}
	if o.ZSet == nil {
		o.ZSet = make(map[string]float64, len(members))
	}
	for m, s := range members {
		o.ZSet[m] = s
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

func (d *zsetData) SwapIn(carry interface{}, ctx *Ctx) error { return nil }

func (d *zsetData) SwapOut(ctx *Ctx, keepData bool) (bool, error) {
	o := d.o
	if !keepData {
		if err := d.CleanObject(ctx, false); err != nil {
			return false, err
		}
	}
	o.Meta.ColdLen += uint64(len(ctx.Subkeys))
	return len(o.ZSet) == 0, nil
}

func (d *zsetData) SwapDel(ctx *Ctx, skipData bool) error {
	o := d.o
	o.ZSet = nil
	o.DirtySubkeys = nil
	o.Meta = nil
	return nil
}

func (d *zsetData) CleanObject(ctx *Ctx, keepData bool) error {
	if keepData {
		return nil
	}
	o := d.o
	for _, m := range ctx.Subkeys {
		delete(o.ZSet, string(m))
		delete(o.DirtySubkeys, string(m))
	}
	return nil
}

func (d *zsetData) MergedIsHot(decoded interface{}, ctx *Ctx) bool {
	return d.o.Meta == nil || d.o.Meta.ColdLen == 0
}
