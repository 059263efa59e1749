package swapdata

import (
	"fmt"
	"sort"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// hashData is the reference swap-type implementation spec.md §4.4 calls
// out by name; every other type mirrors its shape. Grounded on
// hashSwapAna/hashSwapAnaOutSelectSubkeys/hashCreateOrMergeObject in
// original_source/src/ctrip_swap_hash.c.
type hashData struct {
	o *Object
}

func (d *hashData) Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	switch req.Intention {
	case keyrequest.IntentionNOP:
		return keyrequest.IntentionNOP, 0, nil

	case keyrequest.IntentionIn:
		return d.analyzeIn(req, ctx)

	case keyrequest.IntentionOut:
		if o.IsCold(len(o.Hash)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		return d.analyzeOut(req, ctx)

	case keyrequest.IntentionDel:
		return keyrequest.IntentionDel, 0, nil

	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: unhandled intention", swaperr.ErrAnalysisFailed)
	}
}

// analyzeIn mirrors hashSwapAna's SWAP_IN branch: a hot (never-persisted)
// key always NOPs; otherwise an explicit subkey list is filtered through
// the cold filter (subkeys the filter can prove absent are dropped, never
// fetched), and an empty list means "swap the whole key in".
func (d *hashData) analyzeIn(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		return keyrequest.IntentionNOP, 0, nil
	}

	if req.IntentionFlags.Has(keyrequest.FlagInDel) {
		// DEL/UNLINK lazily dropping a key that still has disk rows.
		if o.Meta.ColdLen == 0 {
			return keyrequest.IntentionDel, keyrequest.FlagSkipFin, nil
		}
		flags := keyrequest.FlagInDel
		ctx.WholeRange = true
		return keyrequest.IntentionIn, flags, nil
	}

	if len(req.SubkeySpec.Subkeys) == 0 {
		if o.IsHot(len(o.Hash)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		ctx.WholeRange = true
		return keyrequest.IntentionIn, 0, nil
	}

	selected := make([][]byte, 0, len(req.SubkeySpec.Subkeys))
	for _, sk := range req.SubkeySpec.Subkeys {
		if _, hot := o.Hash[string(sk)]; hot {
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

// analyzeOut mirrors hashSwapAnaOutSelectSubkeys: prefer the dirty-subkeys
// delta when one exists, otherwise fall back to a bounded scan of the
// whole in-memory hash, capped by the evict-step limits.
func (d *hashData) analyzeOut(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	maxSubkeys := o.evictStepMaxSubkeys()
	maxMemory := o.evictStepMaxMemory()

	var candidates []string
	fromDirty := len(o.DirtySubkeys) > 0
	if o.DataDirty || !fromDirty {
		candidates = make([]string, 0, len(o.Hash))
		for f := range o.Hash {
			candidates = append(candidates, f)
		}
		sort.Strings(candidates) // deterministic selection order
	} else {
		candidates = make([]string, 0, len(o.DirtySubkeys))
		for f := range o.DirtySubkeys {
			if _, ok := o.Hash[f]; ok { // dirty-subkeys entries may be stale
				candidates = append(candidates, f)
			}
		}
		sort.Strings(candidates)
	}

	noswap := !o.DataDirty && !fromDirty
	evictMemory := 0
	mayKeepData := true
	subkeys := make([][]byte, 0, maxSubkeys)
	for _, f := range candidates {
		if len(subkeys) >= maxSubkeys || evictMemory >= maxMemory {
			if !noswap {
				mayKeepData = false
			}
			break
		}
		subkeys = append(subkeys, []byte(f))
		evictMemory += len(o.Hash[f])
	}

	ctx.Subkeys = subkeys
	ctx.MayKeepData = mayKeepData
	ctx.NoSwap = noswap

	if !o.Persisted() {
		o.Meta = &objectmeta.Meta{
			Version:  o.NextVersion(),
			SwapType: codec.TypeHash,
			Extend:   objectmeta.LengthExtend{},
		}
	}

	if noswap {
		if err := d.CleanObject(ctx, true); err != nil {
			return keyrequest.IntentionNOP, 0, err
		}
		if len(o.Hash) == 0 {
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

func (d *hashData) ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action {
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

func (d *hashData) subkeyVersion() uint64 {
	if d.o.Meta == nil {
		return 0
	}
	return d.o.Meta.Version
}

func (d *hashData) EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.subkeyVersion()
	dbid := uint32(o.DBID)
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, sk := range ctx.Subkeys {
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(dbid, o.Key, version, sk)})
	}
	return out
}

func (d *hashData) EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.subkeyVersion()
	dbid := uint32(o.DBID)
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, sk := range ctx.Subkeys {
		val := o.Hash[string(sk)]
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(dbid, o.Key, version, sk), Val: val})
	}
	return out
}

func (d *hashData) EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec {
	o := d.o
	version := d.subkeyVersion()
	start, end := codec.DataKeyRange(uint32(o.DBID), o.Key, version)
	return RangeSpec{CF: codec.CFData, Start: start, End: end}
}

// DecodeData turns raw Data CF rows back into field->value pairs.
func (d *hashData) DecodeData(rows []Row) (interface{}, error) {
	decoded := make(map[string][]byte, len(rows))
	for _, r := range rows {
		_, _, _, subkey, err := codec.DecodeDataKey(r.RawKey)
		if err != nil {
			return nil, err
		}
		decoded[string(subkey)] = r.RawVal
	}
	return decoded, nil
}

// CreateOrMerge installs decoded fields (cold->warm) or folds them into an
// already-resident hash (warm->warmer), mirroring hashCreateOrMergeObject.
func (d *hashData) CreateOrMerge(decoded interface{}, ctx *Ctx) (interface{}, error) {
	o := d.o
	fields, ok := decoded.(map[string][]byte)
	if !ok {
		return nil, fmt.Errorf("%w: hash decode produced %T", swaperr.ErrDecodeMismatch, decoded)
	}
	if o.Hash == nil {
		o.Hash = make(map[string][]byte, len(fields))
	}
	for f, v := range fields {
		o.Hash[f] = v
	}
	if o.Meta != nil {
		n := uint64(len(fields))
		if n > o.Meta.ColdLen {
			o.Meta.ColdLen = 0
		} else {
			o.Meta.ColdLen -= n
		}
	}
	return fields, nil
}

// SwapIn installs carry (the fields CreateOrMerge already folded in) as
// resident; for hash the merge step already mutated o.Hash directly, so
// there is nothing further to install.
func (d *hashData) SwapIn(carry interface{}, ctx *Ctx) error { return nil }

// SwapOut persists ctx.Subkeys (already written to rocks by the executor
// before SwapOut runs) and, unless keepData, evicts them from memory; if
// every field is now gone the key turns cold.
func (d *hashData) SwapOut(ctx *Ctx, keepData bool) (bool, error) {
	o := d.o
	if !keepData {
		if err := d.CleanObject(ctx, false); err != nil {
			return false, err
		}
	}
	o.Meta.ColdLen += uint64(len(ctx.Subkeys))
	totallyOut := len(o.Hash) == 0
	return totallyOut, nil
}

// SwapDel clears the in-memory hash, dirty set and meta once a delete has
// been carried out; it touches no rocks rows (the executor's runDel deletes
// the meta row), and skipData does not change what it does.
func (d *hashData) SwapDel(ctx *Ctx, skipData bool) error {
	o := d.o
	o.Hash = nil
	o.DirtySubkeys = nil
	o.Meta = nil
	return nil
}

// CleanObject drops ctx.Subkeys from the in-memory hash; with keepData
// true it returns without dropping anything.
func (d *hashData) CleanObject(ctx *Ctx, keepData bool) error {
	o := d.o
	if keepData {
		return nil
	}
	for _, sk := range ctx.Subkeys {
		delete(o.Hash, string(sk))
		delete(o.DirtySubkeys, string(sk))
	}
	return nil
}

// MergedIsHot reports whether, after folding decoded in, cold_len has
// returned to zero (everything that was on disk is now resident) — exec
// consults this to know whether an IN-then-DEL must also drop the meta.
func (d *hashData) MergedIsHot(decoded interface{}, ctx *Ctx) bool {
	return d.o.Meta == nil || d.o.Meta.ColdLen == 0
}
