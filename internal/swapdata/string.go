package swapdata

import (
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// stringData implements spec.md §4.4's string variant: "whole-key blob;
// meta-only on disk; IN pulls the string; OUT persists and deletes from
// RAM." There is no subkey axis at all — the whole value is the only unit.
type stringData struct {
	o *Object
}

func (d *stringData) Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	switch req.Intention {
	case keyrequest.IntentionNOP:
		return keyrequest.IntentionNOP, 0, nil
	case keyrequest.IntentionIn:
		if !o.Persisted() || o.Str != nil {
			return keyrequest.IntentionNOP, 0, nil
		}
		return keyrequest.IntentionIn, 0, nil
	case keyrequest.IntentionOut:
		if o.Meta == nil && o.Str != nil {
			o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeString}
		}
		if o.Str == nil {
			return keyrequest.IntentionNOP, 0, nil
		}
		return keyrequest.IntentionOut, 0, nil
	case keyrequest.IntentionDel:
		return keyrequest.IntentionDel, 0, nil
	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: unhandled intention", swaperr.ErrAnalysisFailed)
	}
}

func (d *stringData) ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action {
	switch intention {
	case keyrequest.IntentionIn:
		return ActionGet
	case keyrequest.IntentionOut:
		return ActionPut
	case keyrequest.IntentionDel:
		return ActionDel
	default:
		return ActionNOP
	}
}

func (d *stringData) version() uint64 {
	if d.o.Meta == nil {
		return 0
	}
	return d.o.Meta.Version
}

func (d *stringData) EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	return []KV{{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, d.version(), nil)}}
}

func (d *stringData) EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	return []KV{{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, d.version(), nil), Val: o.Str}}
}

func (d *stringData) EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec {
	start, end := codec.DataKeyRange(uint32(d.o.DBID), d.o.Key, d.version())
	return RangeSpec{CF: codec.CFData, Start: start, End: end}
}

func (d *stringData) DecodeData(rows []Row) (interface{}, error) {
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: string expects exactly one row, got %d", swaperr.ErrDecodeMismatch, len(rows))
	}
	return rows[0].RawVal, nil
}

func (d *stringData) CreateOrMerge(decoded interface{}, ctx *Ctx) (interface{}, error) {
	b, ok := decoded.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: string decode produced %T", swaperr.ErrDecodeMismatch, decoded)
	}
	d.o.Str = b
	if d.o.Meta != nil {
		d.o.Meta.ColdLen = 0
	}
	return b, nil
}

func (d *stringData) SwapIn(carry interface{}, ctx *Ctx) error { return nil }

func (d *stringData) SwapOut(ctx *Ctx, keepData bool) (bool, error) {
	o := d.o
	o.Meta.ColdLen = 1
	if !keepData {
		o.Str = nil
	}
	return !keepData, nil
}

func (d *stringData) SwapDel(ctx *Ctx, skipData bool) error {
	d.o.Str = nil
	d.o.Meta = nil
	return nil
}

func (d *stringData) CleanObject(ctx *Ctx, keepData bool) error {
	if !keepData {
		d.o.Str = nil
	}
	return nil
}

func (d *stringData) MergedIsHot(decoded interface{}, ctx *Ctx) bool {
	return d.o.Meta == nil || d.o.Meta.ColdLen == 0
}
