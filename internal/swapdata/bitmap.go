package swapdata

import (
	"encoding/binary"
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// bitmapData implements spec.md §4.4's bitmap variant: "bucket-meta of
// fixed-size byte buckets; analyze for GETBIT/SETBIT/BITCOUNT/BITPOS
// resolves the offset/range to a bucket-range request." Each bucket
// (objectmeta.BucketSize bytes) is the unit of residency and of a Data CF
// row, keyed by its bucket index.
type bitmapData struct {
	o *Object
}

func (d *bitmapData) buckets() *objectmeta.BucketExtend {
	if d.o.Meta == nil {
		return nil
	}
	b, _ := d.o.Meta.Extend.(*objectmeta.BucketExtend)
	return b
}

func bucketKey(bucket uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, bucket)
	return buf
}

func decodeBucket(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

func (d *bitmapData) Analyze(thread int, req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	switch req.Intention {
	case keyrequest.IntentionNOP:
		return keyrequest.IntentionNOP, 0, nil
	case keyrequest.IntentionIn:
		return d.analyzeIn(req, ctx)
	case keyrequest.IntentionOut:
		if o.IsCold(len(o.Bits)) {
			return keyrequest.IntentionNOP, 0, nil
		}
		return d.analyzeOut(req, ctx)
	case keyrequest.IntentionDel:
		return keyrequest.IntentionDel, 0, nil
	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: unhandled intention", swaperr.ErrAnalysisFailed)
	}
}

func (d *bitmapData) analyzeIn(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		return keyrequest.IntentionNOP, 0, nil
	}

	var byteLo, byteHi int64
	switch req.SubkeySpec.Kind {
	case keyrequest.SubkeyBitmapOffset:
		byteLo = req.SubkeySpec.BitOffset / 8
		byteHi = byteLo + 1
	case keyrequest.SubkeyBitmapByteRange:
		byteLo, byteHi = req.SubkeySpec.ByteLo, req.SubkeySpec.ByteHi
	default:
		return keyrequest.IntentionNOP, 0, fmt.Errorf("%w: bitmap request needs an offset or byte range", swaperr.ErrAnalysisFailed)
	}

	buckets := d.buckets()
	fromB, toB := objectmeta.BucketOf(byteLo), objectmeta.BucketOf(byteHi-1)
	var missing []uint32
	if buckets != nil {
		missing = buckets.MissingBuckets(fromB, toB)
	} else {
		for b := fromB; b <= toB; b++ {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		return keyrequest.IntentionNOP, 0, nil
	}
	ctx.ByteLo, ctx.ByteHi = int64(missing[0])*objectmeta.BucketSize, (int64(missing[len(missing)-1])+1)*objectmeta.BucketSize
	for _, b := range missing {
		ctx.Subkeys = append(ctx.Subkeys, bucketKey(b))
	}
	return keyrequest.IntentionIn, 0, nil
}

func (d *bitmapData) analyzeOut(req *keyrequest.KeyRequest, ctx *Ctx) (keyrequest.Intention, keyrequest.Flags, error) {
	o := d.o
	if !o.Persisted() {
		o.Meta = &objectmeta.Meta{Version: o.NextVersion(), SwapType: codec.TypeBitmap, Extend: objectmeta.NewBucketExtend()}
	}
	buckets := d.buckets()
	if buckets == nil {
		buckets = objectmeta.NewBucketExtend()
		o.Meta.Extend = buckets
	}

	maxBuckets := o.evictStepMaxSubkeys()
	n := 0
	for b := range o.Bits {
		if n >= maxBuckets {
			break
		}
		ctx.Subkeys = append(ctx.Subkeys, bucketKey(uint32(b)))
		n++
	}
	ctx.MayKeepData = n == len(o.Bits)
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

func (d *bitmapData) ChooseAction(intention keyrequest.Intention, ctx *Ctx) Action {
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

func (d *bitmapData) version() uint64 {
	if d.o.Meta == nil {
		return 0
	}
	return d.o.Meta.Version
}

func (d *bitmapData) EncodeKeys(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, sk := range ctx.Subkeys {
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, sk)})
	}
	return out
}

func (d *bitmapData) EncodeData(intention keyrequest.Intention, ctx *Ctx) []KV {
	o := d.o
	version := d.version()
	out := make([]KV, 0, len(ctx.Subkeys))
	for _, sk := range ctx.Subkeys {
		b := decodeBucket(sk)
		out = append(out, KV{CF: codec.CFData, Key: codec.EncodeDataKey(uint32(o.DBID), o.Key, version, sk), Val: o.Bits[int64(b)]})
	}
	return out
}

func (d *bitmapData) EncodeRange(intention keyrequest.Intention, ctx *Ctx) RangeSpec {
	o := d.o
	version := d.version()
	fromB, toB := objectmeta.BucketOf(ctx.ByteLo), objectmeta.BucketOf(ctx.ByteHi-1)
	start := codec.EncodeDataKey(uint32(o.DBID), o.Key, version, bucketKey(fromB))
	end := codec.EncodeDataKey(uint32(o.DBID), o.Key, version, bucketKey(toB+1))
	return RangeSpec{CF: codec.CFData, Start: start, End: end}
}

func (d *bitmapData) DecodeData(rows []Row) (interface{}, error) {
	decoded := make(map[int64][]byte, len(rows))
	for _, r := range rows {
		_, _, _, subkey, err := codec.DecodeDataKey(r.RawKey)
		if err != nil {
			return nil, err
		}
		decoded[int64(decodeBucket(subkey))] = r.RawVal
	}
	return decoded, nil
}

func (d *bitmapData) CreateOrMerge(decoded interface{}, ctx *Ctx) (interface{}, error) {
	o := d.o
	buckets, ok := decoded.(map[int64][]byte)
	if !ok {
		return nil, fmt.Errorf("%w: bitmap decode produced %T", swaperr.ErrDecodeMismatch, decoded)
	}
	if o.Bits == nil {
		o.Bits = make(map[int64][]byte, len(buckets))
	}
	ext := d.buckets()
	for b, v := range buckets {
		o.Bits[b] = v
		if ext != nil {
			ext.MarkResident(uint32(b))
		}
	}
	if o.Meta != nil {
		n := uint64(len(buckets))
		if n > o.Meta.ColdLen {
			o.Meta.ColdLen = 0
		} else {
			o.Meta.ColdLen -= n
		}
	}
	return buckets, nil
}

func (d *bitmapData) SwapIn(carry interface{}, ctx *Ctx) error { return nil }

func (d *bitmapData) SwapOut(ctx *Ctx, keepData bool) (bool, error) {
	o := d.o
	if !keepData {
		if err := d.CleanObject(ctx, false); err != nil {
			return false, err
		}
	}
	o.Meta.ColdLen += uint64(len(ctx.Subkeys))
	return len(o.Bits) == 0, nil
}

func (d *bitmapData) SwapDel(ctx *Ctx, skipData bool) error {
	o := d.o
	o.Bits = nil
	o.DirtySubkeys = nil
	o.Meta = nil
	return nil
}

func (d *bitmapData) CleanObject(ctx *Ctx, keepData bool) error {
	if keepData {
		return nil
	}
	o := d.o
	ext := d.buckets()
	for _, sk := range ctx.Subkeys {
		b := decodeBucket(sk)
		delete(o.Bits, int64(b))
		if ext != nil {
			ext.MarkEvicted(b)
		}
	}
	return nil
}

func (d *bitmapData) MergedIsHot(decoded interface{}, ctx *Ctx) bool {
	return d.o.Meta == nil || d.o.Meta.ColdLen == 0
}
