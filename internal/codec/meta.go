package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// SwapType is the closed tagged variant of value types (spec.md §3/§9). A
// static dispatch table keyed by SwapType selects the swapdata contract
// implementation; no virtual inheritance.
type SwapType byte

const (
	TypeString SwapType = iota
	TypeHash
	TypeSet
	TypeZSet
	TypeList
	TypeBitmap
)

func (t SwapType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeList:
		return "list"
	case TypeBitmap:
		return "bitmap"
	default:
		return "unknown"
	}
}

// EncodeMetaVal builds "type_tag(1) ∥ expire_ms(i64) ∥ version(u64) ∥ type_extend(var)".
func EncodeMetaVal(swapType SwapType, expireMs int64, version uint64, extend []byte) []byte {
	buf := make([]byte, 0, 1+8+8+len(extend))
	buf = append(buf, byte(swapType))
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(expireMs))
	buf = append(buf, tmp[:]...)
	buf = appendU64(buf, version)
	buf = append(buf, extend...)
	return buf
}

// DecodeMetaVal is the inverse of EncodeMetaVal.
func DecodeMetaVal(b []byte) (swapType SwapType, expireMs int64, version uint64, extend []byte, err error) {
	if len(b) < 1+8+8 {
		return 0, 0, 0, nil, fmt.Errorf("%w: meta value too short", swaperr.ErrDecodeMismatch)
	}
	swapType = SwapType(b[0])
	expireMs = int64(binary.BigEndian.Uint64(b[1:9]))
	version = binary.BigEndian.Uint64(b[9:17])
	if len(b) > 17 {
		extend = make([]byte, len(b)-17)
		copy(extend, b[17:])
	}
	return swapType, expireMs, version, extend, nil
}

// EncodeRDBValue wraps the host store's native object-serialization format.
// The codec package treats it as an opaque byte string produced by the
// caller-supplied encoder (the server's RDB object codec); this function
// only exists to give the operation a stable name/signature, mirroring
// spec.md §4.1's encode_rdb_value/decode_rdb_value pair.
func EncodeRDBValue(objectBytes []byte) []byte {
	out := make([]byte, len(objectBytes))
	copy(out, objectBytes)
	return out
}

// DecodeRDBValue is the inverse of EncodeRDBValue.
func DecodeRDBValue(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}
