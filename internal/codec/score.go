package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// EncodeScoreUint64 maps a float64 to a uint64 such that unsigned big-endian
// byte order of the result equals float64 order: if the sign bit is set
// (negative, including -0), invert all bits; otherwise just set the sign
// bit. This is the standard order-preserving double encoding cited in
// spec.md §4.1/§9.
func EncodeScoreUint64(score float64) uint64 {
	bits := math.Float64bits(score)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// DecodeScoreUint64 is the inverse of EncodeScoreUint64.
func DecodeScoreUint64(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

// EncodeScoreKey builds "dbid ∥ u32(keylen) ∥ key ∥ version ∥ f64(score) ∥ member".
func EncodeScoreKey(dbid uint32, key []byte, version uint64, score float64, member []byte) []byte {
	buf := make([]byte, 0, 4+4+len(key)+8+8+len(member))
	buf = appendU32(buf, dbid)
	buf = appendU32(buf, uint32(len(key)))
	buf = append(buf, key...)
	buf = appendU64(buf, version)
	buf = appendU64(buf, EncodeScoreUint64(score))
	buf = append(buf, member...)
	return buf
}

// DecodeScoreKey is the inverse of EncodeScoreKey.
func DecodeScoreKey(b []byte) (dbid uint32, key []byte, version uint64, score float64, member []byte, err error) {
	if len(b) < 8 {
		return 0, nil, 0, 0, nil, fmt.Errorf("%w: score key too short", swaperr.ErrDecodeMismatch)
	}
	dbid = binary.BigEndian.Uint32(b[0:4])
	klen := binary.BigEndian.Uint32(b[4:8])
	off := 8
	if uint32(len(b)-off) < klen+8+8 {
		return 0, nil, 0, 0, nil, fmt.Errorf("%w: score key truncated", swaperr.ErrDecodeMismatch)
	}
	key = make([]byte, klen)
	copy(key, b[off:off+int(klen)])
	off += int(klen)
	version = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	score = DecodeScoreUint64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	if off < len(b) {
		member = make([]byte, len(b)-off)
		copy(member, b[off:])
	}
	return dbid, key, version, score, member, nil
}

// ScoreKeyRange returns [start, end) bounds for a ZRANGEBYSCORE-style scan
// over [minScore, maxScore] (inclusive) within one key/version.
func ScoreKeyRange(dbid uint32, key []byte, version uint64, minScore, maxScore float64) (start, end []byte) {
	start = EncodeScoreKey(dbid, key, version, minScore, nil)
	// end is exclusive: bump the encoded score's uint64 form by one so the
	// bound sits strictly after every member at maxScore.
	endBits := EncodeScoreUint64(maxScore) + 1
	end = EncodeScoreKey(dbid, key, version, 0, nil)
	binary.BigEndian.PutUint64(end[len(end)-8:], endBits)
	return start, end
}
