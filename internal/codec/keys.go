// Package codec implements the pure, stateless encode/decode functions of
// spec.md §4.1: meta keys, data keys, score keys, meta values, and the
// iterator bounds derived from them. All layouts are byte-for-byte as
// specified so that lexicographic iteration of a column family matches the
// intended subkey order.
//
// Key layout follows the teacher's own prefix-plus-big-endian-suffix
// convention (common/dbutils/bucket.go's "HeaderPrefix + num + hash" keys,
// ethdb/bitmapdb's big-endian shard suffixes) rather than a generic
// serialization library.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// DataFlag distinguishes whole-key (string) rows from subkey rows in the
// Data CF. Subkey's successor byte forms the upper iteration bound for one
// key's subkey range.
type DataFlag byte

const (
	FlagWholeKey DataFlag = 0
	FlagSubkey   DataFlag = 1
)

// successor returns the flag value one greater than f, used as the open
// upper bound of a key's subkey range.
func (f DataFlag) successor() DataFlag { return f + 1 }

// EncodeMetaKey builds "dbid ∥ u32(keylen) ∥ key".
func EncodeMetaKey(dbid uint32, key []byte) []byte {
	buf := make([]byte, 0, 4+4+len(key))
	buf = appendU32(buf, dbid)
	buf = appendU32(buf, uint32(len(key)))
	buf = append(buf, key...)
	return buf
}

// DecodeMetaKey is the inverse of EncodeMetaKey.
func DecodeMetaKey(b []byte) (dbid uint32, key []byte, err error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("%w: meta key too short", swaperr.ErrDecodeMismatch)
	}
	dbid = binary.BigEndian.Uint32(b[0:4])
	klen := binary.BigEndian.Uint32(b[4:8])
	if uint32(len(b)-8) != klen {
		return 0, nil, fmt.Errorf("%w: meta key length mismatch", swaperr.ErrDecodeMismatch)
	}
	key = make([]byte, klen)
	copy(key, b[8:])
	return dbid, key, nil
}

// EncodeDataKey builds "dbid ∥ u32(keylen) ∥ key ∥ flag(1) ∥ version(u64) ∥ subkey".
// A nil subkey with flag=FlagWholeKey encodes the string whole-key row.
func EncodeDataKey(dbid uint32, key []byte, version uint64, subkey []byte) []byte {
	flag := FlagSubkey
	if subkey == nil {
		flag = FlagWholeKey
	}
	buf := make([]byte, 0, 4+4+len(key)+1+8+len(subkey))
	buf = appendU32(buf, dbid)
	buf = appendU32(buf, uint32(len(key)))
	buf = append(buf, key...)
	buf = append(buf, byte(flag))
	buf = appendU64(buf, version)
	buf = append(buf, subkey...)
	return buf
}

// DecodeDataKey is the inverse of EncodeDataKey. subkey is nil for
// whole-key rows.
func DecodeDataKey(b []byte) (dbid uint32, key []byte, version uint64, subkey []byte, err error) {
	if len(b) < 8 {
		return 0, nil, 0, nil, fmt.Errorf("%w: data key too short", swaperr.ErrDecodeMismatch)
	}
	dbid = binary.BigEndian.Uint32(b[0:4])
	klen := binary.BigEndian.Uint32(b[4:8])
	off := 8
	if uint32(len(b)-off) < klen+1+8 {
		return 0, nil, 0, nil, fmt.Errorf("%w: data key truncated", swaperr.ErrDecodeMismatch)
	}
	key = make([]byte, klen)
	copy(key, b[off:off+int(klen)])
	off += int(klen)
	flag := DataFlag(b[off])
	off++
	version = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	if flag == FlagSubkey {
		subkey = make([]byte, len(b)-off)
		copy(subkey, b[off:])
	}
	return dbid, key, version, subkey, nil
}

// DataKeyRange returns [start, end) iterator bounds covering exactly the
// subkey rows of (dbid, key, version): start is the version's first
// possible subkey row, end is the following version's first row (subkey
// sorts after version, so bumping the version is a tight upper bound).
func DataKeyRange(dbid uint32, key []byte, version uint64) (start, end []byte) {
	start = EncodeDataKey(dbid, key, version, []byte{})
	end = EncodeDataKey(dbid, key, version+1, []byte{})
	return start, end
}

// DataKeyWholeRange returns [start, end) bounds covering every subkey row of
// (dbid, key) across *all* versions, built the way spec.md §4.1 describes:
// replacing the flag byte with its successor gives an upper bound that
// sorts after both whole-key and subkey rows regardless of version. Used
// when dropping a key's data wholesale (DEL) or streaming it for RDB.
func DataKeyWholeRange(dbid uint32, key []byte) (start, end []byte) {
	start = EncodeDataKey(dbid, key, 0, nil)
	start[flagOffset(key)] = byte(FlagWholeKey)
	end = EncodeDataKey(dbid, key, 0, nil)
	end[flagOffset(key)] = byte(FlagSubkey.successor())
	return start, end
}

// flagOffset returns the byte index of the flag byte within an encoded
// data key for the given key bytes.
func flagOffset(key []byte) int { return 4 + 4 + len(key) }

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
