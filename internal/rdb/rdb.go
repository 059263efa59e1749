// Package rdb implements spec.md §6's RDB extension: the "swap-rocks" body
// a snapshot writer streams between the end of each db section and that
// db's end marker. For every warm/cold key it emits
// [meta_header][subkey_rdb]... by iterating the Meta CF and the Data CF (and
// the Score CF for zsets) in sorted order, exactly as spec.md describes.
//
// This package only speaks the swap-rocks body: the surrounding standard
// RDB opcodes (db selector, key/value pairs for in-memory objects, EOF) are
// the host store's own serializer and are out of scope here, the same way
// ctrip_swap_rdb.c's swapRdbSaveRocks only ever appends to an rio the caller
// already owns.
package rdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/snappy"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

const (
	opEnd byte = 0
	opKey byte = 1
)

// Options toggles snappy compression of the body, selected by a config knob
// the way the teacher's go.mod already carries golang/snappy for optional
// block compression elsewhere.
type Options struct {
	Compress bool
}

// Stats summarizes one Save/Load pass, surfaced the way
// genSwapThreadInfoString reports counters in the original.
type Stats struct {
	Keys int
	Rows int
}

// subkeyRow is one Data CF or Score CF row belonging to a key, stripped of
// its dbid/key/version prefix (which the record header already carries).
type subkeyRow struct {
	cf     codec.CF
	subkey []byte
	score  float64
	val    []byte
}

// Save streams dbid's persisted (warm+cold) keyspace to w as a sequence of
// key records terminated by opEnd. flag (nilable) is held for the duration
// of the scan so a concurrent compaction pass knows not to filter rows out
// from under it.
func Save(w io.Writer, engine *rocks.Engine, dbid int, flag *SnapshotFlag, opts Options) (Stats, error) {
	flag.begin()
	defer flag.end()

	var stats Stats

	out := w
	var sw *snappy.Writer
	if opts.Compress {
		sw = snappy.NewBufferedWriter(w)
		out = sw
	}
	bw := bufio.NewWriter(out)

	start := codec.EncodeMetaKey(uint32(dbid), nil)
	end := codec.EncodeMetaKey(uint32(dbid+1), nil)
	metaRows, err := engine.Iterate(rocks.IterSpec{CF: codec.CFMeta, Start: start, End: end})
	if err != nil {
		return stats, err
	}

	for _, row := range metaRows {
		_, key, derr := codec.DecodeMetaKey(row.Key)
		if derr != nil {
			return stats, fmt.Errorf("%w: rdb save: decode meta key: %v", swaperr.ErrDecodeMismatch, derr)
		}
		swapType, expireMs, version, _, derr := codec.DecodeMetaVal(row.Val)
		if derr != nil {
			return stats, fmt.Errorf("%w: rdb save: decode meta val: %v", swaperr.ErrDecodeMismatch, derr)
		}
		rows, rerr := loadSubkeyRows(engine, dbid, key, version, swapType)
		if rerr != nil {
			return stats, rerr
		}
		if werr := writeKeyRecord(bw, key, expireMs, swapType, version, rows); werr != nil {
			return stats, fmt.Errorf("%w: rdb save: write record: %v", swaperr.ErrIOFailure, werr)
		}
		stats.Keys++
		stats.Rows += len(rows)
	}

	if err := bw.WriteByte(opEnd); err != nil {
		return stats, fmt.Errorf("%w: rdb save: write terminator: %v", swaperr.ErrIOFailure, err)
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("%w: rdb save: flush: %v", swaperr.ErrIOFailure, err)
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			return stats, fmt.Errorf("%w: rdb save: close compressor: %v", swaperr.ErrIOFailure, err)
		}
	}
	return stats, nil
}

func loadSubkeyRows(engine *rocks.Engine, dbid int, key []byte, version uint64, swapType codec.SwapType) ([]subkeyRow, error) {
	var out []subkeyRow

	dstart, dend := codec.DataKeyRange(uint32(dbid), key, version)
	dataRows, err := engine.Iterate(rocks.IterSpec{CF: codec.CFData, Start: dstart, End: dend})
	if err != nil {
		return nil, err
	}
	for _, r := range dataRows {
		_, _, _, subkey, derr := codec.DecodeDataKey(r.Key)
		if derr != nil {
			return nil, fmt.Errorf("%w: rdb save: decode data key: %v", swaperr.ErrDecodeMismatch, derr)
		}
		out = append(out, subkeyRow{cf: codec.CFData, subkey: subkey, val: r.Val})
	}

	if swapType == codec.TypeZSet {
		sstart := codec.EncodeScoreKey(uint32(dbid), key, version, math.Inf(-1), nil)
		send := codec.EncodeScoreKey(uint32(dbid), key, version+1, math.Inf(-1), nil)
		scoreRows, serr := engine.Iterate(rocks.IterSpec{CF: codec.CFScore, Start: sstart, End: send})
		if serr != nil {
			return nil, serr
		}
		for _, r := range scoreRows {
			_, _, _, score, member, derr := codec.DecodeScoreKey(r.Key)
			if derr != nil {
				return nil, fmt.Errorf("%w: rdb save: decode score key: %v", swaperr.ErrDecodeMismatch, derr)
			}
			out = append(out, subkeyRow{cf: codec.CFScore, subkey: member, score: score})
		}
	}

	return out, nil
}

func writeKeyRecord(w *bufio.Writer, key []byte, expireMs int64, swapType codec.SwapType, version uint64, rows []subkeyRow) error {
	if err := w.WriteByte(opKey); err != nil {
		return err
	}
	if err := writeBytes(w, key); err != nil {
		return err
	}
	if err := writeU64(w, uint64(expireMs)); err != nil {
		return err
	}
	if err := w.WriteByte(byte(swapType)); err != nil {
		return err
	}
	if err := writeU64(w, version); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(rows))); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.WriteByte(byte(row.cf)); err != nil {
			return err
		}
		if err := writeBytes(w, row.subkey); err != nil {
			return err
		}
		if row.cf == codec.CFScore {
			if err := writeU64(w, codec.EncodeScoreUint64(row.score)); err != nil {
				return err
			}
		}
		if err := writeBytes(w, row.val); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a body written by Save back into engine, re-creating the Meta
// CF and Data/Score CF rows and registering fresh objectmeta.Meta entries
// in store (nil skips the store update, useful for tests that only care
// about the engine rows).
func Load(r io.Reader, engine *rocks.Engine, dbid int, store *objectmeta.Store, opts Options) (Stats, error) {
	var stats Stats

	in := r
	if opts.Compress {
		in = snappy.NewReader(r)
	}
	br := bufio.NewReader(in)

	for {
		op, err := br.ReadByte()
		if err == io.EOF {
			return stats, fmt.Errorf("%w: rdb load: missing terminator", swaperr.ErrDecodeMismatch)
		}
		if err != nil {
			return stats, fmt.Errorf("%w: rdb load: read opcode: %v", swaperr.ErrIOFailure, err)
		}
		if op == opEnd {
			return stats, nil
		}
		if op != opKey {
			return stats, fmt.Errorf("%w: rdb load: unknown opcode %d", swaperr.ErrDecodeMismatch, op)
		}

		key, expireMs, swapType, version, rows, rerr := readKeyRecord(br)
		if rerr != nil {
			return stats, rerr
		}
		if ierr := installKey(engine, store, dbid, key, expireMs, swapType, version, rows); ierr != nil {
			return stats, ierr
		}
		stats.Keys++
		stats.Rows += len(rows)
	}
}

func readKeyRecord(r *bufio.Reader) (key []byte, expireMs int64, swapType codec.SwapType, version uint64, rows []subkeyRow, err error) {
	key, err = readBytes(r)
	if err != nil {
		return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read key: %v", swaperr.ErrIOFailure, err)
	}
	expireU, err := readU64(r)
	if err != nil {
		return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read expire: %v", swaperr.ErrIOFailure, err)
	}
	expireMs = int64(expireU)
	typeByte, err := r.ReadByte()
	if err != nil {
		return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read type: %v", swaperr.ErrIOFailure, err)
	}
	swapType = codec.SwapType(typeByte)
	version, err = readU64(r)
	if err != nil {
		return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read version: %v", swaperr.ErrIOFailure, err)
	}
	count, err := readU32(r)
	if err != nil {
		return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read row count: %v", swaperr.ErrIOFailure, err)
	}
	rows = make([]subkeyRow, 0, count)
	for i := uint32(0); i < count; i++ {
		cfByte, rerr := r.ReadByte()
		if rerr != nil {
			return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read row cf: %v", swaperr.ErrIOFailure, rerr)
		}
		row := subkeyRow{cf: codec.CF(cfByte)}
		row.subkey, rerr = readBytes(r)
		if rerr != nil {
			return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read row subkey: %v", swaperr.ErrIOFailure, rerr)
		}
		if row.cf == codec.CFScore {
			bits, serr := readU64(r)
			if serr != nil {
				return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read row score: %v", swaperr.ErrIOFailure, serr)
			}
			row.score = codec.DecodeScoreUint64(bits)
		}
		row.val, rerr = readBytes(r)
		if rerr != nil {
			return nil, 0, 0, 0, nil, fmt.Errorf("%w: rdb load: read row val: %v", swaperr.ErrIOFailure, rerr)
		}
		rows = append(rows, row)
	}
	return key, expireMs, swapType, version, rows, nil
}

func installKey(engine *rocks.Engine, store *objectmeta.Store, dbid int, key []byte, expireMs int64, swapType codec.SwapType, version uint64, rows []subkeyRow) error {
	puts := make([]rocks.CFKV, 0, len(rows)+1)
	puts = append(puts, rocks.CFKV{
		CF:  codec.CFMeta,
		Key: codec.EncodeMetaKey(uint32(dbid), key),
		Val: codec.EncodeMetaVal(swapType, expireMs, version, nil),
	})
	for _, row := range rows {
		switch row.cf {
		case codec.CFData:
			puts = append(puts, rocks.CFKV{
				CF:  codec.CFData,
				Key: codec.EncodeDataKey(uint32(dbid), key, version, row.subkey),
				Val: row.val,
			})
		case codec.CFScore:
			puts = append(puts, rocks.CFKV{
				CF:  codec.CFScore,
				Key: codec.EncodeScoreKey(uint32(dbid), key, version, row.score, row.subkey),
			})
		}
	}
	if err := engine.MultiPut(puts); err != nil {
		return fmt.Errorf("%w: rdb load: install key: %v", swaperr.ErrIOFailure, err)
	}
	if store != nil {
		store.Set(dbid, string(key), &objectmeta.Meta{
			Version:  version,
			SwapType: swapType,
			ColdLen:  uint64(len(rows)),
			Extend:   defaultExtend(swapType),
		})
	}
	return nil
}

// defaultExtend rebuilds the residency Extend a freshly-loaded key starts
// with: every subkey just written is cold, matching EncodeMetaRow's
// documented contract that the Extend is server-thread RAM state rebuilt
// from rows, never carried on disk.
func defaultExtend(swapType codec.SwapType) objectmeta.Extend {
	switch swapType {
	case codec.TypeHash, codec.TypeSet, codec.TypeZSet:
		return objectmeta.LengthExtend{}
	case codec.TypeList:
		return &objectmeta.SegmentExtend{}
	case codec.TypeBitmap:
		return objectmeta.NewBucketExtend()
	default:
		return nil
	}
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeU32(w *bufio.Writer, v uint32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	_, err := w.Write(tmp[:])
	return err
}

func readU32(r *bufio.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func writeU64(w *bufio.Writer, v uint64) error {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	_, err := w.Write(tmp[:])
	return err
}

func readU64(r *bufio.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}
