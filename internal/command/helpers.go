package command

import (
	"strconv"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

// singleKey builds a whole-key request, the Go analogue of
// getKeyRequestsSingleKey: no subkey filtering, the whole object is in
// play (e.g. EXPIRE, TYPE, whole-string GET/SET).
func singleKey(dbid int, txid int64, cmdName string, key []byte, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	return keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            key,
		Intention:      intention,
		IntentionFlags: flags,
		CmdName:        cmdName,
	}
}

// singleKeyWithSubkeys builds a request over an explicit subkey list
// taken from argv[firstSubkey:lastSubkey+1] stepping by subkeyStep, the
// Go analogue of getKeyRequestsSingleKeyWithSubkeys. A negative
// lastSubkey counts back from len(argv), matching the original's `if
// (last_subkey < 0) last_subkey += argc`.
func singleKeyWithSubkeys(dbid int, txid int64, cmdName string, argv [][]byte, keyIndex, firstSubkey, lastSubkey, subkeyStep int, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	if lastSubkey < 0 {
		lastSubkey += len(argv)
	}
	var subkeys [][]byte
	for i := firstSubkey; i <= lastSubkey; i += subkeyStep {
		subkeys = append(subkeys, argv[i])
	}
	return keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            argv[keyIndex],
		Intention:      intention,
		IntentionFlags: flags,
		SubkeySpec: keyrequest.SubkeySpec{
			Kind:    keyrequest.SubkeyList,
			Subkeys: subkeys,
		},
		CmdName: cmdName,
	}
}

// singleKeyWithIndexRange builds a request over a raw list-index range,
// the Go analogue of getKeyRequestsSingleKeyWithRanges for list commands:
// argRewrite, if >= 0, names the argv position whose index must be
// rewritten once the physical range is known (e.g. LPOP's count arg after
// a partial swap-in).
func singleKeyWithIndexRange(dbid int, txid int64, cmdName string, key []byte, lo, hi int64, argRewrite int, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	req := keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            key,
		Intention:      intention,
		IntentionFlags: flags,
		SubkeySpec: keyrequest.SubkeySpec{
			Kind:    keyrequest.SubkeyIndexRange,
			IndexLo: lo,
			IndexHi: hi,
		},
		CmdName: cmdName,
	}
	if argRewrite >= 0 {
		req.ArgRewrite = []keyrequest.ArgRewrite{{ArgvIndex: argRewrite}}
	}
	return req
}

// singleKeyWithScoreRange builds a zset score-range request, the Go
// analogue of the score-range half of getKeyRequestsZrangeByScore et al.
func singleKeyWithScoreRange(dbid int, txid int64, cmdName string, key []byte, lo, hi float64, loExcl, hiExcl bool, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	return keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            key,
		Intention:      intention,
		IntentionFlags: flags,
		SubkeySpec: keyrequest.SubkeySpec{
			Kind:        keyrequest.SubkeyScoreRange,
			ScoreLo:     lo,
			ScoreHi:     hi,
			ScoreLoExcl: loExcl,
			ScoreHiExcl: hiExcl,
		},
		CmdName: cmdName,
	}
}

// singleKeyWithSampleCount builds a request asking for up to n arbitrary
// subkeys, the Go analogue of SPOP/SRANDMEMBER/ZPOPMIN's sample-count
// shape (getKeyRequestsZpopMin/Max pass a negative count meaning "from
// either end", collapsed here to a plain count since this module has no
// ordered-sample distinction at the request level).
func singleKeyWithSampleCount(dbid int, txid int64, cmdName string, key []byte, n int, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	return keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            key,
		Intention:      intention,
		IntentionFlags: flags,
		SubkeySpec: keyrequest.SubkeySpec{
			Kind:        keyrequest.SubkeySampleCount,
			SampleCount: n,
		},
		CmdName: cmdName,
	}
}

// singleKeyWithBitmapOffset builds a request over one bit offset, the Go
// analogue of getKeyRequestsSingleKeyWithBitmapOffset (SETBIT/GETBIT).
func singleKeyWithBitmapOffset(dbid int, txid int64, cmdName string, key []byte, offset int64, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	return keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            key,
		Intention:      intention,
		IntentionFlags: flags,
		SubkeySpec: keyrequest.SubkeySpec{
			Kind:      keyrequest.SubkeyBitmapOffset,
			BitOffset: offset,
		},
		CmdName: cmdName,
	}
}

// singleKeyWithBitmapRange builds a request over a byte range, the Go
// analogue of getKeyRequestsSingleKeyWithBitmapRange (BITCOUNT/BITPOS).
func singleKeyWithBitmapRange(dbid int, txid int64, cmdName string, key []byte, lo, hi int64, intention keyrequest.Intention, flags keyrequest.Flags) keyrequest.KeyRequest {
	return keyrequest.KeyRequest{
		Txid:           txid,
		Level:          keyrequest.LevelKey,
		DBID:           dbid,
		Key:            key,
		Intention:      intention,
		IntentionFlags: flags,
		SubkeySpec: keyrequest.SubkeySpec{
			Kind:   keyrequest.SubkeyBitmapByteRange,
			ByteLo: lo,
			ByteHi: hi,
		},
		CmdName: cmdName,
	}
}

// parseInt64 mirrors getLongLongFromObject's narrower use here: argv
// elements that fail to parse are treated as absent rather than erroring
// the whole extraction, since the command layer above already rejects
// malformed numeric args before extraction runs.
func parseInt64(b []byte) (int64, bool) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	return v, err == nil
}

func parseFloat64(b []byte) (float64, bool) {
	v, err := strconv.ParseFloat(string(b), 64)
	return v, err == nil
}
