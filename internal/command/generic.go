package command

import (
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

// registerGenericCommands wires the keyspace-wide family: DEL/EXPIRE-style
// commands that touch a key's metadata rather than a typed subkey
// dimension, plus FLUSHDB/FLUSHALL/DEBUG, grounded on the keyspace rows
// of ctrip_swap_cmd.c (lines 76-86, 519-652) and getKeyRequestsGlobal.
func registerGenericCommands(r *Registry) {
	// DEL/UNLINK key [key ...]: every key is swapped in (if cold) and its
	// rocksdb rows dropped, matching SWAP_IN_DEL_MOCK_VALUE.
	r.register("DEL", multiKey(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("UNLINK", multiKey(keyrequest.IntentionIn, keyrequest.FlagInDel))

	// EXISTS/TOUCH: metadata-only presence check, no row mutation.
	r.register("EXISTS", multiKey(keyrequest.IntentionIn, 0))
	r.register("TOUCH", multiKey(keyrequest.IntentionIn, 0))

	// TYPE/TTL/PTTL/PERSIST/EXPIRE family: metadata-level single-key ops.
	meta := wholeHash(keyrequest.IntentionIn, 0)
	r.register("TYPE", meta)
	r.register("TTL", meta)
	r.register("PTTL", meta)
	r.register("PERSIST", meta)
	r.register("EXPIRE", meta)
	r.register("EXPIREAT", meta)
	r.register("PEXPIRE", meta)
	r.register("PEXPIREAT", meta)

	// RENAME/RENAMENX: source key swaps in (and drops rows once moved),
	// destination key is untouched at the request-extraction level — the
	// executor re-keys it in place, matching SWAP_IN_DEL on argv[1] only.
	r.register("RENAME", renameExtract)
	r.register("RENAMENX", renameExtract)

	// RANDOMKEY/SCAN: a db-scoped metascan, no single key involved.
	r.register("RANDOMKEY", dbScan)
	r.register("SCAN", dbScan)

	r.register("FLUSHDB", flushdb)
	r.register("FLUSHALL", flushall)

	r.register("DEBUG", debugExtract)
}

func multiKey(intention keyrequest.Intention, flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		reqs := make([]keyrequest.KeyRequest, 0, len(argv)-1)
		for _, key := range argv[1:] {
			reqs = append(reqs, singleKey(dbid, txid, string(argv[0]), key, intention, flags))
		}
		return reqs, nil
	}
}

func renameExtract(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	return []keyrequest.KeyRequest{
		singleKey(dbid, txid, string(argv[0]), argv[1], keyrequest.IntentionIn, keyrequest.FlagInDel),
	}, nil
}

func dbScan(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	return []keyrequest.KeyRequest{
		{
			Txid:      txid,
			Level:     keyrequest.LevelDB,
			DBID:      dbid,
			Intention: keyrequest.IntentionIn,
			CmdName:   string(argv[0]),
		},
	}, nil
}

func flushdb(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	return []keyrequest.KeyRequest{
		{
			Txid:      txid,
			Level:     keyrequest.LevelDB,
			DBID:      dbid,
			Intention: keyrequest.IntentionDel,
			CmdName:   string(argv[0]),
		},
	}, nil
}

func flushall(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	return []keyrequest.KeyRequest{
		{
			Txid:      txid,
			Level:     keyrequest.LevelServer,
			Intention: keyrequest.IntentionDel,
			CmdName:   string(argv[0]),
		},
	}, nil
}

// debugExtract only cares about the few DEBUG subcommands that touch a
// key's rocksdb representation (OBJECT, RELOAD); anything else is a
// no-op at the key-request layer, matching the original's SWAP_NOP
// default for admin/debug commands it doesn't special-case.
func debugExtract(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	if len(argv) < 2 {
		return nil, nil
	}
	switch strings.ToUpper(string(argv[1])) {
	case "OBJECT":
		if len(argv) < 3 {
			return nil, nil
		}
		return []keyrequest.KeyRequest{
			singleKey(dbid, txid, string(argv[0]), argv[2], keyrequest.IntentionIn, 0),
		}, nil
	default:
		return nil, nil
	}
}
