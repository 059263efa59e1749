package command

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"

// registerListCommands wires the list family over raw list-index ranges,
// grounded on getKeyRequestsLpop/getKeyRequestsBlpop in ctrip_swap_cmd.c:
// lists have no named-subkey dimension, only a raw index space, so the
// pop/index/range commands ask for an IndexLo..IndexHi range rather than a
// subkey list; the push commands and LLEN ask for the whole key.
func registerListCommands(r *Registry) {
	r.register("LPUSH", wholeHash(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("RPUSH", wholeHash(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("LPUSHX", wholeHash(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("RPUSHX", wholeHash(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("LLEN", wholeHash(keyrequest.IntentionIn, 0))

	// LPOP key [count]: front `count` elements (default 1), deleted once
	// read, mirroring getKeyRequestsLpop's range(0, count).
	r.register("LPOP", listPop(true, keyrequest.FlagInDel))
	r.register("RPOP", listPop(false, keyrequest.FlagInDel))

	r.register("LINDEX", listSingleIndex)
	r.register("LSET", listSingleIndex)

	// LRANGE key start stop: an inclusive rank range, no delete.
	r.register("LRANGE", listRange(0))
	r.register("LTRIM", listRange(keyrequest.FlagInDel))
}

func listPop(fromHead bool, flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		count := int64(1)
		if len(argv) >= 3 {
			if v, ok := parseInt64(argv[2]); ok {
				count = v
			}
		}
		var lo, hi int64
		if fromHead {
			lo, hi = 0, count-1
		} else {
			lo, hi = -count, -1
		}
		return []keyrequest.KeyRequest{
			singleKeyWithIndexRange(dbid, txid, string(argv[0]), argv[1], lo, hi, -1, keyrequest.IntentionIn, flags),
		}, nil
	}
}

func listSingleIndex(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	idx, _ := parseInt64(argv[2])
	return []keyrequest.KeyRequest{
		singleKeyWithIndexRange(dbid, txid, string(argv[0]), argv[1], idx, idx, -1, keyrequest.IntentionIn, 0),
	}, nil
}

func listRange(flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		lo, _ := parseInt64(argv[2])
		hi, _ := parseInt64(argv[3])
		return []keyrequest.KeyRequest{
			singleKeyWithIndexRange(dbid, txid, string(argv[0]), argv[1], lo, hi, -1, keyrequest.IntentionIn, flags),
		}, nil
	}
}
