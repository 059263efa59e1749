package command

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"

// registerStringCommands wires the whole-key string family: strings have
// no subkey dimension (codec's whole-key version-0 row), so every one of
// these is a plain singleKey request mirroring the table rows at
// ctrip_swap_cmd.c:40-90 that pair SET/GET/APPEND/... with a NULL
// getKeyRequestsXxx (the default "whole key, no subkey filtering" path).
func registerStringCommands(r *Registry) {
	whole := func(intention keyrequest.Intention, flags keyrequest.Flags) Func {
		return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
			return []keyrequest.KeyRequest{
				singleKey(dbid, txid, string(argv[0]), argv[1], intention, flags),
			}, nil
		}
	}

	r.register("GET", whole(keyrequest.IntentionIn, 0))
	r.register("GETSET", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("GETDEL", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("STRLEN", whole(keyrequest.IntentionIn, 0))
	r.register("GETRANGE", whole(keyrequest.IntentionIn, 0))
	r.register("APPEND", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("SETRANGE", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("SET", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("SETNX", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("SETEX", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("PSETEX", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("INCR", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("DECR", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("INCRBY", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("DECRBY", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("INCRBYFLOAT", whole(keyrequest.IntentionIn, keyrequest.FlagInDel))
}
