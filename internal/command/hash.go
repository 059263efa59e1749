package command

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"

// registerHashCommands wires the hash family, grounded on
// getKeyRequestsHset/getKeyRequestsHmget/getKeyRequestsHdel in
// ctrip_swap_cmd.c, all thin wrappers over
// getKeyRequestsSingleKeyWithSubkeys with different field-arg strides.
func registerHashCommands(r *Registry) {
	// HSET key field value [field value ...]: fields at argv[2], stride 2.
	r.register("HSET", fieldsStride(2, -1, 2, keyrequest.IntentionIn, 0))
	r.register("HMSET", fieldsStride(2, -1, 2, keyrequest.IntentionIn, 0))
	r.register("HSETNX", fieldsStride(2, -1, 2, keyrequest.IntentionIn, 0))

	// HGET key field: a single field, stride 1.
	r.register("HGET", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("HSTRLEN", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("HEXISTS", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("HINCRBY", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("HINCRBYFLOAT", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))

	// HMGET key field [field ...]: one or more fields, stride 1.
	r.register("HMGET", fieldsStride(2, -1, 1, keyrequest.IntentionIn, 0))

	// HDEL key field [field ...]: deleting fields also drops their rocksdb
	// rows (SWAP_IN_DEL), matching the table row at ctrip_swap_cmd.c:431.
	r.register("HDEL", fieldsStride(2, -1, 1, keyrequest.IntentionIn, keyrequest.FlagInDel))

	r.register("HGETALL", wholeHash(keyrequest.IntentionIn, 0))
	r.register("HKEYS", wholeHash(keyrequest.IntentionIn, 0))
	r.register("HVALS", wholeHash(keyrequest.IntentionIn, 0))
	r.register("HLEN", wholeHash(keyrequest.IntentionIn, 0))
}

func fieldsStride(firstSubkey, lastSubkey, step int, intention keyrequest.Intention, flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		return []keyrequest.KeyRequest{
			singleKeyWithSubkeys(dbid, txid, string(argv[0]), argv, 1, firstSubkey, lastSubkey, step, intention, flags),
		}, nil
	}
}

func wholeHash(intention keyrequest.Intention, flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		return []keyrequest.KeyRequest{
			singleKey(dbid, txid, string(argv[0]), argv[1], intention, flags),
		}, nil
	}
}
