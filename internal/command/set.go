package command

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"

// registerSetCommands wires the set family, grounded on
// getKeyRequestsSrem/getKeyRequestSmembers in ctrip_swap_cmd.c.
func registerSetCommands(r *Registry) {
	r.register("SADD", fieldsStride(2, -1, 1, keyrequest.IntentionIn, 0))
	r.register("SISMEMBER", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("SMISMEMBER", fieldsStride(2, -1, 1, keyrequest.IntentionIn, 0))

	// SREM key member [member ...]: removing members drops their rows,
	// matching the table row at ctrip_swap_cmd.c:214 (SWAP_IN_DEL).
	r.register("SREM", fieldsStride(2, -1, 1, keyrequest.IntentionIn, keyrequest.FlagInDel))

	r.register("SMEMBERS", wholeHash(keyrequest.IntentionIn, 0))
	r.register("SCARD", wholeHash(keyrequest.IntentionIn, 0))

	r.register("SPOP", setSample(keyrequest.FlagInDel))
	r.register("SRANDMEMBER", setSample(0))
}

// setSample handles SPOP/SRANDMEMBER's optional count argument, the Go
// analogue of the sample-count half of the set swap-ana table: no count
// means exactly one arbitrary member, an explicit count samples up to
// that many.
func setSample(flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		n := 1
		if len(argv) >= 3 {
			if v, ok := parseInt64(argv[2]); ok {
				n = int(v)
			}
		}
		return []keyrequest.KeyRequest{
			singleKeyWithSampleCount(dbid, txid, string(argv[0]), argv[1], n, keyrequest.IntentionIn, flags),
		}, nil
	}
}
