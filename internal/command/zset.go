package command

import (
	"bytes"
	"math"
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

// registerZSetCommands wires the zset family, grounded on
// getKeyRequestsZAdd/getKeyRequestsZrem/getKeyRequestsZpopMin in
// ctrip_swap_cmd.c. Member-bearing commands reuse
// getKeyRequestsSingleKeyWithSubkeys the same way the hash family does;
// range commands carry a score or index range instead.
func registerZSetCommands(r *Registry) {
	r.register("ZADD", zaddExtract)
	r.register("ZINCRBY", fieldsStride(3, 3, 1, keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("ZREM", fieldsStride(2, -1, 1, keyrequest.IntentionIn, keyrequest.FlagInDel))
	r.register("ZSCORE", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("ZMSCORE", fieldsStride(2, -1, 1, keyrequest.IntentionIn, 0))
	r.register("ZRANK", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))
	r.register("ZREVRANK", fieldsStride(2, 2, 1, keyrequest.IntentionIn, 0))

	r.register("ZCARD", wholeHash(keyrequest.IntentionIn, 0))

	r.register("ZRANGE", zrangeByRank)
	r.register("ZREVRANGE", zrangeByRank)
	r.register("ZRANGEBYSCORE", zrangeByScore(false))
	r.register("ZREVRANGEBYSCORE", zrangeByScore(true))
	r.register("ZREMRANGEBYSCORE", zremrangeByScore)
	r.register("ZREMRANGEBYRANK", zremrangeByRank)

	r.register("ZPOPMIN", zpop(keyrequest.FlagInDel))
	r.register("ZPOPMAX", zpop(keyrequest.FlagInDel))
}

var zaddOptionTokens = map[string]bool{
	"NX": true, "XX": true, "GT": true, "LT": true, "CH": true, "INCR": true,
}

// zaddExtract finds where the score/member pairs begin by skipping ZADD's
// leading option tokens, mirroring the original's first_score scan, then
// delegates to the same subkey-stride machinery HSET uses (members sit at
// odd offsets once scores are skipped).
func zaddExtract(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	firstScore := 2
	for firstScore < len(argv) && zaddOptionTokens[strings.ToUpper(string(argv[firstScore]))] {
		firstScore++
	}
	firstMember := firstScore + 1
	return []keyrequest.KeyRequest{
		singleKeyWithSubkeys(dbid, txid, string(argv[0]), argv, 1, firstMember, -1, 2, keyrequest.IntentionIn, keyrequest.FlagInDel),
	}, nil
}

func zrangeByRank(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	lo, _ := parseInt64(argv[2])
	hi, _ := parseInt64(argv[3])
	return []keyrequest.KeyRequest{
		singleKeyWithIndexRange(dbid, txid, string(argv[0]), argv[1], lo, hi, -1, keyrequest.IntentionIn, 0),
	}, nil
}

func zremrangeByRank(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	lo, _ := parseInt64(argv[2])
	hi, _ := parseInt64(argv[3])
	return []keyrequest.KeyRequest{
		singleKeyWithIndexRange(dbid, txid, string(argv[0]), argv[1], lo, hi, -1, keyrequest.IntentionIn, keyrequest.FlagInDel),
	}, nil
}

// parseScoreBound parses one ZRANGEBYSCORE-style bound: a "(" prefix
// marks it exclusive, "-inf"/"+inf" map to the float extremes.
func parseScoreBound(b []byte) (value float64, excl bool) {
	if len(b) > 0 && b[0] == '(' {
		excl = true
		b = b[1:]
	}
	switch {
	case bytes.EqualFold(b, []byte("-inf")):
		return math.Inf(-1), excl
	case bytes.EqualFold(b, []byte("+inf")), bytes.EqualFold(b, []byte("inf")):
		return math.Inf(1), excl
	}
	v, _ := parseFloat64(b)
	return v, excl
}

func zrangeByScore(reverse bool) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		minArg, maxArg := argv[2], argv[3]
		if reverse {
			minArg, maxArg = argv[3], argv[2]
		}
		lo, loExcl := parseScoreBound(minArg)
		hi, hiExcl := parseScoreBound(maxArg)
		return []keyrequest.KeyRequest{
			singleKeyWithScoreRange(dbid, txid, string(argv[0]), argv[1], lo, hi, loExcl, hiExcl, keyrequest.IntentionIn, 0),
		}, nil
	}
}

func zremrangeByScore(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	lo, loExcl := parseScoreBound(argv[2])
	hi, hiExcl := parseScoreBound(argv[3])
	return []keyrequest.KeyRequest{
		singleKeyWithScoreRange(dbid, txid, string(argv[0]), argv[1], lo, hi, loExcl, hiExcl, keyrequest.IntentionIn, keyrequest.FlagInDel),
	}, nil
}

func zpop(flags keyrequest.Flags) Func {
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
