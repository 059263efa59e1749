package command

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"

// swapTypeByCmd names the value swap-type a given command family implies,
// consulted when a keyRequest lands on a never-persisted key: there is no
// object meta yet to read the type off, but the command that produced the
// request already fixes it (HSET can only ever create a hash).
//
// Grounded on ctrip_swap_cmd.c's redisCommandTable, whose swap_type column
// this mirrors directly; re-expressed as a flat map instead of a field on
// the static command table C keeps next to the command dispatch pointer.
var swapTypeByCmd = map[string]codec.SwapType{
	"GET": codec.TypeString, "GETSET": codec.TypeString, "GETDEL": codec.TypeString,
	"STRLEN": codec.TypeString, "GETRANGE": codec.TypeString, "APPEND": codec.TypeString,
	"SETRANGE": codec.TypeString, "SET": codec.TypeString, "SETNX": codec.TypeString,
	"SETEX": codec.TypeString, "PSETEX": codec.TypeString, "INCR": codec.TypeString,
	"DECR": codec.TypeString, "INCRBY": codec.TypeString, "DECRBY": codec.TypeString,
	"INCRBYFLOAT": codec.TypeString,

	"HSET": codec.TypeHash, "HMSET": codec.TypeHash, "HSETNX": codec.TypeHash,
	"HGET": codec.TypeHash, "HSTRLEN": codec.TypeHash, "HEXISTS": codec.TypeHash,
	"HINCRBY": codec.TypeHash, "HINCRBYFLOAT": codec.TypeHash, "HMGET": codec.TypeHash,
	"HDEL": codec.TypeHash, "HGETALL": codec.TypeHash, "HKEYS": codec.TypeHash,
	"HVALS": codec.TypeHash, "HLEN": codec.TypeHash,

	"SADD": codec.TypeSet, "SISMEMBER": codec.TypeSet, "SMISMEMBER": codec.TypeSet,
	"SREM": codec.TypeSet, "SMEMBERS": codec.TypeSet, "SCARD": codec.TypeSet,
	"SPOP": codec.TypeSet, "SRANDMEMBER": codec.TypeSet,

	"ZADD": codec.TypeZSet, "ZINCRBY": codec.TypeZSet, "ZREM": codec.TypeZSet,
	"ZSCORE": codec.TypeZSet, "ZMSCORE": codec.TypeZSet, "ZRANK": codec.TypeZSet,
	"ZREVRANK": codec.TypeZSet, "ZCARD": codec.TypeZSet, "ZRANGE": codec.TypeZSet,
	"ZREVRANGE": codec.TypeZSet, "ZRANGEBYSCORE": codec.TypeZSet,
	"ZREVRANGEBYSCORE": codec.TypeZSet, "ZREMRANGEBYSCORE": codec.TypeZSet,
	"ZREMRANGEBYRANK": codec.TypeZSet, "ZPOPMIN": codec.TypeZSet, "ZPOPMAX": codec.TypeZSet,

	"LPUSH": codec.TypeList, "RPUSH": codec.TypeList, "LPUSHX": codec.TypeList,
	"RPUSHX": codec.TypeList, "LLEN": codec.TypeList, "LPOP": codec.TypeList,
	"RPOP": codec.TypeList, "LINDEX": codec.TypeList, "LSET": codec.TypeList,
	"LRANGE": codec.TypeList, "LTRIM": codec.TypeList,

	"SETBIT": codec.TypeBitmap, "GETBIT": codec.TypeBitmap,
	"BITCOUNT": codec.TypeBitmap, "BITPOS": codec.TypeBitmap,
}

// SwapTypeFor reports the swap-type implied by cmdName, for a keyRequest
// against a key with no persisted meta yet. ok is false for commands with
// no fixed type (the generic family: DEL, EXISTS, TYPE, EXPIRE, ...),
// which never need to create an Object themselves.
func SwapTypeFor(cmdName string) (codec.SwapType, bool) {
	t, ok := swapTypeByCmd[cmdName]
	return t, ok
}
