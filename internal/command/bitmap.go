package command

import "github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"

// registerBitmapCommands wires the bitmap family, grounded on
// getKeyRequestsSingleKeyWithBitmapOffset (SETBIT/GETBIT) and
// getKeyRequestsSingleKeyWithBitmapRange (BITCOUNT/BITPOS) in
// ctrip_swap_cmd.c.
func registerBitmapCommands(r *Registry) {
	r.register("SETBIT", bitOffset(keyrequest.FlagInDel))
	r.register("GETBIT", bitOffset(0))
	r.register("BITCOUNT", bitRange)
	r.register("BITPOS", bitRange)
}

func bitOffset(flags keyrequest.Flags) Func {
	return func(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
		offset, _ := parseInt64(argv[2])
		return []keyrequest.KeyRequest{
			singleKeyWithBitmapOffset(dbid, txid, string(argv[0]), argv[1], offset, keyrequest.IntentionIn, flags),
		}, nil
	}
}

// bitRange covers BITCOUNT/BITPOS's optional [start end] byte range; with
// no range given the whole bitmap is requested (0 to -1, matching the
// original's default full-string scan).
func bitRange(dbid int, txid int64, argv [][]byte) ([]keyrequest.KeyRequest, error) {
	lo, hi := int64(0), int64(-1)
	startIdx := 2
	if string(argv[0]) == "BITPOS" {
		// BITPOS key bit [start [end]]: the range args start one arg later
		// than BITCOUNT's.
		startIdx = 3
	}
	if len(argv) > startIdx {
		if v, ok := parseInt64(argv[startIdx]); ok {
			lo = v
		}
	}
	if len(argv) > startIdx+1 {
		if v, ok := parseInt64(argv[startIdx+1]); ok {
			hi = v
		}
	}
	return []keyrequest.KeyRequest{
		singleKeyWithBitmapRange(dbid, txid, string(argv[0]), argv[1], lo, hi, keyrequest.IntentionIn, 0),
	}, nil
}
