// Package keyrequest defines the keyRequest value (spec.md §3): the unit the
// command layer hands to the listener graph and that swap-data analysis
// consumes. It is a leaf package with no dependency on listener, swapdata,
// or swaprequest so all three can import it without cycles.
package keyrequest

// Level is the scope a keyRequest (or listener) binds at.
type Level int

const (
	LevelServer Level = iota
	LevelDB
	LevelKey
)

func (l Level) String() string {
	switch l {
	case LevelServer:
		return "server"
	case LevelDB:
		return "db"
	case LevelKey:
		return "key"
	default:
		return "?"
	}
}

// Intention is the high-level direction of a swap.
type Intention int

const (
	IntentionNOP Intention = iota
	IntentionIn
	IntentionOut
	IntentionDel
)

func (i Intention) String() string {
	switch i {
	case IntentionNOP:
		return "NOP"
	case IntentionIn:
		return "IN"
	case IntentionOut:
		return "OUT"
	case IntentionDel:
		return "DEL"
	default:
		return "?"
	}
}

// Flags is the intention_flags bitmask (spec.md §3/§4.4).
type Flags uint32

const (
	// FlagInDel asks the executor to also delete the rocksdb row(s) after
	// a successful IN (lazy-expire-on-read style cleanup).
	FlagInDel Flags = 1 << iota
	// FlagOutKeepData asks the executor to keep the in-memory copy after
	// persisting it ("persist but stay hot").
	FlagOutKeepData
	// FlagForceHot forces key-becomes-hot semantics regardless of the
	// usual cold_len bookkeeping.
	FlagForceHot
	// FlagOOMCheck asks the executor to refuse the swap-in if it would
	// exceed configured memory limits.
	FlagOOMCheck
	// FlagSkipFin marks a DEL that should skip the normal finish/merge
	// path (lazy-deleting an already-cold key).
	FlagSkipFin
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// SubkeySpecKind discriminates the subkey_spec union.
type SubkeySpecKind int

const (
	SubkeyWholeKey SubkeySpecKind = iota
	SubkeyList
	SubkeyIndexRange
	SubkeyScoreRange
	SubkeySampleCount
	SubkeyBitmapOffset
	SubkeyBitmapByteRange
)

// SubkeySpec is the union of ways a command can identify which subkeys it
// needs; only the fields matching Kind are meaningful.
type SubkeySpec struct {
	Kind SubkeySpecKind

	Subkeys [][]byte // SubkeyList

	IndexLo, IndexHi int64 // SubkeyIndexRange (list raw-index space)

	ScoreLo, ScoreHi float64 // SubkeyScoreRange
	ScoreLoExcl      bool
	ScoreHiExcl      bool

	SampleCount int // SubkeySampleCount

	BitOffset int64 // SubkeyBitmapOffset

	ByteLo, ByteHi int64 // SubkeyBitmapByteRange
}

// ArgRewrite names an argv position that must be rewritten if the physical
// representation differs once the key request completes (e.g. list indices
// after a partial swap-in shifted raw-index offsets).
type ArgRewrite struct {
	ArgvIndex int
	NewValue  []byte
}

// KeyRequest is the input produced by the command parser for one (db, key)
// pair touched by a client command.
type KeyRequest struct {
	Txid  int64
	Level Level
	DBID  int
	Key   []byte

	Intention      Intention
	IntentionFlags Flags
	SubkeySpec     SubkeySpec
	ArgRewrite     []ArgRewrite

	// CmdName is carried for diagnostics (listener dumps, stats).
	CmdName string
}

// DeepCopy returns an independent copy, used by tests and by the listener
// when a keyRequest outlives the command's argv buffer.
func (r *KeyRequest) DeepCopy() *KeyRequest {
	cp := *r
	cp.Key = append([]byte(nil), r.Key...)
	cp.SubkeySpec.Subkeys = make([][]byte, len(r.SubkeySpec.Subkeys))
	for i, sk := range r.SubkeySpec.Subkeys {
		cp.SubkeySpec.Subkeys[i] = append([]byte(nil), sk...)
	}
	cp.ArgRewrite = append([]ArgRewrite(nil), r.ArgRewrite...)
	return &cp
}
