// Package rocks is the black-box embedded LSM engine spec.md §4.3 treats as
// an external collaborator: column families, get/put/del, multi-get/put/del,
// bounded iterator scans, atomic write batches, checkpoints, and a
// compaction-filter plug-in hook. It stands in for RocksDB with
// github.com/ledgerwatch/lmdb-go, exercised the way the teacher's ethdb
// package exercises LMDB: a builder (New(dir).MustOpen()) producing a
// handle whose named databases play the role of column families.
//
// LMDB is a B+tree, not an LSM, so it has no native compaction-filter
// callback; RunCompactionFilter (compaction.go) adapts the hook into an
// explicit scan-and-delete pass driven by internal/compaction, documented as
// an Open Question resolution in DESIGN.md rather than silently diverging
// from spec.md's description.
package rocks

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ledgerwatch/lmdb-go/lmdb"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// cfName is the LMDB named-database each codec.CF is stored under.
func cfName(cf codec.CF) string {
	switch cf {
	case codec.CFMeta:
		return "meta"
	case codec.CFData:
		return "data"
	case codec.CFScore:
		return "score"
	default:
		return "unknown"
	}
}

var allCFs = []codec.CF{codec.CFMeta, codec.CFData, codec.CFScore}

// Engine is the open handle to one epoch's worth of on-disk state, rooted at
// <dir>/<epoch> per spec.md §6's "on-disk layout". Reopen bumps epoch and
// swaps the handle under Builder's read-preferring lock (spec.md §5's "the
// reference to the engine handle is protected by a read-preferring lock").
type Engine struct {
	mu    sync.RWMutex // guards swap-in-place Reopen, not per-call hot path
	env   *lmdb.Env
	dbis  map[codec.CF]lmdb.DBI
	root  string // <dir>
	epoch int64
	dir   string // <dir>/<epoch>

	degraded bool // ErrRocksDegraded gate, flipped through SetDegraded
}

// Builder configures an Engine before opening it, mirroring the teacher's
// NewLMDB().InMem().MustOpen(ctx) chain (ethdb/memory_database.go).
type Builder struct {
	root    string
	epoch   int64
	mapSize int64
	inMem   bool
}

// New starts a builder rooted at dir with the epoch unset (-1), which means
// "discover the highest existing <dir>/<N> subdirectory, or start at 0 if
// none exist"; Epoch pins a specific epoch instead.
func New(dir string) *Builder {
	return &Builder{root: dir, mapSize: 1 << 30, epoch: -1}
}

// MapSize overrides the default 1GiB LMDB map size.
func (b *Builder) MapSize(n int64) *Builder {
	b.mapSize = n
	return b
}

// Epoch pins the epoch directory to open instead of auto-discovering it.
func (b *Builder) Epoch(epoch int64) *Builder {
	b.epoch = epoch
	return b
}

// InMem opens against a throwaway temp directory, for tests.
func (b *Builder) InMem() *Builder {
	dir, err := os.MkdirTemp("", "rocks-inmem-")
	if err != nil {
		panic(err)
	}
	b.root = dir
	b.epoch = 0
	return b
}

// Open opens the engine, creating the epoch directory and the three named
// databases if they don't exist.
func (b *Builder) Open() (*Engine, error) {
	epoch := b.epoch
	if epoch < 0 {
		discovered, err := discoverEpoch(b.root)
		if err != nil {
			return nil, err
		}
		epoch = discovered
	}
	dir := filepath.Join(b.root, fmt.Sprintf("%d", epoch))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir rocks dir: %v", swaperr.ErrIOFailure, err)
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: new env: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.SetMaxDBs(len(allCFs)); err != nil {
		return nil, fmt.Errorf("%w: set max dbs: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.SetMapSize(b.mapSize); err != nil {
		return nil, fmt.Errorf("%w: set map size: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.Open(dir, 0, 0o644); err != nil {
		return nil, fmt.Errorf("%w: open env at %s: %v", swaperr.ErrIOFailure, dir, err)
	}

	dbis := make(map[codec.CF]lmdb.DBI, len(allCFs))
	err = env.Update(func(txn *lmdb.Txn) error {
		for _, cf := range allCFs {
			dbi, oerr := txn.OpenDBI(cfName(cf), lmdb.Create)
			if oerr != nil {
				return oerr
			}
			dbis[cf] = dbi
		}
		return nil
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("%w: open column families: %v", swaperr.ErrIOFailure, err)
	}

	return &Engine{env: env, dbis: dbis, root: b.root, epoch: epoch, dir: dir}, nil
}

// MustOpen panics on open failure, matching the teacher's MustOpen on the
// server startup path where a failed open is always fatal.
func (b *Builder) MustOpen() *Engine {
	e, err := b.Open()
	if err != nil {
		panic(err)
	}
	return e
}

// OpenAt opens dir itself as an environment, bypassing the <root>/<epoch>
// layout: used to inspect a checkpoint or an rordb-installed snapshot
// directly rather than as the live server's epoch store.
func OpenAt(dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir rocks dir: %v", swaperr.ErrIOFailure, err)
	}
	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: new env: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.SetMaxDBs(len(allCFs)); err != nil {
		return nil, fmt.Errorf("%w: set max dbs: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.Open(dir, 0, 0o644); err != nil {
		return nil, fmt.Errorf("%w: open env at %s: %v", swaperr.ErrIOFailure, dir, err)
	}
	dbis := make(map[codec.CF]lmdb.DBI, len(allCFs))
	err = env.Update(func(txn *lmdb.Txn) error {
		for _, cf := range allCFs {
			dbi, oerr := txn.OpenDBI(cfName(cf), lmdb.Create)
			if oerr != nil {
				return oerr
			}
			dbis[cf] = dbi
		}
		return nil
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("%w: open column families: %v", swaperr.ErrIOFailure, err)
	}
	return &Engine{env: env, dbis: dbis, root: dir, epoch: 0, dir: dir}, nil
}

func discoverEpoch(root string) (int64, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: scan rocks root: %v", swaperr.ErrIOFailure, err)
	}
	var max int64 = -1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var n int64
		if _, serr := fmt.Sscanf(e.Name(), "%d", &n); serr != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	if max < 0 {
		return 0, nil
	}
	return max, nil
}

// Epoch reports the currently open epoch directory's numeric suffix.
func (e *Engine) Epoch() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.epoch
}

// Dir reports the currently open epoch directory's path.
func (e *Engine) Dir() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dir
}

// SetDegraded flips the filter_state-style gate spec.md §5 describes: while
// degraded, writes return ErrRocksDegraded instead of touching disk (the
// host store does this when disk health checks fail).
func (e *Engine) SetDegraded(degraded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.degraded = degraded
}

func (e *Engine) isDegraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}

// Reopen closes the current environment and opens dir/<epoch+1>, the "config
// driven reopen" spec.md §5 names; callers must hold no outstanding
// transactions on e (the read-preferring lock in front of Engine in the
// server layer is what actually blocks readers out during this call).
func (e *Engine) Reopen() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.epoch + 1
	dir := filepath.Join(e.root, fmt.Sprintf("%d", next))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir rocks dir: %v", swaperr.ErrIOFailure, err)
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return fmt.Errorf("%w: new env: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.SetMaxDBs(len(allCFs)); err != nil {
		return fmt.Errorf("%w: set max dbs: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.Open(dir, 0, 0o644); err != nil {
		return fmt.Errorf("%w: open env at %s: %v", swaperr.ErrIOFailure, dir, err)
	}
	dbis := make(map[codec.CF]lmdb.DBI, len(allCFs))
	err = env.Update(func(txn *lmdb.Txn) error {
		for _, cf := range allCFs {
			dbi, oerr := txn.OpenDBI(cfName(cf), lmdb.Create)
			if oerr != nil {
				return oerr
			}
			dbis[cf] = dbi
		}
		return nil
	})
	if err != nil {
		env.Close()
		return fmt.Errorf("%w: open column families: %v", swaperr.ErrIOFailure, err)
	}

	old := e.env
	e.env, e.dbis, e.epoch, e.dir = env, dbis, next, dir
	old.Close()
	return nil
}

// Close releases the environment handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.env.Close()
}
