package rocks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledgerwatch/lmdb-go/lmdb"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// Checkpoint snapshots the currently open environment into dir/tmp_<ustimeMs>,
// named per spec.md §6's "atomic hard-link snapshots named tmp_<ustime>".
// LMDB has no hard-link checkpoint primitive (its single data file's
// free-list makes a hard-link snapshot unsafe to read concurrently with
// writers the way RocksDB's immutable SSTs allow); env.Copy with the compact
// flag produces the equivalent point-in-time, self-contained copy instead,
// named the same way so the RDB/rordb layer built on top doesn't need to
// know which engine produced it.
func (e *Engine) Checkpoint(dir string, ustimeMs int64) (string, error) {
	e.mu.RLock()
	env := e.env
	e.mu.RUnlock()

	target := filepath.Join(dir, fmt.Sprintf("tmp_%d", ustimeMs))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir checkpoint dir: %v", swaperr.ErrIOFailure, err)
	}
	if err := env.CopyFlag(target, lmdb.CopyCompact); err != nil {
		return "", fmt.Errorf("%w: checkpoint copy: %v", swaperr.ErrIOFailure, err)
	}
	return target, nil
}
