// rordb.go implements spec.md §6's bulk-optimized "rordb" mode: instead of
// the logical [meta_header][subkey_rdb]... body rdb.go streams, it ships the
// raw environment files behind a rocks.Engine.Checkpoint snapshot and
// installs them by writing the files directly, skipping per-key decode
// entirely. Selected by the `swap-rordb-enabled` config knob per
// original_source/src/ctrip_swap_rdb.c's ctrip_swap_rordb.h-gated path.
package rdb

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

// SaveRordb checkpoints engine (spec.md §6's "atomic hard-link snapshot
// named tmp_<ustime>", adapted per rocks.Engine.Checkpoint's own doc
// comment) and streams every file under the resulting directory to w as a
// tar stream. flag (nilable) is held for the duration of both the
// checkpoint and the stream.
func SaveRordb(w io.Writer, engine *rocks.Engine, checkpointDir string, ustimeMs int64, flag *SnapshotFlag, opts Options) (string, error) {
	flag.begin()
	defer flag.end()

	snapshotDir, err := engine.Checkpoint(checkpointDir, ustimeMs)
	if err != nil {
		return "", err
	}

	var out io.Writer = w
	var sw *snappy.Writer
	if opts.Compress {
		sw = snappy.NewBufferedWriter(w)
		out = sw
	}
	tw := tar.NewWriter(out)

	walkErr := filepath.Walk(snapshotDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(snapshotDir, path)
		if rerr != nil {
			return rerr
		}
		hdr, herr := tar.FileInfoHeader(info, "")
		if herr != nil {
			return herr
		}
		hdr.Name = rel
		if herr := tw.WriteHeader(hdr); herr != nil {
			return herr
		}
		f, ferr := os.Open(path)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		_, cerr := io.Copy(tw, f)
		return cerr
	})
	if walkErr != nil {
		return snapshotDir, fmt.Errorf("%w: rordb save: stream snapshot: %v", swaperr.ErrIOFailure, walkErr)
	}
	if err := tw.Close(); err != nil {
		return snapshotDir, fmt.Errorf("%w: rordb save: close tar writer: %v", swaperr.ErrIOFailure, err)
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			return snapshotDir, fmt.Errorf("%w: rordb save: close compressor: %v", swaperr.ErrIOFailure, err)
		}
	}
	return snapshotDir, nil
}

// LoadRordb reads a stream written by SaveRordb into destDir (created if
// absent) and opens it as a fresh Engine: "loaded by installing the SST
// files directly" rather than replaying logical entries. The caller owns
// swapping this Engine into the live server under the read-preferring lock,
// the same handoff rocks.Engine.Reopen's doc comment describes.
func LoadRordb(r io.Reader, destDir string, opts Options) (*rocks.Engine, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: rordb load: mkdir dest: %v", swaperr.ErrIOFailure, err)
	}

	var in io.Reader = r
	if opts.Compress {
		in = snappy.NewReader(r)
	}
	tr := tar.NewReader(in)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: rordb load: read tar header: %v", swaperr.ErrIOFailure, err)
		}
		target := filepath.Join(destDir, hdr.Name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("%w: rordb load: mkdir: %v", swaperr.ErrIOFailure, err)
		}
		f, ferr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if ferr != nil {
			return nil, fmt.Errorf("%w: rordb load: create file: %v", swaperr.ErrIOFailure, ferr)
		}
		_, cerr := io.Copy(f, tr)
		cerr2 := f.Close()
		if cerr != nil {
			return nil, fmt.Errorf("%w: rordb load: write file: %v", swaperr.ErrIOFailure, cerr)
		}
		if cerr2 != nil {
			return nil, fmt.Errorf("%w: rordb load: close file: %v", swaperr.ErrIOFailure, cerr2)
		}
	}

	engine, err := rocks.OpenAt(destDir)
	if err != nil {
		return nil, err
	}
	return engine, nil
}
