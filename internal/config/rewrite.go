package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Rewrite implements CONFIG REWRITE: it rewrites the file Load was pointed
// at in place, replacing each knob's existing line with its current
// value, blanking duplicate occurrences of an already-rewritten knob, and
// appending any knob that was never present in the file but has since
// been changed from its default. Every other line — comments, blank
// lines, unrecognized-but-accepted directives — is preserved verbatim,
// matching original_source/src/config.c's rewriteConfig: "load the old
// file, patch known options in place, append the rest, write atomically."
//
// Lines that came from an `include`d file are left untouched; Rewrite
// only ever writes the top-level file Load was called with.
func (c *Config) Rewrite() error {
	c.mu.RLock()
	if c.sourcePath == "" {
		c.mu.RUnlock()
		return fmt.Errorf("config: rewrite: no file was loaded")
	}
	path := c.sourcePath
	written := make(map[string]bool, len(c.order))
	var out []string
	for _, l := range c.sourceLines {
		if l.file != path {
			continue
		}
		if !l.isKnob {
			out = append(out, l.raw)
			continue
		}
		name := strings.ToLower(l.args[0])
		if written[name] {
			// duplicate occurrence of an already-rewritten knob: blank it
			// rather than delete it, so line numbers in any concurrent
			// error messages stay stable.
			out = append(out, "")
			continue
		}
		k := c.registry[name]
		out = append(out, renderKnobLine(k))
		written[name] = true
	}
	for _, name := range c.order {
		if written[name] {
			continue
		}
		k := c.registry[name]
		if k.Get() == k.Default {
			continue
		}
		out = append(out, renderKnobLine(k))
	}
	c.mu.RUnlock()

	return atomicWriteLines(path, out)
}

func renderKnobLine(k *Knob) string {
	return fmt.Sprintf("%s %s", k.Name, quoteIfNeeded(k.Get()))
}

func quoteIfNeeded(v string) string {
	if v == "" || strings.ContainsAny(v, " \t#\"'") {
		return fmt.Sprintf("%q", v)
	}
	return v
}

// atomicWriteLines writes lines (newline-joined) to a temp file beside
// path, fsyncs it, matches path's existing permissions (falling back to
// 0644 for a brand-new file), and renames it over path — config.c's
// mkstemp-write-fsync-fchmod-rename sequence re-expressed with os/io.
func atomicWriteLines(path string, lines []string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-rewrite-*")
	if err != nil {
		return fmt.Errorf("config: rewrite: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("config: rewrite: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: rewrite: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: rewrite: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("config: rewrite: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("config: rewrite: rename temp file into place: %w", err)
	}
	return nil
}
