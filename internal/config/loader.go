package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", raw)
	}
}

func parseInt(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// line is one parsed, already-unquoted config line together with the file
// and line number it came from, used both by Load (fatal errors get a
// line-number-annotated message per spec.md §7) and by Rewrite (knob lines
// get replaced in place, preserving every other line verbatim).
type line struct {
	file    string
	lineno  int
	raw     string   // the original, unmodified source line (comments, blanks included)
	args    []string // tokenized args, nil for blank/comment lines and include lines
	isKnob  bool     // args[0] names a known knob
	isMulti bool     // args[0] names a multi-arg directive
}

// Load reads path (and any `include`d files, recursively) and applies every
// directive to c. A malformed or unknown directive aborts with a
// line-number-annotated error, matching spec.md §7's "fatal config-file
// errors on startup abort the process with a line-number-annotated
// message."
func (c *Config) Load(path string) error {
	lines, err := readConfigLines(path, map[string]bool{})
	if err != nil {
		return err
	}
	abs, aerr := filepath.Abs(path)
	if aerr != nil {
		return fmt.Errorf("config: resolve path %s: %w", path, aerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceLines = lines
	c.sourcePath = abs

	for i := range lines {
		l := &lines[i]
		if l.args == nil {
			continue
		}
		name := strings.ToLower(l.args[0])
		if k, ok := c.registry[name]; ok {
			l.isKnob = true
			if len(l.args) != 2 {
				return fmt.Errorf("%s:%d: %q takes exactly one value", l.file, l.lineno, name)
			}
			if err := k.Set(l.args[1]); err != nil {
				return fmt.Errorf("%s:%d: %w", l.file, l.lineno, err)
			}
			continue
		}
		if isMultiDirective(name) {
			l.isMulti = true
			c.directives[name] = append(c.directives[name], append([]string(nil), l.args[1:]...))
			continue
		}
		return fmt.Errorf("%s:%d: unknown directive %q", l.file, l.lineno, l.args[0])
	}
	return nil
}

// isMultiDirective reports whether name is one of spec.md §6's repeatable
// multi-arg directives, which this package stores verbatim rather than
// binding to a typed Config field (they describe client-facing surface
// this module's scope doesn't own: persistence triggers, bind addresses,
// per-class buffer limits, OOM score triples, command renaming, modules,
// ACL users).
func isMultiDirective(name string) bool {
	switch name {
	case "save", "bind", "client-output-buffer-limit", "oom-score-adj-values",
		"rename-command", "loadmodule", "user":
		return true
	default:
		return false
	}
}

// Directives returns every occurrence of a multi-arg directive, in the
// order they appeared across the loaded file(s), each as its raw arg list
// (directive name excluded).
func (c *Config) Directives(name string) [][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.directives[strings.ToLower(name)]
}

func readConfigLines(path string, seen map[string]bool) ([]line, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: config: resolve path %s: %v", swaperr.ErrIOFailure, path, err)
	}
	if seen[abs] {
		return nil, fmt.Errorf("config: %s: circular include", path)
	}
	seen[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: config: open %s: %v", swaperr.ErrIOFailure, path, err)
	}
	defer f.Close()

	var out []line
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineno := 0
	for sc.Scan() {
		lineno++
		raw := sc.Text()
		args, perr := tokenize(raw)
		if perr != nil {
			return nil, fmt.Errorf("%s:%d: %v", abs, lineno, perr)
		}
		l := line{file: abs, lineno: lineno, raw: raw, args: args}
		if len(args) > 0 && strings.EqualFold(args[0], "include") {
			if len(args) != 2 {
				return nil, fmt.Errorf("%s:%d: include takes exactly one path", abs, lineno)
			}
			incPath := args[1]
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(filepath.Dir(abs), incPath)
			}
			included, ierr := readConfigLines(incPath, seen)
			if ierr != nil {
				return nil, ierr
			}
			out = append(out, line{file: abs, lineno: lineno, raw: raw})
			out = append(out, included...)
			continue
		}
		out = append(out, l)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: config: read %s: %v", swaperr.ErrIOFailure, path, err)
	}
	return out, nil
}

// tokenize splits one config line into whitespace-separated args, honoring
// single and double quoting the way config.c's sdssplitargs does (so
// values containing spaces or `#` survive). A blank or comment-only line
// yields a nil arg list. Returns an error on an unterminated quote.
func tokenize(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, nil
	}

	var args []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	hasCur := false

	runes := []rune(trimmed)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case inSingle:
			if ch == '\'' {
				inSingle = false
			} else {
				cur.WriteRune(ch)
			}
		case inDouble:
			if ch == '\\' && i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
			} else if ch == '"' {
				inDouble = false
			} else {
				cur.WriteRune(ch)
			}
		case ch == '\'':
			inSingle, hasCur = true, true
		case ch == '"':
			inDouble, hasCur = true, true
		case ch == '#':
			i = len(runes)
		case ch == ' ' || ch == '\t':
			if hasCur {
				args = append(args, cur.String())
				cur.Reset()
				hasCur = false
			}
		default:
			cur.WriteRune(ch)
			hasCur = true
		}
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote")
	}
	if hasCur {
		args = append(args, cur.String())
	}
	return args, nil
}
