// Package logging provides the structured key/value logger used across the
// swap core, in the spirit of turbo-geth's log15-derived logger: callers pass
// a message plus alternating key/value pairs rather than format strings.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type Level int

const (
	LvlError Level = iota
	LvlWarn
	LvlInfo
	LvlDebug
)

func (l Level) String() string {
	switch l {
	case LvlError:
		return "EROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DBUG"
	default:
		return "????"
	}
}

var levelColor = map[Level]*color.Color{
	LvlError: color.New(color.FgRed, color.Bold),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
}

// Logger is a named, context-carrying logger. The zero value is not usable;
// use New.
type Logger struct {
	ctx []interface{}
	out io.Writer
	mu  *sync.Mutex
	lvl *Level
}

var root = newRoot()

func newRoot() *Logger {
	lvl := LvlInfo
	var w io.Writer = os.Stderr
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
	}
	return &Logger{out: w, mu: &sync.Mutex{}, lvl: &lvl}
}

// New returns a logger with additional fixed context appended to every line,
// e.g. log.New("database", "in-memory").
func New(ctx ...interface{}) *Logger {
	return root.New(ctx...)
}

func (l *Logger) New(ctx ...interface{}) *Logger {
	nctx := make([]interface{}, 0, len(l.ctx)+len(ctx))
	nctx = append(nctx, l.ctx...)
	nctx = append(nctx, ctx...)
	return &Logger{ctx: nctx, out: l.out, mu: l.mu, lvl: l.lvl}
}

// SetLevel controls the minimum level emitted process-wide.
func SetLevel(lvl Level) { *root.lvl = lvl }

func (l *Logger) write(lvl Level, msg string, kv []interface{}) {
	if lvl > *l.lvl {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c := levelColor[lvl]
	fmt.Fprintf(l.out, "%s[%s] %s", c.Sprint(lvl.String()), time.Now().Format("15:04:05.000"), msg)
	all := make([]interface{}, 0, len(l.ctx)+len(kv))
	all = append(all, l.ctx...)
	all = append(all, kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %s=%v", all[i], all[i+1])
	}
	fmt.Fprintln(l.out)
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.write(LvlDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.write(LvlInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.write(LvlWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.write(LvlError, msg, kv) }

func Debug(msg string, kv ...interface{}) { root.write(LvlDebug, msg, kv) }
func Info(msg string, kv ...interface{})  { root.write(LvlInfo, msg, kv) }
func Warn(msg string, kv ...interface{})  { root.write(LvlWarn, msg, kv) }
func Error(msg string, kv ...interface{}) { root.write(LvlError, msg, kv) }
