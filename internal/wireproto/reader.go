// Package wireproto implements spec.md §3's client wire protocol: a
// minimal RESP2-style multi-bulk reader/writer good enough to carry
// command argv in and replies (plus RESP3 out-of-band push frames, for
// internal/heartbeat) back out.
//
// Grounded on the teacher's ethdb/remote length-prefixed framed-message
// style (a request is a declared count of declared-length payloads),
// re-expressed against RESP's actual wire grammar rather than a custom
// framing, since RESP is the protocol this class of store's clients
// actually speak.
package wireproto

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaperr"
)

const maxBulkLen = 512 << 20 // matches proto-max-bulk-len's conservative default

// Reader parses a sequence of client commands off the wire, one argv
// slice per ReadCommand call.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for command reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 16*1024)}
}

// ReadCommand reads one command's argv off the wire. It understands both
// the multi-bulk array form ("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n") and the
// plain-text inline form ("GET foo\r\n"), matching real RESP servers'
// dual-mode line-1 dispatch.
func (r *Reader) ReadCommand() ([][]byte, error) {
	first, err := r.br.Peek(1)
	if err != nil {
		return nil, err
	}
	if first[0] == '*' {
		return r.readMultiBulk()
	}
	return r.readInline()
}

func (r *Reader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Reader) readInline() ([][]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	argv := make([][]byte, len(fields))
	for i, f := range fields {
		argv[i] = []byte(f)
	}
	return argv, nil
}

func (r *Reader) readMultiBulk() ([][]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "*"))
	if err != nil {
		return nil, fmt.Errorf("%w: bad multibulk length %q", swaperr.ErrProtocol, line)
	}
	if n < 0 {
		return nil, nil
	}
	argv := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := r.readBulkString()
		if err != nil {
			return nil, err
		}
		argv = append(argv, arg)
	}
	return argv, nil
}

func (r *Reader) readBulkString() ([]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '$' {
		return nil, fmt.Errorf("%w: expected bulk string, got %q", swaperr.ErrProtocol, line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: bad bulk length %q", swaperr.ErrProtocol, line)
	}
	if n < 0 {
		return nil, nil
	}
	if n > maxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit", swaperr.ErrProtocol, n)
	}
	buf := make([]byte, n+2) // payload + trailing CRLF
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	return buf[:n], nil
}
