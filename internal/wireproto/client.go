package wireproto

import (
	"net"
	"sync"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/heartbeat"
)

// Client pairs one connection's Reader/Writer with the bookkeeping the
// server loop and heartbeat registry need to address it.
type Client struct {
	ID   heartbeat.ClientID
	Conn net.Conn
	R    *Reader
	W    *Writer

	mu sync.Mutex // serializes writes: heartbeat pushes and command replies share one Writer
}

// NewClient wraps a freshly accepted connection.
func NewClient(id heartbeat.ClientID, conn net.Conn) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		R:    NewReader(conn),
		W:    NewWriter(conn),
	}
}

// PushHeartbeat implements heartbeat.Sink: it writes one RESP3 push
// frame (">2\r\n$<len>\r\n<action>\r\n:<value>\r\n") and flushes
// immediately, since a heartbeat fires outside the normal
// request/response cadence and has no later reply to piggyback on.
func (c *Client) PushHeartbeat(id heartbeat.ClientID, action heartbeat.Action, value int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.W.WritePushHeader(2); err != nil {
		return err
	}
	if err := c.W.WriteBulkString([]byte(action.String())); err != nil {
		return err
	}
	if err := c.W.WriteInteger(value); err != nil {
		return err
	}
	return c.W.Flush()
}

// WriteReply serializes writes to this client's Writer against
// concurrent heartbeat pushes, then flushes. fn does the actual
// WriteXxx calls; it must not call Flush itself.
func (c *Client) WriteReply(fn func(w *Writer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.W); err != nil {
		return err
	}
	return c.W.Flush()
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.Conn.Close() }
