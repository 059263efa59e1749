package server

import (
	"sync"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/heartbeat"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/wireproto"
)

// ClientTable maps a connected client's heartbeat.ClientID to its
// wireproto.Client, and implements heartbeat.Sink by routing each push to
// the right connection — heartbeat.Registry.Run fans a single tick's due
// set out across however many clients opted in, so the Sink it's given has
// to be a multi-client dispatcher rather than one connection's Client.
type ClientTable struct {
	mu      sync.Mutex
	nextID  heartbeat.ClientID
	clients map[heartbeat.ClientID]*wireproto.Client
}

// NewClientTable builds an empty table.
func NewClientTable() *ClientTable {
	return &ClientTable{clients: make(map[heartbeat.ClientID]*wireproto.Client)}
}

// Register wraps conn as a new client and assigns it a fresh ClientID.
func (t *ClientTable) Register(conn *wireproto.Client, id heartbeat.ClientID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[id] = conn
}

// NextID hands out a fresh, never-reused client ID.
func (t *ClientTable) NextID() heartbeat.ClientID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return t.nextID
}

// Remove drops id, called once its connection closes.
func (t *ClientTable) Remove(id heartbeat.ClientID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, id)
}

// PushHeartbeat implements heartbeat.Sink by looking up id's connection and
// delegating the actual write to it; a client that has since disconnected
// is silently skipped (its Registry entry is cleaned up separately by
// Disable on connection close).
func (t *ClientTable) PushHeartbeat(id heartbeat.ClientID, action heartbeat.Action, value int64) error {
	t.mu.Lock()
	c, ok := t.clients[id]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return c.PushHeartbeat(id, action, value)
}
