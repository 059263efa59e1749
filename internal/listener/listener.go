// Package listener implements spec.md §4.5: the three-level (server/db/key)
// FIFO wait graph that gives swap commands their ordering guarantees. The
// algorithm (bind/wait/notify/proceed-chain) is translated line-for-line
// from original_source/src/ctrip_swap_wait.c's requestListeners machinery,
// re-expressed with Go slices/maps in place of Redis's intrusive list/dict.
package listener

import (
	"fmt"
)

// ProceedFunc runs an entry once its keyRequest is no longer blocked. A
// non-nil error is logged by the caller but does not stop the listener from
// being notified (spec.md §7: "the listener is still notified so downstream
// listeners make progress").
type ProceedFunc func(db int, key []byte, client interface{}, ctx interface{}) error

// entry is one (db, key, proceed) unit appended to a listener — the
// coalesced keyRequests of one command/transaction.
type entry struct {
	db      int
	key     []byte
	proceed ProceedFunc
	client  interface{}
	ctx     interface{}
	ctxDrop func(interface{})
}

// Listener is a FIFO queue element: all keyRequests sharing one txid that
// arrived at the same bound queue.
type Listener struct {
	Txid        int64
	entries     []entry
	Count       int
	Proceeded   int
	Notified    int
	NTxListener int // how many listeners in the parent subtree share this txid
}

func newListener(txid int64) *Listener {
	return &Listener{Txid: txid}
}

func (l *Listener) pushEntry(e entry) {
	l.entries = append(l.entries, e)
	l.Count++
}

// proceed runs every not-yet-proceeded entry, in append order, returning the
// first error encountered (if any) after running them all.
func (l *Listener) proceedAll() error {
	var firstErr error
	for i := l.Proceeded; i < l.Count; i++ {
		e := l.entries[i]
		if err := e.proceed(e.db, e.key, e.client, e.ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("listener proceed: %w", err)
		}
		l.Proceeded++
	}
	return firstErr
}

func (l *Listener) release() {
	for _, e := range l.entries {
		if e.ctxDrop != nil {
			e.ctxDrop(e.ctx)
		}
	}
	l.entries = nil
}

// Dump renders a short debug string, mirroring requestListenerDump in the
// original source.
func (l *Listener) Dump() string {
	return fmt.Sprintf("txid=%d,count=%d,proceeded=%d,notified=%d,ntxlistener=%d",
		l.Txid, l.Count, l.Proceeded, l.Notified, l.NTxListener)
}
