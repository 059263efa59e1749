package listener

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitDisjointKeysProceedImmediately(t *testing.T) {
	g := NewGraph(1)
	var proceeded []string
	proceed := func(name string) ProceedFunc {
		return func(db int, key []byte, client, ctx interface{}) error {
			proceeded = append(proceeded, name)
			return nil
		}
	}

	_, err := g.Wait(1, 0, []byte("a"), proceed("a"), nil, nil, nil)
	require.NoError(t, err)
	_, err = g.Wait(2, 0, []byte("b"), proceed("b"), nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, proceeded)
}

// Scenario 2 from spec.md §8: a MULTI/EXEC with HMGET h f1 f2; DEL h shares
// one txid and is proceeded as a single coalesced listener without an
// external notify in between.
func TestTransactionCoalescesIntoOneListener(t *testing.T) {
	g := NewGraph(1)
	var order []string
	proceed := func(name string) ProceedFunc {
		return func(db int, key []byte, client, ctx interface{}) error {
			order = append(order, name)
			return nil
		}
	}

	txid := int64(42)
	_, err := g.Wait(txid, 0, []byte("h"), proceed("hmget-f1"), nil, nil, nil)
	require.NoError(t, err)
	_, err = g.Wait(txid, 0, []byte("h"), proceed("hmget-f2"), nil, nil, nil)
	require.NoError(t, err)
	h, err := g.Wait(txid, 0, []byte("h"), proceed("del"), nil, nil, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"hmget-f1", "hmget-f2", "del"}, order)

	l := h.q.peek()
	require.NotNil(t, l)
	require.Equal(t, 3, l.Count)
	require.Equal(t, 3, l.Proceeded)
}

// A second command on the same key with a different txid must block until
// the first txid's listener is fully notified.
func TestOverlappingKeysSerializeByArrivalOrder(t *testing.T) {
	g := NewGraph(1)
	var order []string
	proceed := func(name string) ProceedFunc {
		return func(db int, key []byte, client, ctx interface{}) error {
			order = append(order, name)
			return nil
		}
	}

	h1, err := g.Wait(1, 0, []byte("h"), proceed("first"), nil, nil, nil)
	require.NoError(t, err)
	_, err = g.Wait(2, 0, []byte("h"), proceed("second"), nil, nil, nil)
	require.NoError(t, err)
	// "second" must not have proceeded yet: txid 1's listener still pending.
	require.Equal(t, []string{"first"}, order)

	require.NoError(t, g.Notify(h1))
	require.Equal(t, []string{"first", "second"}, order)
}

// Scenario 3: a DB-level command (FLUSHDB) must wait for an in-flight
// key-level command (HGETALL on a cold key) to notify before proceeding,
// even though the FLUSHDB wait itself binds directly to the db-level queue
// (a db-level request always binds there, regardless of what's pending
// beneath it in key-level queues) rather than descending into the key
// queue HGETALL is parked in.
func TestDBLevelCommandDrainsKeyLevelFirst(t *testing.T) {
	g := NewGraph(1)
	var order []string
	proceed := func(name string) ProceedFunc {
		return func(db int, key []byte, client, ctx interface{}) error {
			order = append(order, name)
			return nil
		}
	}

	hHget, err := g.Wait(1, 0, []byte("h"), proceed("hgetall"), nil, nil, nil)
	require.NoError(t, err)
	_, err = g.Wait(2, 0, nil, proceed("flushdb"), nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"hgetall"}, order, "flushdb must not run before hgetall notifies")

	require.NoError(t, g.Notify(hHget))
	require.Equal(t, []string{"hgetall", "flushdb"}, order, "flushdb proceeds once the key listener drains")
}

func TestWouldBlockReflectsPendingListeners(t *testing.T) {
	g := NewGraph(1)
	noop := func(db int, key []byte, client, ctx interface{}) error { return nil }
	require.False(t, g.WouldBlock(1, 0, []byte("k")))
	_, err := g.Wait(1, 0, []byte("k"), noop, nil, nil, nil)
	require.NoError(t, err)
	require.False(t, g.WouldBlock(1, 0, []byte("k")), "same txid never blocks itself")
	require.True(t, g.WouldBlock(2, 0, []byte("k")), "different txid must block while the first is pending")
}

// Notify must act on the exact queue captured at Wait time, not a queue
// re-derived from (dbid, key): once the db-level queue gains its own
// listener (flushdb), a fresh bind for key "h" would incorrectly return the
// db queue instead of the key queue (requestBindListeners returns the db
// queue whenever it is non-empty). The captured Handle sidesteps this.
func TestNotifyUsesCapturedHandleNotFreshBind(t *testing.T) {
	g := NewGraph(1)
	var order []string
	proceed := func(name string) ProceedFunc {
		return func(db int, key []byte, client, ctx interface{}) error {
			order = append(order, name)
			return nil
		}
	}

	hHget, err := g.Wait(1, 0, []byte("h"), proceed("hgetall"), nil, nil, nil)
	require.NoError(t, err)
	_, err = g.Wait(2, 0, nil, proceed("flushdb"), nil, nil, nil)
	require.NoError(t, err)

	// A fresh bind for key "h" now resolves to the db queue, not the key
	// queue hHget was bound to, because the db queue is no longer empty.
	fresh := g.root.bind(0, []byte("h"), false)
	require.NotSame(t, hHget.q, fresh)

	require.NoError(t, g.Notify(hHget))
	require.Equal(t, []string{"hgetall", "flushdb"}, order)
}
