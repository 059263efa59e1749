package server

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/command"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/config"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/heartbeat"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/listener"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaprequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/wireproto"
)

func newTestKeyspace(t *testing.T, dbnum int) *Keyspace {
	t.Helper()
	cfg := config.New()
	return NewKeyspace(dbnum, objectmeta.NewStore(dbnum), cfg)
}

func TestKeyspaceResolveInfersTypeFromCommandOnNeverPersistedKey(t *testing.T) {
	ks := newTestKeyspace(t, 1)

	o, c, swapType, ok, err := ks.Resolve(0, []byte("greeting"), "GET")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, o)
	require.NotNil(t, c)
	require.Equal(t, codec.TypeString, swapType)
	require.Nil(t, o.Meta)
}

func TestKeyspaceResolveNoAnswerForGenericCommandOnMissingKey(t *testing.T) {
	ks := newTestKeyspace(t, 1)

	_, _, _, ok, err := ks.Resolve(0, []byte("nope"), "DEL")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyspaceResolveReusesLiveObjectAcrossCalls(t *testing.T) {
	ks := newTestKeyspace(t, 1)

	o1, _, _, ok, err := ks.Resolve(0, []byte("k"), "GET")
	require.NoError(t, err)
	require.True(t, ok)

	o2, _, _, ok, err := ks.Resolve(0, []byte("k"), "STRLEN")
	require.NoError(t, err)
	require.True(t, ok)
	require.Same(t, o1, o2)
}

func TestKeyspaceSyncEvictsEmptyCleanObject(t *testing.T) {
	ks := newTestKeyspace(t, 1)

	o, _, _, ok, err := ks.Resolve(0, []byte("k"), "GET")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, ks.Exists(0, []byte("k")))

	ks.Sync(0, []byte("k"), o)
	require.False(t, ks.Exists(0, []byte("k")))
}

func TestKeyspaceSyncKeepsDirtyObjectLive(t *testing.T) {
	ks := newTestKeyspace(t, 1)

	o, _, _, ok, err := ks.Resolve(0, []byte("k"), "SET")
	require.NoError(t, err)
	require.True(t, ok)
	o.Str = []byte("v")
	o.DataDirty = true

	ks.Sync(0, []byte("k"), o)
	require.True(t, ks.Exists(0, []byte("k")))
}

func TestKeyspaceFlushClearsOnlyThatDB(t *testing.T) {
	ks := newTestKeyspace(t, 2)
	_, _, _, _, err := ks.Resolve(0, []byte("a"), "GET")
	require.NoError(t, err)
	_, _, _, _, err = ks.Resolve(1, []byte("b"), "GET")
	require.NoError(t, err)

	ks.Flush(0)
	require.False(t, ks.Exists(0, []byte("a")))
	require.True(t, ks.Exists(1, []byte("b")))
}

func TestKeyspaceFlushAllClearsEveryDB(t *testing.T) {
	ks := newTestKeyspace(t, 2)
	_, _, _, _, err := ks.Resolve(0, []byte("a"), "GET")
	require.NoError(t, err)
	_, _, _, _, err = ks.Resolve(1, []byte("b"), "GET")
	require.NoError(t, err)

	ks.FlushAll()
	require.False(t, ks.Exists(0, []byte("a")))
	require.False(t, ks.Exists(1, []byte("b")))
}

// TestPendingCmdOnlyFiresOnceEverySubRequestSettles mirrors a multi-key
// command (e.g. "DEL a b c"): onDone must run exactly once, only after
// every constituent keyRequest has settled, and it must report the first
// error seen even though later requests still complete.
func TestPendingCmdOnlyFiresOnceEverySubRequestSettles(t *testing.T) {
	var fired int
	var reportedErr error
	cmd := newPendingCmd(nil, "DEL", 3, func(p *pendingCmd) {
		fired++
		reportedErr = p.firstErr
	})

	cmd.complete()
	require.Equal(t, 0, fired)
	cmd.fail(require.AnError)
	require.Equal(t, 0, fired)
	cmd.complete()
	require.Equal(t, 1, fired)
	require.ErrorIs(t, reportedErr, require.AnError)
}

// fakeWorkerDispatcher never actually runs anything; used to assert that a
// NOP-analyzed keyRequest settles synchronously without ever reaching the
// worker pool.
type fakeWorkerDispatcher struct {
	dispatched int
}

func (f *fakeWorkerDispatcher) Dispatch(b *swaprequest.Batch) int {
	f.dispatched++
	return 0
}

func newTestDispatcher(t *testing.T, ks *Keyspace, pool workerDispatcher) *Dispatcher {
	t.Helper()
	ex := swaprequest.NewExecutor(rocks.New("").InMem().MustOpen(), swaprequest.NewMemoryGauge(0))
	return NewDispatcher(command.NewRegistry(), ks, listener.NewGraph(1), pool, ex)
}

func readReply(t *testing.T, conn net.Conn) string {
	t.Helper()
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return line
}

// TestDispatcherGetOnNeverPersistedKeySettlesAsNOP exercises the full
// Dispatch path for a command whose swap-type is known (GET -> string)
// but whose key has no data anywhere yet: Analyze must report NOP, the
// fake pool must never be invoked, and the client gets a plain +OK.
func TestDispatcherGetOnNeverPersistedKeySettlesAsNOP(t *testing.T) {
	ks := newTestKeyspace(t, 1)
	pool := &fakeWorkerDispatcher{}
	d := newTestDispatcher(t, ks, pool)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()
	c := wireproto.NewClient(1, serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(c, 0, [][]byte{[]byte("GET"), []byte("greeting")})
	}()

	line := readReply(t, clientConn)
	<-done
	require.Equal(t, "+OK\r\n", line)
	require.Equal(t, 0, pool.dispatched)
	require.False(t, ks.Exists(0, []byte("greeting")))
}

// TestDispatcherDelOnMissingKeySettlesImmediately checks the "no answer"
// Resolve path: DEL has no fixed swap-type, so a never-touched key yields
// ok=false and the keyRequest completes without ever building an Object.
func TestDispatcherDelOnMissingKeySettlesImmediately(t *testing.T) {
	ks := newTestKeyspace(t, 1)
	pool := &fakeWorkerDispatcher{}
	d := newTestDispatcher(t, ks, pool)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()
	c := wireproto.NewClient(1, serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(c, 0, [][]byte{[]byte("DEL"), []byte("nope")})
	}()

	line := readReply(t, clientConn)
	<-done
	require.Equal(t, "+OK\r\n", line)
	require.Equal(t, 0, pool.dispatched)
}

// TestDispatcherFlushdbClearsKeyspaceBeforeReplying drives the
// LevelDB/no-Contract path through submitScoped.
func TestDispatcherFlushdbClearsKeyspaceBeforeReplying(t *testing.T) {
	ks := newTestKeyspace(t, 1)
	_, _, _, _, err := ks.Resolve(0, []byte("k"), "GET")
	require.NoError(t, err)

	pool := &fakeWorkerDispatcher{}
	d := newTestDispatcher(t, ks, pool)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()
	c := wireproto.NewClient(1, serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(c, 0, [][]byte{[]byte("FLUSHDB")})
	}()

	line := readReply(t, clientConn)
	<-done
	require.Equal(t, "+OK\r\n", line)
	require.False(t, ks.Exists(0, []byte("k")))
}

func TestClientTablePushHeartbeatRoutesToRegisteredClient(t *testing.T) {
	table := NewClientTable()
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	id := table.NextID()
	c := wireproto.NewClient(id, serverConn)
	table.Register(c, id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, table.PushHeartbeat(id, heartbeat.ActionSystime, 42))
	}()

	buf := make([]byte, 64)
	n, err := clientConn.Read(buf)
	require.NoError(t, err)
	<-done
	require.Contains(t, string(buf[:n]), "systime")
}

func TestClientTablePushHeartbeatSkipsUnknownClient(t *testing.T) {
	table := NewClientTable()
	require.NoError(t, table.PushHeartbeat(999, heartbeat.ActionSystime, 1))
}

func TestClientTableRemoveDropsClient(t *testing.T) {
	table := NewClientTable()
	serverConn, _ := net.Pipe()
	defer serverConn.Close()

	id := table.NextID()
	table.Register(wireproto.NewClient(id, serverConn), id)
	table.Remove(id)
	require.NoError(t, table.PushHeartbeat(id, heartbeat.ActionSystime, 1))
}
