package wireproto

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/heartbeat"
)

func TestReadCommandParsesMultiBulk(t *testing.T) {
	r := NewReader(bytes.NewBufferString("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	argv, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("GET"), []byte("foo")}, argv)
}

func TestReadCommandParsesInline(t *testing.T) {
	r := NewReader(bytes.NewBufferString("GET foo\r\n"))
	argv, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("GET"), []byte("foo")}, argv)
}

func TestReadCommandRejectsBadMultibulkLength(t *testing.T) {
	r := NewReader(bytes.NewBufferString("*x\r\n"))
	_, err := r.ReadCommand()
	require.Error(t, err)
}

func TestReadCommandRejectsOversizedBulk(t *testing.T) {
	r := NewReader(bytes.NewBufferString("*1\r\n$999999999999\r\n"))
	_, err := r.ReadCommand()
	require.Error(t, err)
}

func TestReadCommandHandlesMultipleCommandsInSequence(t *testing.T) {
	r := NewReader(bytes.NewBufferString("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"))
	for i := 0; i < 2; i++ {
		argv, err := r.ReadCommand()
		require.NoError(t, err)
		require.Equal(t, [][]byte{[]byte("PING")}, argv)
	}
}

func TestWriterRoundTripsBasicReplyTypes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSimpleString("OK"))
	require.NoError(t, w.WriteInteger(42))
	require.NoError(t, w.WriteBulkString([]byte("hi")))
	require.NoError(t, w.WriteBulkString(nil))
	require.NoError(t, w.Flush())
	require.Equal(t, "+OK\r\n:42\r\n$2\r\nhi\r\n$-1\r\n", buf.String())
}

func TestWriterArrayHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteArrayHeader(2))
	require.NoError(t, w.WriteBulkString([]byte("a")))
	require.NoError(t, w.WriteBulkString([]byte("b")))
	require.NoError(t, w.Flush())
	require.Equal(t, "*2\r\n$1\r\na\r\n$1\r\nb\r\n", buf.String())
}

func TestClientPushHeartbeatWritesPushFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(7, server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, c.PushHeartbeat(7, heartbeat.ActionSystime, 123))
	}()

	r := NewReader(client)
	require.NoError(t, discardPushFrame(r))
	<-done
}

// discardPushFrame reads one ">2\r\n$.\r\n....\r\n:.\r\n"-shaped push frame
// off r's underlying connection, just enough to unblock the writer side
// in TestClientPushHeartbeatWritesPushFrame.
func discardPushFrame(r *Reader) error {
	for i := 0; i < 4; i++ {
		if _, err := r.readLine(); err != nil {
			return err
		}
	}
	return nil
}
