package lrcp

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kvlach/protohackers/internal/obs"
)

func newTestListener(t *testing.T) (*Listener, *net.UDPAddr) {
	t.Helper()
	laddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	l, err := Listen(laddr, zerolog.Nop(), obs.NewMetrics("lrcp_test"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, l.conn.LocalAddr().(*net.UDPAddr)
}

func dialTestClient(t *testing.T, server *net.UDPAddr) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, server)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

// TestConnectAckDataDuplicateScenario reproduces the named scenario: a
// peer connects, sends data, and retransmits the same data; the
// application must see the bytes exactly once, and each message must
// be acked with the current delivered length.
func TestConnectAckDataDuplicateScenario(t *testing.T) {
	l, serverAddr := newTestListener(t)
	client := dialTestClient(t, serverAddr)

	_, err := client.Write([]byte("/connect/12345/"))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "/ack/12345/0/", string(buf[:n]))

	session := l.Accept()
	require.Equal(t, 12345, session.ID)

	_, err = client.Write([]byte("/data/12345/0/hello/"))
	require.NoError(t, err)
	n, err = client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "/ack/12345/5/", string(buf[:n]))

	// Retransmit the same data.
	_, err = client.Write([]byte("/data/12345/0/hello/"))
	require.NoError(t, err)
	n, err = client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "/ack/12345/5/", string(buf[:n]))

	select {
	case <-session.readCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered data")
	}
	out := make([]byte, 16)
	readN, err := session.Read(out)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out[:readN]))
}

func TestAckOnUnknownSessionRepliesClose(t *testing.T) {
	_, serverAddr := newTestListener(t)
	client := dialTestClient(t, serverAddr)

	_, err := client.Write([]byte("/ack/999/0/"))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "/close/999/", string(buf[:n]))
}

func TestDuplicateConnectReAcksWithoutNewSession(t *testing.T) {
	l, serverAddr := newTestListener(t)
	client := dialTestClient(t, serverAddr)

	_, err := client.Write([]byte("/connect/1/"))
	require.NoError(t, err)
	buf := make([]byte, 1024)
	_, err = client.Read(buf)
	require.NoError(t, err)
	l.Accept()

	_, err = client.Write([]byte("/connect/1/"))
	require.NoError(t, err)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "/ack/1/0/", string(buf[:n]))

	select {
	case <-l.acceptCh:
		t.Fatal("duplicate connect should not enqueue a second session")
	default:
	}
}
