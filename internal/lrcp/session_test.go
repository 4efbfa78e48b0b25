package lrcp

import (
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s := newSession(conn.LocalAddr().(*net.UDPAddr), 1, conn, func(*Session) {}, zerolog.Nop(), nil)
	t.Cleanup(s.Abort)
	return s
}

func TestDeliverInOrderAdvancesPrefix(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, 5, s.deliver(0, []byte("hello")))
}

func TestDeliverDuplicateIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, 5, s.deliver(0, []byte("hello")))
	// Peer retransmits the same segment; delivered length must not change
	// and the byte stream must not duplicate it.
	require.Equal(t, 5, s.deliver(0, []byte("hello")))
	require.Equal(t, "hello", string(s.readBuffer))
}

func TestDeliverBeyondPrefixIsDropped(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, 5, s.deliver(0, []byte("hello")))
	// pos=10 is beyond the contiguous prefix (len=5); must be dropped.
	require.Equal(t, 5, s.deliver(10, []byte("world")))
	require.Equal(t, "hello", string(s.readBuffer))
}

func TestDeliverOverlappingSuffixAppendsOnlyNewBytes(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, 5, s.deliver(0, []byte("hello")))
	// Retransmit overlapping the delivered prefix but carrying new bytes.
	require.Equal(t, 11, s.deliver(0, []byte("hello world")))
	require.Equal(t, "hello world", string(s.readBuffer))
}

func TestReadReturnsDeliveredBytes(t *testing.T) {
	s := newTestSession(t)
	s.deliver(0, []byte("hello"))
	select {
	case s.readCh <- struct{}{}:
	default:
	}
	buf := make([]byte, 16)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}
