package speed

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadClientMessagePlate(t *testing.T) {
	raw := []byte("\x20\x04\x55\x4E\x31\x58\x00\x00\x03\xE8")
	msg, err := ReadClientMessage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, Plate{Plate: "UN1X", Timestamp: 1000}, msg)
}

func TestReadClientMessageWantHeartbeat(t *testing.T) {
	raw := []byte("\x40\x00\x00\x00\x0a")
	msg, err := ReadClientMessage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, WantHeartbeat{Interval: 10}, msg)
}

func TestReadClientMessageIAmCamera(t *testing.T) {
	raw := []byte("\x80\x00\x42\x00\x64\x00\x3c")
	msg, err := ReadClientMessage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, IAmCamera{Road: 66, Mile: 100, Limit: 60}, msg)
}

func TestReadClientMessageIAmDispatcher(t *testing.T) {
	raw := []byte("\x81\x03\x00\x42\x01\x70\x13\x88")
	msg, err := ReadClientMessage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, IAmDispatcher{Roads: []uint16{66, 368, 5000}}, msg)
}

func TestReadClientMessageUnknownType(t *testing.T) {
	raw := []byte("\xff")
	_, err := ReadClientMessage(bufio.NewReader(bytes.NewReader(raw)))
	require.Error(t, err)
}

func TestWriteErrorMatchesWireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteError(&buf, "bad"))
	require.Equal(t, []byte("\x10\x03\x62\x61\x64"), buf.Bytes())
}

func TestWriteTicketMatchesWireFormat(t *testing.T) {
	var buf bytes.Buffer
	ticket := NewTicket("UN1X", 66, 100, 123456, 110, 123816, 100)
	require.NoError(t, WriteTicket(&buf, ticket))
	expected := []byte("\x21\x04\x55\x4e\x31\x58\x00\x42\x00\x64\x00\x01\xe2\x40\x00\x6e\x00\x01\xe3\xa8\x27\x10")
	require.Equal(t, expected, buf.Bytes())
}

func TestWriteHeartbeatMatchesWireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeartbeat(&buf))
	require.Equal(t, []byte{0x41}, buf.Bytes())
}
