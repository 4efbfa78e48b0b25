package lrcp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConnect(t *testing.T) {
	m, err := ParseMessage([]byte("/connect/12345/"))
	require.NoError(t, err)
	require.True(t, m.IsConnect())
	require.Equal(t, 12345, m.Session)
}

func TestParseClose(t *testing.T) {
	m, err := ParseMessage([]byte("/close/12345/"))
	require.NoError(t, err)
	require.True(t, m.IsClose())
	require.Equal(t, 12345, m.Session)
}

func TestParseAck(t *testing.T) {
	m, err := ParseMessage([]byte("/ack/12345/1024/"))
	require.NoError(t, err)
	require.True(t, m.IsAck())
	require.Equal(t, 1024, m.Length)
}

func TestParseData(t *testing.T) {
	m, err := ParseMessage([]byte("/data/12345/0/hello/"))
	require.NoError(t, err)
	require.True(t, m.IsData())
	require.Equal(t, 0, m.Pos)
	require.Equal(t, []byte("hello"), m.Data)
}

func TestParseDataWithEscapes(t *testing.T) {
	m, err := ParseMessage([]byte(`/data/1/0/foo\/bar\\baz/`))
	require.NoError(t, err)
	require.Equal(t, `foo/bar\baz`, string(m.Data))
}

func TestParseDataRejectsUnescapedSlash(t *testing.T) {
	_, err := ParseMessage([]byte(`/data/1/0/foo/bar/`))
	require.Error(t, err)
}

func TestParseDataRejectsTrailingBackslash(t *testing.T) {
	_, err := ParseMessage([]byte(`/data/1/0/foo\/`))
	require.Error(t, err)
}

func TestParseRejectsOversizeNumericField(t *testing.T) {
	_, err := ParseMessage([]byte("/connect/99999999999999/"))
	require.Error(t, err)
}

func TestParseRejectsMissingLeadingSlash(t *testing.T) {
	_, err := ParseMessage([]byte("connect/1/"))
	require.Error(t, err)
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := ParseMessage([]byte("/frobnicate/1/"))
	require.Error(t, err)
}

func TestSerializeDataRoundTrips(t *testing.T) {
	raw := SerializeData(12345, 0, []byte(`a/b\c`))
	m, err := ParseMessage(raw)
	require.NoError(t, err)
	require.True(t, m.IsData())
	require.Equal(t, 12345, m.Session)
	require.Equal(t, 0, m.Pos)
	require.Equal(t, `a/b\c`, string(m.Data))
}

func TestSerializeAckRoundTrips(t *testing.T) {
	raw := SerializeAck(1, 5)
	m, err := ParseMessage(raw)
	require.NoError(t, err)
	require.True(t, m.IsAck())
	require.Equal(t, 5, m.Length)
}

func TestFitDataRespectsMaxDatagramSize(t *testing.T) {
	data := make([]byte, 2000)
	for i := range data {
		data[i] = 'x'
	}
	n := FitData(123, 0, data)
	msg := SerializeData(123, 0, data[:n])
	require.LessOrEqual(t, len(msg), MaxDatagramSize)
	// One more byte should no longer fit.
	require.Greater(t, len(SerializeData(123, 0, data[:n+1])), MaxDatagramSize)
}

func TestFitDataAccountsForEscapedBytes(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = '/' // every byte doubles in size once escaped
	}
	n := FitData(1, 0, data)
	msg := SerializeData(1, 0, data[:n])
	require.LessOrEqual(t, len(msg), MaxDatagramSize)
}
