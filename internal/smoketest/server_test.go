package smoketest

import (
	"io"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestServeEchoesBytesVerbatim(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	logger := zerolog.Nop()
	go Serve(l, logger)

	cases := []string{
		"asdf\nfdsa",
		"ÀÁÂÃÄÅÆÇÈÉÊËÌÍÎÏ",
		"",
		"The quick brown fox jumped over the lazy dog.",
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc, func(t *testing.T) {
			conn, err := net.Dial("tcp", l.Addr().String())
			require.NoError(t, err)
			defer conn.Close()

			_, err = conn.Write([]byte(tc))
			require.NoError(t, err)
			require.NoError(t, conn.(*net.TCPConn).CloseWrite())

			got, err := io.ReadAll(conn)
			require.NoError(t, err)
			require.Equal(t, tc, string(got))
		})
	}
}
