// Package smoketest implements protohackers problem 0: echo every byte
// received back to the sender, verbatim, until the peer closes its write
// side.
package smoketest

import (
	"io"
	"net"

	"github.com/rs/zerolog"
)

// Serve accepts connections on l until it returns an error, handling each
// one in its own goroutine. It never returns on a per-connection failure.
func Serve(l net.Listener, logger zerolog.Logger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go handle(conn, logger)
	}
}

func handle(conn net.Conn, logger zerolog.Logger) {
	defer conn.Close()
	addr := conn.RemoteAddr().String()
	log := logger.With().Str("remote_addr", addr).Logger()
	log.Debug().Msg("accepted")

	written, err := io.Copy(conn, conn)
	if err != nil {
		log.Warn().Err(err).Msg("closing on error")
		return
	}
	log.Debug().Int64("bytes", written).Msg("closed")
}
