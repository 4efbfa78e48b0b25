package meanstoanend

import (
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"
)

// Serve accepts connections on l, each getting its own private Timeseries.
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
	log := logger.With().Str("remote_addr", conn.RemoteAddr().String()).Logger()

	var series Timeseries
	buf := make([]byte, MessageSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				log.Warn().Err(err).Msg("read error")
			}
			return
		}

		msg, err := Parse(buf)
		if err != nil {
			log.Info().Err(err).Msg("malformed message; closing")
			return
		}

		switch msg.Type {
		case Insert:
			series.Insert(msg.A, msg.B)
		case Query:
			mean := series.Mean(msg.A, msg.B)
			if err := binary.Write(conn, binary.BigEndian, mean); err != nil {
				log.Warn().Err(err).Msg("write error")
				return
			}
		}
	}
}
