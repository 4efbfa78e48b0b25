package storage

import (
	"errors"
	"net"

	"github.com/rs/zerolog"

	"github.com/kvlach/protohackers/internal/obs"
)

// Serve accepts connections on l, handling each against the shared
// store until the client disconnects or a terminal protocol error
// occurs.
func Serve(l net.Listener, store *Store, metrics *obs.Metrics, logger zerolog.Logger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		if metrics != nil {
			metrics.ActiveSessions.Inc()
		}
		go func() {
			defer func() {
				if metrics != nil {
					metrics.ActiveSessions.Dec()
				}
			}()
			handleConn(conn, store, metrics, logger)
		}()
	}
}

func handleConn(netConn net.Conn, store *Store, metrics *obs.Metrics, logger zerolog.Logger) {
	defer netConn.Close()
	log := logger.With().Str("conn_id", obs.ConnID()).Str("remote_addr", netConn.RemoteAddr().String()).Logger()

	conn, err := NewConnection(netConn, metrics)
	if err != nil {
		log.Info().Err(err).Msg("error sending greeting")
		return
	}

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			var ce *connErr
			if errors.As(err, &ce) {
				log.Info().Err(ce).Msg("connection terminated")
			}
			return
		}
		if req == nil {
			return
		}

		if err := dispatch(conn, store, req); err != nil {
			log.Info().Err(err).Msg("error writing response")
			return
		}
	}
}

func dispatch(conn *Connection, store *Store, req *Request) error {
	switch req.kind {
	case reqHelp:
		return conn.SendHelp()
	case reqList:
		return conn.SendList(store.List(req.path))
	case reqGet:
		tmpPath, size, err := store.Get(req.filename, req.revision)
		if err != nil {
			return conn.SendError(err.Error())
		}
		return conn.SendGet(tmpPath, size)
	case reqPut:
		revision := store.Insert(req.filename, req.tmpPath, req.tmpSize, req.tmpHash)
		return conn.SendPut(revision)
	default:
		return conn.SendError("internal error")
	}
}
