package speed

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/kvlach/protohackers/internal/obs"
)

// Serve accepts connections on l, dispatching each to its own
// goroutine running the role state machine against the shared record
// and dispatch systems.
func Serve(l net.Listener, record *RecordSystem, dispatch *DispatchRegistry, metrics *obs.Metrics, logger zerolog.Logger) error {
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
			handleConn(conn, record, dispatch, metrics, logger)
		}()
	}
}
