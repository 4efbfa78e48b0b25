package speed

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/kvlach/protohackers/internal/obs"
)

// countingWriter reports every byte written to the server's metrics,
// wrapping the connection the way writerLoop's bufio.Writer flushes to
// it.
type countingWriter struct {
	w       io.Writer
	metrics *obs.Metrics
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if c.metrics != nil {
		c.metrics.BytesOut.Add(float64(n))
	}
	return n, err
}

type role int

const (
	roleUnregistered role = iota
	roleCamera
	roleDispatcher
)

// handleConn drives a single client connection through its role state
// machine, mirroring the original implementation's join of a managed
// writer, a heartbeat timer, and the client-message reader: here as
// three goroutines synchronized by the connection's lifetime instead
// of a single future join.
func handleConn(conn net.Conn, record *RecordSystem, dispatch *DispatchRegistry, metrics *obs.Metrics, log zerolog.Logger) {
	log = log.With().Str("conn_id", obs.ConnID()).Str("remote_addr", conn.RemoteAddr().String()).Logger()

	out := make(chan outMsg, outboxBufferSize)
	done := make(chan struct{})
	defer func() {
		close(done)
		// Bound the writer's final flush; writerLoop closes conn.
		conn.SetWriteDeadline(time.Now().Add(time.Second))
	}()

	go writerLoop(conn, out, done, metrics, log)

	heartbeatInterval := make(chan time.Duration, 1)
	go heartbeatLoop(out, heartbeatInterval, done)

	c := &clientState{
		road:              record,
		dispatch:          dispatch,
		out:               out,
		heartbeatInterval: heartbeatInterval,
		log:               log,
	}
	c.run(conn)
}

type clientState struct {
	road     *RecordSystem
	dispatch *DispatchRegistry
	out      chan outMsg

	heartbeatInterval chan time.Duration
	heartbeatSet      bool

	role   role
	mile   uint16 // valid when role == roleCamera
	roadID uint16 // valid when role == roleCamera

	log zerolog.Logger
}

func (c *clientState) run(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		msg, err := ReadClientMessage(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				reason := "bad message"
				if errors.Is(err, errInvalidString) {
					reason = err.Error()
				}
				c.sendErr(reason)
			}
			return
		}

		switch m := msg.(type) {
		case WantHeartbeat:
			if c.heartbeatSet {
				c.sendErr("the heartbeat interval has already been set")
				return
			}
			c.heartbeatSet = true
			if m.Interval > 0 {
				c.heartbeatInterval <- time.Duration(m.Interval) * 100 * time.Millisecond
			}
		case IAmCamera:
			if c.role != roleUnregistered {
				c.sendErr("the client has already identified itself")
				return
			}
			c.role = roleCamera
			c.roadID = m.Road
			c.mile = m.Mile
			c.road.RegisterCamera(m.Road, m.Limit)
		case IAmDispatcher:
			if c.role != roleUnregistered {
				c.sendErr("the client has already identified itself")
				return
			}
			c.role = roleDispatcher
			c.dispatch.RegisterDispatcher(m.Roads, c.out)
		case Plate:
			if c.role != roleCamera {
				c.sendErr("the client has not identified itself as a camera")
				return
			}
			c.road.SubmitRecord(c.roadID, c.mile, m.Plate, m.Timestamp)
		}
	}
}

func (c *clientState) sendErr(msg string) {
	select {
	case c.out <- newOutError(msg):
	default:
		c.log.Warn().Str("error", msg).Msg("client outbox full while sending error")
	}
}

// writerLoop serializes every outbound message for this connection,
// matching the original implementation's single managed_writer task
// per connection.
func writerLoop(conn net.Conn, out <-chan outMsg, done <-chan struct{}, metrics *obs.Metrics, log zerolog.Logger) {
	defer conn.Close()
	w := bufio.NewWriter(&countingWriter{w: conn, metrics: metrics})
	for {
		select {
		case <-done:
			// Write what was queued before the reader stopped (such as a
			// final Error) before the connection closes.
			for len(out) > 0 {
				if (<-out).encode(w) != nil {
					return
				}
			}
			w.Flush()
			return
		case msg := <-out:
			if err := msg.encode(w); err != nil {
				log.Info().Err(err).Msg("write error")
				return
			}
			if err := w.Flush(); err != nil {
				log.Info().Err(err).Msg("flush error")
				return
			}
		}
	}
}

// heartbeatLoop waits for the client to (at most once) set a
// heartbeat interval, then emits Heartbeat messages on that cadence
// until the connection closes. If the client never requests
// heartbeats, this goroutine simply blocks until done.
func heartbeatLoop(out chan<- outMsg, interval <-chan time.Duration, done <-chan struct{}) {
	select {
	case <-done:
		return
	case d := <-interval:
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case out <- newOutHeartbeat():
				case <-done:
					return
				}
			}
		}
	}
}
