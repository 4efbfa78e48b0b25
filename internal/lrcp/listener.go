package lrcp

import (
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kvlach/protohackers/internal/obs"
)

// acceptBufferSize bounds the queue of newly-created sessions waiting
// to be handed to Accept. The protocol requires supporting at least 20
// simultaneous sessions; this leaves headroom.
const acceptBufferSize = 32

// Listener demultiplexes datagrams on a single UDP socket into
// per-peer Sessions.
type Listener struct {
	conn    *net.UDPConn
	log     zerolog.Logger
	metrics *obs.Metrics

	acceptCh chan *Session

	sessions sync.Map // key: Session.Key() -> *Session
}

// Listen starts a demultiplexer bound to laddr.
func Listen(laddr *net.UDPAddr, logger zerolog.Logger, metrics *obs.Metrics) (*Listener, error) {
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		conn:     conn,
		log:      logger,
		metrics:  metrics,
		acceptCh: make(chan *Session, acceptBufferSize),
	}
	go l.demux()
	return l, nil
}

// Accept blocks until a new session has been established.
func (l *Listener) Accept() *Session {
	return <-l.acceptCh
}

// Close shuts down the underlying socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

func (l *Listener) cleanup(s *Session) {
	l.sessions.Delete(s.Key())
	if l.metrics != nil {
		l.metrics.ActiveSessions.Dec()
	}
}

// demux is the single read loop for all incoming datagrams, routing
// each to its session (creating one for Connect) per §4.1.
func (l *Listener) demux() {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			l.log.Warn().Err(err).Msg("demux: read error")
			return
		}
		if l.metrics != nil {
			l.metrics.BytesIn.Add(float64(n))
		}

		msg, err := ParseMessage(buf[:n])
		if err != nil {
			l.log.Debug().Err(err).Str("peer", addr.String()).Msg("demux: dropping unparseable datagram")
			continue
		}

		if msg.IsConnect() {
			l.handleConnect(msg, addr)
			continue
		}

		key := sessionKey(addr, msg.Session)
		v, ok := l.sessions.Load(key)
		if !ok {
			l.sendClose(msg.Session, addr)
			continue
		}
		session := v.(*Session)

		switch {
		case msg.IsClose():
			session.Close()
			l.sendClose(msg.Session, addr)
		case msg.IsAck(), msg.IsData():
			if err := session.Receive(msg); err != nil {
				l.log.Debug().Err(err).Msg("demux: dropping message")
			}
		}
	}
}

func (l *Listener) handleConnect(msg *Msg, addr *net.UDPAddr) {
	key := sessionKey(addr, msg.Session)
	if v, ok := l.sessions.Load(key); ok {
		v.(*Session).sendAck(0)
		return
	}

	session := newSession(addr, msg.Session, l.conn, l.cleanup, l.log, l.metrics)
	actual, loaded := l.sessions.LoadOrStore(key, session)
	if loaded {
		session.Abort()
		actual.(*Session).sendAck(0)
		return
	}

	select {
	case l.acceptCh <- session:
		if l.metrics != nil {
			l.metrics.ActiveSessions.Inc()
		}
		session.sendAck(0)
	default:
		l.log.Warn().Str("session", key).Msg("demux: accept queue full, dropping session")
		l.sessions.Delete(key)
		session.Abort()
	}
}

func (l *Listener) sendClose(sessionID int, addr *net.UDPAddr) {
	if _, err := l.conn.WriteToUDP(SerializeClose(sessionID), addr); err != nil {
		l.log.Debug().Err(err).Msg("demux: error sending close to unknown session")
	}
}

func sessionKey(addr *net.UDPAddr, id int) string {
	return addr.String() + "-" + strconv.Itoa(id)
}
