package lrcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kvlach/protohackers/internal/obs"
)

// Retransmit is the interval at which unacknowledged data is resent.
const Retransmit = 100 * time.Millisecond

// SessionExpiry is how long a session may go without any valid message
// from its peer before it is torn down.
const SessionExpiry = 60 * time.Second

// receiveBufferSize bounds the channel used to hand incoming Ack/Data
// messages from the demultiplexer to a session's worker. When full,
// the demultiplexer drops the datagram per the protocol's buffering
// policy.
const receiveBufferSize = 16

// Session is a single logical byte stream multiplexed over a shared
// UDP socket, identified by a 32-bit id and bound to a peer address.
type Session struct {
	readLock  sync.Mutex
	writeLock sync.Mutex
	closeLock sync.Mutex

	Addr *net.UDPAddr
	ID   int

	conn *net.UDPConn

	ctx    context.Context
	cancel context.CancelFunc

	cleanup func(s *Session)
	log     zerolog.Logger
	metrics *obs.Metrics

	receiveCh chan *Msg
	readCh    chan struct{}

	readBuffer []byte
	readIndex  int64

	// lastAck is the highest length acknowledged by the peer so far
	// (the application's delivered-to-peer watermark, Q in spec terms).
	lastAck atomic.Int64
	// maxAckable is the highest length we have ever sent (P in spec
	// terms); an Ack above this is a protocol violation.
	maxAckable atomic.Int64

	writeBuffer []byte
}

// newSession constructs the shared state for a session bound to addr,
// and starts its read and write workers.
func newSession(addr *net.UDPAddr, id int, conn *net.UDPConn, cleanup func(s *Session), log zerolog.Logger, metrics *obs.Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Addr:        addr,
		ID:          id,
		conn:        conn,
		cleanup:     cleanup,
		log:         log.With().Str("conn_id", obs.ConnID()).Int("session", id).Str("peer", addr.String()).Logger(),
		metrics:     metrics,
		receiveCh:   make(chan *Msg, receiveBufferSize),
		readCh:      make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		readBuffer:  make([]byte, 0, 1024),
		writeBuffer: make([]byte, 0, 1024),
	}
	go s.readWorker()
	go s.writeWorker()
	return s
}

// Key identifies the session for lookup in the listener's session
// store; LRCP session ids are only required to be unique per peer
// address, so the key includes both.
func (s *Session) Key() string {
	return fmt.Sprintf("%s-%d", s.Addr, s.ID)
}

// Read implements io.Reader over the bytes delivered so far.
func (s *Session) Read(b []byte) (int, error) {
	s.readLock.Lock()
	if s.readIndex < int64(len(s.readBuffer)) {
		defer s.readLock.Unlock()
		n := copy(b, s.readBuffer[s.readIndex:])
		s.readIndex += int64(n)
		return n, nil
	}
	s.readLock.Unlock()
	select {
	case <-s.ctx.Done():
		s.readLock.Lock()
		defer s.readLock.Unlock()
		if s.readIndex >= int64(len(s.readBuffer)) {
			return 0, io.EOF
		}
	case <-s.readCh:
		s.readLock.Lock()
		defer s.readLock.Unlock()
	}
	if s.readIndex >= int64(len(s.readBuffer)) {
		return 0, nil
	}
	n := copy(b, s.readBuffer[s.readIndex:])
	s.readIndex += int64(n)
	return n, nil
}

// deliver appends the contiguous suffix of incoming data to the
// session's delivered byte stream, per §4.1's Data handling: payload
// beyond the delivered prefix is dropped, not buffered.
func (s *Session) deliver(pos int, data []byte) (delivered int) {
	s.readLock.Lock()
	defer s.readLock.Unlock()

	a := len(s.readBuffer)
	if pos > a {
		// Beyond the contiguous prefix; drop.
		return a
	}
	if pos < a {
		// Overlapping retransmit; keep only the new suffix.
		skip := a - pos
		if skip >= len(data) {
			return a
		}
		data = data[skip:]
	}
	s.readBuffer = append(s.readBuffer, data...)
	return len(s.readBuffer)
}

// Write appends b to the session's outbound buffer; the retransmit
// worker streams it to the peer.
func (s *Session) Write(b []byte) (int, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	select {
	case <-s.ctx.Done():
		return 0, fmt.Errorf("session %s is closed", s.Key())
	default:
	}
	s.writeBuffer = append(s.writeBuffer, b...)
	return len(b), nil
}

// Abort tears down the session's workers without notifying the peer.
// Used to discard a session that lost a race to an existing one.
func (s *Session) Abort() {
	s.cancel()
}

// Close ends the session: stops its workers, informs the peer, and
// invokes the cleanup callback. Safe to call more than once.
func (s *Session) Close() {
	s.closeLock.Lock()
	defer s.closeLock.Unlock()

	select {
	case <-s.ctx.Done():
	default:
		s.cancel()
		s.sendClose()
		s.cleanup(s)
	}
}

func (s *Session) readWorker() {
	timer := time.NewTimer(SessionExpiry)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.log.Info().Msg("session expired: no message from peer")
			s.Close()
			return
		case msg := <-s.receiveCh:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(SessionExpiry)

			switch {
			case msg.IsAck():
				maxAckable := s.maxAckable.Load()
				if int64(msg.Length) > maxAckable {
					s.log.Warn().Int("length", msg.Length).Int64("max_ackable", maxAckable).
						Msg("peer acked beyond sent data; closing")
					s.Close()
					return
				}
				for {
					last := s.lastAck.Load()
					if int64(msg.Length) <= last {
						break
					}
					if s.lastAck.CompareAndSwap(last, int64(msg.Length)) {
						break
					}
				}
			case msg.IsData():
				delivered := s.deliver(msg.Pos, msg.Data)
				s.sendAck(delivered)
				select {
				case s.readCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (s *Session) writeWorker() {
	ticker := time.NewTicker(Retransmit)
	defer ticker.Stop()
	writeIndex := 0

	send := func() {
		s.writeLock.Lock()
		defer s.writeLock.Unlock()
		if writeIndex >= len(s.writeBuffer) {
			return
		}
		n := FitData(s.ID, writeIndex, s.writeBuffer[writeIndex:])
		if n == 0 {
			return
		}
		chunk := s.writeBuffer[writeIndex : writeIndex+n]
		if err := s.send(SerializeData(s.ID, writeIndex, chunk)); err != nil {
			s.log.Warn().Err(err).Msg("error sending data message")
			return
		}
		writeIndex += n
		for {
			maxAckable := s.maxAckable.Load()
			if int64(writeIndex) <= maxAckable {
				break
			}
			if s.maxAckable.CompareAndSwap(maxAckable, int64(writeIndex)) {
				break
			}
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			writeIndex = int(s.lastAck.Load())
			send()
		default:
			send()
		}
	}
}

func (s *Session) send(msg []byte) error {
	n, err := s.conn.WriteToUDP(msg, s.Addr)
	if s.metrics != nil {
		s.metrics.BytesOut.Add(float64(n))
	}
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("short write: %d != %d", n, len(msg))
	}
	return nil
}

func (s *Session) sendAck(length int) error {
	return s.send(SerializeAck(s.ID, length))
}

func (s *Session) sendClose() error {
	return s.send(SerializeClose(s.ID))
}

// Receive hands an Ack or Data message from the demultiplexer to the
// session's read worker. Returns an error (and drops the message) if
// the worker's inbound buffer is full, per the protocol's buffering
// policy.
func (s *Session) Receive(msg *Msg) error {
	select {
	case s.receiveCh <- msg:
		return nil
	default:
		return fmt.Errorf("session %s: receive buffer full, dropping", s.Key())
	}
}
