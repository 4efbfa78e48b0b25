// Package unusualdb implements protohackers problem 4: an ephemeral,
// UDP-based key/value store.
package unusualdb

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// MaxDatagramSize bounds the size of a request read from the socket;
// replies are sent without a size check.
const MaxDatagramSize = 999

const versionKey = "version"
const versionValue = "Unusual Database Program 1.0"

// Store is the key/value map, guarded by a read/write mutex so it is safe
// for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Insert sets key=value. The reserved "version" key can never be
// overwritten.
func (s *Store) Insert(key, value string) {
	if key == versionKey {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Query returns the current value for key ("" if unset), or the fixed
// version string for the reserved "version" key.
func (s *Store) Query(key string) string {
	if key == versionKey {
		return versionValue
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

// Serve reads request packets from conn until it errors, replying to
// queries in place (inserts get no reply, per the protocol).
func Serve(conn *net.UDPConn, store *Store, logger zerolog.Logger) error {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		handle(conn, addr, buf[:n], store, logger)
	}
}

func handle(conn *net.UDPConn, addr net.Addr, packet []byte, store *Store, logger zerolog.Logger) {
	request := string(packet)
	key, value, isInsert := strings.Cut(request, "=")
	if isInsert {
		store.Insert(key, value)
		return
	}

	reply := fmt.Sprintf("%s=%s", request, store.Query(request))
	if _, err := conn.WriteTo([]byte(reply), addr); err != nil {
		logger.Warn().Err(err).Str("peer", addr.String()).Msg("reply failed")
	}
}
