// Package obs wires up the logging and metrics every server in the suite
// shares: a zerolog base logger and a prometheus registry, in place of the
// teacher's bare log.Printf prefixing.
package obs

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewLogger returns the suite's base logger for a single server binary,
// tagged with the server name so multi-server logs can be told apart.
func NewLogger(server string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).
		With().
		Timestamp().
		Str("server", server).
		Logger()
}

// ConnID mints a short correlation id for a single connection or session,
// bound into a child logger alongside the peer address. It has no role in
// any wire protocol; LRCP/speed-daemon ids are always the spec-mandated
// integers carried on the wire.
func ConnID() string {
	return uuid.New().String()[:8]
}
