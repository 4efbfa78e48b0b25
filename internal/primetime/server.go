package primetime

import (
	"bufio"
	"net"

	"github.com/rs/zerolog"
)

// MaxPrecompute bounds the sieve; any request number beyond it is treated
// as a malformed request rather than silently wrong, since the sieve has
// no definite answer for it.
const MaxPrecompute = 100_000_000

// Serve accepts connections on l and answers isPrime requests against s,
// one JSON object per line, until l stops accepting.
func Serve(l net.Listener, s *Sieve, logger zerolog.Logger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go handle(conn, s, logger)
	}
}

func handle(conn net.Conn, s *Sieve, logger zerolog.Logger) {
	defer conn.Close()
	log := logger.With().Str("remote_addr", conn.RemoteAddr().String()).Logger()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		req, err := UnwrapRequest(line)
		if err != nil || !req.IsValid() {
			fail(conn, log, "malformed request", line)
			return
		}

		if req.Float {
			respond(conn, false)
			continue
		}

		prime, err := s.IsPrime(req.Number)
		if err != nil {
			fail(conn, log, err.Error(), line)
			return
		}
		respond(conn, prime)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("scan error")
	}
}

func respond(conn net.Conn, prime bool) {
	conn.Write([]byte(`{"method":"isPrime","prime":` + boolString(prime) + "}\n"))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// fail sends a deliberately malformed reply back, matching the protocol's
// convention that any response the client can't parse as valid JSON is an
// acceptable way to signal "you sent something bad."
func fail(conn net.Conn, log zerolog.Logger, reason string, line []byte) {
	log.Info().Str("reason", reason).Bytes("line", line).Msg("rejecting malformed request")
	conn.Write([]byte("malformed request\n"))
}
