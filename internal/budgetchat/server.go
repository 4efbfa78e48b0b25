package budgetchat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kvlach/protohackers/internal/obs"
)

var nameRegexp = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Validate coerces a raw name line into a valid room name: 1-16 ASCII
// alphanumeric characters.
func Validate(raw []byte) (string, error) {
	name := strings.TrimSpace(string(raw))
	if len(name) == 0 {
		return "", errors.New("name must not be empty")
	}
	if len(name) > 16 {
		return "", fmt.Errorf("name must be at most 16 characters, got %d", len(name))
	}
	if !nameRegexp.MatchString(name) {
		return "", fmt.Errorf("name must be alphanumeric, got %q", name)
	}
	return name, nil
}

// Serve accepts connections on l, all sharing broker as the single chat
// room.
func Serve(l net.Listener, broker *Broker, logger zerolog.Logger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go handle(conn, broker, logger)
	}
}

func handle(conn net.Conn, broker *Broker, logger zerolog.Logger) {
	defer conn.Close()
	log := logger.With().Str("conn_id", obs.ConnID()).Str("remote_addr", conn.RemoteAddr().String()).Logger()
	scanner := bufio.NewScanner(conn)

	if _, err := conn.Write([]byte("Welcome to budgetchat! What shall I call you?\n")); err != nil {
		log.Warn().Err(err).Msg("failed to send greeting")
		return
	}

	if !scanner.Scan() {
		log.Info().Msg("no name received")
		return
	}
	name, err := Validate(scanner.Bytes())
	if err != nil {
		conn.Write([]byte(fmt.Sprintf("invalid name: %s\n", err)))
		log.Info().Err(err).Msg("rejecting name")
		return
	}
	if err := broker.Register(name); err != nil {
		conn.Write([]byte(fmt.Sprintf("name %s already in use\n", name)))
		log.Info().Str("name", name).Msg("name already in use")
		return
	}
	defer broker.Logoff(name)

	log = log.With().Str("name", name).Logger()
	log.Info().Msg("joined")
	defer log.Info().Msg("left")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for scanner.Scan() {
			broker.Send(name, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("scan error")
		}
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, ok := broker.Receive(name)
			if !ok {
				continue
			}
			if _, err := conn.Write([]byte(msg)); err != nil {
				log.Warn().Err(err).Msg("write error")
				return
			}
		}
	}
}
