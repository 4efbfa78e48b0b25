// Package mobinthemiddle implements protohackers problem 5: a transparent
// TCP proxy to the upstream chat server that rewrites any Boguscoin
// address it sees in a chat line to Tony's address.
package mobinthemiddle

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// TonysAddress is the address every detected Boguscoin address gets
// rewritten to.
const TonysAddress = "7YWHMfk9JZe0LM0g1ZauHuiSxhI"

var bogusAddress = regexp.MustCompile(`^7[a-zA-Z0-9]{25,34}$`)

// Rewrite replaces every Boguscoin-shaped address in line with
// TonysAddress, leaving everything else untouched.
func Rewrite(line string) string {
	words := strings.Split(line, " ")
	for i, word := range words {
		if bogusAddress.MatchString(word) {
			words[i] = TonysAddress
		}
	}
	return strings.Join(words, " ")
}

// Serve accepts client connections on l and pairs each with a freshly
// dialed connection to upstreamAddr, relaying both directions through
// Rewrite.
func Serve(l net.Listener, upstreamAddr string, logger zerolog.Logger) error {
	for {
		client, err := l.Accept()
		if err != nil {
			return err
		}
		go proxy(client, upstreamAddr, logger)
	}
}

func proxy(client net.Conn, upstreamAddr string, logger zerolog.Logger) {
	log := logger.With().Str("remote_addr", client.RemoteAddr().String()).Logger()

	upstream, err := net.Dial("tcp", upstreamAddr)
	if err != nil {
		client.Close()
		log.Warn().Err(err).Str("upstream", upstreamAddr).Msg("could not dial upstream; closing client")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go relay(ctx, cancel, client, upstream, "client->upstream", Rewrite, log)
	relay(ctx, cancel, upstream, client, "upstream->client", rewriteChatLine, log)

	client.Close()
	upstream.Close()
}

// rewriteChatLine rewrites only the message portion of a line the server
// relayed to the client. Server-originated lines that aren't attributed
// chat messages (room-membership notices, the welcome banner) have no
// "[user] " prefix and are passed through unrewritten, since a Boguscoin
// address can only ever appear inside a user's own chat message.
func rewriteChatLine(line string) string {
	before, message, isMessage := strings.Cut(line, "] ")
	if !isMessage {
		return line
	}
	return before + "] " + Rewrite(message)
}

// relay copies newline-delimited lines from src to dst, rewriting each
// with rewrite, until either side closes or errors.
func relay(ctx context.Context, cancel context.CancelFunc, src, dst net.Conn, direction string, rewrite func(string) string, log zerolog.Logger) {
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Info().Err(err).Str("direction", direction).Msg("read error")
			}
			cancel()
			return
		}
		out := rewrite(strings.TrimSuffix(line, "\n"))
		if _, err := dst.Write([]byte(out + "\n")); err != nil {
			log.Info().Err(err).Str("direction", direction).Msg("write error")
			cancel()
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
