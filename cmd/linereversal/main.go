// Command linereversal runs the C1 LRCP server: for every line of text
// a peer sends over an LRCP session, the server replies with the line
// reversed character-by-character.
package main

import (
	"bufio"
	"net"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/lrcp"
	"github.com/kvlach/protohackers/internal/obs"
)

func main() {
	addr := pflag.StringP("addr", "a", "0.0.0.0:3600", "address to listen on")
	metricsAddr := pflag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	pflag.Parse()

	logger := obs.NewLogger("linereversal")
	metrics := obs.NewMetrics("linereversal")
	metrics.ServeMetrics(*metricsAddr, logger)

	udpAddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not resolve address")
	}

	l, err := lrcp.Listen(udpAddr, logger, metrics)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	logger.Info().Str("addr", *addr).Msg("listening")

	for {
		session := l.Accept()
		go handle(session, logger)
	}
}

func handle(session *lrcp.Session, logger zerolog.Logger) {
	log := logger.With().Str("conn_id", obs.ConnID()).Str("session", session.Key()).Logger()
	log.Info().Msg("session opened")

	scanner := bufio.NewScanner(session)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		reversed := reverse(line)
		if _, err := session.Write([]byte(reversed + "\n")); err != nil {
			log.Info().Err(err).Msg("write error; closing")
			session.Close()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Info().Err(err).Msg("read error")
	}
	log.Info().Msg("session closed")
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
