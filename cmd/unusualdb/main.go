// Command unusualdb runs protohackers problem 4 (UDP key/value store).
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/obs"
	"github.com/kvlach/protohackers/internal/unusualdb"
)

func main() {
	addr := pflag.StringP("addr", "a", "0.0.0.0:3335", "address to listen on")
	pflag.Parse()

	logger := obs.NewLogger("unusualdb")

	udpAddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not resolve address")
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer conn.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	store := unusualdb.NewStore()
	if err := unusualdb.Serve(conn, store, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
