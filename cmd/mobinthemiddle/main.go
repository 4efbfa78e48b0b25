// Command mobinthemiddle runs protohackers problem 5 (Boguscoin address
// rewriting chat proxy).
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/mobinthemiddle"
	"github.com/kvlach/protohackers/internal/obs"
)

func main() {
	addr := pflag.StringP("addr", "a", ":3336", "address to listen on")
	upstream := pflag.StringP("upstream", "u", "chat.protohackers.com:16963", "upstream chat server to relay to")
	pflag.Parse()

	logger := obs.NewLogger("mobinthemiddle")

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Str("upstream", *upstream).Msg("listening")

	if err := mobinthemiddle.Serve(l, *upstream, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
