// Command budgetchat runs protohackers problem 3 (line-oriented chat
// room relay).
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/budgetchat"
	"github.com/kvlach/protohackers/internal/obs"
)

func main() {
	addr := pflag.StringP("addr", "a", ":3334", "address to listen on")
	pflag.Parse()

	logger := obs.NewLogger("budgetchat")
	broker := budgetchat.NewBroker()

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	if err := budgetchat.Serve(l, broker, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
