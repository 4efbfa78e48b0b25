// Command smoketest runs protohackers problem 0 (TCP echo).
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/obs"
	"github.com/kvlach/protohackers/internal/smoketest"
)

func main() {
	addr := pflag.StringP("addr", "a", ":9999", "address to listen on")
	pflag.Parse()

	logger := obs.NewLogger("smoketest")

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	if err := smoketest.Serve(l, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
