// Command primetime runs protohackers problem 1 (is-this-prime over
// newline-delimited JSON).
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/obs"
	"github.com/kvlach/protohackers/internal/primetime"
)

func main() {
	addr := pflag.StringP("addr", "a", ":3333", "address to listen on")
	pflag.Parse()

	logger := obs.NewLogger("primetime")

	sieve, err := primetime.NewSieve(primetime.MaxPrecompute)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not build sieve")
	}

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	if err := primetime.Serve(l, sieve, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
