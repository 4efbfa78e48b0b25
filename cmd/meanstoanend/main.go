// Command meanstoanend runs protohackers problem 2 (binary price
// timeseries and range-mean queries).
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/meanstoanend"
	"github.com/kvlach/protohackers/internal/obs"
)

func main() {
	addr := pflag.StringP("addr", "a", ":3332", "address to listen on")
	pflag.Parse()

	logger := obs.NewLogger("meanstoanend")

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	if err := meanstoanend.Serve(l, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
