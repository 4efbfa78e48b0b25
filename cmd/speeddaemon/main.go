// Command speeddaemon runs the C2 speed-daemon ticketing engine.
package main

import (
	"net"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/obs"
	"github.com/kvlach/protohackers/internal/speed"
)

func main() {
	addr := pflag.StringP("addr", "a", "0.0.0.0:3600", "address to listen on")
	metricsAddr := pflag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	pflag.Parse()

	logger := obs.NewLogger("speeddaemon")
	metrics := obs.NewMetrics("speeddaemon")
	metrics.ServeMetrics(*metricsAddr, logger)

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	dispatch := speed.NewDispatchRegistry()
	record := speed.NewRecordSystem(dispatch)

	if err := speed.Serve(l, record, dispatch, metrics, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
