// Command voracious runs the C3 voracious content store server.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kvlach/protohackers/internal/obs"
	"github.com/kvlach/protohackers/internal/storage"
)

func main() {
	addr := pflag.StringP("addr", "a", "0.0.0.0:3600", "address to listen on")
	metricsAddr := pflag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	pflag.Parse()

	logger := obs.NewLogger("voracious")
	metrics := obs.NewMetrics("voracious")
	metrics.ServeMetrics(*metricsAddr, logger)

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("could not listen")
	}
	defer l.Close()
	logger.Info().Str("addr", *addr).Msg("listening")

	store := storage.NewStore()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		store.Cleanup()
		os.Exit(0)
	}()

	if err := storage.Serve(l, store, metrics, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener exited")
	}
}
