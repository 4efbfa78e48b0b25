package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics is the small set of counters/gauges shared across the core
// servers (C1/C2/C3). Each server registers the whole set against its own
// registry, leaving unused ones at zero, so two servers in the same process
// (as in tests) never collide on metric names.
type Metrics struct {
	Registry *prometheus.Registry

	ActiveSessions prometheus.Gauge
	BytesIn        prometheus.Counter
	BytesOut       prometheus.Counter
}

// NewMetrics builds a fresh registry and the standard gauge/counter set,
// namespaced by server so /metrics output is unambiguous if ever scraped
// from a shared exporter.
func NewMetrics(server string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "protohackers",
			Subsystem: server,
			Name:      "active_sessions",
			Help:      "Number of sessions/connections currently open.",
		}),
		BytesIn: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "protohackers",
			Subsystem: server,
			Name:      "bytes_in_total",
			Help:      "Total bytes read from peers.",
		}),
		BytesOut: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "protohackers",
			Subsystem: server,
			Name:      "bytes_out_total",
			Help:      "Total bytes written to peers.",
		}),
	}
	return m
}

// ServeMetrics starts a best-effort /metrics HTTP listener on addr. Failures
// are logged and otherwise ignored: metrics are observability, never load
// bearing for protocol correctness.
func (m *Metrics) ServeMetrics(addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn().Err(err).Str("addr", addr).Msg("metrics listener exited")
		}
	}()
}
