// Package metrics registers the prometheus collectors exported by the monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	TicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_dropped_total", Help: "Ticks discarded by the coordinator"},
		[]string{"symbol", "reason"},
	)
	FeedReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_reconnects_total", Help: "Stream reconnect attempts after a disconnect"},
		[]string{"symbol"},
	)
	CorrelationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "correlations_total", Help: "Window correlations computed, by strength band"},
		[]string{"strength"},
	)
	LastCorrelation = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "correlation_last", Help: "Most recent defined correlation coefficient"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_total", Help: "Alerts emitted"},
		[]string{"kind"},
	)
	ReferenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reference_errors_total", Help: "Failed reference service calls"},
		[]string{"op"},
	)
	ReferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reference_request_seconds",
			Help:    "Reference service request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, TicksDropped, FeedReconnects,
		CorrelationsTotal, LastCorrelation, AlertsTotal,
		ReferenceErrors, ReferenceLatency,
	)
}

// Route mounts an extra debug handler next to /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// Serve exposes /metrics and any extra routes on addr in a background goroutine.
func Serve(addr string, routes ...Route) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
