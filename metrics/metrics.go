// Package metrics exposes session counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ouro_observations_total", Help: "Classified bars fed to the aggregator"},
		[]string{"ticker"},
	)
	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ouro_candidates_total", Help: "Buy candidates raised"},
		[]string{"ticker"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ouro_decisions_total", Help: "Order decisions by outcome"},
		[]string{"decision", "reason"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ouro_orders_total", Help: "Orders submitted to the broker"},
		[]string{"ticker", "result"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ouro_fetch_errors_total", Help: "Bar fetches that failed"},
		[]string{"ticker"},
	)
	CycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ouro_cycle_seconds",
		Help:    "Wall time of one polling cycle",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

func init() {
	prometheus.MustRegister(
		ObservationsTotal,
		CandidatesTotal,
		DecisionsTotal,
		OrdersTotal,
		FetchErrorsTotal,
		CycleSeconds,
	)
}

// Serve starts a /metrics listener in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
