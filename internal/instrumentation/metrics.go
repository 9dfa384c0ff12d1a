// Package instrumentation exposes refresh pipeline metrics on a Prometheus
// endpoint.
package instrumentation

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketpress_refreshes_total", Help: "Refresh cycles by outcome"},
		[]string{"outcome"},
	)
	FetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "marketpress_fetch_failures_total", Help: "Live fetch failures, including those covered by demo fallback"},
	)
	MarketsPublished = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "marketpress_markets_published", Help: "Markets in the current edition"},
	)
	DemoMode = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "marketpress_demo_mode", Help: "1 when the current edition is demo data"},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketpress_refresh_duration_seconds",
			Help:    "Wall time of one refresh cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(RefreshesTotal, FetchFailuresTotal, MarketsPublished, DemoMode, RefreshDuration)
}

// Serve starts the metrics endpoint in the background and returns the server
// so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// RecordEdition updates the per-edition gauges.
func RecordEdition(marketCount int, demoMode bool) {
	MarketsPublished.Set(float64(marketCount))
	if demoMode {
		DemoMode.Set(1)
	} else {
		DemoMode.Set(0)
	}
}
