// Package metrics exposes Prometheus collectors for the scrape service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapePassesTotal          *prometheus.CounterVec
	scrapeCandidatesTotal      *prometheus.CounterVec
	scrapeFetchDuration        prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		scrapePassesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrape_passes_total",
				Help: "Scrape passes by terminal state.",
			},
			[]string{"state"},
		)

		scrapeCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrape_candidates_total",
				Help: "Extracted candidates by persistence outcome.",
			},
			[]string{"outcome"},
		)

		scrapeFetchDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scrape_fetch_duration_seconds",
				Help:    "Latency of listing page fetches.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePass counts a finished pass.
func ObservePass(state string) {
	scrapePassesTotal.WithLabelValues(state).Inc()
}

// ObserveCandidate counts one candidate outcome (created, skipped, failed).
func ObserveCandidate(outcome string) {
	scrapeCandidatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records a fetch latency.
func ObserveFetch(d time.Duration) {
	scrapeFetchDuration.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
