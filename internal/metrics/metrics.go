// Package metrics exposes Prometheus collectors for the brand extraction service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	extractionsTotal           *prometheus.CounterVec
	strategyHitsTotal          *prometheus.CounterVec
	probesTotal                *prometheus.CounterVec
	cacheErrorsTotal           *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	jobsTotal                  *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandprobe_extractions_total",
				Help: "Total number of extraction requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		strategyHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandprobe_strategy_hits_total",
				Help: "Total number of primary logos chosen, labeled by strategy.",
			},
			[]string{"strategy"},
		)

		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandprobe_probes_total",
				Help: "Total number of reachability probes, labeled by result.",
			},
			[]string{"result"},
		)

		cacheErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandprobe_cache_errors_total",
				Help: "Total number of cache store failures, labeled by operation.",
			},
			[]string{"op"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brandprobe_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by mode.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"mode"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandprobe_jobs_total",
				Help: "Total number of batch jobs processed, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "brandprobe_active_workers",
				Help: "Number of workers currently processing a batch job.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brandprobe_rate_limit_delays_seconds",
				Help:    "Histogram of probe rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveExtraction increments the extraction counter for the given outcome.
func ObserveExtraction(outcome string) {
	Init()
	extractionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStrategyHit records which strategy produced the primary logo.
func ObserveStrategyHit(strategy string) {
	Init()
	strategyHitsTotal.WithLabelValues(strategy).Inc()
}

// ObserveProbe records a reachability probe result.
func ObserveProbe(reachable bool) {
	Init()
	result := "rejected"
	if reachable {
		result = "reachable"
	}
	probesTotal.WithLabelValues(result).Inc()
}

// ObserveCacheError increments the cache failure counter for op (get, put, patch).
func ObserveCacheError(op string) {
	Init()
	cacheErrorsTotal.WithLabelValues(op).Inc()
}

// ObserveFetch records a page fetch duration for mode (probe, headless).
func ObserveFetch(mode string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	Init()
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(SanitizeSite(host)).Observe(duration.Seconds())
}
