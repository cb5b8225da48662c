// Package metrics exposes Prometheus collectors for the HTTP API and the
// ingestion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)

	ingestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by outcome.",
		},
		[]string{"status"},
	)
	ingestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Catalog rows reconciled, by outcome.",
		},
		[]string{"outcome"},
	)
	ingestRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of ingestion runs.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)
	ingestLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful ingestion run.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		ingestRunsTotal,
		ingestRowsTotal,
		ingestRunDuration,
		ingestLastSuccess,
	)
}

// RecordRequest records one served HTTP request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordRun records a finished ingestion run.
func RecordRun(status string, inserted, updated int, duration time.Duration) {
	ingestRunsTotal.WithLabelValues(status).Inc()
	ingestRunDuration.Observe(duration.Seconds())
	if inserted > 0 {
		ingestRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	}
	if updated > 0 {
		ingestRowsTotal.WithLabelValues("updated").Add(float64(updated))
	}
	if status == "succeeded" {
		ingestLastSuccess.SetToCurrentTime()
	}
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
