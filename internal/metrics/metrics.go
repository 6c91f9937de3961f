// Package metrics holds the Prometheus collectors for the HTTP API and the
// asset import pipeline. Collectors register with the default registry on
// package init and are served by promhttp.Handler.
package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "assettrack"

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ImportsTotal counts finished import runs by mode (commit, preview) and
	// result (ok, partial, rejected, error).
	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Total number of import runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	// ImportRows counts data rows by outcome (imported, failed).
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Total number of import data rows by outcome",
		},
		[]string{"outcome"},
	)

	// ImportDuration tracks how long an import run takes end to end.
	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Import run duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// ImportsActive is the number of import requests in flight, including
	// those waiting for a limiter slot.
	ImportsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imports_active",
			Help:      "Number of import requests in flight",
		},
	)

	// BulkUpdatedAssets counts assets changed by bulk updates.
	BulkUpdatedAssets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_updated_assets_total",
			Help:      "Total number of assets changed by bulk updates",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestDuration, RequestTotal,
			ImportsTotal, ImportRows, ImportDuration, ImportsActive,
			BulkUpdatedAssets,
		)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /api/assets/123/history -> /api/assets/{id}/history.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// Import result labels.
const (
	ImportOK       = "ok"
	ImportPartial  = "partial"
	ImportRejected = "rejected"
	ImportError    = "error"
)

// RecordImport records one finished import run. preview marks dry runs;
// their rows are not counted as imported.
func RecordImport(preview bool, result string, imported, failed int, durationSeconds float64) {
	mode := "commit"
	if preview {
		mode = "preview"
	}
	ImportsTotal.WithLabelValues(mode, result).Inc()
	ImportDuration.Observe(durationSeconds)
	if preview {
		return
	}
	ImportRows.WithLabelValues("imported").Add(float64(imported))
	ImportRows.WithLabelValues("failed").Add(float64(failed))
}

// ImportResult classifies an import by its row counts.
func ImportResult(imported, failed int) string {
	switch {
	case failed == 0:
		return ImportOK
	case imported == 0:
		return ImportRejected
	default:
		return ImportPartial
	}
}
