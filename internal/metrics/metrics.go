// Package metrics holds the Prometheus collectors of the catalog service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CatalogPrograms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unicatalog_catalog_programs",
			Help: "Number of programs in the loaded catalog, labeled by provenance.",
		},
		[]string{"source"},
	)
	SkippedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unicatalog_skipped_records_total",
			Help: "Total number of malformed or duplicate source records skipped during merge.",
		},
	)
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unicatalog_source_fetch_duration_seconds",
			Help:    "Duration of catalog source fetches in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "status"},
	)
	SelectionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unicatalog_selection_operations_total",
			Help: "Total number of comparison selection operations, labeled by operation and result.",
		},
		[]string{"operation", "result"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unicatalog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(CatalogPrograms)
	prometheus.MustRegister(SkippedRecords)
	prometheus.MustRegister(SourceFetchDuration)
	prometheus.MustRegister(SelectionOperations)
	prometheus.MustRegister(HTTPRequestDuration)
}

// ObserveSelection records the outcome of a selection operation
func ObserveSelection(operation, result string) {
	SelectionOperations.WithLabelValues(operation, result).Inc()
}
