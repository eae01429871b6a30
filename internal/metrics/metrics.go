// Package metrics exposes Prometheus instrumentation for the search
// service and its HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toibako",
			Name:      "searches_total",
			Help:      "Total number of search calls by retrieval strategy",
		},
		[]string{"strategy"},
	)

	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "toibako",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy"},
	)

	QuestionsImportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toibako",
			Name:      "questions_imported_total",
			Help:      "Total questions imported from files",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

func init() {
	prometheus.MustRegister(searchesTotal)
	prometheus.MustRegister(searchDuration)
	prometheus.MustRegister(QuestionsImportedTotal)
}

// ObserveSearch records one search call.
func ObserveSearch(strategy string, elapsed time.Duration) {
	searchesTotal.WithLabelValues(strategy).Inc()
	searchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}
