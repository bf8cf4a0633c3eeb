// Package metrics exposes Prometheus instrumentation for the folio daemon.
//
// Collectors are package-level and registered on the default registry; the
// scrape endpoint is mounted by the HTTP router at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DocsIndexed counts documents written to the index, including re-index
	// on content change.
	DocsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "folio",
		Subsystem: "index",
		Name:      "documents_indexed_total",
		Help:      "Documents written to the search index.",
	})

	// IndexErrors counts documents that failed to read or index.
	IndexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "folio",
		Subsystem: "index",
		Name:      "errors_total",
		Help:      "Documents that failed to read or index.",
	})

	// LintRuns counts completed corpus lint passes.
	LintRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "folio",
		Subsystem: "lint",
		Name:      "runs_total",
		Help:      "Completed corpus lint passes.",
	})

	// LintIssues counts issues reported by lint passes, by severity.
	LintIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "folio",
		Subsystem: "lint",
		Name:      "issues_total",
		Help:      "Issues reported by lint passes.",
	}, []string{"severity"})

	// SiteBuilds counts completed static site builds.
	SiteBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "folio",
		Subsystem: "site",
		Name:      "builds_total",
		Help:      "Completed static site builds.",
	})

	// SiteBuildDuration observes wall-clock duration of site builds.
	SiteBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "folio",
		Subsystem: "site",
		Name:      "build_duration_seconds",
		Help:      "Wall-clock duration of site builds.",
		Buckets:   prometheus.DefBuckets,
	})

	// SearchQueries counts search requests served over HTTP and MCP.
	SearchQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "folio",
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Search queries served.",
	})
)

// RegisterSSEClients exposes a live SSE client count as a gauge. Call once at
// startup with the broker's ClientCount.
func RegisterSSEClients(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "folio",
		Subsystem: "sse",
		Name:      "clients",
		Help:      "Connected SSE clients.",
	}, func() float64 { return float64(count()) })
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
