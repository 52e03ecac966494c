// Package metrics holds the Prometheus collectors shared by the server and
// the sync worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "daytracker"

var (
	// Labels: method, route, status (status class such as 2xx)
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status class",
	}, []string{"method", "route", "status"})

	// Labels: method, route
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Labels: summary (hours, spend, records), scope (daily, monthly, ...)
	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "duration_seconds",
		Help:      "Aggregation latency including the store read",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"summary", "scope"})

	// Labels: summary, scope, result (ok, invalid, store_unavailable)
	aggregations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "requests_total",
		Help:      "Aggregation requests by outcome",
	}, []string{"summary", "scope", "result"})

	daysSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "days",
		Name:      "saved_total",
		Help:      "Day records written",
	})

	// Labels: result (ok, error, skipped)
	syncPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "publishes_total",
		Help:      "Sync messages published after a write",
	}, []string{"result"})

	// Labels: result (synced, stale, missing, error)
	sheetSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "sheet_mirrors_total",
		Help:      "Days mirrored to Google Sheets by outcome",
	}, []string{"result"})

	// Labels: result (hit, miss)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Day cache lookups",
	}, []string{"result"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveAggregation records one aggregation call and its outcome.
func ObserveAggregation(summary, scope, result string, d time.Duration) {
	aggregations.WithLabelValues(summary, scope, result).Inc()
	if result == "ok" {
		aggregationDuration.WithLabelValues(summary, scope).Observe(d.Seconds())
	}
}

func DaySaved() { daysSaved.Inc() }

func SyncPublished(result string) { syncPublishes.WithLabelValues(result).Inc() }

func SheetMirrored(result string) { sheetSyncs.WithLabelValues(result).Inc() }

func CacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func RateLimited() { rateLimited.Inc() }

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
