package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fairprice", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "store_operations_total", Help: "Review store operations."},
		[]string{"backend", "op", "result"}, // result: ok|not_found|error
	)
	SkippedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "store_skipped_documents_total", Help: "Documents skipped while listing."},
		[]string{"backend"},
	)
	ReviewViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "review_views_total", Help: "Review view events."},
		[]string{"event"}, // event: counted|deduplicated
	)
)

// NewRegistry returns a registry holding every collector of this package.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, StoreOps, SkippedDocuments, ReviewViews)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveStore(backend, op, result string) {
	StoreOps.WithLabelValues(backend, op, result).Inc()
}

func ObserveSkipped(backend string) {
	SkippedDocuments.WithLabelValues(backend).Inc()
}

func ObserveView(event string) {
	ReviewViews.WithLabelValues(event).Inc()
}
