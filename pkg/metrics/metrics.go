// Package metrics provides Prometheus metrics for the medianizer service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PriceAggregationDuration is a histogram of price aggregation duration.
	PriceAggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_aggregation_duration_seconds",
			Help:    "Duration of price aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// MissingDataTotal counts aggregate queries answered as missing because a child had no data.
	MissingDataTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianizer_missing_data_total",
			Help: "Total number of aggregate queries degraded to missing data",
		},
		[]string{"query"},
	)

	// HistoricalFailuresTotal counts failed historical price aggregations.
	HistoricalFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medianizer_historical_failures_total",
			Help: "Total number of historical price queries that failed on one or more children",
		},
	)

	// DecimalsMismatchTotal counts decimals queries that found disagreeing children.
	DecimalsMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medianizer_decimals_mismatch_total",
			Help: "Total number of decimals queries rejected due to mismatching children",
		},
	)

	// FeedUpdatesTotal counts feed update attempts by outcome.
	FeedUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_updates_total",
			Help: "Total number of feed update attempts",
		},
		[]string{"feed", "status"},
	)

	// FeedLastUpdate is a gauge of the last update timestamp reported by a feed.
	FeedLastUpdate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_last_update_timestamp",
			Help: "Unix timestamp of last successful update reported by a feed",
		},
		[]string{"feed"},
	)

	// UpdateCycleDuration is a histogram of scheduled update cycle durations.
	UpdateCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "update_cycle_duration_seconds",
			Help:    "Duration of scheduled update cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Collectors returns every metric defined by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PriceAggregationDuration,
		MissingDataTotal,
		HistoricalFailuresTotal,
		DecimalsMismatchTotal,
		FeedUpdatesTotal,
		FeedLastUpdate,
		UpdateCycleDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	}
}

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(Collectors()...)
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordAggregation records a price aggregation operation.
func RecordAggregation(method string, duration time.Duration) {
	PriceAggregationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordMissingData records an aggregate query degraded to missing data.
func RecordMissingData(query string) {
	MissingDataTotal.WithLabelValues(query).Inc()
}

// RecordHistoricalFailure records a failed historical aggregation.
func RecordHistoricalFailure() {
	HistoricalFailuresTotal.Inc()
}

// RecordDecimalsMismatch records a rejected decimals query.
func RecordDecimalsMismatch() {
	DecimalsMismatchTotal.Inc()
}

// RecordFeedUpdate records the outcome of a single feed update.
func RecordFeedUpdate(feed string, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	FeedUpdatesTotal.WithLabelValues(feed, status).Inc()
}

// RecordFeedLastUpdate records the last update time reported by a feed.
func RecordFeedLastUpdate(feed string, unix int64) {
	FeedLastUpdate.WithLabelValues(feed).Set(float64(unix))
}

// RecordUpdateCycle records the duration of a scheduled update cycle.
func RecordUpdateCycle(duration time.Duration) {
	UpdateCycleDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
