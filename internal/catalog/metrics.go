package catalog

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts API calls by operation and result.
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_catalog_requests_total",
		Help: "Total DOM.RIA API calls by operation and result",
	}, []string{"operation", "result"})

	// requestDuration tracks API call latency.
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flatscout_catalog_request_duration_seconds",
		Help:    "DOM.RIA API call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"operation"})
)

func observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	requestsTotal.WithLabelValues(op, result).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
