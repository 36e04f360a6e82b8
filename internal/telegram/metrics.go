package telegram

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// callsTotal counts Bot API calls by method and result.
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_telegram_calls_total",
		Help: "Total Telegram Bot API calls by method and result",
	}, []string{"method", "result"})

	// callDuration tracks Bot API latency.
	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flatscout_telegram_call_duration_seconds",
		Help:    "Telegram Bot API call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"method"})
)

func observe(method string, start time.Time, err error) {
	result := "ok"
	switch {
	case IsRecipientUnreachable(err):
		result = "unreachable"
	case IsRateLimited(err):
		result = "rate_limited"
	case err != nil:
		result = "error"
	}
	callsTotal.WithLabelValues(method, result).Inc()
	callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
