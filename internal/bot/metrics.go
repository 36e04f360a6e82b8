package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_bot_turns_total",
		Help: "Handled updates by kind and result.",
	}, []string{"kind", "result"})

	turnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flatscout_bot_turn_duration_seconds",
		Help:    "Time to handle one update.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

func observeTurn(kind string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	turnsTotal.WithLabelValues(kind, result).Inc()
	turnDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
