package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_notify_cycles_total",
		Help: "Reconciler cycles by result.",
	}, []string{"result"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flatscout_notify_cycle_duration_seconds",
		Help:    "Duration of a full reconciler cycle.",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})

	users = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_notify_users_total",
		Help: "Users reconciled, by outcome.",
	}, []string{"outcome"})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_notify_deliveries_total",
		Help: "Listing deliveries attempted, by result.",
	}, []string{"result"})
)
