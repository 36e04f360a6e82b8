package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_queue_messages_total",
		Help: "Updates offered to the queue, by outcome.",
	}, []string{"result"})

	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatscout_queue_processed_total",
		Help: "Updates handled by workers, by outcome.",
	}, []string{"result"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flatscout_queue_depth",
		Help: "Updates waiting across all users.",
	})

	handleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flatscout_queue_handle_duration_seconds",
		Help:    "Time spent handling a single update.",
		Buckets: prometheus.DefBuckets,
	})

	workerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flatscout_queue_worker_panics_total",
		Help: "Recovered worker panics.",
	})
)
