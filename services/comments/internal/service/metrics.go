package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_operations_total",
		Help: "Comment and entity operations by name and outcome.",
	}, []string{"op", "outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_thread_cache_lookups_total",
		Help: "Thread cache lookups by result.",
	}, []string{"result"})
)

func observe(op string, err error) {
	operations.WithLabelValues(op, outcome(err)).Inc()
}
