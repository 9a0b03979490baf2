package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_invocations_total",
		Help: "Total number of agent invocations by agent type and status.",
	}, []string{"agent_type", "status"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_invocation_duration_seconds",
		Help:    "Duration of agent invocations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent_type"})
)
