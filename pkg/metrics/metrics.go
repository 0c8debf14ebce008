package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dentabot_dispatch_total",
		Help: "Dispatch cycles completed, by chosen action",
	}, []string{"action"})

	DispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dentabot_dispatch_failures_total",
		Help: "Dispatch cycles aborted, by failing stage",
	}, []string{"stage"})

	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dentabot_dispatch_latency_seconds",
		Help:    "Latency of a full dispatch cycle including the reply, by outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	ActivitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dentabot_activities_total",
		Help: "Inbound activities, by type and outcome",
	}, []string{"type", "outcome"})
)
