package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clipstream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	PoolResidents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clipstream",
		Name:      "pool_residents",
		Help:      "Number of player handles currently resident in the pool.",
	})

	InFlightAcquisitions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clipstream",
		Name:      "inflight_acquisitions",
		Help:      "Number of player creations currently in flight.",
	})

	AcquisitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "acquisitions_total",
		Help:      "Total acquisition requests by outcome (hit, created, joined, cancelled, exhausted, failed).",
	}, []string{"outcome"})

	CreationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "player_creations_total",
		Help:      "Total native player creations that completed successfully.",
	})

	CreationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "player_creation_failures_total",
		Help:      "Total native player creations that failed.",
	})

	CreationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clipstream",
		Name:      "player_creation_duration_seconds",
		Help:      "Duration of native player creation plus open in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	EvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "evictions_total",
		Help:      "Total pool evictions by reason (lru, distance, memory_pressure).",
	}, []string{"reason"})

	CancellationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "acquisition_cancellations_total",
		Help:      "Total in-flight acquisitions that were cancelled.",
	})

	MemoryPressureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "memory_pressure_events_total",
		Help:      "Total memory-pressure release passes executed.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PoolResidents,
		InFlightAcquisitions,
		AcquisitionsTotal,
		CreationsTotal,
		CreationFailuresTotal,
		CreationDuration,
		EvictionsTotal,
		CancellationsTotal,
		MemoryPressureTotal,
	)
}
