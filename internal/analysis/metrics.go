package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "deqcore"
	subsystem        = "analysis"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "analyses_total",
			Help:      "Total number of completed analyses",
		},
		[]string{"strategy"}, // strategy actually used, including Raw
	)

	mitigationFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "mitigation_fallbacks_total",
			Help:      "Total number of mitigation strategy fallbacks",
		},
		[]string{"from", "to"},
	)

	optimizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "optimizations_total",
			Help:      "Total number of circuit optimizations",
		},
		[]string{"path"}, // path: "local", "graph"
	)

	analysisFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "analysis_failures_total",
			Help:      "Total number of failed analysis calls",
		},
		[]string{"kind"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "analysis_duration_seconds",
			Help:      "Time taken to analyze a circuit",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
