package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "report"

var (
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Report extractions by outcome.",
	}, []string{"status"})

	Bands = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bands_total",
		Help:      "Bands produced by successful extractions.",
	})

	LoaderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "loader_duration_seconds",
		Help:      "Time spent in data loaders.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"loader"})

	LoaderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_errors_total",
		Help:      "Failed data loader calls.",
	}, []string{"loader"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Asynchronous report runs by final status.",
	}, []string{"status"})
)

// Status labels shared by Extractions and Runs.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)
