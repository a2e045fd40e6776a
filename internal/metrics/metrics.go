// Package metrics exposes Prometheus collectors for the correction
// pipeline: job throughput counters, queue depth gauges, and a job
// latency histogram.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. All fields are safe for
// concurrent use.
type Metrics struct {
	JobsEnqueued     prometheus.Counter
	JobsCompleted    prometheus.Counter
	JobsFailed       prometheus.Counter
	JobsDeadLettered prometheus.Counter
	DedupHits        prometheus.Counter

	JobsPending prometheus.Gauge
	JobsLeased  prometheus.Gauge

	JobLatency      prometheus.Histogram
	AnalyzerResults *prometheus.CounterVec
}

// New registers pipeline collectors with the given registerer.
// Pass prometheus.DefaultRegisterer in production; a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "corrige_jobs_enqueued_total",
			Help: "Jobs accepted into the correction queue.",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corrige_jobs_completed_total",
			Help: "Jobs that produced a correction report.",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "corrige_jobs_failed_total",
			Help: "Job attempts that failed (retryable or permanent).",
		}),
		JobsDeadLettered: factory.NewCounter(prometheus.CounterOpts{
			Name: "corrige_jobs_dead_lettered_total",
			Help: "Jobs moved to the dead-letter state after exhausting retries.",
		}),
		DedupHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "corrige_dedup_hits_total",
			Help: "Submissions answered from an existing job via fingerprint dedup.",
		}),
		JobsPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corrige_jobs_pending",
			Help: "Jobs waiting to be leased.",
		}),
		JobsLeased: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corrige_jobs_leased",
			Help: "Jobs currently leased by workers.",
		}),
		JobLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corrige_job_latency_seconds",
			Help:    "Wall time from lease to completion.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AnalyzerResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corrige_analyzer_results_total",
			Help: "Analyzer results by analyzer id and status.",
		}, []string{"analyzer", "status"}),
	}
}
