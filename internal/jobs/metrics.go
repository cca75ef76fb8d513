// Package jobmetrics instruments the background worker.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics holds the worker collectors.
type Metrics struct {
	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	receiptBytes prometheus.Histogram
	purgedKeys   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the worker collectors on registerer, or once on the
// default registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Run times one task execution.
type Run struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Start begins timing a run of task.
func (m *Metrics) Start(task string) *Run {
	return &Run{metrics: m, task: task, start: time.Now()}
}

// Finish records the outcome of err and returns err unchanged. Errors wrapping
// asynq.SkipRetry count as skipped, not failed.
func (r *Run) Finish(err error) error {
	if r == nil || r.metrics == nil {
		return err
	}
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, asynq.SkipRetry):
		outcome = OutcomeSkipped
	default:
		outcome = OutcomeFailed
		r.metrics.failures.WithLabelValues(r.task).Inc()
	}
	r.metrics.runs.WithLabelValues(r.task, outcome).Inc()
	r.metrics.duration.WithLabelValues(r.task).Observe(time.Since(r.start).Seconds())
	return err
}

// ObserveReceipt records the size of a rendered receipt PDF.
func (m *Metrics) ObserveReceipt(size int) {
	if m == nil {
		return
	}
	m.receiptBytes.Observe(float64(size))
}

// AddPurgedKeys counts idempotency keys removed by the purge task.
func (m *Metrics) AddPurgedKeys(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purgedKeys.Add(float64(n))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdesk_jobs_total",
			Help: "Worker task runs by task type and outcome.",
		}, []string{"task", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdesk_jobs_failures_total",
			Help: "Worker task runs that failed and will be retried.",
		}, []string{"task"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bizdesk_job_duration_seconds",
			Help:    "Worker task run duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		receiptBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizdesk_receipt_pdf_bytes",
			Help:    "Size of receipt PDFs rendered by the worker.",
			Buckets: prometheus.ExponentialBuckets(8<<10, 2, 8),
		}),
		purgedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bizdesk_idempotency_keys_purged_total",
			Help: "Idempotency keys removed after their retention window.",
		}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.receiptBytes, m.purgedKeys)
	return m
}
