// Package metrics exposes Prometheus collectors for the sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsync"

// Outcome labels for PackagesProcessed.
const (
	OutcomeWritten   = "written"
	OutcomeUnchanged = "unchanged"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
	OutcomeDryRun    = "dry_run"
)

// Metrics holds the sync engine collectors.
type Metrics struct {
	Cycles        prometheus.Counter
	CycleDuration prometheus.Histogram

	// PackagesProcessed is labelled by regeneration scope and outcome.
	PackagesProcessed *prometheus.CounterVec
	PagesWritten      prometheus.Counter
	PreservedSections prometheus.Counter
	MergeErrors       prometheus.Counter
	GenerateErrors    prometheus.Counter

	// ValidationIssues is labelled by severity: error or warning.
	ValidationIssues *prometheus.CounterVec

	DebouncedBatches prometheus.Counter
	DebouncedEvents  prometheus.Counter
	TrackedFiles     prometheus.Gauge
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Total number of sync cycles run",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Duration of sync cycles",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		PackagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_processed_total",
			Help:      "Total number of packages processed by scope and outcome",
		}, []string{"scope", "outcome"}),
		PagesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Total number of documentation pages written",
		}),
		PreservedSections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preserved_sections_total",
			Help:      "Total number of hand-written sections carried across regenerations",
		}),
		MergeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_errors_total",
			Help:      "Total number of pages rejected for mis-paired markers",
		}),
		GenerateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_errors_total",
			Help:      "Total number of failed page generations",
		}),
		ValidationIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_issues_total",
			Help:      "Total number of validation issues by severity",
		}, []string{"severity"}),
		DebouncedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounced_batches_total",
			Help:      "Total number of event batches delivered by the debouncer",
		}),
		DebouncedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounced_events_total",
			Help:      "Total number of consolidated events delivered by the debouncer",
		}),
		TrackedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_files",
			Help:      "Number of files with a recorded digest",
		}),
	}
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Cycles.Describe(ch)
	m.CycleDuration.Describe(ch)
	m.PackagesProcessed.Describe(ch)
	m.PagesWritten.Describe(ch)
	m.PreservedSections.Describe(ch)
	m.MergeErrors.Describe(ch)
	m.GenerateErrors.Describe(ch)
	m.ValidationIssues.Describe(ch)
	m.DebouncedBatches.Describe(ch)
	m.DebouncedEvents.Describe(ch)
	m.TrackedFiles.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Cycles.Collect(ch)
	m.CycleDuration.Collect(ch)
	m.PackagesProcessed.Collect(ch)
	m.PagesWritten.Collect(ch)
	m.PreservedSections.Collect(ch)
	m.MergeErrors.Collect(ch)
	m.GenerateErrors.Collect(ch)
	m.ValidationIssues.Collect(ch)
	m.DebouncedBatches.Collect(ch)
	m.DebouncedEvents.Collect(ch)
	m.TrackedFiles.Collect(ch)
}

// Register registers the collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	return reg.Register(m)
}

// ObserveCycle records one finished sync cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	m.Cycles.Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// RecordPackage counts one processed package.
func (m *Metrics) RecordPackage(scope, outcome string) {
	m.PackagesProcessed.WithLabelValues(scope, outcome).Inc()
}

// RecordValidation counts the issues of one validated page.
func (m *Metrics) RecordValidation(errors, warnings int) {
	m.ValidationIssues.WithLabelValues("error").Add(float64(errors))
	m.ValidationIssues.WithLabelValues("warning").Add(float64(warnings))
}

// RecordBatch counts one debounced batch of n events.
func (m *Metrics) RecordBatch(n int) {
	m.DebouncedBatches.Inc()
	m.DebouncedEvents.Add(float64(n))
}

// NewRegistry returns a registry holding m and the standard process and Go
// runtime collectors.
func NewRegistry(m *Metrics) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
