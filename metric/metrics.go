// Package metric holds the Prometheus collectors for a tagging run.
//
// A run is a batch job, so the collectors live on a private registry that is
// written to a node_exporter textfile when the run ends instead of being
// scraped. All methods are safe to call on a nil *Metrics.
package metric

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "semtag"

// Metrics tracks completion calls, contract violations and write-back counts.
type Metrics struct {
	registry *prometheus.Registry

	completions        *prometheus.CounterVec
	completionErrors   *prometheus.CounterVec
	contractViolations *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	tablesExcluded     *prometheus.CounterVec
	tablesTagged       prometheus.Counter
	metadataWritten    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
// runID is attached to every series as a constant label.
func New(runID string) *Metrics {
	constLabels := prometheus.Labels{"run_id": runID}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "completions_total",
			Help:        "Completion requests that returned text, by request kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		completionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "completion_errors_total",
			Help:        "Completion requests that failed, by request kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		contractViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "contract_violations_total",
			Help:        "Completions whose label count did not match the request, by request kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "completion_duration_seconds",
			Help:        "Completion request latency, by request kind.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"kind"}),
		tablesExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tables_excluded_total",
			Help:        "Tables dropped by the filter, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		tablesTagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tables_tagged_total",
			Help:        "Tables whose metadata was generated.",
			ConstLabels: constLabels,
		}),
		metadataWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "metadata_written_total",
			Help:        "Metadata entries sent to storage, by target (table, column).",
			ConstLabels: constLabels,
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		m.completions,
		m.completionErrors,
		m.contractViolations,
		m.completionDuration,
		m.tablesExcluded,
		m.tablesTagged,
		m.metadataWritten,
	)
	return m
}

// Registry exposes the registry, for tests and embedding callers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCompletion records a finished completion call.
func (m *Metrics) ObserveCompletion(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.completionDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.completionErrors.WithLabelValues(kind).Inc()
		return
	}
	m.completions.WithLabelValues(kind).Inc()
}

// ContractViolation records a completion that returned the wrong number of labels.
func (m *Metrics) ContractViolation(kind string) {
	if m == nil {
		return
	}
	m.contractViolations.WithLabelValues(kind).Inc()
}

// TableExcluded records a table dropped by the filter.
func (m *Metrics) TableExcluded(reason string) {
	if m == nil {
		return
	}
	m.tablesExcluded.WithLabelValues(reason).Inc()
}

// TableTagged records a table whose metadata was generated.
func (m *Metrics) TableTagged() {
	if m == nil {
		return
	}
	m.tablesTagged.Inc()
}

// MetadataWritten records n metadata entries sent for target.
func (m *Metrics) MetadataWritten(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.metadataWritten.WithLabelValues(target).Add(float64(n))
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
