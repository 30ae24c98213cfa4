// Package metrics exposes pinbot's Prometheus instruments.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// guard instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pinbot"

// Outcome labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds all instruments for one process.
type Metrics struct {
	ItemsIngested      prometheus.Counter       // pinbot_ingest_items_total
	IngestErrors       prometheus.Counter       // pinbot_ingest_errors_total
	SizeResolutions    *prometheus.CounterVec   // pinbot_sizes_resolutions_total{result}
	ReplicationChecks  *prometheus.CounterVec   // pinbot_replication_checks_total{result}
	Pins               *prometheus.CounterVec   // pinbot_retention_pins_total{result}
	PinnedBytes        prometheus.Counter       // pinbot_retention_pinned_bytes_total
	DiskUtilization    prometheus.Gauge         // pinbot_retention_disk_utilization_bytes
	DiskBudget         prometheus.Gauge         // pinbot_retention_disk_budget_bytes
	Candidates         prometheus.Gauge         // pinbot_retention_candidates
	CycleDuration      prometheus.Histogram     // pinbot_cycle_duration_seconds
	StageDuration      *prometheus.HistogramVec // pinbot_cycle_stage_duration_seconds{stage}
	LastCycleTimestamp prometheus.Gauge         // pinbot_cycle_last_completed_timestamp_seconds
}

// New registers all instruments on reg. Registering twice on the same
// registry panics, so each process (or test) uses its own registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ItemsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Items newly added to the ledger.",
		}),
		IngestErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Descriptors or entries rejected during ingestion.",
		}),
		SizeResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sizes",
			Name:      "resolutions_total",
			Help:      "Size resolutions by result.",
		}, []string{"result"}),
		ReplicationChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "checks_total",
			Help:      "Replication checks by result.",
		}, []string{"result"}),
		Pins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "pins_total",
			Help:      "Pin requests by result.",
		}, []string{"result"}),
		PinnedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "pinned_bytes_total",
			Help:      "Bytes reserved by successful pins.",
		}),
		DiskUtilization: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "disk_utilization_bytes",
			Help:      "Bytes reserved at the end of the last retention pass.",
		}),
		DiskBudget: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "disk_budget_bytes",
			Help:      "Configured disk budget.",
		}),
		Candidates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "candidates",
			Help:      "Under-replicated items considered in the last retention pass.",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Wall time of a full cycle.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each cycle stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 16),
		}, []string{"stage"}),
		LastCycleTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time the last cycle finished.",
		}),
	}
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// RecordIngested counts newly tracked items.
func (m *Metrics) RecordIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsIngested.Add(float64(n))
}

// RecordIngestError counts one rejected descriptor or entry.
func (m *Metrics) RecordIngestError() {
	if m == nil {
		return
	}
	m.IngestErrors.Inc()
}

// RecordSize counts one size resolution.
func (m *Metrics) RecordSize(ok bool) {
	if m == nil {
		return
	}
	m.SizeResolutions.WithLabelValues(result(ok)).Inc()
}

// RecordReplication counts one replication check.
func (m *Metrics) RecordReplication(ok bool) {
	if m == nil {
		return
	}
	m.ReplicationChecks.WithLabelValues(result(ok)).Inc()
}

// RecordPin counts one pin request; bytes are added on success.
func (m *Metrics) RecordPin(ok bool, bytes int64) {
	if m == nil {
		return
	}
	m.Pins.WithLabelValues(result(ok)).Inc()
	if ok && bytes > 0 {
		m.PinnedBytes.Add(float64(bytes))
	}
}

// SetRetention publishes the retention pass state.
func (m *Metrics) SetRetention(used, budget int64, candidates int) {
	if m == nil {
		return
	}
	m.DiskUtilization.Set(float64(used))
	m.DiskBudget.Set(float64(budget))
	m.Candidates.Set(float64(candidates))
}

// ObserveStage records how long a named stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(d time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(d.Seconds())
	m.LastCycleTimestamp.Set(float64(finished.Unix()))
}
