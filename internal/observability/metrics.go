// Package observability collects migration metrics in a private Prometheus
// registry. A nil *Metrics is valid and records nothing.
package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "h2h"

// Metrics holds the collectors of one job.
type Metrics struct {
	reg *prometheus.Registry

	rowsProcessed     *prometheus.CounterVec
	rowsReprocessed   prometheus.Counter
	rowsRequeued      prometheus.Counter
	rowErrors         prometheus.Counter
	decodeFallbacks   *prometheus.CounterVec
	partitionsDone    prometheus.Counter
	partitionDuration prometheus.Histogram
}

// New creates and registers the job collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Rows merged, partitioned by outcome.",
		}, []string{"outcome"}),
		rowsReprocessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_reprocessed_total",
			Help:      "Rows re-read with a wider version window.",
		}),
		rowsRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_requeued_total",
			Help:      "Rows left ambiguous at the maximum window and queued for a later run.",
		}),
		rowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_errors_total",
			Help:      "Rows that failed to merge, decode or write.",
		}),
		decodeFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_fallbacks_total",
			Help:      "Compressed values that were read as plain text.",
		}, []string{"type"}),
		partitionsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partitions_completed_total",
			Help:      "Partitions fully processed.",
		}),
		partitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "partition_duration_seconds",
			Help:      "Time spent processing one partition.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.rowsProcessed, m.rowsReprocessed, m.rowsRequeued, m.rowErrors,
		m.decodeFallbacks, m.partitionsDone, m.partitionDuration,
	} {
		if err := m.reg.Register(c); err != nil {
			return nil, fmt.Errorf("observability: register collector: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry holding the job collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// RowProcessed counts one merged row under outcome.
func (m *Metrics) RowProcessed(outcome string) {
	if m == nil {
		return
	}
	m.rowsProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RowReprocessed() {
	if m != nil {
		m.rowsReprocessed.Inc()
	}
}

func (m *Metrics) RowRequeued() {
	if m != nil {
		m.rowsRequeued.Inc()
	}
}

func (m *Metrics) RowFailed() {
	if m != nil {
		m.rowErrors.Inc()
	}
}

// DecodeFallback counts a compressed value of dataType read as plain text.
func (m *Metrics) DecodeFallback(dataType string) {
	if m == nil {
		return
	}
	m.decodeFallbacks.WithLabelValues(dataType).Inc()
}

// PartitionCompleted records one finished partition.
func (m *Metrics) PartitionCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.partitionsDone.Inc()
	m.partitionDuration.Observe(d.Seconds())
}

// Snapshot returns the current value of every series, keyed by metric name with
// labels appended as {name=value}. Histograms report their sample count.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	out := make(map[string]float64)
	if m == nil {
		return out, nil
	}
	families, err := m.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("observability: gather: %w", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			out[seriesName(mf.GetName(), metric)] = metricValue(metric)
		}
	}
	return out, nil
}

func seriesName(name string, metric *dto.Metric) string {
	labels := metric.GetLabel()
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(pairs)
	s := name + "{"
	for i, p := range pairs {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s + "}"
}

func metricValue(metric *dto.Metric) float64 {
	switch {
	case metric.GetCounter() != nil:
		return metric.GetCounter().GetValue()
	case metric.GetGauge() != nil:
		return metric.GetGauge().GetValue()
	case metric.GetHistogram() != nil:
		return float64(metric.GetHistogram().GetSampleCount())
	}
	return 0
}
