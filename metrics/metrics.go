// Package metrics wraps a github.com/prometheus/client_golang registry the
// way the teacher's metrics/prometheus package wraps a foreign metrics
// registry into a prometheus.Gatherer. Here the registry is prometheus's own,
// since mempulse has no in-house metrics.Registry type to adapt from — every
// subsystem registers directly against client_golang's collectors, and the
// textual exposition required by spec.md §6 is produced by client_golang's
// own expfmt encoder rather than a hand-rolled formatter.
package metrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Registry is the shared metrics surface passed to every subsystem
// constructor (ingest engines, writer, broadcaster).
type Registry struct {
	reg *prometheus.Registry

	IngestReceived  *prometheus.CounterVec // labels: lane, source
	IngestDropped   *prometheus.CounterVec // labels: lane, source, reason
	IngestDedup     *prometheus.CounterVec // labels: lane, source
	QueueDepth      *prometheus.GaugeVec   // labels: queue
	PropagationMS   *prometheus.HistogramVec // labels: peer
	WriterQueueDrop prometheus.Counter
	WriterLatencyMS prometheus.Histogram
	BroadcastGaps   prometheus.Counter
}

// New constructs a Registry with every collector used across the pipeline
// pre-registered, so a partially-initialized Registry can never be passed to
// a subsystem.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		IngestReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mempulse",
			Subsystem: "ingest",
			Name:      "received_total",
			Help:      "Transactions received per ingest lane and source.",
		}, []string{"lane", "source"}),
		IngestDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mempulse",
			Subsystem: "ingest",
			Name:      "dropped_total",
			Help:      "Transactions dropped per ingest lane, source and reason.",
		}, []string{"lane", "source", "reason"}),
		IngestDedup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mempulse",
			Subsystem: "ingest",
			Name:      "deduped_total",
			Help:      "Transactions suppressed as duplicates per lane and source.",
		}, []string{"lane", "source"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mempulse",
			Name:      "queue_depth",
			Help:      "Current depth of a bounded queue.",
		}, []string{"queue"}),
		PropagationMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mempulse",
			Subsystem: "ingest",
			Name:      "propagation_delay_ms",
			Help:      "Observed propagation delay per peer, in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"peer"}),
		WriterQueueDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mempulse",
			Subsystem: "storage",
			Name:      "writer_queue_dropped_total",
			Help:      "Storage append operations rejected because the writer queue was full or closed.",
		}),
		WriterLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mempulse",
			Subsystem: "storage",
			Name:      "write_latency_ms",
			Help:      "Latency of a single writer-goroutine append, in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 16),
		}),
		BroadcastGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mempulse",
			Subsystem: "broadcast",
			Name:      "gap_resets_total",
			Help:      "Number of times a subscriber was issued a Reset because its requested replay window fell outside the buffer.",
		}),
	}
	reg.MustRegister(
		r.IngestReceived, r.IngestDropped, r.IngestDedup, r.QueueDepth,
		r.PropagationMS, r.WriterQueueDrop, r.WriterLatencyMS, r.BroadcastGaps,
	)
	return r
}

// Expose renders every registered metric in Prometheus text exposition
// format, satisfying spec.md §6's metrics textual-exposition requirement
// without standing up an HTTP server (the non-goal is the HTTP surface, not
// the text format itself).
func (r *Registry) Expose() (string, error) {
	mfs, err := r.reg.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("encode metric family: %w", err)
		}
	}
	return buf.String(), nil
}

// Gatherer exposes the underlying prometheus.Gatherer for callers that want
// to wire their own promhttp.Handler (outside this module's scope, but the
// seam is grounded on promhttp for parity with the teacher's dependency on
// the same client_golang family).
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

var _ = promhttp.Handler // keep the import meaningful without standing up a server
