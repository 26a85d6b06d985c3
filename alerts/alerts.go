// Package alerts implements the threshold evaluation SPEC_FULL supplements
// from original_source/crates/common/src/lib.rs, dropped by the
// distillation: AlertThresholdConfig, MetricSnapshot, and evaluate_alerts.
// It is a pure function over metric snapshots and configured thresholds — it
// never formats or transports an alert, which would fall under spec.md's
// CLI/metrics-formatting non-goal.
package alerts

// Thresholds holds the configured alert boundaries, with defaults grounded
// on the original crate's own default configuration.
type Thresholds struct {
	PeerChurnPercent       float64
	IngestLagMS            float64
	DecodeFailureRatePercent float64
	CoverageCollapsePercent  float64
	StorageWriteLatencyMS    float64
	ClockSkewMS              float64
}

// DefaultThresholds returns the original crate's default threshold values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PeerChurnPercent:         25,
		IngestLagMS:              2000,
		DecodeFailureRatePercent: 5,
		CoverageCollapsePercent:  50,
		StorageWriteLatencyMS:    100,
		ClockSkewMS:              500,
	}
}

// Snapshot is the current observed metrics the thresholds are evaluated
// against.
type Snapshot struct {
	PeerChurnPercent         float64
	IngestLagMS              float64
	DecodeFailureRatePercent float64
	CoverageCollapsePercent  float64
	StorageWriteLatencyMS    float64
	ClockSkewMS              float64
}

// Decisions reports which thresholds, if any, the snapshot breached.
type Decisions struct {
	PeerChurn       bool
	IngestLag       bool
	DecodeFailures  bool
	CoverageCollapse bool
	StorageWriteLatency bool
	ClockSkew       bool
}

// Any reports whether at least one threshold was breached.
func (d Decisions) Any() bool {
	return d.PeerChurn || d.IngestLag || d.DecodeFailures || d.CoverageCollapse || d.StorageWriteLatency || d.ClockSkew
}

// Evaluate compares snapshot against thresholds, flagging peer churn, ingest
// lag, decode-failure rate, coverage collapse, storage write latency, and
// clock skew.
func Evaluate(snapshot Snapshot, thresholds Thresholds) Decisions {
	return Decisions{
		PeerChurn:           snapshot.PeerChurnPercent >= thresholds.PeerChurnPercent,
		IngestLag:           snapshot.IngestLagMS >= thresholds.IngestLagMS,
		DecodeFailures:      snapshot.DecodeFailureRatePercent >= thresholds.DecodeFailureRatePercent,
		CoverageCollapse:    snapshot.CoverageCollapsePercent >= thresholds.CoverageCollapsePercent,
		StorageWriteLatency: snapshot.StorageWriteLatencyMS >= thresholds.StorageWriteLatencyMS,
		ClockSkew:           snapshot.ClockSkewMS >= thresholds.ClockSkewMS,
	}
}
