// Package export defines the batch sink interface the single writer
// invokes after each envelope batch is durably WAL'd, grounded on
// original_source/crates/storage/src/backfill.rs's batch-shape and
// clickhouse_schema.rs's columnar export path (SPEC_FULL supplement: the
// distilled spec.md never names a backfill/export step, but the storage
// crate's own backfill machinery is in scope here as a concrete collaborator
// behind this Sink interface).
package export

import (
	"context"

	"github.com/luxfi/mempulse/eventlog"
)

// Sink receives a batch of envelopes already committed to the WAL. Write
// must not block indefinitely: the writer goroutine calls it inline, so a
// slow sink directly backpressures the pipeline, the same trade-off
// backfill.rs accepts for its columnar export path.
type Sink interface {
	Write(ctx context.Context, batch []eventlog.Envelope) error
	Close() error
}

// DiscardSink drops every batch. It is the default sink for tests and for
// deployments that only need the WAL for durability, mirroring the
// distillation's UnsupportedParquetExporter placeholder but without
// returning an error — discarding is a legitimate choice here, not a
// not-yet-implemented stub.
type DiscardSink struct{}

func (DiscardSink) Write(context.Context, []eventlog.Envelope) error { return nil }
func (DiscardSink) Close() error                                      { return nil }
