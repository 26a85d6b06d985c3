package ingest

import "fmt"

// DropKind enumerates the reasons an ingest engine can refuse a transaction,
// grounded on original_source/crates/ingest/src/rpc.rs's drop-reason string
// grammar.
type DropKind string

const (
	DropDuplicate   DropKind = "Duplicate"
	DropQueueFull   DropKind = "QueueFull"
	DropQueueClosed DropKind = "QueueClosed"
)

// DropReason formats a structured drop-reason string:
// "<Kind>;lane=<lane>;source=<source_id>;queue=<queue_name>;depth_current=<n>;depth_peak=<m>"
// — the exact grammar spec.md §6 pins for TxDropped.Reason.
func DropReason(kind DropKind, lane, source, queue string, depthCurrent, depthPeak int) string {
	return fmt.Sprintf("%s;lane=%s;source=%s;queue=%s;depth_current=%d;depth_peak=%d",
		kind, lane, source, queue, depthCurrent, depthPeak)
}
