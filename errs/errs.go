// Package errs collects the sentinel errors shared across mempulse, grounded
// on the teacher's vmerrs/vmerrors pattern of a flat list of package-level
// sentinels checked with errors.Is. Validation and backpressure paths return
// these sentinels directly (wrapped with context via fmt.Errorf's %w);
// consistency-breach paths — a WAL record that fails to decode, a
// single-writer goroutine observing state it cannot reconcile — are wrapped
// with github.com/cockroachdb/errors instead, which preserves a stack trace
// for the one class of error that should never happen in a correct build.
package errs

import (
	"github.com/cockroachdb/errors"
)

// Ingest/backpressure sentinels (spec.md §7 "Transient / Recoverable").
var (
	ErrDuplicate    = errors.New("duplicate transaction")
	ErrQueueFull    = errors.New("queue full")
	ErrQueueClosed  = errors.New("queue closed")
	ErrEngineClosed = errors.New("ingest engine closed")
)

// Decode sentinels (spec.md §7 "Permanent / Input").
var (
	ErrInvalidHex        = errors.New("invalid hex encoding")
	ErrInvalidLength     = errors.New("invalid field length")
	ErrMissingFeeField   = errors.New("missing required fee field for tx type")
	ErrUnknownTxType     = errors.New("unknown transaction type")
	ErrMalformedEnvelope = errors.New("malformed event envelope")
)

// Storage sentinels (spec.md §7 "Transient" and "Consistency").
var (
	ErrWriterQueueFull   = errors.New("writer queue full")
	ErrWriterQueueClosed = errors.New("writer queue closed")
	ErrSinkUnavailable   = errors.New("sink unavailable")
)

// Broadcast sentinels (spec.md §7).
var (
	ErrReplayWindowGap = errors.New("requested replay window is no longer buffered")
)

// ConsistencyError wraps an error that signals the single-writer goroutine
// (or any other subsystem holding invariant-protected state) has observed
// data it cannot reconcile with its own invariants. Callers halt the owning
// goroutine, not the process, on a ConsistencyError — grounded on the
// teacher's "abort the operation, not the process" treatment of its own
// typed VM errors.
type ConsistencyError struct {
	Op    string
	Cause error
}

func (e *ConsistencyError) Error() string {
	return errors.Wrapf(e.Cause, "consistency breach during %s", e.Op).Error()
}

func (e *ConsistencyError) Unwrap() error {
	return e.Cause
}

// Consistency wraps cause as a ConsistencyError, stamping a stack trace via
// cockroachdb/errors.
func Consistency(op string, cause error) error {
	return &ConsistencyError{Op: op, Cause: errors.WithStack(cause)}
}

// IsConsistency reports whether err (or a wrapped cause of it) is a
// ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
