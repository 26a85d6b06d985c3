package storage

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/mempulse/clock"
	"github.com/luxfi/mempulse/errs"
	"github.com/luxfi/mempulse/eventlog"
	"github.com/luxfi/mempulse/log"
	"github.com/luxfi/mempulse/metrics"
	"github.com/luxfi/mempulse/storage/export"
)

// Writer is the single goroutine that owns all mutation of a Tables and a
// WAL, and the sole assigner of seq_id (spec.md §4.4/§5: "the global storage
// writer" is the one monotonic, gap-free sequence authority in the
// process). Producers (the pipeline's forwarding loop, on behalf of the
// ingest engines) only ever send an unsequenced eventlog.AppendPayload on In;
// Writer is the sole reader, so no table mutation — and no seq_id
// assignment — is ever observed out of order. Sequenced envelopes are
// published on Out for downstream consumers (mempool state, the
// broadcaster) that need the final seq_id.
type Writer struct {
	In  chan eventlog.AppendPayload
	Out chan eventlog.Envelope

	wal       *WAL
	tables    *Tables
	sink      export.Sink
	clock     clock.Clock
	metrics   *metrics.Registry
	logger    log.Logger
	nextSeqID uint64

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// NewWriter constructs a Writer with the given bounded input-queue capacity.
// sink receives every envelope after it has been durably WAL'd and applied
// to tables, batched per spec.md §4.4 step 4.
func NewWriter(queueCapacity int, wal *WAL, tables *Tables, sink export.Sink, clk clock.Clock, m *metrics.Registry) *Writer {
	if queueCapacity <= 0 {
		queueCapacity = 1
	}
	return &Writer{
		In:      make(chan eventlog.AppendPayload, queueCapacity),
		Out:     make(chan eventlog.Envelope, queueCapacity),
		wal:     wal,
		tables:  tables,
		sink:    sink,
		clock:   clk,
		metrics: m,
		logger:  log.ForComponent("storage.writer"),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Enqueue offers ap to the writer without blocking, returning
// errs.ErrWriterQueueFull or errs.ErrWriterQueueClosed if it cannot be
// accepted immediately.
func (w *Writer) Enqueue(ap eventlog.AppendPayload) error {
	select {
	case <-w.closed:
		w.metrics.WriterQueueDrop.Inc()
		return errs.ErrWriterQueueClosed
	default:
	}
	select {
	case w.In <- ap:
		return nil
	default:
		w.metrics.WriterQueueDrop.Inc()
		return errs.ErrWriterQueueFull
	}
}

// Run is the writer goroutine's body. It first recovers the WAL (spec.md
// §4.4 step: "on startup, the writer reads all WAL segments, re-sorts by
// seq_id, and re-applies them before accepting new ops"), seeding nextSeqID
// one past the highest recovered seq_id, then drains In until ctx is
// cancelled or Close is called, assigning each arriving AppendPayload the
// next seq_id, WAL-appending, and applying the result to tables. On
// cancellation, payloads already buffered in In are still processed before
// it returns; once ctx is cancelled, an envelope reaches Out only if Out has
// room. A WAL
// append failure is a consistency breach (errs.Consistency): Run returns the
// wrapped error and stops, but never panics the process.
func (w *Writer) Run(ctx context.Context) error {
	defer close(w.done)
	defer close(w.Out)
	if err := w.recover(); err != nil {
		return errs.Consistency("wal recover", err)
	}

	var batch []eventlog.Envelope

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.sink.Write(ctx, batch); err != nil {
			w.logger.Warn("sink write failed", "err", err)
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			if len(w.In) > 0 {
				// Best-effort drain: process what is already enqueued first.
				continue
			}
			_ = flush()
			return nil
		case ap, ok := <-w.In:
			if !ok {
				_ = flush()
				return nil
			}
			env := eventlog.Envelope{
				SeqID:          w.nextSeqID,
				SourceID:       ap.SourceID,
				PrimaryHash:    eventlog.PrimaryHashOf(ap.Payload),
				IngestTSMonoNS: ap.IngestTSMonoNS,
				IngestTSUnixMS: ap.IngestTSUnixMS,
				Kind:           ap.Kind,
				Payload:        ap.Payload,
			}
			w.nextSeqID++

			start := w.clock.MonoNanos()
			if err := w.wal.Append(env); err != nil {
				return errs.Consistency("wal append", err)
			}
			w.applyToTables(env)
			batch = append(batch, env)
			if len(batch) >= 256 {
				_ = flush()
			}
			elapsedMS := float64(w.clock.MonoNanos()-start) / float64(time.Millisecond)
			w.metrics.WriterLatencyMS.Observe(elapsedMS)

			if w.Out != nil {
				select {
				case w.Out <- env:
				case <-ctx.Done():
				}
			}
		}
	}
}

// recover replays every envelope already durable in the WAL into tables,
// deduplicating by seq_id (storage.Recover already does this — see
// sortedEnvelopes), and seeds nextSeqID one past the highest seq_id found so
// freshly-assigned seq_ids never collide with recovered history.
func (w *Writer) recover() error {
	envs, err := Recover(w.wal.basePath)
	if err != nil {
		return err
	}
	for _, env := range envs {
		w.applyToTables(env)
		if env.SeqID >= w.nextSeqID {
			w.nextSeqID = env.SeqID + 1
		}
	}
	return nil
}

func (w *Writer) applyToTables(env eventlog.Envelope) {
	switch p := env.Payload.(type) {
	case eventlog.TxSeen:
		w.tables.appendSeen(TxSeenRow{Hash: p.Hash, SourceID: env.SourceID, SeqID: env.SeqID})
	case eventlog.TxDecoded:
		w.tables.appendFull(TxFullRow{
			Hash: p.Hash, Sender: p.Sender, Nonce: p.Nonce,
			EffectiveGasPrice: p.EffectiveGasPrice, SeqID: env.SeqID,
		})
		w.tables.appendFeatures(TxFeaturesRow{
			Hash: p.Hash, HasRecipient: p.Recipient != nil, HasValue: p.Value != nil && !p.Value.IsZero(),
			GasLimit: p.GasLimit, SeqID: env.SeqID,
		})
		w.tables.appendLifecycle(TxLifecycleRow{Hash: p.Hash, Status: "Pending", SeqID: env.SeqID})
	case eventlog.TxDropped:
		w.tables.appendLifecycle(TxLifecycleRow{Hash: p.Hash, Status: "Dropped", SeqID: env.SeqID})
	case eventlog.TxReplaced:
		w.tables.appendLifecycle(TxLifecycleRow{Hash: p.OldHash, Status: "Replaced", SeqID: env.SeqID})
	case eventlog.TxConfirmedProvisional:
		w.tables.appendLifecycle(TxLifecycleRow{Hash: p.Hash, Status: "ConfirmedProvisional", SeqID: env.SeqID})
	case eventlog.TxConfirmedFinal:
		w.tables.appendLifecycle(TxLifecycleRow{Hash: p.Hash, Status: "ConfirmedFinal", SeqID: env.SeqID})
	}
}

// Close signals Run to stop after draining any already-enqueued envelopes,
// and blocks until it has.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.closed)
		close(w.In)
	})
	<-w.done
}
