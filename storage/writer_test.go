package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/mempulse/clock"
	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/eventlog"
	"github.com/luxfi/mempulse/metrics"
	"github.com/luxfi/mempulse/storage/export"
)

func appendPayloadAt(i int) eventlog.AppendPayload {
	var h common.Hash
	h[0] = byte(i)
	return eventlog.AppendPayload{
		SourceID: "rpc-1", Kind: eventlog.KindTxSeen, Payload: eventlog.TxSeen{Hash: h},
	}
}

func drainOut(w *Writer) {
	go func() {
		for range w.Out {
		}
	}()
}

func TestWriterAssignsSeqIDAndAppliesToTablesAndWAL(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(filepath.Join(dir, "test.wal"), 1<<20)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	tables := NewTables()
	w := NewWriter(16, wal, tables, export.DiscardSink{}, clock.NewMock(time.Unix(0, 0)), metrics.New())
	drainOut(w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	for i := 0; i < 10; i++ {
		if err := w.Enqueue(appendPayloadAt(i)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	cancel()
	<-done
	_ = wal.Close()

	snap := tables.Snapshot()
	if len(snap.Seen) != 10 {
		t.Fatalf("expected 10 seen rows, got %d", len(snap.Seen))
	}

	recovered, err := Recover(filepath.Join(dir, "test.wal"))
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(recovered) != 10 {
		t.Fatalf("expected 10 recovered envelopes, got %d", len(recovered))
	}
	for i, env := range recovered {
		if env.SeqID != uint64(i) {
			t.Fatalf("expected writer-assigned seq_id %d, got %d", i, env.SeqID)
		}
	}
}

func TestWriterRecoversExistingWALBeforeAssigningNewSeqIDs(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "test.wal")

	seedWAL, err := OpenWAL(walPath, 1<<20)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	for i := uint64(0); i < 5; i++ {
		if err := seedWAL.Append(envAt(i)); err != nil {
			t.Fatalf("seed append %d: %v", i, err)
		}
	}
	if err := seedWAL.Close(); err != nil {
		t.Fatalf("close seed wal: %v", err)
	}

	wal, err := OpenWAL(walPath, 1<<20)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	tables := NewTables()
	w := NewWriter(4, wal, tables, export.DiscardSink{}, clock.NewMock(time.Unix(0, 0)), metrics.New())
	drainOut(w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	if err := w.Enqueue(appendPayloadAt(0)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cancel()
	<-done
	_ = wal.Close()

	snap := tables.Snapshot()
	if len(snap.Seen) != 6 {
		t.Fatalf("expected 5 recovered + 1 new seen row, got %d", len(snap.Seen))
	}

	recovered, err := Recover(walPath)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(recovered) != 6 {
		t.Fatalf("expected 6 total envelopes after recovery + new append, got %d", len(recovered))
	}
	if recovered[5].SeqID != 5 {
		t.Fatalf("expected newly-assigned seq_id 5 to continue after recovered seq_ids 0-4, got %d", recovered[5].SeqID)
	}
}

func TestWriterEnqueueRejectsAfterClose(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(filepath.Join(dir, "test.wal"), 1<<20)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	tables := NewTables()
	w := NewWriter(4, wal, tables, export.DiscardSink{}, clock.NewMock(time.Unix(0, 0)), metrics.New())
	drainOut(w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Close()
	if err := w.Enqueue(appendPayloadAt(0)); err == nil {
		t.Fatal("expected Enqueue to fail after Close")
	}
	_ = wal.Close()
}
