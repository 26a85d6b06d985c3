package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/mempulse/broadcast"
	"github.com/luxfi/mempulse/clock"
	"github.com/luxfi/mempulse/ingest/rpc"
	"github.com/luxfi/mempulse/metrics"
	"github.com/luxfi/mempulse/storage"
	"github.com/luxfi/mempulse/storage/export"
	"github.com/luxfi/mempulse/txdecode"
)

type fixedProvider struct {
	hashes []string
	i      int
}

func (p *fixedProvider) NextPendingTx(ctx context.Context) (txdecode.RawTxInput, error) {
	if p.i >= len(p.hashes) {
		<-ctx.Done()
		return txdecode.RawTxInput{}, ctx.Err()
	}
	h := p.hashes[p.i]
	p.i++
	return txdecode.RawTxInput{
		Hash:     h,
		Sender:   "0x" + repeatHex("11", 20),
		Nonce:    uint64(p.i),
		TxType:   txdecode.TypeLegacy,
		GasPrice: strPtr("0x3b9aca00"),
	}, nil
}

func strPtr(s string) *string { return &s }

func repeatHex(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func TestPipelineRunWiresIngestThroughToWriterAndBroadcaster(t *testing.T) {
	m := metrics.New()
	clk := clock.NewSystem()

	wal, err := storage.OpenWAL(filepath.Join(t.TempDir(), "wal"), 1<<20)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	tables := storage.NewTables()
	writer := storage.NewWriter(16, wal, tables, export.DiscardSink{}, clk, m)
	bcast := broadcast.NewBroadcaster(16, 4, m)

	p := New(nil, writer, bcast, 16, 20*time.Millisecond)

	provider := &fixedProvider{hashes: []string{
		"0x" + repeatHex("aa", 32),
		"0x" + repeatHex("bb", 32),
	}}
	engine := rpc.NewEngine("test-node", 4, 16, clk, m, provider, p.Events())
	p.Engines = append(p.Engines, engine)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-ctx.Done()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if tables.Snapshot().Seen == nil {
		t.Fatal("expected at least one seen row to have been recorded")
	}
	if p.State.Len() == 0 {
		t.Fatal("expected mempool state to have observed at least one decoded tx")
	}
}
