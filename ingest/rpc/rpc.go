// Package rpc implements the rpc.pending_batch ingest lane, grounded on
// original_source/crates/ingest/src/rpc.rs: the canonical drop-reason
// grammar every lane now uses (see ingest.DropReason).
package rpc

import (
	"context"

	"github.com/luxfi/mempulse/clock"
	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/eventlog"
	"github.com/luxfi/mempulse/ingest"
	"github.com/luxfi/mempulse/metrics"
	"github.com/luxfi/mempulse/txdecode"
)

const (
	lane      = "rpc"
	queueName = "pending_batch"
)

// PendingTxProvider supplies the next raw pending-pool transaction from a
// node's RPC endpoint. Implementations are external collaborators (an
// eth_getBlockByNumber/txpool_content poller, a test fixture feeder); this
// module only defines the seam.
type PendingTxProvider interface {
	NextPendingTx(ctx context.Context) (txdecode.RawTxInput, error)
}

type providerAdapter struct {
	inner PendingTxProvider
}

func (a providerAdapter) Fetch(ctx context.Context) (ingest.Fetched, error) {
	raw, err := a.inner.NextPendingTx(ctx)
	if err != nil {
		return ingest.Fetched{}, err
	}
	return ingest.Fetched{Raw: raw}, nil
}

// NewEngine constructs the RPC ingest engine for sourceID, pulling from
// provider and publishing decoded events onto out.
func NewEngine(sourceID common.SourceID, fetchQueueCapacity, dedupCacheCapacity int, clk clock.Clock, m *metrics.Registry, provider PendingTxProvider, out chan eventlog.AppendPayload) *ingest.Engine {
	cfg := ingest.Config{
		Lane:               lane,
		SourceID:           sourceID,
		QueueName:          queueName,
		FetchQueueCapacity: fetchQueueCapacity,
		DedupCacheCapacity: dedupCacheCapacity,
		Clock:              clk,
		Metrics:            m,
	}
	return ingest.NewEngine(cfg, providerAdapter{inner: provider}, out)
}
