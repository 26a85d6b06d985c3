// Package p2p implements the p2p.fetch ingest lane, grounded on
// original_source/crates/ingest/src/p2p.rs and devp2p_runtime.rs. Peer
// identity is typed as github.com/luxfi/ids.NodeID — the teacher's
// network package convention — rather than a bare string, so a peer can
// never be silently confused with a SourceID or an arbitrary label.
package p2p

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/mempulse/clock"
	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/eventlog"
	"github.com/luxfi/mempulse/ingest"
	"github.com/luxfi/mempulse/metrics"
	"github.com/luxfi/mempulse/txdecode"
)

const (
	lane      = "p2p"
	queueName = "fetch"
)

// PeerFeed supplies the next raw transaction gossiped by a peer. Like
// PendingTxProvider in the RPC lane, this is an external collaborator seam
// (a devp2p transaction-announcement handler), not implemented here.
type PeerFeed interface {
	NextFromPeer(ctx context.Context) (peer ids.NodeID, raw txdecode.RawTxInput, err error)
}

type feedAdapter struct {
	inner PeerFeed
}

func (a feedAdapter) Fetch(ctx context.Context) (ingest.Fetched, error) {
	peer, raw, err := a.inner.NextFromPeer(ctx)
	if err != nil {
		return ingest.Fetched{}, err
	}
	return ingest.Fetched{Raw: raw, Peer: common.PeerID(peer.String())}, nil
}

// NewEngine constructs the P2P ingest engine for sourceID, pulling from feed
// and publishing decoded events onto out.
func NewEngine(sourceID common.SourceID, fetchQueueCapacity, dedupCacheCapacity int, clk clock.Clock, m *metrics.Registry, feed PeerFeed, out chan eventlog.AppendPayload) *ingest.Engine {
	cfg := ingest.Config{
		Lane:               lane,
		SourceID:           sourceID,
		QueueName:          queueName,
		FetchQueueCapacity: fetchQueueCapacity,
		DedupCacheCapacity: dedupCacheCapacity,
		Clock:              clk,
		Metrics:            m,
	}
	return ingest.NewEngine(cfg, feedAdapter{inner: feed}, out)
}
