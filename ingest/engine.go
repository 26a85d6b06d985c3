// Package ingest implements the shared bounded-queue, dedup-cache and
// drop-reason machinery used by both ingest lanes (RPC and P2P), per
// spec.md's Open Question (a): retire the bare p2p-ingest contract and use
// the richer rpc.rs drop-reason grammar plus p2p.rs-style bounded eviction
// for both lanes.
package ingest

import (
	"context"
	"errors"

	"github.com/luxfi/mempulse/clock"
	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/errs"
	"github.com/luxfi/mempulse/eventlog"
	"github.com/luxfi/mempulse/log"
	"github.com/luxfi/mempulse/metrics"
	"github.com/luxfi/mempulse/txdecode"
)

// Fetched is a single raw sighting handed to the engine by a lane-specific
// Provider: a transaction hash plus enough of the wire-format payload for
// txdecode to normalize it.
type Fetched struct {
	Raw  txdecode.RawTxInput
	Peer common.PeerID // empty for the RPC lane
}

// Provider is implemented by each ingest lane to pull the next sighting.
// Fetch blocks until a sighting is available or ctx is cancelled.
type Provider interface {
	Fetch(ctx context.Context) (Fetched, error)
}

// Engine runs one ingest lane: dedup, bounded backpressure, and decode. It
// owns exactly one goroutine (Run), per spec.md §5's
// one-goroutine-per-subsystem model. It never assigns seq_id itself — that
// is the storage writer's exclusive job (spec.md §4.4/§5), so every event
// this engine produces leaves as an unsequenced eventlog.AppendPayload.
type Engine struct {
	Lane      string
	SourceID  common.SourceID
	QueueName string
	provider  Provider
	queue     *FetchQueue[Fetched]
	dedup     *DedupCache
	clock     clock.Clock
	metrics   *metrics.Registry
	logger    log.Logger
	peerStats *PeerStats
	out       chan eventlog.AppendPayload
}

// Config bundles an Engine's construction parameters.
type Config struct {
	Lane               string
	SourceID           common.SourceID
	QueueName          string
	FetchQueueCapacity int
	DedupCacheCapacity int
	Clock              clock.Clock
	Metrics            *metrics.Registry
}

// NewEngine constructs an Engine. provider supplies raw sightings; out is
// the channel unsequenced events are published to — the storage writer's
// input channel, which assigns seq_id and fans the sequenced result further
// to mempool state and the broadcaster.
func NewEngine(cfg Config, provider Provider, out chan eventlog.AppendPayload) *Engine {
	return &Engine{
		Lane:      cfg.Lane,
		SourceID:  cfg.SourceID,
		QueueName: cfg.QueueName,
		provider:  provider,
		queue:     NewFetchQueue[Fetched](cfg.FetchQueueCapacity),
		dedup:     NewDedupCache(cfg.DedupCacheCapacity),
		clock:     cfg.Clock,
		metrics:   cfg.Metrics,
		peerStats: NewPeerStats(),
		out:       out,
		logger:    log.ForComponent("ingest." + cfg.Lane),
	}
}

// Run pulls from provider until ctx is cancelled, applying dedup and decode
// before handing events to out. Each sighting goes straight to admit without
// passing through the fetch queue, so queue backpressure (and its
// QueueFull/QueueClosed drops) applies only to sightings handed in through
// Offer. It is meant to be the sole body of the engine's dedicated goroutine.
func (e *Engine) Run(ctx context.Context) {
	for {
		fetched, err := e.provider.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Warn("ingest fetch failed", "lane", e.Lane, "err", err)
			continue
		}
		e.admit(fetched)
	}
}

// Offer is the non-blocking admission path used directly by tests and by
// providers that push rather than being pulled from.
func (e *Engine) Offer(fetched Fetched) {
	if err := e.queue.Offer(fetched); err != nil {
		depth, peak := e.queue.Depth()
		kind := DropQueueFull
		if errors.Is(err, errs.ErrQueueClosed) {
			kind = DropQueueClosed
		}
		e.emitDrop(fetched, kind, depth, peak)
		return
	}
	fetched, ok := e.queue.Take()
	if !ok {
		return
	}
	e.admit(fetched)
}

func (e *Engine) admit(fetched Fetched) {
	hash, err := common.ParseHash(fetched.Raw.Hash)
	if err != nil {
		e.logger.Debug("dropping unparseable hash", "lane", e.Lane, "err", err)
		return
	}

	nowUnixMS := e.clock.Now().UnixMilli()
	if dup, firstSeenUnixMS := e.dedup.SeenBefore(hash, nowUnixMS); dup {
		depth, peak := e.queue.Depth()
		e.metrics.IngestDedup.WithLabelValues(e.Lane, string(e.SourceID)).Inc()
		if fetched.Peer != "" {
			e.peerStats.Observe(fetched.Peer, (nowUnixMS-firstSeenUnixMS)*1000)
		}
		e.emitDropHash(hash, DropDuplicate, depth, peak)
		return
	}

	e.metrics.IngestReceived.WithLabelValues(e.Lane, string(e.SourceID)).Inc()
	e.publish(eventlog.KindTxSeen, eventlog.TxSeen{Hash: hash})

	decoded, err := txdecode.DecodeRawTransaction(fetched.Raw)
	if err != nil {
		e.logger.Debug("decode failed", "lane", e.Lane, "hash", hash, "err", err)
		return
	}

	var effGasPrice uint64
	if decoded.Fees.GasPrice != nil {
		effGasPrice = decoded.Fees.GasPrice.Uint64()
	} else if decoded.Fees.MaxFeePerGas != nil {
		effGasPrice = decoded.Fees.MaxFeePerGas.Uint64()
	}

	e.publish(eventlog.KindTxDecoded, eventlog.TxDecoded{
		Hash:              decoded.Hash,
		TxType:            uint8(decoded.TxType),
		Sender:            decoded.Sender,
		Nonce:             decoded.Nonce,
		ChainID:           decoded.ChainID,
		Recipient:         decoded.Recipient,
		Value:             decoded.Value,
		GasLimit:          decoded.GasLimit,
		EffectiveGasPrice: effGasPrice,
	})
}

func (e *Engine) emitDropHash(hash common.Hash, kind DropKind, depthCurrent, depthPeak int) {
	reason := DropReason(kind, e.Lane, string(e.SourceID), e.QueueName, depthCurrent, depthPeak)
	e.metrics.IngestDropped.WithLabelValues(e.Lane, string(e.SourceID), string(kind)).Inc()
	e.publish(eventlog.KindTxDropped, eventlog.TxDropped{Hash: hash, Reason: reason})
}

func (e *Engine) emitDrop(fetched Fetched, kind DropKind, depthCurrent, depthPeak int) {
	hash, err := common.ParseHash(fetched.Raw.Hash)
	if err != nil {
		return
	}
	e.emitDropHash(hash, kind, depthCurrent, depthPeak)
}

func (e *Engine) publish(kind eventlog.Kind, payload eventlog.Payload) {
	ap := eventlog.AppendPayload{
		SourceID:       e.SourceID,
		IngestTSMonoNS: e.clock.MonoNanos(),
		IngestTSUnixMS: e.clock.Now().UnixMilli(),
		Kind:           kind,
		Payload:        payload,
	}
	if e.out != nil {
		e.out <- ap
	}
}

// PeerStats exposes the accumulated propagation-delay statistics (p2p lane
// only; the RPC lane never observes peers, so Observe is simply never
// called on its Engine and every lookup returns the zero Snapshot).
func (e *Engine) PeerStats() *PeerStats {
	return e.peerStats
}
