// Package pipeline wires the ingest engines, the storage writer, and the
// dashboard broadcaster into one runnable process, grounded on the
// teacher's goroutine-per-subsystem layout plus original_source's top-level
// main.rs task spawn-and-join shape — generalized from tokio::spawn +
// JoinSet to golang.org/x/sync/errgroup, since the rest of the module
// already follows one-goroutine-per-subsystem with explicit channels rather
// than actor mailboxes.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/mempulse/broadcast"
	"github.com/luxfi/mempulse/eventlog"
	"github.com/luxfi/mempulse/ingest"
	"github.com/luxfi/mempulse/log"
	"github.com/luxfi/mempulse/mempool"
	"github.com/luxfi/mempulse/storage"
)

// Pipeline owns the set of ingest engines feeding one storage Writer, a
// mempool State folding the writer's sequenced output, and a Broadcaster
// that periodically publishes a MarketStats dispatch derived from that
// state.
//
// Engines must be constructed (via ingest.NewEngine) with their out channel
// set to Pipeline.Events() rather than Writer.In directly: Pipeline is the
// single reader of that channel, forwarding every unsequenced AppendPayload
// to the writer. Writer is the sole assigner of seq_id (storage.Writer); its
// Out channel is in turn the only place State ever sees a fully-sequenced
// Envelope, so the dashboard's pending count always reflects what the
// writer durably persisted, never a seq_id the writer has not yet assigned.
type Pipeline struct {
	Engines       []*ingest.Engine
	Writer        *storage.Writer
	Broadcaster   *broadcast.Broadcaster
	State         *mempool.State
	StatsInterval time.Duration
	Channel       string

	events chan eventlog.AppendPayload
	logger log.Logger
}

// New constructs a Pipeline with its own internal event channel of the
// given capacity. Engines passed to Run must publish onto Events().
func New(engines []*ingest.Engine, writer *storage.Writer, bcast *broadcast.Broadcaster, eventChanCapacity int, statsInterval time.Duration) *Pipeline {
	if statsInterval <= 0 {
		statsInterval = time.Second
	}
	if eventChanCapacity <= 0 {
		eventChanCapacity = 1
	}
	return &Pipeline{
		Engines:       engines,
		Writer:        writer,
		Broadcaster:   bcast,
		State:         mempool.NewState(),
		StatsInterval: statsInterval,
		Channel:       "tx.main",
		events:        make(chan eventlog.AppendPayload, eventChanCapacity),
		logger:        log.ForComponent("pipeline"),
	}
}

// Events returns the channel every Engine passed to Run must publish onto.
func (p *Pipeline) Events() chan eventlog.AppendPayload {
	return p.events
}

// Run starts every engine, the forward-to-writer loop, the writer itself,
// and the apply-and-publish loop, and blocks until ctx is cancelled or one
// of them returns a non-nil error. It stops the rest of the group on the
// first failure, per errgroup.Group's standard fail-fast semantics.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, e := range p.Engines {
		e := e
		g.Go(func() error {
			e.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return p.forwardToWriter(ctx)
	})

	g.Go(func() error {
		return p.Writer.Run(ctx)
	})

	g.Go(func() error {
		return p.applyAndPublish(ctx)
	})

	return g.Wait()
}

// forwardToWriter hands every unsequenced AppendPayload arriving on Events()
// to the writer, which is the sole assigner of seq_id.
func (p *Pipeline) forwardToWriter(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ap, ok := <-p.events:
			if !ok {
				return nil
			}
			if err := p.Writer.Enqueue(ap); err != nil {
				p.logger.Warn("writer enqueue failed", "err", err)
			}
		}
	}
}

// applyAndPublish folds every writer-sequenced Envelope into State and
// periodically publishes a MarketStats dispatch derived from that same
// State to the broadcaster. Both run on this one goroutine so State is
// never read or written concurrently from more than one place.
func (p *Pipeline) applyAndPublish(ctx context.Context) error {
	ticker := time.NewTicker(p.StatsInterval)
	defer ticker.Stop()

	var latestSeqID uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-p.Writer.Out:
			if !ok {
				return nil
			}
			p.State.ApplyEvent(env)
			latestSeqID = env.SeqID
		case <-ticker.C:
			p.Broadcaster.PublishDelta(broadcast.Dispatch{
				Op:        "DISPATCH",
				EventType: "DELTA_BATCH",
				Seq:       latestSeqID,
				Channel:   p.Channel,
				Watermark: broadcast.Watermark{LatestIngestSeq: latestSeqID},
				MarketStats: broadcast.MarketStats{
					PendingCount: uint64(len(p.State.PendingHashes())),
				},
			})
		}
	}
}
