// Package broadcast implements the dashboard stream broadcaster, grounded
// on original_source/crates/viz-api/src/stream_broadcast.rs: a bounded
// replay ring buffer plus per-subscriber fan-out channels, with
// resume-or-reset semantics for a subscriber whose requested replay window
// has already scrolled out of the buffer.
package broadcast

import (
	"sync"

	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/metrics"
)

// Event is the wire envelope pushed to subscribers: either a Dispatch delta
// or a Reset, per spec.md §6's pinned "Dashboard broadcast wire shape" and
// viz-api's DashboardStreamBroadcastEvent::{Delta(dispatch), Reset{reason,
// latest_seq_id}}. Each variant's JSON shape is its own struct — there is no
// wrapping discriminant field.
type Event interface {
	// effectiveSeqID reports an event's position in the stream, the way
	// original_source's DashboardStreamBroadcastEvent::seq_id does: for a
	// Dispatch, the greater of its own seq and the ingest watermark it
	// carries (a dispatch can lag the watermark under batching); for a
	// Reset, the latest_seq_id the reset itself names.
	effectiveSeqID() uint64
}

// Dispatch is a delta broadcast frame, grounded literally on
// viz-api/src/lib.rs's StreamV2Dispatch + tests/stream_broadcast.rs field
// shapes (spec.md §6 pins this wire shape verbatim).
type Dispatch struct {
	Op          string      `json:"op"`
	EventType   string      `json:"event_type"`
	Seq         uint64      `json:"seq"`
	Channel     string      `json:"channel"`
	HasGap      bool        `json:"has_gap"`
	Patch       Patch       `json:"patch"`
	Watermark   Watermark   `json:"watermark"`
	MarketStats MarketStats `json:"market_stats"`
}

// Patch is the incremental tx-summary delta carried by a Dispatch, trimmed
// from StreamV2Patch's {upsert, remove, feature_upsert, opportunity_upsert}
// to the two fields this pipeline's mempool state actually produces;
// feature_upsert/opportunity_upsert belong to the scoring collaborator's
// own broadcast contract (spec.md Open Question (b)) and are left to it.
type Patch struct {
	Upsert []PatchEntry  `json:"upsert"`
	Remove []common.Hash `json:"remove"`
}

// PatchEntry is one upserted transaction's dashboard-facing summary.
type PatchEntry struct {
	Hash              common.Hash `json:"hash"`
	Status            string      `json:"status"`
	EffectiveGasPrice uint64      `json:"effective_gas_price_wei"`
}

// Watermark reports how far ingest has progressed, independent of what has
// actually been dispatched to this subscriber. Field name matches
// StreamV2Watermark.latest_ingest_seq exactly.
type Watermark struct {
	LatestIngestSeq uint64 `json:"latest_ingest_seq"`
}

// MarketStats is the dashboard's headline numbers, opaque to this package
// beyond its field shape — the values themselves are computed upstream.
type MarketStats struct {
	PendingCount    uint64  `json:"pending_count"`
	MeanGasPriceWei uint64  `json:"mean_gas_price_wei"`
	DropRatePercent float64 `json:"drop_rate_percent"`
}

func (d Dispatch) effectiveSeqID() uint64 {
	if d.Watermark.LatestIngestSeq > d.Seq {
		return d.Watermark.LatestIngestSeq
	}
	return d.Seq
}

// Reset tells a subscriber its view of the stream is no longer reconcilable
// from the replay buffer and it must re-fetch a fresh snapshot out-of-band.
type Reset struct {
	Reason      string `json:"reason"`
	LatestSeqID uint64 `json:"latest_seq_id"`
}

func (r Reset) effectiveSeqID() uint64 { return r.LatestSeqID }

type subscriber struct {
	ch chan Event
}

// Broadcaster fans out Event frames to subscribers, replaying from a
// bounded ring buffer when a subscriber asks to resume from a seq_id still
// in the buffer, and issuing a Reset when it is not.
type Broadcaster struct {
	mu          sync.Mutex // guards only the replay buffer, per spec.md §5
	replay      []Event
	replayCap   int
	latestSeqID uint64

	subsMu sync.RWMutex
	subs   map[int]*subscriber
	nextID int

	channelCap int
	metrics    *metrics.Registry
}

// NewBroadcaster constructs a Broadcaster. replayCapacity and channelCapacity
// are left as explicit operator-set constructor parameters rather than
// auto-calibrated, per spec.md's Open Question (c).
func NewBroadcaster(replayCapacity, channelCapacity int, m *metrics.Registry) *Broadcaster {
	if replayCapacity <= 0 {
		replayCapacity = 1
	}
	if channelCapacity <= 0 {
		channelCapacity = 1
	}
	return &Broadcaster{
		replayCap:  replayCapacity,
		channelCap: channelCapacity,
		subs:       make(map[int]*subscriber),
		metrics:    m,
	}
}

// PublishDelta appends dispatch to the replay buffer and fans it out to
// every current subscriber, matching original_source's
// publish_delta(dispatch) — the caller assembles the full Dispatch
// (including its own seq and watermark); the broadcaster never assigns
// seq itself.
func (b *Broadcaster) PublishDelta(dispatch Dispatch) {
	ev := Event(dispatch)
	b.mu.Lock()
	if s := dispatch.effectiveSeqID(); s > b.latestSeqID {
		b.latestSeqID = s
	}
	b.pushReplayLocked(ev)
	b.mu.Unlock()

	b.fanOut(ev)
}

// PublishReset appends and fans out a Reset frame to every subscriber,
// matching original_source's publish_reset(reason, seq). The gap Reset that
// SubscribeFrom hands a subscriber whose resume point is no longer buffered
// is built there directly and is not published through this method.
func (b *Broadcaster) PublishReset(reason string, latestSeqID uint64) {
	ev := Event(Reset{Reason: reason, LatestSeqID: latestSeqID})
	b.mu.Lock()
	if latestSeqID > b.latestSeqID {
		b.latestSeqID = latestSeqID
	}
	b.pushReplayLocked(ev)
	b.mu.Unlock()

	b.fanOut(ev)
}

func (b *Broadcaster) pushReplayLocked(ev Event) {
	b.replay = append(b.replay, ev)
	if len(b.replay) > b.replayCap {
		b.replay = b.replay[len(b.replay)-b.replayCap:]
	}
}

func (b *Broadcaster) fanOut(ev Event) {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()
	for _, s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			// A slow subscriber drops the delta rather than blocking the
			// publisher; its next SubscribeFrom will catch it up or reset it.
		}
	}
}

// LatestSeqID returns the highest effectiveSeqID published so far.
func (b *Broadcaster) LatestSeqID() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latestSeqID
}

// Subscription is returned by SubscribeFrom: Replay holds the buffered
// events the subscriber missed (or a single Reset if the requested window
// had already scrolled out of the buffer), and Ch streams everything
// published from this point forward.
type Subscription struct {
	ID     int
	Replay []Event
	Ch     <-chan Event
}

// SubscribeFrom registers a new subscriber wanting to resume after
// afterSeqID, per spec.md §6's subscribe_from(after_seq_id) contract: if
// the oldest buffered event's seq_id > afterSeqID+1, Replay holds a single
// Reset{reason="gap", latest_seq_id=max(latest, oldest)}, since the gap can
// no longer be filled; otherwise Replay holds every buffered event strictly
// newer than afterSeqID.
func (b *Broadcaster) SubscribeFrom(afterSeqID uint64) Subscription {
	b.mu.Lock()
	var replay []Event
	if len(b.replay) == 0 {
		// Nothing published yet: no replay, no reset needed.
	} else if oldest := b.replay[0].effectiveSeqID(); oldest <= afterSeqID+1 {
		for _, ev := range b.replay {
			if ev.effectiveSeqID() > afterSeqID {
				replay = append(replay, ev)
			}
		}
	} else {
		b.metrics.BroadcastGaps.Inc()
		latest := b.latestSeqID
		if oldest > latest {
			latest = oldest
		}
		replay = []Event{Reset{Reason: "gap", LatestSeqID: latest}}
	}
	b.mu.Unlock()

	b.subsMu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, b.channelCap)}
	b.subs[id] = sub
	b.subsMu.Unlock()

	return Subscription{ID: id, Replay: replay, Ch: sub.ch}
}

// Unsubscribe removes and closes the subscriber channel for id.
func (b *Broadcaster) Unsubscribe(id int) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	if s, ok := b.subs[id]; ok {
		close(s.ch)
		delete(b.subs, id)
	}
}
