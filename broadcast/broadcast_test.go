package broadcast

import (
	"testing"
	"time"

	"github.com/luxfi/mempulse/metrics"
)

func dispatchAt(seq uint64) Dispatch {
	return Dispatch{
		Op:        "DISPATCH",
		EventType: "DELTA_BATCH",
		Seq:       seq,
		Channel:   "tx.main",
		Watermark: Watermark{LatestIngestSeq: seq},
		MarketStats: MarketStats{
			PendingCount: seq,
		},
	}
}

func TestSubscribeFromWithinBufferReplaysExactly(t *testing.T) {
	b := NewBroadcaster(10, 8, metrics.New())
	for i := 1; i <= 5; i++ {
		b.PublishDelta(dispatchAt(uint64(i)))
	}

	sub := b.SubscribeFrom(2)
	if len(sub.Replay) != 3 {
		t.Fatalf("expected 3 replayed events (seq 3,4,5), got %d", len(sub.Replay))
	}
	for i, ev := range sub.Replay {
		d, ok := ev.(Dispatch)
		if !ok {
			t.Fatalf("did not expect a reset within buffer window, got %+v", ev)
		}
		if d.Seq != uint64(i+3) {
			t.Fatalf("expected seq %d, got %d", i+3, d.Seq)
		}
	}
}

func TestSubscribeFromOutsideBufferIssuesReset(t *testing.T) {
	b := NewBroadcaster(3, 8, metrics.New())
	for i := 1; i <= 10; i++ {
		b.PublishDelta(dispatchAt(uint64(i)))
	}

	// Buffer only holds the last 3 dispatches (seq 8,9,10); asking to
	// resume after seq 1 cannot be satisfied.
	sub := b.SubscribeFrom(1)
	if len(sub.Replay) != 1 {
		t.Fatalf("expected a single reset event, got %+v", sub.Replay)
	}
	reset, ok := sub.Replay[0].(Reset)
	if !ok {
		t.Fatalf("expected a Reset, got %+v", sub.Replay[0])
	}
	if reset.Reason != "gap" {
		t.Fatalf("expected reason %q, got %q", "gap", reset.Reason)
	}
	if reset.LatestSeqID != 10 {
		t.Fatalf("expected latest_seq_id 10, got %d", reset.LatestSeqID)
	}
}

func TestMultiSubscriberFanOutOrdering(t *testing.T) {
	b := NewBroadcaster(10, 8, metrics.New())
	sub1 := b.SubscribeFrom(0)
	sub2 := b.SubscribeFrom(0)

	b.PublishDelta(dispatchAt(1))
	b.PublishDelta(dispatchAt(2))

	for _, sub := range []Subscription{sub1, sub2} {
		for expectedSeq := uint64(1); expectedSeq <= 2; expectedSeq++ {
			select {
			case ev := <-sub.Ch:
				d, ok := ev.(Dispatch)
				if !ok {
					t.Fatalf("subscriber %d: expected a Dispatch, got %+v", sub.ID, ev)
				}
				if d.Seq != expectedSeq {
					t.Fatalf("subscriber %d: expected seq %d, got %d", sub.ID, expectedSeq, d.Seq)
				}
			case <-time.After(time.Second):
				t.Fatalf("subscriber %d: timed out waiting for seq %d", sub.ID, expectedSeq)
			}
		}
	}
}
