package ingest

import (
	"sort"
	"sync"

	"github.com/luxfi/mempulse/common"
)

// PeerStats accumulates per-peer propagation-delay observations (count,
// mean, p99-by-nearest-rank), grounded on
// original_source/crates/storage/src/lib.rs's PeerStatsRecord.
type PeerStats struct {
	mu    sync.Mutex
	byPeer map[common.PeerID]*peerSamples
}

type peerSamples struct {
	count int64
	sum   int64
	delays []int64 // kept sorted lazily at read time
}

// NewPeerStats returns an empty PeerStats accumulator.
func NewPeerStats() *PeerStats {
	return &PeerStats{byPeer: make(map[common.PeerID]*peerSamples)}
}

// Observe records a single propagation-delay sample (microseconds) for peer.
func (p *PeerStats) Observe(peer common.PeerID, delayMicros int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byPeer[peer]
	if !ok {
		s = &peerSamples{}
		p.byPeer[peer] = s
	}
	s.count++
	s.sum += delayMicros
	s.delays = append(s.delays, delayMicros)
}

// Snapshot is the point-in-time statistics for one peer.
type Snapshot struct {
	Count int64
	MeanMicros float64
	P99Micros  int64
}

// Snapshot returns the current statistics for peer, or the zero Snapshot if
// no samples have been observed.
func (p *PeerStats) Snapshot(peer common.PeerID) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byPeer[peer]
	if !ok || s.count == 0 {
		return Snapshot{}
	}
	sorted := append([]int64(nil), s.delays...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := nearestRankP99(len(sorted))
	return Snapshot{
		Count:      s.count,
		MeanMicros: float64(s.sum) / float64(s.count),
		P99Micros:  sorted[idx],
	}
}

// nearestRankP99 computes the nearest-rank index (0-based) for the 99th
// percentile over n sorted samples.
func nearestRankP99(n int) int {
	if n <= 1 {
		return 0
	}
	// The 1-based nearest rank is ceil(0.99*n), computed in integers.
	rank := (99*n + 99) / 100
	return rank - 1
}
