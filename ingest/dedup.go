package ingest

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/luxfi/mempulse/common"
)

// DedupCache is a bounded cache of recently-seen transaction hashes. A hash
// present in the cache means a subsequent sighting is a duplicate and must
// be dropped rather than re-ingested.
//
// original_source/crates/ingest/src/p2p.rs hand-rolls a FIFO ring buffer for
// this; here we wire the teacher's already-required
// github.com/hashicorp/golang-lru instead of re-implementing eviction by
// hand. Lookups use Peek, which never refreshes an entry's recency, and each
// hash is added exactly once, so when the cache is full the hash first seen
// longest ago is evicted — the same FIFO order as the original's ring buffer.
type DedupCache struct {
	cache *lru.Cache
}

// NewDedupCache returns a DedupCache holding at most capacity hashes.
func NewDedupCache(capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = 1
	}
	c, err := lru.New(capacity)
	if err != nil {
		// lru.New only errors when size <= 0, already guarded above.
		panic(err)
	}
	return &DedupCache{cache: c}
}

// SeenBefore reports whether hash is already in the cache, recording
// nowUnixMS as its first-seen time if not. It is the single entry point:
// callers never call Contains and Add separately, which would race under
// concurrent ingest. The second return value is always the hash's
// first-seen time — nowUnixMS itself on first sighting, the earlier
// recorded time on a duplicate — so callers can compute a propagation
// delay (now - first_seen) without a second lookup.
func (d *DedupCache) SeenBefore(hash common.Hash, nowUnixMS int64) (bool, int64) {
	if v, ok := d.cache.Peek(hash); ok {
		return true, v.(int64)
	}
	d.cache.Add(hash, nowUnixMS)
	return false, nowUnixMS
}

// Len returns the number of hashes currently cached.
func (d *DedupCache) Len() int {
	return d.cache.Len()
}
