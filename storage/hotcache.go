package storage

import (
	"encoding/json"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/luxfi/mempulse/common"
)

// HotCache is a bounded, fixed-memory cache of recently decoded transactions
// keyed by hash, backed by github.com/VictoriaMetrics/fastcache (already a
// teacher dependency) instead of an unbounded map, so a read-heavy dashboard
// query path never competes with the writer goroutine for the Tables lock.
type HotCache struct {
	cache *fastcache.Cache
}

// NewHotCache returns a HotCache sized to hold approximately maxBytes of
// entries.
func NewHotCache(maxBytes int) *HotCache {
	return &HotCache{cache: fastcache.New(maxBytes)}
}

// Put caches row under hash.
func (h *HotCache) Put(hash common.Hash, row TxFullRow) {
	data, err := json.Marshal(row)
	if err != nil {
		return
	}
	h.cache.Set(hash[:], data)
}

// Get returns the cached row for hash, if present.
func (h *HotCache) Get(hash common.Hash) (TxFullRow, bool) {
	data, ok := h.cache.HasGet(nil, hash[:])
	if !ok {
		return TxFullRow{}, false
	}
	var row TxFullRow
	if err := json.Unmarshal(data, &row); err != nil {
		return TxFullRow{}, false
	}
	return row, true
}

// Reset clears the cache.
func (h *HotCache) Reset() {
	h.cache.Reset()
}
