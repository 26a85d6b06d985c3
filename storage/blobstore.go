package storage

import (
	"fmt"

	"github.com/holiman/billy"

	"github.com/luxfi/mempulse/common"
)

// RawBlobStore persists raw transaction payload bytes on disk in an
// append-only, slot-indexed file, grounded on go-ethereum's blobpool use of
// github.com/holiman/billy (already a teacher dependency) for exactly this
// shape: small-to-medium binary blobs keyed by an opaque slot id, not a
// general key-value store. The mempool core only ever needs the hash -> raw
// bytes mapping for re-export/debugging; hot-path decode never reads back
// through this store.
type RawBlobStore struct {
	store billy.Database
	index map[common.Hash]uint64
}

// sizeBucketSlotter buckets raw transaction payloads into fixed-size slots,
// the same strategy blobpool.go's internal slotter uses for blob sidecars.
type sizeBucketSlotter struct{}

func (sizeBucketSlotter) Slot(size uint32) uint32 {
	switch {
	case size <= 2048:
		return 2048
	case size <= 16384:
		return 16384
	case size <= 131072:
		return 131072
	default:
		return 1 << 20
	}
}

// OpenRawBlobStore opens (creating if necessary) a billy-backed blob store
// rooted at dir.
func OpenRawBlobStore(dir string) (*RawBlobStore, error) {
	index := make(map[common.Hash]uint64)
	store, err := billy.Open(billy.Options{Path: dir}, sizeBucketSlotter{}, nil)
	if err != nil {
		return nil, fmt.Errorf("open raw blob store at %s: %w", dir, err)
	}
	return &RawBlobStore{store: store, index: index}, nil
}

// Put persists raw under hash, overwriting any previous entry for hash.
func (s *RawBlobStore) Put(hash common.Hash, raw []byte) error {
	slot, err := s.store.Put(raw)
	if err != nil {
		return fmt.Errorf("put raw blob for %s: %w", hash, err)
	}
	if old, ok := s.index[hash]; ok {
		_ = s.store.Delete(old)
	}
	s.index[hash] = slot
	return nil
}

// Get returns the raw bytes stored under hash, if any.
func (s *RawBlobStore) Get(hash common.Hash) ([]byte, bool, error) {
	slot, ok := s.index[hash]
	if !ok {
		return nil, false, nil
	}
	raw, err := s.store.Get(slot)
	if err != nil {
		return nil, false, fmt.Errorf("get raw blob for %s: %w", hash, err)
	}
	return raw, true, nil
}

// Close closes the underlying billy database.
func (s *RawBlobStore) Close() error {
	return s.store.Close()
}
