// Package storage implements the single-writer, many-reader record tables
// and WAL-backed durability described in spec.md §4.4, grounded on
// original_source/crates/storage/src/lib.rs for the record row shapes and
// crates/storage/src/wal.rs for segment rolling and recovery. The
// single-writer task itself — one goroutine behind a bounded channel — is
// new relative to the distillation's storage crate, which never implements
// that discipline; it is grounded on the teacher's pattern of a single
// internal goroutine owning mutation of a subpool in core/txpool.
package storage

import (
	"sync"

	"github.com/luxfi/mempulse/common"
)

// TxSeenRow records the first sighting of a hash.
type TxSeenRow struct {
	Hash     common.Hash
	SourceID common.SourceID
	SeqID    uint64
}

// TxFullRow records a decoded transaction.
type TxFullRow struct {
	Hash              common.Hash
	Sender            common.Address
	Nonce             uint64
	EffectiveGasPrice uint64
	SeqID             uint64
}

// TxFeaturesRow records the derived attributes a decoded transaction
// exposes to scoring/alerting beyond its raw fee fields — whether it has a
// recipient (false for contract creation) and a nonzero value transfer, per
// spec.md §3's TxDecoded attribute list (chain_id, recipient, value,
// gas_limit).
type TxFeaturesRow struct {
	Hash          common.Hash
	HasRecipient  bool
	HasValue      bool
	GasLimit      uint64
	SeqID         uint64
}

// TxLifecycleRow records one lifecycle transition for a hash.
type TxLifecycleRow struct {
	Hash   common.Hash
	Status string
	SeqID  uint64
}

// PeerStatsRow is a point-in-time propagation-delay snapshot for one peer.
type PeerStatsRow struct {
	Peer       common.PeerID
	Count      int64
	MeanMicros float64
	P99Micros  int64
}

// Tables is the in-memory record store. All mutation happens from the
// single writer goroutine (see Writer); reads take the RWMutex's read lock
// and copy out a Snapshot, never holding the lock across I/O.
type Tables struct {
	mu sync.RWMutex

	seen      []TxSeenRow
	full      []TxFullRow
	features  []TxFeaturesRow
	lifecycle []TxLifecycleRow
	peerStats []PeerStatsRow
}

// NewTables returns an empty Tables.
func NewTables() *Tables {
	return &Tables{}
}

func (t *Tables) appendSeen(row TxSeenRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = append(t.seen, row)
}

func (t *Tables) appendFull(row TxFullRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.full = append(t.full, row)
}

func (t *Tables) appendFeatures(row TxFeaturesRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.features = append(t.features, row)
}

func (t *Tables) appendLifecycle(row TxLifecycleRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lifecycle = append(t.lifecycle, row)
}

func (t *Tables) setPeerStats(rows []PeerStatsRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peerStats = rows
}

// Snapshot is a consistent point-in-time copy of every table.
type Snapshot struct {
	Seen      []TxSeenRow
	Full      []TxFullRow
	Features  []TxFeaturesRow
	Lifecycle []TxLifecycleRow
	PeerStats []PeerStatsRow
}

// Snapshot copies every table under a single read lock.
func (t *Tables) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Seen:      append([]TxSeenRow(nil), t.seen...),
		Full:      append([]TxFullRow(nil), t.full...),
		Features:  append([]TxFeaturesRow(nil), t.features...),
		Lifecycle: append([]TxLifecycleRow(nil), t.lifecycle...),
		PeerStats: append([]PeerStatsRow(nil), t.peerStats...),
	}
}
