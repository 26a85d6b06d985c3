// Package mempool implements the mempool lifecycle state machine, grounded
// on original_source/crates/replay/src/mempool_state.rs: every transaction
// moves through Pending -> {Replaced, Dropped, ConfirmedProvisional ->
// ConfirmedFinal}, with reorg rollback reopening confirmed entries
// (provisional or final) whose block hash matches the reorg's
// old_block_hash.
package mempool

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/eventlog"
)

// Status is a transaction's current lifecycle state.
type Status uint8

const (
	StatusPending Status = iota
	StatusReplaced
	StatusDropped
	StatusConfirmedProvisional
	StatusConfirmedFinal
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusReplaced:
		return "Replaced"
	case StatusDropped:
		return "Dropped"
	case StatusConfirmedProvisional:
		return "ConfirmedProvisional"
	case StatusConfirmedFinal:
		return "ConfirmedFinal"
	default:
		return "Unknown"
	}
}

// Entry is the current record for one transaction hash.
type Entry struct {
	Hash      common.Hash
	Sender    common.Address
	Nonce     uint64
	Status    Status
	BlockHash common.BlockHash // set once ConfirmedProvisional or later
}

// Transition records one state change applied by ApplyEvent, for callers
// that want to observe exactly what happened rather than only the resulting
// State.
type Transition struct {
	Hash common.Hash
	From Status
	To   Status
}

// State is the full mempool lifecycle state machine.
type State struct {
	entries          map[common.Hash]*Entry
	senderNonceIndex map[common.SenderNonce]common.Hash
	// confirmations indexes, per block hash, the set of transaction hashes
	// confirmed (provisionally or finally) in that block — grounded on the
	// teacher's use of mapset.Set wherever core/txpool needs a hash set.
	confirmations map[common.BlockHash]mapset.Set[common.Hash]
}

// NewState returns an empty mempool state machine.
func NewState() *State {
	return &State{
		entries:          make(map[common.Hash]*Entry),
		senderNonceIndex: make(map[common.SenderNonce]common.Hash),
		confirmations:    make(map[common.BlockHash]mapset.Set[common.Hash]),
	}
}

// ApplyEvent folds one event envelope into the state machine, returning the
// transitions it caused (zero, one, or — for a replacement — two).
func (s *State) ApplyEvent(env eventlog.Envelope) []Transition {
	switch p := env.Payload.(type) {
	case eventlog.TxDecoded:
		return s.applyDecoded(p)
	case eventlog.TxDropped:
		return s.applyDropped(p)
	case eventlog.TxReplaced:
		return s.applyReplaced(p)
	case eventlog.TxConfirmedProvisional:
		return s.applyConfirmed(p.Hash, p.BlockHash, StatusConfirmedProvisional)
	case eventlog.TxConfirmedFinal:
		return s.applyConfirmed(p.Hash, p.BlockHash, StatusConfirmedFinal)
	case eventlog.Reorg:
		return s.applyReorg(p)
	default:
		return nil
	}
}

func (s *State) applyDecoded(p eventlog.TxDecoded) []Transition {
	var transitions []Transition

	key := common.SenderNonce{Sender: p.Sender, Nonce: p.Nonce}
	if existingHash, ok := s.senderNonceIndex[key]; ok && existingHash != p.Hash {
		if existing, ok := s.entries[existingHash]; ok && existing.Status == StatusPending {
			existing.Status = StatusReplaced
			transitions = append(transitions, Transition{Hash: existingHash, From: StatusPending, To: StatusReplaced})
		}
	}

	s.entries[p.Hash] = &Entry{Hash: p.Hash, Sender: p.Sender, Nonce: p.Nonce, Status: StatusPending}
	s.senderNonceIndex[key] = p.Hash
	transitions = append(transitions, Transition{Hash: p.Hash, From: StatusPending, To: StatusPending})
	return transitions
}

func (s *State) applyDropped(p eventlog.TxDropped) []Transition {
	entry, ok := s.entries[p.Hash]
	if !ok {
		return nil
	}
	from := entry.Status
	entry.Status = StatusDropped

	key := common.SenderNonce{Sender: entry.Sender, Nonce: entry.Nonce}
	if s.senderNonceIndex[key] == p.Hash {
		delete(s.senderNonceIndex, key)
	}

	return []Transition{{Hash: p.Hash, From: from, To: StatusDropped}}
}

// applyReplaced handles an explicit TxReplaced event: it sets OldHash's
// entry to Replaced (if still Pending) and ensures NewHash has a Pending
// entry, mirroring applyDecoded's implicit same-sender/nonce replacement
// detection but driven by an event that names both hashes directly rather
// than inferred from the sender/nonce index.
func (s *State) applyReplaced(p eventlog.TxReplaced) []Transition {
	var transitions []Transition

	if entry, ok := s.entries[p.OldHash]; ok && entry.Status == StatusPending {
		transitions = append(transitions, Transition{Hash: p.OldHash, From: entry.Status, To: StatusReplaced})
		entry.Status = StatusReplaced
	}

	key := common.SenderNonce{Sender: p.Sender, Nonce: p.Nonce}
	if _, ok := s.entries[p.NewHash]; !ok {
		s.entries[p.NewHash] = &Entry{Hash: p.NewHash, Sender: p.Sender, Nonce: p.Nonce, Status: StatusPending}
		transitions = append(transitions, Transition{Hash: p.NewHash, From: StatusPending, To: StatusPending})
	}
	s.senderNonceIndex[key] = p.NewHash

	return transitions
}

func (s *State) applyConfirmed(hash common.Hash, blockHash common.BlockHash, to Status) []Transition {
	entry, ok := s.entries[hash]
	if !ok {
		entry = &Entry{Hash: hash}
		s.entries[hash] = entry
	}
	from := entry.Status
	entry.Status = to
	entry.BlockHash = blockHash

	set, ok := s.confirmations[blockHash]
	if !ok {
		set = mapset.NewSet[common.Hash]()
		s.confirmations[blockHash] = set
	}
	set.Add(hash)

	return []Transition{{Hash: hash, From: from, To: to}}
}

func (s *State) applyReorg(p eventlog.Reorg) []Transition {
	set, ok := s.confirmations[p.OldBlockHash]
	if !ok {
		return nil
	}
	var transitions []Transition
	for hash := range set.Iter() {
		entry, ok := s.entries[hash]
		if !ok || entry.BlockHash != p.OldBlockHash {
			continue
		}
		from := entry.Status
		entry.Status = StatusPending
		entry.BlockHash = common.BlockHash{}
		transitions = append(transitions, Transition{Hash: hash, From: from, To: StatusPending})

		key := common.SenderNonce{Sender: entry.Sender, Nonce: entry.Nonce}
		s.senderNonceIndex[key] = hash
	}
	delete(s.confirmations, p.OldBlockHash)
	return transitions
}

// Entry returns the current entry for hash, if any.
func (s *State) Entry(hash common.Hash) (Entry, bool) {
	e, ok := s.entries[hash]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// PendingHashes returns the set of hashes currently in StatusPending. Used
// by replay.LifecycleCheckpoints and by replay.ParityReport to compare
// pending-hash sets between replay modes.
func (s *State) PendingHashes() map[common.Hash]struct{} {
	out := make(map[common.Hash]struct{})
	for h, e := range s.entries {
		if e.Status == StatusPending {
			out[h] = struct{}{}
		}
	}
	return out
}

// Len returns the number of tracked entries.
func (s *State) Len() int {
	return len(s.entries)
}
