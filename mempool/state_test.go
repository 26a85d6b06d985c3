package mempool

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/eventlog"
)

func hashB(b byte) common.Hash {
	var h common.Hash
	h[0] = b
	return h
}

func addrB(b byte) common.Address {
	var a common.Address
	a[0] = b
	return a
}

func TestReplacementMarksOldHashReplaced(t *testing.T) {
	s := NewState()
	sender := addrB(1)

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(1), Sender: sender, Nonce: 0}})
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(2), Sender: sender, Nonce: 0}})

	oldEntry, ok := s.Entry(hashB(1))
	if !ok || oldEntry.Status != StatusReplaced {
		t.Fatalf("expected old hash Replaced, got %+v ok=%v", oldEntry, ok)
	}
	newEntry, ok := s.Entry(hashB(2))
	if !ok || newEntry.Status != StatusPending {
		t.Fatalf("expected new hash Pending, got %+v ok=%v", newEntry, ok)
	}
}

func TestReplacementIgnoresSameHashResubmission(t *testing.T) {
	s := NewState()
	sender := addrB(1)
	decoded := eventlog.TxDecoded{Hash: hashB(1), Sender: sender, Nonce: 0}

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: decoded})
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: decoded})

	entry, ok := s.Entry(hashB(1))
	if !ok || entry.Status != StatusPending {
		t.Fatalf("resubmitting the same hash must not replace itself, got %+v", entry)
	}
}

func TestDroppedClearsSenderNonceOnlyIfStillPointing(t *testing.T) {
	s := NewState()
	sender := addrB(1)

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(1), Sender: sender, Nonce: 0}})
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(2), Sender: sender, Nonce: 0}})
	// hashB(1) is now Replaced; dropping it must not clear the index, which
	// now points at hashB(2).
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDropped, Payload: eventlog.TxDropped{Hash: hashB(1)}})

	if s.senderNonceIndex[common.SenderNonce{Sender: sender, Nonce: 0}] != hashB(2) {
		t.Fatalf("dropping a stale hash must not clear the current sender/nonce slot")
	}
}

func TestExplicitTxReplacedMarksOldHashAndInsertsNewHash(t *testing.T) {
	s := NewState()
	sender := addrB(1)

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(1), Sender: sender, Nonce: 0}})
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxReplaced, Payload: eventlog.TxReplaced{OldHash: hashB(1), NewHash: hashB(2), Sender: sender, Nonce: 0}})

	oldEntry, ok := s.Entry(hashB(1))
	if !ok || oldEntry.Status != StatusReplaced {
		t.Fatalf("expected old hash Replaced, got %+v ok=%v", oldEntry, ok)
	}
	newEntry, ok := s.Entry(hashB(2))
	if !ok || newEntry.Status != StatusPending {
		t.Fatalf("expected new hash Pending, got %+v ok=%v", newEntry, ok)
	}
	if s.senderNonceIndex[common.SenderNonce{Sender: sender, Nonce: 0}] != hashB(2) {
		t.Fatalf("expected sender/nonce index to point at the new hash")
	}
}

func TestReorgReopensMatchingBlockOnly(t *testing.T) {
	s := NewState()
	sender := addrB(1)
	oldBlock := common.BlockHash{0xAA}
	otherBlock := common.BlockHash{0xBB}

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(1), Sender: sender, Nonce: 0}})
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxConfirmedFinal, Payload: eventlog.TxConfirmedFinal{Hash: hashB(1), BlockHash: oldBlock}})

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxDecoded, Payload: eventlog.TxDecoded{Hash: hashB(2), Sender: addrB(2), Nonce: 0}})
	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindTxConfirmedFinal, Payload: eventlog.TxConfirmedFinal{Hash: hashB(2), BlockHash: otherBlock}})

	s.ApplyEvent(eventlog.Envelope{Kind: eventlog.KindReorg, Payload: eventlog.Reorg{OldBlockHash: oldBlock, NewBlockHash: common.BlockHash{0xCC}}})

	entry1, _ := s.Entry(hashB(1))
	if entry1.Status != StatusPending {
		t.Fatalf("expected hash in reorged block to reopen to Pending, got %s\nfull state: %s", entry1.Status, spew.Sdump(s.entries))
	}
	entry2, _ := s.Entry(hashB(2))
	if entry2.Status != StatusConfirmedFinal {
		t.Fatalf("expected hash in unrelated block to remain ConfirmedFinal, got %s\nfull state: %s", entry2.Status, spew.Sdump(s.entries))
	}
}
