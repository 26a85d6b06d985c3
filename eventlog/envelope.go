// Package eventlog defines the canonical event envelope that every other
// subsystem (ingest, mempool/replay, storage, broadcast) produces or
// consumes, grounded on original_source/crates/event-log/src/lib.rs:
// EventEnvelope, the tagged EventPayload variants, and the deterministic
// ordering contract keyed on (seq_id, source_id, primary_hash).
package eventlog

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/mempulse/common"
)

// Kind tags which payload variant an envelope carries.
type Kind string

const (
	KindTxSeen             Kind = "TxSeen"
	KindTxDecoded          Kind = "TxDecoded"
	KindTxDropped          Kind = "TxDropped"
	KindTxReplaced         Kind = "TxReplaced"
	KindTxConfirmedProv    Kind = "TxConfirmedProvisional"
	KindTxConfirmedFinal   Kind = "TxConfirmedFinal"
	KindReorg              Kind = "Reorg"
	KindPeerPropagation    Kind = "PeerPropagation"
)

// Envelope is the canonical, source-agnostic record every subsystem agrees
// on. SeqID is assigned once, monotonically, by the storage writer when it
// turns an AppendPayload into an Envelope (tests and fixtures may build
// Envelopes with their own SeqIDs); every downstream consumer treats it as
// opaque and never reassigns it. PrimaryHash is derived from Payload (via
// PrimaryHashOf) and is not part of the wire format; it is recomputed on
// UnmarshalJSON so callers never have to keep it in sync by hand.
type Envelope struct {
	SeqID          uint64          `json:"seq_id"`
	IngestTSUnixMS int64           `json:"ingest_ts_unix_ms"`
	IngestTSMonoNS int64           `json:"ingest_ts_mono_ns"`
	SourceID       common.SourceID `json:"source_id"`
	PrimaryHash    common.Hash     `json:"-"`
	Kind           Kind            `json:"-"`
	Payload        Payload         `json:"-"`
}

// AppendPayload is an unsequenced event waiting for the storage writer to
// assign it a seq_id via AppendPayload's wire-op namesake in spec.md §4.4:
// the global storage writer is the single component that turns one of these
// into an Envelope, by calling next_monotonic() and stamping the result.
// Producers (ingest engines, the replay harness re-numbering a fixture)
// build one of these instead of assigning SeqID themselves.
type AppendPayload struct {
	SourceID       common.SourceID
	IngestTSMonoNS int64
	IngestTSUnixMS int64
	Kind           Kind
	Payload        Payload
}

// Payload is implemented by every concrete event payload variant. It exists
// so Envelope.Payload can hold any of them while still round-tripping
// through JSON without an intermediate any/map[string]any representation.
type Payload interface {
	payloadKind() Kind
}

type TxSeen struct {
	Hash common.Hash `json:"hash"`
}

func (TxSeen) payloadKind() Kind { return KindTxSeen }

// TxDecoded carries spec.md §3's required TxDecoded attributes: hash,
// tx_type, sender, nonce, optional chain_id, optional recipient, optional
// value, gas limit, and a gas price. The ingest engine fills
// EffectiveGasPrice with gas_price for legacy transactions and with
// max_fee_per_gas for dynamic-fee ones, since no base fee is known at
// ingest; it is not txdecode.EffectiveGasPrice's base-fee-adjusted value.
type TxDecoded struct {
	Hash              common.Hash     `json:"hash"`
	TxType            uint8           `json:"tx_type"`
	Sender            common.Address  `json:"sender"`
	Nonce             uint64          `json:"nonce"`
	ChainID           *uint64         `json:"chain_id,omitempty"`
	Recipient         *common.Address `json:"recipient,omitempty"`
	Value             *uint256.Int    `json:"value,omitempty"`
	GasLimit          uint64          `json:"gas_limit"`
	EffectiveGasPrice uint64          `json:"effective_gas_price"`
}

func (TxDecoded) payloadKind() Kind { return KindTxDecoded }

type TxDropped struct {
	Hash   common.Hash `json:"hash"`
	Reason string      `json:"reason"`
}

func (TxDropped) payloadKind() Kind { return KindTxDropped }

type TxReplaced struct {
	OldHash common.Hash `json:"old_hash"`
	NewHash common.Hash `json:"new_hash"`
	Sender  common.Address `json:"sender"`
	Nonce   uint64      `json:"nonce"`
}

func (TxReplaced) payloadKind() Kind { return KindTxReplaced }

type TxConfirmedProvisional struct {
	Hash      common.Hash      `json:"hash"`
	BlockHash common.BlockHash `json:"block_hash"`
}

func (TxConfirmedProvisional) payloadKind() Kind { return KindTxConfirmedProv }

type TxConfirmedFinal struct {
	Hash      common.Hash      `json:"hash"`
	BlockHash common.BlockHash `json:"block_hash"`
}

func (TxConfirmedFinal) payloadKind() Kind { return KindTxConfirmedFinal }

type Reorg struct {
	OldBlockHash common.BlockHash `json:"old_block_hash"`
	NewBlockHash common.BlockHash `json:"new_block_hash"`
}

func (Reorg) payloadKind() Kind { return KindReorg }

type PeerPropagation struct {
	Hash       common.Hash  `json:"hash"`
	Peer       common.PeerID `json:"peer"`
	DelayMicro int64        `json:"delay_micros"`
}

func (PeerPropagation) payloadKind() Kind { return KindPeerPropagation }

// Compare implements the deterministic event ordering contract: primary key
// seq_id, then source_id, then primary_hash, all ascending. Two envelopes
// that differ only in wall-clock or payload content still compare equal
// under this contract if their (seq_id, source_id, primary_hash) triples
// match — callers that need total uniqueness must ensure seq_id assignment
// is itself unique.
func Compare(a, b Envelope) int {
	if a.SeqID != b.SeqID {
		if a.SeqID < b.SeqID {
			return -1
		}
		return 1
	}
	if a.SourceID != b.SourceID {
		if a.SourceID < b.SourceID {
			return -1
		}
		return 1
	}
	return common.CompareHash(a.PrimaryHash, b.PrimaryHash)
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b Envelope) bool {
	return Compare(a, b) < 0
}

// SortDeterministic sorts envelopes in place by the deterministic ordering
// contract. It uses a stable insertion sort so permutation-invariance
// tests can feed shuffled fixtures and assert on the sorted output.
func SortDeterministic(envs []Envelope) {
	// Simple, allocation-free insertion sort: event batches replayed by this
	// module are bounded (test fixtures, single-replay windows), and the
	// slice is typically nearly-sorted already since seq_id is assigned in
	// ingest order.
	for i := 1; i < len(envs); i++ {
		for j := i; j > 0 && Less(envs[j], envs[j-1]); j-- {
			envs[j], envs[j-1] = envs[j-1], envs[j]
		}
	}
}

// payloadWire is the nested {type, data} shape spec.md §6 pins for the
// envelope's payload field, in place of flattening kind and payload as
// sibling keys.
type payloadWire struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// envelopeWire is the on-the-wire JSON shape spec.md §3/§6 pins exactly:
// {seq_id, ingest_ts_unix_ms, ingest_ts_mono_ns, source_id, payload:{type,data}}.
// primary_hash is deliberately absent — it is derived from payload, not an
// independent field, so it never needs to be kept consistent by a wire
// producer.
type envelopeWire struct {
	SeqID          uint64          `json:"seq_id"`
	IngestTSUnixMS int64           `json:"ingest_ts_unix_ms"`
	IngestTSMonoNS int64           `json:"ingest_ts_mono_ns"`
	SourceID       common.SourceID `json:"source_id"`
	Payload        payloadWire     `json:"payload"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	dataBytes, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for kind %s: %w", e.Kind, err)
	}
	w := envelopeWire{
		SeqID:          e.SeqID,
		IngestTSUnixMS: e.IngestTSUnixMS,
		IngestTSMonoNS: e.IngestTSMonoNS,
		SourceID:       e.SourceID,
		Payload:        payloadWire{Type: e.Kind, Data: dataBytes},
	}
	return json.Marshal(w)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	payload, err := decodePayload(w.Payload.Type, w.Payload.Data)
	if err != nil {
		return err
	}
	*e = Envelope{
		SeqID:          w.SeqID,
		IngestTSUnixMS: w.IngestTSUnixMS,
		IngestTSMonoNS: w.IngestTSMonoNS,
		SourceID:       w.SourceID,
		Kind:           w.Payload.Type,
		Payload:        payload,
		PrimaryHash:    PrimaryHashOf(payload),
	}
	return nil
}

// PrimaryHashOf returns the transaction or block hash a payload is primarily
// about, used both to populate Envelope.PrimaryHash on unmarshal and by
// the storage writer when it sequences an AppendPayload into an envelope.
// Payloads with no single natural hash (a reorg straddles two block hashes, neither of which is a
// tx hash) return the zero hash.
func PrimaryHashOf(p Payload) common.Hash {
	switch v := p.(type) {
	case TxSeen:
		return v.Hash
	case TxDecoded:
		return v.Hash
	case TxDropped:
		return v.Hash
	case TxReplaced:
		return v.NewHash
	case TxConfirmedProvisional:
		return v.Hash
	case TxConfirmedFinal:
		return v.Hash
	case PeerPropagation:
		return v.Hash
	default:
		return common.Hash{}
	}
}

func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindTxSeen:
		var p TxSeen
		return p, json.Unmarshal(raw, &p)
	case KindTxDecoded:
		var p TxDecoded
		return p, json.Unmarshal(raw, &p)
	case KindTxDropped:
		var p TxDropped
		return p, json.Unmarshal(raw, &p)
	case KindTxReplaced:
		var p TxReplaced
		return p, json.Unmarshal(raw, &p)
	case KindTxConfirmedProv:
		var p TxConfirmedProvisional
		return p, json.Unmarshal(raw, &p)
	case KindTxConfirmedFinal:
		var p TxConfirmedFinal
		return p, json.Unmarshal(raw, &p)
	case KindReorg:
		var p Reorg
		return p, json.Unmarshal(raw, &p)
	case KindPeerPropagation:
		var p PeerPropagation
		return p, json.Unmarshal(raw, &p)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", errUnknownKind, kind)
	}
}

var errUnknownKind = fmt.Errorf("unknown event kind")
