// Package common defines the fixed-width identifier types shared by every
// mempulse package: transaction/block hashes, addresses, and the source and
// peer identifiers used to tag where an event entered the pipeline.
//
// These types intentionally carry zero dependency on chain-execution
// packages (no state, no EVM, no signature verification) — the pipeline
// only ever needs to compare, hash, and order them.
package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash is a 32-byte transaction or block hash.
type Hash [32]byte

// Address is a 20-byte account address.
type Address [20]byte

// BlockHash is a 32-byte block hash, kept as a distinct type from Hash so
// transaction hashes and block hashes can never be interchanged by mistake.
type BlockHash [32]byte

// SourceID identifies the logical feed an event originated from, e.g.
// "rpc-1" or "p2p-bootnode-3". Sources are operator-configured strings, not
// parsed from any wire format, so no validation is performed here.
type SourceID string

// PeerID identifies a p2p network peer. The p2p ingest lane keys its
// propagation-delay statistics by PeerID.
type PeerID string

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (b BlockHash) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

// ParseHash decodes a 0x-prefixed or bare hex string into a Hash. It is the
// only place the core ever does hex decoding outside the JSON boundary.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := decodeFixedHex(s, len(h))
	if err != nil {
		return Hash{}, err
	}
	copy(h[:], b)
	return h, nil
}

// ParseAddress decodes a 0x-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := decodeFixedHex(s, len(a))
	if err != nil {
		return Address{}, err
	}
	copy(a[:], b)
	return a, nil
}

// ParseBlockHash decodes a 0x-prefixed or bare hex string into a BlockHash.
func ParseBlockHash(s string) (BlockHash, error) {
	var bh BlockHash
	b, err := decodeFixedHex(s, len(bh))
	if err != nil {
		return BlockHash{}, err
	}
	copy(bh[:], b)
	return bh, nil
}

func decodeFixedHex(s string, width int) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	if len(b) != width {
		return nil, fmt.Errorf("invalid hex length: want %d bytes, got %d", width, len(b))
	}
	return b, nil
}

// MarshalText implements encoding.TextMarshaler so Hash round-trips through
// JSON as a 0x-prefixed hex string rather than a base64 byte array.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (b BlockHash) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BlockHash) UnmarshalText(text []byte) error {
	parsed, err := ParseBlockHash(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
