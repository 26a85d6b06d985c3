// Package txdecode normalizes a raw, wire-format transaction into the fee
// shape the rest of the pipeline reasons about, grounded on
// original_source/crates/ingest/src/tx_decode.rs: TxType, RawTxInput,
// NormalizedFees, DecodedTx, effective_gas_price, and the per-type fee-field
// validation rules.
package txdecode

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/mempulse/common"
	"github.com/luxfi/mempulse/errs"
)

// Type enumerates the transaction fee models this pipeline understands.
type Type uint8

const (
	// TypeLegacy covers both pre-EIP-2718 legacy transactions and EIP-2930
	// access-list transactions: both price gas with a single gas_price
	// field and carry no priority/base-fee split.
	TypeLegacy Type = 0
	// Type1559 is an EIP-1559 dynamic-fee transaction.
	Type1559 Type = 2
	// Type4844 is an EIP-4844 blob transaction, a 1559 fee model plus a
	// blob-specific max fee per blob gas.
	Type4844 Type = 3
)

// RawTxInput is the wire-format shape this package decodes: every fee field
// arrives as an optional hex string, and which ones are required depends on
// TxType. chain_id, recipient and value are optional per spec.md §3 (a
// contract-creation transaction has no recipient; chain_id and value may be
// absent on some wire sources); gas_limit is copied through as given and is
// not validated (zero is accepted).
type RawTxInput struct {
	Hash             string
	Sender           string
	Nonce            uint64
	TxType           Type
	ChainID          *uint64
	Recipient        *string
	Value            *string
	GasLimit         uint64
	GasPrice         *string
	MaxFeePerGas     *string
	MaxPriorityFee   *string
	MaxFeePerBlobGas *string
}

// NormalizedFees is the fee shape every downstream consumer reasons about,
// regardless of which wire type the transaction arrived as.
type NormalizedFees struct {
	GasPrice         *uint256.Int
	MaxFeePerGas     *uint256.Int
	MaxPriorityFee   *uint256.Int
	MaxFeePerBlobGas *uint256.Int
}

// DecodedTx is the normalized transaction handed to the mempool state
// machine and scoring/alerting layers. ChainID, Recipient and Value are
// nil when the source transaction omitted them (recipient is always nil
// for contract creation).
type DecodedTx struct {
	Hash      common.Hash
	Sender    common.Address
	Nonce     uint64
	TxType    Type
	ChainID   *uint64
	Recipient *common.Address
	Value     *uint256.Int
	GasLimit  uint64
	Fees      NormalizedFees
}

// DecodeError reports why a raw transaction failed to decode. It always
// wraps one of the errs package's decode sentinels, so callers can classify
// with errors.Is without string matching.
type DecodeError struct {
	Field string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode field %q: %v", e.Field, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// DecodeRawTransaction validates and normalizes raw into a DecodedTx. It is
// a pure function: no I/O, no clock, no side effects, so the ingest engines
// can call it inline on the hot path.
func DecodeRawTransaction(raw RawTxInput) (*DecodedTx, error) {
	hash, err := common.ParseHash(raw.Hash)
	if err != nil {
		return nil, &DecodeError{Field: "hash", Cause: fmt.Errorf("%w: %v", errs.ErrInvalidHex, err)}
	}
	sender, err := common.ParseAddress(raw.Sender)
	if err != nil {
		return nil, &DecodeError{Field: "sender", Cause: fmt.Errorf("%w: %v", errs.ErrInvalidHex, err)}
	}

	fees, err := normalizeFees(raw)
	if err != nil {
		return nil, err
	}

	var recipient *common.Address
	if raw.Recipient != nil {
		addr, err := common.ParseAddress(*raw.Recipient)
		if err != nil {
			return nil, &DecodeError{Field: "recipient", Cause: fmt.Errorf("%w: %v", errs.ErrInvalidHex, err)}
		}
		recipient = &addr
	}

	var value *uint256.Int
	if raw.Value != nil {
		v, err := parseHexUint256(*raw.Value)
		if err != nil {
			return nil, &DecodeError{Field: "value", Cause: fmt.Errorf("%w: %v", errs.ErrInvalidHex, err)}
		}
		value = v
	}

	return &DecodedTx{
		Hash:      hash,
		Sender:    sender,
		Nonce:     raw.Nonce,
		TxType:    raw.TxType,
		ChainID:   raw.ChainID,
		Recipient: recipient,
		Value:     value,
		GasLimit:  raw.GasLimit,
		Fees:      fees,
	}, nil
}

func normalizeFees(raw RawTxInput) (NormalizedFees, error) {
	switch raw.TxType {
	case TypeLegacy:
		gasPrice, err := requireHexUint(raw.GasPrice, "gas_price")
		if err != nil {
			return NormalizedFees{}, err
		}
		return NormalizedFees{GasPrice: gasPrice}, nil

	case Type1559:
		maxFee, err := requireHexUint(raw.MaxFeePerGas, "max_fee_per_gas")
		if err != nil {
			return NormalizedFees{}, err
		}
		maxPriority, err := requireHexUint(raw.MaxPriorityFee, "max_priority_fee_per_gas")
		if err != nil {
			return NormalizedFees{}, err
		}
		return NormalizedFees{MaxFeePerGas: maxFee, MaxPriorityFee: maxPriority}, nil

	case Type4844:
		maxFee, err := requireHexUint(raw.MaxFeePerGas, "max_fee_per_gas")
		if err != nil {
			return NormalizedFees{}, err
		}
		maxPriority, err := requireHexUint(raw.MaxPriorityFee, "max_priority_fee_per_gas")
		if err != nil {
			return NormalizedFees{}, err
		}
		maxBlobFee, err := requireHexUint(raw.MaxFeePerBlobGas, "max_fee_per_blob_gas")
		if err != nil {
			return NormalizedFees{}, err
		}
		return NormalizedFees{MaxFeePerGas: maxFee, MaxPriorityFee: maxPriority, MaxFeePerBlobGas: maxBlobFee}, nil

	default:
		return NormalizedFees{}, &DecodeError{Field: "tx_type", Cause: fmt.Errorf("%w: %d", errs.ErrUnknownTxType, raw.TxType)}
	}
}

func requireHexUint(field *string, name string) (*uint256.Int, error) {
	if field == nil {
		return nil, &DecodeError{Field: name, Cause: errs.ErrMissingFeeField}
	}
	v, err := parseHexUint256(*field)
	if err != nil {
		return nil, &DecodeError{Field: name, Cause: fmt.Errorf("%w: %v", errs.ErrInvalidHex, err)}
	}
	return v, nil
}

func parseHexUint256(s string) (*uint256.Int, error) {
	v, err := uint256.FromHex(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// EffectiveGasPrice computes the price actually paid per unit of gas given a
// block's base fee, per spec.md's fee-model decoding rules:
// legacy/2930 pay GasPrice outright; 1559/4844 pay
// min(max_fee, base_fee + max_priority).
func EffectiveGasPrice(fees NormalizedFees, baseFee *uint256.Int) (*uint256.Int, error) {
	if fees.GasPrice != nil {
		return fees.GasPrice, nil
	}
	if fees.MaxFeePerGas == nil || fees.MaxPriorityFee == nil {
		return nil, errs.ErrMissingFeeField
	}
	if baseFee == nil {
		return nil, fmt.Errorf("effective gas price requires a base fee for dynamic-fee transactions")
	}
	priorityPlusBase := new(uint256.Int).Add(baseFee, fees.MaxPriorityFee)
	if priorityPlusBase.Cmp(fees.MaxFeePerGas) > 0 {
		return new(uint256.Int).Set(fees.MaxFeePerGas), nil
	}
	return priorityPlusBase, nil
}
