// Package scoring implements the candidate ordering contract, grounded on
// original_source/crates/searcher/src/{lib,scoring,strategies}.rs. The
// ordering contract itself — sort by (score desc, strategy asc, tx_hash
// asc), filter by minimum score, truncate to a maximum count — is the
// in-scope, tested surface; the scoring heuristics that assign a candidate
// its score remain an external collaborator, per spec.md §1.
package scoring

import (
	"sort"

	"github.com/luxfi/mempulse/common"
)

// StrategyKind is a closed set of searcher strategy tags, grounded on
// strategies.rs's StrategyKind enum. SPEC_FULL supplements the three
// concrete strategies (spec.md scopes in only the ordering contract) as
// illustrative fixtures the ordering-contract tests rank — not a scoring
// service — per spec.md §9's instruction not to reach for open-ended plugin
// loading.
type StrategyKind uint8

const (
	StrategySandwich StrategyKind = iota
	StrategyBackrun
	StrategyArb
)

func (k StrategyKind) String() string {
	switch k {
	case StrategySandwich:
		return "Sandwich"
	case StrategyBackrun:
		return "Backrun"
	case StrategyArb:
		return "Arb"
	default:
		return "Unknown"
	}
}

// Candidate is one scored opportunity awaiting ranking.
type Candidate struct {
	TxHash   common.Hash
	Strategy StrategyKind
	Score    int64
}

// Rank sorts candidates by the ordering contract — score descending,
// strategy ascending, tx_hash ascending — drops anything below minScore, and
// truncates to maxCandidates. It is a pure function: the only place this
// package touches ordering semantics.
func Rank(candidates []Candidate, maxCandidates int, minScore int64) []Candidate {
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= minScore {
			filtered = append(filtered, c)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Strategy != b.Strategy {
			return a.Strategy < b.Strategy
		}
		return common.CompareHash(a.TxHash, b.TxHash) < 0
	})

	if maxCandidates > 0 && len(filtered) > maxCandidates {
		filtered = filtered[:maxCandidates]
	}
	return filtered
}

// SandwichCandidate, BackrunCandidate and ArbCandidate are the three
// concrete strategy fixtures from strategies.rs, kept as a closed tagged
// dispatch: Score implements each strategy's exact formula so the ordering
// tests can rank realistic, not synthetic, inputs.
type SandwichCandidate struct {
	TxHash          common.Hash
	VictimSlippage  int64 // basis points
	FrontrunGasCost int64
}

func (c SandwichCandidate) Score() Candidate {
	return Candidate{TxHash: c.TxHash, Strategy: StrategySandwich, Score: c.VictimSlippage - c.FrontrunGasCost}
}

type BackrunCandidate struct {
	TxHash      common.Hash
	ResidualEV  int64
	ExecutionGasCost int64
}

func (c BackrunCandidate) Score() Candidate {
	return Candidate{TxHash: c.TxHash, Strategy: StrategyBackrun, Score: c.ResidualEV - c.ExecutionGasCost}
}

type ArbCandidate struct {
	TxHash        common.Hash
	SpreadBps     int64
	NotionalScale int64
}

func (c ArbCandidate) Score() Candidate {
	return Candidate{TxHash: c.TxHash, Strategy: StrategyArb, Score: c.SpreadBps * c.NotionalScale}
}
