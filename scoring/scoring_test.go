package scoring

import (
	"testing"

	"github.com/luxfi/mempulse/common"
)

func h(b byte) common.Hash {
	var x common.Hash
	x[0] = b
	return x
}

func TestRankOrdersByScoreThenStrategyThenHash(t *testing.T) {
	in := []Candidate{
		{TxHash: h(2), Strategy: StrategyArb, Score: 10},
		{TxHash: h(1), Strategy: StrategyBackrun, Score: 10},
		{TxHash: h(3), Strategy: StrategySandwich, Score: 20},
		{TxHash: h(4), Strategy: StrategySandwich, Score: 5},
	}

	out := Rank(in, 10, 0)
	wantOrder := []common.Hash{h(3), h(1), h(2), h(4)}
	if len(out) != len(wantOrder) {
		t.Fatalf("expected %d candidates, got %d", len(wantOrder), len(out))
	}
	for i, w := range wantOrder {
		if out[i].TxHash != w {
			t.Fatalf("position %d: expected hash %v, got %v", i, w, out[i].TxHash)
		}
	}
}

func TestRankFiltersByMinScoreAndTruncates(t *testing.T) {
	in := []Candidate{
		{TxHash: h(1), Score: 100},
		{TxHash: h(2), Score: 50},
		{TxHash: h(3), Score: 1},
		{TxHash: h(4), Score: -5},
	}
	out := Rank(in, 2, 10)
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2 candidates, got %d", len(out))
	}
	if out[0].TxHash != h(1) || out[1].TxHash != h(2) {
		t.Fatalf("unexpected candidates after filter+truncate: %+v", out)
	}
}

func TestRankIsPermutationInvariant(t *testing.T) {
	base := []Candidate{
		{TxHash: h(1), Strategy: StrategySandwich, Score: 30},
		{TxHash: h(2), Strategy: StrategyArb, Score: 30},
		{TxHash: h(3), Strategy: StrategyBackrun, Score: 10},
	}
	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	var reference []Candidate
	for _, p := range perms {
		shuffled := make([]Candidate, len(base))
		for i, idx := range p {
			shuffled[i] = base[idx]
		}
		out := Rank(shuffled, 10, 0)
		if reference == nil {
			reference = out
			continue
		}
		for i := range reference {
			if reference[i].TxHash != out[i].TxHash {
				t.Fatalf("rank not permutation-invariant at %d", i)
			}
		}
	}
}

func TestConcreteStrategyFixturesScore(t *testing.T) {
	sw := SandwichCandidate{TxHash: h(1), VictimSlippage: 100, FrontrunGasCost: 30}
	if sw.Score().Score != 70 {
		t.Fatalf("unexpected sandwich score: %d", sw.Score().Score)
	}
	br := BackrunCandidate{TxHash: h(2), ResidualEV: 200, ExecutionGasCost: 50}
	if br.Score().Score != 150 {
		t.Fatalf("unexpected backrun score: %d", br.Score().Score)
	}
	arb := ArbCandidate{TxHash: h(3), SpreadBps: 5, NotionalScale: 20}
	if arb.Score().Score != 100 {
		t.Fatalf("unexpected arb score: %d", arb.Score().Score)
	}
}
