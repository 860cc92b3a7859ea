package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsqm/internal/contracts"
)

func rec(symbol string, order int, score contracts.NullFloat) contracts.InstrumentRecord {
	return contracts.InstrumentRecord{
		Symbol:       symbol,
		Order:        order,
		AbsReturns:   map[string]contracts.NullFloat{"30D": contracts.Some(1)},
		RelStrengths: map[string]contracts.NullFloat{"30D": score},
		Score:        score,
	}
}

func symbols(records []contracts.InstrumentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Symbol
	}
	return out
}

func ranks(records []contracts.InstrumentRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Rank
	}
	return out
}

func TestRanker_Rank(t *testing.T) {
	input := []contracts.InstrumentRecord{
		rec("A", 0, contracts.Some(0.5)),
		rec("B", 1, contracts.None()),
		rec("C", 2, contracts.Some(2.0)),
		rec("D", 3, contracts.Some(-1.0)),
		rec("E", 4, contracts.Some(0.5)), // ties with A
	}

	result := NewRanker(0, nil).Rank(input)

	assert.Equal(t, []string{"C", "A", "E", "D"}, symbols(result.Full))
	assert.Equal(t, []int{1, 2, 3, 4}, ranks(result.Full))
	assert.Equal(t, []string{"B"}, result.Unscored)
	assert.Len(t, result.Top, 4, "topK 0 keeps all")
}

func TestRanker_TiesKeepInputOrder(t *testing.T) {
	input := make([]contracts.InstrumentRecord, 0, 6)
	for i, sym := range []string{"Z", "Y", "X", "W", "V", "U"} {
		input = append(input, rec(sym, i, contracts.Some(1.0)))
	}

	result := NewRanker(DefaultTopK, nil).Rank(input)
	assert.Equal(t, []string{"Z", "Y", "X", "W", "V", "U"}, symbols(result.Full), "not alphabetical")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ranks(result.Full), "distinct consecutive ranks")
}

func TestRanker_DoesNotMutateInput(t *testing.T) {
	input := []contracts.InstrumentRecord{
		rec("A", 0, contracts.Some(1)),
		rec("B", 1, contracts.Some(3)),
	}

	result := NewRanker(1, nil).Rank(input)
	require.Len(t, result.Top, 1)

	assert.Equal(t, "A", input[0].Symbol)
	assert.Equal(t, 0, input[0].Rank)
	assert.Equal(t, 0, input[1].Rank)

	result.Full[0].RelStrengths["30D"] = contracts.None()
	assert.True(t, input[1].RelStrengths["30D"].Valid(), "rows are deep copies")
}

func TestRanker_Idempotent(t *testing.T) {
	input := []contracts.InstrumentRecord{
		rec("A", 0, contracts.Some(0.2)),
		rec("B", 1, contracts.Some(0.9)),
		rec("C", 2, contracts.Some(0.2)),
		rec("D", 3, contracts.Some(0.4)),
	}

	ranker := NewRanker(0, nil)
	first := ranker.Rank(input)
	second := ranker.Rank(input)
	assert.Equal(t, first.Full, second.Full)

	again := ranker.Rank(first.Full)
	assert.Equal(t, symbols(first.Full), symbols(again.Full))
	assert.Equal(t, ranks(first.Full), ranks(again.Full))
}

func TestRanker_Truncation(t *testing.T) {
	input := make([]contracts.InstrumentRecord, 20)
	for i := range input {
		input[i] = rec(fmt.Sprintf("S%02d", i), i, contracts.Some(float64(i)))
	}

	result := NewRanker(15, nil).Rank(input)

	require.Len(t, result.Full, 20)
	require.Len(t, result.Top, 15)
	for i, r := range result.Top {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, "S19", result.Top[0].Symbol)
	assert.Equal(t, "S05", result.Top[14].Symbol)
	assert.Equal(t, 16, result.Full[15].Rank)
}

func TestRanker_Empty(t *testing.T) {
	result := NewRanker(15, nil).Rank(nil)
	assert.Empty(t, result.Full)
	assert.Empty(t, result.Top)

	result = NewRanker(15, nil).Rank([]contracts.InstrumentRecord{rec("A", 0, contracts.None())})
	assert.Empty(t, result.Full)
	assert.Equal(t, []string{"A"}, result.Unscored)
}

func TestTop(t *testing.T) {
	ranked := []contracts.InstrumentRecord{rec("A", 0, contracts.Some(3)), rec("B", 1, contracts.Some(2))}

	tests := []struct {
		k    int
		want int
	}{
		{-1, 2}, {0, 2}, {1, 1}, {2, 2}, {5, 2},
	}
	for _, tt := range tests {
		assert.Len(t, Top(ranked, tt.k), tt.want, "k=%d", tt.k)
	}
}
