package contracts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankedTable_Columns(t *testing.T) {
	table := RankedTable{Lookbacks: DefaultLookbacks()}

	want := []string{
		"Ticker",
		"AbsRet_30D", "RelStr_30D",
		"AbsRet_90D", "RelStr_90D",
		"AbsRet_180D", "RelStr_180D",
		"RS Score", "Rank",
	}
	assert.Equal(t, want, table.Columns())
}

func TestInstrumentRecord_Clone(t *testing.T) {
	orig := InstrumentRecord{
		Symbol:       "INFY.NS",
		AbsReturns:   map[string]NullFloat{"30D": Some(5)},
		RelStrengths: map[string]NullFloat{"30D": Some(1)},
		Score:        Some(1),
	}

	cp := orig.Clone()
	cp.AbsReturns["30D"] = None()
	cp.Rank = 3

	assert.True(t, orig.AbsReturns["30D"].Valid())
	assert.Equal(t, 0, orig.Rank)
	assert.True(t, cp.IsTopRanked(3))
	assert.False(t, cp.IsTopRanked(2))
}

func TestBenchmarkRecord_Return(t *testing.T) {
	var nilBench *BenchmarkRecord
	assert.False(t, nilBench.Return("30D").Valid())

	b := &BenchmarkRecord{AbsReturns: map[string]NullFloat{"30D": Some(5)}}
	assert.Equal(t, Some(5), b.Return("30D"))
	assert.False(t, b.Return("90D").Valid())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", NewTransientError("A", errors.New("timeout")), true},
		{"permanent", NewPermanentError("A", errors.New("not found")), false},
		{"wrapped permanent", fmt.Errorf("attempt 1: %w", NewPermanentError("A", errors.New("x"))), false},
		{"unclassified", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestUniverse_Validate(t *testing.T) {
	var nilUniverse *Universe
	assert.ErrorIs(t, nilUniverse.Validate(), ErrEmptyUniverse)
	assert.ErrorIs(t, (&Universe{}).Validate(), ErrEmptyUniverse)

	u := &Universe{Symbols: []string{"A.NS", "B.NS"}}
	assert.NoError(t, u.Validate())
	assert.Equal(t, 1, u.IndexOf("B.NS"))
	assert.Equal(t, -1, u.IndexOf("C.NS"))
	assert.True(t, u.Contains("A.NS"))
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"50", 50, false},
		{"nifty100", 100, false},
		{" Nifty200 ", 200, false},
		{"500", 500, false},
		{"75", 0, true},
		{"", 0, true},
		{"fifty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
