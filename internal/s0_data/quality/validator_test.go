package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/s0_data"
)

func makeSeries(symbol string, n int, last time.Time) contracts.PriceSeries {
	points := make([]contracts.PricePoint, n)
	for i := 0; i < n; i++ {
		points[i] = contracts.PricePoint{Date: last.AddDate(0, 0, i-n+1), Close: 100 + float64(i)}
	}
	return contracts.NewPriceSeries(symbol, points)
}

func TestQualityGate_Check(t *testing.T) {
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	store := s0_data.NewStore()
	store.Put(makeSeries("FULL.NS", 200, asOf))
	store.Put(makeSeries("SHORT.NS", 50, asOf))
	store.Put(makeSeries("OLD.NS", 200, asOf.AddDate(0, 0, -30)))
	store.Put(contracts.PriceSeries{Symbol: "NAN.NS", Points: []contracts.PricePoint{
		{Date: asOf, Close: math.NaN()},
	}})

	gate := NewQualityGate(DefaultConfig())
	snapshot := gate.Check(store, []string{"FULL.NS", "SHORT.NS", "OLD.NS", "NAN.NS", "MISSING.NS"}, 180, asOf)
	require.NotNil(t, snapshot)

	assert.Equal(t, 5, snapshot.TotalSymbols)
	assert.Equal(t, 2, snapshot.ValidSymbols)
	assert.InDelta(t, 0.6, snapshot.Coverage["price"], 1e-9)
	assert.InDelta(t, 0.4, snapshot.Coverage["history"], 1e-9)
	assert.InDelta(t, 0.4, snapshot.Coverage["fresh"], 1e-9)
	assert.Equal(t, []string{"SHORT.NS"}, snapshot.ShortHistory)
	assert.Equal(t, []string{"OLD.NS"}, snapshot.Stale)
	assert.False(t, snapshot.Passed, "60% price coverage is below 90%")

	t.Logf("Quality Snapshot: total=%d, valid=%d, score=%.4f",
		snapshot.TotalSymbols, snapshot.ValidSymbols, snapshot.QualityScore)
}

func TestQualityGate_CheckEmpty(t *testing.T) {
	gate := NewQualityGate(DefaultConfig())
	snapshot := gate.Check(s0_data.NewStore(), nil, 180, time.Now())

	assert.Equal(t, 0, snapshot.TotalSymbols)
	assert.Equal(t, 0.0, snapshot.QualityScore)
	assert.False(t, snapshot.Passed)
}

func TestQualityGate_calculateScore(t *testing.T) {
	gate := &QualityGate{
		config: Config{},
	}

	tests := []struct {
		name     string
		coverage map[string]float64
		wantMin  float64
		wantMax  float64
	}{
		{
			name:     "perfect coverage",
			coverage: map[string]float64{"price": 1.0, "history": 1.0, "fresh": 1.0},
			wantMin:  0.99,
			wantMax:  1.01,
		},
		{
			name:     "good coverage",
			coverage: map[string]float64{"price": 0.95, "history": 0.90, "fresh": 0.85},
			wantMin:  0.85,
			wantMax:  0.95,
		},
		{
			name:     "poor coverage",
			coverage: map[string]float64{"price": 0.60, "history": 0.40, "fresh": 0.30},
			wantMin:  0.45,
			wantMax:  0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := gate.calculateScore(tt.coverage)
			assert.GreaterOrEqual(t, score, tt.wantMin)
			assert.LessOrEqual(t, score, tt.wantMax)
		})
	}
}
