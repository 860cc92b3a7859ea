package contracts

import (
	"math"
	"sort"
	"time"
)

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"` // NaN when the bar exists but the close is missing
}

// PriceSeries is the ordered daily close history of one symbol
// ⭐ SSOT: S0 → S2 가격 시계열 전달 (날짜 오름차순, 중복 없음)
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// NewPriceSeries normalizes points into a valid series.
// Points are sorted by date ascending; on duplicate dates the later observation wins.
func NewPriceSeries(symbol string, points []PricePoint) PriceSeries {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	normalized := make([]PricePoint, 0, len(sorted))
	for _, p := range sorted {
		n := len(normalized)
		if n > 0 && sameDay(normalized[n-1].Date, p.Date) {
			normalized[n-1] = p
			continue
		}
		normalized = append(normalized, p)
	}

	return PriceSeries{Symbol: symbol, Points: normalized}
}

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// IsEmpty reports whether the series has no usable close at all
func (s PriceSeries) IsEmpty() bool {
	for _, p := range s.Points {
		if !math.IsNaN(p.Close) && !math.IsInf(p.Close, 0) {
			return false
		}
	}
	return true
}

// Latest returns the most recent point
func (s PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Since returns a copy restricted to points on or after from
func (s PriceSeries) Since(from time.Time) PriceSeries {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(from)
	})
	points := make([]PricePoint, len(s.Points)-idx)
	copy(points, s.Points[idx:])
	return PriceSeries{Symbol: s.Symbol, Points: points}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DataQualitySnapshot summarizes S0 coverage for one run
// ⭐ SSOT: S0 품질 스냅샷 (로그 및 RunResult 전달)
type DataQualitySnapshot struct {
	Date         time.Time          `json:"date"`
	TotalSymbols int                `json:"total_symbols"`
	ValidSymbols int                `json:"valid_symbols"` // fetched and long enough for every lookback
	Coverage     map[string]float64 `json:"coverage"`      // price, history, fresh
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	ShortHistory []string           `json:"short_history,omitempty"`
	Stale        []string           `json:"stale,omitempty"`
	Passed       bool               `json:"passed"`
}
