package quality

import (
	"time"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/s0_data"
)

// QualityGate measures how usable the collected price data is.
// It never blocks a run; the orchestrator logs and reports the snapshot.
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage float64 `yaml:"min_price_coverage"` // 0.90
	StaleDays        int     `yaml:"stale_days"`         // 최신 종가가 이보다 오래되면 stale
}

// DefaultConfig returns the thresholds used by scans
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage: 0.90,
		StaleDays:        7,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check builds the coverage snapshot for the universe symbols.
// maxLookback is the longest lookback in trading days; asOf is the run date.
// ⭐ SSOT: S0 → S2 품질 검증
func (g *QualityGate) Check(store *s0_data.Store, symbols []string, maxLookback int, asOf time.Time) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		Date:         asOf,
		TotalSymbols: len(symbols),
		Coverage:     make(map[string]float64),
	}
	if len(symbols) == 0 {
		return snapshot
	}

	staleBefore := asOf.AddDate(0, 0, -g.config.StaleDays)

	var fetched, longEnough, fresh int
	for _, sym := range symbols {
		series, ok := store.Get(sym)
		if !ok || series.IsEmpty() {
			continue
		}
		fetched++

		// 가장 긴 기간 수익률 계산에 lookback+1 개 필요
		if series.Len() > maxLookback {
			longEnough++
		} else {
			snapshot.ShortHistory = append(snapshot.ShortHistory, sym)
		}

		if latest, ok := series.Latest(); ok && !latest.Date.Before(staleBefore) {
			fresh++
		} else {
			snapshot.Stale = append(snapshot.Stale, sym)
		}
	}

	total := float64(len(symbols))
	snapshot.Coverage["price"] = float64(fetched) / total
	snapshot.Coverage["history"] = float64(longEnough) / total
	snapshot.Coverage["fresh"] = float64(fresh) / total
	snapshot.ValidSymbols = longEnough
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.Coverage["price"] >= g.config.MinPriceCoverage

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"price":   0.50, // 가격 데이터 필수
		"history": 0.30, // 최장 기간 계산 가능 여부
		"fresh":   0.20,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
