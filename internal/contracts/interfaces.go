package contracts

import (
	"context"
	"time"
)

// UniverseResolver supplies the symbols to evaluate (S1)
// ⭐ SSOT: S1 유니버스 인터페이스
type UniverseResolver interface {
	Resolve(ctx context.Context, scope int) (*Universe, error)
}

// SeriesFetcher fetches the price series of one symbol (S0).
// Failures are returned as *FetchError.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, symbol string, from, to time.Time) (PriceSeries, error)
}

// BatchFetcher downloads many symbols in one call (S0).
// The returned errors map holds per-symbol failures.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, symbols []string, from, to time.Time) (map[string]PriceSeries, map[string]error, error)
}

// Exporter writes the ranked table (S5) and returns where it went
// ⭐ SSOT: S5 내보내기 인터페이스
type Exporter interface {
	Name() string
	Export(ctx context.Context, table *RankedTable) (string, error)
}
