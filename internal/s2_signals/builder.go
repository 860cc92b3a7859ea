package s2_signals

import (
	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/pkg/logger"
)

// SeriesSource looks up collected price series (s0_data.Store satisfies it)
type SeriesSource interface {
	Get(symbol string) (contracts.PriceSeries, bool)
}

// Builder turns price series into InstrumentRecords
// ⭐ SSOT: S2 수익률 → 상대강도 → RS Score 오케스트레이션은 여기서만
type Builder struct {
	logger *logger.Logger
}

// NewBuilder creates a new record builder
func NewBuilder(log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{logger: log.WithField("module", "s2_signals")}
}

// Build computes one record per universe symbol that has a series, in universe order.
// The benchmark is never part of the records even if it is listed in the universe.
// If the benchmark series is missing every relative strength is unavailable.
func (b *Builder) Build(
	source SeriesSource,
	universe *contracts.Universe,
	benchmark string,
	lookbacks []contracts.Lookback,
) ([]contracts.InstrumentRecord, *contracts.BenchmarkRecord) {
	bench := &contracts.BenchmarkRecord{
		Symbol:     benchmark,
		AbsReturns: make(map[string]contracts.NullFloat, len(lookbacks)),
	}

	benchSeries, ok := source.Get(benchmark)
	if !ok {
		b.logger.WithField("benchmark", benchmark).Warn("Benchmark series missing, relative strength unavailable")
	}
	for _, lb := range lookbacks {
		bench.AbsReturns[lb.Label] = ComputeReturn(benchSeries, lb.Days)
	}

	if universe == nil {
		return nil, bench
	}

	records := make([]contracts.InstrumentRecord, 0, len(universe.Symbols))
	missing, scored := 0, 0
	for order, sym := range universe.Symbols {
		if sym == benchmark {
			continue
		}
		series, ok := source.Get(sym)
		if !ok {
			missing++
			continue
		}

		record := b.buildRecord(sym, order, series, bench, lookbacks)
		if record.HasScore() {
			scored++
		}
		records = append(records, record)
	}

	b.logger.WithFields(map[string]interface{}{
		"universe": len(universe.Symbols),
		"records":  len(records),
		"scored":   scored,
		"missing":  missing,
	}).Info("Relative strength computed")

	return records, bench
}

// buildRecord computes returns, ratios and the score of one symbol
func (b *Builder) buildRecord(
	symbol string,
	order int,
	series contracts.PriceSeries,
	bench *contracts.BenchmarkRecord,
	lookbacks []contracts.Lookback,
) contracts.InstrumentRecord {
	record := contracts.InstrumentRecord{
		Symbol:       symbol,
		Order:        order,
		AbsReturns:   make(map[string]contracts.NullFloat, len(lookbacks)),
		RelStrengths: make(map[string]contracts.NullFloat, len(lookbacks)),
	}

	ratios := make([]contracts.NullFloat, 0, len(lookbacks))
	for _, lb := range lookbacks {
		ret := ComputeReturn(series, lb.Days)
		// 벤치마크도 동일 기간 수익률이 있어야 RS 계산
		rs := relativeStrength(ret, bench.Return(lb.Label))

		record.AbsReturns[lb.Label] = ret
		record.RelStrengths[lb.Label] = rs
		ratios = append(ratios, rs)
	}
	record.Score = ComputeScore(ratios)

	return record
}
