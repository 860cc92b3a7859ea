package contracts

import "time"

// Lookback is one comparison window measured in trading days
type Lookback struct {
	Label string `json:"label" yaml:"label"` // e.g. "30D"
	Days  int    `json:"days" yaml:"days"`
}

// DefaultLookbacks returns the 30/90/180 trading-day windows
func DefaultLookbacks() []Lookback {
	return []Lookback{
		{Label: "30D", Days: 30},
		{Label: "90D", Days: 90},
		{Label: "180D", Days: 180},
	}
}

// InstrumentRecord holds per-symbol computation results passed from S2 to S4/S5
// ⭐ SSOT: S2 → S4 → S5 종목별 RS 결과 전달
type InstrumentRecord struct {
	Symbol       string               `json:"symbol"`
	Order        int                  `json:"order"`         // position in the universe, tie-break key
	AbsReturns   map[string]NullFloat `json:"abs_returns"`   // label → %
	RelStrengths map[string]NullFloat `json:"rel_strengths"` // label → ratio vs benchmark
	Score        NullFloat            `json:"rs_score"`
	Rank         int                  `json:"rank"` // 1-based, 0 = unranked
}

// HasScore reports whether the record can be ranked
func (r *InstrumentRecord) HasScore() bool {
	return r.Score.Valid()
}

// IsTopRanked checks if the record is in top N ranks
func (r *InstrumentRecord) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}

// Clone returns a deep copy
func (r InstrumentRecord) Clone() InstrumentRecord {
	out := r
	out.AbsReturns = cloneValues(r.AbsReturns)
	out.RelStrengths = cloneValues(r.RelStrengths)
	return out
}

// BenchmarkRecord holds the benchmark's absolute returns (never ranked)
type BenchmarkRecord struct {
	Symbol     string               `json:"symbol"`
	AbsReturns map[string]NullFloat `json:"abs_returns"`
}

// Return returns the benchmark return for a lookback label
func (b *BenchmarkRecord) Return(label string) NullFloat {
	if b == nil {
		return None()
	}
	return b.AbsReturns[label]
}

// RankedTable is the final table handed to exporters
type RankedTable struct {
	RunID     string             `json:"run_id"`
	AsOf      time.Time          `json:"as_of"`
	Scope     int                `json:"scope"`
	Benchmark *BenchmarkRecord   `json:"benchmark,omitempty"`
	Lookbacks []Lookback         `json:"lookbacks"`
	Rows      []InstrumentRecord `json:"rows"`
}

// Columns returns the exported column contract, in order
// Ticker, AbsRet_<L>, RelStr_<L> ..., RS Score, Rank
func (t *RankedTable) Columns() []string {
	cols := make([]string, 0, 3+2*len(t.Lookbacks))
	cols = append(cols, ColumnTicker)
	for _, lb := range t.Lookbacks {
		cols = append(cols, AbsReturnColumn(lb.Label), RelStrengthColumn(lb.Label))
	}
	return append(cols, ColumnScore, ColumnRank)
}

// IsEmpty reports whether the table has no rows
func (t *RankedTable) IsEmpty() bool {
	return len(t.Rows) == 0
}

// Column names shared by every exporter
const (
	ColumnTicker = "Ticker"
	ColumnScore  = "RS Score"
	ColumnRank   = "Rank"
)

// AbsReturnColumn returns the absolute return column name for a lookback label
func AbsReturnColumn(label string) string {
	return "AbsRet_" + label
}

// RelStrengthColumn returns the relative strength column name for a lookback label
func RelStrengthColumn(label string) string {
	return "RelStr_" + label
}

func cloneValues(in map[string]NullFloat) map[string]NullFloat {
	if in == nil {
		return nil
	}
	out := make(map[string]NullFloat, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
