package selection

import (
	"sort"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/pkg/logger"
)

// DefaultTopK is the default watchlist length
const DefaultTopK = 15

// Ranker implements S4: ordering by RS Score
// ⭐ SSOT: S4 랭킹 로직은 여기서만
type Ranker struct {
	topK   int
	logger *logger.Logger
}

// RankResult holds the full ranked table and its top-K prefix
type RankResult struct {
	Full     []contracts.InstrumentRecord // every scored record, Rank 1..M
	Top      []contracts.InstrumentRecord // first K of Full
	Unscored []string                     // symbols excluded for lack of a score, input order
}

// NewRanker creates a new ranker. topK <= 0 keeps every ranked record.
func NewRanker(topK int, log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{
		topK:   topK,
		logger: log.WithField("module", "selection"),
	}
}

// Rank sorts scored records by RS Score descending and assigns Rank = position.
// Exact ties keep their input order, so callers pass records in universe order.
// Ranks are unique and gapless; the input slice is not modified.
func (r *Ranker) Rank(records []contracts.InstrumentRecord) RankResult {
	result := RankResult{}

	ranked := make([]contracts.InstrumentRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasScore() {
			result.Unscored = append(result.Unscored, rec.Symbol)
			continue
		}
		ranked = append(ranked, rec.Clone())
	}

	// Sort by RS Score (descending), stable for ties
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.OrElse(0) > ranked[j].Score.OrElse(0)
	})

	// Assign ranks
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	result.Full = ranked
	result.Top = Top(ranked, r.topK)

	fields := map[string]interface{}{
		"ranked":   len(ranked),
		"unscored": len(result.Unscored),
		"top_k":    len(result.Top),
	}
	if len(ranked) > 0 {
		fields["top_symbol"] = ranked[0].Symbol
		fields["top_score"] = ranked[0].Score.OrElse(0)
	}
	r.logger.WithFields(fields).Info("Ranking completed")

	return result
}

// Top returns the first k ranked records (all when k <= 0 or k >= len)
func Top(ranked []contracts.InstrumentRecord, k int) []contracts.InstrumentRecord {
	if k <= 0 || k >= len(ranked) {
		return ranked
	}
	return ranked[:k]
}
