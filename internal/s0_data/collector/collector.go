package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/s0_data"
	"github.com/wonny/rsqm/pkg/logger"
)

// Fetch sources recorded in FetchResult
const (
	SourceBatch      = "batch"
	SourceIndividual = "individual"
)

// Collector orchestrates price collection for one run
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	fetcher contracts.SeriesFetcher
	batch   contracts.BatchFetcher // optional
	retry   s0_data.RetryPolicy
	logger  *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers      int  // Number of concurrent workers
	BatchEnabled bool // 배치 다운로드 우선 시도
}

// NewCollector creates a new Collector instance.
// batch may be nil; individual fetches always use fetcher.
func NewCollector(
	fetcher contracts.SeriesFetcher,
	batch contracts.BatchFetcher,
	retry s0_data.RetryPolicy,
	log *logger.Logger,
) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{
		fetcher: fetcher,
		batch:   batch,
		retry:   retry,
		logger:  log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Symbol   string
	Points   int
	Attempts int
	Source   string
	Error    error
}

// Outcome is everything S0 hands to the compute stage
type Outcome struct {
	Store     *s0_data.Store
	Results   []FetchResult
	Skipped   map[string]string // symbol → reason
	BatchUsed bool
}

// Collect fetches every symbol plus the benchmark and waits for all of them.
// Per-symbol failures never abort the run; they end up in Outcome.Skipped.
// Only context cancellation is returned as an error.
func (c *Collector) Collect(ctx context.Context, symbols []string, benchmark string, from, to time.Time, cfg Config) (*Outcome, error) {
	all := withBenchmark(symbols, benchmark)

	outcome := &Outcome{
		Store:   s0_data.NewStore(),
		Results: make([]FetchResult, 0, len(all)),
		Skipped: make(map[string]string),
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols":   len(all),
		"benchmark": benchmark,
		"from":      from.Format("2006-01-02"),
		"to":        to.Format("2006-01-02"),
		"workers":   cfg.Workers,
		"batch":     cfg.BatchEnabled,
	}).Info("Starting price collection")

	// 1. Batch first
	pending := all
	if cfg.BatchEnabled && c.batch != nil {
		if rest, ok := c.collectBatch(ctx, all, benchmark, from, to, outcome); ok {
			pending = rest
			outcome.BatchUsed = true
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Individual fetch with retry for whatever is still missing
	if len(pending) > 0 {
		for _, r := range c.fetchAll(ctx, pending, from, to, cfg.Workers, outcome.Store) {
			outcome.Results = append(outcome.Results, r)
			if r.Error != nil {
				outcome.Skipped[r.Symbol] = r.Error.Error()
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"fetched":    outcome.Store.Len(),
		"skipped":    len(outcome.Skipped),
		"batch_used": outcome.BatchUsed,
	}).Info("Price collection completed")

	return outcome, nil
}

// collectBatch stores batch results and returns the symbols still to fetch.
// 벤치마크가 없으면 배치 결과 전체를 버리고 false 반환
func (c *Collector) collectBatch(ctx context.Context, all []string, benchmark string, from, to time.Time, outcome *Outcome) ([]string, bool) {
	series, failed, err := c.batch.FetchBatch(ctx, all, from, to)
	if err != nil {
		c.logger.WithError(err).Warn("Batch download failed, falling back to individual fetch")
		return nil, false
	}

	if b, ok := series[benchmark]; !ok || b.IsEmpty() {
		c.logger.WithField("benchmark", benchmark).
			Warn("Benchmark missing from batch, falling back to individual fetch")
		return nil, false
	}

	var rest []string
	for _, sym := range all {
		s, ok := series[sym]
		if !ok || s.IsEmpty() {
			if e := failed[sym]; e != nil {
				c.logger.WithError(e).WithField("symbol", sym).Debug("Missing from batch")
			}
			rest = append(rest, sym)
			continue
		}
		outcome.Store.Put(s)
		outcome.Results = append(outcome.Results, FetchResult{
			Symbol:   sym,
			Points:   s.Len(),
			Attempts: 1,
			Source:   SourceBatch,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"received": len(all) - len(rest),
		"missing":  len(rest),
	}).Info("Batch download accepted")

	return rest, true
}

// fetchAll fans symbols out to a worker pool and waits for every result.
// Successful series go straight into store (Store is safe for concurrent use).
func (c *Collector) fetchAll(ctx context.Context, symbols []string, from, to time.Time, workers int, store *s0_data.Store) []FetchResult {
	if workers < 1 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	results := make([]FetchResult, 0, len(symbols))
	resultCh := make(chan FetchResult, len(symbols))
	symbolCh := make(chan string, len(symbols))

	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.priceWorker(ctx, workerID, symbolCh, resultCh, from, to, store)
		}(i)
	}

	// Send symbols to workers
	for _, sym := range symbols {
		symbolCh <- sym
	}
	close(symbolCh)

	// Wait for all workers to complete
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		results = append(results, r)
	}

	return results
}

// priceWorker fetches one symbol at a time with the retry policy
func (c *Collector) priceWorker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- FetchResult, from, to time.Time, store *s0_data.Store) {
	for sym := range symbolCh {
		if ctx.Err() != nil {
			resultCh <- FetchResult{Symbol: sym, Source: SourceIndividual, Error: ctx.Err()}
			continue
		}

		var series contracts.PriceSeries
		attempts, err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
			s, err := c.fetcher.FetchSeries(ctx, sym, from, to)
			if err != nil {
				if attempt < c.retry.MaxAttempts && contracts.IsTransient(err) {
					c.logger.WithError(err).WithFields(map[string]interface{}{
						"worker":  workerID,
						"symbol":  sym,
						"attempt": attempt,
					}).Warn("Fetch failed, retrying")
				}
				return err
			}
			if s.IsEmpty() {
				return contracts.NewPermanentError(sym, fmt.Errorf("empty series"))
			}
			series = s
			return nil
		})

		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker":   workerID,
				"symbol":   sym,
				"attempts": attempts,
			}).Warn("Symbol skipped")
			resultCh <- FetchResult{Symbol: sym, Attempts: attempts, Source: SourceIndividual, Error: err}
			continue
		}

		// 배치와 동일한 심볼명으로 저장
		series.Symbol = sym
		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": sym,
			"count":  series.Len(),
		}).Debug("Fetched prices")

		store.Put(series)
		resultCh <- FetchResult{Symbol: sym, Points: series.Len(), Attempts: attempts, Source: SourceIndividual}
	}
}

// withBenchmark returns symbols with the benchmark appended once
func withBenchmark(symbols []string, benchmark string) []string {
	all := make([]string, 0, len(symbols)+1)
	seen := make(map[string]bool, len(symbols)+1)
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			all = append(all, s)
		}
	}
	if benchmark != "" && !seen[benchmark] {
		all = append(all, benchmark)
	}
	return all
}
