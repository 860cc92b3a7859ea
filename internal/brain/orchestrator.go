package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/s0_data/collector"
	"github.com/wonny/rsqm/internal/s0_data/quality"
	"github.com/wonny/rsqm/internal/s2_signals"
	"github.com/wonny/rsqm/internal/selection"
	"github.com/wonny/rsqm/internal/strategyconfig"
	"github.com/wonny/rsqm/pkg/logger"
)

// PriceCollector gathers the price series of a run (S0)
type PriceCollector interface {
	Collect(ctx context.Context, symbols []string, benchmark string, from, to time.Time, cfg collector.Config) (*collector.Outcome, error)
}

// Orchestrator coordinates the pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
// S1 → S0 → S2 → S4 → S5
type Orchestrator struct {
	// Stage components
	resolver      contracts.UniverseResolver
	collector     PriceCollector
	qualityGate   *quality.QualityGate
	signalBuilder *s2_signals.Builder
	exporters     []contracts.Exporter

	logger *logger.Logger
	now    func() time.Time
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	RunID        string // generated when empty
	Date         time.Time
	Scope        int
	Benchmark    string
	Lookbacks    []contracts.Lookback
	TopK         int
	HistoryDays  int // calendar days of history to fetch
	Workers      int
	BatchEnabled bool
	DryRun       bool // If true, skip export stage
}

// RunConfigFrom derives a RunConfig from the strategy file
func RunConfigFrom(cfg *strategyconfig.Config) RunConfig {
	return RunConfig{
		Scope:        cfg.Universe.Scope,
		Benchmark:    cfg.Benchmark.Symbol,
		Lookbacks:    cfg.Lookbacks,
		TopK:         cfg.Ranking.TopK,
		HistoryDays:  cfg.Fetch.HistoryDays,
		Workers:      cfg.Fetch.Workers,
		BatchEnabled: cfg.Fetch.BatchEnabled,
	}
}

// RunResult holds the results of a complete pipeline run.
// A nil RunResult means the run never executed.
type RunResult struct {
	RunID           string                         `json:"run_id"`
	Date            time.Time                      `json:"date"`
	Scope           int                            `json:"scope"`
	Status          contracts.RunStatus            `json:"status"`
	Error           string                         `json:"error,omitempty"`
	CompletedStages []string                       `json:"completed_stages"`
	Universe        *contracts.Universe            `json:"universe,omitempty"`
	Skipped         map[string]string              `json:"skipped"` // symbol → reason
	BatchUsed       bool                           `json:"batch_used"`
	QualitySnapshot *contracts.DataQualitySnapshot `json:"quality,omitempty"`
	Benchmark       *contracts.BenchmarkRecord     `json:"benchmark,omitempty"`
	Full            *contracts.RankedTable         `json:"full,omitempty"` // pre-truncation
	Top             *contracts.RankedTable         `json:"top,omitempty"`  // exported
	Exported        map[string]string              `json:"exported,omitempty"` // format → location
	StartedAt       time.Time                      `json:"started_at"`
	FinishedAt      time.Time                      `json:"finished_at"`
	Duration        time.Duration                  `json:"duration"`
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	resolver contracts.UniverseResolver,
	priceCollector PriceCollector,
	qualityGate *quality.QualityGate,
	signalBuilder *s2_signals.Builder,
	exporters []contracts.Exporter,
	log *logger.Logger,
) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if qualityGate == nil {
		qualityGate = quality.NewQualityGate(quality.DefaultConfig())
	}
	if signalBuilder == nil {
		signalBuilder = s2_signals.NewBuilder(log)
	}
	return &Orchestrator{
		resolver:      resolver,
		collector:     priceCollector,
		qualityGate:   qualityGate,
		signalBuilder: signalBuilder,
		exporters:     exporters,
		logger:        log.WithField("module", "brain"),
		now:           time.Now,
	}
}

// Run executes resolve → fetch → compute → rank → export.
//
// Universe faults return a failed result and ErrEmptyUniverse / ErrUniverseUnavailable.
// When no symbol survives the fetch the result is complete with Status empty
// and the error is ErrNoUsableSymbols. Nothing is exported on any fault.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := o.now()
	if config.RunID == "" {
		config.RunID = GenerateRunID()
	}
	if config.Date.IsZero() {
		config.Date = startTime
	}
	if len(config.Lookbacks) == 0 {
		config.Lookbacks = contracts.DefaultLookbacks()
	}

	result := &RunResult{
		RunID:           config.RunID,
		Date:            config.Date,
		Scope:           config.Scope,
		CompletedStages: make([]string, 0, len(contracts.AllStages())),
		Skipped:         make(map[string]string),
		Exported:        make(map[string]string),
		StartedAt:       startTime,
	}

	log := o.logger.WithField("run_id", config.RunID)
	log.WithFields(map[string]interface{}{
		"date":      config.Date.Format("2006-01-02"),
		"scope":     config.Scope,
		"benchmark": config.Benchmark,
		"top_k":     config.TopK,
		"dry_run":   config.DryRun,
	}).Info("Starting pipeline run")

	// S1: Universe
	universe, err := o.resolver.Resolve(ctx, config.Scope)
	if err == nil {
		err = universe.Validate()
	}
	if err != nil {
		return o.fail(result, contracts.StageUniverse, err)
	}
	result.Universe = universe
	o.complete(result, contracts.StageUniverse)

	// S0: Price data
	from := config.Date.AddDate(0, 0, -config.HistoryDays)
	outcome, err := o.collector.Collect(ctx, universe.Symbols, config.Benchmark, from, config.Date, collector.Config{
		Workers:      config.Workers,
		BatchEnabled: config.BatchEnabled,
	})
	if err != nil {
		return o.fail(result, contracts.StageData, err)
	}
	result.Skipped = outcome.Skipped
	result.BatchUsed = outcome.BatchUsed
	result.QualitySnapshot = o.qualityGate.Check(outcome.Store, universe.Symbols, maxLookback(config.Lookbacks), config.Date)
	o.complete(result, contracts.StageData)

	log.WithFields(map[string]interface{}{
		"quality_score": result.QualitySnapshot.QualityScore,
		"coverage":      result.QualitySnapshot.Coverage["price"],
		"passed":        result.QualitySnapshot.Passed,
		"skipped":       len(outcome.Skipped),
	}).Info("S0 completed")

	if !outcome.Store.Has(config.Benchmark) {
		log.WithField("benchmark", config.Benchmark).Warn("Benchmark unavailable, no relative strength can be computed")
	}

	if usable(outcome, universe, config.Benchmark) == 0 {
		result.Status = contracts.RunStatusEmpty
		result.Full = o.table(config, nil, nil)
		result.Top = o.table(config, nil, nil)
		o.finish(result)
		log.WithField("skipped", len(outcome.Skipped)).Warn("No usable symbols after fetch")
		return result, contracts.ErrNoUsableSymbols
	}

	// S2: Returns / relative strength
	records, bench := o.signalBuilder.Build(outcome.Store, universe, config.Benchmark, config.Lookbacks)
	result.Benchmark = bench
	o.complete(result, contracts.StageSignals)

	// S4: Ranking
	ranked := selection.NewRanker(config.TopK, o.logger).Rank(records)
	result.Full = o.table(config, bench, ranked.Full)
	result.Top = o.table(config, bench, ranked.Top)
	o.complete(result, contracts.StageRanker)

	result.Status = contracts.RunStatusCompleted
	if result.Full.IsEmpty() {
		result.Status = contracts.RunStatusEmpty
	}

	// S5: Export (skip if dry run)
	if config.DryRun {
		log.Info("Skipping S5:Export (dry run mode)")
	} else {
		if err := o.export(ctx, result); err != nil {
			return o.fail(result, contracts.StageExport, err)
		}
		o.complete(result, contracts.StageExport)
	}

	o.finish(result)

	log.WithFields(map[string]interface{}{
		"status":   result.Status,
		"ranked":   len(result.Full.Rows),
		"exported": len(result.Exported),
		"duration": result.Duration.Seconds(),
	}).Info("Pipeline run completed")

	return result, nil
}

// export hands the top table to every exporter; all are attempted
func (o *Orchestrator) export(ctx context.Context, result *RunResult) error {
	var errs []error
	for _, e := range o.exporters {
		location, err := e.Export(ctx, result.Top)
		if err != nil {
			o.logger.WithError(err).WithField("format", e.Name()).Error("Export failed")
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		result.Exported[e.Name()] = location
		o.logger.WithFields(map[string]interface{}{
			"format":   e.Name(),
			"location": location,
		}).Info("Exported watchlist")
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) table(config RunConfig, bench *contracts.BenchmarkRecord, rows []contracts.InstrumentRecord) *contracts.RankedTable {
	if rows == nil {
		rows = []contracts.InstrumentRecord{}
	}
	return &contracts.RankedTable{
		RunID:     config.RunID,
		AsOf:      config.Date,
		Scope:     config.Scope,
		Benchmark: bench,
		Lookbacks: config.Lookbacks,
		Rows:      rows,
	}
}

func (o *Orchestrator) complete(result *RunResult, stage contracts.Stage) {
	result.CompletedStages = append(result.CompletedStages, stage.String())
}

func (o *Orchestrator) finish(result *RunResult) {
	result.FinishedAt = o.now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
}

func (o *Orchestrator) fail(result *RunResult, stage contracts.Stage, err error) (*RunResult, error) {
	wrapped := fmt.Errorf("%s failed: %w", stage.ShortName(), err)
	result.Status = contracts.RunStatusFailed
	result.Error = wrapped.Error()
	o.finish(result)

	o.logger.WithError(err).WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"stage":  stage.String(),
	}).Error("Pipeline run failed")

	return result, wrapped
}

// usable counts universe symbols (benchmark excluded) that have a series
func usable(outcome *collector.Outcome, universe *contracts.Universe, benchmark string) int {
	n := 0
	for _, sym := range universe.Symbols {
		if sym != benchmark && outcome.Store.Has(sym) {
			n++
		}
	}
	return n
}

func maxLookback(lookbacks []contracts.Lookback) int {
	max := 0
	for _, lb := range lookbacks {
		if lb.Days > max {
			max = lb.Days
		}
	}
	return max
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return uuid.NewString()
}
