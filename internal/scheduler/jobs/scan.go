package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/pkg/logger"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// ScanJob runs the watchlist pipeline for one scope on a schedule
// ⭐ SSOT: 정기 워치리스트 스캔은 이 Job에서만
type ScanJob struct {
	runner   Runner
	base     brain.RunConfig
	schedule string
	onResult func(*brain.RunResult)
	logger   *logger.Logger
	now      func() time.Time
}

// NewScanJob creates a scan job for base.Scope
func NewScanJob(runner Runner, base brain.RunConfig, schedule string, log *logger.Logger) *ScanJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ScanJob{
		runner:   runner,
		base:     base,
		schedule: schedule,
		logger:   log.WithField("scope", base.Scope),
		now:      time.Now,
	}
}

// OnResult registers a callback for every run that produced a table
func (j *ScanJob) OnResult(fn func(*brain.RunResult)) *ScanJob {
	j.onResult = fn
	return j
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return fmt.Sprintf("rsqm_scan_nifty%d", j.base.Scope)
}

// Schedule returns the cron schedule
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run executes one scan with a fresh run id and today's date
func (j *ScanJob) Run(ctx context.Context) error {
	config := j.base
	config.RunID = ""
	config.Date = j.now()

	j.logger.Info("Starting scheduled scan")

	result, err := j.runner.Run(ctx, config)
	if result != nil && result.Top != nil && j.onResult != nil {
		j.onResult(result)
	}

	// 수집 0건도 실패로 남겨 스케줄러가 재시도하게 함
	if err != nil {
		return fmt.Errorf("scan nifty%d: %w", j.base.Scope, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"status":   result.Status,
		"ranked":   len(result.Full.Rows),
		"exported": len(result.Exported),
	}).Info("Scheduled scan finished")

	return nil
}
