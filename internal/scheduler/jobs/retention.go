package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/rsqm/pkg/logger"
)

// Pruner removes stored watchlists older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob trims old watchlists from the database
type RetentionJob struct {
	pruner    Pruner
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewRetentionJob creates a retention job keeping retention worth of runs
func NewRetentionJob(pruner Pruner, retention time.Duration, log *logger.Logger) *RetentionJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RetentionJob{
		pruner:    pruner,
		retention: retention,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "watchlist_retention"
}

// Schedule returns the cron schedule (Sunday 03:00)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run executes the cleanup
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	removed, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune watchlist: %w", err)
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("Watchlist retention completed")
	}
	return nil
}
