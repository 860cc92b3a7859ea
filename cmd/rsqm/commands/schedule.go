package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/internal/scheduler"
	"github.com/wonny/rsqm/internal/scheduler/jobs"
)

// watchlistRetention is how long stored watchlists are kept in Postgres
const watchlistRetention = 180 * 24 * time.Hour

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "정기 스캔 스케줄러 실행",
	Long: `전략 파일의 schedule.cron 에 맞춰 schedule.scopes 각각을 스캔합니다.
DATABASE_URL 이 설정되어 있으면 오래된 워치리스트 정리 작업도 등록합니다.

Flags:
  --scopes   스캔 대상 (기본: 전략 파일 schedule.scopes)
  --once     등록된 작업을 한 번씩 즉시 실행하고 종료

Example:
  go run ./cmd/rsqm schedule
  go run ./cmd/rsqm schedule --scopes 50,200
  go run ./cmd/rsqm schedule --once`,
	RunE: runSchedule,
}

var (
	scheduleScopes []string
	scheduleOnce   bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringSliceVar(&scheduleScopes, "scopes", nil, "스캔 대상 scope 목록")
	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "모든 작업 1회 실행 후 종료")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.buildScheduler(scheduleScopes, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	if scheduleOnce {
		failed := 0
		for _, name := range sched.GetAllJobs() {
			result, err := sched.RunNow(cmd.Context(), name)
			if err != nil {
				return err
			}
			if result.Success {
				PrintSuccess(out, fmt.Sprintf("%s (%.1fs)", name, result.Duration.Seconds()))
			} else {
				failed++
				PrintError(out, fmt.Sprintf("%s: %s", name, result.Error))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d job(s) failed", failed)
		}
		return nil
	}

	sched.Start()

	PrintSuccess(out, "Scheduler started")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for name, st := range sched.GetJobStats() {
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "  - %-24s %-18s next %s\n", name, st.Schedule, next)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	return nil
}

// buildScheduler registers one scan job per scope (strategy default when raw is empty)
// plus the retention job when a database is configured.
func (a *app) buildScheduler(raw []string, onResult func(*brain.RunResult)) (*scheduler.Scheduler, error) {
	scopes := a.strategy.Schedule.Scopes
	if len(raw) > 0 {
		parsed, err := parseScopes(raw)
		if err != nil {
			return nil, err
		}
		scopes = parsed
	}
	if len(scopes) == 0 {
		scopes = []int{a.strategy.Universe.Scope}
	}

	sched := scheduler.New(a.location(), a.log)
	for _, scope := range scopes {
		job := jobs.NewScanJob(a.orchestrator, a.runConfig(scope), a.strategy.Schedule.Cron, a.log)
		if onResult != nil {
			job.OnResult(onResult)
		}
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	if a.archive != nil {
		if err := sched.AddJob(jobs.NewRetentionJob(a.archive, watchlistRetention, a.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
